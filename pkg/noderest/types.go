package noderest

import (
	"fmt"
	"strconv"
)

// EntityKind identifies the kind of an entity (node, taxonomy term, ...).
type EntityKind string

const (
	KindNode         EntityKind = "node"
	KindTaxonomyTerm EntityKind = "taxonomy_term"
	KindParagraph    EntityKind = "paragraph"
	KindMedia        EntityKind = "media"
	KindBlockContent EntityKind = "block_content"
)

// FieldItem is a single delta of a field value. Which members are populated
// depends on the field kind: text uses Value/Format, references use
// TargetKind/TargetID, links use URI/Title/Options and images use TargetID
// pointing at a file.
type FieldItem struct {
	Value      string         `json:"value,omitempty"`
	Format     string         `json:"format,omitempty"`
	TargetKind EntityKind     `json:"target_type,omitempty"`
	TargetID   int64          `json:"target_id,omitempty"`
	URI        string         `json:"uri,omitempty"`
	Title      string         `json:"title,omitempty"`
	Options    map[string]any `json:"options,omitempty"`
}

// Field is a named, ordered list of items.
type Field struct {
	Name  string
	Items []FieldItem
}

// Entity is a read-only view of a stored entity. A node is an entity of
// KindNode whose Bundle is its content type.
type Entity struct {
	Kind    EntityKind
	ID      int64
	Bundle  string
	Label   string
	Status  bool
	Private bool // visible only to the privileged account
	Fields  []Field

	// Metatags holds per-entity metatag overrides (tag name -> pattern).
	Metatags map[string]string
}

// Get returns the items of the named field, or nil when the entity has no
// such field.
func (e *Entity) Get(name string) []FieldItem {
	for _, f := range e.Fields {
		if f.Name == name {
			return f.Items
		}
	}
	return nil
}

// Value returns the value of the first item of the named field. Base fields
// are read from the entity itself.
func (e *Entity) Value(name string) string {
	if v, ok := e.BaseValue(name); ok {
		return v
	}
	items := e.Get(name)
	if len(items) == 0 {
		return ""
	}
	return items[0].Value
}

// BaseValue returns the value of a base field, or false when name is not one.
func (e *Entity) BaseValue(name string) (string, bool) {
	switch name {
	case FieldNID:
		return strconv.FormatInt(e.ID, 10), true
	case FieldType:
		return e.Bundle, true
	case FieldStatus:
		return ConditionString(e.Status), true
	case FieldTitle:
		return e.Label, true
	}
	return "", false
}

// InternalPath returns the unaliased system path of the entity.
func (e *Entity) InternalPath() string {
	switch e.Kind {
	case KindNode:
		return NodePath(e.ID)
	case KindTaxonomyTerm:
		return fmt.Sprintf("/taxonomy/term/%d", e.ID)
	default:
		return fmt.Sprintf("/%s/%d", e.Kind, e.ID)
	}
}

// NodePath returns the system path of a node.
func NodePath(id int64) string {
	return "/node/" + strconv.FormatInt(id, 10)
}

// File is a managed file referenced by image fields and media placeholders.
type File struct {
	ID       int64
	URI      string // stream wrapper URI, e.g. public://images/cat.jpg
	Filename string
	MimeType string

	// AltText is the file-level alt text; ImageAltText is the secondary
	// alt text carried by image media.
	AltText      string
	ImageAltText string
}

// LinkValue is the raw structured value of one link field item.
type LinkValue struct {
	URI     string         `json:"uri"`
	Title   string         `json:"title"`
	Options map[string]any `json:"options"`
}

// Account is the identity a query runs as.
type Account struct {
	ID   int64
	Name string
}

// PrivilegedAccount is the fixed account every node query runs as. It sees
// nodes that are hidden from other accounts.
var PrivilegedAccount = Account{ID: 1, Name: "admin"}

// IsPrivileged reports whether the account bypasses node access checks.
func (a Account) IsPrivileged() bool {
	return a.ID == PrivilegedAccount.ID
}

// QueryFilter maps field names to requested values, taken verbatim from the
// request parameters.
type QueryFilter map[string]string

// Condition is a single equality condition of a query.
type Condition struct {
	Field string
	Value any
}

// Base fields are stored on the entity itself rather than as field items.
const (
	FieldNID    = "nid"
	FieldType   = "type"
	FieldStatus = "status"
	FieldTitle  = "title"
)

// MetaAccount is the query metadata key carrying the acting Account.
const MetaAccount = "account"

// IsBaseField reports whether the field is stored on the entity itself.
func IsBaseField(name string) bool {
	switch name {
	case FieldNID, FieldType, FieldStatus, FieldTitle:
		return true
	}
	return false
}

// BaseFieldDefinitions returns the definitions of the fields every node
// carries on the entity itself. They read as plain strings.
func BaseFieldDefinitions() map[string]FieldDefinition {
	defs := make(map[string]FieldDefinition, 4)
	for _, name := range []string{FieldNID, FieldType, FieldStatus, FieldTitle} {
		defs[name] = FieldDefinition{Name: name, Type: "string", Kind: FieldKindScalar}
	}
	return defs
}

// ConditionBool interprets a condition value as a boolean. It accepts
// booleans and the strings strconv.ParseBool does ("1", "true", "0", ...).
func ConditionBool(v any) (bool, error) {
	if b, ok := v.(bool); ok {
		return b, nil
	}
	return strconv.ParseBool(ConditionString(v))
}

// ConditionString renders a condition value the way stores compare it.
// Booleans become "1" and "0".
func ConditionString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		if t {
			return "1"
		}
		return "0"
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(v)
	}
}
