package noderest

import "fmt"

// FieldKind is the closed set of field kinds the Formatter knows how to
// flatten.
type FieldKind int

const (
	FieldKindScalar FieldKind = iota + 1
	FieldKindRichText
	FieldKindLink
	FieldKindImage
	FieldKindEntityReference
	FieldKindEntityReferenceRevisions
)

func (k FieldKind) String() string {
	switch k {
	case FieldKindScalar:
		return "scalar"
	case FieldKindRichText:
		return "rich_text"
	case FieldKindLink:
		return "link"
	case FieldKindImage:
		return "image"
	case FieldKindEntityReference:
		return "entity_reference"
	case FieldKindEntityReferenceRevisions:
		return "entity_reference_revisions"
	default:
		return fmt.Sprintf("FieldKind(%d)", int(k))
	}
}

// IsReference reports whether the kind points at other entities.
func (k FieldKind) IsReference() bool {
	return k == FieldKindEntityReference || k == FieldKindEntityReferenceRevisions
}

var fieldTypeKinds = map[string]FieldKind{
	"entity_reference":           FieldKindEntityReference,
	"entity_reference_revisions": FieldKindEntityReferenceRevisions,
	"image":                      FieldKindImage,
	"link":                       FieldKindLink,

	"text":              FieldKindRichText,
	"text_long":         FieldKindRichText,
	"text_with_summary": FieldKindRichText,

	"string":           FieldKindScalar,
	"string_long":      FieldKindScalar,
	"integer":          FieldKindScalar,
	"decimal":          FieldKindScalar,
	"float":            FieldKindScalar,
	"boolean":          FieldKindScalar,
	"email":            FieldKindScalar,
	"telephone":        FieldKindScalar,
	"uri":              FieldKindScalar,
	"uuid":             FieldKindScalar,
	"language":         FieldKindScalar,
	"list_string":      FieldKindScalar,
	"list_integer":     FieldKindScalar,
	"list_float":       FieldKindScalar,
	"datetime":         FieldKindScalar,
	"timestamp":        FieldKindScalar,
	"created":          FieldKindScalar,
	"changed":          FieldKindScalar,
	"path":             FieldKindScalar,
	"metatag":          FieldKindScalar,
	"comment":          FieldKindScalar,
	"daterange":        FieldKindScalar,
	"file":             FieldKindScalar,
	"map":              FieldKindScalar,
	"password":         FieldKindScalar,
	"string_formatted": FieldKindScalar,
}

// ParseFieldKind maps a stored field type name to its FieldKind.
func ParseFieldKind(fieldType string) (FieldKind, error) {
	if k, ok := fieldTypeKinds[fieldType]; ok {
		return k, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownFieldType, fieldType)
}

// FieldDefinition describes one field of a content type.
type FieldDefinition struct {
	Name string
	Type string // stored field type name, e.g. "text_with_summary"
	Kind FieldKind

	// TargetKind is the entity kind referenced by reference fields when the
	// item itself does not say.
	TargetKind EntityKind
}

// NewFieldDefinition builds a definition from a stored field type name.
func NewFieldDefinition(name, fieldType string, target EntityKind) (FieldDefinition, error) {
	kind, err := ParseFieldKind(fieldType)
	if err != nil {
		return FieldDefinition{}, &FieldError{Field: name, Err: err}
	}
	return FieldDefinition{Name: name, Type: fieldType, Kind: kind, TargetKind: target}, nil
}
