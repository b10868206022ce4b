// Package sqlquery builds the entity ID query shared by the SQL stores.
// Base fields map to columns of the entities table; every other field becomes
// an EXISTS over entity_fields.
package sqlquery

import (
	"strconv"

	"github.com/huandu/go-sqlbuilder"
	"github.com/tendant/node-rest-api/pkg/noderest"
)

// Dialect selects placeholder syntax.
type Dialect = sqlbuilder.Flavor

const (
	Postgres = sqlbuilder.PostgreSQL
	SQLite   = sqlbuilder.SQLite
)

// Statement is a built query.
type Statement struct {
	SQL  string
	Args []any

	// Bundles lists the values of type conditions.
	Bundles []string

	// Fields lists the non-base fields the query filters on. Stores check
	// them against field_definitions before running SQL.
	Fields []noderest.Condition
}

// Build renders conditions into a SELECT over entity IDs of one kind. Unless
// the account is privileged, private entities are excluded.
func Build(d Dialect, kind noderest.EntityKind, conds []noderest.Condition, account noderest.Account) (*Statement, error) {
	st := &Statement{}
	sb := d.NewSelectBuilder()
	sb.Select("e.id").From("entities e")

	where := []string{sb.Equal("e.kind", string(kind))}
	if !account.IsPrivileged() {
		where = append(where, sb.Equal("e.private", false))
	}

	for _, c := range conds {
		value := noderest.ConditionString(c.Value)
		invalid := &noderest.QueryError{Field: c.Field, Value: value, Err: noderest.ErrInvalidFilter}
		switch c.Field {
		case noderest.FieldNID:
			id, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return nil, invalid
			}
			where = append(where, sb.Equal("e.id", id))
		case noderest.FieldType:
			st.Bundles = append(st.Bundles, value)
			where = append(where, sb.Equal("e.bundle", value))
		case noderest.FieldStatus:
			status, err := noderest.ConditionBool(c.Value)
			if err != nil {
				return nil, invalid
			}
			where = append(where, sb.Equal("e.status", status))
		case noderest.FieldTitle:
			where = append(where, sb.Equal("e.label", value))
		default:
			st.Fields = append(st.Fields, c)
			where = append(where, "EXISTS ("+sb.Var(fieldMatch(d, c.Field, value))+")")
		}
	}

	sb.Where(where...).OrderBy("e.id")
	sql, args := sb.Build()
	st.SQL, st.Args = sql, args
	return st, nil
}

// fieldMatch selects the items of field whose value, URI or target ID
// equals value.
func fieldMatch(d Dialect, field, value string) *sqlbuilder.SelectBuilder {
	sub := d.NewSelectBuilder()
	sub.Select("1").From("entity_fields f").Where(
		"f.kind = e.kind",
		"f.entity_id = e.id",
		sub.Equal("f.field_name", field),
		sub.Or(
			sub.Equal("f.value", value),
			sub.Equal("f.uri", value),
			sub.Equal("CAST(f.target_id AS TEXT)", value),
		),
	)
	return sub
}

// DefinitionCheck returns SQL counting definitions of a field on a kind,
// restricted to the given bundles when any are set, and its arguments.
func DefinitionCheck(d Dialect, kind noderest.EntityKind, field string, bundles []string) (string, []any) {
	sb := d.NewSelectBuilder()
	sb.Select("COUNT(*)").From("field_definitions")

	where := []string{sb.Equal("entity_kind", string(kind)), sb.Equal("field_name", field)}
	if len(bundles) > 0 {
		values := make([]any, len(bundles))
		for i, b := range bundles {
			values[i] = b
		}
		where = append(where, sb.In("bundle", values...))
	}
	sb.Where(where...)
	return sb.Build()
}

// Query collects conditions and metadata for a SQL store. Stores embed it
// and supply Execute.
type Query struct {
	Kind       noderest.EntityKind
	conditions []noderest.Condition
	meta       map[string]any
}

// NewQuery creates an empty query for kind.
func NewQuery(kind noderest.EntityKind) Query {
	return Query{Kind: kind, meta: make(map[string]any)}
}

// AddCondition records an equality condition.
func (q *Query) AddCondition(field string, value any) {
	q.conditions = append(q.conditions, noderest.Condition{Field: field, Value: value})
}

// SetMeta records query metadata.
func (q *Query) SetMeta(key string, value any) {
	q.meta[key] = value
}

// Conditions returns the recorded conditions.
func (q *Query) Conditions() []noderest.Condition {
	out := make([]noderest.Condition, len(q.conditions))
	copy(out, q.conditions)
	return out
}

// Account returns the acting account, or the zero Account when none is set.
func (q *Query) Account() noderest.Account {
	a, _ := q.meta[noderest.MetaAccount].(noderest.Account)
	return a
}

// Build renders the query in the given dialect.
func (q *Query) Build(d Dialect) (*Statement, error) {
	return Build(d, q.Kind, q.conditions, q.Account())
}
