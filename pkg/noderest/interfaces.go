package noderest

import "context"

// Query is an entity query under construction. Condition and AddMetaData
// return the query so calls can be chained.
type Query interface {
	// Condition adds an equality condition. Field names are not validated
	// here; stores reject unknown fields from Execute.
	Condition(field string, value any) Query

	// AddMetaData attaches out-of-band information, such as the acting
	// account, for the store to honour.
	AddMetaData(key string, value any) Query

	// Conditions returns the conditions added so far, in order.
	Conditions() []Condition

	// Execute runs the query and returns matching entity IDs in ascending order.
	Execute(ctx context.Context) ([]int64, error)
}

// QueryFactory creates queries against one entity kind.
type QueryFactory interface {
	NewQuery(kind EntityKind) Query
}

// EntityLoader loads entities by kind and ID. Missing entities yield
// ErrEntityNotFound.
type EntityLoader interface {
	LoadEntity(ctx context.Context, kind EntityKind, id int64) (*Entity, error)
}

// FieldDefinitionProvider returns the field definitions of a bundle keyed by
// field name.
type FieldDefinitionProvider interface {
	FieldDefinitions(ctx context.Context, kind EntityKind, bundle string) (map[string]FieldDefinition, error)
}

// AliasResolver maps a system path to its canonical alias. Unaliased paths
// are returned unchanged.
type AliasResolver interface {
	AliasByPath(ctx context.Context, path string) (string, error)
}

// FileStore loads managed files. Missing files yield ErrFileNotFound.
type FileStore interface {
	LoadFile(ctx context.Context, fid int64) (*File, error)
}

// URLResolver turns a file URI into a public URL.
type URLResolver interface {
	PublicURL(ctx context.Context, uri string) (string, error)
}

// Renderer renders an entity in a view mode to markup.
type Renderer interface {
	View(ctx context.Context, entity *Entity, viewMode string) (string, error)
}

// TagSet maps metatag names to their unresolved values.
type TagSet map[string]string

// RawElement is one generated metatag with its HTML attributes.
type RawElement struct {
	Name       string
	Attributes map[string]string
}

// MetatagManager produces the metatags of a node.
type MetatagManager interface {
	DefaultTags(ctx context.Context, node *Entity) (TagSet, error)
	GenerateRawElements(ctx context.Context, tags TagSet, node *Entity) ([]RawElement, error)
}

// Repository groups the store capabilities a Service needs. The memory,
// Postgres and SQLite stores implement it.
type Repository interface {
	QueryFactory
	EntityLoader
	FieldDefinitionProvider
	AliasResolver
	FileStore
}

// TermFormatter renders a taxonomy term inside a reference field.
type TermFormatter func(term *Entity) string

// QueryAlterer may adjust a query after the standard conditions are added
// and before it runs.
type QueryAlterer func(q Query) Query
