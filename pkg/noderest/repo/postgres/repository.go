package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/node-rest-api/pkg/noderest"
	"github.com/tendant/node-rest-api/pkg/noderest/repo/sqlquery"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements noderest.Repository using PostgreSQL
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL repository
func New(db DBTX) *Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

// Migrate creates the tables if they do not exist.
func (r *Repository) Migrate(ctx context.Context) error {
	for _, stmt := range sqlquery.Statements() {
		if _, err := r.db.Exec(ctx, stmt); err != nil {
			return r.handlePostgresError("migrate", err)
		}
	}
	return nil
}

// Error handling helper
func (r *Repository) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("duplicate entry in %s", operation)
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "42703": // undefined_column
			return &noderest.QueryError{Field: pgErr.ColumnName, Err: noderest.ErrInvalidFilter}
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}

// Entity operations

// SaveEntity upserts an entity and replaces its field items and metatags.
func (r *Repository) SaveEntity(ctx context.Context, entity *noderest.Entity) error {
	if entity.ID <= 0 {
		return fmt.Errorf("entity id must be positive, got %d", entity.ID)
	}

	query := `
		INSERT INTO entities (kind, id, bundle, label, status, private)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (kind, id) DO UPDATE SET
			bundle = EXCLUDED.bundle,
			label = EXCLUDED.label,
			status = EXCLUDED.status,
			private = EXCLUDED.private`

	_, err := r.db.Exec(ctx, query, string(entity.Kind), entity.ID, entity.Bundle,
		entity.Label, entity.Status, entity.Private)
	if err != nil {
		return r.handlePostgresError("save entity", err)
	}

	if _, err := r.db.Exec(ctx, `DELETE FROM entity_fields WHERE kind = $1 AND entity_id = $2`,
		string(entity.Kind), entity.ID); err != nil {
		return r.handlePostgresError("save entity", err)
	}
	for _, f := range entity.Fields {
		for delta, item := range f.Items {
			_, err := r.db.Exec(ctx, `
				INSERT INTO entity_fields (kind, entity_id, field_name, delta, value, format,
					target_kind, target_id, uri, title, options)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
				string(entity.Kind), entity.ID, f.Name, delta, item.Value, item.Format,
				string(item.TargetKind), nullableID(item.TargetID), item.URI, item.Title,
				sqlquery.EncodeOptions(item.Options))
			if err != nil {
				return r.handlePostgresError("save entity field", err)
			}
		}
	}

	if _, err := r.db.Exec(ctx, `DELETE FROM entity_metatags WHERE kind = $1 AND entity_id = $2`,
		string(entity.Kind), entity.ID); err != nil {
		return r.handlePostgresError("save entity", err)
	}
	for tag, value := range entity.Metatags {
		_, err := r.db.Exec(ctx, `INSERT INTO entity_metatags (kind, entity_id, tag, value) VALUES ($1, $2, $3, $4)`,
			string(entity.Kind), entity.ID, tag, value)
		if err != nil {
			return r.handlePostgresError("save entity metatag", err)
		}
	}
	return nil
}

func (r *Repository) LoadEntity(ctx context.Context, kind noderest.EntityKind, id int64) (*noderest.Entity, error) {
	query := `
		SELECT bundle, label, status, private
		FROM entities WHERE kind = $1 AND id = $2`

	entity := noderest.Entity{Kind: kind, ID: id}
	err := r.db.QueryRow(ctx, query, string(kind), id).Scan(
		&entity.Bundle, &entity.Label, &entity.Status, &entity.Private)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, noderest.ErrEntityNotFound
		}
		return nil, r.handlePostgresError("load entity", err)
	}

	if err := r.loadFields(ctx, &entity); err != nil {
		return nil, err
	}
	if err := r.loadMetatags(ctx, &entity); err != nil {
		return nil, err
	}
	return &entity, nil
}

func (r *Repository) loadFields(ctx context.Context, entity *noderest.Entity) error {
	query := `
		SELECT field_name, value, format, target_kind, target_id, uri, title, options
		FROM entity_fields WHERE kind = $1 AND entity_id = $2
		ORDER BY field_name, delta`

	rows, err := r.db.Query(ctx, query, string(entity.Kind), entity.ID)
	if err != nil {
		return r.handlePostgresError("load entity fields", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			name, targetKind, options string
			targetID                  *int64
			item                      noderest.FieldItem
		)
		if err := rows.Scan(&name, &item.Value, &item.Format, &targetKind, &targetID,
			&item.URI, &item.Title, &options); err != nil {
			return r.handlePostgresError("load entity fields", err)
		}
		item.TargetKind = noderest.EntityKind(targetKind)
		if targetID != nil {
			item.TargetID = *targetID
		}
		if item.Options, err = sqlquery.DecodeOptions(options); err != nil {
			return err
		}
		appendItem(entity, name, item)
	}
	return rows.Err()
}

func (r *Repository) loadMetatags(ctx context.Context, entity *noderest.Entity) error {
	rows, err := r.db.Query(ctx, `SELECT tag, value FROM entity_metatags WHERE kind = $1 AND entity_id = $2`,
		string(entity.Kind), entity.ID)
	if err != nil {
		return r.handlePostgresError("load entity metatags", err)
	}
	defer rows.Close()

	for rows.Next() {
		var tag, value string
		if err := rows.Scan(&tag, &value); err != nil {
			return r.handlePostgresError("load entity metatags", err)
		}
		if entity.Metatags == nil {
			entity.Metatags = make(map[string]string)
		}
		entity.Metatags[tag] = value
	}
	return rows.Err()
}

// Field definition operations

// SetFieldDefinition registers a field on a bundle.
func (r *Repository) SetFieldDefinition(ctx context.Context, kind noderest.EntityKind, bundle string, def noderest.FieldDefinition) error {
	query := `
		INSERT INTO field_definitions (entity_kind, bundle, field_name, field_type, target_kind)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (entity_kind, bundle, field_name) DO UPDATE SET
			field_type = EXCLUDED.field_type,
			target_kind = EXCLUDED.target_kind`

	_, err := r.db.Exec(ctx, query, string(kind), bundle, def.Name, def.Type, string(def.TargetKind))
	if err != nil {
		return r.handlePostgresError("set field definition", err)
	}
	return nil
}

func (r *Repository) FieldDefinitions(ctx context.Context, kind noderest.EntityKind, bundle string) (map[string]noderest.FieldDefinition, error) {
	query := `
		SELECT field_name, field_type, target_kind
		FROM field_definitions WHERE entity_kind = $1 AND bundle = $2`

	rows, err := r.db.Query(ctx, query, string(kind), bundle)
	if err != nil {
		return nil, r.handlePostgresError("field definitions", err)
	}
	defer rows.Close()

	defs := make(map[string]noderest.FieldDefinition)
	for rows.Next() {
		var name, fieldType, target string
		if err := rows.Scan(&name, &fieldType, &target); err != nil {
			return nil, r.handlePostgresError("field definitions", err)
		}
		def, err := noderest.NewFieldDefinition(name, fieldType, noderest.EntityKind(target))
		if err != nil {
			return nil, err
		}
		defs[name] = def
	}
	return defs, rows.Err()
}

// Alias operations

// SetAlias maps a system path to an alias.
func (r *Repository) SetAlias(ctx context.Context, path, alias string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO url_aliases (path, alias) VALUES ($1, $2)
		ON CONFLICT (path) DO UPDATE SET alias = EXCLUDED.alias`, path, alias)
	if err != nil {
		return r.handlePostgresError("set alias", err)
	}
	return nil
}

func (r *Repository) AliasByPath(ctx context.Context, path string) (string, error) {
	var alias string
	err := r.db.QueryRow(ctx, `SELECT alias FROM url_aliases WHERE path = $1`, path).Scan(&alias)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return path, nil
		}
		return "", r.handlePostgresError("alias by path", err)
	}
	return alias, nil
}

// File operations

// SaveFile upserts a managed file.
func (r *Repository) SaveFile(ctx context.Context, file *noderest.File) error {
	query := `
		INSERT INTO files (fid, uri, filename, mime_type, alt, image_alt)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (fid) DO UPDATE SET
			uri = EXCLUDED.uri,
			filename = EXCLUDED.filename,
			mime_type = EXCLUDED.mime_type,
			alt = EXCLUDED.alt,
			image_alt = EXCLUDED.image_alt`

	_, err := r.db.Exec(ctx, query, file.ID, file.URI, file.Filename, file.MimeType,
		file.AltText, file.ImageAltText)
	if err != nil {
		return r.handlePostgresError("save file", err)
	}
	return nil
}

func (r *Repository) LoadFile(ctx context.Context, fid int64) (*noderest.File, error) {
	query := `SELECT uri, filename, mime_type, alt, image_alt FROM files WHERE fid = $1`

	file := noderest.File{ID: fid}
	err := r.db.QueryRow(ctx, query, fid).Scan(
		&file.URI, &file.Filename, &file.MimeType, &file.AltText, &file.ImageAltText)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, noderest.ErrFileNotFound
		}
		return nil, r.handlePostgresError("load file", err)
	}
	return &file, nil
}

// Query operations

func (r *Repository) NewQuery(kind noderest.EntityKind) noderest.Query {
	return &Query{repo: r, Query: sqlquery.NewQuery(kind)}
}

// Query is an entity query executed against PostgreSQL.
type Query struct {
	sqlquery.Query
	repo *Repository
}

func (q *Query) Condition(field string, value any) noderest.Query {
	q.AddCondition(field, value)
	return q
}

func (q *Query) AddMetaData(key string, value any) noderest.Query {
	q.SetMeta(key, value)
	return q
}

func (q *Query) Execute(ctx context.Context) ([]int64, error) {
	st, err := q.Build(sqlquery.Postgres)
	if err != nil {
		return nil, err
	}

	for _, c := range st.Fields {
		sql, args := sqlquery.DefinitionCheck(sqlquery.Postgres, q.Kind, c.Field, st.Bundles)
		var n int
		if err := q.repo.db.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
			return nil, q.repo.handlePostgresError("check field definition", err)
		}
		if n == 0 {
			return nil, &noderest.QueryError{Field: c.Field, Value: noderest.ConditionString(c.Value), Err: noderest.ErrInvalidFilter}
		}
	}

	rows, err := q.repo.db.Query(ctx, st.SQL, st.Args...)
	if err != nil {
		return nil, q.repo.handlePostgresError("execute query", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, q.repo.handlePostgresError("execute query", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func appendItem(entity *noderest.Entity, name string, item noderest.FieldItem) {
	for i := range entity.Fields {
		if entity.Fields[i].Name == name {
			entity.Fields[i].Items = append(entity.Fields[i].Items, item)
			return
		}
	}
	entity.Fields = append(entity.Fields, noderest.Field{Name: name, Items: []noderest.FieldItem{item}})
}

func nullableID(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}
