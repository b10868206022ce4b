// Package sqlite stores entities in an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/tendant/node-rest-api/pkg/noderest"
	"github.com/tendant/node-rest-api/pkg/noderest/repo/sqlquery"
)

// Store implements noderest.Repository on SQLite.
type Store struct {
	db *sql.DB
}

// Open connects to the database at path (":memory:" for a private in-memory
// database) and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	s := &Store{db: db}
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Migrate creates the tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range sqlquery.Statements() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// SaveEntity upserts an entity and replaces its field items and metatags.
func (s *Store) SaveEntity(ctx context.Context, entity *noderest.Entity) error {
	if entity.ID <= 0 {
		return fmt.Errorf("entity id must be positive, got %d", entity.ID)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save entity: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	kind := string(entity.Kind)
	_, err = tx.ExecContext(ctx, `
		INSERT INTO entities (kind, id, bundle, label, status, private)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (kind, id) DO UPDATE SET
			bundle = excluded.bundle,
			label = excluded.label,
			status = excluded.status,
			private = excluded.private`,
		kind, entity.ID, entity.Bundle, entity.Label, entity.Status, entity.Private)
	if err != nil {
		return fmt.Errorf("save entity %d: %w", entity.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM entity_fields WHERE kind = ? AND entity_id = ?`, kind, entity.ID); err != nil {
		return fmt.Errorf("clear fields of %d: %w", entity.ID, err)
	}
	for _, f := range entity.Fields {
		for delta, item := range f.Items {
			var target sql.NullInt64
			if item.TargetID != 0 {
				target = sql.NullInt64{Int64: item.TargetID, Valid: true}
			}
			_, err := tx.ExecContext(ctx, `
				INSERT INTO entity_fields (kind, entity_id, field_name, delta, value, format,
					target_kind, target_id, uri, title, options)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				kind, entity.ID, f.Name, delta, item.Value, item.Format,
				string(item.TargetKind), target, item.URI, item.Title,
				sqlquery.EncodeOptions(item.Options))
			if err != nil {
				return fmt.Errorf("save field %s of %d: %w", f.Name, entity.ID, err)
			}
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM entity_metatags WHERE kind = ? AND entity_id = ?`, kind, entity.ID); err != nil {
		return fmt.Errorf("clear metatags of %d: %w", entity.ID, err)
	}
	for tag, value := range entity.Metatags {
		if _, err := tx.ExecContext(ctx, `INSERT INTO entity_metatags (kind, entity_id, tag, value) VALUES (?, ?, ?, ?)`,
			kind, entity.ID, tag, value); err != nil {
			return fmt.Errorf("save metatag %s of %d: %w", tag, entity.ID, err)
		}
	}

	return tx.Commit()
}

func (s *Store) LoadEntity(ctx context.Context, kind noderest.EntityKind, id int64) (*noderest.Entity, error) {
	entity := noderest.Entity{Kind: kind, ID: id}
	err := s.db.QueryRowContext(ctx,
		`SELECT bundle, label, status, private FROM entities WHERE kind = ? AND id = ?`,
		string(kind), id,
	).Scan(&entity.Bundle, &entity.Label, &entity.Status, &entity.Private)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, noderest.ErrEntityNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load entity %d: %w", id, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT field_name, value, format, target_kind, target_id, uri, title, options
		FROM entity_fields WHERE kind = ? AND entity_id = ?
		ORDER BY field_name, delta`, string(kind), id)
	if err != nil {
		return nil, fmt.Errorf("load fields of %d: %w", id, err)
	}
	for rows.Next() {
		var (
			name, targetKind, options string
			target                    sql.NullInt64
			item                      noderest.FieldItem
		)
		if err := rows.Scan(&name, &item.Value, &item.Format, &targetKind, &target,
			&item.URI, &item.Title, &options); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan field of %d: %w", id, err)
		}
		item.TargetKind = noderest.EntityKind(targetKind)
		item.TargetID = target.Int64
		if item.Options, err = sqlquery.DecodeOptions(options); err != nil {
			rows.Close()
			return nil, err
		}
		appendItem(&entity, name, item)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	tags, err := s.db.QueryContext(ctx, `SELECT tag, value FROM entity_metatags WHERE kind = ? AND entity_id = ?`, string(kind), id)
	if err != nil {
		return nil, fmt.Errorf("load metatags of %d: %w", id, err)
	}
	defer tags.Close()
	for tags.Next() {
		var tag, value string
		if err := tags.Scan(&tag, &value); err != nil {
			return nil, fmt.Errorf("scan metatag of %d: %w", id, err)
		}
		if entity.Metatags == nil {
			entity.Metatags = make(map[string]string)
		}
		entity.Metatags[tag] = value
	}
	return &entity, tags.Err()
}

// SetFieldDefinition registers a field on a bundle.
func (s *Store) SetFieldDefinition(ctx context.Context, kind noderest.EntityKind, bundle string, def noderest.FieldDefinition) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO field_definitions (entity_kind, bundle, field_name, field_type, target_kind)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (entity_kind, bundle, field_name) DO UPDATE SET
			field_type = excluded.field_type,
			target_kind = excluded.target_kind`,
		string(kind), bundle, def.Name, def.Type, string(def.TargetKind))
	if err != nil {
		return fmt.Errorf("set field definition %s: %w", def.Name, err)
	}
	return nil
}

func (s *Store) FieldDefinitions(ctx context.Context, kind noderest.EntityKind, bundle string) (map[string]noderest.FieldDefinition, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT field_name, field_type, target_kind FROM field_definitions WHERE entity_kind = ? AND bundle = ?`,
		string(kind), bundle)
	if err != nil {
		return nil, fmt.Errorf("load field definitions: %w", err)
	}
	defer rows.Close()

	defs := make(map[string]noderest.FieldDefinition)
	for rows.Next() {
		var name, fieldType, target string
		if err := rows.Scan(&name, &fieldType, &target); err != nil {
			return nil, fmt.Errorf("scan field definition: %w", err)
		}
		def, err := noderest.NewFieldDefinition(name, fieldType, noderest.EntityKind(target))
		if err != nil {
			return nil, err
		}
		defs[name] = def
	}
	return defs, rows.Err()
}

// SetAlias maps a system path to an alias.
func (s *Store) SetAlias(ctx context.Context, path, alias string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO url_aliases (path, alias) VALUES (?, ?)
		ON CONFLICT (path) DO UPDATE SET alias = excluded.alias`, path, alias)
	if err != nil {
		return fmt.Errorf("set alias %s: %w", path, err)
	}
	return nil
}

func (s *Store) AliasByPath(ctx context.Context, path string) (string, error) {
	var alias string
	err := s.db.QueryRowContext(ctx, `SELECT alias FROM url_aliases WHERE path = ?`, path).Scan(&alias)
	if errors.Is(err, sql.ErrNoRows) {
		return path, nil
	}
	if err != nil {
		return "", fmt.Errorf("alias by path %s: %w", path, err)
	}
	return alias, nil
}

// SaveFile upserts a managed file.
func (s *Store) SaveFile(ctx context.Context, file *noderest.File) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO files (fid, uri, filename, mime_type, alt, image_alt)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (fid) DO UPDATE SET
			uri = excluded.uri,
			filename = excluded.filename,
			mime_type = excluded.mime_type,
			alt = excluded.alt,
			image_alt = excluded.image_alt`,
		file.ID, file.URI, file.Filename, file.MimeType, file.AltText, file.ImageAltText)
	if err != nil {
		return fmt.Errorf("save file %d: %w", file.ID, err)
	}
	return nil
}

func (s *Store) LoadFile(ctx context.Context, fid int64) (*noderest.File, error) {
	file := noderest.File{ID: fid}
	err := s.db.QueryRowContext(ctx,
		`SELECT uri, filename, mime_type, alt, image_alt FROM files WHERE fid = ?`, fid,
	).Scan(&file.URI, &file.Filename, &file.MimeType, &file.AltText, &file.ImageAltText)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, noderest.ErrFileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load file %d: %w", fid, err)
	}
	return &file, nil
}

func (s *Store) NewQuery(kind noderest.EntityKind) noderest.Query {
	return &Query{store: s, Query: sqlquery.NewQuery(kind)}
}

// Query is an entity query executed against SQLite.
type Query struct {
	sqlquery.Query
	store *Store
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
	st, err := q.Build(sqlquery.SQLite)
	if err != nil {
		return nil, err
	}

	for _, c := range st.Fields {
		query, args := sqlquery.DefinitionCheck(sqlquery.SQLite, q.Kind, c.Field, st.Bundles)
		var n int
		if err := q.store.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
			return nil, fmt.Errorf("check field definition %s: %w", c.Field, err)
		}
		if n == 0 {
			return nil, &noderest.QueryError{Field: c.Field, Value: noderest.ConditionString(c.Value), Err: noderest.ErrInvalidFilter}
		}
	}

	rows, err := q.store.db.QueryContext(ctx, st.SQL, st.Args...)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan entity id: %w", err)
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
