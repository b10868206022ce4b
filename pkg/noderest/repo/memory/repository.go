package memory

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/tendant/node-rest-api/pkg/noderest"
)

type entityKey struct {
	kind noderest.EntityKind
	id   int64
}

type bundleKey struct {
	kind   noderest.EntityKind
	bundle string
}

// Repository implements noderest.Repository using in-memory storage
type Repository struct {
	mu       sync.RWMutex
	entities map[entityKey]*noderest.Entity
	defs     map[bundleKey]map[string]noderest.FieldDefinition
	aliases  map[string]string
	files    map[int64]*noderest.File
}

// New creates a new in-memory repository
func New() *Repository {
	return &Repository{
		entities: make(map[entityKey]*noderest.Entity),
		defs:     make(map[bundleKey]map[string]noderest.FieldDefinition),
		aliases:  make(map[string]string),
		files:    make(map[int64]*noderest.File),
	}
}

// Entity operations

// SaveEntity stores a copy of the entity, replacing any previous version.
func (r *Repository) SaveEntity(ctx context.Context, entity *noderest.Entity) error {
	if entity.ID <= 0 {
		return fmt.Errorf("entity id must be positive, got %d", entity.ID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entities[entityKey{entity.Kind, entity.ID}] = copyEntity(entity)
	return nil
}

func (r *Repository) LoadEntity(ctx context.Context, kind noderest.EntityKind, id int64) (*noderest.Entity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entity, exists := r.entities[entityKey{kind, id}]
	if !exists {
		return nil, noderest.ErrEntityNotFound
	}
	return copyEntity(entity), nil
}

// DeleteEntity removes an entity. Deleting a missing entity is not an error.
func (r *Repository) DeleteEntity(ctx context.Context, kind noderest.EntityKind, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.entities, entityKey{kind, id})
	return nil
}

// Field definition operations

// SetFieldDefinition registers a field on a bundle.
func (r *Repository) SetFieldDefinition(ctx context.Context, kind noderest.EntityKind, bundle string, def noderest.FieldDefinition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := bundleKey{kind, bundle}
	if r.defs[key] == nil {
		r.defs[key] = make(map[string]noderest.FieldDefinition)
	}
	r.defs[key][def.Name] = def
	return nil
}

func (r *Repository) FieldDefinitions(ctx context.Context, kind noderest.EntityKind, bundle string) (map[string]noderest.FieldDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]noderest.FieldDefinition)
	for name, def := range r.defs[bundleKey{kind, bundle}] {
		out[name] = def
	}
	return out, nil
}

// Alias operations

// SetAlias maps a system path to an alias.
func (r *Repository) SetAlias(ctx context.Context, path, alias string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.aliases[path] = alias
	return nil
}

func (r *Repository) AliasByPath(ctx context.Context, path string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if alias, ok := r.aliases[path]; ok {
		return alias, nil
	}
	return path, nil
}

// File operations

// SaveFile stores a copy of the file.
func (r *Repository) SaveFile(ctx context.Context, file *noderest.File) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	fileCopy := *file
	r.files[file.ID] = &fileCopy
	return nil
}

func (r *Repository) LoadFile(ctx context.Context, fid int64) (*noderest.File, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	file, ok := r.files[fid]
	if !ok {
		return nil, noderest.ErrFileNotFound
	}
	fileCopy := *file
	return &fileCopy, nil
}

// Query operations

func (r *Repository) NewQuery(kind noderest.EntityKind) noderest.Query {
	return &Query{repo: r, kind: kind, meta: make(map[string]any)}
}

// Query is an in-memory entity query.
type Query struct {
	repo       *Repository
	kind       noderest.EntityKind
	conditions []noderest.Condition
	meta       map[string]any
}

func (q *Query) Condition(field string, value any) noderest.Query {
	q.conditions = append(q.conditions, noderest.Condition{Field: field, Value: value})
	return q
}

func (q *Query) AddMetaData(key string, value any) noderest.Query {
	q.meta[key] = value
	return q
}

func (q *Query) Conditions() []noderest.Condition {
	out := make([]noderest.Condition, len(q.conditions))
	copy(out, q.conditions)
	return out
}

// MetaData returns the value attached under key.
func (q *Query) MetaData(key string) (any, bool) {
	v, ok := q.meta[key]
	return v, ok
}

func (q *Query) Execute(ctx context.Context) ([]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	q.repo.mu.RLock()
	defer q.repo.mu.RUnlock()

	if err := q.validate(); err != nil {
		return nil, err
	}

	account, _ := q.meta[noderest.MetaAccount].(noderest.Account)

	var ids []int64
	for key, entity := range q.repo.entities {
		if key.kind != q.kind {
			continue
		}
		if entity.Private && !account.IsPrivileged() {
			continue
		}
		if q.matches(entity) {
			ids = append(ids, entity.ID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// validate rejects conditions on fields that no bundle in scope defines.
func (q *Query) validate() error {
	var bundles []string
	for _, c := range q.conditions {
		if c.Field == noderest.FieldType {
			bundles = append(bundles, noderest.ConditionString(c.Value))
		}
	}

	for _, c := range q.conditions {
		if noderest.IsBaseField(c.Field) {
			var err error
			switch c.Field {
			case noderest.FieldNID:
				_, err = strconv.ParseInt(noderest.ConditionString(c.Value), 10, 64)
			case noderest.FieldStatus:
				_, err = noderest.ConditionBool(c.Value)
			}
			if err != nil {
				return &noderest.QueryError{Field: c.Field, Value: noderest.ConditionString(c.Value), Err: noderest.ErrInvalidFilter}
			}
			continue
		}
		if !q.repo.fieldDefined(q.kind, bundles, c.Field) {
			return &noderest.QueryError{Field: c.Field, Value: noderest.ConditionString(c.Value), Err: noderest.ErrInvalidFilter}
		}
	}
	return nil
}

func (r *Repository) fieldDefined(kind noderest.EntityKind, bundles []string, field string) bool {
	for key, defs := range r.defs {
		if key.kind != kind {
			continue
		}
		if len(bundles) > 0 && !contains(bundles, key.bundle) {
			continue
		}
		if _, ok := defs[field]; ok {
			return true
		}
	}
	return false
}

func (q *Query) matches(e *noderest.Entity) bool {
	for _, c := range q.conditions {
		switch c.Field {
		case noderest.FieldStatus:
			want, _ := noderest.ConditionBool(c.Value)
			if e.Status != want {
				return false
			}
		case noderest.FieldNID:
			want, _ := strconv.ParseInt(noderest.ConditionString(c.Value), 10, 64)
			if e.ID != want {
				return false
			}
		default:
			want := noderest.ConditionString(c.Value)
			if v, ok := e.BaseValue(c.Field); ok {
				if v != want {
					return false
				}
			} else if !itemMatches(e.Get(c.Field), want) {
				return false
			}
		}
	}
	return true
}

func itemMatches(items []noderest.FieldItem, want string) bool {
	for _, item := range items {
		if item.Value == want || (item.URI != "" && item.URI == want) {
			return true
		}
		if item.TargetID != 0 && strconv.FormatInt(item.TargetID, 10) == want {
			return true
		}
	}
	return false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func copyEntity(e *noderest.Entity) *noderest.Entity {
	out := *e
	out.Fields = make([]noderest.Field, len(e.Fields))
	for i, f := range e.Fields {
		items := make([]noderest.FieldItem, len(f.Items))
		copy(items, f.Items)
		out.Fields[i] = noderest.Field{Name: f.Name, Items: items}
	}
	if e.Metatags != nil {
		out.Metatags = make(map[string]string, len(e.Metatags))
		for k, v := range e.Metatags {
			out.Metatags[k] = v
		}
	}
	return &out
}
