package noderest

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// Service lists formatted nodes of a content type.
type Service interface {
	// ListNodes runs a filtered query for published nodes of contentType and
	// formats every result.
	ListNodes(ctx context.Context, contentType string, filter QueryFilter) ([]*OutputRecord, error)

	// BuildQuery returns the query ListNodes would execute, including the
	// alterer's changes.
	BuildQuery(contentType string, filter QueryFilter) Query

	// NewFormatter creates a Formatter for a registered content type.
	NewFormatter(ctx context.Context, contentType string) (*Formatter, error)

	// ContentTypes returns the content types that can be listed.
	ContentTypes() []string
}

// service implements the Service interface
type service struct {
	queries  QueryFactory
	deps     Dependencies
	registry *Registry
	alter    QueryAlterer
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRepository wires every store capability from a single repository
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.queries = repo
		s.deps.Entities = repo
		s.deps.FieldDefinitions = repo
		s.deps.Aliases = repo
		s.deps.Files = repo
	}
}

// WithQueryFactory sets the query factory
func WithQueryFactory(q QueryFactory) Option {
	return func(s *service) {
		s.queries = q
	}
}

// WithEntityLoader sets the entity loader
func WithEntityLoader(l EntityLoader) Option {
	return func(s *service) {
		s.deps.Entities = l
	}
}

// WithFieldDefinitions sets the field definition provider
func WithFieldDefinitions(p FieldDefinitionProvider) Option {
	return func(s *service) {
		s.deps.FieldDefinitions = p
	}
}

// WithAliasResolver sets the alias resolver
func WithAliasResolver(a AliasResolver) Option {
	return func(s *service) {
		s.deps.Aliases = a
	}
}

// WithFileStore sets the file store
func WithFileStore(fs FileStore) Option {
	return func(s *service) {
		s.deps.Files = fs
	}
}

// WithURLResolver sets how file URIs become public URLs
func WithURLResolver(u URLResolver) Option {
	return func(s *service) {
		s.deps.URLs = u
	}
}

// WithRenderer sets the renderer used for referenced entities
func WithRenderer(r Renderer) Option {
	return func(s *service) {
		s.deps.Renderer = r
	}
}

// WithMetatagManager sets the metatag manager
func WithMetatagManager(m MetatagManager) Option {
	return func(s *service) {
		s.deps.Metatags = m
	}
}

// WithTermFormatter overrides how taxonomy terms are rendered in reference fields
func WithTermFormatter(tf TermFormatter) Option {
	return func(s *service) {
		s.deps.TermFormatter = tf
	}
}

// WithQueryAlterer installs a hook run on every query before execution
func WithQueryAlterer(a QueryAlterer) Option {
	return func(s *service) {
		s.alter = a
	}
}

// WithRegistry sets the content type registry
func WithRegistry(r *Registry) Option {
	return func(s *service) {
		s.registry = r
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{alter: NoopQueryAlterer}

	for _, option := range options {
		option(s)
	}

	if s.queries == nil {
		return nil, errors.New("query factory is required")
	}
	if err := s.deps.validate(); err != nil {
		return nil, err
	}
	if s.registry == nil {
		r, err := NewRegistry(DefaultFormatterConfigs()...)
		if err != nil {
			return nil, err
		}
		s.registry = r
	}
	if s.alter == nil {
		s.alter = NoopQueryAlterer
	}

	return s, nil
}

func (s *service) ContentTypes() []string {
	return s.registry.ContentTypes()
}

func (s *service) BuildQuery(contentType string, filter QueryFilter) Query {
	q := s.queries.NewQuery(KindNode).
		Condition(FieldType, contentType).
		Condition(FieldStatus, true).
		AddMetaData(MetaAccount, PrivilegedAccount)

	fields := make([]string, 0, len(filter))
	for field := range filter {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		q = q.Condition(field, filter[field])
	}

	return s.alter(q)
}

func (s *service) NewFormatter(ctx context.Context, contentType string) (*Formatter, error) {
	config, ok := s.registry.Lookup(contentType)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownContentType, contentType)
	}
	return NewFormatter(ctx, s.deps, config)
}

func (s *service) ListNodes(ctx context.Context, contentType string, filter QueryFilter) ([]*OutputRecord, error) {
	formatter, err := s.NewFormatter(ctx, contentType)
	if err != nil {
		return nil, err
	}

	ids, err := s.BuildQuery(contentType, filter).Execute(ctx)
	if err != nil {
		return nil, err
	}

	return formatter.FormatMany(ctx, ids)
}
