// Package repotest holds the behaviour every noderest store must share.
package repotest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/node-rest-api/pkg/noderest"
)

// Store is a repository that can also be written to.
type Store interface {
	noderest.Repository
	SaveEntity(ctx context.Context, entity *noderest.Entity) error
	SetFieldDefinition(ctx context.Context, kind noderest.EntityKind, bundle string, def noderest.FieldDefinition) error
	SetAlias(ctx context.Context, path, alias string) error
	SaveFile(ctx context.Context, file *noderest.File) error
}

// Seed loads a small article site into s.
func Seed(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	defs := []struct {
		bundle, name, fieldType string
		target                  noderest.EntityKind
	}{
		{"article", "body", "text_with_summary", ""},
		{"article", "field_color", "string", ""},
		{"article", "field_tags", "entity_reference", noderest.KindTaxonomyTerm},
		{"article", "field_link", "link", ""},
		{"article", "field_image", "image", ""},
		{"page", "body", "text_with_summary", ""},
	}
	for _, d := range defs {
		def, err := noderest.NewFieldDefinition(d.name, d.fieldType, d.target)
		require.NoError(t, err)
		require.NoError(t, s.SetFieldDefinition(ctx, noderest.KindNode, d.bundle, def))
	}

	entities := []*noderest.Entity{
		{Kind: noderest.KindTaxonomyTerm, ID: 7, Bundle: "tags", Label: "Red", Status: true},
		{Kind: noderest.KindNode, ID: 1, Bundle: "article", Label: "One", Status: true,
			Metatags: map[string]string{"description": "First"},
			Fields: []noderest.Field{
				{Name: "body", Items: []noderest.FieldItem{{Value: "<p>Body</p>", Format: "basic_html"}}},
				{Name: "field_color", Items: []noderest.FieldItem{{Value: "red"}}},
				{Name: "field_tags", Items: []noderest.FieldItem{
					{TargetKind: noderest.KindTaxonomyTerm, TargetID: 7},
					{TargetKind: noderest.KindTaxonomyTerm, TargetID: 8},
				}},
				{Name: "field_link", Items: []noderest.FieldItem{{
					URI: "https://example.com", Title: "Example",
					Options: map[string]any{"attributes": map[string]any{"target": "_blank"}},
				}}},
			}},
		{Kind: noderest.KindNode, ID: 2, Bundle: "article", Label: "Two", Status: false},
		{Kind: noderest.KindNode, ID: 3, Bundle: "article", Label: "Three", Status: true, Private: true,
			Fields: []noderest.Field{{Name: "field_color", Items: []noderest.FieldItem{{Value: "red"}}}}},
		{Kind: noderest.KindNode, ID: 4, Bundle: "page", Label: "Four", Status: true},
	}
	for _, e := range entities {
		require.NoError(t, s.SaveEntity(ctx, e))
	}

	require.NoError(t, s.SetAlias(ctx, "/node/1", "/news/one"))
	require.NoError(t, s.SaveFile(ctx, &noderest.File{ID: 100, URI: "public://cat.jpg", Filename: "cat.jpg", MimeType: "image/jpeg", AltText: "A cat"}))
}

// Run exercises a freshly created, empty store.
func Run(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()
	s := newStore(t)
	Seed(t, s)

	t.Run("LoadEntity", func(t *testing.T) {
		e, err := s.LoadEntity(ctx, noderest.KindNode, 1)
		require.NoError(t, err)
		assert.Equal(t, "article", e.Bundle)
		assert.Equal(t, "One", e.Label)
		assert.True(t, e.Status)
		assert.Equal(t, "<p>Body</p>", e.Value("body"))
		assert.Equal(t, "basic_html", e.Get("body")[0].Format)
		assert.Equal(t, map[string]string{"description": "First"}, e.Metatags)

		tags := e.Get("field_tags")
		require.Len(t, tags, 2)
		assert.Equal(t, int64(7), tags[0].TargetID)
		assert.Equal(t, int64(8), tags[1].TargetID)
		assert.Equal(t, noderest.KindTaxonomyTerm, tags[0].TargetKind)

		link := e.Get("field_link")
		require.Len(t, link, 1)
		assert.Equal(t, "https://example.com", link[0].URI)
		assert.Equal(t, "Example", link[0].Title)
		assert.Equal(t, map[string]any{"attributes": map[string]any{"target": "_blank"}}, link[0].Options)
	})

	t.Run("LoadEntityNotFound", func(t *testing.T) {
		_, err := s.LoadEntity(ctx, noderest.KindNode, 99)
		assert.ErrorIs(t, err, noderest.ErrEntityNotFound)

		_, err = s.LoadEntity(ctx, noderest.KindNode, 7)
		assert.ErrorIs(t, err, noderest.ErrEntityNotFound)
	})

	t.Run("FieldDefinitions", func(t *testing.T) {
		defs, err := s.FieldDefinitions(ctx, noderest.KindNode, "article")
		require.NoError(t, err)
		assert.Len(t, defs, 5)
		assert.Equal(t, noderest.FieldKindEntityReference, defs["field_tags"].Kind)
		assert.Equal(t, noderest.KindTaxonomyTerm, defs["field_tags"].TargetKind)
		assert.Equal(t, noderest.FieldKindLink, defs["field_link"].Kind)

		defs, err = s.FieldDefinitions(ctx, noderest.KindNode, "missing")
		require.NoError(t, err)
		assert.Empty(t, defs)
	})

	t.Run("AliasByPath", func(t *testing.T) {
		alias, err := s.AliasByPath(ctx, "/node/1")
		require.NoError(t, err)
		assert.Equal(t, "/news/one", alias)

		alias, err = s.AliasByPath(ctx, "/node/4")
		require.NoError(t, err)
		assert.Equal(t, "/node/4", alias)
	})

	t.Run("LoadFile", func(t *testing.T) {
		f, err := s.LoadFile(ctx, 100)
		require.NoError(t, err)
		assert.Equal(t, "public://cat.jpg", f.URI)
		assert.Equal(t, "A cat", f.AltText)

		_, err = s.LoadFile(ctx, 101)
		assert.ErrorIs(t, err, noderest.ErrFileNotFound)
	})

	t.Run("SaveEntityReplacesFields", func(t *testing.T) {
		require.NoError(t, s.SaveEntity(ctx, &noderest.Entity{
			Kind: noderest.KindNode, ID: 5, Bundle: "page", Label: "Five", Status: true,
			Fields: []noderest.Field{{Name: "body", Items: []noderest.FieldItem{{Value: "a"}}}},
		}))
		require.NoError(t, s.SaveEntity(ctx, &noderest.Entity{
			Kind: noderest.KindNode, ID: 5, Bundle: "page", Label: "Five again", Status: false,
		}))

		e, err := s.LoadEntity(ctx, noderest.KindNode, 5)
		require.NoError(t, err)
		assert.Equal(t, "Five again", e.Label)
		assert.Empty(t, e.Get("body"))
	})

	privileged := func() noderest.Query {
		return s.NewQuery(noderest.KindNode).AddMetaData(noderest.MetaAccount, noderest.PrivilegedAccount)
	}

	queries := []struct {
		name  string
		query noderest.Query
		want  []int64
	}{
		{"QueryPublishedArticles", privileged().Condition("type", "article").Condition("status", true), []int64{1, 3}},
		{"QueryUnpublished", privileged().Condition("type", "article").Condition("status", false), []int64{2}},
		{"QueryStatusAsText", privileged().Condition("type", "article").Condition("status", "true"), []int64{1, 3}},
		{"QueryStatusAsDigit", privileged().Condition("type", "article").Condition("status", "0"), []int64{2}},
		{"QueryByField", privileged().Condition("type", "article").Condition("field_color", "red"), []int64{1, 3}},
		{"QueryByReference", privileged().Condition("type", "article").Condition("field_tags", "7"), []int64{1}},
		{"QueryByLinkURI", privileged().Condition("field_link", "https://example.com"), []int64{1}},
		{"QueryByNIDAndTitle", privileged().Condition("nid", "4").Condition("title", "Four"), []int64{4}},
		{"QueryHidesPrivate", s.NewQuery(noderest.KindNode).Condition("type", "article").Condition("status", true), []int64{1}},
	}
	for _, tt := range queries {
		t.Run(tt.name, func(t *testing.T) {
			ids, err := tt.query.Execute(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids)
		})
	}

	t.Run("QueryNoMatch", func(t *testing.T) {
		ids, err := privileged().Condition("type", "article").Condition("field_color", "green").Execute(ctx)
		require.NoError(t, err)
		assert.Empty(t, ids)
	})

	t.Run("QueryUnknownField", func(t *testing.T) {
		_, err := privileged().Condition("type", "article").Condition("field_nope", "x").Execute(ctx)
		assert.ErrorIs(t, err, noderest.ErrInvalidFilter)
	})

	t.Run("QueryFieldOnOtherBundle", func(t *testing.T) {
		_, err := privileged().Condition("type", "page").Condition("field_color", "red").Execute(ctx)
		assert.ErrorIs(t, err, noderest.ErrInvalidFilter)
	})

	t.Run("QueryInvalidStatus", func(t *testing.T) {
		_, err := privileged().Condition("status", "published").Execute(ctx)
		assert.ErrorIs(t, err, noderest.ErrInvalidFilter)
	})

	t.Run("QueryInvalidNID", func(t *testing.T) {
		_, err := privileged().Condition("nid", "one").Execute(ctx)
		assert.ErrorIs(t, err, noderest.ErrInvalidFilter)
	})
}
