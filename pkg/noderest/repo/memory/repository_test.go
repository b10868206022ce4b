package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/node-rest-api/pkg/noderest"
	"github.com/tendant/node-rest-api/pkg/noderest/repo/memory"
	"github.com/tendant/node-rest-api/pkg/noderest/repo/repotest"
)

func TestMemoryRepository_Conformance(t *testing.T) {
	repotest.Run(t, func(t *testing.T) repotest.Store { return memory.New() })
}

func def(t *testing.T, name, fieldType string, target noderest.EntityKind) noderest.FieldDefinition {
	t.Helper()
	d, err := noderest.NewFieldDefinition(name, fieldType, target)
	require.NoError(t, err)
	return d
}

func seed(t *testing.T) *memory.Repository {
	t.Helper()
	repo := memory.New()
	ctx := context.Background()

	require.NoError(t, repo.SetFieldDefinition(ctx, noderest.KindNode, "article",
		def(t, "field_color", "string", "")))
	require.NoError(t, repo.SetFieldDefinition(ctx, noderest.KindNode, "article",
		def(t, "field_tags", "entity_reference", noderest.KindTaxonomyTerm)))

	nodes := []*noderest.Entity{
		{Kind: noderest.KindNode, ID: 1, Bundle: "article", Label: "One", Status: true,
			Fields: []noderest.Field{
				{Name: "field_color", Items: []noderest.FieldItem{{Value: "red"}}},
				{Name: "field_tags", Items: []noderest.FieldItem{{TargetID: 7}}},
			}},
		{Kind: noderest.KindNode, ID: 2, Bundle: "article", Label: "Two", Status: false},
		{Kind: noderest.KindNode, ID: 3, Bundle: "article", Label: "Three", Status: true, Private: true,
			Fields: []noderest.Field{{Name: "field_color", Items: []noderest.FieldItem{{Value: "red"}}}}},
		{Kind: noderest.KindNode, ID: 4, Bundle: "page", Label: "Four", Status: true},
		{Kind: noderest.KindTaxonomyTerm, ID: 7, Bundle: "tags", Label: "Seven", Status: true},
	}
	for _, n := range nodes {
		require.NoError(t, repo.SaveEntity(ctx, n))
	}
	return repo
}

func TestMemoryRepository_EntityOperations(t *testing.T) {
	ctx := context.Background()
	repo := seed(t)

	t.Run("LoadEntity", func(t *testing.T) {
		e, err := repo.LoadEntity(ctx, noderest.KindNode, 1)
		require.NoError(t, err)
		assert.Equal(t, "One", e.Label)
		assert.Equal(t, "red", e.Value("field_color"))
	})

	t.Run("LoadEntityReturnsCopy", func(t *testing.T) {
		e, err := repo.LoadEntity(ctx, noderest.KindNode, 1)
		require.NoError(t, err)
		e.Fields[0].Items[0].Value = "blue"

		again, err := repo.LoadEntity(ctx, noderest.KindNode, 1)
		require.NoError(t, err)
		assert.Equal(t, "red", again.Value("field_color"))
	})

	t.Run("KindsAreSeparate", func(t *testing.T) {
		_, err := repo.LoadEntity(ctx, noderest.KindNode, 7)
		assert.ErrorIs(t, err, noderest.ErrEntityNotFound)
	})

	t.Run("SaveRejectsNonPositiveID", func(t *testing.T) {
		err := repo.SaveEntity(ctx, &noderest.Entity{Kind: noderest.KindNode})
		assert.Error(t, err)
	})

	t.Run("DeleteEntity", func(t *testing.T) {
		require.NoError(t, repo.DeleteEntity(ctx, noderest.KindNode, 2))
		_, err := repo.LoadEntity(ctx, noderest.KindNode, 2)
		assert.ErrorIs(t, err, noderest.ErrEntityNotFound)
		assert.NoError(t, repo.DeleteEntity(ctx, noderest.KindNode, 2))
	})
}

func TestMemoryRepository_LookupOperations(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()

	t.Run("AliasFallsBackToPath", func(t *testing.T) {
		require.NoError(t, repo.SetAlias(ctx, "/node/1", "/about"))

		alias, err := repo.AliasByPath(ctx, "/node/1")
		require.NoError(t, err)
		assert.Equal(t, "/about", alias)

		alias, err = repo.AliasByPath(ctx, "/node/2")
		require.NoError(t, err)
		assert.Equal(t, "/node/2", alias)
	})

	t.Run("Files", func(t *testing.T) {
		require.NoError(t, repo.SaveFile(ctx, &noderest.File{ID: 5, URI: "public://a.png"}))

		f, err := repo.LoadFile(ctx, 5)
		require.NoError(t, err)
		assert.Equal(t, "public://a.png", f.URI)

		_, err = repo.LoadFile(ctx, 6)
		assert.ErrorIs(t, err, noderest.ErrFileNotFound)
	})

	t.Run("FieldDefinitionsAreCopied", func(t *testing.T) {
		require.NoError(t, repo.SetFieldDefinition(ctx, noderest.KindNode, "page",
			def(t, "body", "text_with_summary", "")))

		defs, err := repo.FieldDefinitions(ctx, noderest.KindNode, "page")
		require.NoError(t, err)
		require.Contains(t, defs, "body")
		assert.Equal(t, noderest.FieldKindRichText, defs["body"].Kind)

		delete(defs, "body")
		defs, err = repo.FieldDefinitions(ctx, noderest.KindNode, "page")
		require.NoError(t, err)
		assert.Len(t, defs, 1)

		defs, err = repo.FieldDefinitions(ctx, noderest.KindNode, "missing")
		require.NoError(t, err)
		assert.Empty(t, defs)
	})
}

func TestMemoryRepository_Query(t *testing.T) {
	ctx := context.Background()
	repo := seed(t)

	privileged := func() noderest.Query {
		return repo.NewQuery(noderest.KindNode).AddMetaData(noderest.MetaAccount, noderest.PrivilegedAccount)
	}

	tests := []struct {
		name  string
		query noderest.Query
		want  []int64
	}{
		{"AllNodes", privileged(), []int64{1, 2, 3, 4}},
		{"ByType", privileged().Condition("type", "article"), []int64{1, 2, 3}},
		{"ByStatus", privileged().Condition("type", "article").Condition("status", true), []int64{1, 3}},
		{"ByStatusString", privileged().Condition("status", "0"), []int64{2}},
		{"ByNID", privileged().Condition("nid", "4"), []int64{4}},
		{"ByTitle", privileged().Condition("title", "Two"), []int64{2}},
		{"ByField", privileged().Condition("type", "article").Condition("field_color", "red"), []int64{1, 3}},
		{"ByReferenceTarget", privileged().Condition("field_tags", "7"), []int64{1}},
		{"HidesPrivate", repo.NewQuery(noderest.KindNode).Condition("field_color", "red"), []int64{1}},
		{"OtherKind", repo.NewQuery(noderest.KindTaxonomyTerm), []int64{7}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids, err := tt.query.Execute(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids)
		})
	}

	t.Run("NoMatchIsEmpty", func(t *testing.T) {
		ids, err := privileged().Condition("title", "Nope").Execute(ctx)
		require.NoError(t, err)
		assert.Empty(t, ids)
	})

	t.Run("UnknownField", func(t *testing.T) {
		_, err := privileged().Condition("field_nope", "x").Execute(ctx)
		assert.ErrorIs(t, err, noderest.ErrInvalidFilter)

		var qe *noderest.QueryError
		require.ErrorAs(t, err, &qe)
		assert.Equal(t, "field_nope", qe.Field)
	})

	t.Run("FieldNotOnBundle", func(t *testing.T) {
		_, err := privileged().Condition("type", "page").Condition("field_color", "red").Execute(ctx)
		assert.ErrorIs(t, err, noderest.ErrInvalidFilter)
	})

	t.Run("NonNumericNID", func(t *testing.T) {
		_, err := privileged().Condition("nid", "abc").Execute(ctx)
		assert.ErrorIs(t, err, noderest.ErrInvalidFilter)
	})

	t.Run("CancelledContext", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := privileged().Execute(cctx)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("MetaData", func(t *testing.T) {
		q := repo.NewQuery(noderest.KindNode).AddMetaData("k", "v").(*memory.Query)
		v, ok := q.MetaData("k")
		assert.True(t, ok)
		assert.Equal(t, "v", v)
	})
}
