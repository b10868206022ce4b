package noderest_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tendant/node-rest-api/pkg/noderest"
	"github.com/tendant/node-rest-api/pkg/noderest/files"
	"github.com/tendant/node-rest-api/pkg/noderest/repo/memory"
	"github.com/tendant/node-rest-api/pkg/noderest/view"
)

const siteURL = "https://example.com"

// articleFields is the formatter configuration used by most tests.
var articleFields = []string{"title", "body", "field_tags", "field_image", "field_link", "field_sections"}

type fixture struct {
	repo *memory.Repository
	deps noderest.Dependencies
}

func mustDef(t *testing.T, name, fieldType string, target noderest.EntityKind) noderest.FieldDefinition {
	t.Helper()
	def, err := noderest.NewFieldDefinition(name, fieldType, target)
	require.NoError(t, err)
	return def
}

// newFixture builds a memory store with two published articles, one
// unpublished article, one private article, two terms, a paragraph and an image.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	repo := memory.New()

	for _, def := range []noderest.FieldDefinition{
		mustDef(t, "title", "string", ""),
		mustDef(t, "body", "text_with_summary", ""),
		mustDef(t, "field_tags", "entity_reference", noderest.KindTaxonomyTerm),
		mustDef(t, "field_image", "image", ""),
		mustDef(t, "field_link", "link", ""),
		mustDef(t, "field_sections", "entity_reference_revisions", noderest.KindParagraph),
		mustDef(t, "field_color", "list_string", ""),
	} {
		require.NoError(t, repo.SetFieldDefinition(ctx, noderest.KindNode, "article", def))
	}

	entities := []*noderest.Entity{
		{Kind: noderest.KindTaxonomyTerm, ID: 1, Bundle: "tags", Label: "Red", Status: true},
		{Kind: noderest.KindTaxonomyTerm, ID: 2, Bundle: "tags", Label: "Blue", Status: true},
		{
			Kind: noderest.KindParagraph, ID: 10, Bundle: "text", Status: true,
			Fields: []noderest.Field{{Name: "field_text", Items: []noderest.FieldItem{
				{Value: "<p>Hello</p>\r\n<P></P>", Format: "basic_html"},
			}}},
		},
		{
			Kind: noderest.KindParagraph, ID: 11, Bundle: "text", Status: true,
			Fields: []noderest.Field{{Name: "field_text", Items: []noderest.FieldItem{
				{Value: `<p>See [[{"fid":"100","view_mode":"default"}]]</p>`, Format: "basic_html"},
			}}},
		},
		{
			Kind: noderest.KindNode, ID: 1, Bundle: "article", Label: "First", Status: true,
			Fields: []noderest.Field{
				{Name: "body", Items: []noderest.FieldItem{{Value: "<p>Intro</p>\r\n<p>&nbsp;</p>", Format: "basic_html"}}},
				{Name: "field_tags", Items: []noderest.FieldItem{{TargetID: 1}, {TargetID: 2}}},
				{Name: "field_image", Items: []noderest.FieldItem{{TargetID: 100}}},
				{Name: "field_link", Items: []noderest.FieldItem{{URI: "https://bitbucket.org", Title: "Code"}}},
				{Name: "field_color", Items: []noderest.FieldItem{{Value: "red"}}},
			},
		},
		{
			Kind: noderest.KindNode, ID: 2, Bundle: "article", Label: "Second", Status: true,
			Fields: []noderest.Field{
				{Name: "field_sections", Items: []noderest.FieldItem{{TargetID: 10}, {TargetID: 11}}},
				{Name: "field_color", Items: []noderest.FieldItem{{Value: "blue"}}},
			},
		},
		{
			Kind: noderest.KindNode, ID: 3, Bundle: "article", Label: "Draft", Status: false,
		},
		{
			Kind: noderest.KindNode, ID: 4, Bundle: "article", Label: "Members only", Status: true, Private: true,
			Fields: []noderest.Field{
				{Name: "field_color", Items: []noderest.FieldItem{{Value: "red"}}},
			},
		},
		{
			Kind: noderest.KindNode, ID: 5, Bundle: "page", Label: "About", Status: true,
		},
	}
	for _, e := range entities {
		require.NoError(t, repo.SaveEntity(ctx, e))
	}

	require.NoError(t, repo.SaveFile(ctx, &noderest.File{ID: 100, URI: "public://images/cat.jpg", AltText: "A cat"}))
	require.NoError(t, repo.SetAlias(ctx, "/node/1", "/news/first post"))

	urls := files.NewRouter().Register("public", files.NewPublicStrategy(siteURL, ""))

	return &fixture{
		repo: repo,
		deps: noderest.Dependencies{
			Entities:         repo,
			FieldDefinitions: repo,
			Aliases:          repo,
			Files:            repo,
			URLs:             urls,
			Renderer:         view.New(),
			Metatags:         noderest.NewNoopMetatagManager(),
		},
	}
}

func (f *fixture) formatter(t *testing.T, fields ...string) *noderest.Formatter {
	t.Helper()
	if len(fields) == 0 {
		fields = articleFields
	}
	fm, err := noderest.NewFormatter(context.Background(), f.deps, noderest.FormatterConfig{
		ContentType: "article",
		Fields:      fields,
	})
	require.NoError(t, err)
	return fm
}

func (f *fixture) service(t *testing.T, opts ...noderest.Option) noderest.Service {
	t.Helper()
	base := []noderest.Option{
		noderest.WithRepository(f.repo),
		noderest.WithURLResolver(f.deps.URLs),
		noderest.WithRenderer(f.deps.Renderer),
	}
	svc, err := noderest.New(append(base, opts...)...)
	require.NoError(t, err)
	return svc
}
