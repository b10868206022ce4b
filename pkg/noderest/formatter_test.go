package noderest_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/node-rest-api/pkg/noderest"
)

type stubMetatags struct {
	elements []noderest.RawElement
}

func (s stubMetatags) DefaultTags(ctx context.Context, node *noderest.Entity) (noderest.TagSet, error) {
	return noderest.TagSet{}, nil
}

func (s stubMetatags) GenerateRawElements(ctx context.Context, tags noderest.TagSet, node *noderest.Entity) ([]noderest.RawElement, error) {
	return s.elements, nil
}

func TestFormatter_FormatOne_KeysAndOrder(t *testing.T) {
	f := newFixture(t)
	fm := f.formatter(t)

	for _, id := range []int64{1, 2} {
		rec, err := fm.FormatOne(context.Background(), id)
		require.NoError(t, err)

		keys := rec.Keys()
		require.Len(t, keys, 2+len(articleFields))
		assert.Equal(t, "nid", keys[0])
		assert.Equal(t, "path", keys[1])
		assert.Equal(t, articleFields, keys[2:])
	}
}

func TestFormatter_FormatOne_Values(t *testing.T) {
	f := newFixture(t)
	rec, err := f.formatter(t).FormatOne(context.Background(), 1)
	require.NoError(t, err)

	get := func(key string) any {
		v, ok := rec.Get(key)
		require.True(t, ok, "missing key %s", key)
		return v
	}

	assert.Equal(t, "1", get("nid"))
	assert.Equal(t, "/news/first+post", get("path"))
	assert.Equal(t, "First", get("title"))
	assert.Equal(t, "<p>Intro</p>", get("body"))
	assert.Equal(t, "Red,Blue", get("field_tags"))
	assert.Equal(t, "https://example.com/sites/default/files/images/cat.jpg", get("field_image"))
	assert.Equal(t, []noderest.LinkValue{{URI: "https://bitbucket.org", Title: "Code", Options: map[string]any{}}}, get("field_link"))
	assert.Equal(t, "", get("field_sections"))
}

func TestFormatter_FormatOne_UnaliasedPath(t *testing.T) {
	f := newFixture(t)
	rec, err := f.formatter(t).FormatOne(context.Background(), 2)
	require.NoError(t, err)

	path, _ := rec.Get("path")
	assert.Equal(t, "/node/2", path)
}

func TestFormatter_RenderedReferences(t *testing.T) {
	f := newFixture(t)
	rec, err := f.formatter(t).FormatOne(context.Background(), 2)
	require.NoError(t, err)

	v, _ := rec.Get("field_sections")
	sections, ok := v.([]string)
	require.True(t, ok, "expected []string, got %T", v)
	require.Len(t, sections, 2)

	for _, s := range sections {
		lower := strings.ToLower(s)
		assert.NotContains(t, lower, "\r\n")
		assert.NotContains(t, lower, "<p></p>")
		assert.NotContains(t, lower, "<p>&nbsp;</p>")
	}
	assert.Contains(t, sections[0], "<p>Hello</p>")
	assert.Contains(t, sections[0], "paragraph--type-text")
	assert.Contains(t, sections[1], `<img src="https://example.com/sites/default/files/images/cat.jpg" alt="A cat">`)
	assert.NotContains(t, sections[1], "[[{")

	tags, _ := rec.Get("field_tags")
	assert.Equal(t, "", tags)
	link, _ := rec.Get("field_link")
	assert.Equal(t, []noderest.LinkValue{}, link)
}

func TestFormatter_MixedReferencesKeepOnlyRendered(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.repo.SaveEntity(ctx, &noderest.Entity{
		Kind: noderest.KindNode, ID: 6, Bundle: "article", Label: "Mixed", Status: true,
		Fields: []noderest.Field{{Name: "field_tags", Items: []noderest.FieldItem{
			{TargetID: 1},
			{TargetKind: noderest.KindParagraph, TargetID: 10},
			{TargetID: 2},
		}}},
	}))

	rec, err := f.formatter(t, "field_tags").FormatOne(ctx, 6)
	require.NoError(t, err)

	v, _ := rec.Get("field_tags")
	list, ok := v.([]string)
	require.True(t, ok, "expected []string, got %T", v)
	assert.Len(t, list, 1)
	assert.Contains(t, list[0], "<p>Hello</p>")
}

func TestFormatter_MissingReferencesAndFiles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.repo.SaveEntity(ctx, &noderest.Entity{
		Kind: noderest.KindNode, ID: 7, Bundle: "article", Label: "Broken", Status: true,
		Fields: []noderest.Field{
			{Name: "field_tags", Items: []noderest.FieldItem{{TargetID: 99}, {TargetID: 1}, {TargetID: 0}}},
			{Name: "field_image", Items: []noderest.FieldItem{{TargetID: 555}}},
		},
	}))

	rec, err := f.formatter(t, "field_tags", "field_image").FormatOne(ctx, 7)
	require.NoError(t, err)

	tags, _ := rec.Get("field_tags")
	assert.Equal(t, "Red", tags)
	image, _ := rec.Get("field_image")
	assert.Equal(t, "", image)
}

func TestFormatter_UnsupportedFileSchemeFallsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.repo.SaveFile(ctx, &noderest.File{ID: 100, URI: "private://images/cat.jpg"}))

	rec, err := f.formatter(t, "field_image").FormatOne(ctx, 1)
	require.NoError(t, err)
	image, _ := rec.Get("field_image")
	assert.Equal(t, "", image)
}

func TestFormatter_CustomTermFormatter(t *testing.T) {
	f := newFixture(t)
	f.deps.TermFormatter = func(term *noderest.Entity) string {
		return "#" + strings.ToLower(term.Label)
	}

	rec, err := f.formatter(t, "field_tags").FormatOne(context.Background(), 1)
	require.NoError(t, err)

	tags, _ := rec.Get("field_tags")
	assert.Equal(t, "#red,#blue", tags)
}

func TestFormatter_UnknownField(t *testing.T) {
	f := newFixture(t)
	_, err := f.formatter(t, "title", "field_missing").FormatOne(context.Background(), 1)
	require.Error(t, err)

	assert.True(t, errors.Is(err, noderest.ErrUnknownField))
	var fieldErr *noderest.FieldError
	require.True(t, errors.As(err, &fieldErr))
	assert.Equal(t, "field_missing", fieldErr.Field)
	var nodeErr *noderest.NodeError
	require.True(t, errors.As(err, &nodeErr))
	assert.Equal(t, int64(1), nodeErr.NodeID)
}

func TestFormatter_VanishedNode(t *testing.T) {
	f := newFixture(t)
	rec, err := f.formatter(t).FormatOne(context.Background(), 999)
	require.NoError(t, err)

	require.Equal(t, 2+len(articleFields), rec.Len())
	nid, _ := rec.Get("nid")
	assert.Equal(t, "999", nid)
	path, _ := rec.Get("path")
	assert.Equal(t, "/node/999", path)
	for _, name := range articleFields {
		v, _ := rec.Get(name)
		assert.Equal(t, "", v, name)
	}
}

func TestFormatter_Metatags(t *testing.T) {
	f := newFixture(t)
	f.deps.Metatags = stubMetatags{elements: []noderest.RawElement{
		{Name: "canonical_url", Attributes: map[string]string{"rel": "canonical", "href": "https://example.com/news/first"}},
		{Name: "description", Attributes: map[string]string{"name": "description", "content": "Intro"}},
		{Name: "og_image", Attributes: map[string]string{"property": "og:image"}},
		{Name: "canonical_shortlink", Attributes: map[string]string{"href": "https://example.com/node/1"}},
	}}

	rec, err := f.formatter(t, "title").FormatOne(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, []string{"nid", "path", "title", "meta_canonical_url", "meta_description"}, rec.Keys())
	v, _ := rec.Get("meta_canonical_url")
	assert.Equal(t, "https://example.com/news/first", v)
	v, _ = rec.Get("meta_description")
	assert.Equal(t, "Intro", v)
}

func TestFormatter_FormatMany(t *testing.T) {
	f := newFixture(t)
	fm := f.formatter(t, "title")

	recs, err := fm.FormatMany(context.Background(), []int64{2, 1, 999})
	require.NoError(t, err)
	require.Len(t, recs, 3)

	var nids []any
	for _, r := range recs {
		nid, _ := r.Get("nid")
		nids = append(nids, nid)
	}
	assert.Equal(t, []any{"2", "1", "999"}, nids)

	empty, err := fm.FormatMany(context.Background(), nil)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestFormatter_FormatManyStopsOnError(t *testing.T) {
	f := newFixture(t)
	_, err := f.formatter(t, "field_missing").FormatMany(context.Background(), []int64{1, 2})
	assert.ErrorIs(t, err, noderest.ErrUnknownField)
}

func TestOutputRecord_MarshalJSONKeepsOrder(t *testing.T) {
	f := newFixture(t)
	rec, err := f.formatter(t, "title", "field_tags").FormatOne(context.Background(), 1)
	require.NoError(t, err)

	b, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Equal(t, `{"nid":"1","path":"/news/first+post","title":"First","field_tags":"Red,Blue"}`, string(b))
}

func TestNewFormatter_InvalidConfig(t *testing.T) {
	f := newFixture(t)
	for _, cfg := range []noderest.FormatterConfig{
		{ContentType: "", Fields: []string{"title"}},
		{ContentType: "article", Fields: []string{"nid"}},
		{ContentType: "article", Fields: []string{"path"}},
		{ContentType: "article", Fields: []string{"title", "title"}},
		{ContentType: "article", Fields: []string{""}},
	} {
		_, err := noderest.NewFormatter(context.Background(), f.deps, cfg)
		assert.ErrorIs(t, err, noderest.ErrInvalidConfig, "%+v", cfg)
	}
}

func TestNewFormatter_RequiresRenderer(t *testing.T) {
	f := newFixture(t)
	f.deps.Renderer = nil
	_, err := noderest.NewFormatter(context.Background(), f.deps, noderest.FormatterConfig{ContentType: "article"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "renderer is required")
}
