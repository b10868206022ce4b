package view_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/node-rest-api/pkg/noderest"
	"github.com/tendant/node-rest-api/pkg/noderest/view"
)

func paragraph() *noderest.Entity {
	return &noderest.Entity{
		Kind: noderest.KindParagraph, ID: 10, Bundle: "text",
		Fields: []noderest.Field{
			{Name: "field_text", Items: []noderest.FieldItem{{Value: "<p>Hi</p>", Format: "basic_html"}}},
			{Name: "field_note", Items: []noderest.FieldItem{{Value: "a < b"}}},
			{Name: "field_empty"},
		},
	}
}

func TestTemplateRenderer_Fallback(t *testing.T) {
	r := view.New()
	got, err := r.View(context.Background(), paragraph(), "full")
	require.NoError(t, err)

	assert.Equal(t, `<div class="paragraph paragraph--type-text paragraph--view-mode-full">`+
		`<div class="field field--name-field_text"><div class="field__item"><p>Hi</p></div></div>`+
		`<div class="field field--name-field_note"><div class="field__item">a &lt; b</div></div>`+
		`</div>`, got)
}

func TestTemplateRenderer_ItemOutput(t *testing.T) {
	r := view.New()
	require.NoError(t, r.Register(noderest.KindBlockContent, "", "full",
		`{{range .Fields}}{{range .Items}}[{{.}}]{{end}}{{end}}`))

	e := &noderest.Entity{Kind: noderest.KindBlockContent, ID: 3, Bundle: "basic", Fields: []noderest.Field{
		{Name: "field_link", Items: []noderest.FieldItem{
			{URI: "https://example.com/?a=1&b=2", Title: "Ex"},
			{URI: "https://example.com/plain"},
		}},
		{Name: "field_ref", Items: []noderest.FieldItem{{TargetKind: noderest.KindMedia, TargetID: 4}}},
	}}

	got, err := r.View(context.Background(), e, "full")
	require.NoError(t, err)
	assert.Equal(t, `[<a href="https://example.com/?a=1&amp;b=2">Ex</a>]`+
		`[<a href="https://example.com/plain">https://example.com/plain</a>]`+
		`[media:4]`, got)
}

func TestTemplateRenderer_Lookup(t *testing.T) {
	ctx := context.Background()
	r := view.New()
	require.NoError(t, r.Register(noderest.KindParagraph, "", "full", `any {{.Bundle}}`))
	require.NoError(t, r.Register(noderest.KindParagraph, "text", "full", `text {{.ID}} {{.Label}}`))

	got, err := r.View(ctx, paragraph(), "full")
	require.NoError(t, err)
	assert.Equal(t, "text 10 ", got)

	other := paragraph()
	other.Bundle = "quote"
	got, err = r.View(ctx, other, "full")
	require.NoError(t, err)
	assert.Equal(t, "any quote", got)

	got, err = r.View(ctx, other, "teaser")
	require.NoError(t, err)
	assert.Contains(t, got, "paragraph--view-mode-teaser")
}

func TestTemplateRenderer_Errors(t *testing.T) {
	r := view.New()
	assert.Error(t, r.Register(noderest.KindParagraph, "", "full", `{{.Broken`))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.View(ctx, paragraph(), "full")
	assert.ErrorIs(t, err, context.Canceled)
}
