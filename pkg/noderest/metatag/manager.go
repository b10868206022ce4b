// Package metatag generates page metatags for nodes from global defaults,
// per-content-type defaults and per-node overrides. Values may contain
// tokens such as [node:title] which are replaced when elements are generated.
package metatag

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/tendant/node-rest-api/pkg/noderest"
)

// CanonicalURL is the tag rendered as <link rel="canonical" href="...">.
const CanonicalURL = "canonical_url"

// Config holds site settings and default tag patterns.
type Config struct {
	SiteName string
	SiteURL  string // absolute base URL without trailing slash

	// Global defaults apply to every node; Bundles override them per content type.
	Global  noderest.TagSet
	Bundles map[string]noderest.TagSet
}

// DefaultGlobalTags mirrors the usual out-of-the-box node defaults.
func DefaultGlobalTags() noderest.TagSet {
	return noderest.TagSet{
		CanonicalURL:   "[node:url]",
		"title":        "[node:title] | [site:name]",
		"description":  "[node:summary]",
		"og_title":     "[node:title]",
		"og_url":       "[node:url]",
		"og_site_name": "[site:name]",
	}
}

// Manager implements noderest.MetatagManager.
type Manager struct {
	config  Config
	aliases noderest.AliasResolver
}

// New creates a metatag manager. The alias resolver supplies [node:url].
func New(config Config, aliases noderest.AliasResolver) *Manager {
	config.SiteURL = strings.TrimSuffix(config.SiteURL, "/")
	if config.Global == nil {
		config.Global = DefaultGlobalTags()
	}
	return &Manager{config: config, aliases: aliases}
}

// DefaultTags merges global defaults, bundle defaults and node overrides, in
// that order of precedence from lowest to highest.
func (m *Manager) DefaultTags(ctx context.Context, node *noderest.Entity) (noderest.TagSet, error) {
	tags := make(noderest.TagSet)
	for k, v := range m.config.Global {
		tags[k] = v
	}
	for k, v := range m.config.Bundles[node.Bundle] {
		tags[k] = v
	}
	for k, v := range node.Metatags {
		tags[k] = v
	}
	return tags, nil
}

// GenerateRawElements resolves tokens and returns one element per non-empty
// tag, sorted by name.
func (m *Manager) GenerateRawElements(ctx context.Context, tags noderest.TagSet, node *noderest.Entity) ([]noderest.RawElement, error) {
	replacer, err := m.tokenReplacer(ctx, node)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(tags))
	for name := range tags {
		names = append(names, name)
	}
	sort.Strings(names)

	elements := make([]noderest.RawElement, 0, len(names))
	for _, name := range names {
		value := strings.TrimSpace(replacer.Replace(tags[name]))
		if value == "" {
			continue
		}
		elements = append(elements, noderest.RawElement{Name: name, Attributes: attributes(name, value)})
	}
	return elements, nil
}

func attributes(name, value string) map[string]string {
	switch {
	case name == CanonicalURL:
		return map[string]string{"rel": "canonical", "href": value}
	case strings.HasPrefix(name, "og_"):
		return map[string]string{"property": "og:" + strings.TrimPrefix(name, "og_"), "content": value}
	case strings.HasPrefix(name, "twitter_cards_"):
		return map[string]string{"name": "twitter:" + strings.TrimPrefix(name, "twitter_cards_"), "content": value}
	default:
		return map[string]string{"name": name, "content": value}
	}
}

const summaryLength = 200

func (m *Manager) tokenReplacer(ctx context.Context, node *noderest.Entity) (*strings.Replacer, error) {
	alias, err := m.aliases.AliasByPath(ctx, node.InternalPath())
	if err != nil {
		return nil, err
	}

	return strings.NewReplacer(
		"[node:title]", node.Label,
		"[node:nid]", strconv.FormatInt(node.ID, 10),
		"[node:content-type]", node.Bundle,
		"[node:url]", m.config.SiteURL+noderest.EncodeAliasPath(alias),
		"[node:summary]", summary(node),
		"[site:name]", m.config.SiteName,
		"[site:url]", m.config.SiteURL+"/",
	), nil
}

// summary returns the body text without markup, cut at a word boundary.
func summary(node *noderest.Entity) string {
	text := strings.Join(strings.Fields(stripTags(node.Value("body"))), " ")
	runes := []rune(text)
	if len(runes) <= summaryLength {
		return text
	}
	cut := string(runes[:summaryLength])
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return cut + "…"
}

func stripTags(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
			b.WriteByte(' ')
		case !inTag:
			b.WriteRune(r)
		}
	}
	return b.String()
}
