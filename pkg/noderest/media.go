package noderest

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
)

const (
	placeholderMarker = "[[{"
	defaultImageAlt   = "Entity image"
)

var (
	placeholderPattern = regexp.MustCompile(`(?s)\[\[\{.*?\}\]\]`)
	placeholderFID     = jp.MustParseString("$[0][0].fid")
)

// MediaRewriter replaces embedded media placeholders such as
// [[{"fid":"12","view_mode":"default"}]] with plain <img> tags.
type MediaRewriter struct {
	files FileStore
	urls  URLResolver
}

// NewMediaRewriter creates a rewriter resolving files through the given store
// and URL resolver.
func NewMediaRewriter(files FileStore, urls URLResolver) *MediaRewriter {
	return &MediaRewriter{files: files, urls: urls}
}

// Rewrite returns content with every resolvable placeholder replaced.
// Placeholders that fail to parse or point at missing files are left as is.
func (m *MediaRewriter) Rewrite(ctx context.Context, content string) (string, error) {
	if !strings.Contains(content, placeholderMarker) {
		return content, nil
	}

	for _, match := range placeholderPattern.FindAllString(content, -1) {
		fid, ok := placeholderFileID(match)
		if !ok {
			slog.Debug("Skipping unparseable media placeholder", "placeholder", match)
			continue
		}

		file, err := m.files.LoadFile(ctx, fid)
		if errors.Is(err, ErrFileNotFound) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("load placeholder file %d: %w", fid, err)
		}

		src, err := m.urls.PublicURL(ctx, file.URI)
		if errors.Is(err, ErrFileNotFound) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("resolve placeholder file %d: %w", fid, err)
		}

		content = replaceFirstFold(content, match, imageTag(src, imageAlt(file)))
	}

	return content, nil
}

func placeholderFileID(token string) (int64, bool) {
	doc, err := oj.ParseString(token)
	if err != nil {
		return 0, false
	}
	switch v := placeholderFID.First(doc).(type) {
	case int64:
		return v, v > 0
	case float64:
		return int64(v), v > 0
	case string:
		id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		return id, err == nil && id > 0
	default:
		return 0, false
	}
}

func imageAlt(f *File) string {
	if f.AltText != "" {
		return f.AltText
	}
	if f.ImageAltText != "" {
		return f.ImageAltText
	}
	return defaultImageAlt
}

func imageTag(src, alt string) string {
	return `<img src="` + html.EscapeString(src) + `" alt="` + html.EscapeString(alt) + `">`
}

// replaceFirstFold replaces the first case-insensitive occurrence of old.
func replaceFirstFold(s, old, replacement string) string {
	re, err := regexp.Compile(`(?i)` + regexp.QuoteMeta(old))
	if err != nil {
		return s
	}
	loc := re.FindStringIndex(s)
	if loc == nil {
		return s
	}
	return s[:loc[0]] + replacement + s[loc[1]:]
}
