package sqlquery

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/ohler55/ojg/oj"
)

// Schema creates the tables used by the SQL stores. It is valid for both
// Postgres and SQLite.
//
//go:embed schema.sql
var Schema string

// Statements splits Schema into individual statements.
func Statements() []string {
	var out []string
	for _, s := range strings.Split(Schema, ";") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// EncodeOptions serializes link options for the options column.
func EncodeOptions(opts map[string]any) string {
	if len(opts) == 0 {
		return ""
	}
	return oj.JSON(opts, &oj.Options{Sort: true})
}

// DecodeOptions parses the options column. Empty input yields nil.
func DecodeOptions(s string) (map[string]any, error) {
	if s == "" {
		return nil, nil
	}
	v, err := oj.ParseString(s)
	if err != nil {
		return nil, fmt.Errorf("decode link options: %w", err)
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("decode link options: expected object, got %T", v)
	}
	return m, nil
}
