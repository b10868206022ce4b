package noderest

import (
	"net/url"
	"regexp"
	"strings"
)

// noisePattern matches CRLF and the two empty-paragraph fragments editors
// leave behind, in any letter case.
var noisePattern = regexp.MustCompile(`(?i)\r\n|<p>&nbsp;</p>|<p></p>`)

// StripNoise removes every CRLF, <p>&nbsp;</p> and <p></p> from s, case
// insensitively. Removal repeats until none remain, so the result is stable
// under a second call.
func StripNoise(s string) string {
	for {
		out := noisePattern.ReplaceAllString(s, "")
		if out == s {
			return out
		}
		s = out
	}
}

// EncodeAliasPath query-escapes an alias and restores path separators, so
// "/news/a b&c" becomes "/news/a+b%26c".
func EncodeAliasPath(alias string) string {
	return strings.ReplaceAll(url.QueryEscape(alias), "%2F", "/")
}
