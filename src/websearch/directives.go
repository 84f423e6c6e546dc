// Package websearch turns search directives embedded in user text into
// resolved search-result blocks injected ahead of the model call.
package websearch

import (
	"regexp"
	"strings"
)

var (
	bracketedDirective = regexp.MustCompile(`(?i)\[\[(?:search|web):([^\]]*)\]\]`)
	prefixDirective    = regexp.MustCompile(`(?is)^(?:search|web):\s*(.+)$`)
	whitespaceRuns     = regexp.MustCompile(`\s+`)
)

// ExtractDirectives pulls search directives out of raw user text. Bracketed
// forms ([[search:QUERY]], [[web:QUERY]]) are each replaced by a single
// space. When no bracketed form is present, a whole-message prefix form
// (search:QUERY / web:QUERY) yields one query and empties the text.
func ExtractDirectives(text string) (clean string, queries []string) {
	matches := bracketedDirective.FindAllStringSubmatch(text, -1)
	if len(matches) > 0 {
		for _, m := range matches {
			q := strings.TrimSpace(m[1])
			if q != "" {
				queries = append(queries, q)
			}
		}
		clean = bracketedDirective.ReplaceAllString(text, " ")
		clean = strings.TrimSpace(whitespaceRuns.ReplaceAllString(clean, " "))
		return clean, queries
	}

	if m := prefixDirective.FindStringSubmatch(strings.TrimSpace(text)); m != nil {
		q := strings.TrimSpace(m[1])
		if q != "" {
			return "", []string{q}
		}
	}

	return text, nil
}
