package controller

import (
	"strings"

	"github.com/mkoskin/chatter/src/storage"
)

const maxTitleLength = 48

// deriveTitle builds a chat title from the first user message: the first
// non-empty line, whitespace runs collapsed, truncated to 47 characters plus
// an ellipsis when it would exceed 48. Returns "" when nothing derivable.
func deriveTitle(text string) string {
	for _, line := range strings.Split(text, "\n") {
		title := strings.TrimSpace(strings.Join(strings.Fields(line), " "))
		if title == "" {
			continue
		}
		runes := []rune(title)
		if len(runes) > maxTitleLength {
			return string(runes[:maxTitleLength-1]) + "…"
		}
		return title
	}
	return ""
}

// titleNeedsDerivation reports whether a chat still carries its placeholder
// title.
func titleNeedsDerivation(title string) bool {
	return title == storage.DefaultChatTitle || strings.TrimSpace(title) == ""
}
