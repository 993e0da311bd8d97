package meta

import (
	"html"
	"regexp"
	"strings"
)

var (
	tagPattern   = regexp.MustCompile(`<[^>]*>`)
	spacePattern = regexp.MustCompile(`\s+`)
)

// Preview strips markup from content and returns its first n characters of
// plain text.
func Preview(content string, n int) string {
	plain := StripMarkup(content)
	runes := []rune(plain)
	if len(runes) <= n {
		return plain
	}
	return string(runes[:n])
}

// StripMarkup reduces rendered content to plain text: HTML tags removed,
// entities unescaped, whitespace collapsed.
func StripMarkup(content string) string {
	plain := tagPattern.ReplaceAllString(content, " ")
	plain = html.UnescapeString(plain)
	plain = spacePattern.ReplaceAllString(plain, " ")
	return strings.TrimSpace(plain)
}
