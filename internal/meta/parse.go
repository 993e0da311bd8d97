package meta

import "regexp"

var (
	linkPattern = regexp.MustCompile(`\[\[([^\[\]]+)\]\]`)
	tagPatternP = regexp.MustCompile(`(?:^|\s)#([\pL\pN][\pL\pN_-]*)`)
)

// defaultParser implements the built-in [[link]] and #hashtag syntax.
type defaultParser struct{}

// Default returns the built-in link/hashtag parser.
func Default() Parser { return defaultParser{} }

// Links returns the targets of [[...]] cross-links in order of first
// appearance, deduplicated.
func (defaultParser) Links(content string) []string {
	return extract(linkPattern, content)
}

// Tags returns the #hashtags in order of first appearance, deduplicated.
func (defaultParser) Tags(content string) []string {
	return extract(tagPatternP, content)
}

func extract(pattern *regexp.Regexp, content string) []string {
	out := []string{}
	seen := make(map[string]struct{})
	for _, m := range pattern.FindAllStringSubmatch(content, -1) {
		v := m[1]
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
