package note

import (
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// NewID derives a stable document id from the human name given at creation
// time plus a random disambiguating seed, so two documents with the same
// name never collide.
func NewID(name string) string {
	slug := slugify(name)
	seed := strings.SplitN(uuid.NewString(), "-", 2)[0]
	if slug == "" {
		return seed
	}
	return slug + "-" + seed
}

func slugify(name string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteByte('-')
			lastDash = true
		}
	}
	return strings.Trim(b.String(), "-")
}
