package mapper

import (
	"regexp"
	"strings"
)

var slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a URL-safe key from a human-readable name: lower-case,
// trim, collapse runs of non-alphanumeric characters to a single hyphen,
// strip leading and trailing hyphens. Deterministic and idempotent; slug
// collisions between distinct names are resolved downstream by the entity
// store's uniqueness constraint, not here.
func Slugify(text string) string {
	s := strings.TrimSpace(strings.ToLower(text))
	s = slugInvalid.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
