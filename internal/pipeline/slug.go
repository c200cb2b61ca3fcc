package pipeline

import (
	"regexp"
	"strings"
)

const (
	// SlugFallback is substituted when a title reduces to nothing.
	SlugFallback = "unknown_recipe"

	slugMaxLength = 50
)

var (
	slugDisallowed = regexp.MustCompile(`[^a-zA-Z0-9\s-]+`)
	slugWhitespace = regexp.MustCompile(`\s+`)
)

// Slugify derives a filesystem-safe identifier from a recipe title:
// characters outside {alphanumeric, whitespace, hyphen} are stripped,
// hyphens are deleted, whitespace runs collapse to a single underscore,
// the result is trimmed, lowercased and truncated to 50 characters, and an
// empty result falls back to SlugFallback. The output alphabet is
// lowercase alphanumerics and underscores only.
func Slugify(title string) string {
	s := slugDisallowed.ReplaceAllString(title, "")
	s = strings.ReplaceAll(s, "-", "")
	s = slugWhitespace.ReplaceAllString(strings.TrimSpace(s), "_")
	s = strings.Trim(s, "_")
	s = strings.ToLower(s)
	if len(s) > slugMaxLength {
		s = strings.Trim(s[:slugMaxLength], "_")
	}
	if s == "" {
		return SlugFallback
	}
	return s
}
