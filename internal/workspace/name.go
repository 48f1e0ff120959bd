package workspace

import (
	"regexp"
	"strings"
)

var (
	disallowedNameChars = regexp.MustCompile(`[^a-zA-Z0-9\-_\s]`)
	whitespaceRegex     = regexp.MustCompile(`\s+`)
)

// SanitizeName strips characters outside [A-Za-z0-9-_ whitespace] and trims.
// An empty result means the name is invalid.
func SanitizeName(name string) string {
	return strings.TrimSpace(disallowedNameChars.ReplaceAllString(name, ""))
}

// Slug turns a sanitized name into a directory name:
// whitespace runs become "-" and the result is lowercased.
func Slug(name string) string {
	return strings.ToLower(whitespaceRegex.ReplaceAllString(name, "-"))
}

// sameName reports whether two names collide. Uniqueness is case-insensitive.
func sameName(a, b string) bool {
	return strings.EqualFold(a, b)
}
