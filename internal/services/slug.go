package services

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	maxSlugLength   = 50
	maxSlugAttempts = 1000
	fallbackSlug    = "market"
)

// slugSpace matches the same characters as a JavaScript \s: RE2's ASCII set
// plus vertical tab, NBSP and the Unicode space separators.
const slugSpace = `\s\v\x{00A0}\x{1680}\x{2000}-\x{200A}\x{2028}\x{2029}\x{202F}\x{205F}\x{3000}\x{FEFF}`

var (
	slugStrip      = regexp.MustCompile(`[^a-z0-9` + slugSpace + `-]`)
	slugWhitespace = regexp.MustCompile(`[` + slugSpace + `]+`)
)

// Slugify derives a market slug from its question: lowercase, drop anything
// outside [a-z0-9 whitespace -], hyphenate whitespace runs, cut to 50 chars.
func Slugify(question string) string {
	slug := strings.ToLower(question)
	slug = slugStrip.ReplaceAllString(slug, "")
	slug = slugWhitespace.ReplaceAllString(slug, "-")
	if len(slug) > maxSlugLength {
		slug = slug[:maxSlugLength]
	}
	return slug
}

// slugCandidate returns the n-th probe for base: base, base-1, base-2, ...
func slugCandidate(base string, n int) string {
	if base == "" {
		base = fallbackSlug
	}
	if n == 0 {
		return base
	}
	return base + "-" + strconv.Itoa(n)
}
