package validation

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	nonSlugRuns = regexp.MustCompile(`[^a-z0-9]+`)
	slugRegex   = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)
)

const maxSlugLength = 120

var reservedSlugs = map[string]struct{}{
	"admin":      {},
	"api":        {},
	"auth":       {},
	"new":        {},
	"edit":       {},
	"submit":     {},
	"projects":   {},
	"categories": {},
	"tags":       {},
	"users":      {},
	"me":         {},
	"ws":         {},
	"swagger":    {},
	"metrics":    {},
	"health":     {},
	"login":      {},
	"signup":     {},
}

// Slugify lowercases title, collapses every run of characters outside [a-z0-9] into one
// hyphen and trims leading and trailing hyphens.
func Slugify(title string) string {
	s := nonSlugRuns.ReplaceAllString(strings.ToLower(title), "-")
	s = strings.Trim(s, "-")
	if len(s) > maxSlugLength {
		s = strings.TrimRight(s[:maxSlugLength], "-")
	}
	return s
}

// ValidateSlug validates slug format and reserved names.
func ValidateSlug(slug string) error {
	if slug == "" {
		return fmt.Errorf("title must contain at least one letter or digit")
	}
	if len(slug) > maxSlugLength || !slugRegex.MatchString(slug) {
		return fmt.Errorf("slug must contain only lowercase letters, numbers, and single hyphens")
	}
	if _, exists := reservedSlugs[slug]; exists {
		return fmt.Errorf("slug %q is reserved", slug)
	}
	return nil
}
