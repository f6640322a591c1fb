// Package validation holds input rules shared by the project and review services.
package validation

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Field limits for project submissions.
const (
	MaxTitleLength       = 100
	MaxTaglineLength     = 100
	MinDescriptionLength = 10
	MaxDescriptionLength = 2000
	MaxTechLabelLength   = 50
	MaxFeatureLength     = 200
	MaxTechStackItems    = 20
	MaxScreenshots       = 10
	MaxFeatures          = 20
)

// Review limits.
const (
	MinReviewBodyLength = 10
	MaxReviewBodyLength = 1000
	MinRating           = 1
	MaxRating           = 5
)

var versionRegex = regexp.MustCompile(`^\d+\.\d+\.\d+$`)

// Length checks s (trimmed) against [lo, hi] runes.
func Length(field, s string, lo, hi int) error {
	n := utf8.RuneCountInString(strings.TrimSpace(s))
	if n < lo || n > hi {
		if lo <= 1 {
			return fmt.Errorf("%s is required and must be at most %d characters", field, hi)
		}
		return fmt.Errorf("%s must be between %d and %d characters", field, lo, hi)
	}
	return nil
}

// OptionalURL accepts an empty string or an absolute http(s) URL.
func OptionalURL(field, raw string) error {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s must be a valid http(s) URL", field)
	}
	return nil
}

// Version accepts an empty string or an x.y.z version.
func Version(v string) error {
	if v == "" || versionRegex.MatchString(v) {
		return nil
	}
	return fmt.Errorf("version must be in format x.y.z")
}

// List checks item count and per-item length.
func List(field string, items []string, maxItems, maxLen int) error {
	if len(items) > maxItems {
		return fmt.Errorf("%s accepts at most %d items", field, maxItems)
	}
	for _, item := range items {
		if err := Length(field+" item", item, 1, maxLen); err != nil {
			return err
		}
	}
	return nil
}

// URLList checks item count and that every item is a valid URL.
func URLList(field string, items []string, maxItems int) error {
	if len(items) > maxItems {
		return fmt.Errorf("%s accepts at most %d items", field, maxItems)
	}
	for _, item := range items {
		if strings.TrimSpace(item) == "" {
			return fmt.Errorf("%s must not contain empty entries", field)
		}
		if err := OptionalURL(field, item); err != nil {
			return err
		}
	}
	return nil
}

// Rating checks a review rating.
func Rating(r int) error {
	if r < MinRating || r > MaxRating {
		return fmt.Errorf("rating must be between %d and %d", MinRating, MaxRating)
	}
	return nil
}

// ReviewBody checks a review body after trimming.
func ReviewBody(body string) error {
	return Length("review", body, MinReviewBodyLength, MaxReviewBodyLength)
}
