package service

import (
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"showcase/internal/models"
)

const (
	spamRecentReviewLimit = 5
	spamCapsRatio         = 0.3
	spamBangRuns          = 2
	spamNewAccountAge     = 24 * time.Hour
	spamThreshold         = 2
)

var (
	bangRun         = regexp.MustCompile(`!{2,}`)
	promotionalWord = regexp.MustCompile(`(?i)\b(buy|sell|click|free|money|win|prize)\b`)
)

// SpamInput is everything the spam heuristic looks at.
type SpamInput struct {
	Body          string
	RecentReviews int64
	Author        *models.User
	Now           time.Time
}

// SpamIndicators lists which heuristics fired for a review.
type SpamIndicators struct {
	RecentReviews bool
	ExcessiveCaps bool
	Exclamations  bool
	Promotional   bool
	NewAccount    bool
	EmptyProfile  bool
}

// Count returns the number of indicators that fired.
func (s SpamIndicators) Count() int {
	n := 0
	for _, hit := range []bool{s.RecentReviews, s.ExcessiveCaps, s.Exclamations, s.Promotional, s.NewAccount, s.EmptyProfile} {
		if hit {
			n++
		}
	}
	return n
}

// EvaluateSpam runs every heuristic against in.
func EvaluateSpam(in SpamInput) SpamIndicators {
	ind := SpamIndicators{
		RecentReviews: in.RecentReviews > spamRecentReviewLimit,
		ExcessiveCaps: upperRatio(in.Body) > spamCapsRatio,
		Exclamations:  len(bangRun.FindAllString(in.Body, -1)) >= spamBangRuns,
		Promotional:   promotionalWord.MatchString(in.Body),
	}
	if in.Author != nil {
		ind.NewAccount = in.Author.CreatedAt.After(in.Now.Add(-spamNewAccountAge))
		ind.EmptyProfile = strings.TrimSpace(in.Author.Bio) == "" && len(in.Author.SocialLinks) == 0
	}
	return ind
}

// IsSpam reports whether enough indicators fired to flag the review for moderators.
func IsSpam(in SpamInput) bool {
	return EvaluateSpam(in).Count() >= spamThreshold
}

func upperRatio(s string) float64 {
	total := utf8.RuneCountInString(s)
	if total == 0 {
		return 0
	}
	upper := 0
	for _, r := range s {
		if unicode.IsUpper(r) {
			upper++
		}
	}
	return float64(upper) / float64(total)
}
