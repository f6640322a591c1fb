package service

import (
	"math"
	"sort"

	"showcase/internal/models"
)

// SortMode orders a project's reviews.
type SortMode string

const (
	SortRecent  SortMode = "recent"
	SortRating  SortMode = "rating"
	SortHelpful SortMode = "helpful"
)

// ParseSortMode maps a query value to a SortMode. Empty means recent.
func ParseSortMode(s string) (SortMode, error) {
	switch SortMode(s) {
	case "":
		return SortRecent, nil
	case SortRecent, SortRating, SortHelpful:
		return SortMode(s), nil
	}
	return "", models.NewValidationError("sort must be one of recent, rating, helpful")
}

const wilsonZ = 1.96

// WilsonScore is the lower bound of the 95% Wilson confidence interval for
// positive successes out of n trials. It is 0 when n is 0.
func WilsonScore(positive, n int64) float64 {
	if n <= 0 {
		return 0
	}
	nf := float64(n)
	p := float64(positive) / nf
	z2 := wilsonZ * wilsonZ
	return (p + z2/(2*nf) - wilsonZ*math.Sqrt((p*(1-p)+z2/(4*nf))/nf)) / (1 + z2/nf)
}

func helpfulness(r *models.Review) float64 {
	return WilsonScore(r.HelpfulCount, r.HelpfulCount+r.AbuseCount)
}

// RankReviews sorts reviews in place by mode. Ties fall back to newest first.
func RankReviews(reviews []models.Review, mode SortMode) {
	newer := func(a, b *models.Review) bool {
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	}

	var less func(a, b *models.Review) bool
	switch mode {
	case SortRating:
		less = func(a, b *models.Review) bool {
			if a.Rating != b.Rating {
				return a.Rating > b.Rating
			}
			return newer(a, b)
		}
	case SortHelpful:
		less = func(a, b *models.Review) bool {
			sa, sb := helpfulness(a), helpfulness(b)
			if sa != sb {
				return sa > sb
			}
			return newer(a, b)
		}
	default:
		less = newer
	}

	sort.SliceStable(reviews, func(i, j int) bool {
		return less(&reviews[i], &reviews[j])
	})
}
