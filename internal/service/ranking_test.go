package service

import (
	"testing"
	"time"

	"showcase/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(reviews []models.Review) []uint {
	out := make([]uint, len(reviews))
	for i, r := range reviews {
		out[i] = r.ID
	}
	return out
}

func TestWilsonScore(t *testing.T) {
	assert.Zero(t, WilsonScore(0, 0))
	assert.InDelta(t, 0.7225, WilsonScore(10, 10), 0.001)
	assert.InDelta(t, 0.0, WilsonScore(0, 10), 1e-9)
	assert.Greater(t, WilsonScore(100, 100), WilsonScore(10, 10), "more evidence ranks higher")
	assert.Greater(t, WilsonScore(9, 10), WilsonScore(1, 1))
}

func TestParseSortMode(t *testing.T) {
	mode, err := ParseSortMode("")
	require.NoError(t, err)
	assert.Equal(t, SortRecent, mode)

	mode, err = ParseSortMode("helpful")
	require.NoError(t, err)
	assert.Equal(t, SortHelpful, mode)

	_, err = ParseSortMode("oldest")
	assert.True(t, models.HasCode(err, models.CodeValidation))
}

func TestRankReviews(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fresh := func() []models.Review {
		return []models.Review{
			{ID: 1, Rating: 3, CreatedAt: base, HelpfulCount: 10},
			{ID: 2, Rating: 5, CreatedAt: base.Add(time.Hour)},
			{ID: 3, Rating: 5, CreatedAt: base.Add(2 * time.Hour), HelpfulCount: 1, AbuseCount: 3},
			{ID: 4, Rating: 1, CreatedAt: base.Add(2 * time.Hour)},
		}
	}

	t.Run("Recent", func(t *testing.T) {
		reviews := fresh()
		RankReviews(reviews, SortRecent)
		assert.Equal(t, []uint{4, 3, 2, 1}, ids(reviews))
	})

	t.Run("Rating", func(t *testing.T) {
		reviews := fresh()
		RankReviews(reviews, SortRating)
		assert.Equal(t, []uint{3, 2, 1, 4}, ids(reviews))
	})

	t.Run("Helpful", func(t *testing.T) {
		reviews := fresh()
		RankReviews(reviews, SortHelpful)
		assert.Equal(t, []uint{1, 3, 4, 2}, ids(reviews))
	})

	t.Run("Empty", func(t *testing.T) {
		RankReviews(nil, SortHelpful)
	})
}
