package service

import (
	"context"
	"testing"

	"showcase/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAverageRating(t *testing.T) {
	tests := []struct {
		name    string
		ratings []int
		avg     float64
		count   int64
	}{
		{"Empty", nil, 0, 0},
		{"Single", []int{3}, 3, 1},
		{"Rounds up", []int{5, 4, 5}, 4.7, 3},
		{"Rounds down", []int{5, 4, 4}, 4.3, 3},
		{"Half rounds up", []int{4, 5, 5, 5}, 4.8, 4},
		{"All ones", []int{1, 1}, 1, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			avg, count := AverageRating(tt.ratings)
			assert.Equal(t, tt.avg, avg)
			assert.Equal(t, tt.count, count)
		})
	}
}

func TestRatingAggregator_RecomputeRepairsDrift(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	project := env.live(t, "Drifting")

	for name, rating := range map[string]int{"alice": 5, "bob": 4} {
		_, err := env.reviewSvc.SubmitReview(ctx, env.user(t, name), project.ID, rating, goodBody)
		require.NoError(t, err)
	}
	hidden, err := env.reviewSvc.SubmitReview(ctx, env.user(t, "mallory"), project.ID, 1, goodBody)
	require.NoError(t, err)
	_, err = env.reviewSvc.SetReviewStatus(ctx, env.admin, hidden.ID, models.ReviewStatusHidden)
	require.NoError(t, err)

	require.NoError(t, env.db.Model(&models.Project{}).Where("id = ?", project.ID).
		UpdateColumns(map[string]any{"avg_rating": 1.2, "ratings_count": 99}).Error)

	aggregator := NewRatingAggregator(env.projects, env.reviews)
	for i := 0; i < 2; i++ {
		avg, count, err := aggregator.Recompute(ctx, project.ID)
		require.NoError(t, err)
		assert.Equal(t, 4.5, avg, "run %d", i)
		assert.Equal(t, int64(2), count, "run %d", i)

		stored, err := env.projects.GetByID(ctx, project.ID)
		require.NoError(t, err)
		assert.Equal(t, 4.5, stored.AvgRating, "run %d", i)
		assert.Equal(t, int64(2), stored.RatingsCount, "run %d", i)
	}
}
