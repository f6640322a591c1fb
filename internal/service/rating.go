package service

import (
	"context"
	"fmt"
	"math"

	"showcase/internal/cache"
	"showcase/internal/repository"
)

// AverageRating returns the mean of ratings rounded half away from zero to
// one decimal place, and the number of ratings. No ratings yields (0, 0).
func AverageRating(ratings []int) (float64, int64) {
	if len(ratings) == 0 {
		return 0, 0
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	mean := float64(sum) / float64(len(ratings))
	return math.Round(mean*10) / 10, int64(len(ratings))
}

// RatingAggregator keeps a project's denormalized rating fields in step with
// its approved reviews. Every call is a full recompute.
type RatingAggregator struct {
	projects repository.ProjectRepository
	reviews  repository.ReviewRepository
}

// NewRatingAggregator returns a new RatingAggregator.
func NewRatingAggregator(projects repository.ProjectRepository, reviews repository.ReviewRepository) *RatingAggregator {
	return &RatingAggregator{projects: projects, reviews: reviews}
}

// Recompute reloads the approved ratings of a project, stores the result and
// drops the project's cached detail payload.
func (a *RatingAggregator) Recompute(ctx context.Context, projectID uint) (float64, int64, error) {
	ratings, err := a.reviews.ApprovedRatings(ctx, projectID)
	if err != nil {
		return 0, 0, fmt.Errorf("load ratings for project %d: %w", projectID, err)
	}
	avg, count := AverageRating(ratings)
	if err := a.projects.UpdateRating(ctx, projectID, avg, count); err != nil {
		return 0, 0, fmt.Errorf("store rating for project %d: %w", projectID, err)
	}
	project, err := a.projects.GetByID(ctx, projectID)
	if err != nil {
		return 0, 0, fmt.Errorf("load project %d: %w", projectID, err)
	}
	cache.InvalidateProject(ctx, project.Slug)
	return avg, count, nil
}
