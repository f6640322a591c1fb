package service

import (
	"context"
	"testing"

	"showcase/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminService_Stats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := NewAdminService(env.projects, env.reviews, env.users)

	live := env.live(t, "Shipped")
	env.submit(t, "Waiting")
	_, err := env.reviewSvc.SubmitReview(ctx, env.user(t, "fan"), live.ID, 5, goodBody)
	require.NoError(t, err)

	_, err = svc.Stats(ctx, env.owner)
	assert.True(t, models.HasCode(err, models.CodeForbidden))

	stats, err := svc.Stats(ctx, env.admin)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalProjects)
	assert.Equal(t, int64(1), stats.PendingProjects)
	assert.Equal(t, int64(1), stats.LiveProjects)
	assert.Equal(t, int64(3), stats.TotalUsers)
	assert.Equal(t, int64(1), stats.TotalReviews)
	assert.Zero(t, stats.PendingReviews)
	assert.Len(t, stats.RecentProjects, 2)
}

func TestAdminService_Users(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := NewAdminService(env.projects, env.reviews, env.users)

	page, err := svc.ListUsers(ctx, env.admin, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	assert.Equal(t, 20, page.Limit)

	promoted, err := svc.SetUserRole(ctx, env.admin, env.owner.ID, models.RoleAdmin)
	require.NoError(t, err)
	assert.True(t, promoted.IsAdmin())

	_, err = svc.SetUserRole(ctx, env.admin, env.admin.ID, models.RoleUser)
	assert.True(t, models.HasCode(err, models.CodeValidation))

	_, err = svc.SetUserRole(ctx, env.admin, env.owner.ID, "root")
	assert.True(t, models.HasCode(err, models.CodeValidation))

	_, err = svc.SetUserRole(ctx, env.admin, 999, models.RoleAdmin)
	assert.True(t, models.HasCode(err, models.CodeNotFound))

	_, err = svc.ListUsers(ctx, env.owner, 1, 10)
	assert.True(t, models.HasCode(err, models.CodeForbidden))
}
