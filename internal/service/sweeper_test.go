package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"showcase/internal/cache"
	"showcase/internal/models"
	"showcase/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingProjects fails guarded writes for one project id.
type failingProjects struct {
	repository.ProjectRepository
	failID uint
}

func (f failingProjects) UpdateGuarded(ctx context.Context, p *models.Project, expected models.ProjectStatus, replaceTags bool) error {
	if p.ID == f.failID {
		return errors.New("connection reset")
	}
	return f.ProjectRepository.UpdateGuarded(ctx, p, expected, replaceTags)
}

func (e *testEnv) needsChanges(t *testing.T, title string, deadline time.Time) *models.Project {
	t.Helper()
	project := e.submit(t, title)
	project, err := e.moderation.RequestChanges(context.Background(), e.admin, project.ID, "Please add a README", deadline)
	require.NoError(t, err)
	return project
}

func TestDeadlineSweeper_RunExpiresOverdueProjects(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	overdue := env.needsChanges(t, "Overdue", fixedNow.Add(24*time.Hour))
	onTime := env.needsChanges(t, "On Time", fixedNow.Add(96*time.Hour))
	env.submit(t, "Just Pending")

	sweeper := NewDeadlineSweeper(env.projects, env.publisher, nil, 0)
	now := fixedNow.Add(48 * time.Hour)

	result, err := sweeper.Run(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, result.ProcessedCount)
	assert.Equal(t, []uint{overdue.ID}, result.ProcessedIDs)
	assert.Empty(t, result.Failures)

	stored, err := env.projects.GetByID(ctx, overdue.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProjectStatusRejected, stored.Status)
	assert.Equal(t, models.AutoRejectReason, stored.RejectionReason)
	assert.Nil(t, stored.ChangeRequest)
	last := stored.ReviewHistory[len(stored.ReviewHistory)-1]
	assert.Equal(t, models.ActionReject, last.Action)
	assert.Nil(t, last.ActorID)
	assert.Equal(t, models.AutoRejectNotes, last.Notes)

	untouched, err := env.projects.GetByID(ctx, onTime.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProjectStatusNeedsChanges, untouched.Status)

	events := env.publisher.eventsFor(t, env.owner.ID)
	assert.Equal(t, "expire", events[len(events)-1]["action"])

	again, err := sweeper.Run(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, again.ProcessedCount)
	assert.Empty(t, again.ProcessedIDs)
}

func TestDeadlineSweeper_FailureDoesNotStopBatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	first := env.needsChanges(t, "First", fixedNow.Add(time.Hour))
	second := env.needsChanges(t, "Second", fixedNow.Add(2*time.Hour))

	sweeper := NewDeadlineSweeper(failingProjects{ProjectRepository: env.projects, failID: first.ID}, nil, nil, 0)
	result, err := sweeper.Run(ctx, fixedNow.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []uint{second.ID}, result.ProcessedIDs)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, first.ID, result.Failures[0].ProjectID)
	assert.Contains(t, result.Failures[0].Error, "connection reset")

	stored, err := env.projects.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProjectStatusNeedsChanges, stored.Status)
}

func TestDeadlineSweeper_Locking(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.needsChanges(t, "Locked Out", fixedNow.Add(time.Hour))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	sweeper := NewDeadlineSweeper(env.projects, nil, rdb, time.Minute)
	now := fixedNow.Add(24 * time.Hour)

	t.Run("Held by another instance", func(t *testing.T) {
		require.NoError(t, mr.Set(cache.SweepLockKey, "someone-else"))
		_, err := sweeper.Run(ctx, now)
		assert.ErrorIs(t, err, ErrSweepInProgress)
		mr.Del(cache.SweepLockKey)
	})

	t.Run("Held in process", func(t *testing.T) {
		sweeper.mu.Lock()
		_, err := sweeper.Run(ctx, now)
		sweeper.mu.Unlock()
		assert.ErrorIs(t, err, ErrSweepInProgress)
	})

	t.Run("Free", func(t *testing.T) {
		result, err := sweeper.Run(ctx, now)
		require.NoError(t, err)
		assert.Equal(t, 1, result.ProcessedCount)
		assert.False(t, mr.Exists(cache.SweepLockKey), "lease is released after the run")
	})
}

func TestDeadlineSweeper_Stats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.needsChanges(t, "Soon", fixedNow.Add(12*time.Hour))
	env.needsChanges(t, "Later", fixedNow.Add(60*time.Hour))
	env.needsChanges(t, "Much Later", fixedNow.Add(200*time.Hour))

	stats, err := NewDeadlineSweeper(env.projects, nil, nil, 0).Stats(ctx, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(1), stats.ExpiringWithin24h)
	assert.Equal(t, int64(1), stats.ExpiringWithin72h, "the 72h bucket excludes deadlines inside 24h")
}
