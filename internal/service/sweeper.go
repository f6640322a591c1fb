package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"showcase/internal/cache"
	"showcase/internal/models"
	"showcase/internal/observability"
	"showcase/internal/repository"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
)

// ErrSweepInProgress is returned when another sweep holds the lock.
var ErrSweepInProgress = errors.New("deadline sweep already in progress")

// SweepFailure records one project the sweep could not transition.
type SweepFailure struct {
	ProjectID uint   `json:"project_id"`
	Error     string `json:"error"`
}

// SweepResult summarizes one sweep run.
type SweepResult struct {
	RanAt          time.Time      `json:"ran_at"`
	ProcessedCount int            `json:"processed_count"`
	ProcessedIDs   []uint         `json:"processed_ids"`
	SkippedIDs     []uint         `json:"skipped_ids,omitempty"`
	Failures       []SweepFailure `json:"failures,omitempty"`
}

// DeadlineSweeper auto-rejects needs-changes projects whose deadline passed.
// Runs are serialized in-process and, when Redis is configured, across instances.
type DeadlineSweeper struct {
	projects  repository.ProjectRepository
	publisher Publisher
	rdb       *redis.Client
	lockTTL   time.Duration
	mu        sync.Mutex
}

// NewDeadlineSweeper returns a sweeper. rdb may be nil, in which case only the
// in-process guard applies.
func NewDeadlineSweeper(projects repository.ProjectRepository, publisher Publisher, rdb *redis.Client, lockTTL time.Duration) *DeadlineSweeper {
	if publisher == nil {
		publisher = noopPublisher{}
	}
	if lockTTL <= 0 {
		lockTTL = 5 * time.Minute
	}
	return &DeadlineSweeper{
		projects:  projects,
		publisher: publisher,
		rdb:       rdb,
		lockTTL:   lockTTL,
	}
}

// Run applies the expire transition to every project whose deadline is before now.
// A failure on one project is recorded and the batch continues.
func (s *DeadlineSweeper) Run(ctx context.Context, now time.Time) (*SweepResult, error) {
	if !s.mu.TryLock() {
		return nil, ErrSweepInProgress
	}
	defer s.mu.Unlock()

	if s.rdb != nil {
		lease, err := cache.AcquireLease(ctx, s.rdb, cache.SweepLockKey, s.lockTTL)
		switch {
		case errors.Is(err, cache.ErrLockHeld):
			return nil, ErrSweepInProgress
		case err != nil:
			slog.WarnContext(ctx, "sweep lock unavailable, continuing with local guard only",
				slog.String("error", err.Error()))
		default:
			defer func() {
				if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
					slog.WarnContext(ctx, "failed to release sweep lock", slog.String("error", err.Error()))
				}
			}()
		}
	}

	ctx, span := observability.StartSpan(ctx, "deadline_sweep.run",
		attribute.String("sweep.now", now.Format(time.RFC3339)))
	start := time.Now()

	expired, err := s.projects.ListExpired(ctx, now)
	if err != nil {
		observability.EndSpan(span, err)
		return nil, models.NewInternalError(err)
	}

	result := &SweepResult{RanAt: now, ProcessedIDs: []uint{}}
	for i := range expired {
		project := &expired[i]
		err := s.expire(ctx, project, now)
		switch {
		case err == nil:
			result.ProcessedCount++
			result.ProcessedIDs = append(result.ProcessedIDs, project.ID)
			observability.SweepProcessed.Inc()
			slog.InfoContext(ctx, "project auto-rejected",
				slog.Uint64("project_id", uint64(project.ID)),
				slog.String("slug", project.Slug),
			)
		case errors.Is(err, repository.ErrStaleWrite):
			// moderated between the query and the write
			result.SkippedIDs = append(result.SkippedIDs, project.ID)
		default:
			result.Failures = append(result.Failures, SweepFailure{ProjectID: project.ID, Error: err.Error()})
			observability.SweepFailures.Inc()
			slog.ErrorContext(ctx, "failed to auto-reject project",
				slog.Uint64("project_id", uint64(project.ID)),
				slog.String("error", err.Error()),
			)
		}
	}

	observability.SweepDuration.Observe(time.Since(start).Seconds())
	span.SetAttributes(
		attribute.Int("sweep.processed", result.ProcessedCount),
		attribute.Int("sweep.failed", len(result.Failures)),
	)
	observability.EndSpan(span, nil)

	slog.InfoContext(ctx, "deadline sweep finished",
		slog.Int("matched", len(expired)),
		slog.Int("processed", result.ProcessedCount),
		slog.Int("skipped", len(result.SkippedIDs)),
		slog.Int("failed", len(result.Failures)),
		slog.Duration("duration", time.Since(start)),
	)
	return result, nil
}

func (s *DeadlineSweeper) expire(ctx context.Context, project *models.Project, now time.Time) error {
	if err := project.Expire(now); err != nil {
		return err
	}
	if err := s.projects.UpdateGuarded(ctx, project, models.ProjectStatusNeedsChanges, false); err != nil {
		return err
	}
	cache.InvalidateProject(ctx, project.Slug)
	observability.ModerationTransitions.WithLabelValues(string(models.ActionExpire), string(project.Status)).Inc()
	publishOwnerEvent(ctx, s.publisher, project.SubmittedBy, ProjectEvent{
		Type:      "project_status",
		ProjectID: project.ID,
		Slug:      project.Slug,
		Title:     project.Title,
		Action:    models.ActionExpire,
		Status:    project.Status,
		Message:   project.RejectionReason,
	})
	return nil
}

// Stats reports how many needs-changes projects exist and how many of them
// are due within 24 and 72 hours of now. Overdue projects count in both windows.
func (s *DeadlineSweeper) Stats(ctx context.Context, now time.Time) (*repository.ChangeRequestStats, error) {
	stats, err := s.projects.ChangeRequestStats(ctx, now)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &stats, nil
}
