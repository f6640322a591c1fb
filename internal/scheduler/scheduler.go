// Package scheduler runs background jobs on cron schedules.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"showcase/internal/middleware"
	"showcase/internal/service"

	"github.com/robfig/cron/v3"
)

// SweepRunner is the part of service.DeadlineSweeper the scheduler drives.
type SweepRunner interface {
	Run(ctx context.Context, now time.Time) (*service.SweepResult, error)
}

// Scheduler owns the cron runner for the deadline sweep.
type Scheduler struct {
	cron    *cron.Cron
	sweeper SweepRunner
	timeout time.Duration
	now     func() time.Time
}

// New parses schedule (six fields, seconds first, or a descriptor such as
// "@every 1h") and registers the sweep. Nothing runs until Start.
func New(sweeper SweepRunner, schedule string, timeout time.Duration) (*Scheduler, error) {
	logger := slogAdapter{}
	s := &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(time.UTC),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		sweeper: sweeper,
		timeout: timeout,
		now:     func() time.Time { return time.Now().UTC() },
	}
	if s.timeout <= 0 {
		s.timeout = 5 * time.Minute
	}
	if _, err := s.cron.AddFunc(schedule, s.runSweep); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start begins running jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	for _, entry := range s.cron.Entries() {
		slog.Info("scheduled job registered", slog.Time("next_run", entry.Next))
	}
}

// Stop prevents new runs and waits for a running job until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) runSweep() {
	ctx, cancel := context.WithTimeout(middleware.WithJob(context.Background(), "deadline_sweep"), s.timeout)
	defer cancel()

	result, err := s.sweeper.Run(ctx, s.now())
	switch {
	case errors.Is(err, service.ErrSweepInProgress):
		slog.InfoContext(ctx, "deadline sweep skipped, another run holds the lock")
	case err != nil:
		slog.ErrorContext(ctx, "deadline sweep failed", slog.String("error", err.Error()))
	default:
		slog.InfoContext(ctx, "scheduled deadline sweep complete",
			slog.Int("processed", result.ProcessedCount),
			slog.Int("failed", len(result.Failures)),
		)
	}
}

// slogAdapter routes cron's own logging through slog.
type slogAdapter struct{}

func (slogAdapter) Info(msg string, keysAndValues ...interface{}) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (slogAdapter) Error(err error, msg string, keysAndValues ...interface{}) {
	slog.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
