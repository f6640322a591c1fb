package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"showcase/internal/cache"
	"showcase/internal/middleware"
	"showcase/internal/notifications"
	"showcase/internal/repository"
	"showcase/internal/service"

	"github.com/spf13/cobra"
)

func sweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Inspect or run the change-request deadline sweep",
	}
	cmd.AddCommand(sweepRunCmd(), sweepStatsCmd())
	return cmd
}

func sweepRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Auto-reject every project whose change deadline has passed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sweeper, cleanup, err := newSweeper()
			if err != nil {
				return err
			}
			defer cleanup()

			ctx := middleware.WithJob(cmd.Context(), "deadline_sweep_manual")
			result, err := sweeper.Run(ctx, time.Now().UTC())
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
}

func sweepStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Count projects waiting on changes and how soon they expire",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sweeper, cleanup, err := newSweeper()
			if err != nil {
				return err
			}
			defer cleanup()

			stats, err := sweeper.Stats(cmd.Context(), time.Now().UTC())
			if err != nil {
				return err
			}
			return printJSON(stats)
		},
	}
}

// newSweeper builds a sweeper that shares the server's Redis lease, so a
// manual run never overlaps a scheduled one.
func newSweeper() (*service.DeadlineSweeper, func(), error) {
	cfg, db, err := connect()
	if err != nil {
		return nil, nil, err
	}
	rdb := cache.InitRedis(cfg.RedisURL)
	sweeper := service.NewDeadlineSweeper(
		repository.NewProjectRepository(db),
		notifications.NewNotifier(rdb),
		rdb,
		time.Duration(cfg.SweepLockTTLSeconds)*time.Second,
	)
	cleanup := func() {
		if rdb != nil {
			_ = rdb.Close()
		}
		closeDB(db)
	}
	return sweeper, cleanup, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
