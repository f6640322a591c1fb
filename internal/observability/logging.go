// Package observability provides logging, metrics, and tracing.
package observability

import (
	"context"
	"log/slog"
	"os"
	"strconv"
)

// RepoLoggingEnabled gates the per-write repository audit lines. Set
// LOG_REPO_WRITES=false to silence them.
var RepoLoggingEnabled = repoLoggingFromEnv()

func repoLoggingFromEnv() bool {
	v, err := strconv.ParseBool(os.Getenv("LOG_REPO_WRITES"))
	if err != nil {
		return true
	}
	return v
}

// RepoLogger writes one structured line per repository write so the audit
// trail of moderation and review changes can be rebuilt from logs.
// It writes through slog.Default, which the middleware package configures.
type RepoLogger struct {
	table string
}

// NewRepoLogger creates a RepoLogger for table.
func NewRepoLogger(table string) *RepoLogger {
	return &RepoLogger{table: table}
}

func (l *RepoLogger) write(ctx context.Context, level slog.Level, op string, attrs []slog.Attr) {
	if !RepoLoggingEnabled {
		return
	}
	all := make([]slog.Attr, 0, len(attrs)+2)
	all = append(all, slog.String("table", l.table), slog.String("operation", op))
	all = append(all, attrs...)
	slog.Default().LogAttrs(ctx, level, l.table+" "+op, all...)
}

func (l *RepoLogger) LogCreate(ctx context.Context, attrs ...slog.Attr) {
	l.write(ctx, slog.LevelInfo, "create", attrs)
}

func (l *RepoLogger) LogUpdate(ctx context.Context, attrs ...slog.Attr) {
	l.write(ctx, slog.LevelInfo, "update", attrs)
}

func (l *RepoLogger) LogDelete(ctx context.Context, attrs ...slog.Attr) {
	l.write(ctx, slog.LevelInfo, "delete", attrs)
}

// LogError records a failed write. Errors are logged even when write
// auditing is off.
func (l *RepoLogger) LogError(ctx context.Context, err error, op string) {
	slog.Default().ErrorContext(ctx, l.table+" "+op+" failed",
		slog.String("table", l.table),
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)
}

// ID is the attribute key every repository line uses for the row id.
func ID(id uint) slog.Attr {
	return slog.Uint64("id", uint64(id))
}
