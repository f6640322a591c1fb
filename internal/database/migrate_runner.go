package database

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"showcase/internal/middleware"

	"gorm.io/gorm"
)

// migrationLockKey serializes migrations across replicas booting at once.
const migrationLockKey int64 = 0x73686f7763617365 // "showcase"

// MigrationStore tracks which embedded migrations a database has applied.
type MigrationStore interface {
	Applied(ctx context.Context) ([]MigrationLog, error)
	Apply(ctx context.Context, m Migration) error
	Revert(ctx context.Context, m Migration) error
}

// MigrationLog is one row of migration_logs.
type MigrationLog struct {
	Version    int       `gorm:"primaryKey;autoIncrement:false"`
	Name       string    `gorm:"size:255;not null"`
	Checksum   string    `gorm:"size:64"`
	DurationMs int64     `gorm:"not null;default:0"`
	AppliedAt  time.Time `gorm:"autoCreateTime;index"`
}

func (MigrationLog) TableName() string {
	return "migration_logs"
}

type migrationStore struct {
	db *gorm.DB
}

// NewMigrationStore returns a store backed by the migration_logs table.
func NewMigrationStore(db *gorm.DB) MigrationStore {
	return &migrationStore{db: db}
}

func (s *migrationStore) Applied(ctx context.Context) ([]MigrationLog, error) {
	var logs []MigrationLog
	err := s.db.WithContext(ctx).Order("version ASC").Find(&logs).Error
	if err != nil {
		if isMissingTableError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read migration_logs: %w", err)
	}
	return logs, nil
}

func (s *migrationStore) Apply(ctx context.Context, m Migration) error {
	started := time.Now()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(m.UpScript).Error; err != nil {
			return fmt.Errorf("apply %s: %w", m.String(), err)
		}
		entry := MigrationLog{
			Version:    m.Version,
			Name:       m.Name,
			Checksum:   scriptChecksum(m.UpScript),
			DurationMs: time.Since(started).Milliseconds(),
		}
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("record %s: %w", m.String(), err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	middleware.Logger.Info("Migration applied",
		slog.String("migration", m.String()),
		slog.Duration("took", time.Since(started)))
	return nil
}

func (s *migrationStore) Revert(ctx context.Context, m Migration) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(m.DownScript).Error; err != nil {
			return fmt.Errorf("roll back %s: %w", m.String(), err)
		}
		return tx.Where("version = ?", m.Version).Delete(&MigrationLog{}).Error
	})
	if err != nil {
		return err
	}
	middleware.Logger.Info("Migration rolled back", slog.String("migration", m.String()))
	return nil
}

func scriptChecksum(script string) string {
	sum := sha256.Sum256([]byte(script))
	return hex.EncodeToString(sum[:])
}

func isMissingTableError(err error) bool {
	msg := err.Error()
	return (strings.Contains(msg, "relation") && strings.Contains(msg, "does not exist")) ||
		strings.Contains(msg, "no such table")
}

func appliedVersions(logs []MigrationLog) []int {
	versions := make([]int, 0, len(logs))
	for _, l := range logs {
		versions = append(versions, l.Version)
	}
	return versions
}

// withMigrationLock holds a postgres advisory lock for the duration of fn.
// Other dialects run fn directly.
func withMigrationLock(ctx context.Context, db *gorm.DB, fn func(*gorm.DB) error) error {
	if db.Dialector.Name() != "postgres" {
		return fn(db)
	}
	return db.WithContext(ctx).Connection(func(conn *gorm.DB) error {
		if err := conn.Exec("SELECT pg_advisory_lock(?)", migrationLockKey).Error; err != nil {
			return fmt.Errorf("acquire migration lock: %w", err)
		}
		defer conn.Exec("SELECT pg_advisory_unlock(?)", migrationLockKey)
		return fn(conn)
	})
}

// RunMigrations applies every embedded migration the database has not seen.
func RunMigrations(ctx context.Context, db *gorm.DB) error {
	return withMigrationLock(ctx, db, func(conn *gorm.DB) error {
		if err := conn.WithContext(ctx).AutoMigrate(&MigrationLog{}); err != nil {
			return fmt.Errorf("ensure migration_logs: %w", err)
		}
		return applyPending(ctx, NewMigrationStore(conn), migrations)
	})
}

func applyPending(ctx context.Context, store MigrationStore, registered []Migration) error {
	logs, err := store.Applied(ctx)
	if err != nil {
		return err
	}
	if err := validateAppliedVersions(appliedVersions(logs), registered); err != nil {
		return err
	}
	warnOnDrift(logs, registered)

	done := make(map[int]bool, len(logs))
	for _, l := range logs {
		done[l.Version] = true
	}
	pending := 0
	for _, m := range registered {
		if done[m.Version] {
			continue
		}
		if err := store.Apply(ctx, m); err != nil {
			return err
		}
		pending++
	}
	middleware.Logger.Debug("Schema migrations current",
		slog.Int("applied_now", pending), slog.Int("total", len(registered)))
	return nil
}

// warnOnDrift logs migrations whose embedded script changed after they ran.
func warnOnDrift(logs []MigrationLog, registered []Migration) {
	byVersion := make(map[int]Migration, len(registered))
	for _, m := range registered {
		byVersion[m.Version] = m
	}
	for _, l := range logs {
		m, ok := byVersion[l.Version]
		if !ok || l.Checksum == "" {
			continue
		}
		if l.Checksum != scriptChecksum(m.UpScript) {
			middleware.Logger.Warn("Applied migration differs from embedded script",
				slog.String("migration", m.String()))
		}
	}
}

func validateAppliedVersions(applied []int, registered []Migration) error {
	known := make(map[int]struct{}, len(registered))
	for _, m := range registered {
		known[m.Version] = struct{}{}
	}

	var unknown []string
	sort.Ints(applied)
	for _, version := range applied {
		if _, ok := known[version]; !ok {
			unknown = append(unknown, fmt.Sprintf("%06d", version))
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	return fmt.Errorf("database has migrations this build does not know: %s", strings.Join(unknown, ", "))
}

// RollbackMigration reverts one applied migration by version.
func RollbackMigration(ctx context.Context, db *gorm.DB, version int) error {
	m := GetMigrationByVersion(version)
	if m == nil {
		return fmt.Errorf("migration version %d not found", version)
	}
	return withMigrationLock(ctx, db, func(conn *gorm.DB) error {
		store := NewMigrationStore(conn)
		logs, err := store.Applied(ctx)
		if err != nil {
			return err
		}
		for _, l := range logs {
			if l.Version == version {
				middleware.Logger.Info("Rolling back migration", slog.String("migration", m.String()))
				return store.Revert(ctx, *m)
			}
		}
		return fmt.Errorf("migration %s has not been applied", m.String())
	})
}
