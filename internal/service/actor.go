// Package service holds the business rules of the showcase: project
// moderation, the deadline sweep, review ranking and rating aggregation.
package service

import (
	"context"

	"showcase/internal/models"
)

// Actor is the authenticated caller of a service operation.
// The zero Actor is the system itself (used by scheduled jobs).
type Actor struct {
	ID   uint
	Role models.UserRole
}

// IsAdmin reports whether the actor may perform moderation actions.
func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

func requireUser(a Actor) error {
	if a.ID == 0 {
		return models.NewUnauthorizedError("authentication required")
	}
	return nil
}

func requireAdmin(a Actor) error {
	if err := requireUser(a); err != nil {
		return err
	}
	if !a.IsAdmin() {
		return models.NewForbiddenError("admin role required")
	}
	return nil
}

// Publisher delivers real-time notifications. notifications.Notifier satisfies it.
type Publisher interface {
	PublishUser(ctx context.Context, userID uint, payload string) error
	PublishBroadcast(ctx context.Context, payload string) error
}

// FlagChecker evaluates feature flags. featureflags.Manager satisfies it.
type FlagChecker interface {
	Enabled(name string, userID uint) bool
}

type noopPublisher struct{}

func (noopPublisher) PublishUser(context.Context, uint, string) error { return nil }
func (noopPublisher) PublishBroadcast(context.Context, string) error  { return nil }
