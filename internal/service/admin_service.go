package service

import (
	"context"
	"log/slog"

	"showcase/internal/models"
	"showcase/internal/repository"
)

// AdminStats is the admin dashboard summary.
type AdminStats struct {
	TotalProjects   int64            `json:"total_projects"`
	PendingProjects int64            `json:"pending_projects"`
	LiveProjects    int64            `json:"live_projects"`
	TotalViews      int64            `json:"total_views"`
	TotalUsers      int64            `json:"total_users"`
	TotalReviews    int64            `json:"total_reviews"`
	PendingReviews  int64            `json:"pending_reviews"`
	HiddenReviews   int64            `json:"hidden_reviews"`
	RecentProjects  []models.Project `json:"recent_projects"`
}

// UserPage is one page of the admin user listing.
type UserPage struct {
	Users []models.User `json:"users"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

// AdminService backs the admin dashboard and user management.
type AdminService struct {
	projects repository.ProjectRepository
	reviews  repository.ReviewRepository
	users    repository.UserRepository
}

// NewAdminService returns a new AdminService.
func NewAdminService(projects repository.ProjectRepository, reviews repository.ReviewRepository, users repository.UserRepository) *AdminService {
	return &AdminService{projects: projects, reviews: reviews, users: users}
}

// Stats gathers dashboard totals and the five most recently updated projects.
func (s *AdminService) Stats(ctx context.Context, actor Actor) (*AdminStats, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	totals, err := s.projects.Totals(ctx)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	reviewCounts, err := s.reviews.CountByStatus(ctx)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	users, err := s.users.Count(ctx)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	recent, _, err := s.projects.List(ctx, repository.ProjectFilter{Sort: repository.SortRecent, Limit: 5})
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if recent == nil {
		recent = []models.Project{}
	}

	return &AdminStats{
		TotalProjects:   totals.Projects,
		PendingProjects: totals.Pending,
		LiveProjects:    totals.Live,
		TotalViews:      totals.Views,
		TotalUsers:      users,
		TotalReviews:    reviewCounts.Pending + reviewCounts.Approved + reviewCounts.Hidden,
		PendingReviews:  reviewCounts.Pending,
		HiddenReviews:   reviewCounts.Hidden,
		RecentProjects:  recent,
	}, nil
}

// ListUsers returns one page of users, newest first.
func (s *AdminService) ListUsers(ctx context.Context, actor Actor, page, limit int) (*UserPage, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	page, limit, offset := normalizePage(page, limit, 20, 100)
	users, total, err := s.users.List(ctx, limit, offset)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if users == nil {
		users = []models.User{}
	}
	return &UserPage{Users: users, Total: total, Page: page, Limit: limit}, nil
}

// SetUserRole grants or revokes the admin role. Admins cannot demote themselves.
func (s *AdminService) SetUserRole(ctx context.Context, actor Actor, userID uint, role models.UserRole) (*models.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, models.NewValidationError("role must be user or admin")
	}
	if userID == actor.ID && role != models.RoleAdmin {
		return nil, models.NewValidationError("you cannot remove your own admin role")
	}
	if err := s.users.SetRole(ctx, userID, role); err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "user role changed",
		slog.Uint64("user_id", uint64(userID)),
		slog.String("role", string(role)),
		slog.Uint64("actor_id", uint64(actor.ID)),
	)
	return s.users.GetByID(ctx, userID)
}
