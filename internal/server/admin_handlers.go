package server

import (
	"errors"
	"time"

	"showcase/internal/models"
	"showcase/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ListProjectsForModeration handles GET /api/admin/projects
// @Summary Moderation queue
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param status query string false "pending, live, rejected or needs-changes"
// @Param search query string false "Matches title, tagline or description"
// @Param page query int false "Page number"
// @Param limit query int false "Page size (max 100)"
// @Success 200 {object} service.ProjectPage
// @Router /admin/projects [get]
func (s *Server) ListProjectsForModeration(c *fiber.Ctx) error {
	page, err := s.moderationService.ListForModeration(c.UserContext(), actorFrom(c),
		models.ProjectStatus(c.Query("status")), c.Query("search"), c.QueryInt("page", 1), c.QueryInt("limit", 0))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

// ApproveProject handles POST /api/admin/projects/:id/approve
// @Summary Approve project
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path int true "Project ID"
// @Success 200 {object} models.Project
// @Failure 409 {object} models.ErrorResponse
// @Router /admin/projects/{id}/approve [post]
func (s *Server) ApproveProject(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	project, err := s.moderationService.ApproveProject(c.UserContext(), actorFrom(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(project)
}

// RejectProject handles POST /api/admin/projects/:id/reject
// @Summary Reject project
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Project ID"
// @Param request body object{reason=string} true "Rejection"
// @Success 200 {object} models.Project
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /admin/projects/{id}/reject [post]
func (s *Server) RejectProject(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	project, err := s.moderationService.RejectProject(c.UserContext(), actorFrom(c), id, req.Reason)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(project)
}

// RequestChanges handles POST /api/admin/projects/:id/request-changes.
// The deadline is either an absolute RFC 3339 time or a number of days from now.
// @Summary Request changes
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Project ID"
// @Param request body object{feedback=string,deadline=string,deadline_days=int} true "Change request"
// @Success 200 {object} models.Project
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /admin/projects/{id}/request-changes [post]
func (s *Server) RequestChanges(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Feedback     string    `json:"feedback"`
		Deadline     time.Time `json:"deadline"`
		DeadlineDays int       `json:"deadline_days"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	deadline := req.Deadline
	if deadline.IsZero() && req.DeadlineDays > 0 {
		deadline = s.now().AddDate(0, 0, req.DeadlineDays)
	}
	if deadline.IsZero() {
		return respondError(c, models.NewValidationError("deadline or deadline_days is required"))
	}

	project, err := s.moderationService.RequestChanges(c.UserContext(), actorFrom(c), id, req.Feedback, deadline)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(project)
}

// DeleteProject handles DELETE /api/admin/projects/:id
// @Summary Delete project
// @Description Removes the project with its reviews, votes and bookmarks
// @Tags admin
// @Security BearerAuth
// @Param id path int true "Project ID"
// @Success 204
// @Failure 404 {object} models.ErrorResponse
// @Router /admin/projects/{id} [delete]
func (s *Server) DeleteProject(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.moderationService.DeleteProject(c.UserContext(), actorFrom(c), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListReviewsForModeration handles GET /api/admin/reviews
// @Summary Review moderation queue
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param status query string false "pending, approved or hidden"
// @Success 200 {object} service.ReviewPage
// @Router /admin/reviews [get]
func (s *Server) ListReviewsForModeration(c *fiber.Ctx) error {
	page, err := s.reviewService.ListForModeration(c.UserContext(), actorFrom(c),
		models.ReviewStatus(c.Query("status")), c.QueryInt("page", 1), c.QueryInt("limit", 0))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

// SetReviewStatus handles PUT /api/admin/reviews/:id/status
// @Summary Set review status
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Review ID"
// @Param request body object{status=string} true "New status"
// @Success 200 {object} models.Review
// @Failure 400 {object} models.ErrorResponse
// @Router /admin/reviews/{id}/status [put]
func (s *Server) SetReviewStatus(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Status models.ReviewStatus `json:"status"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	review, err := s.reviewService.SetReviewStatus(c.UserContext(), actorFrom(c), id, req.Status)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(review)
}

// GetDeadlineStats handles GET /api/admin/deadline-check
// @Summary Change request deadline stats
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} repository.ChangeRequestStats
// @Router /admin/deadline-check [get]
func (s *Server) GetDeadlineStats(c *fiber.Ctx) error {
	stats, err := s.sweeper.Stats(c.UserContext(), s.now())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(stats)
}

// RunDeadlineSweep handles POST /api/admin/deadline-check
// @Summary Run the deadline sweep now
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.SweepResult
// @Failure 409 {object} models.ErrorResponse
// @Router /admin/deadline-check [post]
func (s *Server) RunDeadlineSweep(c *fiber.Ctx) error {
	result, err := s.sweeper.Run(c.UserContext(), s.now())
	if err != nil {
		if errors.Is(err, service.ErrSweepInProgress) {
			return respondError(c, models.NewConflictError(err.Error()))
		}
		return respondError(c, err)
	}
	return c.JSON(result)
}

// GetAdminStats handles GET /api/admin/stats
// @Summary Dashboard stats
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.AdminStats
// @Router /admin/stats [get]
func (s *Server) GetAdminStats(c *fiber.Ctx) error {
	stats, err := s.adminService.Stats(c.UserContext(), actorFrom(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(stats)
}

// ListUsers handles GET /api/admin/users
// @Summary List users
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param limit query int false "Page size (max 100)"
// @Success 200 {object} service.UserPage
// @Router /admin/users [get]
func (s *Server) ListUsers(c *fiber.Ctx) error {
	page, err := s.adminService.ListUsers(c.UserContext(), actorFrom(c),
		c.QueryInt("page", 1), c.QueryInt("limit", 0))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

// SetUserRole handles PUT /api/admin/users/:id/role
// @Summary Set user role
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param request body object{role=string} true "user or admin"
// @Success 200 {object} models.User
// @Failure 400 {object} models.ErrorResponse
// @Router /admin/users/{id}/role [put]
func (s *Server) SetUserRole(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Role models.UserRole `json:"role"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	user, err := s.adminService.SetUserRole(c.UserContext(), actorFrom(c), id, req.Role)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// GetFeatureFlags handles GET /api/admin/feature-flags
// @Summary Feature flags
// @Description Configured flags and their state for the caller
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{raw=map[string]string,evaluated=map[string]bool}
// @Router /admin/feature-flags [get]
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	if s.featureFlags == nil {
		return c.JSON(fiber.Map{
			"raw":       map[string]string{},
			"evaluated": map[string]bool{},
		})
	}
	userID := actorFrom(c).ID
	return c.JSON(fiber.Map{
		"raw":       s.featureFlags.Raw(),
		"evaluated": s.featureFlags.Snapshot(userID),
	})
}
