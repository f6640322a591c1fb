package server

import (
	"github.com/gofiber/fiber/v2"
)

type reviewRequest struct {
	Rating int    `json:"rating"`
	Body   string `json:"body"`
}

// ListProjectReviews handles GET /api/projects/:slug/reviews
// @Summary List reviews
// @Description Approved reviews of a live project, ranked
// @Tags reviews
// @Produce json
// @Param slug path string true "Project slug"
// @Param sort query string false "recent, rating or helpful"
// @Param page query int false "Page number"
// @Param limit query int false "Page size (max 50)"
// @Success 200 {object} service.ReviewPage
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /projects/{slug}/reviews [get]
func (s *Server) ListProjectReviews(c *fiber.Ctx) error {
	project, err := s.liveProjectBySlug(c)
	if err != nil {
		return respondError(c, err)
	}
	page, err := s.reviewService.ListReviews(c.UserContext(), project.ID,
		c.Query("sort"), c.QueryInt("page", 1), c.QueryInt("limit", 0))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

// SubmitReview handles POST /api/projects/:slug/reviews
// @Summary Review a project
// @Tags reviews
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param slug path string true "Project slug"
// @Param request body object{rating=int,body=string} true "Review"
// @Success 201 {object} models.Review
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /projects/{slug}/reviews [post]
func (s *Server) SubmitReview(c *fiber.Ctx) error {
	var req reviewRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	project, err := s.projectRepo.GetBySlug(c.UserContext(), c.Params("slug"))
	if err != nil {
		return respondError(c, err)
	}
	review, err := s.reviewService.SubmitReview(c.UserContext(), actorFrom(c), project.ID, req.Rating, req.Body)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(review)
}

// UpdateReview handles PUT /api/reviews/:id
// @Summary Edit own review
// @Tags reviews
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Review ID"
// @Param request body object{rating=int,body=string} true "Review"
// @Success 200 {object} models.Review
// @Failure 403 {object} models.ErrorResponse
// @Router /reviews/{id} [put]
func (s *Server) UpdateReview(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var req reviewRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	review, err := s.reviewService.UpdateReview(c.UserContext(), actorFrom(c), id, req.Rating, req.Body)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(review)
}

// DeleteReview handles DELETE /api/reviews/:id and DELETE /api/admin/reviews/:id
// @Summary Delete review
// @Description Authors may delete their own review; admins any review
// @Tags reviews
// @Security BearerAuth
// @Param id path int true "Review ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /reviews/{id} [delete]
func (s *Server) DeleteReview(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.reviewService.DeleteReview(c.UserContext(), actorFrom(c), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// VoteHelpful handles POST /api/reviews/:id/helpful
// @Summary Mark review helpful
// @Tags reviews
// @Produce json
// @Security BearerAuth
// @Param id path int true "Review ID"
// @Success 200 {object} models.Review
// @Failure 403 {object} models.ErrorResponse
// @Router /reviews/{id}/helpful [post]
func (s *Server) VoteHelpful(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	review, err := s.reviewService.VoteHelpful(c.UserContext(), actorFrom(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(review)
}

// ReportReview handles POST /api/reviews/:id/report
// @Summary Report review abuse
// @Tags reviews
// @Produce json
// @Security BearerAuth
// @Param id path int true "Review ID"
// @Success 200 {object} models.Review
// @Failure 403 {object} models.ErrorResponse
// @Router /reviews/{id}/report [post]
func (s *Server) ReportReview(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	review, err := s.reviewService.ReportAbuse(c.UserContext(), actorFrom(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(review)
}
