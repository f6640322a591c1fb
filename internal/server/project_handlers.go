package server

import (
	"showcase/internal/models"
	"showcase/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ListCategories handles GET /api/categories
// @Summary List categories
// @Description Categories with the number of live projects in each
// @Tags catalog
// @Produce json
// @Success 200 {array} models.Category
// @Router /categories [get]
func (s *Server) ListCategories(c *fiber.Ctx) error {
	categories, err := s.catalogService.ListCategories(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(categories)
}

// ListTags handles GET /api/tags
// @Summary List tags
// @Tags catalog
// @Produce json
// @Success 200 {array} models.Tag
// @Router /tags [get]
func (s *Server) ListTags(c *fiber.Ctx) error {
	tags, err := s.catalogService.ListTags(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(tags)
}

// ListProjects handles GET /api/projects
// @Summary Browse live projects
// @Tags catalog
// @Produce json
// @Param category query string false "Category slug"
// @Param tags query string false "Comma-separated tag slugs"
// @Param search query string false "Search over title, tagline and description"
// @Param min_rating query number false "Minimum average rating"
// @Param sort query string false "recent, rating or trending"
// @Param page query int false "Page number"
// @Param limit query int false "Page size (max 50)"
// @Success 200 {object} service.ProjectPage
// @Failure 400 {object} models.ErrorResponse
// @Router /projects [get]
func (s *Server) ListProjects(c *fiber.Ctx) error {
	page, err := s.catalogService.ListProjects(c.UserContext(), service.ListProjectsInput{
		Category:  c.Query("category"),
		Tags:      queryList(c, "tags"),
		Search:    c.Query("search"),
		MinRating: c.QueryFloat("min_rating", 0),
		Sort:      c.Query("sort"),
		Page:      c.QueryInt("page", 1),
		Limit:     c.QueryInt("limit", 0),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

// GetProject handles GET /api/projects/:slug
// @Summary Project detail
// @Description A live project with similar projects; counts a view
// @Tags catalog
// @Produce json
// @Param slug path string true "Project slug"
// @Success 200 {object} service.ProjectDetail
// @Failure 404 {object} models.ErrorResponse
// @Router /projects/{slug} [get]
func (s *Server) GetProject(c *fiber.Ctx) error {
	detail, err := s.catalogService.GetProjectBySlug(c.UserContext(), c.Params("slug"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(detail)
}

// ListMyProjects handles GET /api/me/projects
// @Summary List own projects
// @Tags projects
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Project
// @Router /me/projects [get]
func (s *Server) ListMyProjects(c *fiber.Ctx) error {
	projects, err := s.moderationService.ListOwnProjects(c.UserContext(), actorFrom(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(projects)
}

// SubmitProject handles POST /api/me/projects
// @Summary Submit a project
// @Description Creates the project in pending status
// @Tags projects
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.ProjectInput true "Project"
// @Success 201 {object} models.Project
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /me/projects [post]
func (s *Server) SubmitProject(c *fiber.Ctx) error {
	var in service.ProjectInput
	if err := parseBody(c, &in); err != nil {
		return nil
	}
	project, err := s.moderationService.SubmitProject(c.UserContext(), actorFrom(c), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(project)
}

// GetMyProject handles GET /api/me/projects/:id
// @Summary Own project detail
// @Description Includes moderation state such as the change request
// @Tags projects
// @Produce json
// @Security BearerAuth
// @Param id path int true "Project ID"
// @Success 200 {object} models.Project
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /me/projects/{id} [get]
func (s *Server) GetMyProject(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	project, err := s.moderationService.GetProjectForOwner(c.UserContext(), actorFrom(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(project)
}

// EditProject handles PUT /api/me/projects/:id
// @Summary Edit own project
// @Description Any edit returns the project to pending
// @Tags projects
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Project ID"
// @Param request body service.ProjectInput true "Project"
// @Success 200 {object} models.Project
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /me/projects/{id} [put]
func (s *Server) EditProject(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var in service.ProjectInput
	if err := parseBody(c, &in); err != nil {
		return nil
	}
	project, err := s.moderationService.EditProject(c.UserContext(), actorFrom(c), id, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(project)
}

// ToggleBookmark handles POST /api/projects/:slug/bookmark
// @Summary Toggle bookmark
// @Tags bookmarks
// @Produce json
// @Security BearerAuth
// @Param slug path string true "Project slug"
// @Success 200 {object} object{bookmarked=bool}
// @Failure 404 {object} models.ErrorResponse
// @Router /projects/{slug}/bookmark [post]
func (s *Server) ToggleBookmark(c *fiber.Ctx) error {
	bookmarked, err := s.bookmarkService.Toggle(c.UserContext(), actorFrom(c), c.Params("slug"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"bookmarked": bookmarked})
}

// ListBookmarks handles GET /api/me/bookmarks
// @Summary List bookmarks
// @Tags bookmarks
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Bookmark
// @Router /me/bookmarks [get]
func (s *Server) ListBookmarks(c *fiber.Ctx) error {
	bookmarks, err := s.bookmarkService.List(c.UserContext(), actorFrom(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(bookmarks)
}

// liveProjectBySlug resolves a route slug to a live project.
func (s *Server) liveProjectBySlug(c *fiber.Ctx) (*models.Project, error) {
	slug := c.Params("slug")
	project, err := s.projectRepo.GetBySlug(c.UserContext(), slug)
	if err != nil {
		return nil, err
	}
	if project.Status != models.ProjectStatusLive {
		return nil, models.NewNotFoundError("Project", slug)
	}
	return project, nil
}
