package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"showcase/internal/cache"
	"showcase/internal/models"
	"showcase/internal/observability"
	"showcase/internal/repository"
	"showcase/internal/validation"
)

// ProjectInput carries the owner-editable fields of a project, used for both
// submission and edits.
type ProjectInput struct {
	Title       string                  `json:"title"`
	Tagline     string                  `json:"tagline"`
	Description string                  `json:"description"`
	CategoryID  uint                    `json:"category_id"`
	TagIDs      []uint                  `json:"tag_ids"`
	TechStack   []string                `json:"tech_stack"`
	RepoURL     string                  `json:"repo_url"`
	DemoURL     string                  `json:"demo_url"`
	Version     string                  `json:"version"`
	HeroImage   string                  `json:"hero_image"`
	Screenshots []string                `json:"screenshots"`
	Features    []string                `json:"features"`
	Changelog   []models.ChangelogEntry `json:"changelog"`
}

func (in *ProjectInput) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Tagline = strings.TrimSpace(in.Tagline)
	in.Description = strings.TrimSpace(in.Description)
	in.RepoURL = strings.TrimSpace(in.RepoURL)
	in.DemoURL = strings.TrimSpace(in.DemoURL)
	in.Version = strings.TrimSpace(in.Version)
	in.HeroImage = strings.TrimSpace(in.HeroImage)
	for i := range in.TechStack {
		in.TechStack[i] = strings.TrimSpace(in.TechStack[i])
	}
	for i := range in.Features {
		in.Features[i] = strings.TrimSpace(in.Features[i])
	}
}

func (in *ProjectInput) validate() error {
	checks := []error{
		validation.Length("title", in.Title, 1, validation.MaxTitleLength),
		validation.Length("tagline", in.Tagline, 1, validation.MaxTaglineLength),
		validation.Length("description", in.Description, validation.MinDescriptionLength, validation.MaxDescriptionLength),
		validation.List("tech stack", in.TechStack, validation.MaxTechStackItems, validation.MaxTechLabelLength),
		validation.List("features", in.Features, validation.MaxFeatures, validation.MaxFeatureLength),
		validation.URLList("screenshots", in.Screenshots, validation.MaxScreenshots),
		validation.OptionalURL("repo_url", in.RepoURL),
		validation.OptionalURL("demo_url", in.DemoURL),
		validation.OptionalURL("hero_image", in.HeroImage),
		validation.Version(in.Version),
	}
	for _, err := range checks {
		if err != nil {
			return models.NewValidationError(err.Error())
		}
	}
	if in.CategoryID == 0 {
		return models.NewValidationError("category is required")
	}
	return nil
}

func (in *ProjectInput) apply(p *models.Project, tags []models.Tag) {
	p.Title = in.Title
	p.Tagline = in.Tagline
	p.Description = in.Description
	p.CategoryID = in.CategoryID
	p.Category = nil
	p.Tags = tags
	p.TechStack = in.TechStack
	p.RepoURL = in.RepoURL
	p.DemoURL = in.DemoURL
	p.HeroImage = in.HeroImage
	p.Screenshots = in.Screenshots
	p.Features = in.Features
	p.Changelog = in.Changelog
	if in.Version != "" {
		p.Version = in.Version
	}
}

// ProjectPage is one page of a project listing.
type ProjectPage struct {
	Projects []models.Project `json:"projects"`
	Total    int64            `json:"total"`
	Page     int              `json:"page"`
	Limit    int              `json:"limit"`
	Pages    int              `json:"pages"`
}

// ProjectEvent is the notification payload sent to a project owner.
type ProjectEvent struct {
	Type      string                  `json:"type"`
	ProjectID uint                    `json:"project_id"`
	Slug      string                  `json:"slug"`
	Title     string                  `json:"title"`
	Action    models.ModerationAction `json:"action"`
	Status    models.ProjectStatus    `json:"status"`
	Message   string                  `json:"message,omitempty"`
	Deadline  *time.Time              `json:"deadline,omitempty"`
}

// ModerationService runs the project lifecycle: submission, owner edits and
// the admin approve / reject / request-changes actions.
type ModerationService struct {
	projects  repository.ProjectRepository
	catalog   repository.CatalogRepository
	publisher Publisher
	now       func() time.Time
}

// NewModerationService returns a new ModerationService. A nil publisher disables notifications.
func NewModerationService(
	projects repository.ProjectRepository,
	catalog repository.CatalogRepository,
	publisher Publisher,
) *ModerationService {
	if publisher == nil {
		publisher = noopPublisher{}
	}
	return &ModerationService{
		projects:  projects,
		catalog:   catalog,
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SubmitProject creates a project owned by actor in the pending queue.
func (s *ModerationService) SubmitProject(ctx context.Context, actor Actor, in ProjectInput) (*models.Project, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	in.normalize()
	if err := in.validate(); err != nil {
		return nil, err
	}

	slug, err := s.assignSlug(ctx, in.Title, 0)
	if err != nil {
		return nil, err
	}
	tags, err := s.resolveCatalog(ctx, in.CategoryID, in.TagIDs)
	if err != nil {
		return nil, err
	}

	project := &models.Project{Slug: slug}
	in.apply(project, tags)
	if err := project.Submit(actor.ID, s.now()); err != nil {
		return nil, err
	}

	if err := s.projects.Create(ctx, project); err != nil {
		return nil, translateWriteError(err)
	}

	observability.ModerationTransitions.WithLabelValues(string(models.ActionSubmit), string(project.Status)).Inc()
	slog.InfoContext(ctx, "project submitted",
		slog.Uint64("project_id", uint64(project.ID)),
		slog.String("slug", project.Slug),
		slog.Uint64("owner_id", uint64(actor.ID)),
	)
	return project, nil
}

// EditProject applies the owner's changes and sends the project back to pending.
func (s *ModerationService) EditProject(ctx context.Context, actor Actor, projectID uint, in ProjectInput) (*models.Project, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !project.IsOwnedBy(actor.ID) {
		return nil, models.NewForbiddenError("only the owner can edit this project")
	}

	in.normalize()
	if err := in.validate(); err != nil {
		return nil, err
	}

	oldSlug := project.Slug
	if in.Title != project.Title {
		slug, err := s.assignSlug(ctx, in.Title, project.ID)
		if err != nil {
			return nil, err
		}
		project.Slug = slug
	}
	tags, err := s.resolveCatalog(ctx, in.CategoryID, in.TagIDs)
	if err != nil {
		return nil, err
	}

	prev := project.Status
	in.apply(project, tags)
	if err := project.MarkEdited(actor.ID, s.now()); err != nil {
		return nil, err
	}
	if err := s.projects.UpdateGuarded(ctx, project, prev, true); err != nil {
		return nil, translateWriteError(err)
	}

	cache.InvalidateProject(ctx, oldSlug, project.Slug)
	if prev == models.ProjectStatusLive {
		cache.InvalidateCatalog(ctx)
	}
	observability.ModerationTransitions.WithLabelValues(string(models.ActionEdit), string(project.Status)).Inc()
	slog.InfoContext(ctx, "project edited",
		slog.Uint64("project_id", uint64(project.ID)),
		slog.String("from", string(prev)),
		slog.String("slug", project.Slug),
	)
	return project, nil
}

// ApproveProject publishes a pending or needs-changes project.
func (s *ModerationService) ApproveProject(ctx context.Context, actor Actor, projectID uint) (*models.Project, error) {
	return s.transition(ctx, actor, projectID, models.ActionApprove, func(p *models.Project, now time.Time) error {
		return p.Approve(actor.ID, now)
	})
}

// RejectProject declines a project with a reason.
func (s *ModerationService) RejectProject(ctx context.Context, actor Actor, projectID uint, reason string) (*models.Project, error) {
	return s.transition(ctx, actor, projectID, models.ActionReject, func(p *models.Project, now time.Time) error {
		return p.Reject(actor.ID, reason, now)
	})
}

// RequestChanges asks the owner for revisions before deadline.
func (s *ModerationService) RequestChanges(ctx context.Context, actor Actor, projectID uint, feedback string, deadline time.Time) (*models.Project, error) {
	return s.transition(ctx, actor, projectID, models.ActionRequestChanges, func(p *models.Project, now time.Time) error {
		return p.RequestChanges(actor.ID, feedback, deadline, now)
	})
}

// transition loads the project, applies one admin action and persists it with
// a status-guarded write so a concurrent moderator cannot be overwritten.
func (s *ModerationService) transition(
	ctx context.Context,
	actor Actor,
	projectID uint,
	action models.ModerationAction,
	apply func(p *models.Project, now time.Time) error,
) (*models.Project, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	ctx, span := observability.StartSpan(ctx, "moderation."+string(action),
		observability.AttrProjectID.Int64(int64(projectID)),
		observability.AttrAction.String(string(action)),
		observability.AttrActorID.Int64(int64(actor.ID)),
	)
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		observability.EndSpan(span, err)
		return nil, err
	}

	prev := project.Status
	if err := apply(project, s.now()); err != nil {
		observability.EndSpan(span, err)
		return nil, err
	}
	if err := s.projects.UpdateGuarded(ctx, project, prev, false); err != nil {
		err = translateWriteError(err)
		observability.EndSpan(span, err)
		return nil, err
	}
	span.SetAttributes(observability.AttrProjectStatus.String(string(project.Status)))
	observability.EndSpan(span, nil)

	cache.InvalidateProject(ctx, project.Slug)
	observability.ModerationTransitions.WithLabelValues(string(action), string(project.Status)).Inc()
	slog.InfoContext(ctx, "project moderated",
		slog.Uint64("project_id", uint64(project.ID)),
		slog.String("action", string(action)),
		slog.String("from", string(prev)),
		slog.String("to", string(project.Status)),
		slog.Uint64("actor_id", uint64(actor.ID)),
	)
	s.notifyOwner(ctx, project, action)
	if project.Status == models.ProjectStatusLive {
		cache.InvalidateCatalog(ctx)
		s.announce(ctx, project)
	}
	return project, nil
}

// DeleteProject removes a project and everything hanging off it.
func (s *ModerationService) DeleteProject(ctx context.Context, actor Actor, projectID uint) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return err
	}
	if err := s.projects.Delete(ctx, projectID); err != nil {
		return translateWriteError(err)
	}
	cache.InvalidateProject(ctx, project.Slug)
	cache.InvalidateCatalog(ctx)
	slog.InfoContext(ctx, "project deleted",
		slog.Uint64("project_id", uint64(projectID)),
		slog.Uint64("actor_id", uint64(actor.ID)),
	)
	return nil
}

// ListForModeration lists projects for the admin queue, optionally by status
// and a search over title, tagline and description.
func (s *ModerationService) ListForModeration(ctx context.Context, actor Actor, status models.ProjectStatus, search string, page, limit int) (*ProjectPage, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if status != "" && !status.Valid() {
		return nil, models.NewValidationError("unknown project status")
	}
	page, limit, offset := normalizePage(page, limit, 20, 100)
	projects, total, err := s.projects.List(ctx, repository.ProjectFilter{
		Status: status,
		Search: search,
		Sort:   repository.SortRecent,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return newProjectPage(projects, total, page, limit), nil
}

// ListOwnProjects lists every project the actor submitted, in any status.
func (s *ModerationService) ListOwnProjects(ctx context.Context, actor Actor) ([]models.Project, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	projects, _, err := s.projects.List(ctx, repository.ProjectFilter{
		SubmittedBy: actor.ID,
		Sort:        repository.SortRecent,
	})
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return projects, nil
}

// GetProjectForOwner returns a project in any status to its owner or an admin.
func (s *ModerationService) GetProjectForOwner(ctx context.Context, actor Actor, projectID uint) (*models.Project, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !project.IsOwnedBy(actor.ID) && !actor.IsAdmin() {
		return nil, models.NewForbiddenError("not your project")
	}
	return project, nil
}

func (s *ModerationService) assignSlug(ctx context.Context, title string, projectID uint) (string, error) {
	slug := validation.Slugify(title)
	if err := validation.ValidateSlug(slug); err != nil {
		return "", models.NewValidationError(err.Error())
	}
	taken, err := s.projects.SlugTaken(ctx, slug, projectID)
	if err != nil {
		return "", models.NewInternalError(err)
	}
	if taken {
		return "", models.NewConflictError("a project with a similar title already exists")
	}
	return slug, nil
}

func (s *ModerationService) resolveCatalog(ctx context.Context, categoryID uint, tagIDs []uint) ([]models.Tag, error) {
	if _, err := s.catalog.GetCategoryByID(ctx, categoryID); err != nil {
		if models.HasCode(err, models.CodeNotFound) {
			return nil, models.NewValidationError("category does not exist")
		}
		return nil, err
	}
	ids := uniqueIDs(tagIDs)
	tags, err := s.catalog.TagsByIDs(ctx, ids)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if len(tags) != len(ids) {
		return nil, models.NewValidationError("one or more tags do not exist")
	}
	return tags, nil
}

func (s *ModerationService) notifyOwner(ctx context.Context, p *models.Project, action models.ModerationAction) {
	event := ProjectEvent{
		Type:      "project_status",
		ProjectID: p.ID,
		Slug:      p.Slug,
		Title:     p.Title,
		Action:    action,
		Status:    p.Status,
		Message:   p.RejectionReason,
	}
	if p.ChangeRequest != nil {
		event.Message = p.ChangeRequest.Feedback
		deadline := p.ChangeRequest.Deadline
		event.Deadline = &deadline
	}
	publishOwnerEvent(ctx, s.publisher, p.SubmittedBy, event)
}

// announce tells every connected client that a project went live.
func (s *ModerationService) announce(ctx context.Context, p *models.Project) {
	payload, err := json.Marshal(ProjectEvent{
		Type:      "project_published",
		ProjectID: p.ID,
		Slug:      p.Slug,
		Title:     p.Title,
		Action:    models.ActionApprove,
		Status:    p.Status,
	})
	if err != nil {
		return
	}
	if err := s.publisher.PublishBroadcast(ctx, string(payload)); err != nil {
		slog.WarnContext(ctx, "failed to broadcast published project", slog.String("error", err.Error()))
	}
}

func publishOwnerEvent(ctx context.Context, publisher Publisher, ownerID uint, event ProjectEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		slog.ErrorContext(ctx, "failed to encode project event", slog.String("error", err.Error()))
		return
	}
	if err := publisher.PublishUser(ctx, ownerID, string(payload)); err != nil {
		slog.WarnContext(ctx, "failed to publish project event",
			slog.Uint64("project_id", uint64(event.ProjectID)),
			slog.String("error", err.Error()),
		)
	}
}

// translateWriteError maps repository sentinels onto the AppError taxonomy.
func translateWriteError(err error) error {
	var appErr *models.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, repository.ErrStaleWrite):
		return models.NewConflictError("project was changed by another request; reload and try again")
	case errors.Is(err, repository.ErrDuplicate):
		return models.NewConflictError("a project with a similar title already exists")
	default:
		return models.NewInternalError(err)
	}
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func normalizePage(page, limit, def, max int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = def
	}
	if limit > max {
		limit = max
	}
	return page, limit, (page - 1) * limit
}

func newProjectPage(projects []models.Project, total int64, page, limit int) *ProjectPage {
	if projects == nil {
		projects = []models.Project{}
	}
	pages := int((total + int64(limit) - 1) / int64(limit))
	return &ProjectPage{Projects: projects, Total: total, Page: page, Limit: limit, Pages: pages}
}
