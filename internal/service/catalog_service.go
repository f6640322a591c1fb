package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"showcase/internal/cache"
	"showcase/internal/featureflags"
	"showcase/internal/models"
	"showcase/internal/repository"
)

const (
	defaultProjectPageSize = 12
	maxProjectPageSize     = 50
	similarProjectsLimit   = 4
)

// ListProjectsInput filters the public project listing.
type ListProjectsInput struct {
	Category  string
	Tags      []string
	Search    string
	MinRating float64
	Sort      string
	Page      int
	Limit     int
}

// ProjectDetail is the public detail payload for a live project.
type ProjectDetail struct {
	Project models.Project   `json:"project"`
	Similar []models.Project `json:"similar"`
}

// CatalogService serves the public, read-only side of the showcase.
type CatalogService struct {
	projects repository.ProjectRepository
	catalog  repository.CatalogRepository
	flags    FlagChecker
	cacheTTL time.Duration
}

// NewCatalogService returns a new CatalogService.
func NewCatalogService(projects repository.ProjectRepository, catalog repository.CatalogRepository, flags FlagChecker, cacheTTL time.Duration) *CatalogService {
	if cacheTTL <= 0 {
		cacheTTL = cache.ProjectTTL
	}
	return &CatalogService{projects: projects, catalog: catalog, flags: flags, cacheTTL: cacheTTL}
}

// ListCategories returns every category with its live project count.
func (s *CatalogService) ListCategories(ctx context.Context) ([]models.Category, error) {
	categories, err := s.catalog.ListCategories(ctx)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return categories, nil
}

// ListTags returns every tag.
func (s *CatalogService) ListTags(ctx context.Context) ([]models.Tag, error) {
	tags, err := s.catalog.ListTags(ctx)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return tags, nil
}

// ListProjects returns one page of live projects.
func (s *CatalogService) ListProjects(ctx context.Context, in ListProjectsInput) (*ProjectPage, error) {
	sortBy := strings.ToLower(strings.TrimSpace(in.Sort))
	switch sortBy {
	case "":
		sortBy = repository.SortRecent
	case repository.SortRecent, repository.SortRating, repository.SortTrending:
	default:
		return nil, models.NewValidationError("sort must be one of recent, rating, trending")
	}
	if in.MinRating < 0 || in.MinRating > 5 {
		return nil, models.NewValidationError("min_rating must be between 0 and 5")
	}

	page, limit, offset := normalizePage(in.Page, in.Limit, defaultProjectPageSize, maxProjectPageSize)
	projects, total, err := s.projects.List(ctx, repository.ProjectFilter{
		Status:       models.ProjectStatusLive,
		CategorySlug: strings.TrimSpace(in.Category),
		TagSlugs:     in.Tags,
		Search:       in.Search,
		MinRating:    in.MinRating,
		Sort:         sortBy,
		Limit:        limit,
		Offset:       offset,
	})
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return newProjectPage(projects, total, page, limit), nil
}

// GetProjectBySlug returns a live project and counts the view. The payload is
// cached; the view counter is incremented and read back on every call.
func (s *CatalogService) GetProjectBySlug(ctx context.Context, slug string) (*ProjectDetail, error) {
	var detail ProjectDetail
	err := cache.CacheAside(ctx, cache.ProjectKey(slug), &detail, s.cacheTTL, func() error {
		project, err := s.projects.GetBySlug(ctx, slug)
		if err != nil {
			return err
		}
		if project.Status != models.ProjectStatusLive {
			return models.NewNotFoundError("Project", slug)
		}
		if project.Submitter != nil {
			project.Submitter.Email = ""
		}
		detail.Project = *project
		detail.Similar = []models.Project{}

		if s.flags != nil && s.flags.Enabled(featureflags.SimilarProjects, 0) {
			similar, err := s.projects.ListSimilar(ctx, project, similarProjectsLimit)
			if err != nil {
				return models.NewInternalError(err)
			}
			detail.Similar = similar
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	views, err := s.projects.IncrementViews(ctx, detail.Project.ID)
	if err != nil {
		slog.WarnContext(ctx, "failed to count project view",
			slog.Uint64("project_id", uint64(detail.Project.ID)),
			slog.String("error", err.Error()),
		)
	} else {
		detail.Project.ViewCount = views
	}
	return &detail, nil
}
