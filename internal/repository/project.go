package repository

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"showcase/internal/models"
	"showcase/internal/observability"

	"gorm.io/gorm"
)

// Project sort orders accepted by List.
const (
	SortRecent   = "recent"
	SortRating   = "rating"
	SortTrending = "trending"
)

// ProjectFilter narrows a project listing. Zero values mean "no filter".
type ProjectFilter struct {
	Status       models.ProjectStatus
	CategorySlug string
	TagSlugs     []string
	Search       string
	MinRating    float64
	SubmittedBy  uint
	Sort         string
	Limit        int
	Offset       int
}

// ChangeRequestStats counts needs-changes projects by how soon their deadline
// falls. The 24h bucket includes overdue rows not yet swept; the 72h bucket
// holds only deadlines between 24h and 72h out.
type ChangeRequestStats struct {
	Total             int64 `gorm:"column:total" json:"total"`
	ExpiringWithin24h int64 `gorm:"column:expiring_within24h" json:"expiring_within_24h"`
	ExpiringWithin72h int64 `gorm:"column:expiring_within72h" json:"expiring_within_72h"`
}

// ProjectTotals are the headline numbers for the admin dashboard.
type ProjectTotals struct {
	Projects int64 `json:"projects"`
	Pending  int64 `json:"pending"`
	Live     int64 `json:"live"`
	Views    int64 `json:"views"`
}

// ProjectRepository defines persistence operations for projects.
type ProjectRepository interface {
	Create(ctx context.Context, project *models.Project) error
	GetByID(ctx context.Context, id uint) (*models.Project, error)
	GetBySlug(ctx context.Context, slug string) (*models.Project, error)
	SlugTaken(ctx context.Context, slug string, excludeID uint) (bool, error)
	UpdateGuarded(ctx context.Context, project *models.Project, expected models.ProjectStatus, replaceTags bool) error
	ListExpired(ctx context.Context, now time.Time) ([]models.Project, error)
	ChangeRequestStats(ctx context.Context, now time.Time) (ChangeRequestStats, error)
	List(ctx context.Context, filter ProjectFilter) ([]models.Project, int64, error)
	ListSimilar(ctx context.Context, project *models.Project, limit int) ([]models.Project, error)
	IncrementViews(ctx context.Context, id uint) (int64, error)
	UpdateRating(ctx context.Context, id uint, avg float64, count int64) error
	Delete(ctx context.Context, id uint) error
	Totals(ctx context.Context) (ProjectTotals, error)
}

// updatableColumns are the columns a moderation or edit write may touch.
// Counters (views, ratings) are written by their own statements.
var updatableColumns = []string{
	"slug", "title", "tagline", "description", "category_id", "tech_stack",
	"repo_url", "demo_url", "version", "hero_image", "screenshots", "features",
	"changelog", "status", "rejection_reason", "admin_notes", "change_request",
	"change_deadline", "reviewed_by", "reviewed_at", "review_history", "revision", "updated_at",
}

type projectRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewProjectRepository returns a new ProjectRepository implementation.
func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{db: db, log: observability.NewRepoLogger("projects")}
}

func (r *projectRepository) Create(ctx context.Context, project *models.Project) error {
	err := r.db.WithContext(ctx).Omit("Category", "Submitter", "Tags.*").Create(project).Error
	if err != nil {
		r.log.LogError(ctx, err, "create")
		return translate(err)
	}
	r.log.LogCreate(ctx, observability.ID(project.ID), slog.String("slug", project.Slug))
	return nil
}

func (r *projectRepository) GetByID(ctx context.Context, id uint) (*models.Project, error) {
	q := r.db.WithContext(ctx).Preload("Category").Preload("Tags")
	return first[models.Project](q, "Project", id, id)
}

func (r *projectRepository) GetBySlug(ctx context.Context, slug string) (*models.Project, error) {
	q := readDB(r.db).WithContext(ctx).
		Preload("Category").
		Preload("Tags").
		Preload("Submitter").
		Where("slug = ?", slug)
	return first[models.Project](q, "Project", slug)
}

func (r *projectRepository) SlugTaken(ctx context.Context, slug string, excludeID uint) (bool, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&models.Project{}).Where("slug = ?", slug)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// UpdateGuarded writes project only if the stored row still has the status
// and revision it was loaded with, then bumps the revision. It returns
// ErrStaleWrite when the row has moved on, and ErrDuplicate when the new slug
// collides with another project.
func (r *projectRepository) UpdateGuarded(ctx context.Context, project *models.Project, expected models.ProjectStatus, replaceTags bool) error {
	seen := project.Revision
	project.Revision = seen + 1
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(project).
			Where("status = ? AND revision = ?", expected, seen).
			Select(updatableColumns).
			Updates(project)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&models.Project{}).Where("id = ?", project.ID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return models.NewNotFoundError("Project", project.ID)
			}
			return ErrStaleWrite
		}
		if replaceTags {
			if err := tx.Model(project).Association("Tags").Replace(project.Tags); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		project.Revision = seen
		if !errors.Is(err, ErrStaleWrite) && !models.HasCode(err, models.CodeNotFound) {
			r.log.LogError(ctx, err, "update")
		}
		return translate(err)
	}
	r.log.LogUpdate(ctx, observability.ID(project.ID), slog.String("status", string(project.Status)))
	return nil
}

func (r *projectRepository) ListExpired(ctx context.Context, now time.Time) ([]models.Project, error) {
	var projects []models.Project
	err := r.db.WithContext(ctx).
		Where("status = ? AND change_deadline IS NOT NULL AND change_deadline < ?", models.ProjectStatusNeedsChanges, now).
		Order("change_deadline ASC").
		Find(&projects).Error
	return projects, err
}

func (r *projectRepository) ChangeRequestStats(ctx context.Context, now time.Time) (ChangeRequestStats, error) {
	var stats ChangeRequestStats
	err := readDB(r.db).WithContext(ctx).
		Model(&models.Project{}).
		Select(
			"COUNT(*) AS total, "+
				"COUNT(CASE WHEN change_deadline < ? THEN 1 END) AS expiring_within24h, "+
				"COUNT(CASE WHEN change_deadline >= ? AND change_deadline < ? THEN 1 END) AS expiring_within72h",
			now.Add(24*time.Hour), now.Add(24*time.Hour), now.Add(72*time.Hour),
		).
		Where("status = ?", models.ProjectStatusNeedsChanges).
		Scan(&stats).Error
	return stats, err
}

func (r *projectRepository) List(ctx context.Context, filter ProjectFilter) ([]models.Project, int64, error) {
	db := readDB(r.db).WithContext(ctx)
	q := db.Model(&models.Project{})

	if filter.Status != "" {
		q = q.Where("projects.status = ?", filter.Status)
	}
	if filter.SubmittedBy != 0 {
		q = q.Where("projects.submitted_by = ?", filter.SubmittedBy)
	}
	if filter.CategorySlug != "" {
		q = q.Where("projects.category_id IN (?)",
			db.Model(&models.Category{}).Select("id").Where("slug = ?", filter.CategorySlug))
	}
	if len(filter.TagSlugs) > 0 {
		q = q.Where("projects.id IN (?)",
			db.Table("project_tags").
				Select("project_tags.project_id").
				Joins("JOIN tags ON tags.id = project_tags.tag_id").
				Where("tags.slug IN ?", filter.TagSlugs))
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(projects.title) LIKE ? OR LOWER(projects.tagline) LIKE ? OR LOWER(projects.description) LIKE ?", like, like, like)
	}
	if filter.MinRating > 0 {
		q = q.Where("projects.avg_rating >= ?", filter.MinRating)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	switch filter.Sort {
	case SortRating:
		q = q.Order("projects.avg_rating DESC").Order("projects.ratings_count DESC")
	case SortTrending:
		q = q.Order("projects.view_count DESC").Order("projects.avg_rating DESC")
	default:
		q = q.Order("projects.updated_at DESC")
	}
	q = q.Order("projects.id DESC")

	q = q.Scopes(paginate(filter.Limit, filter.Offset))

	var projects []models.Project
	if err := q.Preload("Category").Preload("Tags").Find(&projects).Error; err != nil {
		return nil, 0, err
	}
	return projects, total, nil
}

func (r *projectRepository) ListSimilar(ctx context.Context, project *models.Project, limit int) ([]models.Project, error) {
	var projects []models.Project
	err := readDB(r.db).WithContext(ctx).
		Where("status = ? AND category_id = ? AND id <> ?", models.ProjectStatusLive, project.CategoryID, project.ID).
		Order("avg_rating DESC").
		Order("id DESC").
		Limit(limit).
		Preload("Tags").
		Find(&projects).Error
	return projects, err
}

// IncrementViews counts one view and returns the new total.
func (r *projectRepository) IncrementViews(ctx context.Context, id uint) (int64, error) {
	var views int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.Project{}).
			Where("id = ?", id).
			UpdateColumn("view_count", gorm.Expr("view_count + ?", 1)).Error
		if err != nil {
			return err
		}
		return tx.Model(&models.Project{}).Select("view_count").Where("id = ?", id).Scan(&views).Error
	})
	return views, err
}

func (r *projectRepository) UpdateRating(ctx context.Context, id uint, avg float64, count int64) error {
	return r.db.WithContext(ctx).
		Model(&models.Project{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"avg_rating":    avg,
			"ratings_count": count,
		}).Error
}

// Delete removes a project along with its reviews, votes, bookmarks and tag links.
func (r *projectRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reviewIDs := tx.Model(&models.Review{}).Select("id").Where("project_id = ?", id)
		if err := tx.Where("review_id IN (?)", reviewIDs).Delete(&models.ReviewVote{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", id).Delete(&models.Review{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", id).Delete(&models.Bookmark{}).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM project_tags WHERE project_id = ?", id).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Project{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Project", id)
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.log.LogDelete(ctx, observability.ID(id))
	return nil
}

func (r *projectRepository) Totals(ctx context.Context) (ProjectTotals, error) {
	var totals ProjectTotals
	err := readDB(r.db).WithContext(ctx).
		Model(&models.Project{}).
		Select(
			"COUNT(*) AS projects, "+
				"COUNT(CASE WHEN status = ? THEN 1 END) AS pending, "+
				"COUNT(CASE WHEN status = ? THEN 1 END) AS live, "+
				"COALESCE(SUM(view_count), 0) AS views",
			models.ProjectStatusPending, models.ProjectStatusLive,
		).
		Scan(&totals).Error
	return totals, err
}
