package repository

import (
	"context"

	"showcase/internal/cache"
	"showcase/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const categoryCountColumns = "categories.*, " +
	"(SELECT COUNT(*) FROM projects WHERE projects.category_id = categories.id AND projects.status = 'live') AS project_count"

// CatalogRepository defines persistence operations for categories and tags.
type CatalogRepository interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	ListTags(ctx context.Context) ([]models.Tag, error)
	GetCategoryByID(ctx context.Context, id uint) (*models.Category, error)
	GetCategoryBySlug(ctx context.Context, slug string) (*models.Category, error)
	TagsByIDs(ctx context.Context, ids []uint) ([]models.Tag, error)
	UpsertCategory(ctx context.Context, category *models.Category) error
	UpsertTag(ctx context.Context, tag *models.Tag) error
}

type catalogRepository struct {
	db *gorm.DB
}

// NewCatalogRepository returns a new CatalogRepository implementation.
func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	err := cache.CacheAside(ctx, cache.CategoriesKey, &categories, cache.CatalogTTL, func() error {
		return readDB(r.db).WithContext(ctx).
			Select(categoryCountColumns).
			Order("categories.name ASC").
			Find(&categories).Error
	})
	return categories, err
}

func (r *catalogRepository) ListTags(ctx context.Context) ([]models.Tag, error) {
	var tags []models.Tag
	err := cache.CacheAside(ctx, cache.TagsKey, &tags, cache.CatalogTTL, func() error {
		return readDB(r.db).WithContext(ctx).Order("name ASC").Find(&tags).Error
	})
	return tags, err
}

func (r *catalogRepository) GetCategoryByID(ctx context.Context, id uint) (*models.Category, error) {
	return first[models.Category](r.db.WithContext(ctx), "Category", id, id)
}

func (r *catalogRepository) GetCategoryBySlug(ctx context.Context, slug string) (*models.Category, error) {
	q := readDB(r.db).WithContext(ctx).
		Select(categoryCountColumns).
		Where("categories.slug = ?", slug)
	return first[models.Category](q, "Category", slug)
}

// TagsByIDs returns the tags matching ids. Unknown ids are silently skipped;
// callers compare lengths when they need every id to resolve.
func (r *catalogRepository) TagsByIDs(ctx context.Context, ids []uint) ([]models.Tag, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var tags []models.Tag
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id ASC").Find(&tags).Error
	return tags, err
}

func (r *catalogRepository) UpsertCategory(ctx context.Context, category *models.Category) error {
	if category.Color == "" {
		category.Color = models.DefaultCategoryColor
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "slug"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "description", "color", "updated_at"}),
		}).Create(category).Error
		if err != nil {
			return err
		}
		var stored models.Category
		if err := tx.Where("slug = ?", category.Slug).First(&stored).Error; err != nil {
			return err
		}
		*category = stored
		return nil
	})
	if err != nil {
		return err
	}
	cache.InvalidateCatalog(ctx)
	return nil
}

func (r *catalogRepository) UpsertTag(ctx context.Context, tag *models.Tag) error {
	if tag.Color == "" {
		tag.Color = models.DefaultTagColor
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "slug"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "color", "updated_at"}),
		}).Create(tag).Error
		if err != nil {
			return err
		}
		var stored models.Tag
		if err := tx.Where("slug = ?", tag.Slug).First(&stored).Error; err != nil {
			return err
		}
		*tag = stored
		return nil
	})
	if err != nil {
		return err
	}
	cache.InvalidateCatalog(ctx)
	return nil
}
