package repository

import (
	"context"

	"showcase/internal/models"

	"gorm.io/gorm"
)

// BookmarkRepository defines persistence operations for saved projects.
type BookmarkRepository interface {
	Toggle(ctx context.Context, userID, projectID uint) (bool, error)
	ListByUser(ctx context.Context, userID uint) ([]models.Bookmark, error)
}

type bookmarkRepository struct {
	db *gorm.DB
}

// NewBookmarkRepository returns a new BookmarkRepository implementation.
func NewBookmarkRepository(db *gorm.DB) BookmarkRepository {
	return &bookmarkRepository{db: db}
}

// Toggle removes an existing bookmark or creates a missing one, and reports
// whether the project is bookmarked afterwards.
func (r *bookmarkRepository) Toggle(ctx context.Context, userID, projectID uint) (bool, error) {
	var bookmarked bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND project_id = ?", userID, projectID).Delete(&models.Bookmark{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return nil
		}
		bookmarked = true
		return tx.Create(&models.Bookmark{UserID: userID, ProjectID: projectID}).Error
	})
	if err != nil {
		return false, translate(err)
	}
	return bookmarked, nil
}

func (r *bookmarkRepository) ListByUser(ctx context.Context, userID uint) ([]models.Bookmark, error) {
	var bookmarks []models.Bookmark
	err := readDB(r.db).WithContext(ctx).
		Where("user_id = ?", userID).
		Preload("Project").
		Preload("Project.Category").
		Order("created_at DESC").
		Order("id DESC").
		Find(&bookmarks).Error
	return bookmarks, err
}
