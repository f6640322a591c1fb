package database

import "showcase/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Category{},
		&models.Tag{},
		&models.Project{},
		&models.Review{},
		&models.ReviewVote{},
		&models.Bookmark{},
	}
}
