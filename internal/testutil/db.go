// Package testutil provides shared test doubles and fixtures for backend tests.
package testutil

import (
	"fmt"
	"testing"
	"time"

	"showcase/internal/database"
	"showcase/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewSQLiteDB opens a private in-memory database with the full schema migrated.
func NewSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC().Truncate(time.Second) },
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// every connection to ":memory:" is a separate database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))
	return db
}

// CreateUser inserts a user with the given role.
func CreateUser(t *testing.T, db *gorm.DB, name string, role models.UserRole) *models.User {
	t.Helper()
	user := &models.User{
		Name:  name,
		Email: fmt.Sprintf("%s@example.com", name),
		Role:  role,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateCategory inserts a category whose slug is derived from name.
func CreateCategory(t *testing.T, db *gorm.DB, name, slug string) *models.Category {
	t.Helper()
	category := &models.Category{Name: name, Slug: slug, Color: models.DefaultCategoryColor}
	require.NoError(t, db.Create(category).Error)
	return category
}

// CreateTag inserts a tag.
func CreateTag(t *testing.T, db *gorm.DB, name, slug string) *models.Tag {
	t.Helper()
	tag := &models.Tag{Name: name, Slug: slug, Color: models.DefaultTagColor}
	require.NoError(t, db.Create(tag).Error)
	return tag
}

// CreateProject inserts a project directly in the given status, bypassing moderation.
func CreateProject(t *testing.T, db *gorm.DB, owner *models.User, category *models.Category, slug string, status models.ProjectStatus) *models.Project {
	t.Helper()
	project := &models.Project{
		Slug:        slug,
		Title:       "Project " + slug,
		Tagline:     "A tagline for " + slug,
		Description: "A sufficiently long description for " + slug,
		CategoryID:  category.ID,
		Version:     models.DefaultProjectVersion,
		Status:      status,
		SubmittedBy: owner.ID,
	}
	require.NoError(t, db.Omit("Category", "Submitter", "Tags.*").Create(project).Error)
	return project
}
