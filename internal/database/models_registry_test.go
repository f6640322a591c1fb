package database

import (
	"testing"

	"showcase/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestPersistentModels_IncludesReviewVote(t *testing.T) {
	found := false
	for _, model := range PersistentModels() {
		if _, ok := model.(*models.ReviewVote); ok {
			found = true
			break
		}
	}
	require.True(t, found, "PersistentModels should include ReviewVote")
}

func TestPersistentModels_AutoMigrateSQLite(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, runAutoMigrate(db))

	for _, table := range []string{"users", "categories", "tags", "projects", "project_tags", "reviews", "review_votes", "bookmarks"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
	assert.False(t, db.Migrator().HasColumn(&models.Review{}, "helpful_count"))
	assert.True(t, db.Migrator().HasIndex(&models.Review{}, "idx_reviews_project_user"))
	assert.True(t, db.Migrator().HasIndex(&models.Project{}, "idx_projects_live_rating"))
	assert.True(t, db.Migrator().HasIndex(&models.Project{}, "idx_projects_live_views"))

	// The index pass is idempotent.
	require.NoError(t, runAutoMigrate(db))
}
