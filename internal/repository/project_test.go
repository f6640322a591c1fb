package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"showcase/internal/models"
	"showcase/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func TestProjectRepository_GetByID_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewProjectRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "projects" WHERE "projects"."id" = $1 ORDER BY "projects"."id" LIMIT $2`)).
		WithArgs(42, 1).
		WillReturnError(gorm.ErrRecordNotFound)

	_, err := repo.GetByID(context.Background(), 42)
	require.Error(t, err)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProjectRepository_IncrementViews(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewProjectRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "projects" SET "view_count"=view_count + $1 WHERE id = $2`)).
		WithArgs(1, 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT .*view_count.* FROM "projects" WHERE id = \$1`).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"view_count"}).AddRow(12))
	mock.ExpectCommit()

	views, err := repo.IncrementViews(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(12), views)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProjectRepository_CreateAndGetBySlug(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewProjectRepository(db)
	ctx := context.Background()

	owner := testutil.CreateUser(t, db, "owner", models.RoleUser)
	category := testutil.CreateCategory(t, db, "Tools", "tools")
	tag := testutil.CreateTag(t, db, "Go", "go")

	project := &models.Project{
		Slug:        "my-tool",
		Title:       "My Tool",
		Tagline:     "Does things",
		Description: "A tool that does a number of things",
		CategoryID:  category.ID,
		TechStack:   []string{"go", "postgres"},
		Tags:        []models.Tag{*tag},
	}
	require.NoError(t, project.Submit(owner.ID, time.Now().UTC()))
	require.NoError(t, repo.Create(ctx, project))
	require.NotZero(t, project.ID)

	got, err := repo.GetBySlug(ctx, "my-tool")
	require.NoError(t, err)
	assert.Equal(t, models.ProjectStatusPending, got.Status)
	assert.Equal(t, []string{"go", "postgres"}, got.TechStack)
	require.Len(t, got.Tags, 1)
	assert.Equal(t, "go", got.Tags[0].Slug)
	require.NotNil(t, got.Category)
	assert.Equal(t, "tools", got.Category.Slug)
	require.NotNil(t, got.Submitter)
	assert.Equal(t, owner.ID, got.Submitter.ID)
	require.Len(t, got.ReviewHistory, 1)
	assert.Equal(t, models.ActionSubmit, got.ReviewHistory[0].Action)

	dup := &models.Project{Slug: "my-tool", Title: "Other", Tagline: "x", Description: "another description", CategoryID: category.ID, SubmittedBy: owner.ID, Status: models.ProjectStatusPending}
	assert.ErrorIs(t, repo.Create(ctx, dup), ErrDuplicate)
}

func TestProjectRepository_SlugTaken(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewProjectRepository(db)
	ctx := context.Background()

	owner := testutil.CreateUser(t, db, "owner", models.RoleUser)
	category := testutil.CreateCategory(t, db, "Tools", "tools")
	project := testutil.CreateProject(t, db, owner, category, "taken", models.ProjectStatusLive)

	taken, err := repo.SlugTaken(ctx, "taken", 0)
	require.NoError(t, err)
	assert.True(t, taken)

	taken, err = repo.SlugTaken(ctx, "taken", project.ID)
	require.NoError(t, err)
	assert.False(t, taken)

	taken, err = repo.SlugTaken(ctx, "free", 0)
	require.NoError(t, err)
	assert.False(t, taken)
}

func TestProjectRepository_UpdateGuarded(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewProjectRepository(db)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	owner := testutil.CreateUser(t, db, "owner", models.RoleUser)
	admin := testutil.CreateUser(t, db, "admin", models.RoleAdmin)
	category := testutil.CreateCategory(t, db, "Tools", "tools")
	seeded := testutil.CreateProject(t, db, owner, category, "guarded", models.ProjectStatusPending)

	t.Run("applies when status matches", func(t *testing.T) {
		project, err := repo.GetByID(ctx, seeded.ID)
		require.NoError(t, err)
		require.NoError(t, project.RequestChanges(admin.ID, "Add screenshots", now.Add(48*time.Hour), now))
		require.NoError(t, repo.UpdateGuarded(ctx, project, models.ProjectStatusPending, false))

		stored, err := repo.GetByID(ctx, seeded.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ProjectStatusNeedsChanges, stored.Status)
		require.NotNil(t, stored.ChangeRequest)
		assert.Equal(t, "Add screenshots", stored.ChangeRequest.Feedback)
		require.NotNil(t, stored.ChangeDeadline)
		assert.True(t, stored.ChangeDeadline.Equal(now.Add(48*time.Hour)))
	})

	t.Run("stale status is rejected", func(t *testing.T) {
		project, err := repo.GetByID(ctx, seeded.ID)
		require.NoError(t, err)
		require.NoError(t, project.Approve(admin.ID, now))
		err = repo.UpdateGuarded(ctx, project, models.ProjectStatusPending, false)
		assert.ErrorIs(t, err, ErrStaleWrite)

		stored, err := repo.GetByID(ctx, seeded.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ProjectStatusNeedsChanges, stored.Status)
	})

	t.Run("same status but older revision is rejected", func(t *testing.T) {
		fresh, err := repo.GetByID(ctx, seeded.ID)
		require.NoError(t, err)
		stale, err := repo.GetByID(ctx, seeded.ID)
		require.NoError(t, err)

		require.NoError(t, fresh.RequestChanges(admin.ID, "Add a demo link", now.Add(72*time.Hour), now))
		require.NoError(t, repo.UpdateGuarded(ctx, fresh, models.ProjectStatusNeedsChanges, false))
		assert.Equal(t, stale.Revision+1, fresh.Revision)

		require.NoError(t, stale.Approve(admin.ID, now))
		err = repo.UpdateGuarded(ctx, stale, models.ProjectStatusNeedsChanges, false)
		assert.ErrorIs(t, err, ErrStaleWrite)
		assert.Equal(t, fresh.Revision-1, stale.Revision, "revision is restored after a failed write")

		stored, err := repo.GetByID(ctx, seeded.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ProjectStatusNeedsChanges, stored.Status)
		assert.Equal(t, "Add a demo link", stored.ChangeRequest.Feedback)
		assert.Equal(t, fresh.Revision, stored.Revision)
	})

	t.Run("missing project", func(t *testing.T) {
		ghost := &models.Project{ID: 9999, Status: models.ProjectStatusLive}
		err := repo.UpdateGuarded(ctx, ghost, models.ProjectStatusPending, false)
		assert.True(t, models.HasCode(err, models.CodeNotFound))
	})

	t.Run("replaces tags", func(t *testing.T) {
		first := testutil.CreateTag(t, db, "Web", "web")
		second := testutil.CreateTag(t, db, "CLI", "cli")

		project, err := repo.GetByID(ctx, seeded.ID)
		require.NoError(t, err)
		project.Tags = []models.Tag{*first}
		require.NoError(t, project.MarkEdited(owner.ID, now))
		require.NoError(t, repo.UpdateGuarded(ctx, project, models.ProjectStatusNeedsChanges, true))

		project, err = repo.GetByID(ctx, seeded.ID)
		require.NoError(t, err)
		require.Len(t, project.Tags, 1)
		assert.Equal(t, "web", project.Tags[0].Slug)
		assert.Nil(t, project.ChangeRequest)
		assert.Nil(t, project.ChangeDeadline)

		project.Tags = []models.Tag{*second}
		require.NoError(t, repo.UpdateGuarded(ctx, project, models.ProjectStatusPending, true))
		project, err = repo.GetByID(ctx, seeded.ID)
		require.NoError(t, err)
		require.Len(t, project.Tags, 1)
		assert.Equal(t, "cli", project.Tags[0].Slug)
	})
}

func TestProjectRepository_ListExpiredAndStats(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewProjectRepository(db)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	owner := testutil.CreateUser(t, db, "owner", models.RoleUser)
	category := testutil.CreateCategory(t, db, "Tools", "tools")

	withDeadline := func(slug string, deadline time.Time) *models.Project {
		p := testutil.CreateProject(t, db, owner, category, slug, models.ProjectStatusNeedsChanges)
		require.NoError(t, db.Model(p).Update("change_deadline", deadline).Error)
		return p
	}
	overdue := withDeadline("overdue", now.Add(-time.Hour))
	withDeadline("soon", now.Add(12*time.Hour))
	withDeadline("later", now.Add(48*time.Hour))
	withDeadline("far", now.Add(7*24*time.Hour))
	testutil.CreateProject(t, db, owner, category, "pending", models.ProjectStatusPending)

	expired, err := repo.ListExpired(ctx, now)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, overdue.ID, expired[0].ID)

	stats, err := repo.ChangeRequestStats(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.Total)
	// overdue rows land in the 24h bucket, the 72h bucket starts at 24h
	assert.Equal(t, int64(2), stats.ExpiringWithin24h)
	assert.Equal(t, int64(1), stats.ExpiringWithin72h)
}

func TestProjectRepository_List(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewProjectRepository(db)
	ctx := context.Background()

	owner := testutil.CreateUser(t, db, "owner", models.RoleUser)
	tools := testutil.CreateCategory(t, db, "Tools", "tools")
	games := testutil.CreateCategory(t, db, "Games", "games")
	goTag := testutil.CreateTag(t, db, "Go", "go")

	a := testutil.CreateProject(t, db, owner, tools, "alpha", models.ProjectStatusLive)
	b := testutil.CreateProject(t, db, owner, tools, "beta", models.ProjectStatusLive)
	c := testutil.CreateProject(t, db, owner, games, "gamma", models.ProjectStatusLive)
	testutil.CreateProject(t, db, owner, tools, "hidden", models.ProjectStatusPending)

	require.NoError(t, repo.UpdateRating(ctx, a.ID, 4.5, 2))
	require.NoError(t, repo.UpdateRating(ctx, b.ID, 3.0, 1))
	require.NoError(t, db.Model(c).UpdateColumn("view_count", 50).Error)
	require.NoError(t, db.Model(b).Association("Tags").Append(goTag))

	t.Run("live only sorted by rating", func(t *testing.T) {
		projects, total, err := repo.List(ctx, ProjectFilter{Status: models.ProjectStatusLive, Sort: SortRating})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		require.Len(t, projects, 3)
		assert.Equal(t, "alpha", projects[0].Slug)
		assert.Equal(t, "beta", projects[1].Slug)
	})

	t.Run("trending", func(t *testing.T) {
		projects, _, err := repo.List(ctx, ProjectFilter{Status: models.ProjectStatusLive, Sort: SortTrending})
		require.NoError(t, err)
		assert.Equal(t, "gamma", projects[0].Slug)
	})

	t.Run("category filter", func(t *testing.T) {
		projects, total, err := repo.List(ctx, ProjectFilter{Status: models.ProjectStatusLive, CategorySlug: "games"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, "gamma", projects[0].Slug)
	})

	t.Run("tag filter", func(t *testing.T) {
		projects, total, err := repo.List(ctx, ProjectFilter{Status: models.ProjectStatusLive, TagSlugs: []string{"go"}})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, "beta", projects[0].Slug)
		require.Len(t, projects[0].Tags, 1)
	})

	t.Run("search and min rating", func(t *testing.T) {
		projects, total, err := repo.List(ctx, ProjectFilter{Status: models.ProjectStatusLive, Search: "ALPHA"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, "alpha", projects[0].Slug)

		_, total, err = repo.List(ctx, ProjectFilter{Status: models.ProjectStatusLive, MinRating: 4})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
	})

	t.Run("pagination keeps total", func(t *testing.T) {
		projects, total, err := repo.List(ctx, ProjectFilter{Status: models.ProjectStatusLive, Sort: SortRating, Limit: 1, Offset: 1})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		require.Len(t, projects, 1)
		assert.Equal(t, "beta", projects[0].Slug)
	})

	t.Run("similar excludes self and other categories", func(t *testing.T) {
		similar, err := repo.ListSimilar(ctx, a, 5)
		require.NoError(t, err)
		require.Len(t, similar, 1)
		assert.Equal(t, "beta", similar[0].Slug)
	})

	t.Run("totals", func(t *testing.T) {
		totals, err := repo.Totals(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(4), totals.Projects)
		assert.Equal(t, int64(1), totals.Pending)
		assert.Equal(t, int64(3), totals.Live)
		assert.Equal(t, int64(50), totals.Views)
	})
}

func TestProjectRepository_DeleteCascades(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewProjectRepository(db)
	ctx := context.Background()

	owner := testutil.CreateUser(t, db, "owner", models.RoleUser)
	reviewer := testutil.CreateUser(t, db, "reviewer", models.RoleUser)
	category := testutil.CreateCategory(t, db, "Tools", "tools")
	project := testutil.CreateProject(t, db, owner, category, "doomed", models.ProjectStatusLive)

	review := &models.Review{ProjectID: project.ID, UserID: reviewer.ID, Rating: 5, Body: "Excellent work overall", Status: models.ReviewStatusApproved}
	require.NoError(t, db.Create(review).Error)
	require.NoError(t, db.Create(&models.ReviewVote{ReviewID: review.ID, UserID: owner.ID, Kind: models.VoteHelpful}).Error)
	require.NoError(t, db.Create(&models.Bookmark{UserID: reviewer.ID, ProjectID: project.ID}).Error)

	require.NoError(t, repo.Delete(ctx, project.ID))

	for _, model := range []interface{}{&models.Project{}, &models.Review{}, &models.ReviewVote{}, &models.Bookmark{}} {
		var count int64
		require.NoError(t, db.Model(model).Count(&count).Error)
		assert.Zero(t, count)
	}

	err := repo.Delete(ctx, project.ID)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}
