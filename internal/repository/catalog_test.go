package repository

import (
	"context"
	"testing"

	"showcase/internal/models"
	"showcase/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogRepository_CategoriesCountLiveProjects(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewCatalogRepository(db)
	ctx := context.Background()

	owner := testutil.CreateUser(t, db, "owner", models.RoleUser)
	tools := testutil.CreateCategory(t, db, "Tools", "tools")
	testutil.CreateCategory(t, db, "Art", "art")
	testutil.CreateProject(t, db, owner, tools, "one", models.ProjectStatusLive)
	testutil.CreateProject(t, db, owner, tools, "two", models.ProjectStatusLive)
	testutil.CreateProject(t, db, owner, tools, "three", models.ProjectStatusPending)

	categories, err := repo.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, categories, 2)
	assert.Equal(t, "art", categories[0].Slug)
	assert.Zero(t, categories[0].ProjectCount)
	assert.Equal(t, int64(2), categories[1].ProjectCount)

	bySlug, err := repo.GetCategoryBySlug(ctx, "tools")
	require.NoError(t, err)
	assert.Equal(t, int64(2), bySlug.ProjectCount)

	_, err = repo.GetCategoryBySlug(ctx, "missing")
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestCatalogRepository_Upserts(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewCatalogRepository(db)
	ctx := context.Background()

	category := &models.Category{Name: "Tools", Slug: "tools"}
	require.NoError(t, repo.UpsertCategory(ctx, category))
	assert.NotZero(t, category.ID)
	assert.Equal(t, models.DefaultCategoryColor, category.Color)

	renamed := &models.Category{Name: "Developer Tools", Slug: "tools", Color: "#000000"}
	require.NoError(t, repo.UpsertCategory(ctx, renamed))
	assert.Equal(t, category.ID, renamed.ID)
	assert.Equal(t, "Developer Tools", renamed.Name)

	tag := &models.Tag{Name: "Go", Slug: "go"}
	require.NoError(t, repo.UpsertTag(ctx, tag))
	require.NoError(t, repo.UpsertTag(ctx, &models.Tag{Name: "Golang", Slug: "go"}))

	tags, err := repo.ListTags(ctx)
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, "Golang", tags[0].Name)

	resolved, err := repo.TagsByIDs(ctx, []uint{tag.ID, 999})
	require.NoError(t, err)
	assert.Len(t, resolved, 1)
}

func TestBookmarkRepository_Toggle(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewBookmarkRepository(db)
	ctx := context.Background()

	owner := testutil.CreateUser(t, db, "owner", models.RoleUser)
	category := testutil.CreateCategory(t, db, "Tools", "tools")
	project := testutil.CreateProject(t, db, owner, category, "saved", models.ProjectStatusLive)

	on, err := repo.Toggle(ctx, owner.ID, project.ID)
	require.NoError(t, err)
	assert.True(t, on)

	bookmarks, err := repo.ListByUser(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, bookmarks, 1)
	require.NotNil(t, bookmarks[0].Project)
	assert.Equal(t, "saved", bookmarks[0].Project.Slug)

	on, err = repo.Toggle(ctx, owner.ID, project.ID)
	require.NoError(t, err)
	assert.False(t, on)

	bookmarks, err = repo.ListByUser(ctx, owner.ID)
	require.NoError(t, err)
	assert.Empty(t, bookmarks)
}

func TestUserRepository_Roles(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := &models.User{Name: "Dana", Email: "Dana@Example.com"}
	require.NoError(t, repo.Create(ctx, user))
	assert.Equal(t, models.RoleUser, user.Role)

	assert.ErrorIs(t, repo.Create(ctx, &models.User{Name: "Dup", Email: "Dana@Example.com"}), ErrDuplicate)

	found, err := repo.GetByEmail(ctx, "  dana@example.com ")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)

	require.NoError(t, repo.SetRole(ctx, user.ID, models.RoleAdmin))
	admins, err := repo.ListByRole(ctx, models.RoleAdmin)
	require.NoError(t, err)
	require.Len(t, admins, 1)
	assert.True(t, admins[0].IsAdmin())

	err = repo.SetRole(ctx, 999, models.RoleAdmin)
	assert.True(t, models.HasCode(err, models.CodeNotFound))

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestUserRepository_List(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	for _, name := range []string{"ann", "bob", "cat"} {
		testutil.CreateUser(t, db, name, models.RoleUser)
	}

	users, total, err := repo.List(ctx, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, users, 2)

	users, _, err = repo.List(ctx, 2, 2)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}
