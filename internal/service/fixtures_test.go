package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"showcase/internal/models"
	"showcase/internal/repository"
	"showcase/internal/testutil"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// recordingPublisher captures notifications instead of sending them.
type recordingPublisher struct {
	mu        sync.Mutex
	user      map[uint][]string
	broadcast []string
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{user: make(map[uint][]string)}
}

func (p *recordingPublisher) PublishUser(_ context.Context, userID uint, payload string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.user[userID] = append(p.user[userID], payload)
	return nil
}

func (p *recordingPublisher) PublishBroadcast(_ context.Context, payload string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.broadcast = append(p.broadcast, payload)
	return nil
}

func (p *recordingPublisher) eventsFor(t *testing.T, userID uint) []map[string]any {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]map[string]any, 0, len(p.user[userID]))
	for _, raw := range p.user[userID] {
		var event map[string]any
		require.NoError(t, json.Unmarshal([]byte(raw), &event))
		out = append(out, event)
	}
	return out
}

// flagStub turns on exactly the named flags.
type flagStub map[string]bool

func (f flagStub) Enabled(name string, _ uint) bool { return f[name] }

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	db         *gorm.DB
	projects   repository.ProjectRepository
	reviews    repository.ReviewRepository
	users      repository.UserRepository
	catalog    repository.CatalogRepository
	bookmarks  repository.BookmarkRepository
	publisher  *recordingPublisher
	flags      flagStub
	moderation *ModerationService
	reviewSvc  *ReviewService
	admin      Actor
	owner      Actor
	category   *models.Category
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	env := &testEnv{
		db:        db,
		projects:  repository.NewProjectRepository(db),
		reviews:   repository.NewReviewRepository(db),
		users:     repository.NewUserRepository(db),
		catalog:   repository.NewCatalogRepository(db),
		bookmarks: repository.NewBookmarkRepository(db),
		publisher: newRecordingPublisher(),
		flags:     flagStub{},
	}
	env.moderation = NewModerationService(env.projects, env.catalog, env.publisher)
	env.moderation.now = func() time.Time { return fixedNow }

	ratings := NewRatingAggregator(env.projects, env.reviews)
	env.reviewSvc = NewReviewService(env.reviews, env.projects, env.users, ratings, env.flags, env.publisher, "")
	env.reviewSvc.now = func() time.Time { return fixedNow }

	admin := testutil.CreateUser(t, db, "admin", models.RoleAdmin)
	owner := testutil.CreateUser(t, db, "owner", models.RoleUser)
	env.admin = Actor{ID: admin.ID, Role: admin.Role}
	env.owner = Actor{ID: owner.ID, Role: owner.Role}
	env.category = testutil.CreateCategory(t, db, "Developer Tools", "developer-tools")
	return env
}

func (e *testEnv) input(title string) ProjectInput {
	return ProjectInput{
		Title:       title,
		Tagline:     "A short tagline",
		Description: "A description that is long enough to pass validation.",
		CategoryID:  e.category.ID,
		TechStack:   []string{"Go", "PostgreSQL"},
		RepoURL:     "https://github.com/example/project",
	}
}

// submit creates a pending project owned by the env owner.
func (e *testEnv) submit(t *testing.T, title string) *models.Project {
	t.Helper()
	project, err := e.moderation.SubmitProject(context.Background(), e.owner, e.input(title))
	require.NoError(t, err)
	return project
}

// live creates a project and approves it.
func (e *testEnv) live(t *testing.T, title string) *models.Project {
	t.Helper()
	project := e.submit(t, title)
	project, err := e.moderation.ApproveProject(context.Background(), e.admin, project.ID)
	require.NoError(t, err)
	return project
}

// user creates a regular user with an established profile, so the spam
// heuristic does not fire on account age or an empty bio.
func (e *testEnv) user(t *testing.T, name string) Actor {
	t.Helper()
	u := testutil.CreateUser(t, e.db, name, models.RoleUser)
	require.NoError(t, e.db.Model(u).UpdateColumns(map[string]any{
		"bio":        "Builds things in Go",
		"created_at": fixedNow.AddDate(-1, 0, 0),
	}).Error)
	return Actor{ID: u.ID, Role: u.Role}
}
