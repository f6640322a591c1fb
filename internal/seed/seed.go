package seed

import (
	"context"
	"fmt"
	"log"

	"showcase/internal/models"
	"showcase/internal/repository"
	"showcase/internal/service"

	"gorm.io/gorm"
)

// Options configures a Seed run.
type Options struct {
	NumUsers             int
	NumProjects          int
	MaxReviewsPerProject int
	MaxDays              int
	ShouldClean          bool
	DryRun               bool
	RandomSeed           int64
}

// Summary counts what a Seed run created.
type Summary struct {
	Categories int
	Tags       int
	Users      int
	Projects   map[models.ProjectStatus]int
	Reviews    int
}

// AdminEmail is the address of the administrator account Seed always creates.
const AdminEmail = "admin@example.com"

// statusWeights spreads generated projects across the moderation states.
var statusWeights = []struct {
	status models.ProjectStatus
	weight int
}{
	{models.ProjectStatusLive, 6},
	{models.ProjectStatusPending, 2},
	{models.ProjectStatusNeedsChanges, 1},
	{models.ProjectStatusRejected, 1},
}

// Seed loads the catalog and fills the database with demo users, projects
// and reviews. Ratings of every live project are recomputed at the end.
func Seed(ctx context.Context, db *gorm.DB, opts Options) (*Summary, error) {
	log.Printf("🌱 Seeding %d users and %d projects...", opts.NumUsers, opts.NumProjects)

	if opts.ShouldClean && !opts.DryRun {
		if err := clearData(db); err != nil {
			return nil, fmt.Errorf("clear data: %w", err)
		}
	}

	file, err := DefaultCatalog()
	if err != nil {
		return nil, err
	}
	summary := &Summary{Projects: make(map[models.ProjectStatus]int)}
	factory := NewFactory(db, opts)

	var (
		categories []models.Category
		tags       []models.Tag
	)
	if opts.DryRun {
		categories, tags = dryRunCatalog(factory, file)
	} else {
		categories, tags, err = Catalog(ctx, repository.NewCatalogRepository(db), file)
		if err != nil {
			return nil, err
		}
	}
	summary.Categories, summary.Tags = len(categories), len(tags)
	log.Printf("✓ catalog: %d categories, %d tags", summary.Categories, summary.Tags)

	admin, err := factory.CreateUser(func(u *models.User) {
		u.Name = "Showcase Admin"
		u.Email = AdminEmail
		u.Role = models.RoleAdmin
	})
	if err != nil {
		return nil, fmt.Errorf("create admin: %w", err)
	}
	users := []*models.User{admin}
	for attempts := 0; len(users) < opts.NumUsers+1 && attempts < 3*opts.NumUsers; attempts++ {
		user, err := factory.CreateUser()
		if err != nil {
			log.Printf("skipping user: %v", err)
			continue
		}
		users = append(users, user)
	}
	summary.Users = len(users)
	log.Printf("✓ %d users", summary.Users)

	if opts.NumProjects > 0 && len(users) < 2 {
		return nil, fmt.Errorf("need at least one regular user to own projects, have %d", len(users)-1)
	}

	var live []*models.Project
	for i := 0; i < opts.NumProjects; i++ {
		owner := users[1+factory.rng.Intn(len(users)-1)]
		category := &categories[factory.rng.Intn(len(categories))]
		status := factory.pickStatus()
		project, err := factory.CreateProject(owner, admin, category, factory.pickTags(tags, 3), status)
		if err != nil {
			log.Printf("skipping project: %v", err)
			continue
		}
		summary.Projects[status]++
		if status == models.ProjectStatusLive {
			live = append(live, project)
		}
	}
	log.Printf("✓ projects: %v", summary.Projects)

	for _, project := range live {
		for _, author := range factory.pickReviewers(users, project, opts.MaxReviewsPerProject) {
			if _, err := factory.CreateReview(project, author); err != nil {
				log.Printf("skipping review: %v", err)
				continue
			}
			summary.Reviews++
		}
	}
	log.Printf("✓ %d reviews", summary.Reviews)

	if !opts.DryRun {
		ratings := service.NewRatingAggregator(repository.NewProjectRepository(db), repository.NewReviewRepository(db))
		for _, project := range live {
			if _, _, err := ratings.Recompute(ctx, project.ID); err != nil {
				return nil, err
			}
		}
	}

	log.Println("🎉 Seeding complete")
	return summary, nil
}

func (f *Factory) pickStatus() models.ProjectStatus {
	total := 0
	for _, w := range statusWeights {
		total += w.weight
	}
	n := f.rng.Intn(total)
	for _, w := range statusWeights {
		if n < w.weight {
			return w.status
		}
		n -= w.weight
	}
	return models.ProjectStatusPending
}

func (f *Factory) pickTags(tags []models.Tag, max int) []models.Tag {
	if len(tags) == 0 {
		return nil
	}
	n := 1 + f.rng.Intn(max)
	picked := make([]models.Tag, 0, n)
	for _, i := range f.rng.Perm(len(tags))[:min(n, len(tags))] {
		picked = append(picked, tags[i])
	}
	return picked
}

// pickReviewers returns up to max distinct users other than the project owner.
func (f *Factory) pickReviewers(users []*models.User, project *models.Project, max int) []*models.User {
	if max <= 0 {
		return nil
	}
	n := f.rng.Intn(max + 1)
	out := make([]*models.User, 0, n)
	for _, i := range f.rng.Perm(len(users)) {
		if len(out) == n {
			break
		}
		if users[i].ID == project.SubmittedBy || users[i].IsAdmin() {
			continue
		}
		out = append(out, users[i])
	}
	return out
}

func dryRunCatalog(f *Factory, file *CatalogFile) ([]models.Category, []models.Tag) {
	categories := make([]models.Category, len(file.Categories))
	for i, c := range file.Categories {
		f.nextID++
		categories[i] = models.Category{ID: f.nextID, Name: c.Name, Slug: c.Slug}
	}
	tags := make([]models.Tag, len(file.Tags))
	for i, t := range file.Tags {
		f.nextID++
		tags[i] = models.Tag{ID: f.nextID, Name: t.Name, Slug: t.Slug}
	}
	return categories, tags
}

// clearData removes users and everything they own. The catalog is kept.
func clearData(db *gorm.DB) error {
	log.Println("🗑️  Clearing existing data...")
	if db.Dialector.Name() == "postgres" {
		return db.Exec(`TRUNCATE TABLE review_votes, reviews, bookmarks, project_tags, projects, users RESTART IDENTITY CASCADE`).Error
	}
	for _, table := range []string{"review_votes", "reviews", "bookmarks", "project_tags", "projects", "users"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return err
		}
	}
	return nil
}
