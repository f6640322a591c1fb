// Package seed loads the category and tag catalog and generates demo data
// for development databases.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"showcase/internal/models"
	"showcase/internal/validation"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// Factory builds domain entities and persists them to the database.
// It is a thin helper used by Seed and tests.
type Factory struct {
	db     *gorm.DB
	opts   Options
	faker  *gofakeit.Faker
	rng    *rand.Rand
	now    time.Time
	nextID uint
}

// NewFactory creates a Factory bound to db. opts.RandomSeed makes output
// reproducible; zero picks a random seed.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	seed := opts.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Factory{
		db:     db,
		opts:   opts,
		faker:  gofakeit.New(seed),
		rng:    rand.New(rand.NewSource(seed)), //nolint:gosec // demo data only
		now:    time.Now().UTC().Truncate(time.Second),
		nextID: 1000,
	}
}

func (f *Factory) pastTime() time.Time {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	back := time.Duration(f.rng.Intn(maxDays))*24*time.Hour + time.Duration(f.rng.Intn(24*60))*time.Minute
	return f.now.Add(-back)
}

// BuildUser returns an unsaved user with a filled-in profile.
func (f *Factory) BuildUser(overrides ...func(*models.User)) *models.User {
	username := fmt.Sprintf("%s%d", f.faker.Username(), f.faker.Number(100, 9999))
	user := &models.User{
		Name:  f.faker.Name(),
		Email: fmt.Sprintf("%s@example.com", username),
		Image: fmt.Sprintf("https://i.pravatar.cc/150?u=%s", username),
		Role:  models.RoleUser,
		Bio:   f.faker.Sentence(10),
		SocialLinks: []models.SocialLink{
			{Platform: "github", URL: "https://github.com/" + username},
		},
		CreatedAt: f.pastTime(),
	}
	for _, override := range overrides {
		override(user)
	}
	return user
}

// CreateUser builds and persists a user.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	user := f.BuildUser(overrides...)
	if f.opts.DryRun {
		f.nextID++
		user.ID = f.nextID
		log.Printf("[dry-run] CreateUser: %s <%s>", user.Name, user.Email)
		return user, nil
	}
	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// BuildProject returns an unsaved project owned by owner that has been driven
// through the moderation transitions needed to reach status. admin is recorded
// as the reviewer for every transition after submission.
func (f *Factory) BuildProject(owner, admin *models.User, category *models.Category, tags []models.Tag, status models.ProjectStatus) (*models.Project, error) {
	title := fmt.Sprintf("%s %d", f.faker.AppName(), f.faker.Number(1, 9999))
	techStack := make([]string, 0, len(tags))
	for _, tag := range tags {
		techStack = append(techStack, tag.Name)
	}
	features := make([]string, 3)
	for i := range features {
		features[i] = f.faker.Sentence(6)
	}

	submitted := f.pastTime()
	project := &models.Project{
		Title:       title,
		Tagline:     f.faker.Sentence(6),
		Description: f.faker.Paragraph(2, 3, 12, "\n\n"),
		CategoryID:  category.ID,
		Tags:        tags,
		TechStack:   techStack,
		DemoURL:     f.faker.URL(),
		Version:     f.faker.AppVersion(),
		HeroImage:   fmt.Sprintf("https://picsum.photos/seed/%s/1200/630", f.faker.UUID()),
		Features:    features,
		CreatedAt:   submitted,
	}
	project.Slug = validation.Slugify(title)
	project.RepoURL = fmt.Sprintf("https://github.com/%s/%s", f.faker.Username(), project.Slug)
	if len(project.Tagline) > 100 {
		project.Tagline = project.Tagline[:100]
	}

	if err := project.Submit(owner.ID, submitted); err != nil {
		return nil, err
	}
	reviewed := submitted.Add(time.Duration(1+f.rng.Intn(72)) * time.Hour)
	var err error
	switch status {
	case models.ProjectStatusPending:
	case models.ProjectStatusLive:
		err = project.Approve(admin.ID, reviewed)
	case models.ProjectStatusRejected:
		err = project.Reject(admin.ID, "Does not meet the showcase guidelines.", reviewed)
	case models.ProjectStatusNeedsChanges:
		deadline := f.now.Add(time.Duration(1+f.rng.Intn(7*24)) * time.Hour)
		err = project.RequestChanges(admin.ID, "Please add screenshots and a longer description.", deadline, reviewed)
	default:
		err = fmt.Errorf("unknown project status %q", status)
	}
	if err != nil {
		return nil, err
	}
	return project, nil
}

// CreateProject builds and persists a project.
func (f *Factory) CreateProject(owner, admin *models.User, category *models.Category, tags []models.Tag, status models.ProjectStatus) (*models.Project, error) {
	project, err := f.BuildProject(owner, admin, category, tags, status)
	if err != nil {
		return nil, err
	}
	if f.opts.DryRun {
		f.nextID++
		project.ID = f.nextID
		log.Printf("[dry-run] CreateProject: %s (%s)", project.Slug, project.Status)
		return project, nil
	}
	// tags already exist; only the join rows are written
	if err := f.db.Omit("Category", "Submitter", "Tags.*").Create(project).Error; err != nil {
		return nil, err
	}
	return project, nil
}

// BuildReview returns an unsaved approved review. Ratings lean positive.
func (f *Factory) BuildReview(project *models.Project, author *models.User) *models.Review {
	ratings := []int{1, 2, 3, 3, 4, 4, 4, 5, 5, 5}
	return &models.Review{
		ProjectID: project.ID,
		UserID:    author.ID,
		Rating:    ratings[f.rng.Intn(len(ratings))],
		Body:      f.faker.Paragraph(1, 2, 10, " "),
		Status:    models.ReviewStatusApproved,
		CreatedAt: project.CreatedAt.Add(time.Duration(1+f.rng.Intn(240)) * time.Hour),
	}
}

// CreateReview builds and persists a review.
func (f *Factory) CreateReview(project *models.Project, author *models.User) (*models.Review, error) {
	review := f.BuildReview(project, author)
	if f.opts.DryRun {
		f.nextID++
		review.ID = f.nextID
		return review, nil
	}
	if err := f.db.Omit("User").Create(review).Error; err != nil {
		return nil, err
	}
	return review, nil
}
