package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"showcase/internal/models"
	"showcase/internal/repository"
	"showcase/internal/validation"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// CatalogFile is the on-disk shape of the category and tag seed.
type CatalogFile struct {
	Categories []CategorySeed `yaml:"categories"`
	Tags       []TagSeed      `yaml:"tags"`
}

// CategorySeed is one category entry.
type CategorySeed struct {
	Name        string `yaml:"name"`
	Slug        string `yaml:"slug"`
	Description string `yaml:"description"`
	Color       string `yaml:"color"`
}

// TagSeed is one tag entry.
type TagSeed struct {
	Name  string `yaml:"name"`
	Slug  string `yaml:"slug"`
	Color string `yaml:"color"`
}

// ParseCatalog decodes and validates a catalog file. Missing slugs are
// derived from the name.
func ParseCatalog(data []byte) (*CatalogFile, error) {
	var file CatalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if len(file.Categories) == 0 {
		return nil, errors.New("catalog must define at least one category")
	}

	seen := make(map[string]bool)
	for i := range file.Categories {
		c := &file.Categories[i]
		if c.Slug == "" {
			c.Slug = validation.Slugify(c.Name)
		}
		if err := checkEntry("category", c.Name, c.Slug, seen); err != nil {
			return nil, err
		}
	}
	seen = make(map[string]bool)
	for i := range file.Tags {
		t := &file.Tags[i]
		if t.Slug == "" {
			t.Slug = validation.Slugify(t.Name)
		}
		if err := checkEntry("tag", t.Name, t.Slug, seen); err != nil {
			return nil, err
		}
	}
	return &file, nil
}

func checkEntry(kind, name, slug string, seen map[string]bool) error {
	if name == "" {
		return fmt.Errorf("%s %q has no name", kind, slug)
	}
	if err := validation.ValidateSlug(slug); err != nil {
		return fmt.Errorf("%s %q: %w", kind, name, err)
	}
	if seen[slug] {
		return fmt.Errorf("duplicate %s slug %q", kind, slug)
	}
	seen[slug] = true
	return nil
}

// DefaultCatalog returns the catalog compiled into the binary.
func DefaultCatalog() (*CatalogFile, error) {
	return ParseCatalog(defaultCatalog)
}

// Catalog upserts every category and tag by slug, so it is safe to run on
// every deploy.
func Catalog(ctx context.Context, repo repository.CatalogRepository, file *CatalogFile) ([]models.Category, []models.Tag, error) {
	categories := make([]models.Category, 0, len(file.Categories))
	for _, item := range file.Categories {
		category := models.Category{
			Name:        item.Name,
			Slug:        item.Slug,
			Description: item.Description,
			Color:       item.Color,
		}
		if err := repo.UpsertCategory(ctx, &category); err != nil {
			return nil, nil, fmt.Errorf("upsert category %s: %w", item.Slug, err)
		}
		categories = append(categories, category)
	}

	tags := make([]models.Tag, 0, len(file.Tags))
	for _, item := range file.Tags {
		tag := models.Tag{Name: item.Name, Slug: item.Slug, Color: item.Color}
		if err := repo.UpsertTag(ctx, &tag); err != nil {
			return nil, nil, fmt.Errorf("upsert tag %s: %w", item.Slug, err)
		}
		tags = append(tags, tag)
	}
	return categories, tags, nil
}
