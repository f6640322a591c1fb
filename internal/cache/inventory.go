package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	ProjectKeyPrefix = "project:%s"
	CategoriesKey    = "catalog:categories"
	TagsKey          = "catalog:tags"
	SweepLockKey     = "lock:deadline-sweep"
)

const (
	ProjectTTL = 2 * time.Minute
	CatalogTTL = 10 * time.Minute
)

// ProjectKey is the cache key for a live project's detail payload.
func ProjectKey(slug string) string {
	return fmt.Sprintf(ProjectKeyPrefix, slug)
}

// Invalidate deletes keys; a missing client is a no-op.
func Invalidate(ctx context.Context, keys ...string) {
	if client != nil && len(keys) > 0 {
		client.Del(ctx, keys...)
	}
}

// InvalidateProject drops cached detail payloads for every slug the project has had.
func InvalidateProject(ctx context.Context, slugs ...string) {
	keys := make([]string, 0, len(slugs))
	for _, slug := range slugs {
		if slug != "" {
			keys = append(keys, ProjectKey(slug))
		}
	}
	Invalidate(ctx, keys...)
}

// InvalidateCatalog drops cached category and tag listings.
func InvalidateCatalog(ctx context.Context) {
	Invalidate(ctx, CategoriesKey, TagsKey)
}
