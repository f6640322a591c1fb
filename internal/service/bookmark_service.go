package service

import (
	"context"

	"showcase/internal/models"
	"showcase/internal/repository"
)

// BookmarkService lets users save live projects.
type BookmarkService struct {
	bookmarks repository.BookmarkRepository
	projects  repository.ProjectRepository
}

// NewBookmarkService returns a new BookmarkService.
func NewBookmarkService(bookmarks repository.BookmarkRepository, projects repository.ProjectRepository) *BookmarkService {
	return &BookmarkService{bookmarks: bookmarks, projects: projects}
}

// Toggle flips the bookmark on a live project and reports the new state.
func (s *BookmarkService) Toggle(ctx context.Context, actor Actor, slug string) (bool, error) {
	if err := requireUser(actor); err != nil {
		return false, err
	}
	project, err := s.projects.GetBySlug(ctx, slug)
	if err != nil {
		return false, err
	}
	if project.Status != models.ProjectStatusLive {
		return false, models.NewNotFoundError("Project", slug)
	}
	bookmarked, err := s.bookmarks.Toggle(ctx, actor.ID, project.ID)
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return bookmarked, nil
}

// List returns the actor's bookmarks, newest first.
func (s *BookmarkService) List(ctx context.Context, actor Actor) ([]models.Bookmark, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	bookmarks, err := s.bookmarks.ListByUser(ctx, actor.ID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if bookmarks == nil {
		bookmarks = []models.Bookmark{}
	}
	return bookmarks, nil
}
