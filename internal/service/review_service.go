package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"showcase/internal/featureflags"
	"showcase/internal/models"
	"showcase/internal/observability"
	"showcase/internal/repository"
	"showcase/internal/validation"
)

const (
	defaultReviewPageSize = 10
	maxReviewPageSize     = 50
	spamWindow            = 24 * time.Hour
)

// ReviewPage is one page of ranked reviews.
type ReviewPage struct {
	Reviews  []models.Review `json:"reviews"`
	Total    int64           `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
	Pages    int             `json:"pages"`
	HasNext  bool            `json:"has_next"`
	HasPrev  bool            `json:"has_prev"`
}

func newReviewPage(reviews []models.Review, total int64, page, pageSize int) *ReviewPage {
	if reviews == nil {
		reviews = []models.Review{}
	}
	pages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return &ReviewPage{
		Reviews:  reviews,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		Pages:    pages,
		HasNext:  page < pages,
		HasPrev:  page > 1,
	}
}

// ReviewService manages reviews, votes and the rating recompute they trigger.
type ReviewService struct {
	reviews       repository.ReviewRepository
	projects      repository.ProjectRepository
	users         repository.UserRepository
	ratings       *RatingAggregator
	flags         FlagChecker
	publisher     Publisher
	defaultStatus models.ReviewStatus
	now           func() time.Time
}

// NewReviewService returns a new ReviewService. defaultStatus is the status
// given to new reviews that are not held as spam; empty means approved.
func NewReviewService(
	reviews repository.ReviewRepository,
	projects repository.ProjectRepository,
	users repository.UserRepository,
	ratings *RatingAggregator,
	flags FlagChecker,
	publisher Publisher,
	defaultStatus models.ReviewStatus,
) *ReviewService {
	if publisher == nil {
		publisher = noopPublisher{}
	}
	if defaultStatus == "" {
		defaultStatus = models.ReviewStatusApproved
	}
	return &ReviewService{
		reviews:       reviews,
		projects:      projects,
		users:         users,
		ratings:       ratings,
		flags:         flags,
		publisher:     publisher,
		defaultStatus: defaultStatus,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// SubmitReview records actor's review of a live project.
func (s *ReviewService) SubmitReview(ctx context.Context, actor Actor, projectID uint, rating int, body string) (*models.Review, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	body = strings.TrimSpace(body)
	if err := validateReview(rating, body); err != nil {
		return nil, err
	}

	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.Status != models.ProjectStatusLive {
		return nil, models.NewValidationError("reviews are only accepted on live projects")
	}

	exists, err := s.reviews.ExistsForAuthor(ctx, projectID, actor.ID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if exists {
		return nil, duplicateReviewError()
	}

	author, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	recent, err := s.reviews.CountRecentByUser(ctx, actor.ID, now.Add(-spamWindow))
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	spam := IsSpam(SpamInput{Body: body, RecentReviews: recent, Author: author, Now: now})

	status := s.defaultStatus
	if spam && s.flags != nil && s.flags.Enabled(featureflags.SpamHold, actor.ID) {
		status = models.ReviewStatusPending
	}

	review := &models.Review{
		ProjectID: projectID,
		UserID:    actor.ID,
		Rating:    rating,
		Body:      body,
		Status:    status,
		SpamFlag:  spam,
	}
	if err := s.reviews.Create(ctx, review); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, duplicateReviewError()
		}
		return nil, models.NewInternalError(err)
	}
	review.User = author

	if err := s.recompute(ctx, projectID); err != nil {
		return nil, err
	}

	observability.ReviewsSubmitted.WithLabelValues(string(status), strconv.FormatBool(spam)).Inc()
	slog.InfoContext(ctx, "review submitted",
		slog.Uint64("review_id", uint64(review.ID)),
		slog.Uint64("project_id", uint64(projectID)),
		slog.String("status", string(status)),
		slog.Bool("spam_flag", spam),
	)
	s.notifyNewReview(ctx, project, review)
	return review, nil
}

// UpdateReview lets the author change rating and body.
func (s *ReviewService) UpdateReview(ctx context.Context, actor Actor, reviewID uint, rating int, body string) (*models.Review, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	body = strings.TrimSpace(body)
	if err := validateReview(rating, body); err != nil {
		return nil, err
	}
	review, err := s.reviews.GetByID(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if review.UserID != actor.ID {
		return nil, models.NewForbiddenError("only the author can edit this review")
	}

	review.Rating = rating
	review.Body = body
	if err := s.reviews.Update(ctx, review); err != nil {
		return nil, models.NewInternalError(err)
	}
	if err := s.recompute(ctx, review.ProjectID); err != nil {
		return nil, err
	}
	return review, nil
}

// SetReviewStatus moves a review between pending, approved and hidden.
func (s *ReviewService) SetReviewStatus(ctx context.Context, actor Actor, reviewID uint, status models.ReviewStatus) (*models.Review, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, models.NewValidationError("status must be one of pending, approved, hidden")
	}
	review, err := s.reviews.GetByID(ctx, reviewID)
	if err != nil {
		return nil, err
	}

	prev := review.Status
	review.Status = status
	if err := s.reviews.Update(ctx, review); err != nil {
		return nil, models.NewInternalError(err)
	}
	if err := s.recompute(ctx, review.ProjectID); err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "review status changed",
		slog.Uint64("review_id", uint64(review.ID)),
		slog.String("from", string(prev)),
		slog.String("to", string(status)),
		slog.Uint64("actor_id", uint64(actor.ID)),
	)
	return review, nil
}

// DeleteReview removes a review. Authors may delete their own; admins any.
func (s *ReviewService) DeleteReview(ctx context.Context, actor Actor, reviewID uint) error {
	if err := requireUser(actor); err != nil {
		return err
	}
	review, err := s.reviews.GetByID(ctx, reviewID)
	if err != nil {
		return err
	}
	if review.UserID != actor.ID && !actor.IsAdmin() {
		return models.NewForbiddenError("not allowed to delete this review")
	}
	if err := s.reviews.Delete(ctx, reviewID); err != nil {
		return err
	}
	return s.recompute(ctx, review.ProjectID)
}

// ListReviews returns one page of a project's approved reviews ranked by sortMode.
func (s *ReviewService) ListReviews(ctx context.Context, projectID uint, sortMode string, page, pageSize int) (*ReviewPage, error) {
	mode, err := ParseSortMode(sortMode)
	if err != nil {
		return nil, err
	}
	if _, err := s.projects.GetByID(ctx, projectID); err != nil {
		return nil, err
	}
	page, pageSize, offset := normalizePage(page, pageSize, defaultReviewPageSize, maxReviewPageSize)

	reviews, err := s.reviews.ListApproved(ctx, projectID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	RankReviews(reviews, mode)

	total := int64(len(reviews))
	if offset >= len(reviews) {
		return newReviewPage(nil, total, page, pageSize), nil
	}
	end := offset + pageSize
	if end > len(reviews) {
		end = len(reviews)
	}
	return newReviewPage(reviews[offset:end], total, page, pageSize), nil
}

// VoteHelpful records actor's helpful vote on a review.
func (s *ReviewService) VoteHelpful(ctx context.Context, actor Actor, reviewID uint) (*models.Review, error) {
	return s.vote(ctx, actor, reviewID, models.VoteHelpful)
}

// ReportAbuse records actor's abuse report on a review.
func (s *ReviewService) ReportAbuse(ctx context.Context, actor Actor, reviewID uint) (*models.Review, error) {
	return s.vote(ctx, actor, reviewID, models.VoteAbuse)
}

func (s *ReviewService) vote(ctx context.Context, actor Actor, reviewID uint, kind models.VoteKind) (*models.Review, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	review, err := s.reviews.GetByID(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if review.UserID == actor.ID {
		return nil, models.NewForbiddenError("cannot vote on your own review")
	}
	if _, err := s.reviews.AddVote(ctx, reviewID, actor.ID, kind); err != nil {
		return nil, models.NewInternalError(err)
	}
	return s.reviews.GetByID(ctx, reviewID)
}

// ListForModeration lists reviews for the admin queue, newest first.
func (s *ReviewService) ListForModeration(ctx context.Context, actor Actor, status models.ReviewStatus, page, pageSize int) (*ReviewPage, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if status != "" && !status.Valid() {
		return nil, models.NewValidationError("unknown review status")
	}
	page, pageSize, offset := normalizePage(page, pageSize, 20, 100)
	reviews, total, err := s.reviews.ListByStatus(ctx, status, pageSize, offset)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return newReviewPage(reviews, total, page, pageSize), nil
}

func (s *ReviewService) recompute(ctx context.Context, projectID uint) error {
	if _, _, err := s.ratings.Recompute(ctx, projectID); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (s *ReviewService) notifyNewReview(ctx context.Context, project *models.Project, review *models.Review) {
	if project.SubmittedBy == review.UserID {
		return
	}
	payload, err := json.Marshal(map[string]interface{}{
		"type":       "review_created",
		"project_id": project.ID,
		"slug":       project.Slug,
		"review_id":  review.ID,
		"rating":     review.Rating,
		"status":     review.Status,
	})
	if err != nil {
		return
	}
	if err := s.publisher.PublishUser(ctx, project.SubmittedBy, string(payload)); err != nil {
		slog.WarnContext(ctx, "failed to publish review event", slog.String("error", err.Error()))
	}
}

func validateReview(rating int, body string) error {
	if err := validation.Rating(rating); err != nil {
		return models.NewValidationError(err.Error())
	}
	if err := validation.ReviewBody(body); err != nil {
		return models.NewValidationError(err.Error())
	}
	return nil
}

func duplicateReviewError() error {
	return models.NewConflictError("you have already reviewed this project")
}
