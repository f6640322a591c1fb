package repository

import (
	"context"
	"log/slog"
	"time"

	"showcase/internal/models"
	"showcase/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const reviewCountColumns = "reviews.*, " +
	"(SELECT COUNT(*) FROM review_votes WHERE review_votes.review_id = reviews.id AND review_votes.kind = 'helpful') AS helpful_count, " +
	"(SELECT COUNT(*) FROM review_votes WHERE review_votes.review_id = reviews.id AND review_votes.kind = 'abuse') AS abuse_count"

// ReviewStatusCounts is the number of reviews in each moderation state.
type ReviewStatusCounts struct {
	Pending  int64 `json:"pending"`
	Approved int64 `json:"approved"`
	Hidden   int64 `json:"hidden"`
}

// ReviewRepository defines persistence operations for reviews and their votes.
type ReviewRepository interface {
	Create(ctx context.Context, review *models.Review) error
	GetByID(ctx context.Context, id uint) (*models.Review, error)
	ExistsForAuthor(ctx context.Context, projectID, userID uint) (bool, error)
	Update(ctx context.Context, review *models.Review) error
	Delete(ctx context.Context, id uint) error
	ListApproved(ctx context.Context, projectID uint) ([]models.Review, error)
	ListByStatus(ctx context.Context, status models.ReviewStatus, limit, offset int) ([]models.Review, int64, error)
	ApprovedRatings(ctx context.Context, projectID uint) ([]int, error)
	CountRecentByUser(ctx context.Context, userID uint, since time.Time) (int64, error)
	AddVote(ctx context.Context, reviewID, userID uint, kind models.VoteKind) (bool, error)
	CountByStatus(ctx context.Context) (ReviewStatusCounts, error)
}

type reviewRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewReviewRepository returns a new ReviewRepository implementation.
func NewReviewRepository(db *gorm.DB) ReviewRepository {
	return &reviewRepository{db: db, log: observability.NewRepoLogger("reviews")}
}

func (r *reviewRepository) Create(ctx context.Context, review *models.Review) error {
	if err := r.db.WithContext(ctx).Omit("User").Create(review).Error; err != nil {
		if IsDuplicate(err) {
			return ErrDuplicate
		}
		r.log.LogError(ctx, err, "create")
		return err
	}
	r.log.LogCreate(ctx, observability.ID(review.ID),
		slog.Uint64("project_id", uint64(review.ProjectID)),
		slog.String("status", string(review.Status)))
	return nil
}

func (r *reviewRepository) GetByID(ctx context.Context, id uint) (*models.Review, error) {
	q := r.db.WithContext(ctx).Select(reviewCountColumns).Preload("User")
	return first[models.Review](q, "Review", id, id)
}

func (r *reviewRepository) ExistsForAuthor(ctx context.Context, projectID, userID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Review{}).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *reviewRepository) Update(ctx context.Context, review *models.Review) error {
	err := r.db.WithContext(ctx).
		Model(review).
		Select("rating", "body", "status", "spam_flag", "updated_at").
		Updates(review).Error
	if err != nil {
		r.log.LogError(ctx, err, "update")
		return err
	}
	r.log.LogUpdate(ctx, observability.ID(review.ID), slog.String("status", string(review.Status)))
	return nil
}

func (r *reviewRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("review_id = ?", id).Delete(&models.ReviewVote{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Review{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Review", id)
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.log.LogDelete(ctx, observability.ID(id))
	return nil
}

// ListApproved returns every approved review of a project, unordered.
// Ranking happens in the service layer.
func (r *reviewRepository) ListApproved(ctx context.Context, projectID uint) ([]models.Review, error) {
	var reviews []models.Review
	err := readDB(r.db).WithContext(ctx).
		Select(reviewCountColumns).
		Where("reviews.project_id = ? AND reviews.status = ?", projectID, models.ReviewStatusApproved).
		Preload("User").
		Find(&reviews).Error
	return reviews, err
}

func (r *reviewRepository) ListByStatus(ctx context.Context, status models.ReviewStatus, limit, offset int) ([]models.Review, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Review{})
	if status != "" {
		q = q.Where("reviews.status = ?", status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var reviews []models.Review
	err := q.Select(reviewCountColumns).
		Preload("User").
		Order("reviews.created_at DESC").
		Order("reviews.id DESC").
		Scopes(paginate(limit, offset)).
		Find(&reviews).Error
	return reviews, total, err
}

func (r *reviewRepository) ApprovedRatings(ctx context.Context, projectID uint) ([]int, error) {
	var ratings []int
	err := r.db.WithContext(ctx).
		Model(&models.Review{}).
		Where("project_id = ? AND status = ?", projectID, models.ReviewStatusApproved).
		Pluck("rating", &ratings).Error
	return ratings, err
}

func (r *reviewRepository) CountRecentByUser(ctx context.Context, userID uint, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Review{}).
		Where("user_id = ? AND created_at > ?", userID, since).
		Count(&count).Error
	return count, err
}

// AddVote records a vote and reports whether it was new. Repeat votes are no-ops.
func (r *reviewRepository) AddVote(ctx context.Context, reviewID, userID uint, kind models.VoteKind) (bool, error) {
	vote := models.ReviewVote{ReviewID: reviewID, UserID: userID, Kind: kind}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&vote)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *reviewRepository) CountByStatus(ctx context.Context) (ReviewStatusCounts, error) {
	var counts ReviewStatusCounts
	err := readDB(r.db).WithContext(ctx).
		Model(&models.Review{}).
		Select(
			"COUNT(CASE WHEN status = ? THEN 1 END) AS pending, "+
				"COUNT(CASE WHEN status = ? THEN 1 END) AS approved, "+
				"COUNT(CASE WHEN status = ? THEN 1 END) AS hidden",
			models.ReviewStatusPending, models.ReviewStatusApproved, models.ReviewStatusHidden,
		).
		Scan(&counts).Error
	return counts, err
}
