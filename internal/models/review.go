package models

import "time"

// ReviewStatus defines the moderation state of a review.
type ReviewStatus string

const (
	ReviewStatusPending  ReviewStatus = "pending"
	ReviewStatusApproved ReviewStatus = "approved"
	ReviewStatusHidden   ReviewStatus = "hidden"
)

// Valid reports whether s is a known review status.
func (s ReviewStatus) Valid() bool {
	return s == ReviewStatusPending || s == ReviewStatusApproved || s == ReviewStatusHidden
}

// Review is one user's rating and comment on a project.
type Review struct {
	ID        uint         `gorm:"primaryKey" json:"id"`
	ProjectID uint         `gorm:"not null;uniqueIndex:idx_reviews_project_user" json:"project_id"`
	UserID    uint         `gorm:"not null;uniqueIndex:idx_reviews_project_user;index" json:"user_id"`
	User      *User        `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Rating    int          `gorm:"not null" json:"rating"`
	Body      string       `gorm:"type:text;not null" json:"body"`
	Status    ReviewStatus `gorm:"type:varchar(16);not null;default:'approved';index" json:"status"`
	SpamFlag  bool         `gorm:"not null;default:false" json:"spam_flag"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
	// HelpfulCount and AbuseCount are computed from review_votes at query time
	HelpfulCount int64 `gorm:"->;-:migration" json:"helpful_count"`
	AbuseCount   int64 `gorm:"->;-:migration" json:"abuse_count"`
}

// VoteKind distinguishes helpful votes from abuse reports.
type VoteKind string

const (
	VoteHelpful VoteKind = "helpful"
	VoteAbuse   VoteKind = "abuse"
)

// ReviewVote is a single user's helpful vote or abuse report on a review.
type ReviewVote struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ReviewID  uint      `gorm:"not null;uniqueIndex:idx_review_votes_unique" json:"review_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_review_votes_unique" json:"user_id"`
	Kind      VoteKind  `gorm:"type:varchar(16);not null;uniqueIndex:idx_review_votes_unique" json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}
