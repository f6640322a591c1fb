package models

import (
	"strings"
	"time"
)

// ProjectStatus defines the moderation state of a project.
type ProjectStatus string

const (
	// ProjectStatusPending indicates a project is awaiting moderation.
	ProjectStatusPending ProjectStatus = "pending"
	// ProjectStatusLive indicates a project is publicly listed.
	ProjectStatusLive ProjectStatus = "live"
	// ProjectStatusRejected indicates a project was declined.
	ProjectStatusRejected ProjectStatus = "rejected"
	// ProjectStatusNeedsChanges indicates the owner must revise the project before a deadline.
	ProjectStatusNeedsChanges ProjectStatus = "needs-changes"
)

// Valid reports whether s is a known project status.
func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectStatusPending, ProjectStatusLive, ProjectStatusRejected, ProjectStatusNeedsChanges:
		return true
	}
	return false
}

const (
	// AutoRejectReason is the rejection reason set by the deadline sweep.
	AutoRejectReason = "Deadline exceeded - changes not submitted in time"
	// AutoRejectNotes is the history note recorded by the deadline sweep.
	AutoRejectNotes = "auto-rejected: deadline exceeded"
	// DefaultProjectVersion is assigned when a submission omits a version.
	DefaultProjectVersion = "1.0.0"
)

// ChangeRequest is the feedback an administrator attaches when asking for revisions.
type ChangeRequest struct {
	Feedback    string    `json:"feedback"`
	Deadline    time.Time `json:"deadline"`
	RequestedBy uint      `json:"requested_by"`
	RequestedAt time.Time `json:"requested_at"`
}

// ReviewHistoryEntry is one line of a project's moderation audit trail.
// ActorID is nil for system actions.
type ReviewHistoryEntry struct {
	Action    ModerationAction `json:"action"`
	ActorID   *uint            `json:"actor_id"`
	Timestamp time.Time        `json:"timestamp"`
	Notes     string           `json:"notes,omitempty"`
}

// ChangelogEntry describes one released version of a project.
type ChangelogEntry struct {
	Version string    `json:"version"`
	Date    time.Time `json:"date"`
	Changes []string  `json:"changes"`
}

// Project is a showcased user project and its moderation state.
type Project struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	Slug        string           `gorm:"size:120;not null;uniqueIndex" json:"slug"`
	Title       string           `gorm:"size:100;not null" json:"title"`
	Tagline     string           `gorm:"size:100;not null" json:"tagline"`
	Description string           `gorm:"type:text;not null" json:"description"`
	CategoryID  uint             `gorm:"not null;index" json:"category_id"`
	Category    *Category        `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Tags        []Tag            `gorm:"many2many:project_tags;" json:"tags"`
	TechStack   []string         `gorm:"serializer:json;type:jsonb" json:"tech_stack"`
	RepoURL     string           `json:"repo_url"`
	DemoURL     string           `json:"demo_url"`
	Version     string           `gorm:"size:32;not null;default:'1.0.0'" json:"version"`
	HeroImage   string           `json:"hero_image"`
	Screenshots []string         `gorm:"serializer:json;type:jsonb" json:"screenshots"`
	Features    []string         `gorm:"serializer:json;type:jsonb" json:"features"`
	Changelog   []ChangelogEntry `gorm:"serializer:json;type:jsonb" json:"changelog"`

	Status          ProjectStatus        `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	RejectionReason string               `gorm:"type:text" json:"rejection_reason,omitempty"`
	AdminNotes      string               `gorm:"type:text" json:"admin_notes,omitempty"`
	ChangeRequest   *ChangeRequest       `gorm:"serializer:json;type:jsonb" json:"change_request,omitempty"`
	ChangeDeadline  *time.Time           `gorm:"index" json:"-"`
	ReviewedBy      *uint                `json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time           `json:"reviewed_at,omitempty"`
	ReviewHistory   []ReviewHistoryEntry `gorm:"serializer:json;type:jsonb" json:"review_history"`
	// Revision is bumped by every guarded write and compared on the next one.
	Revision int64 `gorm:"not null;default:0" json:"revision"`

	AvgRating    float64 `gorm:"not null;default:0" json:"avg_rating"`
	RatingsCount int64   `gorm:"not null;default:0" json:"ratings_count"`
	ViewCount    int64   `gorm:"not null;default:0" json:"view_count"`

	SubmittedBy uint      `gorm:"not null;index" json:"submitted_by"`
	Submitter   *User     `gorm:"foreignKey:SubmittedBy" json:"submitter,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IsOwnedBy reports whether userID submitted the project.
func (p *Project) IsOwnedBy(userID uint) bool {
	return p.SubmittedBy == userID
}

// Submit puts a freshly built project into the pending queue.
func (p *Project) Submit(ownerID uint, now time.Time) error {
	next, err := p.next(ActionSubmit)
	if err != nil {
		return err
	}
	p.Status = next
	p.SubmittedBy = ownerID
	if p.Version == "" {
		p.Version = DefaultProjectVersion
	}
	p.appendHistory(ActionSubmit, &ownerID, now, "")
	return nil
}

// Approve publishes the project.
func (p *Project) Approve(actorID uint, now time.Time) error {
	next, err := p.next(ActionApprove)
	if err != nil {
		return err
	}
	p.Status = next
	p.RejectionReason = ""
	p.clearChangeRequest()
	p.markReviewed(actorID, now)
	p.appendHistory(ActionApprove, &actorID, now, "")
	return nil
}

// Reject declines the project with a reason shown to the owner.
func (p *Project) Reject(actorID uint, reason string, now time.Time) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return NewValidationError("rejection reason is required")
	}
	next, err := p.next(ActionReject)
	if err != nil {
		return err
	}
	p.Status = next
	p.RejectionReason = reason
	p.clearChangeRequest()
	p.markReviewed(actorID, now)
	p.appendHistory(ActionReject, &actorID, now, reason)
	return nil
}

// RequestChanges asks the owner to revise the project before deadline.
func (p *Project) RequestChanges(actorID uint, feedback string, deadline, now time.Time) error {
	feedback = strings.TrimSpace(feedback)
	if feedback == "" {
		return NewValidationError("feedback is required")
	}
	if !deadline.After(now) {
		return NewValidationError("deadline must be in the future")
	}
	next, err := p.next(ActionRequestChanges)
	if err != nil {
		return err
	}
	p.Status = next
	p.RejectionReason = ""
	p.setChangeRequest(&ChangeRequest{
		Feedback:    feedback,
		Deadline:    deadline.UTC(),
		RequestedBy: actorID,
		RequestedAt: now,
	})
	p.markReviewed(actorID, now)
	p.appendHistory(ActionRequestChanges, &actorID, now, feedback)
	return nil
}

// Expire auto-rejects a project whose change request deadline has passed.
func (p *Project) Expire(now time.Time) error {
	next, err := p.next(ActionExpire)
	if err != nil {
		return err
	}
	if p.ChangeRequest == nil || !p.ChangeRequest.Deadline.Before(now) {
		return NewValidationError("change request deadline has not passed")
	}
	p.Status = next
	p.RejectionReason = AutoRejectReason
	p.clearChangeRequest()
	p.appendHistory(ActionReject, nil, now, AutoRejectNotes)
	return nil
}

// MarkEdited sends the project back to the pending queue after an owner edit.
func (p *Project) MarkEdited(ownerID uint, now time.Time) error {
	next, err := p.next(ActionEdit)
	if err != nil {
		return err
	}
	p.Status = next
	p.RejectionReason = ""
	p.AdminNotes = ""
	p.clearChangeRequest()
	p.appendHistory(ActionEdit, &ownerID, now, "")
	return nil
}

func (p *Project) next(action ModerationAction) (ProjectStatus, error) {
	to, ok := NextStatus(p.Status, action)
	if !ok {
		return "", NewInvalidTransitionError(p.Status, action)
	}
	return to, nil
}

func (p *Project) markReviewed(actorID uint, now time.Time) {
	p.ReviewedBy = &actorID
	p.ReviewedAt = &now
}

func (p *Project) appendHistory(action ModerationAction, actorID *uint, now time.Time, notes string) {
	var actor *uint
	if actorID != nil {
		id := *actorID
		actor = &id
	}
	p.ReviewHistory = append(p.ReviewHistory, ReviewHistoryEntry{
		Action:    action,
		ActorID:   actor,
		Timestamp: now,
		Notes:     notes,
	})
}

func (p *Project) setChangeRequest(cr *ChangeRequest) {
	deadline := cr.Deadline
	p.ChangeRequest = cr
	p.ChangeDeadline = &deadline
}

func (p *Project) clearChangeRequest() {
	p.ChangeRequest = nil
	p.ChangeDeadline = nil
}
