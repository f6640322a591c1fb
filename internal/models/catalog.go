package models

import "time"

const (
	DefaultCategoryColor = "#ef4444"
	DefaultTagColor      = "#6b7280"
)

// Category groups projects; each project belongs to exactly one.
type Category struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:80;not null" json:"name"`
	Slug        string    `gorm:"size:80;not null;uniqueIndex" json:"slug"`
	Description string    `gorm:"type:text" json:"description"`
	Color       string    `gorm:"size:16;not null;default:'#ef4444'" json:"color"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	// ProjectCount is the number of live projects, computed at query time
	ProjectCount int64 `gorm:"->;-:migration" json:"project_count"`
}

// Tag is a free label attached to many projects.
type Tag struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:60;not null" json:"name"`
	Slug      string    `gorm:"size:60;not null;uniqueIndex" json:"slug"`
	Color     string    `gorm:"size:16;not null;default:'#6b7280'" json:"color"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Bookmark records a user saving a project.
type Bookmark struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_bookmarks_user_project" json:"user_id"`
	ProjectID uint      `gorm:"not null;uniqueIndex:idx_bookmarks_user_project;index" json:"project_id"`
	Project   *Project  `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
