// Package models contains data structures for the application's domain models.
package models

import "time"

// UserRole is the sole authorization gate for moderation actions.
type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

// Valid reports whether r is a known role.
func (r UserRole) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// SocialLink is a profile link shown next to a user's projects.
type SocialLink struct {
	Platform string `json:"platform"`
	URL      string `json:"url"`
}

// User represents an account on the showcase.
type User struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	Name        string       `gorm:"size:120;not null" json:"name"`
	Email       string       `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Image       string       `json:"image"`
	Role        UserRole     `gorm:"type:varchar(16);not null;default:'user'" json:"role"`
	Bio         string       `gorm:"type:text" json:"bio"`
	SocialLinks []SocialLink `gorm:"serializer:json;type:jsonb" json:"social_links"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// IsAdmin reports whether the user may moderate.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}
