package models

import (
	"time"

	"gorm.io/gorm"
)

// Role is what a user signed up as. It starts unset and is chosen once.
type Role string

const (
	RoleUnset       Role = ""
	RoleParticipant Role = "participant"
	RoleSponsor     Role = "sponsor"
)

// Valid reports whether r is a role a user may select.
func (r Role) Valid() bool {
	return r == RoleParticipant || r == RoleSponsor
}

// User is a portal account created on first identity-provider login
type User struct {
	gorm.Model

	// Identity
	Email string `gorm:"uniqueIndex;not null" json:"email"`
	Name  string `json:"name"`
	UUID  string `gorm:"column:uuid;uniqueIndex;not null" json:"uuid"`

	// Profile information
	ResumeRef string `json:"resume_ref,omitempty"`
	Role      Role   `gorm:"default:''" json:"role"`

	// Relations
	Membership *TeamMember `gorm:"foreignKey:UserID" json:"-"`
}

// HasProfile reports whether the user has uploaded a resume.
func (u *User) HasProfile() bool {
	return u.ResumeRef != ""
}

// ProfileSave is a bookmark one user made of another user's profile,
// usually by scanning their badge QR code.
type ProfileSave struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	ViewerUserID uint      `gorm:"not null;uniqueIndex:idx_profile_saves_pair" json:"viewer_user_id"`
	ViewedUserID uint      `gorm:"not null;uniqueIndex:idx_profile_saves_pair" json:"viewed_user_id"`
	SavedAt      time.Time `gorm:"not null;index" json:"saved_at"`

	// Relations
	Viewer *User `gorm:"foreignKey:ViewerUserID" json:"-"`
	Viewed *User `gorm:"foreignKey:ViewedUserID" json:"viewed,omitempty"`
}
