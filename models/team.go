package models

import "time"

// Team is a group of participants sharing one hardware budget
type Team struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"uniqueIndex;not null;size:100" json:"name"`
	PasswordHash string    `gorm:"not null" json:"-"`
	Approved     bool      `gorm:"default:false;index" json:"approved"`
	CreatedAt    time.Time `json:"created_at"`

	// Relations
	Members []TeamMember `gorm:"foreignKey:TeamID" json:"members,omitempty"`
}

// TeamMember links a user to their team. UserID is unique: a user is in
// at most one team, and leaving deletes the row.
type TeamMember struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	TeamID   uint      `gorm:"not null;index" json:"team_id"`
	UserID   uint      `gorm:"not null;uniqueIndex" json:"user_id"`
	JoinedAt time.Time `gorm:"not null" json:"joined_at"`

	// Relations
	Team *Team `gorm:"foreignKey:TeamID" json:"-"`
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
