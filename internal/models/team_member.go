package models

import (
	"time"

	"github.com/google/uuid"
)

type TeamMember struct {
	TeamID   uuid.UUID `gorm:"type:char(36);primaryKey" json:"team_id"`
	UserID   uuid.UUID `gorm:"type:char(36);primaryKey" json:"user_id"`
	JoinedAt time.Time `gorm:"not null" json:"joined_at"`

	// Relations
	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
