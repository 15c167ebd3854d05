package models

import (
	"crms/src/types"
	"time"
)

type User struct {
	ID            uint            `gorm:"primarykey" json:"id"`
	Name          string          `json:"name,omitempty"`
	Email         string          `gorm:"uniqueIndex" json:"email,omitempty"`
	Phone         string          `json:"phone,omitempty"`
	Role          types.UserRole  `gorm:"default:'customer'" json:"role,omitempty"`
	PasswordHash  string          `json:"-"`
	EmailVerified bool            `json:"email_verified,omitempty"`
	VerifiedAt    time.Time       `json:"verified_at,omitempty"`
	Metadata      *types.Metadata `gorm:"type:jsonb" json:"metadata,omitempty"`

	Bookings []Booking `gorm:"foreignKey:customer_id" json:"bookings,omitempty"`

	types.Timestamps
}
