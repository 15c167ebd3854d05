package models

import (
	"crms/src/types"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EventLog is the audit trail. Every ledger mutation writes one of these in
// the same transaction, and the row is mirrored to the booking-events topic.
type EventLog struct {
	ID uuid.UUID `gorm:"primarykey;type:uuid" json:"id"`

	Type      string      `json:"type"`
	BookingID *uint       `gorm:"index" json:"booking_id,omitempty"`
	Initiator string      `json:"initiator,omitempty"`
	Metadata  types.JSONB `gorm:"type:jsonb" json:"metadata,omitempty"`

	types.Timestamps
}

func (e *EventLog) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
