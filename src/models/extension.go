package models

import (
	"crms/src/types"
	"time"

	"github.com/shopspring/decimal"
)

// Extension moves through pending -> approved -> completed. The fee joins
// the booking total at approval time; the booking end date only moves at
// completion. OldEndDate is captured at approval so an aborted extension
// can be rolled back cleanly.
type Extension struct {
	ID uint `gorm:"primarykey" json:"id"`

	BookingID    uint                  `gorm:"index" json:"booking_id"`
	Status       types.ExtensionStatus `gorm:"default:'pending'" json:"status"`
	NewEndDate   time.Time             `json:"new_end_date"`
	OldEndDate   *time.Time            `json:"old_end_date,omitempty"`
	Fee          *decimal.Decimal      `gorm:"type:decimal(12,2)" json:"fee,omitempty"`
	Reason       string                `json:"reason,omitempty"`
	ApprovedByID *uint                 `json:"approved_by_id,omitempty"`
	ApprovedAt   *time.Time            `json:"approved_at,omitempty"`
	CompletedAt  *time.Time            `json:"completed_at,omitempty"`

	types.Timestamps

	Booking Booking `gorm:"foreignKey:booking_id" json:"-"`
}

func (e *Extension) IsActive() bool {
	return e.Status == types.EXTENSION_PENDING || e.Status == types.EXTENSION_APPROVED
}
