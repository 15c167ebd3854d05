package models

import (
	"crms/src/types"
	"time"

	"github.com/shopspring/decimal"
)

type Refund struct {
	ID uint `gorm:"primarykey" json:"id"`

	BookingID      uint                `gorm:"index" json:"booking_id"`
	Amount         decimal.Decimal     `gorm:"type:decimal(12,2)" json:"amount"`
	Method         types.PaymentMethod `json:"method"`
	Reason         string              `json:"reason,omitempty"`
	RefundedAt     time.Time           `json:"refunded_at"`
	IdempotencyKey *string             `gorm:"uniqueIndex" json:"idempotency_key,omitempty"`
	RecordedByID   uint                `json:"recorded_by_id,omitempty"`

	types.Timestamps

	Booking Booking `gorm:"foreignKey:booking_id" json:"-"`
}
