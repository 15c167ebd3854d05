package models

import (
	"crms/src/types"
	"time"

	"github.com/shopspring/decimal"
)

// Payment is an append-only ledger row. Balance is the snapshot of the
// booking balance immediately after this payment was applied, in paid_at
// order. Rows are corrected via the recalculation pass, never edited by hand.
type Payment struct {
	ID uint `gorm:"primarykey" json:"id"`

	BookingID       uint                 `gorm:"index" json:"booking_id"`
	Amount          decimal.Decimal      `gorm:"type:decimal(12,2)" json:"amount"`
	Balance         decimal.Decimal      `gorm:"type:decimal(12,2)" json:"balance"`
	Method          types.PaymentMethod  `json:"method"`
	Purpose         types.PaymentPurpose `gorm:"default:'payment'" json:"purpose"`
	GCashNumber     string               `json:"gcash_number,omitempty"`
	ReferenceNumber string               `json:"reference_number,omitempty"`
	PaidAt          time.Time            `gorm:"index" json:"paid_at"`
	IdempotencyKey  *string              `gorm:"uniqueIndex" json:"idempotency_key,omitempty"`
	ExtensionID     *uint                `json:"extension_id,omitempty"`
	RecordedByID    uint                 `json:"recorded_by_id,omitempty"`
	Metadata        types.JSONB          `gorm:"type:jsonb" json:"metadata,omitempty"`

	types.Timestamps

	Booking   Booking    `gorm:"foreignKey:booking_id" json:"-"`
	Extension *Extension `gorm:"foreignKey:extension_id" json:"-"`
}
