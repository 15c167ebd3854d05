package ledger

import (
	"crms/src/db"
	"crms/src/models"
	"crms/src/types"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type RecordRefundInput struct {
	BookingID      uint
	Amount         decimal.Decimal
	Method         types.PaymentMethod
	Reason         string
	IdempotencyKey *string
	RecordedByID   uint
}

// RecordRefund gives money back without touching the payment rows: refunds
// live in their own table so the payment ledger stays append-only. A
// canceled booking whose refunds cover everything paid is marked refunded.
func RecordRefund(input RecordRefundInput) (*models.Refund, error) {
	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidAmount
	}
	unlock := lockBooking(input.BookingID)
	defer unlock()

	var refund models.Refund
	conn := db.GetDb()
	err := conn.Transaction(func(tx *gorm.DB) error {
		var booking models.Booking
		if err := lockForUpdate(tx).
			Where(&models.Booking{ID: input.BookingID}).
			First(&booking).
			Error; err != nil {
			return ErrBookingNotFound
		}
		if input.IdempotencyKey != nil {
			var count int64
			if err := tx.
				Model(&models.Refund{}).
				Where("idempotency_key = ?", *input.IdempotencyKey).
				Count(&count).
				Error; err != nil {
				return err
			}
			if count > 0 {
				return ErrDuplicateIdempotencyKey
			}
		}
		var payments []*models.Payment
		if err := tx.
			Where(&models.Payment{BookingID: booking.ID}).
			Find(&payments).
			Error; err != nil {
			return err
		}
		paid := decimal.Zero
		for _, p := range payments {
			paid = paid.Add(p.Amount)
		}
		var refunded decimal.NullDecimal
		if err := tx.
			Model(&models.Refund{}).
			Where(&models.Refund{BookingID: booking.ID}).
			Select("SUM(amount)").
			Scan(&refunded).
			Error; err != nil {
			return err
		}
		already := decimal.Zero
		if refunded.Valid {
			already = refunded.Decimal
		}
		if input.Amount.Add(already).GreaterThan(paid) {
			return ErrRefundExceedsPaid
		}

		refund = models.Refund{
			BookingID:      booking.ID,
			Amount:         input.Amount,
			Method:         input.Method,
			Reason:         input.Reason,
			RefundedAt:     time.Now(),
			IdempotencyKey: input.IdempotencyKey,
			RecordedByID:   input.RecordedByID,
		}
		if err := tx.Create(&refund).Error; err != nil {
			return err
		}
		if booking.Status == types.BOOKING_CANCELED && input.Amount.Add(already).Equal(paid) {
			if err := tx.
				Model(&models.Booking{}).
				Where(&models.Booking{ID: booking.ID}).
				Update("payment_status", types.PAYMENT_REFUNDED).
				Error; err != nil {
				return err
			}
		}
		return logEvent(tx, "refund.recorded", booking.ID, input.RecordedByID, types.JSONB{
			"refund_id": refund.ID,
			"amount":    refund.Amount.String(),
			"reason":    refund.Reason,
		})
	})
	if err != nil {
		return nil, err
	}
	go mirrorEvent("refund.recorded", refund.BookingID, types.JSONB{"refund_id": refund.ID})
	return &refund, nil
}
