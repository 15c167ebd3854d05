package ledger

import (
	"crms/src/db"
	"crms/src/models"
	"crms/src/models/scopes"
	"crms/src/types"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RecordPaymentInput struct {
	BookingID       uint
	Amount          decimal.Decimal
	Method          types.PaymentMethod
	Purpose         types.PaymentPurpose
	GCashNumber     string
	ReferenceNumber string
	PaidAt          *time.Time
	IdempotencyKey  *string
	ExtensionID     *uint
	RecordedByID    uint
}

// lockForUpdate takes a row lock on supported dialects. sqlite has no row
// locks; the per-booking mutex covers serialization there.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// RecordPayment validates and appends one payment row, then rewrites the
// balance snapshots and the derived booking fields in the same transaction.
// A payment with purpose "release" also moves the booking from confirmed to
// in_progress.
func RecordPayment(input RecordPaymentInput) (*models.Payment, error) {
	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidAmount
	}
	if input.Method == types.METHOD_GCASH {
		// the GCash number and the reference number travel together
		if input.ReferenceNumber == "" {
			return nil, ErrGCashReferenceRequired
		}
		if input.GCashNumber == "" {
			return nil, ErrGCashNumberRequired
		}
	}
	unlock := lockBooking(input.BookingID)
	defer unlock()

	var payment models.Payment
	conn := db.GetDb()
	err := conn.Transaction(func(tx *gorm.DB) error {
		var booking models.Booking
		if err := lockForUpdate(tx).
			Where(&models.Booking{ID: input.BookingID}).
			First(&booking).
			Error; err != nil {
			return ErrBookingNotFound
		}
		if booking.TotalAmount == nil {
			return ErrBookingNotPriced
		}
		if booking.Status == types.BOOKING_CANCELED {
			return ErrInvalidTransition
		}
		if input.Purpose == types.PURPOSE_RELEASE &&
			booking.Status != types.BOOKING_CONFIRMED &&
			booking.Status != types.BOOKING_IN_PROGRESS {
			return ErrInvalidTransition
		}
		if input.IdempotencyKey != nil {
			var count int64
			if err := tx.
				Model(&models.Payment{}).
				Where("idempotency_key = ?", *input.IdempotencyKey).
				Count(&count).
				Error; err != nil {
				return err
			}
			if count > 0 {
				return ErrDuplicateIdempotencyKey
			}
		}
		if input.ExtensionID != nil {
			var ext models.Extension
			if err := tx.
				Where(&models.Extension{ID: *input.ExtensionID, BookingID: booking.ID}).
				First(&ext).
				Error; err != nil {
				return ErrExtensionNotFound
			}
		}

		paidAt := time.Now()
		if input.PaidAt != nil {
			paidAt = *input.PaidAt
		}
		purpose := input.Purpose
		if purpose == "" {
			purpose = types.PURPOSE_PAYMENT
		}
		payment = models.Payment{
			BookingID:       booking.ID,
			Amount:          input.Amount,
			Method:          input.Method,
			Purpose:         purpose,
			GCashNumber:     input.GCashNumber,
			ReferenceNumber: input.ReferenceNumber,
			PaidAt:          paidAt,
			IdempotencyKey:  input.IdempotencyKey,
			ExtensionID:     input.ExtensionID,
			RecordedByID:    input.RecordedByID,
		}
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}
		if purpose == types.PURPOSE_RELEASE && booking.Status == types.BOOKING_CONFIRMED {
			booking.Status = types.BOOKING_IN_PROGRESS
			if err := tx.
				Model(&models.Booking{}).
				Where(&models.Booking{ID: booking.ID}).
				Update("status", types.BOOKING_IN_PROGRESS).
				Error; err != nil {
				return err
			}
			if err := tx.
				Model(&models.Car{}).
				Where(&models.Car{ID: booking.CarID}).
				Update("status", types.CAR_RENTED).
				Error; err != nil {
				return err
			}
		}
		totals, err := recalculateLocked(tx, &booking)
		if err != nil {
			return err
		}
		if err := logEvent(tx, "payment.recorded", booking.ID, input.RecordedByID, types.JSONB{
			"payment_id": payment.ID,
			"amount":     payment.Amount.String(),
			"method":     string(payment.Method),
			"purpose":    string(payment.Purpose),
			"balance":    totals.Balance.String(),
		}); err != nil {
			return err
		}
		// pick up the snapshot written by the recalculation
		return tx.Where(&models.Payment{ID: payment.ID}).First(&payment).Error
	})
	if err != nil {
		return nil, err
	}
	go mirrorEvent("payment.recorded", payment.BookingID, types.JSONB{
		"payment_id": payment.ID,
		"amount":     payment.Amount.String(),
	})
	return &payment, nil
}

// RecalculateBalances rewrites every balance snapshot for a booking and
// refreshes the derived booking fields. It is idempotent and safe to run on
// a consistent ledger; it is the repair pass for an inconsistent one.
func RecalculateBalances(bookingID uint) (Totals, error) {
	unlock := lockBooking(bookingID)
	defer unlock()

	var totals Totals
	conn := db.GetDb()
	err := conn.Transaction(func(tx *gorm.DB) error {
		var booking models.Booking
		if err := lockForUpdate(tx).
			Where(&models.Booking{ID: bookingID}).
			First(&booking).
			Error; err != nil {
			return ErrBookingNotFound
		}
		t, err := recalculateLocked(tx, &booking)
		if err != nil {
			return err
		}
		totals = t
		return nil
	})
	if err != nil {
		return Totals{}, err
	}
	return totals, nil
}

// recalculateLocked does the actual rewrite. The caller holds the booking
// lock and an open transaction.
func recalculateLocked(tx *gorm.DB, booking *models.Booking) (Totals, error) {
	var payments []*models.Payment
	if err := tx.
		Where(&models.Payment{BookingID: booking.ID}).
		Scopes(scopes.InLedgerOrder).
		Find(&payments).
		Error; err != nil {
		return Totals{}, err
	}
	totals := ComputeTotals(booking.TotalAmount, payments)
	if booking.TotalAmount != nil {
		balances := RunningBalances(*booking.TotalAmount, payments)
		for i, p := range payments {
			if p.Balance.Equal(balances[i]) {
				continue
			}
			if err := tx.
				Model(&models.Payment{}).
				Where(&models.Payment{ID: p.ID}).
				Update("balance", balances[i]).
				Error; err != nil {
				return Totals{}, err
			}
		}
	}
	// a refunded booking stays refunded; recalculation never undoes it
	status := totals.Status
	if booking.PaymentStatus == types.PAYMENT_REFUNDED && booking.Status == types.BOOKING_CANCELED {
		status = types.PAYMENT_REFUNDED
	}
	totals.Status = status
	if err := tx.
		Model(&models.Booking{}).
		Where(&models.Booking{ID: booking.ID}).
		Update("payment_status", status).
		Error; err != nil {
		return Totals{}, err
	}
	booking.PaymentStatus = status
	return totals, nil
}

// RecalculateAll sweeps every booking that carries a price. The nightly job
// and the admin endpoint both land here.
func RecalculateAll() (int, error) {
	conn := db.GetDb()
	var ids []uint
	if err := conn.
		Model(&models.Booking{}).
		Where("total_amount IS NOT NULL").
		Pluck("id", &ids).
		Error; err != nil {
		return 0, err
	}
	repaired := 0
	for _, id := range ids {
		if _, err := RecalculateBalances(id); err != nil {
			log.Printf("Failed to recalculate booking %d: %s\n", id, err.Error())
			continue
		}
		repaired++
	}
	return repaired, nil
}

// BookingTotals derives the financial view without mutating anything.
func BookingTotals(booking *models.Booking) Totals {
	return ComputeTotals(booking.TotalAmount, booking.Payments)
}
