package ledger

import (
	"crms/src/db"
	"crms/src/models"
	"crms/src/models/scopes"
	"crms/src/types"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RequestExtension opens a pending extension for a booking. Only one
// pending-or-approved extension may exist per booking at any time.
func RequestExtension(bookingID uint, newEndDate time.Time, requestedByID uint) (*models.Extension, error) {
	unlock := lockBooking(bookingID)
	defer unlock()

	var ext models.Extension
	conn := db.GetDb()
	err := conn.Transaction(func(tx *gorm.DB) error {
		var booking models.Booking
		if err := lockForUpdate(tx).
			Where(&models.Booking{ID: bookingID}).
			First(&booking).
			Error; err != nil {
			return ErrBookingNotFound
		}
		if booking.Status != types.BOOKING_CONFIRMED && booking.Status != types.BOOKING_IN_PROGRESS {
			return ErrInvalidTransition
		}
		if !newEndDate.After(booking.EndDate) {
			return ErrInvalidDate
		}
		var active int64
		if err := tx.
			Model(&models.Extension{}).
			Scopes(scopes.WithBooking(bookingID), scopes.ActiveExtensions).
			Count(&active).
			Error; err != nil {
			return err
		}
		if active > 0 {
			return ErrActiveExtensionExists
		}
		ext = models.Extension{
			BookingID:  bookingID,
			Status:     types.EXTENSION_PENDING,
			NewEndDate: newEndDate,
		}
		if err := tx.Create(&ext).Error; err != nil {
			return err
		}
		return logEvent(tx, "extension.requested", bookingID, requestedByID, types.JSONB{
			"extension_id": ext.ID,
			"new_end_date": newEndDate,
		})
	})
	if err != nil {
		return nil, err
	}
	go mirrorEvent("extension.requested", bookingID, types.JSONB{"extension_id": ext.ID})
	return &ext, nil
}

// ApproveExtension prices a pending extension. The fee joins the booking
// total here, which can flip a fully paid booking back to unpaid; the end
// date does not move until completion.
func ApproveExtension(extensionID uint, fee decimal.Decimal, approvedByID uint) (*models.Extension, error) {
	ext, err := findExtension(extensionID)
	if err != nil {
		return nil, err
	}
	unlock := lockBooking(ext.BookingID)
	defer unlock()

	conn := db.GetDb()
	err = conn.Transaction(func(tx *gorm.DB) error {
		var booking models.Booking
		if err := lockForUpdate(tx).
			Where(&models.Booking{ID: ext.BookingID}).
			First(&booking).
			Error; err != nil {
			return ErrBookingNotFound
		}
		if err := tx.Where(&models.Extension{ID: extensionID}).First(ext).Error; err != nil {
			return ErrExtensionNotFound
		}
		if ext.Status != types.EXTENSION_PENDING {
			return ErrInvalidTransition
		}
		if booking.Status == types.BOOKING_CANCELED || booking.Status == types.BOOKING_COMPLETED {
			return ErrInvalidTransition
		}
		if fee.IsNegative() {
			return ErrInvalidAmount
		}
		if booking.TotalAmount == nil {
			return ErrBookingNotPriced
		}

		now := time.Now()
		oldEnd := booking.EndDate
		newTotal := booking.TotalAmount.Add(fee)
		if err := tx.
			Model(&models.Extension{}).
			Where(&models.Extension{ID: ext.ID}).
			Updates(map[string]any{
				"status":         types.EXTENSION_APPROVED,
				"fee":            fee,
				"old_end_date":   oldEnd,
				"approved_by_id": approvedByID,
				"approved_at":    now,
			}).Error; err != nil {
			return err
		}
		if err := tx.
			Model(&models.Booking{}).
			Where(&models.Booking{ID: booking.ID}).
			Update("total_amount", newTotal).
			Error; err != nil {
			return err
		}
		booking.TotalAmount = &newTotal
		if _, err := recalculateLocked(tx, &booking); err != nil {
			return err
		}
		ext.Status = types.EXTENSION_APPROVED
		ext.Fee = &fee
		ext.OldEndDate = &oldEnd
		ext.ApprovedAt = &now
		return logEvent(tx, "extension.approved", booking.ID, approvedByID, types.JSONB{
			"extension_id": ext.ID,
			"fee":          fee.String(),
			"new_total":    newTotal.String(),
		})
	})
	if err != nil {
		return nil, err
	}
	go mirrorEvent("extension.approved", ext.BookingID, types.JSONB{"extension_id": ext.ID})
	return ext, nil
}

// CompleteExtension moves the booking end date to the approved extension's
// new end date. It refuses to complete until a payment row has been linked
// to the extension fee.
func CompleteExtension(extensionID uint, completedByID uint) (*models.Extension, error) {
	ext, err := findExtension(extensionID)
	if err != nil {
		return nil, err
	}
	unlock := lockBooking(ext.BookingID)
	defer unlock()

	conn := db.GetDb()
	err = conn.Transaction(func(tx *gorm.DB) error {
		var booking models.Booking
		if err := lockForUpdate(tx).
			Where(&models.Booking{ID: ext.BookingID}).
			First(&booking).
			Error; err != nil {
			return ErrBookingNotFound
		}
		if err := tx.Where(&models.Extension{ID: extensionID}).First(ext).Error; err != nil {
			return ErrExtensionNotFound
		}
		if ext.Status != types.EXTENSION_APPROVED {
			return ErrInvalidTransition
		}
		if booking.Status == types.BOOKING_CANCELED || booking.Status == types.BOOKING_COMPLETED {
			return ErrInvalidTransition
		}
		var feePayments int64
		if err := tx.
			Model(&models.Payment{}).
			Where("extension_id = ?", ext.ID).
			Count(&feePayments).
			Error; err != nil {
			return err
		}
		if feePayments == 0 {
			return ErrExtensionFeeUnpaid
		}

		now := time.Now()
		if err := tx.
			Model(&models.Extension{}).
			Where(&models.Extension{ID: ext.ID}).
			Updates(map[string]any{
				"status":       types.EXTENSION_COMPLETED,
				"completed_at": now,
			}).Error; err != nil {
			return err
		}
		if err := tx.
			Model(&models.Booking{}).
			Where(&models.Booking{ID: booking.ID}).
			Update("end_date", ext.NewEndDate).
			Error; err != nil {
			return err
		}
		ext.Status = types.EXTENSION_COMPLETED
		ext.CompletedAt = &now
		return logEvent(tx, "extension.completed", booking.ID, completedByID, types.JSONB{
			"extension_id": ext.ID,
			"end_date":     ext.NewEndDate,
		})
	})
	if err != nil {
		return nil, err
	}
	go mirrorEvent("extension.completed", ext.BookingID, types.JSONB{"extension_id": ext.ID})
	return ext, nil
}

// RejectExtension closes a pending extension without touching the ledger.
func RejectExtension(extensionID uint, reason string, rejectedByID uint) (*models.Extension, error) {
	ext, err := findExtension(extensionID)
	if err != nil {
		return nil, err
	}
	unlock := lockBooking(ext.BookingID)
	defer unlock()

	conn := db.GetDb()
	err = conn.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(&models.Extension{ID: extensionID}).First(ext).Error; err != nil {
			return ErrExtensionNotFound
		}
		if ext.Status != types.EXTENSION_PENDING {
			return ErrInvalidTransition
		}
		if err := tx.
			Model(&models.Extension{}).
			Where(&models.Extension{ID: ext.ID}).
			Updates(map[string]any{
				"status": types.EXTENSION_REJECTED,
				"reason": reason,
			}).Error; err != nil {
			return err
		}
		ext.Status = types.EXTENSION_REJECTED
		ext.Reason = reason
		return logEvent(tx, "extension.rejected", ext.BookingID, rejectedByID, types.JSONB{
			"extension_id": ext.ID,
			"reason":       reason,
		})
	})
	if err != nil {
		return nil, err
	}
	return ext, nil
}

// CancelExtension is the admin abort. Cancelling an approved extension
// rolls its fee back out of the booking total and recalculates.
func CancelExtension(extensionID uint, canceledByID uint) (*models.Extension, error) {
	ext, err := findExtension(extensionID)
	if err != nil {
		return nil, err
	}
	unlock := lockBooking(ext.BookingID)
	defer unlock()

	conn := db.GetDb()
	err = conn.Transaction(func(tx *gorm.DB) error {
		var booking models.Booking
		if err := lockForUpdate(tx).
			Where(&models.Booking{ID: ext.BookingID}).
			First(&booking).
			Error; err != nil {
			return ErrBookingNotFound
		}
		if err := tx.Where(&models.Extension{ID: extensionID}).First(ext).Error; err != nil {
			return ErrExtensionNotFound
		}
		if !ext.IsActive() {
			return ErrInvalidTransition
		}
		if ext.Status == types.EXTENSION_APPROVED && ext.Fee != nil && booking.TotalAmount != nil {
			newTotal := booking.TotalAmount.Sub(*ext.Fee)
			if err := tx.
				Model(&models.Booking{}).
				Where(&models.Booking{ID: booking.ID}).
				Update("total_amount", newTotal).
				Error; err != nil {
				return err
			}
			booking.TotalAmount = &newTotal
			if _, err := recalculateLocked(tx, &booking); err != nil {
				return err
			}
		}
		if err := tx.
			Model(&models.Extension{}).
			Where(&models.Extension{ID: ext.ID}).
			Update("status", types.EXTENSION_ADMIN_CANCELED).
			Error; err != nil {
			return err
		}
		ext.Status = types.EXTENSION_ADMIN_CANCELED
		return logEvent(tx, "extension.canceled", booking.ID, canceledByID, types.JSONB{
			"extension_id": ext.ID,
		})
	})
	if err != nil {
		return nil, err
	}
	return ext, nil
}

func findExtension(id uint) (*models.Extension, error) {
	var ext models.Extension
	conn := db.GetDb()
	if err := conn.Scopes(scopes.WithID(id)).First(&ext).Error; err != nil {
		return nil, ErrExtensionNotFound
	}
	return &ext, nil
}
