package ledger

import (
	"errors"
	"net/http"
)

var (
	ErrBookingNotFound   = errors.New("booking not found")
	ErrExtensionNotFound = errors.New("extension not found")

	// validation
	ErrInvalidAmount          = errors.New("amount must be greater than zero")
	ErrGCashReferenceRequired = errors.New("gcash payments require a reference number")
	ErrGCashNumberRequired    = errors.New("gcash payments require a gcash number")
	ErrInvalidDate            = errors.New("new end date must be after the current end date")

	// conflicts
	ErrBookingNotPriced        = errors.New("booking has no total amount set")
	ErrDuplicateIdempotencyKey = errors.New("a payment with this idempotency key already exists")
	ErrActiveExtensionExists   = errors.New("booking already has an active extension")
	ErrExtensionFeeUnpaid      = errors.New("extension fee has not been paid")
	ErrInvalidTransition       = errors.New("operation not allowed in the current status")
	ErrRefundExceedsPaid       = errors.New("refund exceeds the amount paid")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrBookingNotFound) || errors.Is(err, ErrExtensionNotFound)
}

func IsInvalid(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrGCashReferenceRequired) ||
		errors.Is(err, ErrGCashNumberRequired) ||
		errors.Is(err, ErrInvalidDate)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrBookingNotPriced) ||
		errors.Is(err, ErrDuplicateIdempotencyKey) ||
		errors.Is(err, ErrActiveExtensionExists) ||
		errors.Is(err, ErrExtensionFeeUnpaid) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrRefundExceedsPaid)
}

// StatusForError maps ledger errors to HTTP status codes for handlers.
func StatusForError(err error) int {
	switch {
	case IsNotFound(err):
		return http.StatusNotFound
	case IsInvalid(err):
		return http.StatusBadRequest
	case IsConflict(err):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
