package models

import (
	"crms/src/types"
	"time"

	"github.com/shopspring/decimal"
)

type Booking struct {
	ID              uint                `gorm:"primarykey" json:"id"`
	BookingNumber   string              `gorm:"uniqueIndex" json:"booking_number,omitempty"`
	Status          types.BookingStatus `gorm:"default:'pending'" json:"status,omitempty"`
	PaymentStatus   types.PaymentStatus `gorm:"default:'pending'" json:"payment_status,omitempty"`
	TotalAmount     *decimal.Decimal    `gorm:"type:decimal(12,2)" json:"total_amount,omitempty"`
	StartDate       time.Time           `json:"start_date,omitempty"`
	EndDate         time.Time           `json:"end_date,omitempty"`
	PickupLocation  string              `json:"pickup_location,omitempty"`
	DropoffLocation string              `json:"dropoff_location,omitempty"`
	WithDriver      bool                `json:"with_driver,omitempty"`
	Notes           string              `json:"notes,omitempty"`
	CustomerID      uint                `json:"customer_id,omitempty"`
	CarID           uint                `json:"car_id,omitempty"`
	DriverID        *uint               `json:"driver_id,omitempty"`

	Customer   *User        `gorm:"foreignKey:customer_id" json:"customer,omitempty"`
	Car        *Car         `gorm:"foreignKey:car_id" json:"car,omitempty"`
	Driver     *Driver      `gorm:"foreignKey:driver_id" json:"driver,omitempty"`
	Payments   []*Payment   `json:"payments,omitempty"`
	Extensions []*Extension `json:"extensions,omitempty"`
	Refunds    []*Refund    `json:"refunds,omitempty"`

	types.Timestamps
}

// ActiveExtension returns the single pending or approved extension, if any.
// A booking never carries more than one of these at a time.
func (b *Booking) ActiveExtension() *Extension {
	for _, ext := range b.Extensions {
		if ext.Status == types.EXTENSION_PENDING || ext.Status == types.EXTENSION_APPROVED {
			return ext
		}
	}
	return nil
}

func (b *Booking) IsExtended() bool {
	for _, ext := range b.Extensions {
		if ext.Status == types.EXTENSION_COMPLETED {
			return true
		}
	}
	return false
}
