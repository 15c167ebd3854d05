package models

import (
	"crms/src/types"
	"time"
)

type Driver struct {
	ID            uint               `gorm:"primarykey" json:"id"`
	Name          string             `json:"name,omitempty"`
	LicenseNumber string             `gorm:"uniqueIndex" json:"license_number,omitempty"`
	Phone         string             `json:"phone,omitempty"`
	Status        types.DriverStatus `gorm:"default:'active'" json:"status,omitempty"`

	Assignments []*DriverAssignment `json:"assignments,omitempty"`

	types.Timestamps
}

type DriverAssignment struct {
	ID uint `gorm:"primarykey" json:"id"`

	DriverID   uint      `gorm:"index" json:"driver_id"`
	BookingID  uint      `gorm:"index" json:"booking_id"`
	ShiftStart time.Time `json:"shift_start"`
	ShiftEnd   time.Time `json:"shift_end"`

	types.Timestamps

	Driver  Driver  `gorm:"foreignKey:driver_id" json:"-"`
	Booking Booking `gorm:"foreignKey:booking_id" json:"-"`
}
