package models

import (
	"crms/src/types"

	"github.com/shopspring/decimal"
)

type Car struct {
	ID           uint            `gorm:"primarykey" json:"id"`
	PlateNumber  string          `gorm:"uniqueIndex" json:"plate_number,omitempty"`
	Slug         string          `gorm:"uniqueIndex" json:"slug,omitempty"`
	Make         string          `json:"make,omitempty"`
	Model        string          `json:"model,omitempty"`
	Year         uint            `json:"year,omitempty"`
	Transmission string          `json:"transmission,omitempty"`
	Seats        uint8           `json:"seats,omitempty"`
	DailyRate    decimal.Decimal `gorm:"type:decimal(12,2)" json:"daily_rate"`
	Status       types.CarStatus `gorm:"default:'available'" json:"status,omitempty"`
	TrackerID    string          `gorm:"index" json:"tracker_id,omitempty"`

	Bookings           []*Booking           `json:"bookings,omitempty"`
	MaintenanceRecords []*MaintenanceRecord `json:"maintenance_records,omitempty"`

	types.Timestamps
}
