package models

import (
	"crms/src/types"
	"time"

	"github.com/shopspring/decimal"
)

type MaintenanceRecord struct {
	ID uint `gorm:"primarykey" json:"id"`

	CarID       uint            `gorm:"index" json:"car_id"`
	ServiceType string          `json:"service_type,omitempty"`
	Cost        decimal.Decimal `gorm:"type:decimal(12,2)" json:"cost"`
	Odometer    uint            `json:"odometer,omitempty"`
	Notes       string          `json:"notes,omitempty"`
	ServicedAt  time.Time       `json:"serviced_at"`

	types.Timestamps

	Car Car `gorm:"foreignKey:car_id" json:"-"`
}
