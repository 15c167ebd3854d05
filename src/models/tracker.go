package models

import (
	"crms/src/types"
	"time"
)

// TrackerPing rows are written by the GPS consumer. The latest position per
// car also lives in redis for cheap reads; this table is the durable trail.
type TrackerPing struct {
	ID uint `gorm:"primarykey" json:"id"`

	TrackerID  string    `gorm:"index" json:"tracker_id"`
	CarID      uint      `gorm:"index" json:"car_id,omitempty"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	SpeedKph   float64   `json:"speed_kph,omitempty"`
	Heading    float64   `json:"heading,omitempty"`
	RecordedAt time.Time `gorm:"index" json:"recorded_at"`

	types.Timestamps
}
