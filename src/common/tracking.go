package common

import (
	"context"
	"crms/src/db"
	"crms/src/lib"
	"crms/src/models"
	"errors"
	"log"
	"time"

	"github.com/tidwall/gjson"
	"gorm.io/gorm"
)

var ErrUnknownTracker = errors.New("tracker is not assigned to any car")

// StorePing resolves the tracker to its car, appends the ping to the durable
// trail and refreshes the cached position. Pings from trackers no car claims
// are dropped with ErrUnknownTracker.
func StorePing(ctx context.Context, ping *models.TrackerPing) error {
	conn := db.GetDb()

	var car models.Car
	if err := conn.
		WithContext(ctx).
		Where(&models.Car{TrackerID: ping.TrackerID}).
		First(&car).
		Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUnknownTracker
		}
		return err
	}
	ping.CarID = car.ID
	if ping.RecordedAt.IsZero() {
		ping.RecordedAt = time.Now()
	}

	if err := conn.WithContext(ctx).Create(ping).Error; err != nil {
		return err
	}

	if err := lib.CacheCarPosition(ctx, car.ID, map[string]any{
		"tracker_id":  ping.TrackerID,
		"latitude":    ping.Latitude,
		"longitude":   ping.Longitude,
		"speed_kph":   ping.SpeedKph,
		"heading":     ping.Heading,
		"recorded_at": ping.RecordedAt,
	}); err != nil {
		log.Printf("[tracking] could not cache position for car [%d]: %s\n", car.ID, err.Error())
	}
	return nil
}

// GpsPingsConsumer handles messages from the gps-pings topic. Fleet trackers
// publish there instead of hitting the HTTP endpoint.
func GpsPingsConsumer(topic string, value []byte) {
	spayload := string(value)
	if !gjson.Valid(spayload) {
		log.Printf("[%s]: Received invalid json body. Aborting", topic)
		return
	}
	trackerId := gjson.Get(spayload, "tracker_id").String()
	if trackerId == "" {
		log.Printf("[%s]: message has no tracker_id. Aborting", topic)
		return
	}
	ping := models.TrackerPing{
		TrackerID: trackerId,
		Latitude:  gjson.Get(spayload, "latitude").Float(),
		Longitude: gjson.Get(spayload, "longitude").Float(),
		SpeedKph:  gjson.Get(spayload, "speed_kph").Float(),
		Heading:   gjson.Get(spayload, "heading").Float(),
	}
	if ts := gjson.Get(spayload, "recorded_at").String(); ts != "" {
		if at, err := time.Parse(time.RFC3339, ts); err == nil {
			ping.RecordedAt = at
		}
	}
	if err := StorePing(context.Background(), &ping); err != nil {
		log.Printf("[%s] error storing ping from tracker %s: %s\n", topic, trackerId, err.Error())
	}
}
