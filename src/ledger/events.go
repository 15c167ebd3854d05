package ledger

import (
	"crms/src/lib"
	"crms/src/models"
	"crms/src/types"
	"log"
	"os"

	"gorm.io/gorm"
)

const eventsTopic = "booking-events"

// logEvent writes the audit row in the caller's transaction so it commits
// or rolls back with the ledger mutation itself.
func logEvent(tx *gorm.DB, eventType string, bookingID uint, initiatorID uint, metadata types.JSONB) error {
	initiator := ""
	if initiatorID > 0 {
		initiator = "user"
	}
	event := models.EventLog{
		Type:      eventType,
		BookingID: &bookingID,
		Initiator: initiator,
		Metadata:  metadata,
	}
	return tx.Create(&event).Error
}

// mirrorEvent publishes the committed event to the booking-events topic.
// Best effort: the audit row is the source of truth, the topic is a feed.
func mirrorEvent(eventType string, bookingID uint, metadata types.JSONB) {
	if os.Getenv("KAFKA_BROKER") == "" {
		return
	}
	payload := map[string]any{
		"type":       eventType,
		"booking_id": bookingID,
	}
	for k, v := range metadata {
		payload[k] = v
	}
	if err := lib.KafkaProduceMessage("BookingEventsProducer", eventsTopic, payload); err != nil {
		log.Printf("Failed to publish %s for booking %d: %s\n", eventType, bookingID, err.Error())
	}
}
