package common

import (
	"crms/src/db"
	"crms/src/ledger"
	"crms/src/lib"
	"crms/src/lib/mailer"
	"crms/src/models"
	"crms/src/types"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/tidwall/gjson"
	"gorm.io/gorm"
)

// BookingEventsConsumer mirrors the in-database audit trail. The ledger
// produces to booking-events after commit; this side sends the customer-facing
// notifications so the request path never waits on SMTP.
func BookingEventsConsumer(topic string, value []byte) {
	spayload := string(value)
	if !gjson.Valid(spayload) {
		log.Printf("[%s]: Received invalid json body. Aborting", topic)
		return
	}
	eventType := gjson.Get(spayload, "type").String()
	bookingId := uint(gjson.Get(spayload, "booking_id").Int())
	log.Printf("[%s] %s booking=%d\n", topic, eventType, bookingId)

	switch eventType {
	case "payment.recorded":
		go sendPaymentNotification(bookingId, spayload)
	case "extension.approved":
		go sendExtensionApprovedNotification(bookingId, spayload)
	}
}

func sendPaymentNotification(bookingId uint, spayload string) {
	var booking models.Booking
	conn := db.GetDb()
	if err := conn.
		Where(&models.Booking{ID: bookingId}).
		Preload("Customer").
		Preload("Payments").
		First(&booking).
		Error; err != nil {
		log.Printf("[BookingEventsConsumer] could not load booking [%d]: %s\n", bookingId, err.Error())
		return
	}
	totals := ledger.BookingTotals(&booking)
	amount := gjson.Get(spayload, "amount").String()
	senderFrom := os.Getenv("SMTP_FROM")
	input := &lib.SendMailInput{
		Subject:  fmt.Sprintf("Payment received for booking %s", booking.BookingNumber),
		From:     senderFrom,
		FromName: "noreply",
		To:       []string{booking.Customer.Email},
		Body: fmt.Sprintf(`
			<p>We received your payment of <b>%s</b> for booking <b>%s</b>.</p>
			<p>Total paid: %s</p>
			<p>Remaining balance: %s</p>
			<p>This is a system-generated message. Do not reply to this email.</p>
			`,
			amount,
			booking.BookingNumber,
			totals.TotalPaid.StringFixed(2),
			totals.Balance.StringFixed(2),
		),
		Html: true,
	}
	if err := mailer.NewMailerMessage(input); err != nil {
		log.Printf("[mailer] Error sending message: %s\n", err.Error())
	}
}

func sendExtensionApprovedNotification(bookingId uint, spayload string) {
	var booking models.Booking
	conn := db.GetDb()
	if err := conn.
		Where(&models.Booking{ID: bookingId}).
		Preload("Customer").
		First(&booking).
		Error; err != nil {
		log.Printf("[BookingEventsConsumer] could not load booking [%d]: %s\n", bookingId, err.Error())
		return
	}
	fee := ""
	extensionId := uint(gjson.Get(spayload, "extension_id").Int())
	var ext models.Extension
	if err := conn.Where(&models.Extension{ID: extensionId}).First(&ext).Error; err == nil && ext.Fee != nil {
		fee = ext.Fee.StringFixed(2)
	}
	senderFrom := os.Getenv("SMTP_FROM")
	input := &lib.SendMailInput{
		Subject:  fmt.Sprintf("Extension approved for booking %s", booking.BookingNumber),
		From:     senderFrom,
		FromName: "noreply",
		To:       []string{booking.Customer.Email},
		Body: fmt.Sprintf(`
			<p>Your rental extension for booking <b>%s</b> has been approved.</p>
			<p>Extension fee: %s</p>
			<p>Settle the fee to finalize the new return date.</p>
			<p>This is a system-generated message. Do not reply to this email.</p>
			`,
			booking.BookingNumber,
			fee,
		),
		Html: true,
	}
	if err := mailer.NewMailerMessage(input); err != nil {
		log.Printf("[mailer] Error sending message: %s\n", err.Error())
	}
}

// SweepOverdueBookings flags in-progress rentals past their end date with no
// active extension covering them. Each booking is flagged once; reruns skip
// bookings that already carry an overdue event.
func SweepOverdueBookings() {
	var bookings []models.Booking
	conn := db.GetDb()
	if err := conn.
		Where(&models.Booking{Status: types.BOOKING_IN_PROGRESS}).
		Where("end_date < ?", time.Now()).
		Preload("Customer").
		Preload("Extensions").
		Find(&bookings).
		Error; err != nil {
		log.Printf("[SweepOverdueBookings] query failed: %s\n", err.Error())
		return
	}
	flagged := 0
	for i := range bookings {
		booking := &bookings[i]
		if booking.ActiveExtension() != nil {
			continue
		}
		var seen int64
		if err := conn.
			Model(&models.EventLog{}).
			Where(&models.EventLog{Type: "booking.overdue", BookingID: &booking.ID}).
			Count(&seen).
			Error; err != nil || seen > 0 {
			continue
		}
		err := conn.Transaction(func(tx *gorm.DB) error {
			event := models.EventLog{
				Type:      "booking.overdue",
				BookingID: &booking.ID,
				Initiator: "scheduler",
				Metadata: types.JSONB{
					"end_date": booking.EndDate,
				},
			}
			return tx.Create(&event).Error
		})
		if err != nil {
			log.Printf("[SweepOverdueBookings] could not flag booking [%d]: %s\n", booking.ID, err.Error())
			continue
		}
		flagged++
		go notifyOverdue(booking)
	}
	log.Printf("[SweepOverdueBookings] flagged %d overdue booking(s)\n", flagged)
}

func notifyOverdue(booking *models.Booking) {
	senderFrom := os.Getenv("SMTP_FROM")
	input := &lib.SendMailInput{
		Subject:  fmt.Sprintf("Vehicle return overdue for booking %s", booking.BookingNumber),
		From:     senderFrom,
		FromName: "noreply",
		To:       []string{booking.Customer.Email},
		Body: fmt.Sprintf(`
			<p>The rental under booking <b>%s</b> was due back on %s.</p>
			<p>Please return the vehicle or request an extension.</p>
			<p>This is a system-generated message. Do not reply to this email.</p>
			`,
			booking.BookingNumber,
			booking.EndDate.Format("2006-01-02"),
		),
		Html: true,
	}
	if err := mailer.NewMailerMessage(input); err != nil {
		log.Printf("[mailer] Error sending message: %s\n", err.Error())
	}
}
