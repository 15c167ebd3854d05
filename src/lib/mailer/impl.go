package mailer

import (
	"crms/src/lib"
	"fmt"
	"log"
	"os"
)

// NewMailerMessage sends the email through the outgoing-emails topic when a
// broker is configured, so a worker can retry delivery. Without a broker it
// falls back to sending over SMTP directly.
func NewMailerMessage(input *lib.SendMailInput) error {
	emailQueue := os.Getenv("EMAIL_QUEUE")
	if emailQueue == "" {
		emailQueue = "outgoing-emails"
	}
	if os.Getenv("KAFKA_BROKER") != "" {
		emailBody := map[string]any{
			"from":      input.From,
			"from-name": input.FromName,
			"to":        input.To,
			"cc":        input.Cc,
			"bcc":       input.Bcc,
			"reply-to":  input.ReplyTo,
			"body":      input.Body,
			"html":      input.Html,
			"subject":   input.Subject,
		}
		if err := lib.KafkaProduceMessage("emails", emailQueue, emailBody); err != nil {
			return fmt.Errorf("error sending message to queue: %s", err.Error())
		}
		return nil
	}
	if err := lib.SendMail(input); err != nil {
		log.Printf("Failed to send email: %s\n", err.Error())
		return err
	}
	return nil
}
