package common

import (
	"crms/src/lib"
	"log"

	"github.com/tidwall/gjson"
)

// OutgoingEmailsConsumer drains the outgoing-emails topic and delivers over
// SMTP. Producers enqueue through mailer.NewMailerMessage.
func OutgoingEmailsConsumer(topic string, value []byte) {
	spayload := string(value)
	if !gjson.Valid(spayload) {
		log.Printf("[%s]: Received invalid json body. Aborting", topic)
		return
	}
	from := gjson.Get(spayload, "from").String()
	subject := gjson.Get(spayload, "subject").String()
	log.Printf("from [%s] with subject: %s\n", from, subject)

	collect := func(path string) []string {
		items := make([]string, 0)
		for _, item := range gjson.Get(spayload, path).Array() {
			items = append(items, item.String())
		}
		return items
	}
	to := collect("to")

	go func() {
		input := &lib.SendMailInput{
			From:     from,
			FromName: gjson.Get(spayload, "from-name").String(),
			To:       to,
			Cc:       collect("cc"),
			Bcc:      collect("bcc"),
			ReplyTo:  gjson.Get(spayload, "reply-to").String(),
			Subject:  subject,
			Body:     gjson.Get(spayload, "body").String(),
			Html:     gjson.Get(spayload, "html").Bool(),
		}
		if err := lib.SendMail(input); err != nil {
			log.Printf("[MAILER] error sending email: %s\n", err.Error())
			return
		}
		log.Printf("[MAILER]: an email has been sent to %s\n", to)
	}()
}
