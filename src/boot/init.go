package boot

import (
	"crms/src/common"
	"crms/src/db"
	"crms/src/ledger"
	"crms/src/lib"
	"crms/src/models"
	"log"
	"os"

	"gorm.io/gorm"
)

func InitDb() *gorm.DB {
	db := db.GetDb()

	err := db.AutoMigrate(
		&models.User{},
		&models.Car{},
		&models.MaintenanceRecord{},
		&models.Driver{},
		&models.DriverAssignment{},
		&models.Booking{},
		&models.Payment{},
		&models.Extension{},
		&models.Refund{},
		&models.TrackerPing{},
		&models.Setting{},
		&models.EventLog{},
	)
	if err != nil {
		log.Fatalf("error migration: %s", err.Error())
	}

	return db
}

func InitBroker() {
	if os.Getenv("KAFKA_BROKER") == "" {
		log.Println("KAFKA_BROKER not set. Skipping broker setup")
		return
	}
	if _, err := lib.KafkaCreateTopics("booking-events", "gps-pings", "outgoing-emails"); err != nil {
		log.Printf("Error creating topics: %s\n", err.Error())
	}
	go func() {
		if err := lib.KafkaConsume("gps-consumers", []string{"gps-pings"}, common.GpsPingsConsumer); err != nil {
			log.Printf("Error starting gps-pings consumer: %s\n", err.Error())
		}
	}()
	go func() {
		if err := lib.KafkaConsume("notification-consumers", []string{"booking-events"}, common.BookingEventsConsumer); err != nil {
			log.Printf("Error starting booking-events consumer: %s\n", err.Error())
		}
	}()
	go func() {
		if err := lib.KafkaConsume("mailer-consumers", []string{"outgoing-emails"}, common.OutgoingEmailsConsumer); err != nil {
			log.Printf("Error starting outgoing-emails consumer: %s\n", err.Error())
		}
	}()
}

func InitScheduler() {
	sched, err := lib.GetScheduler()
	if err != nil {
		log.Println("An error has occurred. Check logs for info")
		return
	}
	// nightly sweep repairs any balance snapshots left behind by manual
	// database edits and flags rentals past their return date
	if _, err := lib.CreateDailyJob(func() {
		n, err := ledger.RecalculateAll()
		if err != nil {
			log.Printf("Error recalculating balances: %s\n", err.Error())
			return
		}
		log.Printf("Recalculated balances for %d booking(s)\n", n)
	}, 2, 0); err != nil {
		log.Printf("Error scheduling recalculation job: %s\n", err.Error())
	}
	if _, err := lib.CreateDailyJob(common.SweepOverdueBookings, 6, 0); err != nil {
		log.Printf("Error scheduling overdue sweep: %s\n", err.Error())
	}
	jobsWaitingInQueue := len(sched.Jobs())
	log.Println("Jobs in queue:", jobsWaitingInQueue)
	sched.Start()
}

func StopScheduler() {
	sched, err := lib.GetScheduler()
	if err != nil {
		log.Println("Error retrieving Scheduler. Check logs for info")
		return
	}
	err = sched.Shutdown()
	if err != nil {
		log.Println("An error has occurred while shutting stopping Scheduler. Check logs for info")
		return
	}
}
