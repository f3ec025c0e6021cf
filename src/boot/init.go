package boot

import (
	"calbook/src/db"
	"calbook/src/events"
	"calbook/src/integrations"
	"calbook/src/lib"
	"calbook/src/models"
	"calbook/src/types"
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"
)

func InitDb() *gorm.DB {
	conn := db.GetDb()

	err := conn.AutoMigrate(
		&models.User{},
		&models.Credential{},
		&models.EventType{},
		&models.EventTypeHost{},
		&models.Booking{},
		&models.Attendee{},
		&models.BookingReference{},
		&models.Webhook{},
	)
	if err != nil {
		log.Fatalf("error migration: %s", err.Error())
	}

	return conn
}

func InitIntegrations() {
	integrations.RegisterDefaults()
}

const reconcileInterval = 10 * time.Minute

func InitScheduler() {
	sched, err := lib.GetScheduler()
	if err != nil {
		log.Println("An error has occurred. Check logs for info")
		return
	}
	j, err := sched.NewJob(
		gocron.DurationJob(reconcileInterval),
		gocron.NewTask(ReconcileMissingArtifacts),
	)
	if err != nil {
		log.Printf("Error scheduling reconciliation job: %s\n", err.Error())
		return
	}
	log.Printf("Scheduled artifact reconciliation: %s\n", j.ID().String())
	sched.Start()
}

func StopScheduler() {
	lib.StopScheduler()
}

// ReconcileMissingArtifacts retries provider artifact creation for future
// confirmed bookings whose reference set is short of the host's connected
// providers. Artifact sync is best-effort at booking time; this closes the
// gap afterwards.
func ReconcileMissingArtifacts() {
	conn := db.GetDb()
	registry := integrations.DefaultRegistry()

	var candidates []models.Booking
	err := conn.
		Model(&models.Booking{}).
		Where("status = ?", types.BOOKING_CONFIRMED).
		Where("start_time > ?", time.Now()).
		Preload("References").
		Preload("User.Credentials").
		Preload("Attendees").
		Limit(100).
		Find(&candidates).
		Error
	if err != nil {
		log.Printf("Error loading bookings for reconciliation: %s\n", err.Error())
		return
	}

	for _, booking := range candidates {
		if booking.User == nil || booking.StartTime == nil || booking.EndTime == nil {
			continue
		}
		connected := len(registry.ForCredentials(booking.User.Credentials))
		if connected <= len(booking.References) {
			continue
		}
		manager := events.NewManager(registry, booking.User.Credentials)
		event := &types.MeetingEvent{
			Title:       booking.Title,
			Description: booking.Description,
			StartTime:   *booking.StartTime,
			EndTime:     *booking.EndTime,
			Location:    booking.Location,
			Organizer: types.Person{
				Name:     booking.User.Name,
				Email:    booking.User.Email,
				TimeZone: booking.User.TimeZone,
			},
		}
		for _, attendee := range booking.Attendees {
			event.Attendees = append(event.Attendees, types.Person{Name: attendee.Name, Email: attendee.Email, TimeZone: attendee.TimeZone})
		}
		out := manager.CreateMissing(context.Background(), event, booking.References)
		if len(out.References) == 0 {
			continue
		}
		for _, ref := range out.References {
			ref.BookingID = booking.ID
			if err := conn.Create(ref).Error; err != nil {
				log.Printf("Could not store backfilled reference for booking %s: %s\n", booking.UID, err.Error())
			}
		}
		log.Printf("Backfilled %d provider artifact(s) for booking %s\n", len(out.References), booking.UID)
	}
}
