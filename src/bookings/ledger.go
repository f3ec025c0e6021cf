package bookings

import (
	"calbook/src/models"
	"calbook/src/models/scopes"
	"calbook/src/types"
	"errors"
	"log"
	"time"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a reschedule or cancel names a uid the
	// ledger has never seen.
	ErrNotFound = errors.New("booking not found")
)

// ReserveInput carries everything the ledger needs for one atomic write.
// UID is the idempotency key: replays return the prior record, reschedules
// overwrite the existing row in place.
type ReserveInput struct {
	UID              string
	EventTypeID      uint
	HostID           uint
	Event            *types.MeetingEvent
	Attendees        []types.Person
	Reschedule       bool
	Confirmed        bool
	CancelSecretHash []byte
	Metadata         types.JSONB
}

// Reserve performs the single atomic reservation write. A duplicate uid on
// create is not an error; it is the same idempotent request replaying, and
// the prior record is returned. A reschedule overwrites times, description
// and location on the existing row, preserving attendee history.
func Reserve(conn *gorm.DB, in *ReserveInput) (*models.Booking, error) {
	var booking models.Booking
	err := conn.Transaction(func(tx *gorm.DB) error {
		var existing models.Booking
		err := tx.
			Model(&models.Booking{}).
			Scopes(scopes.WithUID(in.UID)).
			Preload("Attendees").
			Preload("References").
			First(&existing).
			Error
		if err == nil {
			if !in.Reschedule {
				log.Printf("Reservation %s replayed, returning prior record\n", in.UID)
				booking = existing
				return nil
			}
			updates := models.Booking{
				Title:       in.Event.Title,
				Description: in.Event.Description,
				StartTime:   &in.Event.StartTime,
				EndTime:     &in.Event.EndTime,
				Location:    in.Event.Location,
				Status:      types.BOOKING_CONFIRMED,
			}
			if err := tx.
				Model(&models.Booking{}).
				Where("id = ?", existing.ID).
				Updates(&updates).
				Error; err != nil {
				return err
			}
			existing.Title = updates.Title
			existing.Description = updates.Description
			existing.StartTime = updates.StartTime
			existing.EndTime = updates.EndTime
			existing.Location = updates.Location
			existing.Status = updates.Status
			booking = existing
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if in.Reschedule {
			return ErrNotFound
		}

		status := types.BOOKING_PENDING
		if in.Confirmed {
			status = types.BOOKING_CONFIRMED
		}
		attendees := make([]*models.Attendee, 0, len(in.Attendees))
		for _, p := range in.Attendees {
			attendees = append(attendees, &models.Attendee{Name: p.Name, Email: p.Email, TimeZone: p.TimeZone})
		}
		fresh := models.Booking{
			UID:              in.UID,
			Title:            in.Event.Title,
			Description:      in.Event.Description,
			StartTime:        &in.Event.StartTime,
			EndTime:          &in.Event.EndTime,
			Location:         in.Event.Location,
			Status:           status,
			EventTypeID:      in.EventTypeID,
			UserID:           in.HostID,
			CancelSecretHash: in.CancelSecretHash,
			Metadata:         in.Metadata,
			Attendees:        attendees,
		}
		if err := tx.Create(&fresh).Error; err != nil {
			return err
		}
		booking = fresh
		return nil
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// Lost the create race against an identical replay. The aborted
		// transaction cannot serve further statements, so the winner's row
		// is fetched on a fresh one.
		log.Printf("Reservation %s lost the create race, returning the winning record\n", in.UID)
		err = conn.
			Model(&models.Booking{}).
			Scopes(scopes.WithUID(in.UID)).
			Preload("Attendees").
			Preload("References").
			First(&booking).
			Error
	}
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// Cancel transitions a booking to canceled. Cancelling twice is a no-op;
// the second call reports alreadyCanceled. Rows are never deleted.
func Cancel(conn *gorm.DB, uid string) (booking *models.Booking, alreadyCanceled bool, err error) {
	err = conn.Transaction(func(tx *gorm.DB) error {
		var existing models.Booking
		if err := tx.
			Model(&models.Booking{}).
			Scopes(scopes.WithUID(uid)).
			Preload("References").
			First(&existing).
			Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if existing.Status == types.BOOKING_CANCELED {
			alreadyCanceled = true
			booking = &existing
			return nil
		}
		if err := tx.
			Model(&models.Booking{}).
			Where("id = ?", existing.ID).
			Update("status", types.BOOKING_CANCELED).
			Error; err != nil {
			return err
		}
		existing.Status = types.BOOKING_CANCELED
		booking = &existing
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return booking, alreadyCanceled, nil
}

// Confirm moves a pending booking to confirmed, used when a confirmation
// requirement or payment settles.
func Confirm(conn *gorm.DB, uid string) error {
	res := conn.
		Model(&models.Booking{}).
		Scopes(scopes.WithUID(uid)).
		Where("status = ?", types.BOOKING_PENDING).
		Update("status", types.BOOKING_CONFIRMED)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ReplaceReferences stores the provider references created for a booking,
// dropping rows for artifacts that no longer exist after a reschedule.
func ReplaceReferences(conn *gorm.DB, bookingID uint, refs []*models.BookingReference) error {
	return conn.Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("booking_id = ?", bookingID).
			Delete(&models.BookingReference{}).
			Error; err != nil {
			return err
		}
		for _, ref := range refs {
			ref.ID = 0
			ref.BookingID = bookingID
			if err := tx.Create(ref).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// FutureConfirmedCounts returns, per host, the number of confirmed bookings
// with a start time in the future. Feeds round-robin ranking.
func FutureConfirmedCounts(conn *gorm.DB, hostIDs []uint) (map[uint]int, error) {
	type row struct {
		UserID uint
		Total  int
	}
	var rows []row
	err := conn.
		Model(&models.Booking{}).
		Select("user_id", "count(*) as total").
		Where("user_id IN (?)", hostIDs).
		Scopes(scopes.ConfirmedFuture).
		Group("user_id").
		Find(&rows).
		Error
	if err != nil {
		return nil, err
	}
	counts := make(map[uint]int, len(rows))
	for _, r := range rows {
		counts[r.UserID] = r.Total
	}
	return counts, nil
}

// ListUpcomingForHost returns the host's bookings starting after now.
func ListUpcomingForHost(conn *gorm.DB, hostID uint) ([]models.Booking, error) {
	var list []models.Booking
	err := conn.
		Model(&models.Booking{}).
		Scopes(scopes.WithOwner(hostID)).
		Where("start_time > ?", time.Now()).
		Preload("Attendees").
		Preload("References").
		Order("start_time asc").
		Find(&list).
		Error
	return list, err
}
