package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

type Timestamps struct {
	CreatedAt time.Time      `gorm:"autoCreateTime:nano" json:"created_at,omitempty"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime:nano" json:"updated_at,omitempty"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty,omitnil"`
}

type JSONB map[string]any

func (a JSONB) Value() (driver.Value, error) {
	valueString, err := json.Marshal(a)
	return string(valueString), err
}
func (a *JSONB) Scan(value any) error {
	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	return nil
}

type SchedulingType string

const (
	SCHEDULING_SINGLE      SchedulingType = "single"
	SCHEDULING_COLLECTIVE  SchedulingType = "collective"
	SCHEDULING_ROUND_ROBIN SchedulingType = "round_robin"
)

type PeriodType string

const (
	PERIOD_UNLIMITED PeriodType = "unlimited"
	PERIOD_ROLLING   PeriodType = "rolling"
	PERIOD_RANGE     PeriodType = "range"
)

type BookingStatus string

const (
	BOOKING_PENDING   BookingStatus = "pending"
	BOOKING_CONFIRMED BookingStatus = "confirmed"
	BOOKING_CANCELED  BookingStatus = "canceled"
)

// ProviderKind identifies an integration family. Adapters are registered
// against these at startup; call sites never branch on raw strings.
type ProviderKind string

const (
	PROVIDER_GOOGLE_CALENDAR ProviderKind = "google_calendar"
	PROVIDER_ZOOM_VIDEO      ProviderKind = "zoom_video"
	PROVIDER_STRIPE_PAYMENT  ProviderKind = "stripe_payment"
)

type WebhookTrigger string

const (
	TRIGGER_BOOKING_CREATED     WebhookTrigger = "BOOKING_CREATED"
	TRIGGER_BOOKING_RESCHEDULED WebhookTrigger = "BOOKING_RESCHEDULED"
)

// BusyInterval is a half-open range [Start, End) during which a host is
// unavailable. Computed per request, never persisted.
type BusyInterval struct {
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Source string    `json:"source,omitempty"`
}

type Person struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	TimeZone string `json:"time_zone"`
}

// MeetingEvent is the provider-neutral description of the meeting handed to
// every adapter.
type MeetingEvent struct {
	Type        string    `json:"type"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	Organizer   Person    `json:"organizer"`
	Attendees   []Person  `json:"attendees"`
	Location    string    `json:"location,omitempty"`
	TeamName    string    `json:"team_name,omitempty"`
}

type CreateBookingRequestBody struct {
	EventTypeID   uint     `json:"event_type_id" binding:"required"`
	Start         string   `json:"start" binding:"required" time_format:"2006-01-02 15:04:05 -07:00"`
	End           string   `json:"end" binding:"required" time_format:"2006-01-02 15:04:05 -07:00"`
	Name          string   `json:"name" binding:"required"`
	Email         string   `json:"email" binding:"required,email"`
	TimeZone      string   `json:"time_zone" binding:"required"`
	Guests        []string `json:"guests,omitempty"`
	Notes         string   `json:"notes,omitempty"`
	Location      string   `json:"location,omitempty"`
	RescheduleUID string   `json:"reschedule_uid,omitempty"`
	Users         []string `json:"users,omitempty"`
}

type CancelBookingRequestBody struct {
	CancelSecret string `json:"cancel_secret,omitempty"`
}

type AvailabilityRequestParams struct {
	Username string `form:"username" binding:"required"`
	DateFrom string `form:"date_from" binding:"required"`
	DateTo   string `form:"date_to" binding:"required"`
}

type CreateEventTypeRequestBody struct {
	Title                   string  `json:"title" binding:"required"`
	Description             string  `json:"description,omitempty"`
	Length                  uint    `json:"length" binding:"required,min=1"`
	SchedulingType          string  `json:"scheduling_type,omitempty" binding:"omitempty,oneof=single collective round_robin"`
	PeriodType              string  `json:"period_type,omitempty" binding:"omitempty,oneof=unlimited rolling range"`
	PeriodDays              uint    `json:"period_days,omitempty"`
	PeriodCountCalendarDays bool    `json:"period_count_calendar_days,omitempty"`
	PeriodStartDate         *string `json:"period_start_date,omitempty" binding:"omitempty,bookabledate"`
	PeriodEndDate           *string `json:"period_end_date,omitempty" binding:"omitempty,bookabledate,gtdate=PeriodStartDate"`
	RequiresConfirmation    bool    `json:"requires_confirmation,omitempty"`
	AdvisoryConflicts       bool    `json:"advisory_conflicts,omitempty"`
	BufferMinutes           uint    `json:"buffer_minutes,omitempty"`
	Price                   uint    `json:"price,omitempty"`
	Currency                string  `json:"currency,omitempty"`
	HostIDs                 []uint  `json:"hosts,omitempty"`
}

type UpdateEventTypeRequestBody struct {
	Title             *string `json:"title,omitempty"`
	Description       *string `json:"description,omitempty"`
	Length            *uint   `json:"length,omitempty" binding:"omitempty,min=1"`
	AdvisoryConflicts *bool   `json:"advisory_conflicts,omitempty"`
	Hidden            *bool   `json:"hidden,omitempty"`
}

type CreateWebhookRequestBody struct {
	SubscriberURL string   `json:"subscriber_url" binding:"required,url"`
	EventTriggers []string `json:"event_triggers" binding:"required,min=1,dive,oneof=BOOKING_CREATED BOOKING_RESCHEDULED"`
}

type UidRequestParams struct {
	UID string `uri:"uid" binding:"required"`
}

type SimpleRequestParams struct {
	ID uint `uri:"id" binding:"required"`
}
