package models

import (
	"calbook/src/types"
	"time"
)

type Booking struct {
	ID          uint       `gorm:"primarykey" json:"id"`
	UID         string     `gorm:"uniqueIndex" json:"uid"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	StartTime   *time.Time `json:"start_time,omitempty"`
	EndTime     *time.Time `json:"end_time,omitempty"`
	Location    string     `json:"location,omitempty"`

	Status types.BookingStatus `gorm:"default:pending" json:"status"`

	EventTypeID uint       `json:"event_type_id,omitempty"`
	EventType   *EventType `gorm:"foreignKey:event_type_id" json:"event_type,omitempty"`
	UserID      uint       `json:"user_id,omitempty"`
	User        *User      `gorm:"foreignKey:user_id" json:"user,omitempty"`

	CancelSecretHash []byte      `json:"-"`
	Metadata         types.JSONB `gorm:"type:jsonb" json:"metadata,omitempty"`

	Attendees  []*Attendee         `json:"attendees,omitempty"`
	References []*BookingReference `json:"references,omitempty"`

	types.Timestamps
}
