package models

import "calbook/src/types"

// BookingReference links a booking to one externally created artifact.
// A row exists only after the provider call succeeded; reschedule and
// cancellation replay against these rows.
type BookingReference struct {
	ID              uint               `gorm:"primarykey" json:"id"`
	BookingID       uint               `gorm:"index" json:"booking_id,omitempty"`
	Type            types.ProviderKind `json:"type"`
	MeetingID       string             `json:"meeting_id"`
	MeetingPassword string             `json:"meeting_password,omitempty"`
	MeetingURL      string             `json:"meeting_url,omitempty"`

	types.Timestamps
}
