package models

import "calbook/src/types"

type Attendee struct {
	ID        uint   `gorm:"primarykey" json:"id"`
	BookingID uint   `gorm:"index" json:"booking_id,omitempty"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	TimeZone  string `json:"time_zone,omitempty"`

	types.Timestamps
}
