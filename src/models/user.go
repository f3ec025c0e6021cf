package models

import "calbook/src/types"

type User struct {
	ID         uint   `gorm:"primarykey" json:"id"`
	Username   string `gorm:"uniqueIndex" json:"username"`
	Name       string `json:"name,omitempty"`
	Email      string `json:"email,omitempty"`
	TimeZone   string `json:"time_zone,omitempty"`
	BufferTime uint   `json:"buffer_time,omitempty"`

	Credentials []*Credential `json:"credentials,omitempty"`

	types.Timestamps
}
