package models

import "calbook/src/types"

type Webhook struct {
	ID            uint     `gorm:"primarykey" json:"id"`
	SubscriberURL string   `json:"subscriber_url"`
	EventTriggers []string `gorm:"serializer:json" json:"event_triggers"`
	Active        bool     `gorm:"default:true" json:"active"`
	UserID        uint     `gorm:"index" json:"user_id,omitempty"`

	types.Timestamps
}
