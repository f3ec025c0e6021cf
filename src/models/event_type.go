package models

import (
	"calbook/src/types"
	"time"
)

type EventType struct {
	ID          uint   `gorm:"primarykey" json:"id"`
	Title       string `json:"title"`
	Slug        string `gorm:"index" json:"slug"`
	Description string `json:"description,omitempty"`
	Length      uint   `json:"length"`

	SchedulingType          types.SchedulingType `gorm:"default:single" json:"scheduling_type"`
	PeriodType              types.PeriodType     `gorm:"default:unlimited" json:"period_type"`
	PeriodDays              uint                 `json:"period_days,omitempty"`
	PeriodCountCalendarDays bool                 `json:"period_count_calendar_days,omitempty"`
	PeriodStartDate         *time.Time           `json:"period_start_date,omitempty"`
	PeriodEndDate           *time.Time           `json:"period_end_date,omitempty"`

	RequiresConfirmation bool   `json:"requires_confirmation,omitempty"`
	AdvisoryConflicts    bool   `json:"advisory_conflicts,omitempty"`
	BufferMinutes        uint   `json:"buffer_minutes,omitempty"`
	Price                uint   `json:"price,omitempty"`
	Currency             string `json:"currency,omitempty"`
	Hidden               bool   `json:"hidden,omitempty"`

	OwnerID uint  `json:"owner_id,omitempty"`
	Owner   *User `gorm:"foreignKey:owner_id" json:"owner,omitempty"`

	HostLinks []*EventTypeHost `json:"host_links,omitempty"`

	types.Timestamps
}

// EventTypeHost attaches a host to an event type. Position preserves the
// order hosts were attached in, which is the round-robin tie-break.
type EventTypeHost struct {
	ID          uint `gorm:"primarykey" json:"id"`
	EventTypeID uint `gorm:"index:idx_event_type_host,unique" json:"event_type_id"`
	UserID      uint `gorm:"index:idx_event_type_host,unique" json:"user_id"`
	Position    uint `json:"position"`

	User *User `gorm:"foreignKey:user_id" json:"user,omitempty"`

	types.Timestamps
}

// Hosts flattens the ordered host links. Callers must have preloaded
// HostLinks.User with an ordered query.
func (e *EventType) Hosts() []*User {
	hosts := make([]*User, 0, len(e.HostLinks))
	for _, link := range e.HostLinks {
		if link.User != nil {
			hosts = append(hosts, link.User)
		}
	}
	return hosts
}
