package domain

import "time"

// EventKind classifies domain events emitted by the lifecycle engine.
type EventKind string

// Event kinds.
const (
	EventBooked          EventKind = "booked"
	EventCancelled       EventKind = "cancelled"
	EventActivated       EventKind = "activated"
	EventReleasedExpired EventKind = "released_expired"
	EventReleasedForced  EventKind = "released_forced"
	EventReminder        EventKind = "reminder"
)

// Event is a domain event describing a lifecycle transition. Events are
// consumed by announcement listeners (e.g. the chat frontend); emission is
// best-effort and never blocks or fails the mutation that produced it.
type Event struct {
	Kind      EventKind  `json:"kind"`
	TitleName string     `json:"title_name"`
	Holder    string     `json:"holder,omitempty"`
	Location  string     `json:"location,omitempty"`
	SlotStart *time.Time `json:"slot_start,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	At        time.Time  `json:"at"`
	TenantID  string     `json:"tenant_id,omitempty"` // explicit routing hint, may be empty
}
