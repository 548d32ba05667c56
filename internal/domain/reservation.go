package domain

import "time"

// LocationNone is the sentinel used when a booking carries no location.
const LocationNone = "-"

// Reservation is a future booking of a title for a specific slot.
// (TitleName, SlotStart) is unique; CancelToken is the single-use opaque
// credential for self-service removal.
type Reservation struct {
	ID          string    `json:"id"`
	TitleName   string    `json:"title_name"`
	Holder      string    `json:"holder"`
	Location    string    `json:"location,omitempty"` // "-" when unknown
	SlotStart   time.Time `json:"slot_start"`         // UTC, zero seconds and sub-seconds
	CancelToken string    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

// NormalizeSlot truncates an instant to whole minutes in UTC, the canonical
// form for slot starts.
func NormalizeSlot(t time.Time) time.Time {
	return t.UTC().Truncate(time.Minute)
}

// SlotKey returns the canonical string key for a slot instant, used by the
// reminder dedupe log and the mirror's schedule projection.
func SlotKey(t time.Time) string {
	return NormalizeSlot(t).Format("2006-01-02T15:04:05")
}
