package domain

import "time"

// ActiveHolder is the current claimant of a title. At most one exists per
// title name. ExpiresAt is nil only for the perpetual title.
type ActiveHolder struct {
	TitleName string     `json:"title_name"`
	Holder    string     `json:"holder"`
	Location  string     `json:"location,omitempty"` // "-" when unknown
	ClaimedAt time.Time  `json:"claimed_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Expired reports whether the holder's claim has lapsed at the given instant.
// Holders of the perpetual title never expire.
func (h *ActiveHolder) Expired(now time.Time) bool {
	return h.ExpiresAt != nil && !h.ExpiresAt.After(now)
}

// HeldFor returns how long the title has been held at the given instant.
func (h *ActiveHolder) HeldFor(now time.Time) time.Duration {
	if now.Before(h.ClaimedAt) {
		return 0
	}
	return now.Sub(h.ClaimedAt)
}
