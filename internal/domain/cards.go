package domain

import (
	"fmt"
	"strings"
	"time"
)

// StatusCard is the dashboard projection of one title: who holds it, for how
// long, and when it lapses.
type StatusCard struct {
	Name      string `json:"name"`
	IconURL   string `json:"icon,omitempty"`
	Holder    string `json:"holder"`     // "-- Available --" when vacant
	HeldFor   string `json:"held_for"`   // humanized, empty when vacant
	ExpiresIn string `json:"expires_in"` // humanized, "Never", "Expired" or em dash
}

// CardHolderVacant is the holder placeholder shown for an unclaimed title.
const CardHolderVacant = "-- Available --"

// BuildStatusCard projects a title and its (possibly nil) active holder into
// a dashboard card at the given instant.
func BuildStatusCard(t Title, h *ActiveHolder, now time.Time) StatusCard {
	card := StatusCard{
		Name:      t.Name,
		IconURL:   t.IconURL,
		Holder:    CardHolderVacant,
		ExpiresIn: "—",
	}
	if h == nil {
		return card
	}

	card.Holder = h.Holder
	card.HeldFor = HumanDuration(h.HeldFor(now))

	switch {
	case t.Perpetual:
		card.ExpiresIn = "Never"
	case h.ExpiresAt == nil:
		card.ExpiresIn = "Does not expire"
	case !h.ExpiresAt.After(now):
		card.ExpiresIn = "Expired"
	default:
		card.ExpiresIn = HumanDuration(h.ExpiresAt.Sub(now))
	}
	return card
}

// HumanDuration renders a duration as "2d 3h 15m". Zero or negative
// durations render as "0m"; zero components are omitted.
func HumanDuration(d time.Duration) string {
	secs := int64(d.Seconds())
	if secs <= 0 {
		return "0m"
	}
	days := secs / 86400
	hours := (secs % 86400) / 3600
	mins := (secs % 3600) / 60

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if mins > 0 || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%dm", mins))
	}
	return strings.Join(parts, " ")
}
