// Package slots derives the allowed time-of-day boundaries for a 24 hour day
// from the configured shift length.
package slots

import (
	"fmt"
	"time"
)

// fallbackShiftHours is substituted when a shift length does not evenly
// divide 24, so the grid never drifts across day boundaries.
const fallbackShiftHours = 12

// Compute returns the HH:MM slot starts for a 24 hour day, ascending from
// 00:00. A non-positive shift length, or one that does not evenly divide 24,
// silently falls back to 12-hour slots.
func Compute(shiftHours int) []string {
	sh := Effective(shiftHours)
	out := make([]string, 0, 24/sh)
	for h := 0; h < 24; h += sh {
		out = append(out, fmt.Sprintf("%02d:00", h))
	}
	return out
}

// Effective returns the shift length actually used for grid computation:
// the input when it is positive and evenly divides 24, otherwise 12.
func Effective(shiftHours int) int {
	if shiftHours <= 0 || 24%shiftHours != 0 {
		return fallbackShiftHours
	}
	return shiftHours
}

// OnGrid reports whether the instant's time-of-day falls on a boundary of
// the grid for the given shift length.
func OnGrid(t time.Time, shiftHours int) bool {
	hhmm := t.UTC().Format("15:04")
	for _, s := range Compute(shiftHours) {
		if s == hhmm {
			return true
		}
	}
	return false
}
