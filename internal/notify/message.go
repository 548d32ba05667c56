package notify

import (
	"fmt"

	"github.com/titlekeep/titlekeep-server/internal/domain"
)

// Message is what a sink delivers: freeform text plus an optional mention
// prefix supplied by the resolved destination.
type Message struct {
	Text    string
	Mention string
}

// FormatEvent renders a lifecycle event as announcement text.
func FormatEvent(event domain.Event) string {
	slot := "unscheduled"
	if event.SlotStart != nil {
		slot = event.SlotStart.UTC().Format("2006-01-02 15:04") + " UTC"
	}
	switch event.Kind {
	case domain.EventBooked:
		return fmt.Sprintf("%s reserved %q for %s", event.Holder, event.TitleName, slot)
	case domain.EventCancelled:
		return fmt.Sprintf("Reservation for %q (%s, %s) was cancelled", event.TitleName, event.Holder, slot)
	case domain.EventActivated:
		return fmt.Sprintf("%q is now held by %s", event.TitleName, event.Holder)
	case domain.EventReleasedExpired:
		return fmt.Sprintf("%q expired and is available again (was held by %s)", event.TitleName, event.Holder)
	case domain.EventReleasedForced:
		return fmt.Sprintf("%q was released by an admin (was held by %s)", event.TitleName, event.Holder)
	case domain.EventReminder:
		return fmt.Sprintf("Reminder: %s holds %q starting %s", event.Holder, event.TitleName, slot)
	default:
		return fmt.Sprintf("%q: %s (%s)", event.TitleName, event.Holder, string(event.Kind))
	}
}
