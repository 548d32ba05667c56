package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/titlekeep/titlekeep-server/internal/domain"
	"github.com/titlekeep/titlekeep-server/internal/notify"
	"github.com/titlekeep/titlekeep-server/internal/service"
	"github.com/titlekeep/titlekeep-server/internal/store"
)

const reminderTimeout = 30 * time.Second

// ReminderDispatcher sends lead-time notifications for upcoming
// reservations of eligible titles, deduplicated against a persistent log.
type ReminderDispatcher struct {
	store    store.Store
	settings *service.SettingsService
	router   *notify.Router
	logger   *slog.Logger
	now      func() time.Time
}

// NewReminderDispatcher creates a dispatcher.
func NewReminderDispatcher(st store.Store, settings *service.SettingsService, router *notify.Router, logger *slog.Logger) *ReminderDispatcher {
	return &ReminderDispatcher{
		store:    st,
		settings: settings,
		router:   router,
		logger:   logger,
		now:      time.Now,
	}
}

// Runner wraps the dispatcher in a periodic runner.
func (d *ReminderDispatcher) Runner(interval time.Duration) *Runner {
	return NewRunner("reminder-dispatch", interval, reminderTimeout, d.RunOnce, d.logger)
}

// RunOnce performs one dispatch pass. Reservations starting within the lead
// window are announced once each; the dedupe key is recorded whether or not
// the send succeeded, trading a possibly lost notification for never
// spamming repeats. One failed send never stops the rest of the pass.
func (d *ReminderDispatcher) RunOnce(ctx context.Context) error {
	policy, err := d.settings.ReminderPolicy(ctx)
	if err != nil {
		return err
	}
	if !policy.Enabled || len(policy.Titles) == 0 {
		return nil
	}

	now := d.now().UTC()
	window := now.Add(time.Duration(policy.LeadMinutes) * time.Minute)
	// The store window is half-open; one extra second keeps a slot landing
	// exactly on now+lead inside it.
	upcoming, err := d.store.ListReservationsInWindow(ctx, now, window.Add(time.Second))
	if err != nil {
		return err
	}

	for _, res := range upcoming {
		if !policy.Eligible(res.TitleName) {
			continue
		}
		sent, err := d.store.ReminderSent(ctx, res.TitleName, res.SlotStart)
		if err != nil {
			d.logger.Warn("reminder dedupe check failed",
				"title", res.TitleName, "error", err)
			continue
		}
		if sent {
			continue
		}

		d.router.Announce(ctx, domain.Event{
			Kind:      domain.EventReminder,
			TitleName: res.TitleName,
			Holder:    res.Holder,
			Location:  res.Location,
			SlotStart: &res.SlotStart,
			At:        now,
		})

		if err := d.store.MarkReminderSent(ctx, res.TitleName, res.SlotStart); err != nil {
			d.logger.Warn("reminder dedupe record failed",
				"title", res.TitleName, "error", err)
		}
	}
	return nil
}
