package service

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/titlekeep/titlekeep-server/internal/domain"
	"github.com/titlekeep/titlekeep-server/internal/events"
	"github.com/titlekeep/titlekeep-server/internal/mirror"
	"github.com/titlekeep/titlekeep-server/internal/notify"
	"github.com/titlekeep/titlekeep-server/internal/store/sqlite"
)

// testEnv wires real components (SQLite store, mirror, bus) around the
// services under test.
type testEnv struct {
	store    *sqlite.Store
	mirror   *mirror.Mirror
	bus      *events.Bus
	settings *SettingsService
	booking  *BookingService
	holders  *HolderService
	schedule *ScheduleService
	titles   *TitleService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := t.TempDir()

	st, err := sqlite.Open(filepath.Join(dir, "test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	m := mirror.New(filepath.Join(dir, "state.json"), st, logger)
	require.NoError(t, m.Rebuild(context.Background()))

	bus := events.NewBus(logger)
	settings := NewSettingsService(st, logger)

	env := &testEnv{
		store:    st,
		mirror:   m,
		bus:      bus,
		settings: settings,
		booking:  NewBookingService(st, settings, m, bus, notify.NoopCRM{}, logger),
		holders:  NewHolderService(st, settings, m, bus, logger),
		schedule: NewScheduleService(st, settings, logger),
		titles:   NewTitleService(st, m, logger),
	}
	return env
}

// seedTitle inserts one title directly into the store.
func (env *testEnv) seedTitle(t *testing.T, name string, requestable, perpetual bool) {
	t.Helper()
	require.NoError(t, env.store.UpsertTitle(context.Background(), &domain.Title{
		Name:        name,
		Requestable: requestable,
		Perpetual:   perpetual,
	}))
}

// freeze pins every service clock to the given instant.
func (env *testEnv) freeze(at time.Time) {
	now := func() time.Time { return at }
	env.booking.now = now
	env.holders.now = now
	env.schedule.now = now
}

// collectEvents subscribes a recorder and starts the bus.
func (env *testEnv) collectEvents(t *testing.T) <-chan domain.Event {
	t.Helper()
	ch := make(chan domain.Event, 64)
	env.bus.Subscribe(func(_ context.Context, event domain.Event) {
		ch <- event
	})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	env.bus.Start(ctx)
	return ch
}

// waitEvent blocks for the next event of the wanted kind.
func waitEvent(t *testing.T, ch <-chan domain.Event, kind domain.EventKind) domain.Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case event := <-ch:
			if event.Kind == kind {
				return event
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s event", kind)
		}
	}
}
