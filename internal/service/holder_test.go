package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/titlekeep/titlekeep-server/internal/domain"
	"github.com/titlekeep/titlekeep-server/internal/errors"
)

func TestActivateSetsExpiryFromShiftHours(t *testing.T) {
	env := newTestEnv(t)
	env.seedTitle(t, "Architect", true, false)
	ctx := context.Background()
	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	active, err := env.holders.Activate(ctx, "Architect", "alice", "2:7", start)
	require.NoError(t, err)
	require.NotNil(t, active.ExpiresAt)
	assert.Equal(t, start.Add(12*time.Hour), *active.ExpiresAt)
	assert.Equal(t, start, active.ClaimedAt)
}

func TestActivatePerpetualNeverExpires(t *testing.T) {
	env := newTestEnv(t)
	env.seedTitle(t, "Guardian of Harmony", false, true)

	active, err := env.holders.Activate(context.Background(),
		"Guardian of Harmony", "carol", "", time.Now().UTC())
	require.NoError(t, err)
	assert.Nil(t, active.ExpiresAt)
	assert.Equal(t, domain.LocationNone, active.Location)
}

func TestActivateOverwritesPriorHolder(t *testing.T) {
	env := newTestEnv(t)
	env.seedTitle(t, "Architect", true, false)
	ctx := context.Background()
	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	_, err := env.holders.Activate(ctx, "Architect", "alice", "-", start)
	require.NoError(t, err)
	_, err = env.holders.Activate(ctx, "Architect", "bob", "-", start.Add(time.Hour))
	require.NoError(t, err)

	current, err := env.store.GetActiveHolder(ctx, "Architect")
	require.NoError(t, err)
	assert.Equal(t, "bob", current.Holder)
}

func TestReleaseReentrant(t *testing.T) {
	env := newTestEnv(t)
	env.seedTitle(t, "Architect", true, false)
	ctx := context.Background()

	_, err := env.holders.Activate(ctx, "Architect", "alice", "-", time.Now().UTC())
	require.NoError(t, err)

	changed, err := env.holders.Release(ctx, "Architect")
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = env.holders.Release(ctx, "Architect")
	require.NoError(t, err)
	assert.False(t, changed, "duplicate release is a no-op")
}

func TestForceRelease(t *testing.T) {
	env := newTestEnv(t)
	env.seedTitle(t, "Architect", true, false)
	ctx := context.Background()
	eventsCh := env.collectEvents(t)

	_, err := env.holders.Activate(ctx, "Architect", "alice", "-", time.Now().UTC())
	require.NoError(t, err)

	require.NoError(t, env.holders.ForceRelease(ctx, "Architect"))
	event := waitEvent(t, eventsCh, domain.EventReleasedForced)
	assert.Equal(t, "alice", event.Holder)

	err = env.holders.ForceRelease(ctx, "Architect")
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestManualAssign(t *testing.T) {
	env := newTestEnv(t)
	env.seedTitle(t, "Architect", true, false)
	now := time.Date(2026, 9, 1, 9, 17, 0, 0, time.UTC)
	env.freeze(now)

	active, err := env.holders.ManualAssign(context.Background(), "Architect", "dave", "1:1")
	require.NoError(t, err)
	assert.Equal(t, now, active.ClaimedAt)
	require.NotNil(t, active.ExpiresAt)
	assert.Equal(t, now.Add(12*time.Hour), *active.ExpiresAt)

	_, err = env.holders.ManualAssign(context.Background(), "Architect", "", "")
	assert.ErrorIs(t, err, errors.ErrValidation)
}

func TestPromotionCandidates(t *testing.T) {
	env := newTestEnv(t)
	env.freeze(time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC))
	env.seedTitle(t, "Vacant", true, false)
	env.seedTitle(t, "StaleHolder", true, false)
	env.seedTitle(t, "FreshHolder", true, false)
	ctx := context.Background()
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	slot := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	book := func(title, holder string, at time.Time) {
		req := &BookRequest{TitleName: title, Holder: holder, SlotStart: at}
		_, err := env.booking.Book(ctx, req)
		require.NoError(t, err)
	}
	book("Vacant", "v", slot)
	book("StaleHolder", "s", slot)
	book("FreshHolder", "f", slot)

	// StaleHolder was claimed before the slot start, FreshHolder after.
	_, err := env.holders.Activate(ctx, "StaleHolder", "old", "-", slot.Add(-6*time.Hour))
	require.NoError(t, err)
	_, err = env.holders.Activate(ctx, "FreshHolder", "new", "-", slot.Add(time.Minute))
	require.NoError(t, err)

	candidates, err := env.holders.PromotionCandidates(ctx, now)
	require.NoError(t, err)

	names := make([]string, 0, len(candidates))
	for _, c := range candidates {
		names = append(names, c.TitleName)
	}
	assert.ElementsMatch(t, []string{"Vacant", "StaleHolder"}, names)
}

func TestPromoteDueLatestReservationWins(t *testing.T) {
	env := newTestEnv(t)
	env.freeze(time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC))
	env.seedTitle(t, "Architect", true, false)
	ctx := context.Background()

	early := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	late := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	for holder, at := range map[string]time.Time{"first": early, "second": late} {
		_, err := env.booking.Book(ctx, &BookRequest{TitleName: "Architect", Holder: holder, SlotStart: at})
		require.NoError(t, err)
	}

	promoted, err := env.holders.PromoteDue(ctx, late.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 2, promoted)

	current, err := env.store.GetActiveHolder(ctx, "Architect")
	require.NoError(t, err)
	assert.Equal(t, "second", current.Holder, "ascending application leaves the latest due reservation in place")
}

func TestEndToEndPromotionThenExpiry(t *testing.T) {
	env := newTestEnv(t)
	env.seedTitle(t, "Architect", true, false)
	ctx := context.Background()
	require.NoError(t, env.settings.SetShiftHours(ctx, 12))

	slot := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	env.freeze(slot.Add(-time.Hour))
	_, err := env.booking.Book(ctx, &BookRequest{TitleName: "Architect", Holder: "X", SlotStart: slot})
	require.NoError(t, err)

	promoted, err := env.holders.PromoteDue(ctx, slot)
	require.NoError(t, err)
	require.Equal(t, 1, promoted)

	active, err := env.store.GetActiveHolder(ctx, "Architect")
	require.NoError(t, err)
	require.NotNil(t, active.ExpiresAt)
	assert.Equal(t, time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC), *active.ExpiresAt)

	// One minute past expiry the sweep releases the title.
	released, err := env.holders.ReleaseExpired(ctx, time.Date(2024, 1, 1, 12, 1, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, released)

	_, err = env.store.GetActiveHolder(ctx, "Architect")
	assert.Error(t, err)
}

func TestReleaseExpiredEmitsEvents(t *testing.T) {
	env := newTestEnv(t)
	env.seedTitle(t, "Architect", true, false)
	env.seedTitle(t, "Guardian of Harmony", false, true)
	ctx := context.Background()
	eventsCh := env.collectEvents(t)

	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	_, err := env.holders.Activate(ctx, "Architect", "alice", "-", start)
	require.NoError(t, err)
	_, err = env.holders.Activate(ctx, "Guardian of Harmony", "carol", "-", start)
	require.NoError(t, err)

	released, err := env.holders.ReleaseExpired(ctx, start.Add(13*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, released, "perpetual title never expires")

	event := waitEvent(t, eventsCh, domain.EventReleasedExpired)
	assert.Equal(t, "Architect", event.TitleName)
}
