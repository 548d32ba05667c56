package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/titlekeep/titlekeep-server/internal/domain"
)

func TestComputeSlotsUsesConfiguredShift(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	got, err := env.schedule.ComputeSlots(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"00:00", "12:00"}, got)

	require.NoError(t, env.settings.SetShiftHours(ctx, 6))
	got, err = env.schedule.ComputeSlots(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"00:00", "06:00", "12:00", "18:00"}, got)
}

func TestRequestableTitlesFiltersClosed(t *testing.T) {
	env := newTestEnv(t)
	env.seedTitle(t, "Open", true, false)
	env.seedTitle(t, "Closed", false, false)

	titles, err := env.schedule.RequestableTitles(context.Background())
	require.NoError(t, err)
	require.Len(t, titles, 1)
	assert.Equal(t, "Open", titles[0].Name)
}

func TestScheduleGrid(t *testing.T) {
	env := newTestEnv(t)
	now := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	env.freeze(now)
	env.seedTitle(t, "Architect", true, false)
	ctx := context.Background()

	slot := time.Date(2026, 9, 2, 12, 0, 0, 0, time.UTC)
	_, err := env.booking.Book(ctx, &BookRequest{
		TitleName: "Architect", Holder: "alice", Location: "3:14", SlotStart: slot,
	})
	require.NoError(t, err)

	grid, err := env.schedule.ScheduleGrid(ctx, 7)
	require.NoError(t, err)
	cell := grid["2026-09-02"]["12:00"]["Architect"]
	assert.Equal(t, "alice", cell.Holder)
	assert.Equal(t, "3:14", cell.Location)

	_, err = env.schedule.ScheduleGrid(ctx, 0)
	assert.Error(t, err)
}

func TestStatusCards(t *testing.T) {
	env := newTestEnv(t)
	now := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	env.freeze(now)
	env.seedTitle(t, "Architect", true, false)
	env.seedTitle(t, "Guardian of Harmony", false, true)
	ctx := context.Background()

	_, err := env.holders.Activate(ctx, "Guardian of Harmony", "carol", "-", now.Add(-48*time.Hour))
	require.NoError(t, err)

	cards, err := env.schedule.StatusCards(ctx)
	require.NoError(t, err)
	require.Len(t, cards, 2)

	byName := make(map[string]domain.StatusCard)
	for _, c := range cards {
		byName[c.Name] = c
	}
	assert.Equal(t, domain.CardHolderVacant, byName["Architect"].Holder)
	assert.Equal(t, "carol", byName["Guardian of Harmony"].Holder)
	assert.Equal(t, "Never", byName["Guardian of Harmony"].ExpiresIn)
	assert.Equal(t, "2d", byName["Guardian of Harmony"].HeldFor)
}

func TestUpcomingReservations(t *testing.T) {
	env := newTestEnv(t)
	now := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	env.freeze(now)
	env.seedTitle(t, "Architect", true, false)
	ctx := context.Background()

	near := time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC)
	far := time.Date(2026, 9, 20, 0, 0, 0, 0, time.UTC)
	for holder, slot := range map[string]time.Time{"alice": near, "bob": far} {
		_, err := env.booking.Book(ctx, &BookRequest{TitleName: "Architect", Holder: holder, SlotStart: slot})
		require.NoError(t, err)
	}

	upcoming, err := env.schedule.UpcomingReservations(ctx, 7)
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	assert.Equal(t, "alice", upcoming[0].Holder)
}
