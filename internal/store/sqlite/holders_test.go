package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/titlekeep/titlekeep-server/internal/domain"
	"github.com/titlekeep/titlekeep-server/internal/store"
)

func TestActiveHolderUpsertOverwrites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)
	expiry := now.Add(12 * time.Hour)
	mustUpsertTitle(t, s, &domain.Title{Name: "Champion", Requestable: true})

	first := &domain.ActiveHolder{
		TitleName: "Champion",
		Holder:    "alice",
		Location:  "2:7",
		ClaimedAt: now,
		ExpiresAt: &expiry,
	}
	if err := s.UpsertActiveHolder(ctx, first); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	// Last writer wins: bob replaces alice on the same title.
	second := &domain.ActiveHolder{
		TitleName: "Champion",
		Holder:    "bob",
		Location:  domain.LocationNone,
		ClaimedAt: now.Add(time.Minute),
	}
	if err := s.UpsertActiveHolder(ctx, second); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	got, err := s.GetActiveHolder(ctx, "Champion")
	if err != nil {
		t.Fatalf("get holder: %v", err)
	}
	if got.Holder != "bob" {
		t.Errorf("holder: got %q, want %q", got.Holder, "bob")
	}
	if got.ExpiresAt != nil {
		t.Errorf("expiry should be cleared by the overwrite, got %v", got.ExpiresAt)
	}
}

func TestActiveHolderNullableExpiry(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)
	mustUpsertTitle(t, s, &domain.Title{Name: "Guardian of Harmony", Perpetual: true})

	err := s.UpsertActiveHolder(ctx, &domain.ActiveHolder{
		TitleName: "Guardian of Harmony",
		Holder:    "carol",
		Location:  domain.LocationNone,
		ClaimedAt: now,
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := s.GetActiveHolder(ctx, "Guardian of Harmony")
	if err != nil {
		t.Fatalf("get holder: %v", err)
	}
	if got.ExpiresAt != nil {
		t.Errorf("perpetual holder should have nil expiry, got %v", got.ExpiresAt)
	}
	if !got.ClaimedAt.Equal(now) {
		t.Errorf("claimed at: got %v, want %v", got.ClaimedAt, now)
	}
}

func TestDeleteActiveHolderReentrant(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	mustUpsertTitle(t, s, &domain.Title{Name: "Champion", Requestable: true})

	err := s.UpsertActiveHolder(ctx, &domain.ActiveHolder{
		TitleName: "Champion",
		Holder:    "alice",
		Location:  domain.LocationNone,
		ClaimedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	existed, err := s.DeleteActiveHolder(ctx, "Champion")
	if err != nil {
		t.Fatalf("first delete: %v", err)
	}
	if !existed {
		t.Error("first delete should report a removed row")
	}

	existed, err = s.DeleteActiveHolder(ctx, "Champion")
	if err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if existed {
		t.Error("second delete should report no row")
	}

	if _, err := s.GetActiveHolder(ctx, "Champion"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestListExpiredHolders(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	for _, name := range []string{"Expired", "Boundary", "Future", "Perpetual"} {
		mustUpsertTitle(t, s, &domain.Title{Name: name})
	}

	past := now.Add(-time.Hour)
	atNow := now
	future := now.Add(time.Hour)

	holders := []*domain.ActiveHolder{
		{TitleName: "Expired", Holder: "a", Location: "-", ClaimedAt: past, ExpiresAt: &past},
		{TitleName: "Boundary", Holder: "b", Location: "-", ClaimedAt: past, ExpiresAt: &atNow},
		{TitleName: "Future", Holder: "c", Location: "-", ClaimedAt: past, ExpiresAt: &future},
		{TitleName: "Perpetual", Holder: "d", Location: "-", ClaimedAt: past},
	}
	for _, h := range holders {
		if err := s.UpsertActiveHolder(ctx, h); err != nil {
			t.Fatalf("upsert %s: %v", h.TitleName, err)
		}
	}

	expired, err := s.ListExpiredHolders(ctx, now)
	if err != nil {
		t.Fatalf("list expired: %v", err)
	}
	if len(expired) != 2 {
		t.Fatalf("expected 2 expired holders, got %d", len(expired))
	}
	if expired[0].TitleName != "Expired" || expired[1].TitleName != "Boundary" {
		t.Errorf("wrong expired set or order: %q, %q", expired[0].TitleName, expired[1].TitleName)
	}
}

func TestActiveHolderRequiresTitle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	// No titles row exists, so the foreign key must reject the insert
	// on every connection in the pool.
	err := s.UpsertActiveHolder(ctx, &domain.ActiveHolder{
		TitleName: "Unregistered",
		Holder:    "alice",
		Location:  domain.LocationNone,
		ClaimedAt: now,
	})
	if err == nil {
		t.Fatal("expected upsert without a titles row to fail")
	}
}

func TestListExpiredHoldersSubsecondCutoff(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	mustUpsertTitle(t, s, &domain.Title{Name: "Champion", Requestable: true})

	// Expiry on an exact second, cutoff half a second later. Stored
	// timestamps keep a fixed-width fraction so the string comparison
	// in the query agrees with time order across this boundary.
	expiry := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	if err := s.UpsertActiveHolder(ctx, &domain.ActiveHolder{
		TitleName: "Champion",
		Holder:    "alice",
		Location:  domain.LocationNone,
		ClaimedAt: expiry.Add(-time.Hour),
		ExpiresAt: &expiry,
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	expired, err := s.ListExpiredHolders(ctx, expiry.Add(500*time.Millisecond))
	if err != nil {
		t.Fatalf("list expired: %v", err)
	}
	if len(expired) != 1 || expired[0].TitleName != "Champion" {
		t.Fatalf("expected the holder past its expiry, got %d rows", len(expired))
	}
}
