package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/titlekeep/titlekeep-server/internal/domain"
	"github.com/titlekeep/titlekeep-server/internal/errors"
	"github.com/titlekeep/titlekeep-server/internal/events"
	"github.com/titlekeep/titlekeep-server/internal/mirror"
	"github.com/titlekeep/titlekeep-server/internal/store"
)

// HolderService is the state machine over active holders: activation,
// release, reservation-driven promotion and the expiry sweep.
type HolderService struct {
	store    store.Store
	settings *SettingsService
	mirror   *mirror.Mirror
	bus      *events.Bus
	logger   *slog.Logger
	now      func() time.Time
}

// NewHolderService creates a new holder service.
func NewHolderService(st store.Store, settings *SettingsService, m *mirror.Mirror, bus *events.Bus, logger *slog.Logger) *HolderService {
	return &HolderService{
		store:    st,
		settings: settings,
		mirror:   m,
		bus:      bus,
		logger:   logger,
		now:      time.Now,
	}
}

// Activate claims a title for a holder starting at startInstant, overwriting
// any prior holder. Expiry is startInstant plus the shift length, or nil for
// the perpetual title.
func (s *HolderService) Activate(ctx context.Context, titleName, holder, location string, startInstant time.Time) (*domain.ActiveHolder, error) {
	title, err := s.store.GetTitle(ctx, titleName)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errors.NotFound(fmt.Sprintf("title %q not found", titleName))
	}
	if err != nil {
		return nil, fmt.Errorf("load title: %w", err)
	}

	if location == "" {
		location = domain.LocationNone
	}

	active := &domain.ActiveHolder{
		TitleName: title.Name,
		Holder:    holder,
		Location:  location,
		ClaimedAt: startInstant.UTC(),
	}
	if !title.Perpetual {
		hours, err := s.settings.ShiftHours(ctx)
		if err != nil {
			return nil, err
		}
		expiry := startInstant.UTC().Add(time.Duration(hours) * time.Hour)
		active.ExpiresAt = &expiry
	}

	if err := s.store.UpsertActiveHolder(ctx, active); err != nil {
		return nil, fmt.Errorf("activate holder: %w", err)
	}

	s.mirror.SetHolder(active)
	s.appendAudit(ctx, domain.AuditActivate, active.TitleName, active.Holder, active.Location, domain.SourceSystem, "")
	s.bus.Emit(domain.Event{
		Kind:      domain.EventActivated,
		TitleName: active.TitleName,
		Holder:    active.Holder,
		Location:  active.Location,
		ExpiresAt: active.ExpiresAt,
		At:        s.now().UTC(),
	})
	return active, nil
}

// Release returns a title to vacant. Releasing a vacant title is a harmless
// no-op; the bool reports whether anything changed.
func (s *HolderService) Release(ctx context.Context, titleName string) (bool, error) {
	changed, err := s.store.DeleteActiveHolder(ctx, titleName)
	if err != nil {
		return false, fmt.Errorf("release holder: %w", err)
	}
	if changed {
		s.mirror.ClearHolder(titleName)
	}
	return changed, nil
}

// ForceRelease is the admin override: release plus audit and announcement.
func (s *HolderService) ForceRelease(ctx context.Context, titleName string) error {
	prior, err := s.store.GetActiveHolder(ctx, titleName)
	if errors.Is(err, store.ErrNotFound) {
		return errors.NotFound(fmt.Sprintf("title %q has no active holder", titleName))
	}
	if err != nil {
		return fmt.Errorf("load holder: %w", err)
	}

	changed, err := s.Release(ctx, titleName)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	s.appendAudit(ctx, domain.AuditForceRelease, titleName, prior.Holder, prior.Location, domain.SourceAdmin, "")
	s.bus.Emit(domain.Event{
		Kind:      domain.EventReleasedForced,
		TitleName: titleName,
		Holder:    prior.Holder,
		At:        s.now().UTC(),
	})
	return nil
}

// ManualAssign is the admin override that claims a title immediately.
func (s *HolderService) ManualAssign(ctx context.Context, titleName, holder, location string) (*domain.ActiveHolder, error) {
	if holder == "" {
		return nil, errors.Validation("holder is required")
	}
	active, err := s.Activate(ctx, titleName, holder, location, s.now().UTC())
	if err != nil {
		return nil, err
	}
	s.appendAudit(ctx, domain.AuditManualAssign, titleName, holder, active.Location, domain.SourceAdmin, "")
	return active, nil
}

// PromotionCandidates returns due reservations that should take over their
// title: the title is vacant, or its holder claimed before the reservation's
// slot start. Candidates come back ascending by slot start, so applying them
// in order leaves the most recent due reservation holding the title.
func (s *HolderService) PromotionCandidates(ctx context.Context, now time.Time) ([]*domain.Reservation, error) {
	due, err := s.store.ListDueReservations(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("list due reservations: %w", err)
	}

	var candidates []*domain.Reservation
	for _, res := range due {
		holder, err := s.store.GetActiveHolder(ctx, res.TitleName)
		if errors.Is(err, store.ErrNotFound) {
			candidates = append(candidates, res)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load holder for %q: %w", res.TitleName, err)
		}
		if holder.ClaimedAt.Before(res.SlotStart) {
			candidates = append(candidates, res)
		}
	}
	return candidates, nil
}

// PromoteDue activates every promotion candidate, claiming from its slot
// start. Returns how many promotions were applied.
func (s *HolderService) PromoteDue(ctx context.Context, now time.Time) (int, error) {
	candidates, err := s.PromotionCandidates(ctx, now)
	if err != nil {
		return 0, err
	}

	promoted := 0
	for _, res := range candidates {
		if _, err := s.Activate(ctx, res.TitleName, res.Holder, res.Location, res.SlotStart); err != nil {
			s.logger.Warn("promotion failed",
				"title", res.TitleName, "holder", res.Holder, "error", err)
			continue
		}
		s.mirror.RemoveReservation(res.TitleName, res.SlotStart)
		promoted++
	}
	return promoted, nil
}

// ReleaseExpired releases every holder whose expiry has passed, announcing
// each. Returns how many were released. Duplicate concurrent sweeps are
// harmless: the second release of a title is a no-op.
func (s *HolderService) ReleaseExpired(ctx context.Context, now time.Time) (int, error) {
	expired, err := s.store.ListExpiredHolders(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("list expired holders: %w", err)
	}

	released := 0
	for _, h := range expired {
		changed, err := s.Release(ctx, h.TitleName)
		if err != nil {
			s.logger.Warn("expiry release failed", "title", h.TitleName, "error", err)
			continue
		}
		if !changed {
			continue
		}
		released++
		s.appendAudit(ctx, domain.AuditRelease, h.TitleName, h.Holder, h.Location, domain.SourceSystem, "expired")
		s.bus.Emit(domain.Event{
			Kind:      domain.EventReleasedExpired,
			TitleName: h.TitleName,
			Holder:    h.Holder,
			At:        now.UTC(),
		})
	}
	return released, nil
}

// AuditLog returns the most recent ledger entries, newest first. A
// non-positive limit uses the store default.
func (s *HolderService) AuditLog(ctx context.Context, limit int) ([]*domain.AuditRecord, error) {
	records, err := s.store.ListAudit(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit: %w", err)
	}
	return records, nil
}

// appendAudit writes a ledger entry, logging instead of failing.
func (s *HolderService) appendAudit(ctx context.Context, action, title, holder, location, source, note string) {
	if err := s.store.AppendAudit(ctx, &domain.AuditRecord{
		ID:        uuid.NewString(),
		At:        s.now().UTC(),
		Action:    action,
		TitleName: title,
		Holder:    holder,
		Location:  location,
		Source:    source,
		Note:      note,
	}); err != nil {
		s.logger.Warn("audit append failed", "action", action, "error", err)
	}
}
