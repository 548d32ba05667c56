package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/titlekeep/titlekeep-server/internal/domain"
	"github.com/titlekeep/titlekeep-server/internal/errors"
	"github.com/titlekeep/titlekeep-server/internal/slots"
	"github.com/titlekeep/titlekeep-server/internal/store"
)

// ScheduleService serves the read-side projections: the slot grid, status
// cards and upcoming reservations.
type ScheduleService struct {
	store    store.Store
	settings *SettingsService
	logger   *slog.Logger
	now      func() time.Time
}

// NewScheduleService creates a new schedule service.
func NewScheduleService(st store.Store, settings *SettingsService, logger *slog.Logger) *ScheduleService {
	return &ScheduleService{
		store:    st,
		settings: settings,
		logger:   logger,
		now:      time.Now,
	}
}

// ComputeSlots returns the HH:MM slot starts under the configured shift
// length.
func (s *ScheduleService) ComputeSlots(ctx context.Context) ([]string, error) {
	hours, err := s.settings.ShiftHours(ctx)
	if err != nil {
		return nil, err
	}
	return slots.Compute(hours), nil
}

// RequestableTitles returns the titles open for booking, in display order.
func (s *ScheduleService) RequestableTitles(ctx context.Context) ([]*domain.Title, error) {
	titles, err := s.store.ListTitles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list titles: %w", err)
	}
	out := make([]*domain.Title, 0, len(titles))
	for _, t := range titles {
		if t.Requestable {
			out = append(out, t)
		}
	}
	return out, nil
}

// ScheduleCell is one grid entry: who has booked a title at a slot.
type ScheduleCell struct {
	Holder   string `json:"holder"`
	Location string `json:"location,omitempty"`
}

// ScheduleGrid maps day (YYYY-MM-DD) to slot (HH:MM) to title to booking,
// covering the given number of days starting today (UTC).
func (s *ScheduleService) ScheduleGrid(ctx context.Context, days int) (map[string]map[string]map[string]ScheduleCell, error) {
	if days <= 0 {
		return nil, errors.Validation("days must be positive")
	}

	now := s.now().UTC()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, days)

	reservations, err := s.store.ListReservationsInWindow(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}

	grid := make(map[string]map[string]map[string]ScheduleCell)
	for _, r := range reservations {
		day := r.SlotStart.Format("2006-01-02")
		slot := r.SlotStart.Format("15:04")
		if grid[day] == nil {
			grid[day] = make(map[string]map[string]ScheduleCell)
		}
		if grid[day][slot] == nil {
			grid[day][slot] = make(map[string]ScheduleCell)
		}
		grid[day][slot][r.TitleName] = ScheduleCell{Holder: r.Holder, Location: r.Location}
	}
	return grid, nil
}

// StatusCards projects every title with its current holder for the
// dashboard.
func (s *ScheduleService) StatusCards(ctx context.Context) ([]domain.StatusCard, error) {
	titles, err := s.store.ListTitles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list titles: %w", err)
	}
	holders, err := s.store.ListActiveHolders(ctx)
	if err != nil {
		return nil, fmt.Errorf("list holders: %w", err)
	}

	byTitle := make(map[string]*domain.ActiveHolder, len(holders))
	for _, h := range holders {
		byTitle[h.TitleName] = h
	}

	now := s.now().UTC()
	cards := make([]domain.StatusCard, 0, len(titles))
	for _, t := range titles {
		cards = append(cards, domain.BuildStatusCard(*t, byTitle[t.Name], now))
	}
	return cards, nil
}

// UpcomingReservations returns bookings in the next given number of days,
// ascending by slot.
func (s *ScheduleService) UpcomingReservations(ctx context.Context, days int) ([]*domain.Reservation, error) {
	if days <= 0 {
		return nil, errors.Validation("days must be positive")
	}
	now := s.now().UTC()
	return s.store.ListReservationsInWindow(ctx, now, now.AddDate(0, 0, days))
}
