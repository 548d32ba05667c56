// Package service implements the lifecycle operations of the reservation
// engine: booking, activation, release, promotion, settings and the tenant
// registry. Services translate store sentinel errors into typed domain
// errors at this boundary.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/titlekeep/titlekeep-server/internal/domain"
	"github.com/titlekeep/titlekeep-server/internal/errors"
	"github.com/titlekeep/titlekeep-server/internal/store"
)

// SettingsService manages the shift length and the reminder policy.
type SettingsService struct {
	store  store.Store
	logger *slog.Logger
}

// NewSettingsService creates a new settings service.
func NewSettingsService(st store.Store, logger *slog.Logger) *SettingsService {
	return &SettingsService{store: st, logger: logger}
}

// ShiftHours returns the configured shift length, falling back to the
// default when unset or unparsable.
func (s *SettingsService) ShiftHours(ctx context.Context) (int, error) {
	raw, err := s.store.GetSetting(ctx, domain.SettingShiftHours)
	if errors.Is(err, store.ErrNotFound) {
		return domain.DefaultShiftHours, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read shift hours: %w", err)
	}
	hours, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		s.logger.Warn("stored shift hours is not a number, using default", "value", raw)
		return domain.DefaultShiftHours, nil
	}
	return hours, nil
}

// SetShiftHours stores a new shift length. Values outside 1 to 72 are
// rejected; values that do not evenly divide 24 are stored as-is and the
// grid falls back to 12-hour slots at read time. Reservations made under
// the previous grid are left untouched.
func (s *SettingsService) SetShiftHours(ctx context.Context, hours int) error {
	if hours < domain.MinShiftHours || hours > domain.MaxShiftHours {
		return errors.Validation(fmt.Sprintf("shift hours must be between %d and %d",
			domain.MinShiftHours, domain.MaxShiftHours))
	}
	if err := s.store.SetSetting(ctx, domain.SettingShiftHours, strconv.Itoa(hours)); err != nil {
		return fmt.Errorf("store shift hours: %w", err)
	}
	s.logger.Info("shift hours updated", "hours", hours)
	return nil
}

// ReminderPolicy materializes the reminder settings for the dispatcher.
// Unset keys yield the defaults: disabled, 15 minute lead, no titles.
func (s *SettingsService) ReminderPolicy(ctx context.Context) (*domain.ReminderPolicy, error) {
	policy := &domain.ReminderPolicy{LeadMinutes: domain.DefaultReminderLeadMinutes}

	if raw, err := s.store.GetSetting(ctx, domain.SettingRemindersEnabled); err == nil {
		policy.Enabled = raw == "true"
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("read reminders enabled: %w", err)
	}

	if raw, err := s.store.GetSetting(ctx, domain.SettingReminderLead); err == nil {
		if lead, perr := strconv.Atoi(strings.TrimSpace(raw)); perr == nil && lead > 0 {
			policy.LeadMinutes = lead
		}
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("read reminder lead: %w", err)
	}

	if raw, err := s.store.GetSetting(ctx, domain.SettingReminderTitles); err == nil {
		for _, name := range strings.Split(raw, ",") {
			if name = strings.TrimSpace(name); name != "" {
				policy.Titles = append(policy.Titles, name)
			}
		}
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("read reminder titles: %w", err)
	}

	return policy, nil
}

// ReminderPolicyUpdate contains the reminder fields that can be changed.
type ReminderPolicyUpdate struct {
	Enabled     *bool
	LeadMinutes *int
	Titles      []string // nil leaves the set unchanged
}

// UpdateReminderPolicy applies a partial update to the reminder settings.
func (s *SettingsService) UpdateReminderPolicy(ctx context.Context, update *ReminderPolicyUpdate) error {
	if update.Enabled != nil {
		if err := s.store.SetSetting(ctx, domain.SettingRemindersEnabled,
			strconv.FormatBool(*update.Enabled)); err != nil {
			return fmt.Errorf("store reminders enabled: %w", err)
		}
	}
	if update.LeadMinutes != nil {
		if *update.LeadMinutes <= 0 {
			return errors.Validation("reminder lead minutes must be positive")
		}
		if err := s.store.SetSetting(ctx, domain.SettingReminderLead,
			strconv.Itoa(*update.LeadMinutes)); err != nil {
			return fmt.Errorf("store reminder lead: %w", err)
		}
	}
	if update.Titles != nil {
		if err := s.store.SetSetting(ctx, domain.SettingReminderTitles,
			strings.Join(update.Titles, ",")); err != nil {
			return fmt.Errorf("store reminder titles: %w", err)
		}
	}
	s.logger.Info("reminder policy updated")
	return nil
}
