package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/titlekeep/titlekeep-server/internal/domain"
	"github.com/titlekeep/titlekeep-server/internal/errors"
	"github.com/titlekeep/titlekeep-server/internal/mirror"
	"github.com/titlekeep/titlekeep-server/internal/store"
)

// TitleService covers title administration: rename and requestability.
// Titles are provisioned by the seed command and never deleted here.
type TitleService struct {
	store  store.Store
	mirror *mirror.Mirror
	logger *slog.Logger
}

// NewTitleService creates a new title service.
func NewTitleService(st store.Store, m *mirror.Mirror, logger *slog.Logger) *TitleService {
	return &TitleService{store: st, mirror: m, logger: logger}
}

// List returns the full catalog in display order.
func (s *TitleService) List(ctx context.Context) ([]*domain.Title, error) {
	return s.store.ListTitles(ctx)
}

// Get returns one title.
func (s *TitleService) Get(ctx context.Context, name string) (*domain.Title, error) {
	title, err := s.store.GetTitle(ctx, name)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errors.NotFound(fmt.Sprintf("title %q not found", name))
	}
	if err != nil {
		return nil, fmt.Errorf("get title: %w", err)
	}
	return title, nil
}

// Rename changes a title's name, cascading to its active holder and
// reservations in one transaction, then rebuilds the mirror so the snapshot
// reflects the new name.
func (s *TitleService) Rename(ctx context.Context, oldName, newName string) error {
	if newName == "" {
		return errors.Validation("new title name is required")
	}
	if err := s.store.RenameTitle(ctx, oldName, newName); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return errors.NotFound(fmt.Sprintf("title %q not found", oldName))
		case errors.Is(err, store.ErrConflict):
			return errors.Conflict(fmt.Sprintf("title %q already exists", newName))
		}
		return fmt.Errorf("rename title: %w", err)
	}

	if err := s.store.AppendAudit(ctx, &domain.AuditRecord{
		ID:        uuid.NewString(),
		At:        time.Now().UTC(),
		Action:    domain.AuditTitleRenamed,
		TitleName: newName,
		Source:    domain.SourceAdmin,
		Note:      fmt.Sprintf("renamed from %q", oldName),
	}); err != nil {
		s.logger.Warn("audit append failed", "action", domain.AuditTitleRenamed, "error", err)
	}

	if err := s.mirror.Rebuild(ctx); err != nil {
		s.logger.Warn("mirror rebuild after rename failed", "error", err)
	}
	s.logger.Info("title renamed", "from", oldName, "to", newName)
	return nil
}

// SetRequestable toggles whether a title can be reserved. The perpetual
// title stays admin-assigned only and can never be opened for booking.
func (s *TitleService) SetRequestable(ctx context.Context, name string, requestable bool) error {
	if requestable {
		perpetual, err := s.store.PerpetualTitle(ctx)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("load perpetual title: %w", err)
		}
		if err == nil && perpetual.Name == name {
			return errors.Validation(fmt.Sprintf("title %q is perpetual and cannot be made requestable", name))
		}
	}
	if err := s.store.SetTitleRequestable(ctx, name, requestable); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return errors.NotFound(fmt.Sprintf("title %q not found", name))
		}
		return fmt.Errorf("set requestable: %w", err)
	}
	s.logger.Info("title requestability changed", "title", name, "requestable", requestable)
	return nil
}
