package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/titlekeep/titlekeep-server/internal/domain"
	"github.com/titlekeep/titlekeep-server/internal/errors"
	"github.com/titlekeep/titlekeep-server/internal/notify"
	"github.com/titlekeep/titlekeep-server/internal/store"
)

// TenantService manages the notification tenant registry. Every mutation
// reloads the router's cache so resolution always sees current data.
type TenantService struct {
	store  store.Store
	router *notify.Router
	logger *slog.Logger
}

// NewTenantService creates a new tenant service.
func NewTenantService(st store.Store, router *notify.Router, logger *slog.Logger) *TenantService {
	return &TenantService{store: st, router: router, logger: logger}
}

// Create registers a tenant. Requesting default status routes through the
// store's single-default transaction.
func (s *TenantService) Create(ctx context.Context, tenant *domain.Tenant) error {
	wantDefault := tenant.IsDefault
	tenant.IsDefault = false

	if err := s.store.CreateTenant(ctx, tenant); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return errors.Conflict(fmt.Sprintf("tenant %q already exists", tenant.ID))
		}
		return fmt.Errorf("create tenant: %w", err)
	}
	if wantDefault {
		if err := s.store.SetDefaultTenant(ctx, tenant.ID); err != nil {
			return fmt.Errorf("set default tenant: %w", err)
		}
		tenant.IsDefault = true
	}

	s.reloadRouter(ctx)
	s.logger.Info("tenant created", "tenant", tenant.ID, "default", tenant.IsDefault)
	return nil
}

// Get returns one tenant.
func (s *TenantService) Get(ctx context.Context, id string) (*domain.Tenant, error) {
	tenant, err := s.store.GetTenant(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errors.NotFound(fmt.Sprintf("tenant %q not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("get tenant: %w", err)
	}
	return tenant, nil
}

// List returns the whole registry, default first.
func (s *TenantService) List(ctx context.Context) ([]*domain.Tenant, error) {
	return s.store.ListTenants(ctx)
}

// Update replaces a tenant's endpoint and mention target.
func (s *TenantService) Update(ctx context.Context, tenant *domain.Tenant) error {
	if err := s.store.UpdateTenant(ctx, tenant); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return errors.NotFound(fmt.Sprintf("tenant %q not found", tenant.ID))
		}
		return fmt.Errorf("update tenant: %w", err)
	}
	s.reloadRouter(ctx)
	s.logger.Info("tenant updated", "tenant", tenant.ID)
	return nil
}

// Delete removes a tenant. Deleting the default leaves the registry without
// one; resolution then falls back per the router's order.
func (s *TenantService) Delete(ctx context.Context, id string) error {
	existed, err := s.store.DeleteTenant(ctx, id)
	if err != nil {
		return fmt.Errorf("delete tenant: %w", err)
	}
	if !existed {
		return errors.NotFound(fmt.Sprintf("tenant %q not found", id))
	}
	s.reloadRouter(ctx)
	s.logger.Info("tenant deleted", "tenant", id)
	return nil
}

// SetDefault marks one tenant as the registry default.
func (s *TenantService) SetDefault(ctx context.Context, id string) error {
	if err := s.store.SetDefaultTenant(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return errors.NotFound(fmt.Sprintf("tenant %q not found", id))
		}
		return fmt.Errorf("set default tenant: %w", err)
	}
	s.reloadRouter(ctx)
	s.logger.Info("default tenant changed", "tenant", id)
	return nil
}

// SendTest delivers a test notification to one tenant's endpoint and
// reports the delivery outcome.
func (s *TenantService) SendTest(ctx context.Context, id string) error {
	tenant, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.router.SendTest(ctx, tenant); err != nil {
		return errors.TransientIO(fmt.Sprintf("test notification to %q failed", id), err)
	}
	return nil
}

func (s *TenantService) reloadRouter(ctx context.Context) {
	if err := s.router.Reload(ctx); err != nil {
		s.logger.Warn("router registry reload failed", "error", err)
	}
}
