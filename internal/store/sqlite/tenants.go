package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/titlekeep/titlekeep-server/internal/domain"
	"github.com/titlekeep/titlekeep-server/internal/store"
)

const tenantColumns = `id, webhook_url, mention_target, is_default`

func scanTenant(scanner interface{ Scan(dest ...any) error }) (*domain.Tenant, error) {
	var t domain.Tenant
	var isDefault int
	if err := scanner.Scan(&t.ID, &t.WebhookURL, &t.MentionTarget, &isDefault); err != nil {
		return nil, err
	}
	t.IsDefault = isDefault != 0
	return &t, nil
}

// CreateTenant inserts a tenant row. A duplicate id is store.ErrConflict.
func (s *Store) CreateTenant(ctx context.Context, tenant *domain.Tenant) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tenants (id, webhook_url, mention_target, is_default)
		VALUES (?, ?, ?, ?)`,
		tenant.ID, tenant.WebhookURL, tenant.MentionTarget, boolInt(tenant.IsDefault))
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrConflict
		}
		return fmt.Errorf("create tenant: %w", err)
	}
	return nil
}

// GetTenant returns a tenant by id, or store.ErrNotFound.
func (s *Store) GetTenant(ctx context.Context, id string) (*domain.Tenant, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE id = ?`, id)
	t, err := scanTenant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get tenant: %w", err)
	}
	return t, nil
}

// ListTenants returns all tenants, default first then by id.
func (s *Store) ListTenants(ctx context.Context) ([]*domain.Tenant, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+tenantColumns+` FROM tenants ORDER BY is_default DESC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	defer rows.Close()

	var out []*domain.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tenant: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpdateTenant replaces the webhook and mention fields of an existing tenant.
func (s *Store) UpdateTenant(ctx context.Context, tenant *domain.Tenant) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tenants SET webhook_url = ?, mention_target = ? WHERE id = ?`,
		tenant.WebhookURL, tenant.MentionTarget, tenant.ID)
	if err != nil {
		return fmt.Errorf("update tenant: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update tenant: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteTenant removes a tenant and reports whether a row existed.
func (s *Store) DeleteTenant(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tenants WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete tenant: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete tenant: %w", err)
	}
	return n > 0, nil
}

// SetDefaultTenant marks one tenant as the default destination. The previous
// default is cleared in the same transaction so at most one row ever carries
// the flag.
func (s *Store) SetDefaultTenant(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("set default tenant: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE tenants SET is_default = 0 WHERE is_default = 1`); err != nil {
		return fmt.Errorf("set default tenant: clear: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE tenants SET is_default = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("set default tenant: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set default tenant: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("set default tenant: commit: %w", err)
	}
	return nil
}
