package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/titlekeep/titlekeep-server/internal/domain"
	"github.com/titlekeep/titlekeep-server/internal/store"
)

const titleColumns = `name, requestable, icon_url, perpetual, sort_order`

// scanTitle scans a row into a domain.Title.
func scanTitle(scanner interface{ Scan(dest ...any) error }) (*domain.Title, error) {
	var t domain.Title
	var requestable, perpetual int
	err := scanner.Scan(&t.Name, &requestable, &t.IconURL, &perpetual, &t.SortOrder)
	if err != nil {
		return nil, err
	}
	t.Requestable = requestable != 0
	t.Perpetual = perpetual != 0
	return &t, nil
}

// UpsertTitle inserts or updates a title by name. Used at provisioning time;
// existing rows keep their holder and reservation references because the
// name is the key.
func (s *Store) UpsertTitle(ctx context.Context, title *domain.Title) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO titles (name, requestable, icon_url, perpetual, sort_order)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			requestable = excluded.requestable,
			icon_url    = excluded.icon_url,
			perpetual   = excluded.perpetual,
			sort_order  = excluded.sort_order`,
		title.Name,
		boolInt(title.Requestable),
		title.IconURL,
		boolInt(title.Perpetual),
		title.SortOrder,
	)
	if err != nil {
		return fmt.Errorf("upsert title: %w", err)
	}
	return nil
}

// GetTitle returns one title by name.
func (s *Store) GetTitle(ctx context.Context, name string) (*domain.Title, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+titleColumns+` FROM titles WHERE name = ?`, name)
	t, err := scanTitle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get title: %w", err)
	}
	return t, nil
}

// ListTitles returns all titles in stable dashboard order.
func (s *Store) ListTitles(ctx context.Context) ([]*domain.Title, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+titleColumns+` FROM titles ORDER BY sort_order ASC, name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list titles: %w", err)
	}
	defer rows.Close()

	var out []*domain.Title
	for rows.Next() {
		t, err := scanTitle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan title: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// RenameTitle renames a title and cascades the new name to its active holder
// and reservations in one transaction. Foreign key checks are deferred to
// commit: the parent row is renamed before the rows referencing it.
func (s *Store) RenameTitle(ctx context.Context, oldName, newName string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rename: %w", err)
	}
	defer tx.Rollback()

	// Resets automatically at commit or rollback.
	if _, err := tx.ExecContext(ctx, `PRAGMA defer_foreign_keys=ON`); err != nil {
		return fmt.Errorf("defer foreign keys: %w", err)
	}

	res, err := tx.ExecContext(ctx, `UPDATE titles SET name = ? WHERE name = ?`, newName, oldName)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrConflict
		}
		return fmt.Errorf("rename title: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rename title: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE active_holders SET title_name = ? WHERE title_name = ?`, newName, oldName); err != nil {
		return fmt.Errorf("rename holder: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE reservations SET title_name = ? WHERE title_name = ?`, newName, oldName); err != nil {
		return fmt.Errorf("rename reservations: %w", err)
	}

	return tx.Commit()
}

// SetTitleRequestable toggles whether a title can be reserved.
func (s *Store) SetTitleRequestable(ctx context.Context, name string, requestable bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE titles SET requestable = ? WHERE name = ?`, boolInt(requestable), name)
	if err != nil {
		return fmt.Errorf("set requestable: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set requestable: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// PerpetualTitle returns the single never-expiring title.
func (s *Store) PerpetualTitle(ctx context.Context) (*domain.Title, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+titleColumns+` FROM titles WHERE perpetual = 1 LIMIT 1`)
	t, err := scanTitle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("perpetual title: %w", err)
	}
	return t, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
