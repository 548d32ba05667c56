package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/titlekeep/titlekeep-server/internal/domain"
	"github.com/titlekeep/titlekeep-server/internal/store"
)

const holderColumns = `title_name, holder, location, claimed_at, expires_at`

// scanHolder scans a row into a domain.ActiveHolder.
func scanHolder(scanner interface{ Scan(dest ...any) error }) (*domain.ActiveHolder, error) {
	var h domain.ActiveHolder
	var claimedAt string
	var expiresAt sql.NullString

	err := scanner.Scan(&h.TitleName, &h.Holder, &h.Location, &claimedAt, &expiresAt)
	if err != nil {
		return nil, err
	}

	h.ClaimedAt, err = parseTime(claimedAt)
	if err != nil {
		return nil, err
	}
	h.ExpiresAt, err = parseNullableTime(expiresAt)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// UpsertActiveHolder creates or replaces the holder row for a title.
// Activation is last-writer-wins: any prior holder is overwritten.
func (s *Store) UpsertActiveHolder(ctx context.Context, holder *domain.ActiveHolder) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO active_holders (title_name, holder, location, claimed_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(title_name) DO UPDATE SET
			holder     = excluded.holder,
			location   = excluded.location,
			claimed_at = excluded.claimed_at,
			expires_at = excluded.expires_at`,
		holder.TitleName,
		holder.Holder,
		holder.Location,
		formatTime(holder.ClaimedAt),
		nullTimeString(holder.ExpiresAt),
	)
	if err != nil {
		return fmt.Errorf("upsert active holder: %w", err)
	}
	return nil
}

// GetActiveHolder returns the holder row for a title, or store.ErrNotFound.
func (s *Store) GetActiveHolder(ctx context.Context, titleName string) (*domain.ActiveHolder, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+holderColumns+` FROM active_holders WHERE title_name = ?`, titleName)
	h, err := scanHolder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get active holder: %w", err)
	}
	return h, nil
}

// ListActiveHolders returns all holder rows.
func (s *Store) ListActiveHolders(ctx context.Context) ([]*domain.ActiveHolder, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+holderColumns+` FROM active_holders ORDER BY title_name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list active holders: %w", err)
	}
	defer rows.Close()

	var out []*domain.ActiveHolder
	for rows.Next() {
		h, err := scanHolder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan active holder: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// DeleteActiveHolder removes the holder row for a title and reports whether
// a row existed. A concurrent duplicate release sees zero rows affected and
// returns false, which makes release reentrancy-safe.
func (s *Store) DeleteActiveHolder(ctx context.Context, titleName string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM active_holders WHERE title_name = ?`, titleName)
	if err != nil {
		return false, fmt.Errorf("delete active holder: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete active holder: %w", err)
	}
	return n > 0, nil
}

// ListExpiredHolders returns holders with a non-null expiry at or before now.
func (s *Store) ListExpiredHolders(ctx context.Context, now time.Time) ([]*domain.ActiveHolder, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+holderColumns+` FROM active_holders
		 WHERE expires_at IS NOT NULL AND expires_at <= ?
		 ORDER BY expires_at ASC`,
		formatTime(now))
	if err != nil {
		return nil, fmt.Errorf("list expired holders: %w", err)
	}
	defer rows.Close()

	var out []*domain.ActiveHolder
	for rows.Next() {
		h, err := scanHolder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expired holder: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
