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

const reservationColumns = `id, title_name, holder, location, slot_start, cancel_token, created_at`

func scanReservation(scanner interface{ Scan(dest ...any) error }) (*domain.Reservation, error) {
	var r domain.Reservation
	var slotStart, createdAt string

	err := scanner.Scan(&r.ID, &r.TitleName, &r.Holder, &r.Location, &slotStart, &r.CancelToken, &createdAt)
	if err != nil {
		return nil, err
	}

	r.SlotStart, err = parseTime(slotStart)
	if err != nil {
		return nil, err
	}
	r.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// BookReservation inserts a reservation for (title, slot) and, when
// provided, its audit record inside a single transaction. If a reservation
// already exists at that slot:
//   - same holder and location: the existing row is returned unchanged with
//     created=false, so repeat submissions hand back the original cancel token
//   - anyone else: store.ErrConflict, and nothing is written
func (s *Store) BookReservation(ctx context.Context, res *domain.Reservation, audit *domain.AuditRecord) (*domain.Reservation, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("book reservation: begin: %w", err)
	}
	defer tx.Rollback()

	slot := formatTime(res.SlotStart)

	row := tx.QueryRowContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations
		 WHERE title_name = ? AND slot_start = ?`,
		res.TitleName, slot)
	existing, err := scanReservation(row)
	switch {
	case err == nil:
		if existing.Holder == res.Holder && existing.Location == res.Location {
			return existing, false, nil
		}
		return nil, false, store.ErrConflict
	case errors.Is(err, sql.ErrNoRows):
		// slot is free, fall through to insert
	default:
		return nil, false, fmt.Errorf("book reservation: lookup: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO reservations (id, title_name, holder, location, slot_start, cancel_token, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		res.ID, res.TitleName, res.Holder, res.Location,
		slot, res.CancelToken, formatTime(res.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, false, store.ErrConflict
		}
		return nil, false, fmt.Errorf("book reservation: insert: %w", err)
	}

	if audit != nil {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO audit_log (id, at, action, title_name, holder, location, source, note)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			audit.ID, formatTime(audit.At), audit.Action, audit.TitleName,
			audit.Holder, audit.Location, audit.Source, audit.Note)
		if err != nil {
			return nil, false, fmt.Errorf("book reservation: audit: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("book reservation: commit: %w", err)
	}
	return res, true, nil
}

// GetReservation returns a reservation by id, or store.ErrNotFound.
func (s *Store) GetReservation(ctx context.Context, id string) (*domain.Reservation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id)
	r, err := scanReservation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get reservation: %w", err)
	}
	return r, nil
}

// DeleteReservationByToken removes the reservation holding the given cancel
// token and returns the removed row, or store.ErrNotFound when no reservation
// carries that token.
func (s *Store) DeleteReservationByToken(ctx context.Context, token string) (*domain.Reservation, error) {
	return s.deleteReservation(ctx, `cancel_token = ?`, token)
}

// DeleteReservationBySlot removes the reservation at (title, slot) and returns
// the removed row, or store.ErrNotFound.
func (s *Store) DeleteReservationBySlot(ctx context.Context, titleName string, slotStart time.Time) (*domain.Reservation, error) {
	return s.deleteReservation(ctx, `title_name = ? AND slot_start = ?`, titleName, formatTime(slotStart))
}

func (s *Store) deleteReservation(ctx context.Context, where string, args ...any) (*domain.Reservation, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("delete reservation: begin: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE `+where, args...)
	r, err := scanReservation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("delete reservation: lookup: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM reservations WHERE id = ?`, r.ID); err != nil {
		return nil, fmt.Errorf("delete reservation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("delete reservation: commit: %w", err)
	}
	return r, nil
}

// ListReservationsInWindow returns reservations with slot_start in [from, to),
// ordered by slot start ascending.
func (s *Store) ListReservationsInWindow(ctx context.Context, from, to time.Time) ([]*domain.Reservation, error) {
	return s.listReservations(ctx,
		`SELECT `+reservationColumns+` FROM reservations
		 WHERE slot_start >= ? AND slot_start < ?
		 ORDER BY slot_start ASC`,
		formatTime(from), formatTime(to))
}

// ListDueReservations returns reservations whose slot start is at or before
// now, oldest first. These are the promotion candidates for the sweep.
func (s *Store) ListDueReservations(ctx context.Context, now time.Time) ([]*domain.Reservation, error) {
	return s.listReservations(ctx,
		`SELECT `+reservationColumns+` FROM reservations
		 WHERE slot_start <= ?
		 ORDER BY slot_start ASC`,
		formatTime(now))
}

func (s *Store) listReservations(ctx context.Context, query string, args ...any) ([]*domain.Reservation, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	defer rows.Close()

	var out []*domain.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
