package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ReminderSent reports whether a reminder has already been recorded for the
// (title, slot) pair.
func (s *Store) ReminderSent(ctx context.Context, titleName string, slotStart time.Time) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM reminder_log WHERE title_name = ? AND slot_start = ?`,
		titleName, formatTime(slotStart)).Scan(&one)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return false, fmt.Errorf("reminder sent check: %w", err)
}

// MarkReminderSent records the dedupe key for a reminder. Recording again for
// the same pair is a no-op.
func (s *Store) MarkReminderSent(ctx context.Context, titleName string, slotStart time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reminder_log (title_name, slot_start, sent_at)
		VALUES (?, ?, ?)
		ON CONFLICT(title_name, slot_start) DO NOTHING`,
		titleName, formatTime(slotStart), formatTime(time.Now().UTC()))
	if err != nil {
		return fmt.Errorf("mark reminder sent: %w", err)
	}
	return nil
}
