package sqlite

import (
	"context"
	"fmt"

	"github.com/titlekeep/titlekeep-server/internal/domain"
)

const auditColumns = `id, at, action, title_name, holder, location, source, note`

func scanAudit(scanner interface{ Scan(dest ...any) error }) (*domain.AuditRecord, error) {
	var rec domain.AuditRecord
	var at string
	err := scanner.Scan(&rec.ID, &at, &rec.Action, &rec.TitleName,
		&rec.Holder, &rec.Location, &rec.Source, &rec.Note)
	if err != nil {
		return nil, err
	}
	rec.At, err = parseTime(at)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// AppendAudit records one audit row.
func (s *Store) AppendAudit(ctx context.Context, rec *domain.AuditRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_log (id, at, action, title_name, holder, location, source, note)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, formatTime(rec.At), rec.Action, rec.TitleName,
		rec.Holder, rec.Location, rec.Source, rec.Note)
	if err != nil {
		return fmt.Errorf("append audit: %w", err)
	}
	return nil
}

// ListAudit returns the newest audit rows, capped at limit.
func (s *Store) ListAudit(ctx context.Context, limit int) ([]*domain.AuditRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+auditColumns+` FROM audit_log ORDER BY at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit: %w", err)
	}
	defer rows.Close()

	var out []*domain.AuditRecord
	for rows.Next() {
		rec, err := scanAudit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan audit: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
