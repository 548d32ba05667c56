// Package mirror maintains a denormalized snapshot file of active holders
// and upcoming reservations. The file exists for fast and legacy readers;
// the SQLite store stays authoritative, and the snapshot is rebuilt from it
// at startup, so a missed write is self-healing.
package mirror

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/titlekeep/titlekeep-server/internal/domain"
)

// Source is the slice of the authoritative store the mirror reads when
// rebuilding.
type Source interface {
	ListActiveHolders(ctx context.Context) ([]*domain.ActiveHolder, error)
	ListReservationsInWindow(ctx context.Context, from, to time.Time) ([]*domain.Reservation, error)
}

// holderEntry is the snapshot shape for one held title.
type holderEntry struct {
	Holder    string     `json:"holder"`
	Location  string     `json:"location"`
	ClaimedAt time.Time  `json:"claimed_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// scheduleEntry is the snapshot shape for one upcoming reservation.
type scheduleEntry struct {
	TitleName string    `json:"title_name"`
	Holder    string    `json:"holder"`
	Location  string    `json:"location"`
	SlotStart time.Time `json:"slot_start"`
}

// snapshot is the full file contents.
type snapshot struct {
	UpdatedAt time.Time              `json:"updated_at"`
	Holders   map[string]holderEntry `json:"holders"`
	Schedule  []scheduleEntry        `json:"schedule"`
}

// scheduleHorizon bounds how far ahead the snapshot projects reservations.
const scheduleHorizon = 14 * 24 * time.Hour

// Mirror serializes snapshot writes behind one mutex. The lock is held only
// for local state and the file write, never across network calls.
type Mirror struct {
	mu     sync.Mutex
	path   string
	source Source
	logger *slog.Logger
	state  snapshot
}

// New creates a mirror writing to path. Call Rebuild before serving.
func New(path string, source Source, logger *slog.Logger) *Mirror {
	return &Mirror{
		path:   path,
		source: source,
		logger: logger,
		state: snapshot{
			Holders: make(map[string]holderEntry),
		},
	}
}

// Rebuild reloads the snapshot from the authoritative store and rewrites the
// file. Run at startup so a write missed before a crash is reconciled.
func (m *Mirror) Rebuild(ctx context.Context) error {
	holders, err := m.source.ListActiveHolders(ctx)
	if err != nil {
		return fmt.Errorf("rebuild mirror: %w", err)
	}
	now := time.Now().UTC()
	reservations, err := m.source.ListReservationsInWindow(ctx, now, now.Add(scheduleHorizon))
	if err != nil {
		return fmt.Errorf("rebuild mirror: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.state.Holders = make(map[string]holderEntry, len(holders))
	for _, h := range holders {
		m.state.Holders[h.TitleName] = holderEntry{
			Holder:    h.Holder,
			Location:  h.Location,
			ClaimedAt: h.ClaimedAt,
			ExpiresAt: h.ExpiresAt,
		}
	}
	m.state.Schedule = m.state.Schedule[:0]
	for _, r := range reservations {
		m.state.Schedule = append(m.state.Schedule, scheduleEntry{
			TitleName: r.TitleName,
			Holder:    r.Holder,
			Location:  r.Location,
			SlotStart: r.SlotStart,
		})
	}
	return m.writeLocked()
}

// SetHolder records an activation or re-claim in the snapshot.
func (m *Mirror) SetHolder(h *domain.ActiveHolder) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.Holders[h.TitleName] = holderEntry{
		Holder:    h.Holder,
		Location:  h.Location,
		ClaimedAt: h.ClaimedAt,
		ExpiresAt: h.ExpiresAt,
	}
	m.persistLocked()
}

// ClearHolder records a release in the snapshot.
func (m *Mirror) ClearHolder(titleName string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.state.Holders, titleName)
	m.persistLocked()
}

// AddReservation records a booking in the snapshot schedule, keeping slot
// order.
func (m *Mirror) AddReservation(r *domain.Reservation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry := scheduleEntry{
		TitleName: r.TitleName,
		Holder:    r.Holder,
		Location:  r.Location,
		SlotStart: r.SlotStart,
	}
	inserted := false
	for i, existing := range m.state.Schedule {
		if entry.SlotStart.Before(existing.SlotStart) {
			m.state.Schedule = append(m.state.Schedule[:i],
				append([]scheduleEntry{entry}, m.state.Schedule[i:]...)...)
			inserted = true
			break
		}
	}
	if !inserted {
		m.state.Schedule = append(m.state.Schedule, entry)
	}
	m.persistLocked()
}

// RemoveReservation drops a cancelled or promoted booking from the snapshot.
func (m *Mirror) RemoveReservation(titleName string, slotStart time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, entry := range m.state.Schedule {
		if entry.TitleName == titleName && entry.SlotStart.Equal(slotStart) {
			m.state.Schedule = append(m.state.Schedule[:i], m.state.Schedule[i+1:]...)
			break
		}
	}
	m.persistLocked()
}

// persistLocked writes the snapshot and logs instead of failing; the next
// startup rebuild repairs a missed write.
func (m *Mirror) persistLocked() {
	if err := m.writeLocked(); err != nil {
		m.logger.Warn("mirror snapshot write failed", "path", m.path, "error", err)
	}
}

// writeLocked writes the snapshot to a temp file in the same directory and
// renames it over the target, so readers never see a torn file.
func (m *Mirror) writeLocked() error {
	m.state.UpdatedAt = time.Now().UTC()

	dir := filepath.Dir(m.path)
	tmp, err := os.CreateTemp(dir, ".mirror-*.json")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()

	if err := json.MarshalWrite(tmp, m.state); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmpName, m.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}
