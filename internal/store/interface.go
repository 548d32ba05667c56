// Package store defines the persistence interface for the title reservation engine.
package store

import (
	"context"
	"time"

	"github.com/titlekeep/titlekeep-server/internal/domain"
)

// Store defines the interface for all persistence operations. The SQLite
// implementation in store/sqlite is the authoritative ledger; the state
// mirror is derived from it and never written through this interface.
type Store interface {
	// Lifecycle
	Close() error

	// Titles
	UpsertTitle(ctx context.Context, title *domain.Title) error
	GetTitle(ctx context.Context, name string) (*domain.Title, error)
	ListTitles(ctx context.Context) ([]*domain.Title, error)
	RenameTitle(ctx context.Context, oldName, newName string) error
	SetTitleRequestable(ctx context.Context, name string, requestable bool) error
	PerpetualTitle(ctx context.Context) (*domain.Title, error)

	// Active holders
	UpsertActiveHolder(ctx context.Context, holder *domain.ActiveHolder) error
	GetActiveHolder(ctx context.Context, titleName string) (*domain.ActiveHolder, error)
	ListActiveHolders(ctx context.Context) ([]*domain.ActiveHolder, error)
	// DeleteActiveHolder removes the holder row for a title. It reports
	// whether a row was deleted; deleting a vacant title is a harmless no-op.
	DeleteActiveHolder(ctx context.Context, titleName string) (bool, error)
	ListExpiredHolders(ctx context.Context, now time.Time) ([]*domain.ActiveHolder, error)

	// Reservations
	// BookReservation inserts the reservation and its audit record inside
	// one transaction. If an identical booking (same title, slot, holder and
	// location) already exists it is returned with created=false and no
	// audit row is written; a booking by a different holder or location
	// fails with ErrConflict and mutates nothing. A nil audit skips the
	// ledger write.
	BookReservation(ctx context.Context, res *domain.Reservation, audit *domain.AuditRecord) (*domain.Reservation, bool, error)
	GetReservation(ctx context.Context, id string) (*domain.Reservation, error)
	DeleteReservationByToken(ctx context.Context, token string) (*domain.Reservation, error)
	DeleteReservationBySlot(ctx context.Context, titleName string, slotStart time.Time) (*domain.Reservation, error)
	// ListReservationsInWindow returns reservations with from <= slot_start < to,
	// ascending by slot start.
	ListReservationsInWindow(ctx context.Context, from, to time.Time) ([]*domain.Reservation, error)
	// ListDueReservations returns reservations with slot_start <= now,
	// ascending by slot start.
	ListDueReservations(ctx context.Context, now time.Time) ([]*domain.Reservation, error)

	// Tenant registry
	CreateTenant(ctx context.Context, tenant *domain.Tenant) error
	GetTenant(ctx context.Context, id string) (*domain.Tenant, error)
	ListTenants(ctx context.Context) ([]*domain.Tenant, error)
	UpdateTenant(ctx context.Context, tenant *domain.Tenant) error
	DeleteTenant(ctx context.Context, id string) (bool, error)
	// SetDefaultTenant clears any existing default and marks the given
	// tenant inside the same transaction, preserving the at-most-one-default
	// invariant.
	SetDefaultTenant(ctx context.Context, id string) error

	// Settings (generic key -> string)
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error

	// Reminder dedupe log
	ReminderSent(ctx context.Context, titleName string, slotStart time.Time) (bool, error)
	MarkReminderSent(ctx context.Context, titleName string, slotStart time.Time) error

	// Audit ledger
	AppendAudit(ctx context.Context, rec *domain.AuditRecord) error
	ListAudit(ctx context.Context, limit int) ([]*domain.AuditRecord, error)
}
