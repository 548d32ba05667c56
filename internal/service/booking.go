package service

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/titlekeep/titlekeep-server/internal/domain"
	"github.com/titlekeep/titlekeep-server/internal/errors"
	"github.com/titlekeep/titlekeep-server/internal/events"
	"github.com/titlekeep/titlekeep-server/internal/id"
	"github.com/titlekeep/titlekeep-server/internal/mirror"
	"github.com/titlekeep/titlekeep-server/internal/notify"
	"github.com/titlekeep/titlekeep-server/internal/slots"
	"github.com/titlekeep/titlekeep-server/internal/store"
)

// locationPattern matches the "<int>:<int>" coordinate form.
var locationPattern = regexp.MustCompile(`^\d+:\d+$`)

// BookingService owns the reservation ledger: booking, cancellation and
// admin release. Post-commit side effects (notify, mirror, CRM) are
// best-effort and never fail the mutation.
type BookingService struct {
	store    store.Store
	settings *SettingsService
	mirror   *mirror.Mirror
	bus      *events.Bus
	crm      notify.CRM
	logger   *slog.Logger
	now      func() time.Time
}

// NewBookingService creates a new booking service.
func NewBookingService(st store.Store, settings *SettingsService, m *mirror.Mirror, bus *events.Bus, crm notify.CRM, logger *slog.Logger) *BookingService {
	return &BookingService{
		store:    st,
		settings: settings,
		mirror:   m,
		bus:      bus,
		crm:      crm,
		logger:   logger,
		now:      time.Now,
	}
}

// BookRequest carries one booking attempt.
type BookRequest struct {
	TitleName string
	Holder    string
	Location  string // empty or "-" when unknown
	SlotStart time.Time
	TenantID  string // optional notification routing hint
	Source    string // audit source, defaults to "web"
}

// BookResult is a committed or idempotently reused booking.
type BookResult struct {
	Reservation *domain.Reservation
	CancelToken string
	Created     bool
}

// Book validates and commits a reservation. Validation failures reject
// before any mutation; a slot held by a different holder or location is a
// conflict and mutates nothing.
func (s *BookingService) Book(ctx context.Context, req *BookRequest) (*BookResult, error) {
	now := s.now().UTC()

	if req.Holder == "" {
		return nil, errors.Validation("holder is required")
	}
	if !req.SlotStart.After(now) {
		return nil, errors.Validation("slot start must be in the future")
	}

	slot := domain.NormalizeSlot(req.SlotStart)

	hours, err := s.settings.ShiftHours(ctx)
	if err != nil {
		return nil, err
	}
	if !slots.OnGrid(slot, hours) {
		return nil, errors.Validation(fmt.Sprintf("%s is not a valid slot start for %d-hour shifts",
			slot.Format("15:04"), slots.Effective(hours)))
	}

	location := req.Location
	if location == "" {
		location = domain.LocationNone
	}
	if location != domain.LocationNone && !locationPattern.MatchString(location) {
		return nil, errors.Validation("location must look like 123:456")
	}

	title, err := s.store.GetTitle(ctx, req.TitleName)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errors.NotFound(fmt.Sprintf("title %q not found", req.TitleName))
	}
	if err != nil {
		return nil, fmt.Errorf("load title: %w", err)
	}
	if !title.Requestable {
		return nil, errors.Validation(fmt.Sprintf("title %q is not requestable", title.Name))
	}

	token, err := id.CancelToken()
	if err != nil {
		return nil, fmt.Errorf("mint cancel token: %w", err)
	}
	resID, err := id.Generate("rsv")
	if err != nil {
		return nil, fmt.Errorf("generate reservation id: %w", err)
	}

	source := req.Source
	if source == "" {
		source = domain.SourceWeb
	}
	res := &domain.Reservation{
		ID:          resID,
		TitleName:   title.Name,
		Holder:      req.Holder,
		Location:    location,
		SlotStart:   slot,
		CancelToken: token,
		CreatedAt:   now,
	}
	audit := &domain.AuditRecord{
		ID:        uuid.NewString(),
		At:        now,
		Action:    domain.AuditBook,
		TitleName: title.Name,
		Holder:    req.Holder,
		Location:  location,
		Source:    source,
	}

	committed, created, err := s.store.BookReservation(ctx, res, audit)
	if errors.Is(err, store.ErrConflict) {
		return nil, errors.Conflict(fmt.Sprintf("slot %s for %q is already reserved",
			slot.Format("2006-01-02 15:04"), title.Name))
	}
	if err != nil {
		return nil, fmt.Errorf("book reservation: %w", err)
	}

	if created {
		s.mirror.AddReservation(committed)
		s.bus.Emit(domain.Event{
			Kind:      domain.EventBooked,
			TitleName: committed.TitleName,
			Holder:    committed.Holder,
			Location:  committed.Location,
			SlotStart: &committed.SlotStart,
			At:        now,
			TenantID:  req.TenantID,
		})
		if err := s.crm.MirrorBooking(ctx, committed); err != nil {
			s.logger.Warn("crm mirror failed", "title", committed.TitleName, "error", err)
		}
	}

	return &BookResult{
		Reservation: committed,
		CancelToken: committed.CancelToken,
		Created:     created,
	}, nil
}

// Cancel removes the reservation owning the token.
func (s *BookingService) Cancel(ctx context.Context, token string) (*domain.Reservation, error) {
	res, err := s.store.DeleteReservationByToken(ctx, token)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errors.NotFound("no reservation matches that cancellation token")
	}
	if err != nil {
		return nil, fmt.Errorf("cancel reservation: %w", err)
	}

	s.finishRemoval(ctx, res, domain.AuditCancel, domain.SourceWeb)
	return res, nil
}

// AdminRelease removes the reservation at (title, slot) without a token.
func (s *BookingService) AdminRelease(ctx context.Context, titleName string, slotStart time.Time) (*domain.Reservation, error) {
	slot := domain.NormalizeSlot(slotStart)
	res, err := s.store.DeleteReservationBySlot(ctx, titleName, slot)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errors.NotFound(fmt.Sprintf("no reservation for %q at %s",
			titleName, slot.Format("2006-01-02 15:04")))
	}
	if err != nil {
		return nil, fmt.Errorf("admin release reservation: %w", err)
	}

	s.finishRemoval(ctx, res, domain.AuditAdminRelease, domain.SourceAdmin)
	return res, nil
}

// finishRemoval applies the best-effort post-commit steps of a reservation
// removal.
func (s *BookingService) finishRemoval(ctx context.Context, res *domain.Reservation, action, source string) {
	now := s.now().UTC()
	if err := s.store.AppendAudit(ctx, &domain.AuditRecord{
		ID:        uuid.NewString(),
		At:        now,
		Action:    action,
		TitleName: res.TitleName,
		Holder:    res.Holder,
		Location:  res.Location,
		Source:    source,
	}); err != nil {
		s.logger.Warn("audit append failed", "action", action, "error", err)
	}

	s.mirror.RemoveReservation(res.TitleName, res.SlotStart)
	s.bus.Emit(domain.Event{
		Kind:      domain.EventCancelled,
		TitleName: res.TitleName,
		Holder:    res.Holder,
		Location:  res.Location,
		SlotStart: &res.SlotStart,
		At:        now,
	})
}
