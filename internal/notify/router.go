package notify

import (
	"context"
	"log/slog"
	"sync"

	"github.com/titlekeep/titlekeep-server/internal/domain"
)

// TenantLister is the slice of the registry store the router needs.
type TenantLister interface {
	ListTenants(ctx context.Context) ([]*domain.Tenant, error)
}

// Router resolves which destination an event should go to and hands it to
// the sink. The tenant registry is cached under a read lock and refreshed
// after every registry mutation.
type Router struct {
	store  TenantLister
	sink   Sink
	logger *slog.Logger

	mu       sync.RWMutex
	tenants  []*domain.Tenant
	fallback *domain.Destination
}

// NewRouter creates a router over the given registry store and sink. The
// initial fallback, if any, comes from static configuration; SetFallback
// replaces it when the drop-in file changes.
func NewRouter(st TenantLister, sink Sink, fallback *domain.Destination, logger *slog.Logger) *Router {
	return &Router{
		store:    st,
		sink:     sink,
		fallback: fallback,
		logger:   logger,
	}
}

// Reload refreshes the cached tenant registry from the store.
func (r *Router) Reload(ctx context.Context) error {
	tenants, err := r.store.ListTenants(ctx)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.tenants = tenants
	r.mu.Unlock()
	return nil
}

// SetFallback replaces the legacy single-tenant fallback destination.
// A nil destination clears it.
func (r *Router) SetFallback(dest *domain.Destination) {
	r.mu.Lock()
	r.fallback = dest
	r.mu.Unlock()
}

// Resolve picks a destination for an optional explicit tenant id, in strict
// order: explicit id, registry default, sole registry entry, legacy
// fallback. The second return is false when nothing matches.
func (r *Router) Resolve(tenantID string) (domain.Destination, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if tenantID != "" {
		for _, t := range r.tenants {
			if t.ID == tenantID {
				return destinationFor(t), true
			}
		}
	}
	for _, t := range r.tenants {
		if t.IsDefault {
			return destinationFor(t), true
		}
	}
	if len(r.tenants) == 1 {
		return destinationFor(r.tenants[0]), true
	}
	if r.fallback != nil {
		return *r.fallback, true
	}
	return domain.Destination{}, false
}

// Announce resolves the event's destination and delivers it. No destination
// and delivery failures are both logged and swallowed.
func (r *Router) Announce(ctx context.Context, event domain.Event) {
	dest, ok := r.Resolve(event.TenantID)
	if !ok {
		r.logger.Warn("no notification destination resolved, skipping",
			"kind", string(event.Kind),
			"title", event.TitleName,
			"tenant", event.TenantID)
		return
	}

	msg := Message{Text: FormatEvent(event), Mention: dest.Mention}
	if err := r.sink.Send(ctx, dest, msg); err != nil {
		r.logger.Warn("notification delivery failed",
			"kind", string(event.Kind),
			"title", event.TitleName,
			"tenant", dest.TenantID,
			"error", err)
	}
}

// SendTest delivers a test message to one tenant's destination. Unlike
// Announce, the delivery error is returned so the admin surface can report
// it.
func (r *Router) SendTest(ctx context.Context, tenant *domain.Tenant) error {
	dest := destinationFor(tenant)
	return r.sink.Send(ctx, dest, Message{
		Text:    "Test notification from the title reservation engine.",
		Mention: dest.Mention,
	})
}

func destinationFor(t *domain.Tenant) domain.Destination {
	return domain.Destination{
		WebhookURL: t.WebhookURL,
		Mention:    t.MentionTarget,
		TenantID:   t.ID,
	}
}
