package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/titlekeep/titlekeep-server/internal/config"
	"github.com/titlekeep/titlekeep-server/internal/domain"
	"github.com/titlekeep/titlekeep-server/internal/events"
	"github.com/titlekeep/titlekeep-server/internal/logger"
	"github.com/titlekeep/titlekeep-server/internal/notify"
)

// BusHandle wraps the event bus. The bus goroutine is started by the
// announcer once all subscribers are attached.
type BusHandle struct {
	*events.Bus
}

// ProvideBus provides the in-process event bus.
func ProvideBus(i do.Injector) (*BusHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)
	return &BusHandle{Bus: events.NewBus(log.Logger)}, nil
}

// ProvideSink provides the outbound webhook sink.
func ProvideSink(i do.Injector) (*notify.WebhookSink, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	return notify.NewWebhookSink(cfg.Notify.Timeout, log.Logger), nil
}

// RouterHandle wraps the notification router.
type RouterHandle struct {
	*notify.Router
}

// ProvideRouter provides the tenant-aware notification router, seeded with
// the legacy fallback destination from configuration.
func ProvideRouter(i do.Injector) (*RouterHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sink := do.MustInvoke[*notify.WebhookSink](i)

	var fallback *domain.Destination
	if cfg.Notify.FallbackWebhookURL != "" {
		fallback = &domain.Destination{
			WebhookURL: cfg.Notify.FallbackWebhookURL,
			Mention:    cfg.Notify.FallbackMention,
		}
	}

	router := notify.NewRouter(storeHandle.Store, sink, fallback, log.Logger)
	if err := router.Reload(context.Background()); err != nil {
		return nil, err
	}

	return &RouterHandle{Router: router}, nil
}

// FallbackWatcherHandle wraps the optional fallback file watcher.
type FallbackWatcherHandle struct {
	watcher *notify.FallbackWatcher
	cancel  context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *FallbackWatcherHandle) Shutdown() error {
	if h.watcher == nil {
		return nil
	}
	h.cancel()
	return h.watcher.Close()
}

// ProvideFallbackWatcher provides the hot-reload watcher for the legacy
// fallback file. With no file configured the handle is inert.
func ProvideFallbackWatcher(i do.Injector) (*FallbackWatcherHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	routerHandle := do.MustInvoke[*RouterHandle](i)

	if cfg.Notify.FallbackFile == "" {
		return &FallbackWatcherHandle{}, nil
	}

	watcher, err := notify.NewFallbackWatcher(cfg.Notify.FallbackFile, routerHandle.Router, log.Logger)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	watcher.Start(ctx)

	log.Info("Fallback file watcher started", "path", cfg.Notify.FallbackFile)

	return &FallbackWatcherHandle{watcher: watcher, cancel: cancel}, nil
}

// ProvideCRM provides the booking mirror sink, a no-op unless an endpoint is
// configured.
func ProvideCRM(i do.Injector) (notify.CRM, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Notify.CRMEndpoint == "" {
		return notify.NoopCRM{}, nil
	}

	log.Info("CRM booking mirror enabled", "endpoint", cfg.Notify.CRMEndpoint)
	return notify.NewHTTPCRM(cfg.Notify.CRMEndpoint, log.Logger), nil
}

// Announcer connects the event bus to the notification router and owns the
// bus goroutine.
type Announcer struct {
	bus    *events.Bus
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (a *Announcer) Shutdown() error {
	a.cancel()
	a.bus.Wait()
	return nil
}

// ProvideAnnouncer subscribes the router to lifecycle events and starts the
// bus. Subscriptions happen before the bus goroutine runs.
func ProvideAnnouncer(i do.Injector) (*Announcer, error) {
	log := do.MustInvoke[*logger.Logger](i)
	busHandle := do.MustInvoke[*BusHandle](i)
	routerHandle := do.MustInvoke[*RouterHandle](i)

	busHandle.Subscribe(routerHandle.Announce)

	ctx, cancel := context.WithCancel(context.Background())
	busHandle.Start(ctx)

	log.Info("Event announcer started")

	return &Announcer{bus: busHandle.Bus, cancel: cancel}, nil
}
