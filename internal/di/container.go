// Package di provides dependency injection configuration for the TitleKeep server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/titlekeep/titlekeep-server/internal/config"
	"github.com/titlekeep/titlekeep-server/internal/di/providers"
	"github.com/titlekeep/titlekeep-server/internal/logger"
	"github.com/titlekeep/titlekeep-server/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Persistence layer
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideMirror)

	// Eventing and notifications
	do.Provide(injector, providers.ProvideBus)
	do.Provide(injector, providers.ProvideSink)
	do.Provide(injector, providers.ProvideRouter)
	do.Provide(injector, providers.ProvideFallbackWatcher)
	do.Provide(injector, providers.ProvideCRM)
	do.Provide(injector, providers.ProvideAnnouncer)

	// Business services
	do.Provide(injector, providers.ProvideSettingsService)
	do.Provide(injector, providers.ProvideBookingService)
	do.Provide(injector, providers.ProvideHolderService)
	do.Provide(injector, providers.ProvideScheduleService)
	do.Provide(injector, providers.ProvideTitleService)
	do.Provide(injector, providers.ProvideTenantService)

	// Background jobs
	do.Provide(injector, providers.ProvideExpiryScanner)
	do.Provide(injector, providers.ProvideReminderDispatcher)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle
// management. This triggers lazy initialization of every provider.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*logger.Logger](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.StoreHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.MirrorHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.BusHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.RouterHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.FallbackWatcherHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.Announcer](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*service.SettingsService](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*service.BookingService](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*service.HolderService](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*service.ScheduleService](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*service.TitleService](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*service.TenantService](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.ExpiryScannerHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.ReminderDispatcherHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.HTTPServerHandle](injector); err != nil {
		return err
	}
	return nil
}
