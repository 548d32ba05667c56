package providers

import (
	"github.com/samber/do/v2"

	"github.com/titlekeep/titlekeep-server/internal/logger"
	"github.com/titlekeep/titlekeep-server/internal/notify"
	"github.com/titlekeep/titlekeep-server/internal/service"
)

// ProvideSettingsService provides the settings service.
func ProvideSettingsService(i do.Injector) (*service.SettingsService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)
	return service.NewSettingsService(storeHandle.Store, log.Logger), nil
}

// ProvideBookingService provides the reservation booking service.
func ProvideBookingService(i do.Injector) (*service.BookingService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	settings := do.MustInvoke[*service.SettingsService](i)
	mirrorHandle := do.MustInvoke[*MirrorHandle](i)
	busHandle := do.MustInvoke[*BusHandle](i)
	crm := do.MustInvoke[notify.CRM](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewBookingService(storeHandle.Store, settings, mirrorHandle.Mirror, busHandle.Bus, crm, log.Logger), nil
}

// ProvideHolderService provides the active holder lifecycle service.
func ProvideHolderService(i do.Injector) (*service.HolderService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	settings := do.MustInvoke[*service.SettingsService](i)
	mirrorHandle := do.MustInvoke[*MirrorHandle](i)
	busHandle := do.MustInvoke[*BusHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewHolderService(storeHandle.Store, settings, mirrorHandle.Mirror, busHandle.Bus, log.Logger), nil
}

// ProvideScheduleService provides the schedule projection service.
func ProvideScheduleService(i do.Injector) (*service.ScheduleService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	settings := do.MustInvoke[*service.SettingsService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewScheduleService(storeHandle.Store, settings, log.Logger), nil
}

// ProvideTitleService provides the title administration service.
func ProvideTitleService(i do.Injector) (*service.TitleService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	mirrorHandle := do.MustInvoke[*MirrorHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewTitleService(storeHandle.Store, mirrorHandle.Mirror, log.Logger), nil
}

// ProvideTenantService provides the tenant registry service.
func ProvideTenantService(i do.Injector) (*service.TenantService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	routerHandle := do.MustInvoke[*RouterHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewTenantService(storeHandle.Store, routerHandle.Router, log.Logger), nil
}
