package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/titlekeep/titlekeep-server/internal/config"
	"github.com/titlekeep/titlekeep-server/internal/jobs"
	"github.com/titlekeep/titlekeep-server/internal/logger"
	"github.com/titlekeep/titlekeep-server/internal/service"
)

// runnerHandle owns one periodic job's goroutine.
type runnerHandle struct {
	runner *jobs.Runner
	cancel context.CancelFunc
}

func (h *runnerHandle) shutdown() error {
	h.cancel()
	h.runner.Wait()
	return nil
}

func startRunner(runner *jobs.Runner) *runnerHandle {
	ctx, cancel := context.WithCancel(context.Background())
	runner.Start(ctx)
	return &runnerHandle{runner: runner, cancel: cancel}
}

// ExpiryScannerHandle wraps the expiry scan job with shutdown capability.
type ExpiryScannerHandle struct {
	*runnerHandle
}

// Shutdown implements do.Shutdownable.
func (h *ExpiryScannerHandle) Shutdown() error {
	return h.shutdown()
}

// ProvideExpiryScanner provides the periodic promotion and expiry sweep.
func ProvideExpiryScanner(i do.Injector) (*ExpiryScannerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	holders := do.MustInvoke[*service.HolderService](i)

	runner := jobs.NewExpiryScanner(holders, cfg.Jobs.ExpiryInterval, log.Logger)

	log.Info("Expiry scanner started", "interval", cfg.Jobs.ExpiryInterval)

	return &ExpiryScannerHandle{runnerHandle: startRunner(runner)}, nil
}

// ReminderDispatcherHandle wraps the reminder job with shutdown capability.
type ReminderDispatcherHandle struct {
	*runnerHandle
}

// Shutdown implements do.Shutdownable.
func (h *ReminderDispatcherHandle) Shutdown() error {
	return h.shutdown()
}

// ProvideReminderDispatcher provides the periodic reminder dispatch.
func ProvideReminderDispatcher(i do.Injector) (*ReminderDispatcherHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	settings := do.MustInvoke[*service.SettingsService](i)
	routerHandle := do.MustInvoke[*RouterHandle](i)

	dispatcher := jobs.NewReminderDispatcher(storeHandle.Store, settings, routerHandle.Router, log.Logger)
	runner := dispatcher.Runner(cfg.Jobs.ReminderInterval)

	log.Info("Reminder dispatcher started", "interval", cfg.Jobs.ReminderInterval)

	return &ReminderDispatcherHandle{runnerHandle: startRunner(runner)}, nil
}
