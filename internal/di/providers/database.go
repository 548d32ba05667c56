package providers

import (
	"context"

	"github.com/cenkalti/backoff/v4"
	"github.com/samber/do/v2"

	"github.com/titlekeep/titlekeep-server/internal/config"
	"github.com/titlekeep/titlekeep-server/internal/logger"
	"github.com/titlekeep/titlekeep-server/internal/mirror"
	"github.com/titlekeep/titlekeep-server/internal/store/sqlite"
)

// StoreHandle wraps the store with shutdown capability.
type StoreHandle struct {
	*sqlite.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore provides the database store. The open is retried with capped
// exponential backoff so a slow volume mount at boot does not kill the
// process.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	var st *sqlite.Store
	open := func() error {
		var err error
		st, err = sqlite.Open(cfg.DatabasePath(), log.Logger)
		if err != nil {
			log.Warn("Database open failed, retrying", "path", cfg.DatabasePath(), "error", err)
		}
		return err
	}

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = storeOpenTimeout
	if err := backoff.Retry(open, policy); err != nil {
		return nil, err
	}

	log.Info("Database initialized", "path", cfg.DatabasePath())

	return &StoreHandle{Store: st}, nil
}

// MirrorHandle wraps the state mirror for lifecycle management.
type MirrorHandle struct {
	*mirror.Mirror
}

// ProvideMirror provides the JSON state mirror, rebuilt from the database at
// startup so the snapshot never lags a previous crash.
func ProvideMirror(i do.Injector) (*MirrorHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)

	m := mirror.New(cfg.MirrorPath(), storeHandle.Store, log.Logger)
	if err := m.Rebuild(context.Background()); err != nil {
		return nil, err
	}

	log.Info("State mirror rebuilt", "path", cfg.MirrorPath())

	return &MirrorHandle{Mirror: m}, nil
}
