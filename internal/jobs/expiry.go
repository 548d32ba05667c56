package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/titlekeep/titlekeep-server/internal/service"
)

// expiryTimeout bounds one scan; a stuck store must not pin the runner lock
// forever.
const expiryTimeout = 30 * time.Second

// NewExpiryScanner builds the periodic holder sweep: promote due
// reservations first, then release lapsed holders. Promotion runs first so
// a reservation landing exactly on an expiring holder's boundary takes over
// in one tick instead of leaving the title vacant until the next.
func NewExpiryScanner(holders *service.HolderService, interval time.Duration, logger *slog.Logger) *Runner {
	return NewRunner("expiry-scan", interval, expiryTimeout, func(ctx context.Context) error {
		now := time.Now().UTC()

		promoted, err := holders.PromoteDue(ctx, now)
		if err != nil {
			return err
		}
		released, err := holders.ReleaseExpired(ctx, now)
		if err != nil {
			return err
		}
		if promoted > 0 || released > 0 {
			logger.Info("holder sweep applied changes", "promoted", promoted, "released", released)
		}
		return nil
	}, logger)
}
