package business

import (
	"context"
	"fmt"
	"time"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/session-gateway/internal/config"
)

// HousekeeperMain purges expired credential records until ctx is done.
func HousekeeperMain(ctx context.Context, cfg *config.Config) error {
	primary, closeFn, err := primaryTierFromConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialise the credential store: %w", err)
	}
	defer closeFn()

	purger, ok := primary.(Purger)
	if !ok {
		slogctx.Info(ctx, "Credential store expires records by itself, nothing to purge", "store", primary.Name())
		return nil
	}

	return runPurgeLoop(ctx, purger, cfg.Housekeeper.Interval)
}

func runPurgeLoop(ctx context.Context, purger Purger, interval time.Duration) error {
	if interval <= 0 {
		interval = 10 * time.Minute
	}

	c := time.Tick(interval)
	for {
		purged, err := purger.PurgeExpired(ctx)
		if err != nil {
			slogctx.Error(ctx, "Error during credential housekeeping", "error", err)
		} else if purged > 0 {
			slogctx.Info(ctx, "Purged expired credential records", "count", purged)
		}

		select {
		case <-c:
			continue
		case <-ctx.Done():
			return nil
		}
	}
}
