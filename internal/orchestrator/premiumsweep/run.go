package premiumsweep

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

type Sweeper interface {
	SweepExpired(ctx context.Context) (int, error)
}

// Run clears lapsed premium grants once at start and then every interval until ctx is canceled.
func Run(ctx context.Context, logger zerolog.Logger, sweeper Sweeper, interval time.Duration) error {
	logger = logger.With().Str("orchestrator", "premium-sweep").Logger()
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	logger.Info().Dur("interval", interval).Msg("Starting premium sweep")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		sweepOnce(ctx, logger, sweeper)
		select {
		case <-ctx.Done():
			logger.Info().Msg("Shutting down premium sweep")
			return nil
		case <-ticker.C:
		}
	}
}

func sweepOnce(ctx context.Context, logger zerolog.Logger, sweeper Sweeper) {
	n, err := sweeper.SweepExpired(ctx)
	if err != nil {
		if ctx.Err() == nil {
			logger.Error().Err(err).Msg("Premium sweep failed")
		}
		return
	}
	if n > 0 {
		logger.Info().Int("expired", n).Msg("Cleared expired premium")
	}
}
