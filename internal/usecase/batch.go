package usecase

import (
	"context"
	"time"

	"MarketCast/internal/domain/models"
	"MarketCast/pkg/logger"

	"github.com/google/uuid"
)

// Runner runs one orchestrated prediction.
type Runner interface {
	Run(ctx context.Context, req models.RunRequest) models.Result
}

// BatchDriver runs a list of assets strictly one after another.
type BatchDriver struct {
	runner Runner
	logger *logger.Logger
}

func NewBatchDriver(runner Runner, l *logger.Logger) *BatchDriver {
	if l == nil {
		l = logger.Nop()
	}
	return &BatchDriver{runner: runner, logger: l}
}

// Run returns one entry per input asset, in input order. A failing asset is
// recorded in its entry and the batch moves on. Once ctx is done the
// remaining assets are reported as failed without running.
func (b *BatchDriver) Run(ctx context.Context, class models.AssetClass, assets []string, tf models.Timeframe, userID uuid.UUID) []models.BatchEntry {
	start := time.Now()
	entries := make([]models.BatchEntry, 0, len(assets))
	failed := 0
	for _, asset := range assets {
		var res models.Result
		if err := ctx.Err(); err != nil {
			res = models.Failed(models.FetchFailure("batch", err))
		} else {
			res = b.runner.Run(ctx, models.RunRequest{
				Class:     class,
				Asset:     asset,
				Timeframe: tf,
				UserID:    userID,
			})
		}
		if !res.Success {
			failed++
		}
		entries = append(entries, models.BatchEntry{Asset: asset, Result: res})
	}

	b.logger.Info("batch finished",
		logger.String("class", string(class)),
		logger.Int("assets", len(assets)),
		logger.Int("failed", failed),
		logger.Duration("took_ms", time.Since(start)),
	)
	return entries
}
