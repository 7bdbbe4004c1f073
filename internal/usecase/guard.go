package usecase

import (
	"context"
	"errors"
	"time"

	"MarketCast/internal/domain/models"
	drepo "MarketCast/internal/domain/repository"
	"MarketCast/pkg/logger"
)

// ErrBatchRunning is returned when another batch for the same asset class holds the lock.
var ErrBatchRunning = errors.New("a batch for this asset class is already running")

// BatchGuard keeps at most one batch per asset class running across the
// HTTP trigger and the scheduler. With a redis locker this holds across
// processes too.
type BatchGuard struct {
	locker drepo.Locker
	ttl    time.Duration
	logger *logger.Logger
}

// NewBatchGuard returns a guard. A nil locker disables locking.
func NewBatchGuard(locker drepo.Locker, ttl time.Duration, l *logger.Logger) *BatchGuard {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	if l == nil {
		l = logger.Nop()
	}
	return &BatchGuard{locker: locker, ttl: ttl, logger: l}
}

func lockKey(class models.AssetClass) string { return "batch:" + string(class) }

// Do runs fn while holding the lock for class.
func (g *BatchGuard) Do(ctx context.Context, class models.AssetClass, fn func()) error {
	if g == nil || g.locker == nil {
		fn()
		return nil
	}
	key := lockKey(class)
	token, ok, err := g.locker.TryLock(ctx, key, g.ttl)
	if err != nil {
		return models.ConfigurationFailure("batch.lock", err)
	}
	if !ok {
		return ErrBatchRunning
	}
	defer func() {
		if err := g.locker.Unlock(context.WithoutCancel(ctx), key, token); err != nil {
			g.logger.Warn("batch unlock failed", logger.String("key", key), logger.Error(err))
		}
	}()
	fn()
	return nil
}
