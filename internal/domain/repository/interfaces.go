package repository

import (
	"context"
	"errors"
	"time"

	"MarketCast/internal/domain/models"

	"github.com/google/uuid"
)

// ErrNotFound is returned by store lookups for unknown ids.
var ErrNotFound = errors.New("prediction not found")

// PredictionStore persists prediction rows. Rows are never updated; the only delete is
// the supersede sweep over a user's unexpired rows for one asset and timeframe.
type PredictionStore interface {
	Init(ctx context.Context) error
	InsertStock(ctx context.Context, p *models.StockPrediction) (string, error)
	InsertCrypto(ctx context.Context, p *models.CryptoPrediction) (string, error)
	GetStock(ctx context.Context, id string) (*models.StockPrediction, error)
	GetCrypto(ctx context.Context, id string) (*models.CryptoPrediction, error)
	// SupersedeStock and SupersedeCrypto insert a record and drop the rows it
	// supersedes as one unit, returning the new id and the number dropped.
	SupersedeStock(ctx context.Context, p *models.StockPrediction) (string, int64, error)
	SupersedeCrypto(ctx context.Context, p *models.CryptoPrediction) (string, int64, error)
	Health(ctx context.Context) error
	Close() error
}

// SupersedeKey selects the rows a new prediction replaces: same class, user,
// asset and timeframe, still valid at the new prediction's time.
type SupersedeKey struct {
	Class     models.AssetClass
	UserID    uuid.UUID
	Asset     string
	Timeframe models.Timeframe
}

// Publisher emits prediction events downstream.
type Publisher interface {
	Publish(ctx context.Context, ev *models.PredictionEvent) error
	Close() error
}

// Locker guards against overlapping batch runs. A lock that outlived its ttl
// and was taken by another holder is not released by the first holder's Unlock.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	Unlock(ctx context.Context, key, token string) error
}

type Metrics interface {
	RecordPrediction(class, outcome string)
	RecordError(kind string)
	RecordLastPrice(asset string, price float64)
	RecordLatency(op string, seconds float64)
	RecordQueueDepth(lane string, depth int)
	RecordQueueWait(lane string, seconds float64)
	RecordRateLimited(lane string)
}
