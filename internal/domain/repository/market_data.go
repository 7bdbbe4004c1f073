package repository

import (
	"context"

	"MarketCast/internal/domain/models"
)

// StockMarketData fetches equities history. Implementations route every call through
// an admission queue, so calls may block for the queue's pacing.
type StockMarketData interface {
	History(ctx context.Context, stock string) (*models.MarketSeries, error)
	Quote(ctx context.Context, stock string) (*models.EquityQuote, error)
}

// CryptoMarketData fetches crypto history and listings.
type CryptoMarketData interface {
	History(ctx context.Context, coinID string) (*models.MarketSeries, error)
	Markets(ctx context.Context, ids []string) ([]models.CoinMarket, error)
}
