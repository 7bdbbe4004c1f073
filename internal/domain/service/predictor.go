package service

import (
	"context"

	"MarketCast/internal/domain/models"
)

// Predictor turns a validated series into a forecast for the given horizon.
// It must be deterministic for identical input and fail with a prediction
// failure when the series is too short.
type Predictor interface {
	Predict(ctx context.Context, series *models.MarketSeries, tf models.Timeframe) (*models.Forecast, error)
	Name() string
}
