// Package predictor holds the Predictor implementations: a deterministic
// indicator ensemble that runs in-process and a client for an external model
// service.
package predictor

import (
	"context"
	"math"
	"time"

	"MarketCast/internal/domain/models"
	domsvc "MarketCast/internal/domain/service"
	"MarketCast/internal/services/features"

	"github.com/shopspring/decimal"
)

const (
	StockModel  = "ensemble-v1"
	CryptoModel = "trend-v1"

	defaultStockWindow  = 30
	defaultCryptoWindow = 60
	defaultBacktestSpan = 50
)

type Config struct {
	StockWindow  int
	CryptoWindow int
	// BacktestSpan is how many trailing bars the walk-forward accuracy scores.
	BacktestSpan int
}

// Ensemble forecasts stocks by majority vote of three trend signals
// (regression extrapolation, EMA20 with RSI bands, MACD sign) and crypto by
// regression extrapolation alone.
type Ensemble struct {
	cfg Config
}

func NewEnsemble(cfg Config) *Ensemble {
	if cfg.StockWindow <= 1 {
		cfg.StockWindow = defaultStockWindow
	}
	if cfg.CryptoWindow <= 1 {
		cfg.CryptoWindow = defaultCryptoWindow
	}
	if cfg.BacktestSpan <= 0 {
		cfg.BacktestSpan = defaultBacktestSpan
	}
	return &Ensemble{cfg: cfg}
}

var _ domsvc.Predictor = (*Ensemble)(nil)

func (e *Ensemble) Name() string { return "ensemble" }

// MinHistory returns how many prices Predict needs for class.
func (e *Ensemble) MinHistory(class models.AssetClass) int {
	if class == models.AssetCrypto {
		return 2 * e.cfg.CryptoWindow
	}
	return e.cfg.StockWindow + 20
}

func (e *Ensemble) Predict(ctx context.Context, series *models.MarketSeries, tf models.Timeframe) (*models.Forecast, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if series == nil {
		return nil, models.PredictionFailure("predictor.ensemble", "no series")
	}
	closes := series.Closes()
	if need := e.MinHistory(series.Class); len(closes) < need {
		return nil, models.PredictionFailure("predictor.ensemble",
			"%s: insufficient history, need %d prices, have %d", series.Asset, need, len(closes))
	}
	if series.CurrentPrice <= 0 {
		return nil, models.PredictionFailure("predictor.ensemble", "%s: no current price", series.Asset)
	}
	horizon, err := tf.Horizon()
	if err != nil {
		return nil, err
	}

	switch series.Class {
	case models.AssetStock:
		return e.stock(series, closes, stepsAhead(series, e.cfg.StockWindow, horizon))
	case models.AssetCrypto:
		return e.crypto(series, closes, stepsAhead(series, e.cfg.CryptoWindow, horizon))
	}
	return nil, models.PredictionFailure("predictor.ensemble", "unsupported asset class %q", series.Class)
}

func (e *Ensemble) stock(series *models.MarketSeries, closes []float64, steps int) (*models.Forecast, error) {
	current := series.CurrentPrice
	w := e.cfg.StockWindow

	predicted := features.Fit(closes[len(closes)-w:]).Extrapolate(steps)
	if !(predicted > 0) || math.IsInf(predicted, 0) {
		return nil, models.PredictionFailure("predictor.stock", "%s: extrapolated price %.4f is not usable", series.Asset, predicted)
	}

	regression := models.TrendSideways
	switch {
	case predicted > current*1.0005:
		regression = models.TrendUp
	case predicted < current*0.9995:
		regression = models.TrendDown
	}

	rsi := features.RSI(closes, 14)
	ema20 := features.EMA(closes, 20)
	stat := models.TrendSideways
	switch {
	case current > ema20 && rsi > 52:
		stat = models.TrendUp
	case current < ema20 && rsi < 48:
		stat = models.TrendDown
	}

	momentum := models.TrendDown
	if features.MACD(closes) > 0 {
		momentum = models.TrendUp
	}

	trend, confidence := vote(regression, stat, momentum)

	stop := current * 1.015
	if trend == models.TrendUp {
		stop = current * 0.985
	}
	bias := models.BiasBearish
	if current > features.EMA(closes, 50) && rsi > 50 {
		bias = models.BiasBullish
	}

	stopLoss := round(stop, 2)
	return &models.Forecast{
		Trend:           trend,
		PredictedPrice:  round(predicted, 2),
		Confidence:      confidence,
		AccuracyPercent: directionalAccuracy(closes, w, e.cfg.BacktestSpan),
		StopLoss:        &stopLoss,
		MacroBias:       bias,
		Model:           StockModel,
	}, nil
}

func (e *Ensemble) crypto(series *models.MarketSeries, closes []float64, steps int) (*models.Forecast, error) {
	current := series.CurrentPrice
	w := e.cfg.CryptoWindow

	predicted := features.Fit(closes[len(closes)-w:]).Extrapolate(steps)
	if !(predicted > 0) || math.IsInf(predicted, 0) {
		return nil, models.PredictionFailure("predictor.crypto", "%s: extrapolated price %.6f is not usable", series.Asset, predicted)
	}

	change := (predicted - current) / current * 100
	trend := models.TrendSideways
	switch {
	case change > 0.1:
		trend = models.TrendUp
	case change < -0.1:
		trend = models.TrendDown
	}
	confidence := math.Round(math.Min(math.Abs(change)*20+60, 99))

	stop := current * 1.05
	if trend == models.TrendUp {
		stop = current * 0.95
	}
	stopLoss := round(stop, 4)
	return &models.Forecast{
		Trend:          trend,
		PredictedPrice: round(predicted, 4),
		Confidence:     confidence,
		StopLoss:       &stopLoss,
		Model:          CryptoModel,
	}, nil
}

// vote returns the majority trend: unanimous 98, two of three 75, else SIDEWAYS at 50.
func vote(trends ...models.Trend) (models.Trend, float64) {
	counts := map[models.Trend]int{}
	for _, t := range trends {
		counts[t]++
	}
	for _, t := range []models.Trend{models.TrendUp, models.TrendDown} {
		switch n := counts[t]; {
		case n == 3:
			return t, 98
		case n >= 2:
			return t, 75
		}
	}
	return models.TrendSideways, 50
}

// stepsAhead converts horizon into bars at the median spacing of the trailing
// window, clamped to [1, window].
func stepsAhead(series *models.MarketSeries, window int, horizon time.Duration) int {
	pts := series.Points
	if len(pts) > window {
		pts = pts[len(pts)-window:]
	}
	times := make([]time.Time, len(pts))
	for i, p := range pts {
		times[i] = p.Time
	}
	interval := features.MedianInterval(times)
	if interval <= 0 {
		return 1
	}
	bars := int(math.Round(float64(horizon) / float64(interval)))
	return max(1, min(bars, window))
}

// directionalAccuracy scores one-step regression calls over the trailing span
// of closes. Bars without movement are skipped; nil means nothing was scored.
func directionalAccuracy(closes []float64, window, span int) *float64 {
	start := max(len(closes)-span, window)
	hits, total := 0, 0
	for t := start; t < len(closes); t++ {
		prev := closes[t-1]
		actual := closes[t] - prev
		if actual == 0 {
			continue
		}
		guess := features.Fit(closes[t-window:t]).Extrapolate(1) - prev
		total++
		if (guess > 0) == (actual > 0) {
			hits++
		}
	}
	if total == 0 {
		return nil
	}
	acc := round(float64(hits)/float64(total)*100, 2)
	return &acc
}

func round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
