package predictor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"MarketCast/internal/domain/models"
	domsvc "MarketCast/internal/domain/service"
	"MarketCast/internal/services/features"
	xhttp "MarketCast/pkg/http"

	"github.com/cenkalti/backoff/v4"
)

// Remote delegates forecasting to an external model service over JSON POST.
type Remote struct {
	baseURL  string
	client   *xhttp.Client
	attempts int
}

// NewRemote builds a remote predictor. attempts bounds retries of failed calls.
func NewRemote(baseURL string, timeout time.Duration, attempts int) *Remote {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if attempts < 1 {
		attempts = 1
	}
	return &Remote{
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   xhttp.NewClient(xhttp.WithTimeout(timeout)),
		attempts: attempts,
	}
}

var _ domsvc.Predictor = (*Remote)(nil)

func (r *Remote) Name() string { return "remote" }

type remoteRequest struct {
	Class          models.AssetClass  `json:"asset_class"`
	Asset          string             `json:"asset"`
	Currency       string             `json:"currency"`
	Timeframe      models.Timeframe   `json:"timeframe"`
	HorizonSeconds int64              `json:"horizon_seconds"`
	CurrentPrice   float64            `json:"current_price"`
	Times          []int64            `json:"times"`
	Prices         []float64          `json:"prices"`
	Features       map[string]float64 `json:"features"`
}

type remoteResponse struct {
	Trend           models.Trend `json:"trend"`
	PredictedPrice  float64      `json:"predicted_price"`
	Confidence      float64      `json:"confidence"`
	AccuracyPercent *float64     `json:"accuracy_percent"`
	StopLoss        *float64     `json:"stop_loss"`
	MacroBias       models.Bias  `json:"macro_bias"`
	Model           string       `json:"model"`
}

func (r *Remote) Predict(ctx context.Context, series *models.MarketSeries, tf models.Timeframe) (*models.Forecast, error) {
	const op = "predictor.remote"
	if series == nil || len(series.Points) == 0 {
		return nil, models.PredictionFailure(op, "no series")
	}
	horizon, err := tf.Horizon()
	if err != nil {
		return nil, err
	}

	var resp remoteResponse
	if err := r.postJSONWithRetry(ctx, "/predict", buildRemoteRequest(series, tf, horizon), &resp); err != nil {
		return nil, &models.Error{Kind: models.KindPrediction, Op: op, Msg: "model service call failed", Err: err}
	}

	switch resp.Trend {
	case models.TrendUp, models.TrendDown, models.TrendSideways:
	default:
		return nil, models.PredictionFailure(op, "model service returned trend %q", resp.Trend)
	}
	if resp.PredictedPrice <= 0 || resp.Confidence < 0 || resp.Confidence > 100 {
		return nil, models.PredictionFailure(op, "model service returned price %v confidence %v", resp.PredictedPrice, resp.Confidence)
	}
	model := resp.Model
	if model == "" {
		model = "remote"
	}
	return &models.Forecast{
		Trend:           resp.Trend,
		PredictedPrice:  resp.PredictedPrice,
		Confidence:      resp.Confidence,
		AccuracyPercent: resp.AccuracyPercent,
		StopLoss:        resp.StopLoss,
		MacroBias:       resp.MacroBias,
		Model:           model,
	}, nil
}

func buildRemoteRequest(series *models.MarketSeries, tf models.Timeframe, horizon time.Duration) remoteRequest {
	closes := series.Closes()
	times := make([]int64, len(series.Points))
	stamps := make([]time.Time, len(series.Points))
	for i, p := range series.Points {
		times[i] = p.Time.Unix()
		stamps[i] = p.Time
	}
	returns := features.LogReturns(closes)
	window := min(len(returns), 30)
	return remoteRequest{
		Class:          series.Class,
		Asset:          series.Asset,
		Currency:       series.Currency,
		Timeframe:      tf,
		HorizonSeconds: int64(horizon / time.Second),
		CurrentPrice:   series.CurrentPrice,
		Times:          times,
		Prices:         closes,
		Features: map[string]float64{
			"ema20":      features.EMA(closes, 20),
			"ema50":      features.EMA(closes, 50),
			"rsi14":      features.RSI(closes, 14),
			"macd":       features.MACD(closes),
			"volatility": features.RealizedVolatility(returns, window, features.BarsPerYear(features.MedianInterval(stamps))),
		},
	}
}

// postJSON posts payload to path under baseURL and decodes JSON into dest.
func (r *Remote) postJSON(ctx context.Context, path string, payload, dest interface{}) error {
	if r.baseURL == "" {
		return fmt.Errorf("model service url not configured")
	}
	err := r.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    r.baseURL + path,
		Body:   payload,
	}, dest)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	return nil
}

// postJSONWithRetry retries failed posts with exponential backoff. 4xx
// answers other than 429 are not retried.
func (r *Remote) postJSONWithRetry(ctx context.Context, path string, payload, dest interface{}) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 50 * time.Millisecond
	bo.MaxInterval = 2 * time.Second
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(r.attempts-1)), ctx)

	return backoff.Retry(func() error {
		err := r.postJSON(ctx, path, payload, dest)
		var se *xhttp.StatusError
		if errors.As(err, &se) && se.Code >= 400 && se.Code < 500 && se.Code != 429 {
			return backoff.Permanent(err)
		}
		return err
	}, policy)
}
