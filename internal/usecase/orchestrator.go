package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"MarketCast/internal/domain/models"
	drepo "MarketCast/internal/domain/repository"
	domsvc "MarketCast/internal/domain/service"
	"MarketCast/pkg/logger"

	"github.com/google/uuid"
)

// DuplicatePolicy decides what happens to earlier unexpired predictions for
// the same user, asset and timeframe.
type DuplicatePolicy string

const (
	AllowDuplicates      DuplicatePolicy = "allow-duplicates"
	SupersedeIfUnexpired DuplicatePolicy = "supersede-if-unexpired"
)

// Orchestrator runs fetch, validate, predict and persist for one asset.
type Orchestrator struct {
	stocks    drepo.StockMarketData
	coins     drepo.CryptoMarketData
	predictor domsvc.Predictor
	store     drepo.PredictionStore
	pub       drepo.Publisher
	metrics   drepo.Metrics
	logger    *logger.Logger
	policy    DuplicatePolicy
	now       func() time.Time
}

// NewOrchestrator creates a new Orchestrator instance. pub and metrics may be nil.
func NewOrchestrator(
	stocks drepo.StockMarketData,
	coins drepo.CryptoMarketData,
	predictor domsvc.Predictor,
	store drepo.PredictionStore,
	pub drepo.Publisher,
	metrics drepo.Metrics,
	l *logger.Logger,
	policy DuplicatePolicy,
) *Orchestrator {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if l == nil {
		l = logger.Nop()
	}
	if policy == "" {
		policy = AllowDuplicates
	}
	return &Orchestrator{
		stocks:    stocks,
		coins:     coins,
		predictor: predictor,
		store:     store,
		pub:       pub,
		metrics:   metrics,
		logger:    l,
		policy:    policy,
		now:       time.Now,
	}
}

// SetClock replaces the clock used for prediction timestamps.
func (o *Orchestrator) SetClock(now func() time.Time) { o.now = now }

// Run never returns an error: every failure is folded into the result
// envelope, and a failed run writes nothing.
func (o *Orchestrator) Run(ctx context.Context, req models.RunRequest) models.Result {
	start := time.Now()
	log := o.logger.With(
		logger.String("class", string(req.Class)),
		logger.String("asset", req.Asset),
		logger.String("timeframe", string(req.Timeframe)),
	)

	out, err := o.run(ctx, req, log)
	o.metrics.RecordLatency("run_"+string(req.Class), time.Since(start).Seconds())
	if err != nil {
		kind := models.KindOf(err)
		o.metrics.RecordPrediction(string(req.Class), "failure")
		o.metrics.RecordError(string(kind))
		log.Warn("prediction run failed",
			logger.String("error_kind", string(kind)),
			logger.String("error_class", models.Classify(err).String()),
			logger.Error(err),
		)
		return models.Failed(err)
	}

	o.metrics.RecordPrediction(string(req.Class), "success")
	log.Info("prediction stored",
		logger.String("id", out.ID),
		logger.String("trend", string(out.Trend)),
		logger.Float64("predicted_price", out.PredictedPrice),
		logger.Float64("confidence", out.Confidence),
		logger.Duration("took_ms", time.Since(start)),
	)
	return models.Succeeded(out)
}

// RunStock is Run for the equities path.
func (o *Orchestrator) RunStock(ctx context.Context, stock string, tf models.Timeframe, userID uuid.UUID) models.Result {
	return o.Run(ctx, models.RunRequest{Class: models.AssetStock, Asset: stock, Timeframe: tf, UserID: userID})
}

// RunCrypto is Run for the crypto path.
func (o *Orchestrator) RunCrypto(ctx context.Context, coin string, tf models.Timeframe, userID uuid.UUID) models.Result {
	return o.Run(ctx, models.RunRequest{Class: models.AssetCrypto, Asset: coin, Timeframe: tf, UserID: userID})
}

func (o *Orchestrator) run(ctx context.Context, req models.RunRequest, log *logger.Logger) (*models.Outcome, error) {
	asset := strings.TrimSpace(req.Asset)
	if asset == "" {
		return nil, models.ValidationFailure("orchestrator", "asset is empty")
	}
	tf := req.Timeframe
	if tf == "" {
		tf = models.DefaultTimeframe
	}
	if _, err := tf.Horizon(); err != nil {
		return nil, err
	}

	series, err := o.fetch(ctx, req.Class, asset)
	if err != nil {
		return nil, err
	}
	if err := series.Validate(); err != nil {
		return nil, err
	}
	log.Debug("series fetched", logger.Int("points", len(series.Points)), logger.String("source", series.Source))

	forecast, err := o.predictor.Predict(ctx, series, tf)
	if err != nil {
		if models.KindOf(err) == "" {
			err = &models.Error{Kind: models.KindPrediction, Op: "predictor." + o.predictor.Name(), Err: err}
		}
		return nil, err
	}

	now := o.now()
	in := models.PredictionInput{
		UserID:       req.UserID,
		Asset:        series.Asset,
		Timeframe:    tf,
		CurrentPrice: series.CurrentPrice,
		Forecast:     forecast,
		Status:       models.StatusCompleted,
		At:           now,
	}

	var (
		base  models.PredictionBase
		stock *models.StockPrediction
		coin  *models.CryptoPrediction
	)
	switch req.Class {
	case models.AssetStock:
		if stock, err = models.NewStockPrediction(in); err != nil {
			return nil, err
		}
		base = stock.PredictionBase
	default:
		if coin, err = models.NewCryptoPrediction(in); err != nil {
			return nil, err
		}
		base = coin.PredictionBase
	}

	id, superseded, err := o.persist(ctx, stock, coin)
	if err != nil {
		return nil, err
	}

	out := &models.Outcome{
		ID:                id,
		Class:             req.Class,
		Symbol:            series.Asset,
		Timeframe:         tf,
		CurrentPrice:      series.CurrentPrice,
		PredictedPrice:    forecast.PredictedPrice,
		Trend:             forecast.Trend,
		Confidence:        forecast.Confidence,
		AccuracyPercent:   forecast.AccuracyPercent,
		StopLoss:          forecast.StopLoss,
		MacroBias:         forecast.MacroBias,
		Model:             forecast.Model,
		Status:            base.Status,
		PredictionTimeIST: base.PredictionTimeIST,
		ValidTillIST:      base.ValidTillIST,
		Superseded:        superseded,
	}
	o.metrics.RecordLastPrice(series.Asset, series.CurrentPrice)
	o.publish(ctx, req, out, now, log)
	return out, nil
}

func (o *Orchestrator) fetch(ctx context.Context, class models.AssetClass, asset string) (*models.MarketSeries, error) {
	switch class {
	case models.AssetStock:
		if o.stocks == nil {
			return nil, models.ConfigurationFailure("orchestrator", errNoAdapter(class))
		}
		return o.stocks.History(ctx, asset)
	case models.AssetCrypto:
		if o.coins == nil {
			return nil, models.ConfigurationFailure("orchestrator", errNoAdapter(class))
		}
		return o.coins.History(ctx, asset)
	}
	return nil, models.ValidationFailure("orchestrator", "unknown asset class %q", class)
}

// persist writes exactly one of stock or coin. Under the supersede policy the
// store drops the replaced rows in the same operation.
func (o *Orchestrator) persist(ctx context.Context, stock *models.StockPrediction, coin *models.CryptoPrediction) (string, int64, error) {
	switch {
	case stock != nil && o.policy == SupersedeIfUnexpired:
		return o.store.SupersedeStock(ctx, stock)
	case stock != nil:
		id, err := o.store.InsertStock(ctx, stock)
		return id, 0, err
	case o.policy == SupersedeIfUnexpired:
		return o.store.SupersedeCrypto(ctx, coin)
	default:
		id, err := o.store.InsertCrypto(ctx, coin)
		return id, 0, err
	}
}

func errNoAdapter(class models.AssetClass) error {
	return fmt.Errorf("no market data adapter for %s", class)
}

// publish emits the created event. The row is already stored, so a failed
// publish is logged and the run still succeeds.
func (o *Orchestrator) publish(ctx context.Context, req models.RunRequest, out *models.Outcome, now time.Time, log *logger.Logger) {
	if o.pub == nil {
		return
	}
	err := o.pub.Publish(ctx, &models.PredictionEvent{
		Type:      models.EventPredictionCreated,
		UserID:    req.UserID,
		Outcome:   out,
		EmittedAt: now,
	})
	if err != nil {
		o.metrics.RecordError("publish")
		log.Warn("prediction event not published", logger.String("id", out.ID), logger.Error(err))
	}
}
