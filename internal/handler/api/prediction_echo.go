package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"MarketCast/internal/domain/models"
	drepo "MarketCast/internal/domain/repository"
	"MarketCast/internal/usecase"
	xhttp "MarketCast/pkg/http"
	"MarketCast/pkg/http/middleware"
	xlogger "MarketCast/pkg/logger"
	"MarketCast/pkg/util"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func init() {
	xhttp.RegisterRule("timeframe", func(s string) bool {
		_, err := models.ParseTimeframe(s)
		return err == nil
	}, "%s must be a horizon such as 30m, 4h, 1d or 1w")
	xhttp.RegisterRule("asset_class", func(s string) bool {
		_, err := models.ParseAssetClass(s)
		return err == nil
	}, "%s must be stock or crypto")
}

// TriggerConfig carries the trigger settings read from configuration.
type TriggerConfig struct {
	// Secret is read on every request.
	Secret        func() string
	Timeframe     models.Timeframe
	SystemUserID  uuid.UUID
	DefaultStocks []string
	DefaultCoins  []string
}

// PredictionHandler serves the batch triggers and the ad-hoc prediction routes.
type PredictionHandler struct {
	logger  *xlogger.Logger
	runner  usecase.Runner
	batch   *usecase.BatchDriver
	stocks  drepo.StockMarketData
	coins   drepo.CryptoMarketData
	store   drepo.PredictionStore
	guard   *usecase.BatchGuard
	limiter middleware.KeyLimiter
	cfg     TriggerConfig
}

// NewPredictionHandler wires the handler. guard and limiter may be nil.
func NewPredictionHandler(
	logger *xlogger.Logger,
	runner usecase.Runner,
	stocks drepo.StockMarketData,
	coins drepo.CryptoMarketData,
	store drepo.PredictionStore,
	guard *usecase.BatchGuard,
	limiter middleware.KeyLimiter,
	cfg TriggerConfig,
) *PredictionHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	if cfg.Secret == nil {
		cfg.Secret = func() string { return "" }
	}
	if cfg.Timeframe == "" {
		cfg.Timeframe = models.DefaultTimeframe
	}
	return &PredictionHandler{
		logger:  logger,
		runner:  runner,
		batch:   usecase.NewBatchDriver(runner, logger),
		stocks:  stocks,
		coins:   coins,
		store:   store,
		guard:   guard,
		limiter: limiter,
		cfg:     cfg,
	}
}

func (h *PredictionHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	mws := []echo.MiddlewareFunc{}
	if h.limiter != nil {
		mws = append(mws, middleware.RateLimit(h.limiter))
	}
	mws = append(mws, middleware.BearerAuth(h.cfg.Secret, h.logger))

	g := e.Group("/api", mws...)
	g.GET("/cron/predict-stock", h.PredictStocks)
	g.GET("/cron/predict-crypto", h.PredictCoins)
	g.POST("/predict", h.Predict)
	g.GET("/quote/stock", h.StockQuote)
	g.GET("/predictions/stock/:id", h.GetStockPrediction)
	g.GET("/predictions/crypto/:id", h.GetCryptoPrediction)

	e.GET("/api/markets/crypto", h.CryptoMarkets)
}

// PredictStocks runs the equities batch for ?stock=A,B or the default list.
func (h *PredictionHandler) PredictStocks(c echo.Context) error {
	req := &models.StockBatchRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	return h.runBatch(c, models.AssetStock, splitAssets(req.Stock, h.cfg.DefaultStocks))
}

// PredictCoins runs the crypto batch for ?coin=a,b or the default list.
func (h *PredictionHandler) PredictCoins(c echo.Context) error {
	req := &models.CryptoBatchRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	return h.runBatch(c, models.AssetCrypto, splitAssets(req.Coin, h.cfg.DefaultCoins))
}

func (h *PredictionHandler) runBatch(c echo.Context, class models.AssetClass, assets []string) error {
	var entries []models.BatchEntry
	err := h.guard.Do(c.Request().Context(), class, func() {
		entries = h.batch.Run(c.Request().Context(), class, assets, h.cfg.Timeframe, h.cfg.SystemUserID)
	})
	switch {
	case errors.Is(err, usecase.ErrBatchRunning):
		return xhttp.AppErrorResponse(c, xhttp.ConflictError(err.Error()))
	case err != nil:
		h.logger.Error("batch lock failed", xlogger.String("class", string(class)), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("batch lock unavailable").WithError(err))
	}
	return xhttp.ListResponse(c, entries)
}

// Predict runs one asset on demand.
func (h *PredictionHandler) Predict(c echo.Context) error {
	req := &models.PredictRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	class, err := models.ParseAssetClass(req.Type)
	if err != nil {
		return xhttp.ErrorResponse(c, http.StatusBadRequest, err.Error(), string(models.KindValidation))
	}
	tf, err := models.ParseTimeframe(req.Timeframe)
	if err != nil {
		return xhttp.ErrorResponse(c, http.StatusBadRequest, err.Error(), string(models.KindValidation))
	}
	userID := h.cfg.SystemUserID
	if req.UserID != "" {
		if userID, err = uuid.Parse(req.UserID); err != nil {
			return xhttp.ErrorResponse(c, http.StatusBadRequest, "user_id must be a UUID", string(models.KindValidation))
		}
	}

	res := h.runner.Run(c.Request().Context(), models.RunRequest{
		Class:     class,
		Asset:     req.Asset,
		Timeframe: tf,
		UserID:    userID,
	})
	return xhttp.DataResponse(c, statusFor(res.ErrorKind), res)
}

// StockQuote returns the latest equities quote. It shares the admission queue with the batch.
func (h *PredictionHandler) StockQuote(c echo.Context) error {
	name := strings.TrimSpace(c.QueryParam("name"))
	if name == "" {
		return xhttp.ErrorResponse(c, http.StatusBadRequest, "name is required", string(models.KindValidation))
	}
	q, err := h.stocks.Quote(c.Request().Context(), name)
	if err != nil {
		return h.kindError(c, "quote", err)
	}
	return xhttp.DataResponse(c, http.StatusOK, map[string]interface{}{
		"success": true,
		"stock":   strings.ToUpper(name),
		"price":   q.Price(),
		"quote":   q,
	})
}

// CryptoMarkets passes through the cached CoinGecko listing.
func (h *PredictionHandler) CryptoMarkets(c echo.Context) error {
	req := &models.MarketsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rows, err := h.coins.Markets(c.Request().Context(), splitAssets(req.IDs, h.cfg.DefaultCoins))
	if err != nil {
		return h.kindError(c, "markets", err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "public, max-age=60")
	return xhttp.ListResponse(c, rows)
}

func (h *PredictionHandler) GetStockPrediction(c echo.Context) error {
	p, err := h.store.GetStock(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.lookupError(c, err)
	}
	return xhttp.DataResponse(c, http.StatusOK, map[string]interface{}{"success": true, "prediction": p})
}

func (h *PredictionHandler) GetCryptoPrediction(c echo.Context) error {
	p, err := h.store.GetCrypto(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.lookupError(c, err)
	}
	return xhttp.DataResponse(c, http.StatusOK, map[string]interface{}{"success": true, "prediction": p})
}

// Health reports store reachability.
func (h *PredictionHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()
	if err := h.store.Health(ctx); err != nil {
		h.logger.Warn("health check failed", xlogger.Error(err))
		return xhttp.ErrorResponse(c, http.StatusServiceUnavailable, "store unavailable", string(models.KindPersistence))
	}
	return xhttp.DataResponse(c, http.StatusOK, map[string]interface{}{"success": true, "status": "ok"})
}

func (h *PredictionHandler) lookupError(c echo.Context, err error) error {
	if errors.Is(err, drepo.ErrNotFound) {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("prediction not found"))
	}
	return h.kindError(c, "lookup", err)
}

func (h *PredictionHandler) kindError(c echo.Context, op string, err error) error {
	kind := models.KindOf(err)
	h.logger.Warn("request failed", xlogger.String("op", op), xlogger.String("error_kind", string(kind)), xlogger.Error(err))
	return xhttp.ErrorResponse(c, statusFor(kind), err.Error(), string(kind))
}

// statusFor maps an envelope error kind onto an HTTP status. Success is 200.
func statusFor(kind models.ErrorKind) int {
	switch kind {
	case "":
		return http.StatusOK
	case models.KindValidation:
		return http.StatusUnprocessableEntity
	case models.KindRateLimited:
		return http.StatusTooManyRequests
	case models.KindFetch, models.KindProvider:
		return http.StatusBadGateway
	case models.KindAuth:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// splitAssets parses a comma separated list, dropping blanks. An empty list yields defaults.
func splitAssets(raw string, defaults []string) []string {
	out := util.SplitList(raw)
	if len(out) == 0 {
		return append([]string(nil), defaults...)
	}
	return out
}
