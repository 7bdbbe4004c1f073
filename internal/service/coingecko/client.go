// Package coingecko adapts the CoinGecko v3 API. Calls are not admitted through
// a queue; the client is safe for concurrent use.
package coingecko

import (
	"context"
	"errors"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"MarketCast/internal/domain/models"
	"MarketCast/internal/service/upstream"
	"MarketCast/pkg/cache"
	xhttp "MarketCast/pkg/http"
	"MarketCast/pkg/logger"
)

const providerName = "coingecko"

type Config struct {
	BaseURL         string
	APIKey          string
	VsCurrency      string
	HistoryDays     int
	Timeout         time.Duration
	ListingCacheTTL time.Duration
}

type Client struct {
	cfg    Config
	caller *upstream.Caller
	cache  cache.Service
	logger *logger.Logger
	now    func() time.Time
}

// New builds a client. store may be nil, which disables listing caching.
func New(cfg Config, store cache.Service, l *logger.Logger) *Client {
	if cfg.VsCurrency == "" {
		cfg.VsCurrency = "usd"
	}
	if cfg.HistoryDays <= 0 {
		cfg.HistoryDays = 30
	}
	if l == nil {
		l = logger.Nop()
	}
	header := "x-cg-demo-api-key"
	if strings.Contains(cfg.BaseURL, "pro-api") {
		header = "x-cg-pro-api-key"
	}
	httpClient := xhttp.NewClient(
		xhttp.WithTimeout(cfg.Timeout),
		xhttp.WithHeader(header, cfg.APIKey),
	)
	return &Client{
		cfg:    cfg,
		caller: upstream.NewCaller(providerName, cfg.BaseURL, httpClient, l),
		cache:  store,
		logger: l,
		now:    time.Now,
	}
}

// Markets returns listing rows for ids ordered by market cap.
func (c *Client) Markets(ctx context.Context, ids []string) ([]models.CoinMarket, error) {
	if len(ids) == 0 {
		return nil, models.ValidationFailure("coingecko.markets", "no coin ids")
	}
	norm := make([]string, len(ids))
	for i, id := range ids {
		norm[i] = strings.ToLower(strings.TrimSpace(id))
	}
	sorted := append([]string(nil), norm...)
	sort.Strings(sorted)
	key := "coingecko:markets:" + c.cfg.VsCurrency + ":" + strings.Join(sorted, ",")

	if c.cache != nil {
		var cached []models.CoinMarket
		err := c.cache.Get(ctx, key, &cached)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			c.logger.Warn("listing cache read failed", logger.Error(err))
		}
	}

	var rows []models.CoinMarket
	if err := c.caller.Get(ctx, "markets", "coins/markets", url.Values{
		"vs_currency":             {c.cfg.VsCurrency},
		"ids":                     {strings.Join(norm, ",")},
		"order":                   {"market_cap_desc"},
		"sparkline":               {"false"},
		"price_change_percentage": {"24h"},
	}, &rows); err != nil {
		return nil, err
	}

	if c.cache != nil && c.cfg.ListingCacheTTL > 0 {
		if err := c.cache.Set(ctx, key, rows, c.cfg.ListingCacheTTL); err != nil {
			c.logger.Warn("listing cache write failed", logger.Error(err))
		}
	}
	return rows, nil
}

type marketChart struct {
	Prices [][2]float64 `json:"prices"`
}

// History returns the price chart of coinID over the configured number of days.
func (c *Client) History(ctx context.Context, coinID string) (*models.MarketSeries, error) {
	const op = "coingecko.history"
	coinID = strings.ToLower(strings.TrimSpace(coinID))
	if coinID == "" {
		return nil, models.ValidationFailure(op, "coin id is empty")
	}

	var chart marketChart
	if err := c.caller.Get(ctx, "market_chart", "coins/"+url.PathEscape(coinID)+"/market_chart", url.Values{
		"vs_currency": {c.cfg.VsCurrency},
		"days":        {strconv.Itoa(c.cfg.HistoryDays)},
	}, &chart); err != nil {
		return nil, err
	}

	points := make([]models.PricePoint, 0, len(chart.Prices))
	for _, row := range chart.Prices {
		ts := time.UnixMilli(int64(row[0])).UTC()
		// The chart repeats the latest sample with a "now" stamp; keep strictly ascending points.
		if n := len(points); n > 0 && !ts.After(points[n-1].Time) {
			continue
		}
		points = append(points, models.PricePoint{Time: ts, Price: row[1]})
	}

	series := &models.MarketSeries{
		Class:     models.AssetCrypto,
		Asset:     coinID,
		Currency:  strings.ToUpper(c.cfg.VsCurrency),
		Source:    providerName,
		Points:    points,
		FetchedAt: c.now(),
	}
	if n := len(chart.Prices); n > 0 {
		series.CurrentPrice = chart.Prices[n-1][1]
	}
	return series, nil
}
