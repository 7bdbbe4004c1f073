// Package indianapi adapts the Indian equities REST API to models.MarketSeries.
// Every request is admitted through the injected queue, so at most one call is
// in flight and consecutive calls are spaced by the queue's delay.
package indianapi

import (
	"context"
	"net/url"
	"sort"
	"strings"
	"time"

	"MarketCast/internal/domain/models"
	"MarketCast/internal/service/admission"
	"MarketCast/internal/service/upstream"
	xhttp "MarketCast/pkg/http"
	"MarketCast/pkg/logger"
	"MarketCast/pkg/util"
)

const (
	providerName = "indianapi"
	apiKeyHeader = "X-Api-Key"
	priceMetric  = "Price"
)

type Config struct {
	BaseURL string
	APIKey  string
	Period  string // history window: 1m, 6m, 1yr, ...
	Filter  string
	Timeout time.Duration
}

type Client struct {
	cfg    Config
	caller *upstream.Caller
	queue  *admission.Queue
	now    func() time.Time
}

func New(cfg Config, queue *admission.Queue, l *logger.Logger) *Client {
	if cfg.Period == "" {
		cfg.Period = "6m"
	}
	if cfg.Filter == "" {
		cfg.Filter = "default"
	}
	httpClient := xhttp.NewClient(
		xhttp.WithTimeout(cfg.Timeout),
		xhttp.WithHeader(apiKeyHeader, cfg.APIKey),
	)
	return &Client{
		cfg:    cfg,
		caller: upstream.NewCaller(providerName, cfg.BaseURL, httpClient, l),
		queue:  queue,
		now:    time.Now,
	}
}

type historyResponse struct {
	Datasets []struct {
		Metric string   `json:"metric"`
		Label  string   `json:"label"`
		Values [][]cell `json:"values"`
	} `json:"datasets"`
}

// History fetches the configured price history window for stock.
func (c *Client) History(ctx context.Context, stock string) (*models.MarketSeries, error) {
	stock = strings.ToUpper(strings.TrimSpace(stock))
	if stock == "" {
		return nil, models.ValidationFailure("indianapi.history", "stock name is empty")
	}
	return admission.Do(ctx, c.queue, func(ctx context.Context) (*models.MarketSeries, error) {
		var body historyResponse
		if err := c.caller.Get(ctx, "historical_data", "historical_data", url.Values{
			"stock_name": {stock},
			"period":     {c.cfg.Period},
			"filter":     {c.cfg.Filter},
		}, &body); err != nil {
			return nil, err
		}
		return c.normalize(stock, &body)
	})
}

// Quote fetches the latest quote for stock.
func (c *Client) Quote(ctx context.Context, stock string) (*models.EquityQuote, error) {
	stock = strings.ToUpper(strings.TrimSpace(stock))
	if stock == "" {
		return nil, models.ValidationFailure("indianapi.quote", "stock name is empty")
	}
	return admission.Do(ctx, c.queue, func(ctx context.Context) (*models.EquityQuote, error) {
		var q models.EquityQuote
		if err := c.caller.Get(ctx, "stock", "stock", url.Values{"name": {stock}}, &q); err != nil {
			return nil, err
		}
		return &q, nil
	})
}

func (c *Client) normalize(stock string, body *historyResponse) (*models.MarketSeries, error) {
	const op = "indianapi.history"
	for _, ds := range body.Datasets {
		if ds.Metric != priceMetric {
			continue
		}
		points := make([]models.PricePoint, 0, len(ds.Values))
		for i, row := range ds.Values {
			if len(row) < 2 {
				return nil, models.ValidationFailure(op, "%s: malformed row %d", stock, i)
			}
			ts, ok := util.ParseTime(row[0].text)
			if !ok {
				return nil, models.ValidationFailure(op, "%s: bad date %q in row %d", stock, row[0].text, i)
			}
			price, ok := row[1].number()
			if !ok {
				return nil, models.ValidationFailure(op, "%s: bad price %q in row %d", stock, row[1].text, i)
			}
			points = append(points, models.PricePoint{Time: ts, Price: price})
		}
		sort.SliceStable(points, func(i, j int) bool { return points[i].Time.Before(points[j].Time) })

		series := &models.MarketSeries{
			Class:     models.AssetStock,
			Asset:     stock,
			Currency:  "INR",
			Source:    providerName,
			Points:    points,
			FetchedAt: c.now(),
		}
		if n := len(points); n > 0 {
			series.CurrentPrice = points[n-1].Price
		}
		return series, nil
	}
	return nil, models.ValidationFailure(op, "%s: price dataset missing", stock)
}
