package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// AssetClass selects the prediction variant and the provider that serves it.
type AssetClass string

const (
	AssetStock  AssetClass = "stock"
	AssetCrypto AssetClass = "crypto"
)

func ParseAssetClass(s string) (AssetClass, error) {
	switch AssetClass(strings.ToLower(strings.TrimSpace(s))) {
	case AssetStock, "stocks", "equity":
		return AssetStock, nil
	case AssetCrypto, "coin", "coins":
		return AssetCrypto, nil
	default:
		return "", fmt.Errorf("unknown asset class %q", s)
	}
}

type PricePoint struct {
	Time  time.Time `json:"t"`
	Price float64   `json:"p"`
}

// MarketSeries is the provider-independent shape handed to predictors.
// Points are ordered oldest first.
type MarketSeries struct {
	Class        AssetClass   `json:"class"`
	Asset        string       `json:"asset"`
	Currency     string       `json:"currency"`
	Source       string       `json:"source"`
	CurrentPrice float64      `json:"current_price"`
	Points       []PricePoint `json:"points"`
	FetchedAt    time.Time    `json:"fetched_at"`
}

// Closes returns the price column of the series.
func (s *MarketSeries) Closes() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Price
	}
	return out
}

// Validate rejects series a predictor must never see.
func (s *MarketSeries) Validate() error {
	const op = "series.validate"
	if s == nil {
		return ValidationFailure(op, "series is nil")
	}
	if s.Asset == "" {
		return ValidationFailure(op, "asset is empty")
	}
	if len(s.Points) == 0 {
		return ValidationFailure(op, "%s: no price points", s.Asset)
	}
	for i, p := range s.Points {
		if !validPrice(p.Price) {
			return ValidationFailure(op, "%s: invalid price %v at index %d", s.Asset, p.Price, i)
		}
		if i > 0 && !p.Time.After(s.Points[i-1].Time) {
			return ValidationFailure(op, "%s: points not strictly ascending at index %d", s.Asset, i)
		}
	}
	if !validPrice(s.CurrentPrice) {
		return ValidationFailure(op, "%s: invalid current price %v", s.Asset, s.CurrentPrice)
	}
	return nil
}

func validPrice(p float64) bool {
	return p > 0 && !math.IsNaN(p) && !math.IsInf(p, 0)
}

// CoinMarket is one row of the CoinGecko markets listing.
type CoinMarket struct {
	ID                       string    `json:"id"`
	Symbol                   string    `json:"symbol"`
	Name                     string    `json:"name"`
	Image                    string    `json:"image"`
	CurrentPrice             float64   `json:"current_price"`
	MarketCap                float64   `json:"market_cap"`
	MarketCapRank            int       `json:"market_cap_rank"`
	TotalVolume              float64   `json:"total_volume"`
	High24h                  float64   `json:"high_24h"`
	Low24h                   float64   `json:"low_24h"`
	PriceChangePercentage24h float64   `json:"price_change_percentage_24h"`
	LastUpdated              time.Time `json:"last_updated"`
}

// EquityQuote is the subset of the equities quote payload the service exposes.
type EquityQuote struct {
	Name         string `json:"companyName"`
	Industry     string `json:"industry"`
	CurrentPrice struct {
		NSE FlexFloat `json:"NSE"`
		BSE FlexFloat `json:"BSE"`
	} `json:"currentPrice"`
	PercentChange FlexFloat `json:"percentChange"`
	YearHigh      FlexFloat `json:"yearHigh"`
	YearLow       FlexFloat `json:"yearLow"`
}

// Price prefers the NSE quote and falls back to BSE.
func (q *EquityQuote) Price() float64 {
	if q.CurrentPrice.NSE > 0 {
		return float64(q.CurrentPrice.NSE)
	}
	return float64(q.CurrentPrice.BSE)
}

// FlexFloat decodes JSON numbers as well as numeric strings; empty or null becomes 0.
type FlexFloat float64

func (f *FlexFloat) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
		if s == "" {
			*f = 0
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("flex float %q: %w", s, err)
		}
		*f = FlexFloat(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = FlexFloat(v)
	return nil
}
