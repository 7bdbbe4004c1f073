package models

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"
)

func series(prices ...float64) *MarketSeries {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := &MarketSeries{Asset: "X"}
	for i, p := range prices {
		s.Points = append(s.Points, PricePoint{Time: t0.Add(time.Duration(i) * time.Hour), Price: p})
	}
	if len(prices) > 0 {
		s.CurrentPrice = prices[len(prices)-1]
	}
	return s
}

func TestSeriesValidate(t *testing.T) {
	if err := series(1, 2, 3).Validate(); err != nil {
		t.Fatalf("valid series rejected: %v", err)
	}
	unordered := series(1, 2, 3)
	unordered.Points[2].Time = unordered.Points[1].Time

	badCurrent := series(1, 2)
	badCurrent.CurrentPrice = 0

	for name, s := range map[string]*MarketSeries{
		"nil":          nil,
		"empty":        series(),
		"zero price":   series(1, 0, 2),
		"nan price":    series(1, math.NaN()),
		"not strictly": unordered,
		"bad current":  badCurrent,
	} {
		if err := s.Validate(); !errors.Is(err, ErrValidation) {
			t.Fatalf("%s: expected validation failure, got %v", name, err)
		}
	}
}

func TestFlexFloat(t *testing.T) {
	var q EquityQuote
	if err := json.Unmarshal([]byte(`{"currentPrice":{"NSE":"","BSE":"1,001.5"},"yearHigh":1200,"yearLow":null}`), &q); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if q.Price() != 1001.5 || q.YearHigh != 1200 || q.YearLow != 0 {
		t.Fatalf("quote = %+v", q)
	}
}

func TestParseAssetClass(t *testing.T) {
	for in, want := range map[string]AssetClass{"Stock": AssetStock, "equity": AssetStock, "coins": AssetCrypto} {
		got, err := ParseAssetClass(in)
		if err != nil || got != want {
			t.Fatalf("%q: got %s, %v", in, got, err)
		}
	}
	if _, err := ParseAssetClass("bond"); err == nil {
		t.Fatalf("expected error")
	}
}
