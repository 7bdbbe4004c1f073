package models

import (
	"errors"
	"testing"
	"time"

	"MarketCast/pkg/util"

	"github.com/google/uuid"
)

func TestNewStockPrediction(t *testing.T) {
	at := time.Date(2024, 5, 6, 3, 45, 0, 0, time.UTC)
	acc := 64.0
	p, err := NewStockPrediction(PredictionInput{
		UserID:       uuid.New(),
		Asset:        "TCS",
		Timeframe:    "1d",
		CurrentPrice: 3900,
		Forecast: &Forecast{
			Trend:           TrendDown,
			PredictedPrice:  3850,
			Confidence:      75,
			AccuracyPercent: &acc,
			Model:           "ensemble-v1",
		},
		At: at,
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if p.Status != StatusCompleted || *p.Trend != TrendDown || *p.AccuracyPercent != 64 {
		t.Fatalf("record = %+v", p)
	}
	if p.PredictionTimeIST.Location() != util.IST || p.PredictionTimeIST.Hour() != 9 {
		t.Fatalf("prediction time = %v", p.PredictionTimeIST)
	}
	if got := p.ValidTillIST.Sub(p.PredictionTimeIST); got != 24*time.Hour {
		t.Fatalf("validity window = %v", got)
	}
}

func TestPredictionTimesKeepMilliseconds(t *testing.T) {
	at := time.Date(2024, 5, 6, 3, 45, 0, 123456789, time.UTC)
	p, err := NewCryptoPrediction(PredictionInput{Asset: "bitcoin", Timeframe: "4h", Status: StatusPending, At: at})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	want := time.Date(2024, 5, 6, 3, 45, 0, 123000000, time.UTC)
	if !p.PredictionTimeIST.Equal(want) || !p.ValidTillIST.Equal(want.Add(4*time.Hour)) {
		t.Fatalf("times = %v / %v", p.PredictionTimeIST, p.ValidTillIST)
	}
}

func TestPredictionValidation(t *testing.T) {
	ok := PredictionInput{
		Asset:        "bitcoin",
		Timeframe:    "4h",
		CurrentPrice: 42000,
		Forecast:     &Forecast{Trend: TrendUp, PredictedPrice: 42500, Confidence: 70},
		At:           time.Now(),
	}
	tests := []struct {
		name string
		mut  func(*PredictionInput)
	}{
		{"empty asset", func(in *PredictionInput) { in.Asset = "" }},
		{"bad timeframe", func(in *PredictionInput) { in.Timeframe = "4x" }},
		{"confidence above 100", func(in *PredictionInput) { in.Forecast.Confidence = 101 }},
		{"bad trend", func(in *PredictionInput) { in.Forecast.Trend = "FLAT" }},
		{"non-positive predicted price", func(in *PredictionInput) { in.Forecast.PredictedPrice = 0 }},
		{"completed without forecast", func(in *PredictionInput) { in.Forecast = nil }},
		{"unknown status", func(in *PredictionInput) { in.Status = "done" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := ok
			f := *ok.Forecast
			in.Forecast = &f
			tt.mut(&in)
			if _, err := NewCryptoPrediction(in); !errors.Is(err, ErrValidation) {
				t.Fatalf("expected validation failure, got %v", err)
			}
		})
	}
	if _, err := NewCryptoPrediction(ok); err != nil {
		t.Fatalf("valid input rejected: %v", err)
	}
}

func TestPendingRecordWithoutForecast(t *testing.T) {
	p, err := NewStockPrediction(PredictionInput{Asset: "INFY", Timeframe: "4h", Status: StatusPending, At: time.Now()})
	if err != nil {
		t.Fatalf("pending record rejected: %v", err)
	}
	if p.PredictedPrice != nil || p.Trend != nil || p.CurrentPrice != nil {
		t.Fatalf("expected empty forecast fields: %+v", p)
	}
}
