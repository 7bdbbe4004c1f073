package models

import (
	"time"

	"MarketCast/pkg/util"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = validator.New()

type Trend string

const (
	TrendUp       Trend = "UP"
	TrendDown     Trend = "DOWN"
	TrendSideways Trend = "SIDEWAYS"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// SystemUserID owns every prediction produced by scheduled runs.
var SystemUserID = uuid.Nil

// Forecast is what a predictor returns for one series.
type Forecast struct {
	Trend           Trend    `json:"trend"`
	PredictedPrice  float64  `json:"predicted_price"`
	Confidence      float64  `json:"confidence"`
	AccuracyPercent *float64 `json:"accuracy_percent,omitempty"`
	StopLoss        *float64 `json:"stop_loss,omitempty"`
	MacroBias       Bias     `json:"macro_bias,omitempty"`
	Model           string   `json:"model"`
}

// Bias is the long-window market stance reported next to a stock forecast.
type Bias string

const (
	BiasBullish Bias = "BULLISH"
	BiasBearish Bias = "BEARISH"
)

// PredictionBase holds the fields shared by both persisted variants.
type PredictionBase struct {
	ID                string    `json:"id"`
	UserID            uuid.UUID `json:"user_id"`
	Timeframe         Timeframe `json:"timeframe" validate:"required,max=8"`
	CurrentPrice      *float64  `json:"current_price" validate:"omitempty,gt=0"`
	PredictedPrice    *float64  `json:"predicted_price" validate:"omitempty,gt=0"`
	Trend             *Trend    `json:"trend" validate:"omitempty,oneof=UP DOWN SIDEWAYS"`
	Confidence        float64   `json:"confidence" validate:"gte=0,lte=100"`
	StopLoss          *float64  `json:"stop_loss" validate:"omitempty,gt=0"`
	Status            Status    `json:"status" validate:"required,oneof=pending completed failed"`
	Model             string    `json:"model" validate:"max=64"`
	PredictionTimeIST time.Time `json:"prediction_time_ist" validate:"required"`
	ValidTillIST      time.Time `json:"prediction_valid_till_ist" validate:"required,gtfield=PredictionTimeIST"`
	CreatedAt         time.Time `json:"created_at"`
}

func (b *PredictionBase) validatePair() error {
	if (b.PredictedPrice == nil) != (b.Trend == nil) {
		return ValidationFailure("prediction", "predicted_price and trend must be set together")
	}
	if b.Status == StatusCompleted && b.PredictedPrice == nil {
		return ValidationFailure("prediction", "completed prediction needs a forecast")
	}
	return nil
}

type StockPrediction struct {
	PredictionBase
	StockName       string   `json:"stock_name" validate:"required,max=32"`
	AccuracyPercent *float64 `json:"accuracy_percent" validate:"omitempty,gte=0,lte=100"`
}

func (p *StockPrediction) Validate() error {
	if err := validate.Struct(p); err != nil {
		return ValidationFailure("stock_prediction", "%v", err)
	}
	return p.validatePair()
}

type CryptoPrediction struct {
	PredictionBase
	Coin string `json:"coin" validate:"required,max=64"`
}

func (p *CryptoPrediction) Validate() error {
	if err := validate.Struct(p); err != nil {
		return ValidationFailure("crypto_prediction", "%v", err)
	}
	return p.validatePair()
}

// PredictionInput carries everything needed to build a record. A nil Forecast yields a record
// without price or trend, which is only valid for pending and failed rows.
type PredictionInput struct {
	UserID       uuid.UUID
	Asset        string
	Timeframe    Timeframe
	CurrentPrice float64
	Forecast     *Forecast
	Status       Status
	At           time.Time
}

func (in PredictionInput) base() (PredictionBase, error) {
	horizon, err := in.Timeframe.Horizon()
	if err != nil {
		return PredictionBase{}, err
	}
	at := in.At
	if at.IsZero() {
		at = time.Now()
	}
	// DateTime64(3) columns keep milliseconds.
	at = at.Truncate(time.Millisecond)
	status := in.Status
	if status == "" {
		status = StatusCompleted
	}
	b := PredictionBase{
		UserID:            in.UserID,
		Timeframe:         in.Timeframe,
		Status:            status,
		PredictionTimeIST: util.ToIST(at),
		ValidTillIST:      util.ToIST(at.Add(horizon)),
	}
	if in.CurrentPrice > 0 {
		cp := in.CurrentPrice
		b.CurrentPrice = &cp
	}
	if f := in.Forecast; f != nil {
		price, trend := f.PredictedPrice, f.Trend
		b.PredictedPrice = &price
		b.Trend = &trend
		b.Confidence = f.Confidence
		b.StopLoss = f.StopLoss
		b.Model = f.Model
	}
	return b, nil
}

// NewStockPrediction builds and validates a stock record.
func NewStockPrediction(in PredictionInput) (*StockPrediction, error) {
	b, err := in.base()
	if err != nil {
		return nil, err
	}
	p := &StockPrediction{PredictionBase: b, StockName: in.Asset}
	if in.Forecast != nil {
		p.AccuracyPercent = in.Forecast.AccuracyPercent
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// NewCryptoPrediction builds and validates a crypto record.
func NewCryptoPrediction(in PredictionInput) (*CryptoPrediction, error) {
	b, err := in.base()
	if err != nil {
		return nil, err
	}
	p := &CryptoPrediction{PredictionBase: b, Coin: in.Asset}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}
