package models

import (
	"time"

	"github.com/google/uuid"
)

// RunRequest identifies one orchestrated prediction.
type RunRequest struct {
	Class     AssetClass
	Asset     string
	Timeframe Timeframe
	UserID    uuid.UUID
}

// Outcome holds the forecast fields reported for a successful run.
type Outcome struct {
	ID                string     `json:"id"`
	Class             AssetClass `json:"asset_class"`
	Symbol            string     `json:"symbol"`
	Timeframe         Timeframe  `json:"timeframe"`
	CurrentPrice      float64    `json:"current_price"`
	PredictedPrice    float64    `json:"predicted_price"`
	Trend             Trend      `json:"trend"`
	Confidence        float64    `json:"confidence"`
	AccuracyPercent   *float64   `json:"accuracy_percent,omitempty"`
	StopLoss          *float64   `json:"stop_loss,omitempty"`
	MacroBias         Bias       `json:"macro_bias,omitempty"`
	Model             string     `json:"model"`
	Status            Status     `json:"status"`
	PredictionTimeIST time.Time  `json:"prediction_time_ist"`
	ValidTillIST      time.Time  `json:"prediction_valid_till_ist"`
	Superseded        int64      `json:"superseded,omitempty"`
}

// Result is the envelope every orchestrated run produces: {success, error} or {success, ...forecast}.
type Result struct {
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
	ErrorKind ErrorKind `json:"error_kind,omitempty"`
	*Outcome
}

func Succeeded(o *Outcome) Result {
	return Result{Success: true, Outcome: o}
}

func Failed(err error) Result {
	return Result{Success: false, Error: err.Error(), ErrorKind: KindOf(err)}
}

// BatchEntry pairs an input asset with its run result, flattened on the wire.
type BatchEntry struct {
	Asset string `json:"asset"`
	Result
}

// PredictionEvent is published after a prediction row is persisted.
type PredictionEvent struct {
	Type      string    `json:"type"`
	UserID    uuid.UUID `json:"user_id"`
	Outcome   *Outcome  `json:"prediction"`
	EmittedAt time.Time `json:"emitted_at"`
}

const EventPredictionCreated = "prediction.created"
