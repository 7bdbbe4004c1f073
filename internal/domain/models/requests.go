package models

// Requests for the HTTP trigger endpoints.

type StockBatchRequest struct {
	Stock string `query:"stock" validate:"max=1024"`
}

type CryptoBatchRequest struct {
	Coin string `query:"coin" validate:"max=2048"`
}

type PredictRequest struct {
	Asset     string `json:"asset" validate:"required,max=64"`
	Type      string `json:"type" default:"stock" validate:"asset_class"`
	Timeframe string `json:"timeframe" default:"4h" validate:"required,max=8,timeframe"`
	UserID    string `json:"user_id" validate:"omitempty,uuid"`
}

type MarketsRequest struct {
	IDs string `query:"ids" validate:"max=2048"`
}
