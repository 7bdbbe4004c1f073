package http

// ErrorBody is the failure envelope of every endpoint.
type ErrorBody struct {
	Success bool              `json:"success"`
	Error   string            `json:"error"`
	Kind    string            `json:"error_kind,omitempty"`
	Details []ValidationError `json:"details,omitempty"`
}

// ValidationError represents validation error detail.
type ValidationError struct {
	Code    string                 `json:"code,omitempty" example:"ERR_REQUIRED"`
	Field   string                 `json:"field,omitempty" example:"asset"`
	Message string                 `json:"message,omitempty" example:"asset is required"`
	Params  map[string]interface{} `json:"params,omitempty"`
}

// ListBody wraps batch results.
type ListBody struct {
	Success bool        `json:"success"`
	Results interface{} `json:"results"`
}
