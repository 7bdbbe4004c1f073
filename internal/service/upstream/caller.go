// Package upstream performs provider HTTP calls and maps their failures onto
// the models taxonomy. This is the only place provider errors are classified.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/url"
	"strings"
	"time"

	"MarketCast/internal/domain/models"
	provmetrics "MarketCast/internal/service/metrics"
	xhttp "MarketCast/pkg/http"
	"MarketCast/pkg/logger"
)

type Caller struct {
	provider string
	baseURL  string
	http     *xhttp.Client
	logger   *logger.Logger
}

func NewCaller(provider, baseURL string, client *xhttp.Client, l *logger.Logger) *Caller {
	if l == nil {
		l = logger.Nop()
	}
	return &Caller{
		provider: provider,
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     client,
		logger:   l.With(logger.String("provider", provider)),
	}
}

// Get requests baseURL/path and decodes the JSON body into dest.
// endpoint is the low-cardinality label used for metrics and error ops.
func (c *Caller) Get(ctx context.Context, endpoint, path string, query url.Values, dest any) error {
	start := time.Now()
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         c.baseURL + "/" + strings.TrimLeft(path, "/"),
		QueryParams: query,
	}, dest)
	if err == nil {
		provmetrics.ObserveCall(c.provider, endpoint, start, "")
		return nil
	}

	wrapped := Wrap(c.provider+"."+endpoint, err)
	class := models.Classify(wrapped)
	provmetrics.ObserveCall(c.provider, endpoint, start, class.String())
	fields := []logger.Field{
		logger.String("endpoint", endpoint),
		logger.String("class", class.String()),
		logger.Error(wrapped),
	}
	var se *xhttp.StatusError
	if errors.As(err, &se) && se.RetryAfter > 0 {
		fields = append(fields, logger.Duration("retry_after", se.RetryAfter))
	}
	c.logger.Warn("provider call failed", fields...)
	return wrapped
}

// Wrap converts an error from pkg/http into a *models.Error.
func Wrap(op string, err error) *models.Error {
	var (
		statusErr *xhttp.StatusError
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
		modelErr  *models.Error
	)
	switch {
	case errors.As(err, &modelErr):
		return modelErr
	case errors.As(err, &statusErr):
		return models.ProviderError(op, statusErr.Code, string(statusErr.Body))
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr), errors.Is(err, io.ErrUnexpectedEOF):
		return &models.Error{Kind: models.KindValidation, Op: op, Msg: "malformed payload", Err: err}
	default:
		return models.FetchFailure(op, err)
	}
}
