package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"MarketCast/internal/domain/models"
	xhttp "MarketCast/pkg/http"
)

func TestWrap(t *testing.T) {
	var syntaxErr error = &json.SyntaxError{}
	tests := []struct {
		name  string
		err   error
		kind  models.ErrorKind
		class models.Class
	}{
		{"429", &xhttp.StatusError{Code: 429}, models.KindRateLimited, models.ClassRateLimited},
		{"503", &xhttp.StatusError{Code: 503}, models.KindProvider, models.ClassTransient},
		{"401", &xhttp.StatusError{Code: 401}, models.KindProvider, models.ClassFatal},
		{"syntax", fmt.Errorf("decode json: %w", syntaxErr), models.KindValidation, models.ClassFatal},
		{"truncated", fmt.Errorf("decode json: %w", io.ErrUnexpectedEOF), models.KindValidation, models.ClassFatal},
		{"network", errors.New("connection refused"), models.KindFetch, models.ClassTransient},
		{"already typed", models.PersistenceFailure("x", errors.New("y")), models.KindPersistence, models.ClassFatal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Wrap("p.op", tt.err)
			if got.Kind != tt.kind {
				t.Fatalf("kind = %s, want %s", got.Kind, tt.kind)
			}
			if c := models.Classify(got); c != tt.class {
				t.Fatalf("class = %s, want %s", c, tt.class)
			}
		})
	}
}

func TestCallerGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/things" || r.URL.Query().Get("q") != "x" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := NewCaller("test", srv.URL+"/v1/", xhttp.NewClient(xhttp.WithTimeout(time.Second)), nil)
	var body struct {
		OK bool `json:"ok"`
	}
	if err := c.Get(context.Background(), "things", "/things", url.Values{"q": {"x"}}, &body); err != nil {
		t.Fatalf("get: %v", err)
	}
	if !body.OK {
		t.Fatalf("body not decoded")
	}

	err := c.Get(context.Background(), "missing", "missing", nil, &body)
	var me *models.Error
	if !errors.As(err, &me) || me.Status != http.StatusNotFound || me.Op != "test.missing" {
		t.Fatalf("unexpected error %v", err)
	}
}
