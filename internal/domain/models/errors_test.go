package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Class
	}{
		{"nil", nil, ClassFatal},
		{"429 provider", ProviderError("p", 429, ""), ClassRateLimited},
		{"500 provider", ProviderError("p", 500, ""), ClassTransient},
		{"408 provider", ProviderError("p", 408, ""), ClassTransient},
		{"404 provider", ProviderError("p", 404, ""), ClassFatal},
		{"fetch", FetchFailure("p", errors.New("reset")), ClassTransient},
		{"validation", ValidationFailure("p", "bad"), ClassFatal},
		{"wrapped rate limited", fmt.Errorf("outer: %w", ProviderError("p", 429, "")), ClassRateLimited},
		{"deadline", context.DeadlineExceeded, ClassTransient},
		{"untyped 429", errors.New("got status 429 from upstream"), ClassRateLimited},
		{"untyped other", errors.New("boom"), ClassFatal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Fatalf("Classify = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestErrorSentinels(t *testing.T) {
	err := fmt.Errorf("run: %w", PersistenceFailure("store.insert", errors.New("disk full")))
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("expected persistence sentinel match")
	}
	if errors.Is(err, ErrFetch) {
		t.Fatalf("unexpected fetch sentinel match")
	}
	if KindOf(err) != KindPersistence {
		t.Fatalf("KindOf = %s", KindOf(err))
	}
	if KindOf(errors.New("plain")) != "" {
		t.Fatalf("plain errors carry no kind")
	}
}

func TestProviderErrorTruncatesBody(t *testing.T) {
	e := ProviderError("p", 500, strings.Repeat("x", 1000))
	if len(e.Body) != maxBodyInError {
		t.Fatalf("body length = %d", len(e.Body))
	}
	if !strings.Contains(e.Error(), "status 500") {
		t.Fatalf("message = %s", e.Error())
	}
}

func TestProviderErrorKeepsRunesWhole(t *testing.T) {
	e := ProviderError("p", 502, "x"+strings.Repeat("₹", 200))
	if !utf8.ValidString(e.Body) || len(e.Body) > maxBodyInError {
		t.Fatalf("body = %q (%d bytes)", e.Body, len(e.Body))
	}
	if len(e.Body) != 1+3*85 {
		t.Fatalf("body length = %d", len(e.Body))
	}
}

func TestFailedResultCarriesKind(t *testing.T) {
	r := Failed(ProviderError("indianapi.historical_data", 429, "slow down"))
	if r.Success || r.ErrorKind != KindRateLimited || r.Outcome != nil {
		t.Fatalf("result = %+v", r)
	}
	if !strings.Contains(r.Error, "rate_limited") {
		t.Fatalf("error text = %q", r.Error)
	}
}
