package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"MarketCast/internal/domain/models"
	"MarketCast/pkg/config"

	"github.com/google/uuid"
)

type fakeRunner struct {
	reqs    []models.RunRequest
	batches [][]string
	class   models.AssetClass
	fail    bool
	closed  bool
}

func (f *fakeRunner) Run(_ context.Context, req models.RunRequest) models.Result {
	f.reqs = append(f.reqs, req)
	if f.fail {
		return models.Failed(models.ValidationFailure("test", "insufficient history"))
	}
	return models.Succeeded(&models.Outcome{ID: "1", Class: req.Class, Symbol: req.Asset, Timeframe: req.Timeframe})
}

func (f *fakeRunner) RunBatch(_ context.Context, class models.AssetClass, assets []string, tf models.Timeframe, user uuid.UUID) ([]models.BatchEntry, error) {
	f.class = class
	f.batches = append(f.batches, assets)
	out := make([]models.BatchEntry, len(assets))
	for i, a := range assets {
		out[i] = models.BatchEntry{Asset: a, Result: f.Run(context.Background(), models.RunRequest{Class: class, Asset: a, Timeframe: tf, UserID: user})}
	}
	return out, nil
}

func (f *fakeRunner) Close() error {
	f.closed = true
	return nil
}

func execute(t *testing.T, r *fakeRunner, args ...string) (string, error) {
	t.Helper()
	t.Setenv("INDIAN_API_KEY", "test-key")
	root := NewRootCmd(func(*config.Config) (Runner, error) { return r, nil })
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", ""}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestStockCommand(t *testing.T) {
	r := &fakeRunner{}
	out, err := execute(t, r, "stock", "RELIANCE", "--timeframe", "1d")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(r.reqs) != 1 || r.reqs[0].Asset != "RELIANCE" || r.reqs[0].Class != models.AssetStock {
		t.Fatalf("unexpected requests: %+v", r.reqs)
	}
	if r.reqs[0].Timeframe != "1d" || r.reqs[0].UserID != uuid.Nil {
		t.Fatalf("timeframe/user = %s/%s", r.reqs[0].Timeframe, r.reqs[0].UserID)
	}
	var res map[string]any
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("output is not json: %v\n%s", err, out)
	}
	if res["success"] != true || res["symbol"] != "RELIANCE" {
		t.Fatalf("unexpected envelope: %v", res)
	}
	if !r.closed {
		t.Fatalf("runner not closed")
	}
}

func TestCryptoCommandFailureExitsNonZero(t *testing.T) {
	r := &fakeRunner{fail: true}
	out, err := execute(t, r, "crypto", "bitcoin")
	if err == nil {
		t.Fatalf("expected error for failed prediction")
	}
	if !strings.Contains(out, `"success": false`) || !strings.Contains(out, "insufficient history") {
		t.Fatalf("failure envelope not printed: %s", out)
	}
	if !r.closed {
		t.Fatalf("runner not closed after a failed run")
	}
}

func TestBatchCommand(t *testing.T) {
	r := &fakeRunner{}
	if _, err := execute(t, r, "batch", "stock", "TCS, INFY,"); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if r.class != models.AssetStock || len(r.batches) != 1 || strings.Join(r.batches[0], ",") != "TCS,INFY" {
		t.Fatalf("unexpected batch: %s %v", r.class, r.batches)
	}
	if r.reqs[0].Timeframe != "4h" {
		t.Fatalf("default timeframe = %s", r.reqs[0].Timeframe)
	}
}

func TestBatchCommandDefaults(t *testing.T) {
	r := &fakeRunner{}
	out, err := execute(t, r, "batch", "crypto")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if strings.Join(r.batches[0], ",") != "bitcoin,ethereum,solana" {
		t.Fatalf("defaults not used: %v", r.batches[0])
	}
	var body struct {
		Success bool                `json:"success"`
		Results []models.BatchEntry `json:"results"`
	}
	if err := json.Unmarshal([]byte(out), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Success || len(body.Results) != 3 || body.Results[2].Asset != "solana" {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestInvalidInputs(t *testing.T) {
	cases := [][]string{
		{"batch", "forex"},
		{"stock", "TCS", "--timeframe", "fortnight"},
		{"stock", "TCS", "--user", "not-a-uuid"},
		{"stock"},
	}
	for _, args := range cases {
		r := &fakeRunner{}
		if _, err := execute(t, r, args...); err == nil {
			t.Fatalf("%v: expected error", args)
		}
		if len(r.reqs) != 0 {
			t.Fatalf("%v: runner should not be called", args)
		}
	}
}

func TestOpenerFailure(t *testing.T) {
	t.Setenv("INDIAN_API_KEY", "test-key")
	root := NewRootCmd(func(*config.Config) (Runner, error) { return nil, errors.New("store down") })
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"--config", "", "stock", "TCS"})
	if err := root.Execute(); err == nil || !strings.Contains(err.Error(), "store down") {
		t.Fatalf("expected opener error, got %v", err)
	}
}
