package usecase

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"MarketCast/internal/domain/models"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// scriptedRunner fails assets that start with "bad" and checks runs never overlap.
type scriptedRunner struct {
	running int32
	overlap int32
	seen    []string
}

func (r *scriptedRunner) Run(_ context.Context, req models.RunRequest) models.Result {
	if atomic.AddInt32(&r.running, 1) > 1 {
		atomic.StoreInt32(&r.overlap, 1)
	}
	defer atomic.AddInt32(&r.running, -1)
	r.seen = append(r.seen, req.Asset)
	if strings.HasPrefix(req.Asset, "bad") {
		return models.Failed(models.ProviderError("scripted", 500, "boom"))
	}
	return models.Succeeded(&models.Outcome{Symbol: req.Asset, Trend: models.TrendUp})
}

func TestBatchKeepsOrderAndCapturesFailures(t *testing.T) {
	r := &scriptedRunner{}
	entries := NewBatchDriver(r, nil).Run(context.Background(), models.AssetStock,
		[]string{"RELIANCE", "bad1", "TCS"}, "4h", models.SystemUserID)

	if len(entries) != 3 {
		t.Fatalf("entries = %d", len(entries))
	}
	want := []struct {
		asset string
		ok    bool
	}{{"RELIANCE", true}, {"bad1", false}, {"TCS", true}}
	for i, w := range want {
		if entries[i].Asset != w.asset || entries[i].Success != w.ok {
			t.Fatalf("entry %d = %+v", i, entries[i])
		}
	}
	if entries[1].ErrorKind != models.KindProvider {
		t.Fatalf("error kind = %s", entries[1].ErrorKind)
	}
}

func TestBatchEmptyInput(t *testing.T) {
	entries := NewBatchDriver(&scriptedRunner{}, nil).Run(context.Background(), models.AssetCrypto, nil, "4h", models.SystemUserID)
	if len(entries) != 0 {
		t.Fatalf("entries = %d", len(entries))
	}
}

func TestBatchCancelledContextStillReportsEveryAsset(t *testing.T) {
	r := &scriptedRunner{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	entries := NewBatchDriver(r, nil).Run(ctx, models.AssetStock, []string{"A", "B"}, "4h", models.SystemUserID)
	if len(entries) != 2 || entries[0].Success || entries[1].Success {
		t.Fatalf("entries = %+v", entries)
	}
	if len(r.seen) != 0 {
		t.Fatalf("runner should not be called after cancellation, saw %v", r.seen)
	}
}

func TestBatchThroughOrchestratorWritesPerAsset(t *testing.T) {
	f := newFixture(AllowDuplicates)
	entries := NewBatchDriver(f.orch, nil).Run(context.Background(), models.AssetStock,
		[]string{"RELIANCE", "TCS"}, "4h", models.SystemUserID)
	if len(entries) != 2 || !entries[0].Success || !entries[1].Success {
		t.Fatalf("entries = %+v", entries)
	}
	if f.store.count() != 2 {
		t.Fatalf("rows = %d", f.store.count())
	}
	if got := f.stocks.calls; len(got) != 2 || got[0] != "RELIANCE" || got[1] != "TCS" {
		t.Fatalf("fetch order = %v", got)
	}
}

func TestBatchUnknownAssetFailsOnlyItsEntry(t *testing.T) {
	f := newFixture(AllowDuplicates)
	f.orch.SetClock(func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) })
	entries := NewBatchDriver(f.orch, nil).Run(context.Background(), models.AssetStock,
		[]string{"NOPE", "TCS"}, "4h", models.SystemUserID)
	if entries[0].Success || !entries[1].Success {
		t.Fatalf("entries = %+v", entries)
	}
	if entries[0].ErrorKind != models.KindProvider {
		t.Fatalf("kind = %s", entries[0].ErrorKind)
	}
}

func TestBatchLengthAndOrderProperty(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 100
	properties := gopter.NewProperties(params)

	properties.Property("one entry per asset, in input order, never concurrent", prop.ForAll(
		func(assets []string) bool {
			r := &scriptedRunner{}
			entries := NewBatchDriver(r, nil).Run(context.Background(), models.AssetStock, assets, "4h", models.SystemUserID)
			if len(entries) != len(assets) || atomic.LoadInt32(&r.overlap) != 0 {
				return false
			}
			for i, e := range entries {
				if e.Asset != assets[i] || e.Success == strings.HasPrefix(assets[i], "bad") {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.OneGenOf(gen.Identifier(), gen.Const("bad-asset"))),
	))

	properties.TestingRun(t)
}
