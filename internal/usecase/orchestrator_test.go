package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"MarketCast/internal/domain/models"
	drepo "MarketCast/internal/domain/repository"

	"github.com/google/uuid"
)

type fakeMarket struct {
	series map[string]*models.MarketSeries
	err    error
	calls  []string
}

func (f *fakeMarket) History(_ context.Context, asset string) (*models.MarketSeries, error) {
	f.calls = append(f.calls, asset)
	if f.err != nil {
		return nil, f.err
	}
	s, ok := f.series[asset]
	if !ok {
		return nil, models.ProviderError("fake.history", 404, "unknown asset")
	}
	return s, nil
}

func (f *fakeMarket) Quote(context.Context, string) (*models.EquityQuote, error) { return nil, nil }

func (f *fakeMarket) Markets(context.Context, []string) ([]models.CoinMarket, error) { return nil, nil }

type fakePredictor struct {
	calls    int
	forecast *models.Forecast
	err      error
}

func (p *fakePredictor) Name() string { return "fake" }

func (p *fakePredictor) Predict(context.Context, *models.MarketSeries, models.Timeframe) (*models.Forecast, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	f := *p.forecast
	return &f, nil
}

type row struct {
	class     models.AssetClass
	user      uuid.UUID
	asset     string
	timeframe models.Timeframe
	validTill time.Time
}

type memStore struct {
	mu      sync.Mutex
	rows    map[string]row
	failErr error
}

func newMemStore() *memStore { return &memStore{rows: map[string]row{}} }

func (s *memStore) Init(context.Context) error { return nil }

func (s *memStore) add(r row) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return "", models.PersistenceFailure("mem.insert", s.failErr)
	}
	id := uuid.NewString()
	s.rows[id] = r
	return id, nil
}

func (s *memStore) InsertStock(_ context.Context, p *models.StockPrediction) (string, error) {
	return s.add(row{models.AssetStock, p.UserID, p.StockName, p.Timeframe, p.ValidTillIST})
}

func (s *memStore) InsertCrypto(_ context.Context, p *models.CryptoPrediction) (string, error) {
	return s.add(row{models.AssetCrypto, p.UserID, p.Coin, p.Timeframe, p.ValidTillIST})
}

func (s *memStore) GetStock(context.Context, string) (*models.StockPrediction, error) {
	return nil, drepo.ErrNotFound
}

func (s *memStore) GetCrypto(context.Context, string) (*models.CryptoPrediction, error) {
	return nil, drepo.ErrNotFound
}

func (s *memStore) supersede(r row, now time.Time) (string, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return "", 0, models.PersistenceFailure("mem.supersede", s.failErr)
	}
	var n int64
	for id, old := range s.rows {
		if old.class == r.class && old.user == r.user && old.asset == r.asset && old.timeframe == r.timeframe && old.validTill.After(now) {
			delete(s.rows, id)
			n++
		}
	}
	id := uuid.NewString()
	s.rows[id] = r
	return id, n, nil
}

func (s *memStore) SupersedeStock(_ context.Context, p *models.StockPrediction) (string, int64, error) {
	return s.supersede(row{models.AssetStock, p.UserID, p.StockName, p.Timeframe, p.ValidTillIST}, p.PredictionTimeIST)
}

func (s *memStore) SupersedeCrypto(_ context.Context, p *models.CryptoPrediction) (string, int64, error) {
	return s.supersede(row{models.AssetCrypto, p.UserID, p.Coin, p.Timeframe, p.ValidTillIST}, p.PredictionTimeIST)
}

func (s *memStore) has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.rows[id]
	return ok
}

func (s *memStore) Health(context.Context) error { return nil }
func (s *memStore) Close() error { return nil }

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

type recordingPublisher struct {
	events []*models.PredictionEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev *models.PredictionEvent) error {
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func validSeries(class models.AssetClass, asset string) *models.MarketSeries {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	pts := make([]models.PricePoint, 60)
	for i := range pts {
		pts[i] = models.PricePoint{Time: base.Add(time.Duration(i) * time.Hour), Price: 100 + float64(i)}
	}
	return &models.MarketSeries{Class: class, Asset: asset, Points: pts, CurrentPrice: 159}
}

func upForecast() *models.Forecast {
	stop := 156.6
	return &models.Forecast{Trend: models.TrendUp, PredictedPrice: 161, Confidence: 75, StopLoss: &stop, Model: "fake"}
}

type fixture struct {
	stocks    *fakeMarket
	coins     *fakeMarket
	predictor *fakePredictor
	store     *memStore
	pub       *recordingPublisher
	orch      *Orchestrator
	now       time.Time
}

func newFixture(policy DuplicatePolicy) *fixture {
	f := &fixture{
		stocks: &fakeMarket{series: map[string]*models.MarketSeries{
			"RELIANCE": validSeries(models.AssetStock, "RELIANCE"),
			"TCS":      validSeries(models.AssetStock, "TCS"),
		}},
		coins: &fakeMarket{series: map[string]*models.MarketSeries{
			"bitcoin": validSeries(models.AssetCrypto, "bitcoin"),
		}},
		predictor: &fakePredictor{forecast: upForecast()},
		store:     newMemStore(),
		pub:       &recordingPublisher{},
		now:       time.Date(2024, 3, 4, 6, 30, 0, 0, time.UTC),
	}
	f.orch = NewOrchestrator(f.stocks, f.coins, f.predictor, f.store, f.pub, nil, nil, policy)
	f.orch.SetClock(func() time.Time { return f.now })
	return f
}

func TestRunStockSuccess(t *testing.T) {
	f := newFixture(AllowDuplicates)
	res := f.orch.RunStock(context.Background(), "RELIANCE", "4h", models.SystemUserID)
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if res.ID == "" || res.Symbol != "RELIANCE" || res.Trend != models.TrendUp || res.PredictedPrice != 161 {
		t.Fatalf("unexpected outcome %+v", res.Outcome)
	}
	if !res.PredictionTimeIST.Equal(f.now) || !res.ValidTillIST.Equal(f.now.Add(4*time.Hour)) {
		t.Fatalf("times = %v / %v", res.PredictionTimeIST, res.ValidTillIST)
	}
	if res.PredictionTimeIST.Location().String() != "IST" {
		t.Fatalf("expected IST location, got %v", res.PredictionTimeIST.Location())
	}
	if f.store.count() != 1 {
		t.Fatalf("rows = %d", f.store.count())
	}
	if len(f.pub.events) != 1 || f.pub.events[0].Type != models.EventPredictionCreated {
		t.Fatalf("events = %+v", f.pub.events)
	}
}

func TestRunCryptoSuccess(t *testing.T) {
	f := newFixture(AllowDuplicates)
	res := f.orch.RunCrypto(context.Background(), "bitcoin", "1d", models.SystemUserID)
	if !res.Success || res.Class != models.AssetCrypto {
		t.Fatalf("unexpected %+v", res)
	}
	if len(f.coins.calls) != 1 || len(f.stocks.calls) != 0 {
		t.Fatalf("wrong adapter used: stocks=%v coins=%v", f.stocks.calls, f.coins.calls)
	}
}

func TestRunFetchFailureWritesNothing(t *testing.T) {
	f := newFixture(AllowDuplicates)
	f.stocks.err = models.FetchFailure("fake", errors.New("connection reset"))

	res := f.orch.RunStock(context.Background(), "RELIANCE", "4h", models.SystemUserID)
	if res.Success || res.ErrorKind != models.KindFetch || res.Error == "" {
		t.Fatalf("expected fetch failure envelope, got %+v", res)
	}
	if f.predictor.calls != 0 || f.store.count() != 0 || len(f.pub.events) != 0 {
		t.Fatalf("nothing may run after a fetch failure")
	}
}

func TestRunRateLimitedSurfacesKind(t *testing.T) {
	f := newFixture(AllowDuplicates)
	f.stocks.err = models.ProviderError("fake", 429, "slow down")
	res := f.orch.RunStock(context.Background(), "TCS", "4h", models.SystemUserID)
	if res.ErrorKind != models.KindRateLimited || f.store.count() != 0 {
		t.Fatalf("unexpected %+v", res)
	}
}

func TestRunMalformedSeriesSkipsPredictor(t *testing.T) {
	f := newFixture(AllowDuplicates)
	bad := validSeries(models.AssetStock, "INFY")
	bad.Points[10].Price = -1
	f.stocks.series["INFY"] = bad

	res := f.orch.RunStock(context.Background(), "INFY", "4h", models.SystemUserID)
	if res.Success || res.ErrorKind != models.KindValidation {
		t.Fatalf("expected validation failure, got %+v", res)
	}
	if f.predictor.calls != 0 || f.store.count() != 0 {
		t.Fatalf("predictor calls = %d, rows = %d", f.predictor.calls, f.store.count())
	}
}

func TestRunPredictionFailure(t *testing.T) {
	f := newFixture(AllowDuplicates)
	f.predictor.err = errors.New("model exploded")
	res := f.orch.RunStock(context.Background(), "TCS", "4h", models.SystemUserID)
	if res.ErrorKind != models.KindPrediction || f.store.count() != 0 {
		t.Fatalf("unexpected %+v", res)
	}
}

func TestRunPersistenceFailure(t *testing.T) {
	f := newFixture(AllowDuplicates)
	f.store.failErr = errors.New("disk full")
	res := f.orch.RunStock(context.Background(), "TCS", "4h", models.SystemUserID)
	if res.ErrorKind != models.KindPersistence || len(f.pub.events) != 0 {
		t.Fatalf("unexpected %+v", res)
	}
}

func TestRunRejectsBadInput(t *testing.T) {
	f := newFixture(AllowDuplicates)
	for _, req := range []models.RunRequest{
		{Class: models.AssetStock, Asset: "  ", Timeframe: "4h"},
		{Class: models.AssetStock, Asset: "TCS", Timeframe: "4q"},
		{Class: "bond", Asset: "X", Timeframe: "4h"},
	} {
		if res := f.orch.Run(context.Background(), req); res.ErrorKind != models.KindValidation {
			t.Fatalf("%+v: expected validation failure, got %+v", req, res)
		}
	}
	if len(f.stocks.calls) != 0 {
		t.Fatalf("adapter must not be called for invalid input")
	}
}

func TestPublishFailureDoesNotFailRun(t *testing.T) {
	f := newFixture(AllowDuplicates)
	f.pub.err = errors.New("broker down")
	if res := f.orch.RunStock(context.Background(), "TCS", "4h", models.SystemUserID); !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if f.store.count() != 1 {
		t.Fatalf("rows = %d", f.store.count())
	}
}

func TestAllowDuplicatesAppends(t *testing.T) {
	f := newFixture(AllowDuplicates)
	for i := 0; i < 3; i++ {
		if res := f.orch.RunStock(context.Background(), "TCS", "4h", models.SystemUserID); !res.Success {
			t.Fatalf("run %d: %+v", i, res)
		}
	}
	if f.store.count() != 3 {
		t.Fatalf("rows = %d, want 3", f.store.count())
	}
}

func TestSupersedeReplacesUnexpiredRows(t *testing.T) {
	f := newFixture(SupersedeIfUnexpired)
	ctx := context.Background()
	other := uuid.New()

	first := f.orch.RunStock(ctx, "TCS", "4h", models.SystemUserID)
	f.orch.RunStock(ctx, "TCS", "4h", other)
	f.orch.RunStock(ctx, "TCS", "1d", models.SystemUserID)

	f.now = f.now.Add(time.Hour)
	second := f.orch.RunStock(ctx, "TCS", "4h", models.SystemUserID)
	if !second.Success || second.Superseded != 1 {
		t.Fatalf("expected one superseded row, got %+v", second)
	}
	if first.ID == second.ID || f.store.count() != 3 {
		t.Fatalf("rows = %d", f.store.count())
	}

	// past the 4h window the earlier row is expired and kept
	f.now = f.now.Add(5 * time.Hour)
	third := f.orch.RunStock(ctx, "TCS", "4h", models.SystemUserID)
	if third.Superseded != 0 || f.store.count() != 4 {
		t.Fatalf("superseded = %d, rows = %d", third.Superseded, f.store.count())
	}
}

func TestSupersedeFailureKeepsEarlierRow(t *testing.T) {
	f := newFixture(SupersedeIfUnexpired)
	ctx := context.Background()

	first := f.orch.RunCrypto(ctx, "bitcoin", "4h", models.SystemUserID)
	if !first.Success {
		t.Fatalf("first run: %+v", first)
	}

	f.now = f.now.Add(time.Hour)
	f.store.failErr = errors.New("disk full")
	second := f.orch.RunCrypto(ctx, "bitcoin", "4h", models.SystemUserID)
	if second.Success || second.ErrorKind != models.KindPersistence {
		t.Fatalf("expected persistence failure, got %+v", second)
	}
	if f.store.count() != 1 || !f.store.has(first.ID) {
		t.Fatalf("earlier prediction lost: rows = %d", f.store.count())
	}
	if len(f.pub.events) != 1 {
		t.Fatalf("events = %d", len(f.pub.events))
	}
}
