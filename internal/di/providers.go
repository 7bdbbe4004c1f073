package di

import (
	"context"
	"fmt"
	"time"

	"MarketCast/internal/domain/models"
	"MarketCast/internal/domain/repository"
	domsvc "MarketCast/internal/domain/service"
	"MarketCast/internal/handler/api"
	internalrepo "MarketCast/internal/repository"
	"MarketCast/internal/scheduler"
	"MarketCast/internal/service/admission"
	"MarketCast/internal/service/coingecko"
	"MarketCast/internal/service/indianapi"
	"MarketCast/internal/service/ratelimit"
	"MarketCast/internal/services/predictor"
	"MarketCast/internal/usecase"
	"MarketCast/pkg/cache"
	"MarketCast/pkg/config"
	pkgkafka "MarketCast/pkg/kafka"
	"MarketCast/pkg/logger"
	"MarketCast/pkg/metrics"
	"MarketCast/pkg/server"
	"MarketCast/pkg/sqldb"

	"github.com/google/uuid"
)

// ProvideLogger creates the process logger from the log section.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New(nil)
}

// ProvideStoreClient opens the configured SQL backend.
func ProvideStoreClient(cfg *config.Config) (*sqldb.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Store.ConnectTimeout+5*time.Second)
	defer cancel()

	var (
		dialect sqldb.Dialect
		dsn     string
		opts    = []sqldb.ClientOption{sqldb.WithConnectTimeout(cfg.Store.ConnectTimeout)}
	)
	switch cfg.Store.Backend {
	case "sqlite":
		dialect, dsn = sqldb.SQLite, sqldb.SQLiteDSN(cfg.Store.SQLite.Path)
	case "postgres":
		dialect, dsn = sqldb.Postgres, cfg.Store.Postgres.DSN
		n := cfg.Store.Postgres.MaxOpenConns
		opts = append(opts, sqldb.WithPool(n, max(n/2, 1), time.Hour))
	case "clickhouse":
		ch := cfg.Store.ClickHouse
		dialect = sqldb.ClickHouse
		dsn = sqldb.ClickHouseDSN(sqldb.ClickHouseConfig{
			Host:        ch.Host,
			Port:        ch.Port,
			Database:    ch.Database,
			User:        ch.User,
			Password:    ch.Password,
			UseHTTP:     ch.UseHTTP,
			DialTimeout: ch.DialTimeout,
			ReadTimeout: ch.ReadTimeout,
			MaxExecTime: ch.MaxExecutionTime,
		})
		opts = append(opts, sqldb.WithPool(10, 5, time.Hour))
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}

	client, err := sqldb.Open(ctx, dialect, dsn, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s store: %w", cfg.Store.Backend, err)
	}
	return client, nil
}

// ProvidePredictionStore wraps the client and creates the tables.
func ProvidePredictionStore(client *sqldb.Client, l *logger.Logger) (repository.PredictionStore, error) {
	store, err := internalrepo.NewSQLPredictionStore(client, l)
	if err != nil {
		_ = client.Close()
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("store schema: %w", err)
	}
	return store, nil
}

// ProvideCache creates the listing cache and batch lock backend.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	if cfg.Cache.Backend == "redis" {
		r := cfg.Cache.Redis
		c, err := cache.NewRedisCache(
			cache.WithRedisHost(r.Host),
			cache.WithRedisPort(r.Port),
			cache.WithRedisPassword(r.Password),
			cache.WithRedisDB(r.DB),
			cache.WithRedisPrefix(r.Prefix),
			cache.WithRedisPool(r.PoolSize, 0, 0),
			cache.WithRedisConnectTimeout(r.ConnectTimeout),
		)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		return c, nil
	}
	return cache.NewMemoryCache(cache.WithMemoryMaxSize(cfg.Cache.MemoryMaxSize)), nil
}

// ProvideLocker exposes the cache as the batch lock.
func ProvideLocker(c cache.Service) repository.Locker {
	return c
}

// ProvideAdmissionQueue creates the single queue shared by every equities call.
func ProvideAdmissionQueue(cfg *config.Config, m repository.Metrics, l *logger.Logger) *admission.Queue {
	return admission.New("indianapi",
		admission.WithDelay(cfg.IndianAPI.InterCallDelay),
		admission.WithCooldown(cfg.IndianAPI.Cooldown),
		admission.WithMaxRateLimitRetries(cfg.IndianAPI.MaxRateLimitRetries),
		admission.WithMetrics(m),
		admission.WithLogger(l),
	)
}

// ProvideStockData creates the equities adapter behind the admission queue.
func ProvideStockData(cfg *config.Config, q *admission.Queue, l *logger.Logger) repository.StockMarketData {
	return indianapi.New(indianapi.Config{
		BaseURL: cfg.IndianAPI.BaseURL,
		APIKey:  cfg.IndianAPI.APIKey,
		Period:  cfg.IndianAPI.Period,
		Filter:  cfg.IndianAPI.Filter,
		Timeout: cfg.IndianAPI.Timeout,
	}, q, l)
}

// ProvideCryptoData creates the CoinGecko adapter.
func ProvideCryptoData(cfg *config.Config, c cache.Service, l *logger.Logger) repository.CryptoMarketData {
	return coingecko.New(coingecko.Config{
		BaseURL:         cfg.CoinGecko.BaseURL,
		APIKey:          cfg.CoinGecko.APIKey,
		VsCurrency:      cfg.CoinGecko.VsCurrency,
		HistoryDays:     cfg.CoinGecko.HistoryDays,
		Timeout:         cfg.CoinGecko.Timeout,
		ListingCacheTTL: cfg.CoinGecko.ListingCacheTTL,
	}, c, l)
}

// ProvidePredictor selects the forecasting backend.
func ProvidePredictor(cfg *config.Config) (domsvc.Predictor, error) {
	switch cfg.Predictor.Kind {
	case "ensemble":
		return predictor.NewEnsemble(predictor.Config{
			StockWindow:  cfg.Predictor.StockWindow,
			CryptoWindow: cfg.Predictor.CryptoWindow,
		}), nil
	case "remote":
		return predictor.NewRemote(cfg.Predictor.RemoteURL, cfg.Predictor.Timeout, 3), nil
	}
	return nil, fmt.Errorf("unknown predictor kind %q", cfg.Predictor.Kind)
}

// ProvidePublisher creates the Kafka event publisher, or a no-op one when Kafka is off.
func ProvidePublisher(cfg *config.Config, l *logger.Logger) (repository.Publisher, error) {
	if !cfg.Kafka.Enabled {
		return internalrepo.NopPublisher{}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithTopic(cfg.Kafka.Topic),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
		pkgkafka.WithCompletion(func(n int, err error) {
			if err != nil {
				l.Warn("async prediction events lost", logger.Int("messages", n), logger.Error(err))
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic), nil
}

// ProvideOrchestrator creates the per-asset pipeline.
func ProvideOrchestrator(
	cfg *config.Config,
	stocks repository.StockMarketData,
	coins repository.CryptoMarketData,
	p domsvc.Predictor,
	store repository.PredictionStore,
	pub repository.Publisher,
	m repository.Metrics,
	l *logger.Logger,
) *usecase.Orchestrator {
	return usecase.NewOrchestrator(stocks, coins, p, store, pub, m, l, usecase.DuplicatePolicy(cfg.Store.DuplicatePolicy))
}

// ProvideBatchGuard creates the per-class batch lock.
func ProvideBatchGuard(cfg *config.Config, locker repository.Locker, l *logger.Logger) *usecase.BatchGuard {
	return usecase.NewBatchGuard(locker, cfg.Cron.LockTTL, l)
}

// ProvideTriggerLimiter throttles trigger callers per IP.
func ProvideTriggerLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.Server.TriggerRPS, cfg.Server.TriggerBurst)
}

// ProvideTriggerConfig extracts the trigger settings.
func ProvideTriggerConfig(cfg *config.Config) (api.TriggerConfig, error) {
	tf, err := models.ParseTimeframe(cfg.Cron.Timeframe)
	if err != nil {
		return api.TriggerConfig{}, err
	}
	user, err := uuid.Parse(cfg.Cron.SystemUserID)
	if err != nil {
		return api.TriggerConfig{}, fmt.Errorf("cron.system_user_id: %w", err)
	}
	return api.TriggerConfig{
		// Read through cfg so a reload of the secret is picked up per request.
		Secret:        func() string { return cfg.Cron.Secret },
		Timeframe:     tf,
		SystemUserID:  user,
		DefaultStocks: cfg.Cron.DefaultStocks,
		DefaultCoins:  cfg.Cron.DefaultCoins,
	}, nil
}

// ProvideHandler creates the HTTP handler.
func ProvideHandler(
	l *logger.Logger,
	orch *usecase.Orchestrator,
	stocks repository.StockMarketData,
	coins repository.CryptoMarketData,
	store repository.PredictionStore,
	guard *usecase.BatchGuard,
	limiter *ratelimit.Limiter,
	tc api.TriggerConfig,
) *api.PredictionHandler {
	return api.NewPredictionHandler(l, orch, stocks, coins, store, guard, limiter, tc)
}

// ProvideScheduler registers the configured in-process batch schedules.
func ProvideScheduler(
	cfg *config.Config,
	orch *usecase.Orchestrator,
	guard *usecase.BatchGuard,
	tc api.TriggerConfig,
	l *logger.Logger,
) (*scheduler.Scheduler, error) {
	s := scheduler.New(usecase.NewBatchDriver(orch, l), guard, l)
	jobs := []scheduler.Job{
		{Spec: cfg.Cron.StockSchedule, Class: "stock", Assets: tc.DefaultStocks, Timeframe: tc.Timeframe, UserID: tc.SystemUserID},
		{Spec: cfg.Cron.CryptoSchedule, Class: "crypto", Assets: tc.DefaultCoins, Timeframe: tc.Timeframe, UserID: tc.SystemUserID},
	}
	for _, job := range jobs {
		if err := s.Add(job); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *logger.Logger,
	handler *api.PredictionHandler,
	sched *scheduler.Scheduler,
	queue *admission.Queue,
	pub repository.Publisher,
	store repository.PredictionStore,
	c cache.Service,
) *server.App {
	return server.New(cfg, l, handler, sched, queue, pub, store, c)
}

// Pipeline is the orchestrator without the HTTP surface, for one-shot runs.
type Pipeline struct {
	Orchestrator *usecase.Orchestrator
	Batch        *usecase.BatchDriver
	Guard        *usecase.BatchGuard
	Logger       *logger.Logger

	queue *admission.Queue
	pub   repository.Publisher
	store repository.PredictionStore
	cache cache.Service
}

// ProvidePipeline bundles the pipeline with everything it must release.
func ProvidePipeline(
	orch *usecase.Orchestrator,
	guard *usecase.BatchGuard,
	l *logger.Logger,
	queue *admission.Queue,
	pub repository.Publisher,
	store repository.PredictionStore,
	c cache.Service,
) *Pipeline {
	return &Pipeline{
		Orchestrator: orch,
		Batch:        usecase.NewBatchDriver(orch, l),
		Guard:        guard,
		Logger:       l,
		queue:        queue,
		pub:          pub,
		store:        store,
		cache:        c,
	}
}

// Close releases the queue, publisher, cache and store in that order.
func (p *Pipeline) Close() error {
	p.queue.Close()
	var first error
	for _, c := range []interface{ Close() error }{p.pub, p.cache, p.store} {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Run executes one ad-hoc prediction.
func (p *Pipeline) Run(ctx context.Context, req models.RunRequest) models.Result {
	return p.Orchestrator.Run(ctx, req)
}

// RunBatch runs assets sequentially under the same per-class lock the HTTP
// trigger and the scheduler take.
func (p *Pipeline) RunBatch(ctx context.Context, class models.AssetClass, assets []string, tf models.Timeframe, userID uuid.UUID) ([]models.BatchEntry, error) {
	var entries []models.BatchEntry
	err := p.Guard.Do(ctx, class, func() {
		entries = p.Batch.Run(ctx, class, assets, tf, userID)
	})
	return entries, err
}
