package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"MarketCast/internal/domain/repository"
	"MarketCast/internal/scheduler"
	"MarketCast/internal/service/admission"
	"MarketCast/pkg/cache"
	"MarketCast/pkg/config"
	xhttp "MarketCast/pkg/http"
	applogger "MarketCast/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	logger     *applogger.Logger
	httpServer *xhttp.Server
	scheduler  *scheduler.Scheduler
	queue      *admission.Queue
	publisher  repository.Publisher
	store      repository.PredictionStore
	cache      cache.Service
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	handler xhttp.Handler,
	sched *scheduler.Scheduler,
	queue *admission.Queue,
	publisher repository.Publisher,
	store repository.PredictionStore,
	c cache.Service,
) *App {
	srv := xhttp.NewServer(handler, l,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithMetrics(cfg.Metrics.Enabled, cfg.Metrics.Path),
	)
	return &App{
		cfg:        cfg,
		logger:     l,
		httpServer: srv,
		scheduler:  sched,
		queue:      queue,
		publisher:  publisher,
		store:      store,
		cache:      c,
	}
}

// Server exposes the HTTP server, mainly for tests.
func (a *App) Server() *xhttp.Server { return a.httpServer }

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http server start error", applogger.Error(err))
		return err
	}
	if a.scheduler != nil {
		a.scheduler.Start()
	}
	a.logger.Info("marketcast started",
		applogger.String("env", a.cfg.Environment),
		applogger.String("store", a.cfg.Store.Backend),
		applogger.String("cache", a.cfg.Cache.Backend),
		applogger.Bool("kafka", a.cfg.Kafka.Enabled),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.logger.Info("shutdown signal received")
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout+5*time.Second)
	defer cancel()
	return a.Shutdown(ctx)
}

// Shutdown stops intake first, then closes downstream resources.
func (a *App) Shutdown(ctx context.Context) error {
	if err := a.httpServer.Stop(ctx); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
	}
	if a.scheduler != nil {
		if err := a.scheduler.Stop(ctx); err != nil {
			a.logger.Warn("scheduler stop error", applogger.Error(err))
		}
	}
	if a.queue != nil {
		a.queue.Close()
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Warn("publisher close error", applogger.Error(err))
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Warn("cache close error", applogger.Error(err))
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("store close error", applogger.Error(err))
		}
	}
	a.logger.Info("shutdown complete")
	return nil
}
