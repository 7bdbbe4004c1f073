// Package scheduler runs prediction batches on cron schedules inside the
// service process, as an alternative to an external trigger hitting the
// HTTP endpoints.
package scheduler

import (
	"context"
	"errors"
	"fmt"

	"MarketCast/internal/domain/models"
	"MarketCast/internal/usecase"
	"MarketCast/pkg/logger"
	"MarketCast/pkg/util"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// Batch runs a sequential batch of predictions.
type Batch interface {
	Run(ctx context.Context, class models.AssetClass, assets []string, tf models.Timeframe, userID uuid.UUID) []models.BatchEntry
}

// Job is one scheduled batch.
type Job struct {
	Spec      string
	Class     models.AssetClass
	Assets    []string
	Timeframe models.Timeframe
	UserID    uuid.UUID
}

type Scheduler struct {
	cron   *cron.Cron
	batch  Batch
	guard  *usecase.BatchGuard
	logger *logger.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a scheduler whose specs are evaluated in IST, the market's zone.
func New(batch Batch, guard *usecase.BatchGuard, l *logger.Logger) *Scheduler {
	if l == nil {
		l = logger.Nop()
	}
	cl := cronLogger{l: l}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(util.IST),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		batch:  batch,
		guard:  guard,
		logger: l,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Add registers job. An empty spec leaves the job unscheduled.
func (s *Scheduler) Add(job Job) error {
	if job.Spec == "" {
		return nil
	}
	if len(job.Assets) == 0 {
		return fmt.Errorf("scheduler: %s job has no assets", job.Class)
	}
	if _, err := s.cron.AddFunc(job.Spec, func() { s.run(job) }); err != nil {
		return fmt.Errorf("scheduler: bad spec %q for %s: %w", job.Spec, job.Class, err)
	}
	s.logger.Info("batch scheduled",
		logger.String("class", string(job.Class)),
		logger.String("spec", job.Spec),
		logger.Int("assets", len(job.Assets)),
	)
	return nil
}

// Len reports the number of scheduled jobs.
func (s *Scheduler) Len() int { return len(s.cron.Entries()) }

func (s *Scheduler) Start() { s.cron.Start() }

// Stop cancels running batches and waits for them to return or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) run(job Job) {
	err := s.guard.Do(s.ctx, job.Class, func() {
		entries := s.batch.Run(s.ctx, job.Class, job.Assets, job.Timeframe, job.UserID)
		ok := 0
		for _, e := range entries {
			if e.Success {
				ok++
			}
		}
		s.logger.Info("scheduled batch done",
			logger.String("class", string(job.Class)),
			logger.Int("succeeded", ok),
			logger.Int("failed", len(entries)-ok),
		)
	})
	if errors.Is(err, usecase.ErrBatchRunning) {
		s.logger.Warn("scheduled batch skipped, another batch holds the lock", logger.String("class", string(job.Class)))
		return
	}
	if err != nil {
		s.logger.Error("scheduled batch failed", logger.String("class", string(job.Class)), logger.Error(err))
	}
}

// cronLogger adapts the service logger to cron.Logger.
type cronLogger struct{ l *logger.Logger }

func (c cronLogger) Info(msg string, kv ...interface{}) {
	c.l.Debug("cron: "+msg, logger.Any("kv", kv))
}

func (c cronLogger) Error(err error, msg string, kv ...interface{}) {
	c.l.Error("cron: "+msg, logger.Error(err), logger.Any("kv", kv))
}
