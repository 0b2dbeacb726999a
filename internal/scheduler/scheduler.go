// Package scheduler runs periodic catalog syncs on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/artisan-point/listingsearch/internal/syncer"
)

// Scheduler triggers engine syncs on a cron expression. Overlapping runs are
// skipped: a sync that outlives its interval simply absorbs the next tick.
type Scheduler struct {
	engine   *syncer.Engine
	schedule string
	timeout  time.Duration
	logger   *zap.Logger

	cron    *cron.Cron
	mu      sync.Mutex
	running bool
	syncing bool
}

// New creates a scheduler that syncs on the given cron expression.
// timeout bounds each sync pass; zero means no bound.
func New(engine *syncer.Engine, schedule string, timeout time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		engine:   engine,
		schedule: schedule,
		timeout:  timeout,
		logger:   logger,
		cron:     cron.New(),
	}
}

// Start schedules the sync job and starts the cron loop.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}
	if _, err := s.cron.AddFunc(s.schedule, s.runSync); err != nil {
		return fmt.Errorf("invalid sync schedule %q: %w", s.schedule, err)
	}
	s.cron.Start()
	s.running = true
	s.logger.Info("Sync scheduler started", zap.String("schedule", s.schedule))
	return nil
}

// Stop halts the cron loop and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Sync scheduler stopped")
}

func (s *Scheduler) runSync() {
	s.mu.Lock()
	if s.syncing {
		s.mu.Unlock()
		s.logger.Warn("Previous sync still running, skipping tick")
		return
	}
	s.syncing = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.syncing = false
		s.mu.Unlock()
	}()

	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	report, err := s.engine.Sync(ctx)
	if err != nil {
		s.logger.Error("Scheduled sync failed", zap.Error(err))
		return
	}
	s.logger.Info("Scheduled sync complete",
		zap.Bool("full_rebuild", report.FullRebuild),
		zap.Int("indexed", report.Indexed),
		zap.Int("added", report.Added),
		zap.Int("updated", report.Updated),
		zap.Int("removed", report.Removed))
}
