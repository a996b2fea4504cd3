// Package scheduler runs the periodic reconciliation pass on a cron schedule.
package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/abrezinsky/sportsmeet/internal/logger"
	"github.com/abrezinsky/sportsmeet/internal/services"
)

// DefaultSchedule runs reconciliation every five minutes
const DefaultSchedule = "@every 5m"

// runTimeout bounds a single pass
const runTimeout = 2 * time.Minute

// Config controls the reconciliation job
type Config struct {
	Enabled  bool
	Schedule string // standard 5-field spec or a descriptor such as "@every 5m"
}

// Scheduler owns the cron runner and the reconciliation job
type Scheduler struct {
	c          *cron.Cron
	config     Config
	log        logger.Logger
	reconciler services.Reconciler
	runs       atomic.Int64
}

// New validates the schedule and registers the job. Overlapping ticks are skipped
// while a pass is still running.
func New(cfg Config, log logger.Logger, reconciler services.Reconciler) (*Scheduler, error) {
	if cfg.Schedule == "" {
		cfg.Schedule = DefaultSchedule
	}
	s := &Scheduler{
		c:          cron.New(cron.WithChain(cron.Recover(cron.DiscardLogger), cron.SkipIfStillRunning(cron.DiscardLogger))),
		config:     cfg,
		log:        log,
		reconciler: reconciler,
	}
	if _, err := s.c.AddFunc(cfg.Schedule, s.RunOnce); err != nil {
		return nil, err
	}
	return s, nil
}

// RunOnce executes one reconciliation pass and logs its outcome
func (s *Scheduler) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	s.runs.Add(1)
	report, err := s.reconciler.Run(ctx)
	if err != nil {
		s.log.Error("Scheduled reconciliation failed", "error", err)
		return
	}
	s.log.Debug("Scheduled reconciliation done", "repaired", report.Repaired(), "duration", report.Duration)
}

// Runs reports how many passes have started
func (s *Scheduler) Runs() int64 {
	return s.runs.Load()
}

// Start begins running the job if the scheduler is enabled
func (s *Scheduler) Start() {
	if !s.config.Enabled {
		s.log.Info("Reconciliation scheduler disabled")
		return
	}
	s.log.Info("Starting reconciliation scheduler", "schedule", s.config.Schedule)
	s.c.Start()
}

// Stop halts the runner and waits for a running pass to finish
func (s *Scheduler) Stop() {
	<-s.c.Stop().Done()
}

// GetConfig returns the current scheduler configuration
func (s *Scheduler) GetConfig() Config {
	return s.config
}
