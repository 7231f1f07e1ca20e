// Package sched runs the scrape pipeline on a fixed interval.
package sched

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RunFunc is one full pipeline execution.
type RunFunc func(ctx context.Context)

// Scheduler triggers a run immediately and then once per interval
// until its context ends.
type Scheduler struct {
	interval time.Duration
	run      RunFunc
	logger   *zap.Logger
}

// New builds a Scheduler around run.
func New(interval time.Duration, run RunFunc, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		interval: interval,
		run:      run,
		logger:   logger,
	}
}

// Run blocks until ctx ends. The first execution happens right away;
// later ones follow the ticker.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("scheduler started", zap.Duration("interval", s.interval))

	s.run(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.run(ctx)
		}
	}
}
