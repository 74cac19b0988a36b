package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"terreiro_sync/internal/domain"
	"terreiro_sync/internal/service"
)

// ContentSyncer runs one content reconciliation pass.
type ContentSyncer interface {
	Reconcile(ctx context.Context) (*domain.ReconcileStats, error)
}

// RetrySweeper drains one batch of the failed-sync ledger.
type RetrySweeper interface {
	Sweep(ctx context.Context) (*domain.RetryStats, error)
}

// Scheduler is the time-based entry point: it runs the content sync and
// the retry sweep on a fixed interval. Outcomes are only logged; there is
// no caller to report to.
type Scheduler struct {
	content  ContentSyncer
	retries  RetrySweeper
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger
}

func NewScheduler(content ContentSyncer, retries RetrySweeper, interval, timeout time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		content:  content,
		retries:  retries,
		interval: interval,
		timeout:  timeout,
		logger:   logger,
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started", "interval", s.interval)

	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.content.Reconcile(runCtx); err != nil {
		if errors.Is(err, service.ErrSyncInProgress) {
			s.logger.Info("skipping scheduled run, sync already in progress")
		} else {
			s.logger.Error("content sync failed", "error", err)
		}
	}

	if _, err := s.retries.Sweep(runCtx); err != nil {
		s.logger.Error("retry sweep failed", "error", err)
	}
}
