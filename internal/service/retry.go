package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"terreiro_sync/internal/config"
	"terreiro_sync/internal/domain"
)

const subscriberJob = "subscribers"

// SubscriberSyncer reconciles auth identities with subscriber records.
// Link failures are never surfaced to the caller that triggered them; they
// land in the retry ledger and are drained by the scheduled Sweep with a
// bounded retry count.
type SubscriberSyncer struct {
	subscribers SubscriberStore
	ledger      FailedSyncStore
	syncState   SyncStateStore
	txManager   TransactionManager
	logger      *slog.Logger
	cfg         config.RetryConfig
}

func NewSubscriberSyncer(
	subscribers SubscriberStore,
	ledger FailedSyncStore,
	syncState SyncStateStore,
	txManager TransactionManager,
	logger *slog.Logger,
	cfg config.RetryConfig,
) *SubscriberSyncer {
	return &SubscriberSyncer{
		subscribers: subscribers,
		ledger:      ledger,
		syncState:   syncState,
		txManager:   txManager,
		logger:      logger.With("job", subscriberJob),
		cfg:         cfg,
	}
}

// SyncUser links one auth identity to its subscriber record. On failure the
// attempt is recorded in the ledger and nil is returned; only a ledger
// write failure propagates, since losing the record would lose the retry.
func (s *SubscriberSyncer) SyncUser(ctx context.Context, authUID, email, firstName string) error {
	_, err := s.subscribers.LinkAuth(ctx, authUID, email, firstName)
	if err == nil {
		s.logger.Debug("linked subscriber", "auth_uid", authUID)
		return nil
	}

	s.logger.Warn("subscriber link failed, recording for retry",
		"auth_uid", authUID, "error", err)

	rec := &domain.FailedSync{
		UserID:       authUID,
		Email:        email,
		FirstName:    firstName,
		ErrorMessage: err.Error(),
		Timestamp:    time.Now(),
	}
	if _, err := s.ledger.Create(ctx, rec); err != nil {
		return fmt.Errorf("record failed sync: %w", err)
	}
	return nil
}

// Sweep retries every pending ledger row in one bounded batch. Rows that
// succeed are marked processed; rows that fail again get their retry count
// bumped and drop out of selection once they hit the cap.
func (s *SubscriberSyncer) Sweep(ctx context.Context) (*domain.RetryStats, error) {
	startTime := time.Now()

	pending, err := s.ledger.ListPending(ctx, s.cfg.MaxAttempts, s.cfg.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("list pending failed syncs: %w", err)
	}

	stats := &domain.RetryStats{Scanned: len(pending)}

	for i := range pending {
		rec := &pending[i]

		err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
			if _, err := s.subscribers.LinkAuth(txCtx, rec.UserID, rec.Email, rec.FirstName); err != nil {
				return err
			}
			return s.ledger.MarkProcessed(txCtx, rec.ID, false)
		})
		if err != nil {
			s.logger.Warn("retry failed",
				"id", rec.ID,
				"auth_uid", rec.UserID,
				"retry_count", rec.RetryCount+1,
				"error", err,
			)
			if err := s.ledger.IncrementRetry(ctx, rec.ID); err != nil {
				s.logger.Error("failed to bump retry count", "id", rec.ID, "error", err)
			}
			stats.Failed++
			continue
		}

		stats.Recovered++
	}

	if err := s.updateSyncState(ctx, stats); err != nil {
		return stats, fmt.Errorf("update sync state: %w", err)
	}

	stats.Duration = time.Since(startTime)

	s.logger.Info("retry sweep completed",
		"scanned", stats.Scanned,
		"recovered", stats.Recovered,
		"failed", stats.Failed,
		"duration", stats.Duration,
	)

	return stats, nil
}

// MarkProcessedManually is the operator override: the row goes terminal
// regardless of its retry count.
func (s *SubscriberSyncer) MarkProcessedManually(ctx context.Context, id int64) error {
	return s.ledger.MarkProcessed(ctx, id, true)
}

// Metrics aggregates the ledger for the admin dashboard. SuccessfulSyncs is
// linked identities minus unprocessed failures, floored at zero; it is an
// approximation, not a per-identity join.
func (s *SubscriberSyncer) Metrics(ctx context.Context) (*domain.SyncMetrics, error) {
	total, pending, err := s.ledger.CountUnprocessed(ctx, s.cfg.MaxAttempts)
	if err != nil {
		return nil, fmt.Errorf("count failed syncs: %w", err)
	}

	linked, err := s.subscribers.CountAuthLinked(ctx)
	if err != nil {
		return nil, fmt.Errorf("count linked subscribers: %w", err)
	}

	successful := linked - total
	if successful < 0 {
		successful = 0
	}

	return &domain.SyncMetrics{
		TotalFailed:     total,
		PendingRetry:    pending,
		SuccessfulSyncs: successful,
	}, nil
}

func (s *SubscriberSyncer) updateSyncState(ctx context.Context, stats *domain.RetryStats) error {
	state, err := s.syncState.Get(ctx, subscriberJob)
	if err != nil {
		return err
	}

	state.Job = subscriberJob
	state.LastRunAt = time.Now()
	state.TotalWritten += int64(stats.Recovered)

	return s.syncState.Update(ctx, state)
}
