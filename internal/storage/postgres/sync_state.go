package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"terreiro_sync/internal/domain"
)

// SyncStateStore keeps one run-report row per job ("content",
// "subscribers"), updated after every completed pass.
type SyncStateStore struct {
	db *sqlx.DB
}

func NewSyncStateStore(db *sqlx.DB) *SyncStateStore {
	return &SyncStateStore{db: db}
}

func (s *SyncStateStore) Get(ctx context.Context, job string) (*domain.SyncState, error) {
	var state domain.SyncState
	query := `
		SELECT id, job, last_run_at, total_written, total_removed
		FROM sync_state
		WHERE job = $1`

	err := s.db.GetContext(ctx, &state, query, job)
	if err == sql.ErrNoRows {
		// First run for this job.
		return &domain.SyncState{
			Job:       job,
			LastRunAt: time.Time{},
		}, nil
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func (s *SyncStateStore) Update(ctx context.Context, state *domain.SyncState) error {
	query := `
		INSERT INTO sync_state (job, last_run_at, total_written, total_removed)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (job) DO UPDATE SET
			last_run_at = EXCLUDED.last_run_at,
			total_written = EXCLUDED.total_written,
			total_removed = EXCLUDED.total_removed`

	_, err := s.db.ExecContext(ctx, query,
		state.Job,
		state.LastRunAt,
		state.TotalWritten,
		state.TotalRemoved,
	)
	return err
}
