package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"terreiro_sync/internal/domain"
)

// FailedSyncStore is the retry ledger: one row per failed attempt to link
// an auth identity to a subscriber.
type FailedSyncStore struct {
	db *sqlx.DB
}

func NewFailedSyncStore(db *sqlx.DB) *FailedSyncStore {
	return &FailedSyncStore{db: db}
}

func (s *FailedSyncStore) Create(ctx context.Context, rec *domain.FailedSync) (int64, error) {
	query := `
		INSERT INTO failed_syncs (
			user_id, email, first_name, error_message, timestamp,
			processed, retry_count, manually_processed
		) VALUES ($1, $2, $3, $4, $5, false, 0, false)
		RETURNING id`

	exec := GetExecutor(ctx, s.db)

	ts := rec.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	var id int64
	err := exec.QueryRowxContext(ctx, query,
		rec.UserID, rec.Email, rec.FirstName, rec.ErrorMessage, ts,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// ListPending returns the newest unprocessed rows still under the retry
// cap, bounded to limit. Rows at or over the cap are exhausted and never
// selected here; they stay visible through Counts for manual handling.
func (s *FailedSyncStore) ListPending(ctx context.Context, maxRetries, limit int) ([]domain.FailedSync, error) {
	query := `
		SELECT id, user_id, email, first_name, error_message, timestamp,
		       processed, retry_count, manually_processed, processed_at
		FROM failed_syncs
		WHERE processed = false AND retry_count < $1
		ORDER BY timestamp DESC
		LIMIT $2`

	var recs []domain.FailedSync
	err := s.db.SelectContext(ctx, &recs, query, maxRetries, limit)
	return recs, err
}

// IncrementRetry bumps retry_count by one. The counter only moves up.
func (s *FailedSyncStore) IncrementRetry(ctx context.Context, id int64) error {
	exec := GetExecutor(ctx, s.db)

	res, err := exec.ExecContext(ctx,
		"UPDATE failed_syncs SET retry_count = retry_count + 1 WHERE id = $1", id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// MarkProcessed moves a row to its terminal state. manual=true is the
// operator override path and bypasses retry logic entirely.
func (s *FailedSyncStore) MarkProcessed(ctx context.Context, id int64, manual bool) error {
	exec := GetExecutor(ctx, s.db)

	res, err := exec.ExecContext(ctx, `
		UPDATE failed_syncs
		SET processed = true, manually_processed = $2, processed_at = $3
		WHERE id = $1`,
		id, manual, time.Now())
	if err != nil {
		return err
	}
	return requireRow(res)
}

// CountUnprocessed returns the total unprocessed rows and how many of them
// are still under the retry cap (pending automatic retry).
func (s *FailedSyncStore) CountUnprocessed(ctx context.Context, maxRetries int) (total, pending int, err error) {
	query := `
		SELECT COUNT(*) AS total,
		       COUNT(*) FILTER (WHERE retry_count < $1) AS pending
		FROM failed_syncs
		WHERE processed = false`

	row := s.db.QueryRowxContext(ctx, query, maxRetries)
	if err := row.Scan(&total, &pending); err != nil {
		return 0, 0, err
	}
	return total, pending, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
