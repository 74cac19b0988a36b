package domain

import "time"

// ReconcileStats holds the outcome of one content reconciliation pass.
type ReconcileStats struct {
	Eligible  int
	Written   int
	Removed   int
	Published int
	Errors    int
	Duration  time.Duration
}

// RetryStats holds the outcome of one retry-ledger sweep.
type RetryStats struct {
	Scanned   int
	Recovered int
	Failed    int
	Duration  time.Duration
}

// SyncMetrics is the aggregate view the admin dashboard reads.
// SuccessfulSyncs is an approximation (linked identities minus unprocessed
// failures), not an exact per-identity join.
type SyncMetrics struct {
	TotalFailed     int `json:"totalFailed"`
	PendingRetry    int `json:"pendingRetry"`
	SuccessfulSyncs int `json:"successfulSyncs"`
}

// SyncState is the per-job run report row.
type SyncState struct {
	ID           int64     `db:"id"`
	Job          string    `db:"job"`
	LastRunAt    time.Time `db:"last_run_at"`
	TotalWritten int64     `db:"total_written"`
	TotalRemoved int64     `db:"total_removed"`
}

// ContentEvent is emitted after a reconciliation pass for each slug that
// appeared or disappeared from the generated file set.
type ContentEvent struct {
	Slug   string    `json:"slug"`
	Title  string    `json:"title"`
	Action string    `json:"action"` // "published" or "removed"
	At     time.Time `json:"at"`
}

const (
	ContentPublished = "published"
	ContentRemoved   = "removed"
)
