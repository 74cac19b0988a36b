package domain

import "time"

// Subscriber is a newsletter list entry. At most one subscriber is linked
// to a given auth identity via AuthUID.
type Subscriber struct {
	ID        int64     `db:"id"`
	Email     string    `db:"email"`
	FirstName string    `db:"first_name"`
	Active    bool      `db:"active"`
	Source    string    `db:"source"`
	AuthUID   *string   `db:"auth_uid"`
	CreatedAt time.Time `db:"created_at"`
}

// FailedSync is a retry-ledger row recording a failed attempt to link an
// auth identity to a subscriber. RetryCount only ever increases; once it
// reaches the configured maximum the row is excluded from automatic sweeps
// and left for manual resolution.
type FailedSync struct {
	ID                int64      `db:"id"`
	UserID            string     `db:"user_id"`
	Email             string     `db:"email"`
	FirstName         string     `db:"first_name"`
	ErrorMessage      string     `db:"error_message"`
	Timestamp         time.Time  `db:"timestamp"`
	Processed         bool       `db:"processed"`
	RetryCount        int        `db:"retry_count"`
	ManuallyProcessed bool       `db:"manually_processed"`
	ProcessedAt       *time.Time `db:"processed_at"`
}
