package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"terreiro_sync/internal/domain"
)

type SubscriberStore struct {
	db *sqlx.DB
}

func NewSubscriberStore(db *sqlx.DB) *SubscriberStore {
	return &SubscriberStore{db: db}
}

// LinkAuth attaches an auth identity to the subscriber with the given
// email, creating the subscriber when none exists. There is at most one
// subscriber per auth uid.
func (s *SubscriberStore) LinkAuth(ctx context.Context, authUID, email, firstName string) (int64, error) {
	query := `
		INSERT INTO subscribers (email, first_name, active, source, auth_uid, created_at)
		VALUES ($1, $2, true, 'auth', $3, $4)
		ON CONFLICT (email) DO UPDATE SET
			auth_uid = EXCLUDED.auth_uid,
			first_name = COALESCE(NULLIF(EXCLUDED.first_name, ''), subscribers.first_name),
			active = true
		RETURNING id`

	exec := GetExecutor(ctx, s.db)

	var id int64
	err := exec.QueryRowxContext(ctx, query, email, firstName, authUID, time.Now()).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// GetByAuthUID returns the subscriber linked to an auth identity, or nil.
func (s *SubscriberStore) GetByAuthUID(ctx context.Context, authUID string) (*domain.Subscriber, error) {
	query := `
		SELECT id, email, first_name, active, source, auth_uid, created_at
		FROM subscribers
		WHERE auth_uid = $1`

	var subs []domain.Subscriber
	if err := s.db.SelectContext(ctx, &subs, query, authUID); err != nil {
		return nil, err
	}
	if len(subs) == 0 {
		return nil, nil
	}
	return &subs[0], nil
}

// CountAuthLinked counts subscribers carrying an auth link. Feeds the
// successfulSyncs approximation.
func (s *SubscriberStore) CountAuthLinked(ctx context.Context) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM subscribers WHERE auth_uid IS NOT NULL")
	return count, err
}
