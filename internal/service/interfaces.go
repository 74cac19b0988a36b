package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"terreiro_sync/internal/domain"
)

// ArticleSource yields the authoritative snapshot of publishable articles.
type ArticleSource interface {
	ListPublished(ctx context.Context) ([]domain.Article, error)
}

// FileStore is the derived markdown file set.
type FileStore interface {
	List(ctx context.Context) ([]string, error)
	Write(ctx context.Context, name string, data []byte) error
	Remove(ctx context.Context, name string) error
}

type SubscriberStore interface {
	LinkAuth(ctx context.Context, authUID, email, firstName string) (int64, error)
	CountAuthLinked(ctx context.Context) (int, error)
}

// FailedSyncStore is the persisted retry ledger.
type FailedSyncStore interface {
	Create(ctx context.Context, rec *domain.FailedSync) (int64, error)
	ListPending(ctx context.Context, maxRetries, limit int) ([]domain.FailedSync, error)
	IncrementRetry(ctx context.Context, id int64) error
	MarkProcessed(ctx context.Context, id int64, manual bool) error
	CountUnprocessed(ctx context.Context, maxRetries int) (total, pending int, err error)
}

type SyncStateStore interface {
	Get(ctx context.Context, job string) (*domain.SyncState, error)
	Update(ctx context.Context, state *domain.SyncState) error
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type Publisher interface {
	Publish(ctx context.Context, event *domain.ContentEvent) error
	Close() error
}
