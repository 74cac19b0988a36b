package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"terreiro_sync/internal/content"
	"terreiro_sync/internal/domain"
)

const contentJob = "content"

// ErrSyncInProgress is returned when a reconciliation is requested while
// another one holds the run lock.
var ErrSyncInProgress = errors.New("content sync already in progress")

// Reconciler converges the markdown directory with the set of published
// articles: full rewrite of every eligible article, then removal of files
// no longer backed by one.
type Reconciler struct {
	articles  ArticleSource
	files     FileStore
	syncState SyncStateStore
	publisher Publisher
	logger    *slog.Logger

	mu sync.Mutex // run lock, shared by scheduled and manual triggers
}

func NewReconciler(
	articles ArticleSource,
	files FileStore,
	syncState SyncStateStore,
	publisher Publisher,
	logger *slog.Logger,
) *Reconciler {
	return &Reconciler{
		articles:  articles,
		files:     files,
		syncState: syncState,
		publisher: publisher,
		logger:    logger.With("job", contentJob),
	}
}

// Reconcile runs one full pass: snapshot read, local list, generate,
// orphan sweep. Snapshot and list failures abort before any file is
// touched; per-article and per-orphan failures are logged and counted.
func (r *Reconciler) Reconcile(ctx context.Context) (*domain.ReconcileStats, error) {
	if !r.mu.TryLock() {
		return nil, ErrSyncInProgress
	}
	defer r.mu.Unlock()

	startTime := time.Now()
	r.logger.Info("starting content sync")

	articles, err := r.articles.ListPublished(ctx)
	if err != nil {
		return nil, fmt.Errorf("list published articles: %w", err)
	}

	// A list failure must abort: treating it as an empty directory would
	// turn every existing file into an orphan.
	existing, err := r.files.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list content files: %w", err)
	}

	stats := &domain.ReconcileStats{Eligible: len(articles)}
	existingSet := make(map[string]struct{}, len(existing))
	for _, name := range existing {
		existingSet[name] = struct{}{}
	}

	// Generate pass. Every eligible article is rewritten unconditionally
	// so stale content from an aborted previous run is always superseded.
	generated := make(map[string]int64, len(articles))
	var events []*domain.ContentEvent

	for i := range articles {
		a := &articles[i]

		name := content.Filename(a)
		if name == "" {
			r.logger.Warn("article has no usable slug, skipping", "id", a.ID, "title", a.Title)
			stats.Errors++
			continue
		}

		if prevID, collided := generated[name]; collided {
			r.logger.Warn("slug collision, last write wins",
				"file", name,
				"overwritten_id", prevID,
				"id", a.ID,
			)
		}

		data, err := content.Render(a)
		if err != nil {
			r.logger.Error("failed to render article", "id", a.ID, "file", name, "error", err)
			stats.Errors++
			continue
		}

		if err := r.files.Write(ctx, name, data); err != nil {
			r.logger.Error("failed to write article", "id", a.ID, "file", name, "error", err)
			stats.Errors++
			continue
		}

		if _, existed := generated[name]; !existed {
			stats.Written++
		}
		generated[name] = a.ID

		if _, onDisk := existingSet[name]; !onDisk {
			events = append(events, &domain.ContentEvent{
				Slug:   trimExtension(name),
				Title:  a.Title,
				Action: domain.ContentPublished,
				At:     startTime,
			})
		}
	}

	// Orphan sweep. Runs only after the generate pass finished, so the
	// generated set is complete before any deletion decision.
	for _, name := range existing {
		if _, ok := generated[name]; ok {
			continue
		}

		if err := r.files.Remove(ctx, name); err != nil {
			r.logger.Error("failed to remove orphan file", "file", name, "error", err)
			stats.Errors++
			continue
		}
		stats.Removed++

		events = append(events, &domain.ContentEvent{
			Slug:   trimExtension(name),
			Action: domain.ContentRemoved,
			At:     startTime,
		})
	}

	if r.publisher != nil {
		for _, ev := range events {
			if err := r.publisher.Publish(ctx, ev); err != nil {
				r.logger.Error("failed to publish content event",
					"slug", ev.Slug, "action", ev.Action, "error", err)
				stats.Errors++
				continue
			}
			stats.Published++
		}
	}

	if err := r.updateSyncState(ctx, stats); err != nil {
		return stats, fmt.Errorf("update sync state: %w", err)
	}

	stats.Duration = time.Since(startTime)

	r.logger.Info("content sync completed",
		"eligible", stats.Eligible,
		"written", stats.Written,
		"removed", stats.Removed,
		"published", stats.Published,
		"errors", stats.Errors,
		"duration", stats.Duration,
	)

	return stats, nil
}

func (r *Reconciler) updateSyncState(ctx context.Context, stats *domain.ReconcileStats) error {
	state, err := r.syncState.Get(ctx, contentJob)
	if err != nil {
		return err
	}

	state.Job = contentJob
	state.LastRunAt = time.Now()
	state.TotalWritten += int64(stats.Written)
	state.TotalRemoved += int64(stats.Removed)

	return r.syncState.Update(ctx, state)
}

func trimExtension(name string) string {
	return name[:len(name)-len(content.Extension)]
}
