package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"terreiro_sync/internal/domain"
	"terreiro_sync/internal/service/mocks"
)

type ReconcilerTestSuite struct {
	suite.Suite
	ctrl *gomock.Controller

	articles  *mocks.MockArticleSource
	files     *mocks.MockFileStore
	syncState *mocks.MockSyncStateStore
	publisher *mocks.MockPublisher

	reconciler *Reconciler
	logger     *slog.Logger
}

func (s *ReconcilerTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())

	s.articles = mocks.NewMockArticleSource(s.ctrl)
	s.files = mocks.NewMockFileStore(s.ctrl)
	s.syncState = mocks.NewMockSyncStateStore(s.ctrl)
	s.publisher = mocks.NewMockPublisher(s.ctrl)

	s.logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	s.reconciler = NewReconciler(
		s.articles,
		s.files,
		s.syncState,
		s.publisher,
		s.logger,
	)
}

func (s *ReconcilerTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestReconcilerTestSuite(t *testing.T) {
	suite.Run(t, new(ReconcilerTestSuite))
}

func (s *ReconcilerTestSuite) expectSyncState(ctx context.Context) {
	s.syncState.EXPECT().Get(ctx, "content").Return(&domain.SyncState{Job: "content"}, nil)
	s.syncState.EXPECT().Update(ctx, gomock.Any()).Return(nil)
}

// Published article gets written, the file with no backing article gets
// swept, and both transitions are published as events.
func (s *ReconcilerTestSuite) TestReconcile_WritesAndSweepsOrphans() {
	ctx := context.Background()

	articles := []domain.Article{
		{ID: 1, Title: "Festa de Iemanjá", Slug: "a", Content: "body", PublishDate: time.Now()},
	}

	s.articles.EXPECT().ListPublished(ctx).Return(articles, nil)
	s.files.EXPECT().List(ctx).Return([]string{"a.md", "c.md"}, nil)
	s.files.EXPECT().Write(ctx, "a.md", gomock.Any()).Return(nil)
	s.files.EXPECT().Remove(ctx, "c.md").Return(nil)

	s.publisher.EXPECT().Publish(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, ev *domain.ContentEvent) error {
			s.Equal("c", ev.Slug)
			s.Equal(domain.ContentRemoved, ev.Action)
			return nil
		},
	)

	s.expectSyncState(ctx)

	stats, err := s.reconciler.Reconcile(ctx)

	s.NoError(err)
	s.Equal(1, stats.Eligible)
	s.Equal(1, stats.Written)
	s.Equal(1, stats.Removed)
	s.Equal(1, stats.Published)
	s.Equal(0, stats.Errors)
}

// A snapshot read failure aborts before any file is touched.
func (s *ReconcilerTestSuite) TestReconcile_SnapshotError() {
	ctx := context.Background()

	s.articles.EXPECT().ListPublished(ctx).Return(nil, errors.New("db down"))

	stats, err := s.reconciler.Reconcile(ctx)

	s.Error(err)
	s.Nil(stats)
	s.Contains(err.Error(), "list published articles")
}

// A listing failure aborts the run with zero deletions; an empty result
// would have made every file on disk look like an orphan.
func (s *ReconcilerTestSuite) TestReconcile_ListErrorAbortsBeforeWrites() {
	ctx := context.Background()

	articles := []domain.Article{
		{ID: 1, Title: "A", Slug: "a", PublishDate: time.Now()},
	}

	s.articles.EXPECT().ListPublished(ctx).Return(articles, nil)
	s.files.EXPECT().List(ctx).Return(nil, errors.New("permission denied"))

	stats, err := s.reconciler.Reconcile(ctx)

	s.Error(err)
	s.Nil(stats)
	s.Contains(err.Error(), "list content files")
}

// Per-article write failures are logged and skipped; the run continues.
func (s *ReconcilerTestSuite) TestReconcile_WriteErrorContinues() {
	ctx := context.Background()

	articles := []domain.Article{
		{ID: 1, Title: "A", Slug: "a", PublishDate: time.Now()},
		{ID: 2, Title: "B", Slug: "b", PublishDate: time.Now()},
	}

	s.articles.EXPECT().ListPublished(ctx).Return(articles, nil)
	s.files.EXPECT().List(ctx).Return([]string{"a.md", "b.md"}, nil)
	s.files.EXPECT().Write(ctx, "a.md", gomock.Any()).Return(errors.New("disk full"))
	s.files.EXPECT().Write(ctx, "b.md", gomock.Any()).Return(nil)
	// a.md dropped out of the generated set, so the sweep reclaims it.
	s.files.EXPECT().Remove(ctx, "a.md").Return(nil)
	s.publisher.EXPECT().Publish(ctx, gomock.Any()).Return(nil)

	s.expectSyncState(ctx)

	stats, err := s.reconciler.Reconcile(ctx)

	s.NoError(err)
	s.Equal(1, stats.Written)
	s.Equal(1, stats.Errors)
}

// A failed orphan deletion does not abort the sweep.
func (s *ReconcilerTestSuite) TestReconcile_RemoveErrorContinues() {
	ctx := context.Background()

	s.articles.EXPECT().ListPublished(ctx).Return(nil, nil)
	s.files.EXPECT().List(ctx).Return([]string{"x.md", "y.md"}, nil)
	s.files.EXPECT().Remove(ctx, "x.md").Return(errors.New("busy"))
	s.files.EXPECT().Remove(ctx, "y.md").Return(nil)
	s.publisher.EXPECT().Publish(ctx, gomock.Any()).Return(nil)

	s.expectSyncState(ctx)

	stats, err := s.reconciler.Reconcile(ctx)

	s.NoError(err)
	s.Equal(1, stats.Removed)
	s.Equal(1, stats.Errors)
}

// Two articles rendering to the same filename: the later one wins, the
// file is counted once, no crash.
func (s *ReconcilerTestSuite) TestReconcile_SlugCollisionLastWriteWins() {
	ctx := context.Background()

	articles := []domain.Article{
		{ID: 1, Title: "Untitled", Content: "first", PublishDate: time.Now()},
		{ID: 2, Title: "Untitled", Content: "second", PublishDate: time.Now()},
	}

	var last []byte
	s.articles.EXPECT().ListPublished(ctx).Return(articles, nil)
	s.files.EXPECT().List(ctx).Return([]string{"untitled.md"}, nil)
	s.files.EXPECT().Write(ctx, "untitled.md", gomock.Any()).DoAndReturn(
		func(_ context.Context, _ string, data []byte) error {
			last = data
			return nil
		},
	).Times(2)

	s.expectSyncState(ctx)

	stats, err := s.reconciler.Reconcile(ctx)

	s.NoError(err)
	s.Equal(1, stats.Written)
	s.Contains(string(last), "second")
}

// An article with no slug and a title that slugifies to nothing is
// quarantined instead of producing a garbage filename.
func (s *ReconcilerTestSuite) TestReconcile_UnusableSlugQuarantined() {
	ctx := context.Background()

	articles := []domain.Article{
		{ID: 1, Title: "???", PublishDate: time.Now()},
	}

	s.articles.EXPECT().ListPublished(ctx).Return(articles, nil)
	s.files.EXPECT().List(ctx).Return(nil, nil)

	s.expectSyncState(ctx)

	stats, err := s.reconciler.Reconcile(ctx)

	s.NoError(err)
	s.Equal(0, stats.Written)
	s.Equal(1, stats.Errors)
}

// Running twice with unchanged data rewrites the same set and never
// publishes or removes anything the second time.
func (s *ReconcilerTestSuite) TestReconcile_Idempotent() {
	ctx := context.Background()

	articles := []domain.Article{
		{ID: 1, Title: "A", Slug: "a", Content: "body", PublishDate: time.Now()},
	}

	// First run: file is new, one published event.
	s.articles.EXPECT().ListPublished(ctx).Return(articles, nil)
	s.files.EXPECT().List(ctx).Return(nil, nil)
	s.files.EXPECT().Write(ctx, "a.md", gomock.Any()).Return(nil)
	s.publisher.EXPECT().Publish(ctx, gomock.Any()).Return(nil)
	s.expectSyncState(ctx)

	stats, err := s.reconciler.Reconcile(ctx)
	s.NoError(err)
	s.Equal(1, stats.Written)
	s.Equal(1, stats.Published)

	// Second run: same write, nothing removed, nothing published.
	s.articles.EXPECT().ListPublished(ctx).Return(articles, nil)
	s.files.EXPECT().List(ctx).Return([]string{"a.md"}, nil)
	s.files.EXPECT().Write(ctx, "a.md", gomock.Any()).Return(nil)
	s.expectSyncState(ctx)

	stats, err = s.reconciler.Reconcile(ctx)
	s.NoError(err)
	s.Equal(1, stats.Written)
	s.Equal(0, stats.Removed)
	s.Equal(0, stats.Published)
}

// A second invocation while the run lock is held reports ErrSyncInProgress
// instead of racing the first.
func (s *ReconcilerTestSuite) TestReconcile_RejectsOverlappingRun() {
	ctx := context.Background()

	s.reconciler.mu.Lock()
	defer s.reconciler.mu.Unlock()

	stats, err := s.reconciler.Reconcile(ctx)

	s.ErrorIs(err, ErrSyncInProgress)
	s.Nil(stats)
}

// Without a publisher the reconciler skips event emission entirely.
func (s *ReconcilerTestSuite) TestReconcile_NilPublisher() {
	ctx := context.Background()

	reconciler := NewReconciler(s.articles, s.files, s.syncState, nil, s.logger)

	s.articles.EXPECT().ListPublished(ctx).Return(nil, nil)
	s.files.EXPECT().List(ctx).Return([]string{"old.md"}, nil)
	s.files.EXPECT().Remove(ctx, "old.md").Return(nil)
	s.expectSyncState(ctx)

	stats, err := reconciler.Reconcile(ctx)

	s.NoError(err)
	s.Equal(1, stats.Removed)
	s.Equal(0, stats.Published)
}
