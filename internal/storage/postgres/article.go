package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"terreiro_sync/internal/domain"
)

type ArticleStore struct {
	db *sqlx.DB
}

func NewArticleStore(db *sqlx.DB) *ArticleStore {
	return &ArticleStore{db: db}
}

// ListPublished returns every non-draft article in one pass. The collection
// stays small enough (a few thousand rows at most) that no pagination is
// needed; any error aborts the reconciliation run.
func (s *ArticleStore) ListPublished(ctx context.Context) ([]domain.Article, error) {
	query := `
		SELECT id, title, slug, content, description, image, author, tags,
		       draft, publish_date, created_at, updated_at
		FROM articles
		WHERE draft = false
		ORDER BY publish_date, id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var articles []domain.Article
	for rows.Next() {
		var a domain.Article
		if err := rows.Scan(
			&a.ID, &a.Title, &a.Slug, &a.Content, &a.Description, &a.Image,
			&a.Author, pq.Array(&a.Tags), &a.Draft, &a.PublishDate,
			&a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, err
		}
		articles = append(articles, a)
	}

	return articles, rows.Err()
}

// Upsert writes a CMS article keyed by slug. Used by the admin app and the
// integration tests; the reconciler itself never writes articles.
func (s *ArticleStore) Upsert(ctx context.Context, a *domain.Article) (int64, error) {
	query := `
		INSERT INTO articles (
			title, slug, content, description, image, author, tags,
			draft, publish_date, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
		ON CONFLICT (slug) DO UPDATE SET
			title = EXCLUDED.title,
			content = EXCLUDED.content,
			description = EXCLUDED.description,
			image = EXCLUDED.image,
			author = EXCLUDED.author,
			tags = EXCLUDED.tags,
			draft = EXCLUDED.draft,
			publish_date = EXCLUDED.publish_date,
			updated_at = EXCLUDED.updated_at
		RETURNING id`

	exec := GetExecutor(ctx, s.db)

	var id int64
	err := exec.QueryRowxContext(ctx, query,
		a.Title,
		a.Slug,
		a.Content,
		a.Description,
		a.Image,
		a.Author,
		pq.Array(a.Tags),
		a.Draft,
		a.PublishDate,
		time.Now(),
	).Scan(&id)
	if err != nil {
		return 0, err
	}

	return id, nil
}
