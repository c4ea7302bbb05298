// Package pgstore implements the article repository on Postgres through pgx.
package pgstore

import (
	"context"
	"fmt"

	"newsblog/pkg/domain"
	"newsblog/pkg/logging"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxIface is the subset of *pgxpool.Pool the store uses. pgxmock pools satisfy it too.
type PgxIface interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is a Postgres-backed article repository.
type Store struct {
	pool PgxIface
}

// New wraps a connected pool.
func New(pool PgxIface) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("postgres pool not connected")
	}
	return &Store{pool: pool}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS articles (
  id TEXT PRIMARY KEY,
  namespace TEXT NOT NULL,
  title TEXT NOT NULL DEFAULT '',
  slug TEXT NOT NULL DEFAULT '',
  lead_in TEXT NOT NULL DEFAULT '',
  url TEXT NOT NULL DEFAULT '',
  publishing_date TIMESTAMPTZ NOT NULL,
  is_published BOOLEAN NOT NULL DEFAULT FALSE,
  is_featured BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE INDEX IF NOT EXISTS idx_articles_namespace_date ON articles (namespace, publishing_date DESC);

CREATE TABLE IF NOT EXISTS people (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL DEFAULT '',
  slug TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS article_authors (
  article_id TEXT NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
  person_id TEXT NOT NULL REFERENCES people(id) ON DELETE CASCADE,
  position INTEGER NOT NULL DEFAULT 0,
  PRIMARY KEY (article_id, person_id)
);

CREATE TABLE IF NOT EXISTS tags (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL DEFAULT '',
  slug TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS tagged_items (
  tag_id TEXT NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
  article_id TEXT NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
  position INTEGER NOT NULL DEFAULT 0,
  PRIMARY KEY (tag_id, article_id)
);
CREATE INDEX IF NOT EXISTS idx_tagged_items_article ON tagged_items (article_id);
`

// EnsureSchema creates the tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create newsblog schema: %w", err)
	}
	return nil
}

const upsertArticleQuery = `
INSERT INTO articles (id, namespace, title, slug, lead_in, url, publishing_date, is_published, is_featured)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (id) DO UPDATE SET
  namespace = EXCLUDED.namespace,
  title = EXCLUDED.title,
  slug = EXCLUDED.slug,
  lead_in = EXCLUDED.lead_in,
  url = EXCLUDED.url,
  publishing_date = EXCLUDED.publishing_date,
  is_published = EXCLUDED.is_published,
  is_featured = EXCLUDED.is_featured`

const upsertPersonQuery = `
INSERT INTO people (id, name, slug) VALUES ($1, $2, $3)
ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name
RETURNING id`

const upsertTagQuery = `
INSERT INTO tags (id, name, slug) VALUES ($1, $2, $3)
ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name
RETURNING id`

// Save upserts the article and replaces its author and tag associations in one transaction.
func (s *Store) Save(ctx context.Context, article *domain.Article) (err error) {
	if article.ID == "" {
		article.ID = uuid.NewString()
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				logging.Error().Err(rbErr).AnErr("original_error", err).Msg("failed to rollback transaction")
			}
		}
	}()

	if _, err = tx.Exec(ctx, upsertArticleQuery,
		article.ID, article.Namespace, article.Title, article.Slug, article.LeadIn, article.URL,
		article.PublishingDate.UTC(), article.IsPublished, article.IsFeatured,
	); err != nil {
		return fmt.Errorf("upsert article id=%q: %w", article.ID, err)
	}

	if _, err = tx.Exec(ctx, `DELETE FROM article_authors WHERE article_id = $1`, article.ID); err != nil {
		return fmt.Errorf("clear authors of article id=%q: %w", article.ID, err)
	}
	for i := range article.Authors {
		au := &article.Authors[i]
		if au.ID == "" {
			au.ID = uuid.NewString()
		}
		if err = tx.QueryRow(ctx, upsertPersonQuery, au.ID, au.Name, au.Slug).Scan(&au.ID); err != nil {
			return fmt.Errorf("upsert person slug=%q: %w", au.Slug, err)
		}
		if _, err = tx.Exec(ctx,
			`INSERT INTO article_authors (article_id, person_id, position) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
			article.ID, au.ID, i,
		); err != nil {
			return fmt.Errorf("link author slug=%q: %w", au.Slug, err)
		}
	}

	if _, err = tx.Exec(ctx, `DELETE FROM tagged_items WHERE article_id = $1`, article.ID); err != nil {
		return fmt.Errorf("clear tags of article id=%q: %w", article.ID, err)
	}
	for i := range article.Tags {
		t := &article.Tags[i]
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		if err = tx.QueryRow(ctx, upsertTagQuery, t.ID, t.Name, t.Slug).Scan(&t.ID); err != nil {
			return fmt.Errorf("upsert tag slug=%q: %w", t.Slug, err)
		}
		if _, err = tx.Exec(ctx,
			`INSERT INTO tagged_items (tag_id, article_id, position) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
			t.ID, article.ID, i,
		); err != nil {
			return fmt.Errorf("link tag slug=%q: %w", t.Slug, err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ExistingURLs returns the source URLs already stored in namespace.
func (s *Store) ExistingURLs(ctx context.Context, namespace string) (map[string]bool, error) {
	rows, err := s.pool.Query(ctx, `SELECT url FROM articles WHERE namespace = $1 AND url <> ''`, namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to query urls: %w", err)
	}
	defer rows.Close()

	set := make(map[string]bool)
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("failed to scan url: %w", err)
		}
		set[url] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return set, nil
}

// SetFlag updates flag on the given articles.
func (s *Store) SetFlag(ctx context.Context, ids []string, flag domain.Flag, value bool) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query := fmt.Sprintf(`UPDATE articles SET %s = $1 WHERE id = ANY($2)`, flag.Column())
	tag, err := s.pool.Exec(ctx, query, value, ids)
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", flag.Column(), err)
	}
	return tag.RowsAffected(), nil
}
