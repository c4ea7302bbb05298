// Package sqlitestore implements the article repository on SQLite through database/sql.
//
// Publishing dates are stored as fixed-width UTC text so that string comparison
// orders them and strftime can group them by month.
package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"newsblog/pkg/domain"

	"github.com/google/uuid"
)

const dateLayout = "2006-01-02 15:04:05.000000"

// Store is a SQLite-backed article repository.
type Store struct {
	db *sql.DB
}

// New wraps an open SQLite handle.
func New(db *sql.DB) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlite DB not connected")
	}
	return &Store{db: db}, nil
}

func formatDate(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

func parseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse publishing date %q: %w", s, err)
	}
	return t, nil
}

func scopeClause(scope domain.Scope) string {
	if scope == domain.ScopePublished {
		return " AND a.is_published = 1"
	}
	return ""
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func stringArgs(values []string) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}

// Save upserts the article and replaces its author and tag associations in one transaction.
func (s *Store) Save(ctx context.Context, article *domain.Article) error {
	if article.ID == "" {
		article.ID = uuid.NewString()
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const upsertArticle = `
INSERT INTO articles (id, namespace, title, slug, lead_in, url, publishing_date, is_published, is_featured)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
  namespace = excluded.namespace,
  title = excluded.title,
  slug = excluded.slug,
  lead_in = excluded.lead_in,
  url = excluded.url,
  publishing_date = excluded.publishing_date,
  is_published = excluded.is_published,
  is_featured = excluded.is_featured`

	if _, err := tx.ExecContext(ctx, upsertArticle,
		article.ID, article.Namespace, article.Title, article.Slug, article.LeadIn, article.URL,
		formatDate(article.PublishingDate), article.IsPublished, article.IsFeatured,
	); err != nil {
		return fmt.Errorf("upsert article id=%q: %w", article.ID, err)
	}

	if err := saveAuthors(ctx, tx, article); err != nil {
		return err
	}
	if err := saveTags(ctx, tx, article); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func saveAuthors(ctx context.Context, tx *sql.Tx, article *domain.Article) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM article_authors WHERE article_id = ?`, article.ID); err != nil {
		return fmt.Errorf("clear authors of article id=%q: %w", article.ID, err)
	}

	const upsertPerson = `
INSERT INTO people (id, name, slug) VALUES (?, ?, ?)
ON CONFLICT (slug) DO UPDATE SET name = excluded.name
RETURNING id`

	for i := range article.Authors {
		au := &article.Authors[i]
		if au.ID == "" {
			au.ID = uuid.NewString()
		}
		if err := tx.QueryRowContext(ctx, upsertPerson, au.ID, au.Name, au.Slug).Scan(&au.ID); err != nil {
			return fmt.Errorf("upsert person slug=%q: %w", au.Slug, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO article_authors (article_id, person_id, position) VALUES (?, ?, ?) ON CONFLICT DO NOTHING`,
			article.ID, au.ID, i,
		); err != nil {
			return fmt.Errorf("link author slug=%q: %w", au.Slug, err)
		}
	}
	return nil
}

func saveTags(ctx context.Context, tx *sql.Tx, article *domain.Article) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM tagged_items WHERE article_id = ?`, article.ID); err != nil {
		return fmt.Errorf("clear tags of article id=%q: %w", article.ID, err)
	}

	const upsertTag = `
INSERT INTO tags (id, name, slug) VALUES (?, ?, ?)
ON CONFLICT (slug) DO UPDATE SET name = excluded.name
RETURNING id`

	for i := range article.Tags {
		t := &article.Tags[i]
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		if err := tx.QueryRowContext(ctx, upsertTag, t.ID, t.Name, t.Slug).Scan(&t.ID); err != nil {
			return fmt.Errorf("upsert tag slug=%q: %w", t.Slug, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO tagged_items (tag_id, article_id, position) VALUES (?, ?, ?) ON CONFLICT DO NOTHING`,
			t.ID, article.ID, i,
		); err != nil {
			return fmt.Errorf("link tag slug=%q: %w", t.Slug, err)
		}
	}
	return nil
}

// ExistingURLs returns the source URLs already stored in namespace.
func (s *Store) ExistingURLs(ctx context.Context, namespace string) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT url FROM articles WHERE namespace = ? AND url <> ''`, namespace)
	if err != nil {
		return nil, fmt.Errorf("query existing urls: %w", err)
	}
	defer rows.Close()

	set := make(map[string]bool)
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("scan url: %w", err)
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
	var total int64
	for start := 0; start < len(ids); start += hydrateChunkSize {
		chunk := ids[start:min(start+hydrateChunkSize, len(ids))]
		query := fmt.Sprintf(`UPDATE articles SET %s = ? WHERE id IN (%s)`, flag.Column(), placeholders(len(chunk)))
		args := append([]any{value}, stringArgs(chunk)...)

		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return total, fmt.Errorf("update %s: %w", flag.Column(), err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("rows affected: %w", err)
		}
		total += n
	}
	return total, nil
}
