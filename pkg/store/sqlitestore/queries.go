package sqlitestore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"newsblog/pkg/domain"
)

// Months groups the namespace's articles by calendar month of their UTC publishing date.
func (s *Store) Months(ctx context.Context, namespace string, scope domain.Scope) ([]domain.MonthBucket, error) {
	query := `
SELECT CAST(strftime('%Y', a.publishing_date) AS INTEGER) AS year,
       CAST(strftime('%m', a.publishing_date) AS INTEGER) AS month,
       COUNT(*) AS num_articles
FROM articles a
WHERE a.namespace = ?` + scopeClause(scope) + `
GROUP BY year, month
ORDER BY year DESC, month DESC`

	rows, err := s.db.QueryContext(ctx, query, namespace)
	if err != nil {
		return nil, fmt.Errorf("query months: %w", err)
	}
	defer rows.Close()

	months := make([]domain.MonthBucket, 0)
	for rows.Next() {
		var year, month, n int
		if err := rows.Scan(&year, &month, &n); err != nil {
			return nil, fmt.Errorf("scan month: %w", err)
		}
		months = append(months, domain.NewMonthBucket(year, time.Month(month), n))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return months, nil
}

// Authors counts distinct articles per person in namespace.
func (s *Store) Authors(ctx context.Context, namespace string, scope domain.Scope) ([]domain.AuthorCount, error) {
	query := `
SELECT p.id, p.name, p.slug, COUNT(DISTINCT a.id) AS num_articles
FROM people p
JOIN article_authors aa ON aa.person_id = p.id
JOIN articles a ON a.id = aa.article_id
WHERE a.namespace = ?` + scopeClause(scope) + `
GROUP BY p.id, p.name, p.slug
ORDER BY num_articles DESC, p.name ASC`

	rows, err := s.db.QueryContext(ctx, query, namespace)
	if err != nil {
		return nil, fmt.Errorf("query authors: %w", err)
	}
	defer rows.Close()

	authors := make([]domain.AuthorCount, 0)
	for rows.Next() {
		var a domain.AuthorCount
		if err := rows.Scan(&a.ID, &a.Name, &a.Slug, &a.NumArticles); err != nil {
			return nil, fmt.Errorf("scan author: %w", err)
		}
		authors = append(authors, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return authors, nil
}

// Tags counts articles per tag in namespace. An empty namespace short-circuits.
func (s *Store) Tags(ctx context.Context, namespace string, scope domain.Scope) ([]domain.TagCount, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM articles a WHERE a.namespace = ?` + scopeClause(scope)
	if err := s.db.QueryRowContext(ctx, countQuery, namespace).Scan(&total); err != nil {
		return nil, fmt.Errorf("count articles: %w", err)
	}
	if total == 0 {
		return []domain.TagCount{}, nil
	}

	query := `
SELECT t.id, t.name, t.slug, COUNT(DISTINCT a.id) AS num_articles
FROM tags t
JOIN tagged_items ti ON ti.tag_id = t.id
JOIN articles a ON a.id = ti.article_id
WHERE a.namespace = ?` + scopeClause(scope) + `
GROUP BY t.id, t.name, t.slug
ORDER BY num_articles DESC, t.name ASC`

	rows, err := s.db.QueryContext(ctx, query, namespace)
	if err != nil {
		return nil, fmt.Errorf("query tags: %w", err)
	}
	defer rows.Close()

	tags := make([]domain.TagCount, 0)
	for rows.Next() {
		var t domain.TagCount
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug, &t.NumArticles); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return tags, nil
}

// buildArticlesQuery turns filter into a SELECT over articles with positional arguments.
func buildArticlesQuery(filter domain.ArticleFilter) (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, arg ...any) {
		conds = append(conds, cond)
		args = append(args, arg...)
	}

	if filter.ID != "" {
		add("a.id = ?", filter.ID)
	}
	if filter.Namespace != "" {
		add("a.namespace = ?", filter.Namespace)
	}
	if filter.PublishedOnly {
		add("a.is_published = 1")
	}
	if filter.AuthorSlug != "" {
		add(`EXISTS (SELECT 1 FROM article_authors aa JOIN people p ON p.id = aa.person_id
  WHERE aa.article_id = a.id AND p.slug = ?)`, filter.AuthorSlug)
	}
	if filter.TagSlug != "" {
		add(`EXISTS (SELECT 1 FROM tagged_items ti JOIN tags t ON t.id = ti.tag_id
  WHERE ti.article_id = a.id AND t.slug = ?)`, filter.TagSlug)
	}
	if !filter.Since.IsZero() {
		add("a.publishing_date >= ?", formatDate(filter.Since))
	}
	if !filter.Until.IsZero() {
		add("a.publishing_date < ?", formatDate(filter.Until))
	}
	if !filter.After.IsZero() {
		add("a.publishing_date > ?", formatDate(filter.After))
	}
	if filter.Query != "" {
		pattern := "%" + escapeLike(filter.Query) + "%"
		add(`(a.title LIKE ? ESCAPE '\' OR a.lead_in LIKE ? ESCAPE '\')`, pattern, pattern)
	}

	var b strings.Builder
	b.WriteString(`SELECT a.id, a.namespace, a.title, a.slug, a.lead_in, a.url, a.publishing_date, a.is_published, a.is_featured
FROM articles a`)
	if len(conds) > 0 {
		b.WriteString("\nWHERE ")
		b.WriteString(strings.Join(conds, "\n  AND "))
	}
	if filter.OldestFirst {
		b.WriteString("\nORDER BY a.publishing_date ASC, a.id ASC")
	} else {
		b.WriteString("\nORDER BY a.publishing_date DESC, a.id ASC")
	}
	if filter.Limit > 0 || filter.Offset > 0 {
		limit := filter.Limit
		if limit <= 0 {
			limit = -1 // no limit
		}
		b.WriteString("\nLIMIT ? OFFSET ?")
		args = append(args, limit, filter.Offset)
	}
	return b.String(), args
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// Articles lists articles matching filter with their authors and tags.
func (s *Store) Articles(ctx context.Context, filter domain.ArticleFilter) ([]domain.Article, error) {
	query, args := buildArticlesQuery(filter)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	defer rows.Close()

	articles := make([]domain.Article, 0)
	for rows.Next() {
		var a domain.Article
		var published string
		if err := rows.Scan(&a.ID, &a.Namespace, &a.Title, &a.Slug, &a.LeadIn, &a.URL, &published, &a.IsPublished, &a.IsFeatured); err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		if a.PublishingDate, err = parseDate(published); err != nil {
			return nil, err
		}
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	if err := rows.Close(); err != nil {
		return nil, fmt.Errorf("close rows: %w", err)
	}

	if err := s.hydrate(ctx, articles); err != nil {
		return nil, err
	}
	return articles, nil
}

// hydrateChunkSize keeps the IN lists of hydrate well below SQLite's bound variable limit.
const hydrateChunkSize = 500

// hydrate loads authors and tags of articles, one query each per chunk of IDs.
func (s *Store) hydrate(ctx context.Context, articles []domain.Article) error {
	byID := make(map[string]*domain.Article, len(articles))
	for i := range articles {
		byID[articles[i].ID] = &articles[i]
	}

	for start := 0; start < len(articles); start += hydrateChunkSize {
		end := min(start+hydrateChunkSize, len(articles))
		ids := make([]string, 0, end-start)
		for i := start; i < end; i++ {
			ids = append(ids, articles[i].ID)
		}
		if err := s.hydrateAuthors(ctx, ids, byID); err != nil {
			return err
		}
		if err := s.hydrateTags(ctx, ids, byID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) hydrateAuthors(ctx context.Context, ids []string, byID map[string]*domain.Article) error {
	query := fmt.Sprintf(`
SELECT aa.article_id, p.id, p.name, p.slug
FROM article_authors aa
JOIN people p ON p.id = aa.person_id
WHERE aa.article_id IN (%s)
ORDER BY aa.article_id, aa.position`, placeholders(len(ids)))

	rows, err := s.db.QueryContext(ctx, query, stringArgs(ids)...)
	if err != nil {
		return fmt.Errorf("query article authors: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var articleID string
		var au domain.Author
		if err := rows.Scan(&articleID, &au.ID, &au.Name, &au.Slug); err != nil {
			return fmt.Errorf("scan article author: %w", err)
		}
		byID[articleID].Authors = append(byID[articleID].Authors, au)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows error: %w", err)
	}
	return nil
}

func (s *Store) hydrateTags(ctx context.Context, ids []string, byID map[string]*domain.Article) error {
	query := fmt.Sprintf(`
SELECT ti.article_id, t.id, t.name, t.slug
FROM tagged_items ti
JOIN tags t ON t.id = ti.tag_id
WHERE ti.article_id IN (%s)
ORDER BY ti.article_id, ti.position`, placeholders(len(ids)))

	rows, err := s.db.QueryContext(ctx, query, stringArgs(ids)...)
	if err != nil {
		return fmt.Errorf("query article tags: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var articleID string
		var t domain.Tag
		if err := rows.Scan(&articleID, &t.ID, &t.Name, &t.Slug); err != nil {
			return fmt.Errorf("scan article tag: %w", err)
		}
		byID[articleID].Tags = append(byID[articleID].Tags, t)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows error: %w", err)
	}
	return nil
}
