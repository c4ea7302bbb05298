package pgstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"newsblog/pkg/domain"
)

func scopeClause(scope domain.Scope) string {
	if scope == domain.ScopePublished {
		return " AND a.is_published"
	}
	return ""
}

func monthsQuery(scope domain.Scope) string {
	return `
SELECT date_trunc('month', a.publishing_date AT TIME ZONE 'UTC') AS month,
       COUNT(*) AS num_articles
FROM articles a
WHERE a.namespace = $1` + scopeClause(scope) + `
GROUP BY month
ORDER BY month DESC`
}

func authorsQuery(scope domain.Scope) string {
	return `
SELECT p.id, p.name, p.slug, COUNT(DISTINCT a.id) AS num_articles
FROM people p
JOIN article_authors aa ON aa.person_id = p.id
JOIN articles a ON a.id = aa.article_id
WHERE a.namespace = $1` + scopeClause(scope) + `
GROUP BY p.id, p.name, p.slug
ORDER BY num_articles DESC, p.name ASC`
}

func countQuery(scope domain.Scope) string {
	return `SELECT COUNT(*) FROM articles a WHERE a.namespace = $1` + scopeClause(scope)
}

func tagsQuery(scope domain.Scope) string {
	return `
SELECT t.id, t.name, t.slug, COUNT(DISTINCT a.id) AS num_articles
FROM tags t
JOIN tagged_items ti ON ti.tag_id = t.id
JOIN articles a ON a.id = ti.article_id
WHERE a.namespace = $1` + scopeClause(scope) + `
GROUP BY t.id, t.name, t.slug
ORDER BY num_articles DESC, t.name ASC`
}

// Months groups the namespace's articles by calendar month of their UTC publishing date.
func (s *Store) Months(ctx context.Context, namespace string, scope domain.Scope) ([]domain.MonthBucket, error) {
	rows, err := s.pool.Query(ctx, monthsQuery(scope), namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to query months: %w", err)
	}
	defer rows.Close()

	months := make([]domain.MonthBucket, 0)
	for rows.Next() {
		var month time.Time
		var n int64
		if err := rows.Scan(&month, &n); err != nil {
			return nil, fmt.Errorf("failed to scan month: %w", err)
		}
		months = append(months, domain.NewMonthBucket(month.Year(), month.Month(), int(n)))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return months, nil
}

// Authors counts distinct articles per person in namespace.
func (s *Store) Authors(ctx context.Context, namespace string, scope domain.Scope) ([]domain.AuthorCount, error) {
	rows, err := s.pool.Query(ctx, authorsQuery(scope), namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to query authors: %w", err)
	}
	defer rows.Close()

	authors := make([]domain.AuthorCount, 0)
	for rows.Next() {
		var a domain.AuthorCount
		var n int64
		if err := rows.Scan(&a.ID, &a.Name, &a.Slug, &n); err != nil {
			return nil, fmt.Errorf("failed to scan author: %w", err)
		}
		a.NumArticles = int(n)
		authors = append(authors, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return authors, nil
}

// Tags counts articles per tag in namespace. An empty namespace short-circuits.
func (s *Store) Tags(ctx context.Context, namespace string, scope domain.Scope) ([]domain.TagCount, error) {
	var total int64
	if err := s.pool.QueryRow(ctx, countQuery(scope), namespace).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count articles: %w", err)
	}
	if total == 0 {
		return []domain.TagCount{}, nil
	}

	rows, err := s.pool.Query(ctx, tagsQuery(scope), namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to query tags: %w", err)
	}
	defer rows.Close()

	tags := make([]domain.TagCount, 0)
	for rows.Next() {
		var t domain.TagCount
		var n int64
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug, &n); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		t.NumArticles = int(n)
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return tags, nil
}

// buildArticlesQuery turns filter into a SELECT over articles with numbered arguments.
func buildArticlesQuery(filter domain.ArticleFilter) (string, []any) {
	var conds []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.ID != "" {
		conds = append(conds, "a.id = "+arg(filter.ID))
	}
	if filter.Namespace != "" {
		conds = append(conds, "a.namespace = "+arg(filter.Namespace))
	}
	if filter.PublishedOnly {
		conds = append(conds, "a.is_published")
	}
	if filter.AuthorSlug != "" {
		conds = append(conds, `EXISTS (SELECT 1 FROM article_authors aa JOIN people p ON p.id = aa.person_id
  WHERE aa.article_id = a.id AND p.slug = `+arg(filter.AuthorSlug)+`)`)
	}
	if filter.TagSlug != "" {
		conds = append(conds, `EXISTS (SELECT 1 FROM tagged_items ti JOIN tags t ON t.id = ti.tag_id
  WHERE ti.article_id = a.id AND t.slug = `+arg(filter.TagSlug)+`)`)
	}
	if !filter.Since.IsZero() {
		conds = append(conds, "a.publishing_date >= "+arg(filter.Since.UTC()))
	}
	if !filter.Until.IsZero() {
		conds = append(conds, "a.publishing_date < "+arg(filter.Until.UTC()))
	}
	if !filter.After.IsZero() {
		conds = append(conds, "a.publishing_date > "+arg(filter.After.UTC()))
	}
	if filter.Query != "" {
		p := arg("%" + escapeLike(filter.Query) + "%")
		conds = append(conds, "(a.title ILIKE "+p+" OR a.lead_in ILIKE "+p+")")
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
	if filter.Limit > 0 {
		b.WriteString("\nLIMIT " + arg(filter.Limit))
	}
	if filter.Offset > 0 {
		b.WriteString("\nOFFSET " + arg(filter.Offset))
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

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query articles: %w", err)
	}
	articles := make([]domain.Article, 0)
	for rows.Next() {
		var a domain.Article
		if err := rows.Scan(&a.ID, &a.Namespace, &a.Title, &a.Slug, &a.LeadIn, &a.URL, &a.PublishingDate, &a.IsPublished, &a.IsFeatured); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		a.PublishingDate = a.PublishingDate.UTC()
		articles = append(articles, a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	if len(articles) == 0 {
		return articles, nil
	}
	if err := s.hydrate(ctx, articles); err != nil {
		return nil, err
	}
	return articles, nil
}

const articleAuthorsQuery = `
SELECT aa.article_id, p.id, p.name, p.slug
FROM article_authors aa
JOIN people p ON p.id = aa.person_id
WHERE aa.article_id = ANY($1)
ORDER BY aa.article_id, aa.position`

const articleTagsQuery = `
SELECT ti.article_id, t.id, t.name, t.slug
FROM tagged_items ti
JOIN tags t ON t.id = ti.tag_id
WHERE ti.article_id = ANY($1)
ORDER BY ti.article_id, ti.position`

// hydrate loads authors and tags of articles with one query each.
func (s *Store) hydrate(ctx context.Context, articles []domain.Article) error {
	ids := make([]string, len(articles))
	byID := make(map[string]*domain.Article, len(articles))
	for i := range articles {
		ids[i] = articles[i].ID
		byID[articles[i].ID] = &articles[i]
	}

	if err := s.eachLink(ctx, articleAuthorsQuery, ids, func(articleID, id, name, slug string) {
		byID[articleID].Authors = append(byID[articleID].Authors, domain.Author{ID: id, Name: name, Slug: slug})
	}); err != nil {
		return fmt.Errorf("failed to load authors: %w", err)
	}
	if err := s.eachLink(ctx, articleTagsQuery, ids, func(articleID, id, name, slug string) {
		byID[articleID].Tags = append(byID[articleID].Tags, domain.Tag{ID: id, Name: name, Slug: slug})
	}); err != nil {
		return fmt.Errorf("failed to load tags: %w", err)
	}
	return nil
}

func (s *Store) eachLink(ctx context.Context, query string, ids []string, fn func(articleID, id, name, slug string)) error {
	rows, err := s.pool.Query(ctx, query, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var articleID, id, name, slug string
		if err := rows.Scan(&articleID, &id, &name, &slug); err != nil {
			return err
		}
		fn(articleID, id, name, slug)
	}
	return rows.Err()
}
