// Package memstore keeps articles in process memory. It backs tests and the
// "memory" storage backend, and counts months/authors/tags by walking the articles.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"newsblog/pkg/domain"

	"github.com/google/uuid"
)

// Store is an in-memory article repository safe for concurrent use.
type Store struct {
	mu sync.RWMutex

	// articles keeps insertion order; index maps article ID to position.
	articles []domain.Article
	index    map[string]int

	people map[string]domain.Author // by slug
	tags   map[string]domain.Tag    // by slug
}

// New creates an empty store.
func New() *Store {
	return &Store{
		index:  make(map[string]int),
		people: make(map[string]domain.Author),
		tags:   make(map[string]domain.Tag),
	}
}

// Save inserts or replaces an article. Authors and tags are deduplicated by slug.
func (s *Store) Save(ctx context.Context, article *domain.Article) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if article.ID == "" {
		article.ID = uuid.NewString()
	}
	for i := range article.Authors {
		article.Authors[i] = s.person(article.Authors[i])
	}
	for i := range article.Tags {
		article.Tags[i] = s.tag(article.Tags[i])
	}

	stored := clone(*article)
	if pos, ok := s.index[article.ID]; ok {
		s.articles[pos] = stored
		return nil
	}
	s.index[article.ID] = len(s.articles)
	s.articles = append(s.articles, stored)
	return nil
}

func (s *Store) person(a domain.Author) domain.Author {
	if existing, ok := s.people[a.Slug]; ok {
		existing.Name = a.Name
		s.people[a.Slug] = existing
		return existing
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	s.people[a.Slug] = a
	return a
}

func (s *Store) tag(t domain.Tag) domain.Tag {
	if existing, ok := s.tags[t.Slug]; ok {
		existing.Name = t.Name
		s.tags[t.Slug] = existing
		return existing
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	s.tags[t.Slug] = t
	return t
}

// ExistingURLs returns the non-empty source URLs stored in namespace.
func (s *Store) ExistingURLs(ctx context.Context, namespace string) (map[string]bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	urls := make(map[string]bool)
	for i := range s.articles {
		if s.articles[i].Namespace == namespace && s.articles[i].URL != "" {
			urls[s.articles[i].URL] = true
		}
	}
	return urls, nil
}

// Articles lists articles matching filter.
func (s *Store) Articles(ctx context.Context, filter domain.ArticleFilter) ([]domain.Article, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	matched := make([]domain.Article, 0)
	for i := range s.articles {
		if filter.Matches(&s.articles[i]) {
			matched = append(matched, clone(s.articles[i]))
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		if filter.OldestFirst {
			return matched[i].PublishingDate.Before(matched[j].PublishingDate)
		}
		return matched[i].PublishingDate.After(matched[j].PublishingDate)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return []domain.Article{}, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

type yearMonth struct {
	year  int
	month time.Month
}

// Months counts articles of namespace per (year, month) of their UTC publishing date.
func (s *Store) Months(ctx context.Context, namespace string, scope domain.Scope) ([]domain.MonthBucket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	counter := make(map[yearMonth]int)
	for i := range s.articles {
		a := &s.articles[i]
		if !inScope(a, namespace, scope) {
			continue
		}
		d := a.PublishingDate.UTC()
		counter[yearMonth{d.Year(), d.Month()}]++
	}
	s.mu.RUnlock()

	keys := make([]yearMonth, 0, len(counter))
	for k := range counter {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].year != keys[j].year {
			return keys[i].year > keys[j].year
		}
		return keys[i].month > keys[j].month
	})

	months := make([]domain.MonthBucket, 0, len(keys))
	for _, k := range keys {
		months = append(months, domain.NewMonthBucket(k.year, k.month, counter[k]))
	}
	return months, nil
}

// Authors counts distinct articles per author in namespace.
func (s *Store) Authors(ctx context.Context, namespace string, scope domain.Scope) ([]domain.AuthorCount, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	var order []string
	counts := make(map[string]*domain.AuthorCount)
	for i := range s.articles {
		a := &s.articles[i]
		if !inScope(a, namespace, scope) {
			continue
		}
		seen := make(map[string]bool, len(a.Authors))
		for _, au := range a.Authors {
			if seen[au.Slug] {
				continue
			}
			seen[au.Slug] = true
			c, ok := counts[au.Slug]
			if !ok {
				c = &domain.AuthorCount{Author: s.people[au.Slug]}
				counts[au.Slug] = c
				order = append(order, au.Slug)
			}
			c.NumArticles++
		}
	}
	s.mu.RUnlock()

	authors := make([]domain.AuthorCount, 0, len(order))
	for _, slug := range order {
		authors = append(authors, *counts[slug])
	}
	sort.SliceStable(authors, func(i, j int) bool {
		return authors[i].NumArticles > authors[j].NumArticles
	})
	return authors, nil
}

// Tags counts articles per tag in namespace. Ties keep first-seen order.
func (s *Store) Tags(ctx context.Context, namespace string, scope domain.Scope) ([]domain.TagCount, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	var order []string
	counts := make(map[string]*domain.TagCount)
	for i := range s.articles {
		a := &s.articles[i]
		if !inScope(a, namespace, scope) {
			continue
		}
		seen := make(map[string]bool, len(a.Tags))
		for _, t := range a.Tags {
			if seen[t.Slug] {
				continue
			}
			seen[t.Slug] = true
			c, ok := counts[t.Slug]
			if !ok {
				c = &domain.TagCount{Tag: s.tags[t.Slug]}
				counts[t.Slug] = c
				order = append(order, t.Slug)
			}
			c.NumArticles++
		}
	}
	s.mu.RUnlock()

	tags := make([]domain.TagCount, 0, len(order))
	for _, slug := range order {
		tags = append(tags, *counts[slug])
	}
	sort.SliceStable(tags, func(i, j int) bool {
		return tags[i].NumArticles > tags[j].NumArticles
	})
	return tags, nil
}

// SetFlag updates flag on every article whose ID is in ids.
func (s *Store) SetFlag(ctx context.Context, ids []string, flag domain.Flag, value bool) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, id := range ids {
		pos, ok := s.index[id]
		if !ok {
			continue
		}
		switch flag {
		case domain.FlagFeatured:
			s.articles[pos].IsFeatured = value
		default:
			s.articles[pos].IsPublished = value
		}
		n++
	}
	return n, nil
}

// Len returns the number of stored articles.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.articles)
}

func inScope(a *domain.Article, namespace string, scope domain.Scope) bool {
	if a.Namespace != namespace {
		return false
	}
	return scope != domain.ScopePublished || a.IsPublished
}

func clone(a domain.Article) domain.Article {
	a.Authors = append([]domain.Author(nil), a.Authors...)
	a.Tags = append([]domain.Tag(nil), a.Tags...)
	return a
}
