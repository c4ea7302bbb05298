package newsblog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"newsblog/pkg/domain"
	"newsblog/pkg/logging"

	"github.com/rs/zerolog"
)

// DefaultPageSize is used when Options.PageSize is not set.
const DefaultPageSize = 10

// Options configures a Service.
type Options struct {
	// Scope decides whether Months, Authors and Tags count unpublished articles.
	// The zero value (ScopeAll) counts every article of the namespace.
	Scope domain.Scope

	// PageSize is the default listing size when a page does not set Limit.
	PageSize int

	Logger *zerolog.Logger
}

// Service answers the archive, author, tag and listing questions of a news blog
// on top of an injected Repository.
type Service struct {
	repo     Repository
	scope    domain.Scope
	pageSize int
	log      zerolog.Logger
}

// Page selects a slice of a listing. Number is 1-based; zero means the first page.
type Page struct {
	Number int
	Size   int
}

// NewService creates a Service. The repository is required.
func NewService(repo Repository, opts Options) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("repository is required")
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	log := logging.With().Str("component", "newsblog").Logger()
	if opts.Logger != nil {
		log = *opts.Logger
	}
	return &Service{
		repo:     repo,
		scope:    opts.Scope,
		pageSize: pageSize,
		log:      log,
	}, nil
}

// Scope returns the scope used by Months, Authors and Tags.
func (s *Service) Scope() domain.Scope {
	return s.scope
}

// ErrNotFound is returned by Article when no article has the requested ID.
var ErrNotFound = errors.New("article not found")

// Article looks up one article of namespace by ID, published or not.
func (s *Service) Article(ctx context.Context, namespace, id string) (*domain.Article, error) {
	if id == "" {
		return nil, fmt.Errorf("%s/: %w", namespace, ErrNotFound)
	}
	articles, err := s.repo.Articles(ctx, domain.ArticleFilter{Namespace: namespace, ID: id, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(articles) == 0 {
		return nil, fmt.Errorf("%s/%s: %w", namespace, id, ErrNotFound)
	}
	return &articles[0], nil
}

// Published returns every published article across all namespaces, newest first.
func (s *Service) Published(ctx context.Context) ([]domain.Article, error) {
	return s.repo.Articles(ctx, domain.ArticleFilter{PublishedOnly: true})
}

// Months returns the archive of namespace: one bucket per month holding articles,
// most recent first.
func (s *Service) Months(ctx context.Context, namespace string) ([]domain.MonthBucket, error) {
	return s.MonthsIn(ctx, namespace, s.scope)
}

// MonthsIn is Months with an explicit scope.
func (s *Service) MonthsIn(ctx context.Context, namespace string, scope domain.Scope) ([]domain.MonthBucket, error) {
	start := time.Now()
	months, err := s.repo.Months(ctx, namespace, scope)
	if err != nil {
		return nil, err
	}
	s.log.Debug().
		Str("namespace", namespace).
		Stringer("scope", scope).
		Int("months", len(months)).
		Dur("took", time.Since(start)).
		Msg("months computed")
	return months, nil
}

// Authors returns the authors of namespace ranked by article count.
func (s *Service) Authors(ctx context.Context, namespace string) ([]domain.AuthorCount, error) {
	return s.AuthorsIn(ctx, namespace, s.scope)
}

// AuthorsIn is Authors with an explicit scope.
func (s *Service) AuthorsIn(ctx context.Context, namespace string, scope domain.Scope) ([]domain.AuthorCount, error) {
	start := time.Now()
	authors, err := s.repo.Authors(ctx, namespace, scope)
	if err != nil {
		return nil, err
	}
	s.log.Debug().
		Str("namespace", namespace).
		Stringer("scope", scope).
		Int("authors", len(authors)).
		Dur("took", time.Since(start)).
		Msg("authors computed")
	return authors, nil
}

// Tags returns the tags used in namespace ranked by article count.
func (s *Service) Tags(ctx context.Context, namespace string) ([]domain.TagCount, error) {
	return s.TagsIn(ctx, namespace, s.scope)
}

// TagsIn is Tags with an explicit scope.
func (s *Service) TagsIn(ctx context.Context, namespace string, scope domain.Scope) ([]domain.TagCount, error) {
	start := time.Now()
	tags, err := s.repo.Tags(ctx, namespace, scope)
	if err != nil {
		return nil, err
	}
	s.log.Debug().
		Str("namespace", namespace).
		Stringer("scope", scope).
		Int("tags", len(tags)).
		Dur("took", time.Since(start)).
		Msg("tags computed")
	return tags, nil
}

// Articles lists published articles of a namespace. Filter conditions other than
// the namespace are optional; paging falls back to the configured page size.
func (s *Service) Articles(ctx context.Context, filter domain.ArticleFilter) ([]domain.Article, error) {
	filter.PublishedOnly = true
	if filter.Limit <= 0 {
		filter.Limit = s.pageSize
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.repo.Articles(ctx, filter)
}

// Search matches query against title and lead-in of published articles.
// An empty query yields no results.
func (s *Service) Search(ctx context.Context, namespace, query string, limit int) ([]domain.Article, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.Article{}, nil
	}
	return s.Articles(ctx, domain.ArticleFilter{Namespace: namespace, Query: query, Limit: limit})
}

// ByAuthor lists published articles credited to the author slug.
func (s *Service) ByAuthor(ctx context.Context, namespace, authorSlug string, page Page) ([]domain.Article, error) {
	return s.Articles(ctx, s.paged(domain.ArticleFilter{Namespace: namespace, AuthorSlug: authorSlug}, page))
}

// ByTag lists published articles carrying the tag slug.
func (s *Service) ByTag(ctx context.Context, namespace, tagSlug string, page Page) ([]domain.Article, error) {
	return s.Articles(ctx, s.paged(domain.ArticleFilter{Namespace: namespace, TagSlug: tagSlug}, page))
}

// ByYear lists published articles of one year.
func (s *Service) ByYear(ctx context.Context, namespace string, year int, page Page) ([]domain.Article, error) {
	from, to := YearRange(year)
	return s.Articles(ctx, s.paged(domain.ArticleFilter{Namespace: namespace, Since: from, Until: to}, page))
}

// ByMonth lists published articles of one month.
func (s *Service) ByMonth(ctx context.Context, namespace string, year int, month time.Month, page Page) ([]domain.Article, error) {
	from, to := MonthRange(year, month)
	return s.Articles(ctx, s.paged(domain.ArticleFilter{Namespace: namespace, Since: from, Until: to}, page))
}

// ByDay lists published articles of one day.
func (s *Service) ByDay(ctx context.Context, namespace string, year int, month time.Month, day int, page Page) ([]domain.Article, error) {
	from, to := DayRange(year, month, day)
	return s.Articles(ctx, s.paged(domain.ArticleFilter{Namespace: namespace, Since: from, Until: to}, page))
}

// Adjacent returns the published articles right before and right after article
// in its namespace. Either may be nil.
func (s *Service) Adjacent(ctx context.Context, article *domain.Article) (prev, next *domain.Article, err error) {
	before, err := s.repo.Articles(ctx, domain.ArticleFilter{
		Namespace:     article.Namespace,
		PublishedOnly: true,
		Until:         article.PublishingDate,
		Limit:         1,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("previous article: %w", err)
	}
	after, err := s.repo.Articles(ctx, domain.ArticleFilter{
		Namespace:     article.Namespace,
		PublishedOnly: true,
		After:         article.PublishingDate,
		OldestFirst:   true,
		Limit:         1,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("next article: %w", err)
	}
	if len(before) > 0 {
		prev = &before[0]
	}
	if len(after) > 0 {
		next = &after[0]
	}
	return prev, next, nil
}

// Publish marks the articles as published.
func (s *Service) Publish(ctx context.Context, ids []string) (int64, error) {
	return s.setFlag(ctx, ids, domain.FlagPublished, true)
}

// Unpublish marks the articles as not published.
func (s *Service) Unpublish(ctx context.Context, ids []string) (int64, error) {
	return s.setFlag(ctx, ids, domain.FlagPublished, false)
}

// Feature marks the articles as featured.
func (s *Service) Feature(ctx context.Context, ids []string) (int64, error) {
	return s.setFlag(ctx, ids, domain.FlagFeatured, true)
}

// Unfeature marks the articles as not featured.
func (s *Service) Unfeature(ctx context.Context, ids []string) (int64, error) {
	return s.setFlag(ctx, ids, domain.FlagFeatured, false)
}

func (s *Service) setFlag(ctx context.Context, ids []string, flag domain.Flag, value bool) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	n, err := s.repo.SetFlag(ctx, ids, flag, value)
	if err != nil {
		return 0, err
	}
	s.log.Info().
		Str("flag", flag.Column()).
		Bool("value", value).
		Int("requested", len(ids)).
		Int64("updated", n).
		Msg("articles updated")
	return n, nil
}

func (s *Service) paged(filter domain.ArticleFilter, page Page) domain.ArticleFilter {
	size := page.Size
	if size <= 0 {
		size = s.pageSize
	}
	number := page.Number
	if number < 1 {
		number = 1
	}
	filter.Limit = size
	filter.Offset = (number - 1) * size
	return filter
}
