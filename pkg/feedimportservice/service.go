// Package feedimportservice seeds a namespace with articles found in feeds,
// sitemaps or URL lists.
package feedimportservice

import (
	"context"
	"fmt"
	"strings"
	"time"

	"newsblog/pkg/domain"
	"newsblog/pkg/extractor"
	"newsblog/pkg/filter"
	"newsblog/pkg/logging"
	"newsblog/pkg/newsblog"
	"newsblog/pkg/parser"
	"newsblog/pkg/slug"
	"newsblog/pkg/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// PageFetcher loads the readable content of an article page.
type PageFetcher interface {
	FetchPage(ctx context.Context, url string) (extractor.Page, error)
}

// Config holds configuration for the service
type Config struct {
	Namespace string

	// FeedWorkers parse sources concurrently; Workers build and save articles.
	FeedWorkers int
	Workers     int

	// MaxEntries caps new entries taken from one source; 0 means no cap.
	MaxEntries int

	// FetchFullText fetches every article page instead of trusting the feed summary.
	// Pages are fetched anyway when an entry has no title.
	FetchFullText bool

	// Publish marks imported articles as published.
	Publish bool

	LeadInLength int
}

// Result summarizes one Import run.
type Result struct {
	Sources       uint64
	SourcesFailed uint64
	Imported      uint64
	Failed        uint64
}

// Service imports feed entries as articles into a namespace
type Service struct {
	repo    newsblog.Repository
	parser  parser.Parser
	fetcher PageFetcher
	cfg     Config
	log     zerolog.Logger
	now     func() time.Time
}

// NewService creates an import service. fetcher may be nil when every entry carries a title
// and FetchFullText is off.
func NewService(repo newsblog.Repository, p parser.Parser, fetcher PageFetcher, cfg Config) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if p == nil {
		return nil, fmt.Errorf("parser is required")
	}
	if strings.TrimSpace(cfg.Namespace) == "" {
		return nil, fmt.Errorf("namespace is required")
	}
	if cfg.FetchFullText && fetcher == nil {
		return nil, fmt.Errorf("full-text import needs a page fetcher")
	}
	if cfg.LeadInLength <= 0 {
		cfg.LeadInLength = extractor.DefaultLeadInLength
	}
	return &Service{
		repo:    repo,
		parser:  p,
		fetcher: fetcher,
		cfg:     cfg,
		log:     logging.With().Str("component", "feedimport").Str("namespace", cfg.Namespace).Logger(),
		now:     time.Now,
	}, nil
}

// Import parses every source, drops entries already stored in the namespace and
// saves the rest. Sources that fail to parse are logged and skipped.
func (s *Service) Import(ctx context.Context, sources []string) (Result, error) {
	existing, err := s.repo.ExistingURLs(ctx, s.cfg.Namespace)
	if err != nil {
		return Result{}, fmt.Errorf("failed to get imported URLs: %w", err)
	}

	filters := []filter.Filter{
		filter.NewBaseURLFilter(),
		filter.NewAlreadyImportedFilter(existing),
		filter.NewSeenFilter(),
	}

	mgr := worker.NewTwoLevelManager(worker.TwoLevelConfig[string, parser.Entry]{
		ExpandWorkers: s.cfg.FeedWorkers,
		HandleWorkers: s.cfg.Workers,
		Expand: func(ctx context.Context, source string) ([]parser.Entry, error) {
			return s.entries(ctx, source, filters)
		},
		Handle: s.importEntry,
	})

	start := time.Now()
	stats, err := mgr.Process(ctx, sources)
	res := Result{
		Sources:       stats.Sources,
		SourcesFailed: stats.SourcesFailed,
		Imported:      stats.Jobs.Succeeded,
		Failed:        stats.Jobs.Failed,
	}
	s.log.Info().
		Uint64("sources", res.Sources).
		Uint64("sources_failed", res.SourcesFailed).
		Uint64("imported", res.Imported).
		Uint64("failed", res.Failed).
		Dur("took", time.Since(start)).
		Msg("import finished")
	if err != nil {
		return res, fmt.Errorf("import into %s: %w", s.cfg.Namespace, err)
	}
	return res, nil
}

func (s *Service) entries(ctx context.Context, source string, filters []filter.Filter) ([]parser.Entry, error) {
	entries, err := s.parser.Parse(ctx, source)
	if err != nil {
		return nil, err
	}

	fresh, err := filter.FilterEntries(ctx, entries, s.cfg.MaxEntries, filters...)
	if err != nil {
		return nil, fmt.Errorf("failed to filter entries: %w", err)
	}

	s.log.Debug().
		Str("source", source).
		Int("found", len(entries)).
		Int("new", len(fresh)).
		Msg("source parsed")
	return fresh, nil
}

func (s *Service) importEntry(ctx context.Context, e parser.Entry) error {
	article, err := s.buildArticle(ctx, e)
	if err != nil {
		return fmt.Errorf("build article from %s: %w", e.Link, err)
	}
	if err := s.repo.Save(ctx, article); err != nil {
		return fmt.Errorf("failed to save article %s: %w", e.Link, err)
	}
	return nil
}

// ArticleID derives a stable article ID from namespace and source link, so
// importing the same link twice replaces instead of duplicating.
func ArticleID(namespace, link string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(namespace+"|"+link)).String()
}

func (s *Service) buildArticle(ctx context.Context, e parser.Entry) (*domain.Article, error) {
	title := strings.TrimSpace(e.Title)
	summary := e.Description
	if strings.TrimSpace(summary) == "" {
		summary = e.Content
	}
	leadIn := extractor.LeadIn(summary, s.cfg.LeadInLength)

	if s.cfg.FetchFullText || title == "" {
		if s.fetcher == nil {
			return nil, fmt.Errorf("entry has no title")
		}
		page, err := s.fetcher.FetchPage(ctx, e.Link)
		if err != nil {
			return nil, err
		}
		if title == "" {
			title = page.Title
		}
		if s.cfg.FetchFullText || leadIn == "" {
			leadIn = page.LeadIn
		}
	}

	published := e.Published
	if published.IsZero() {
		published = s.now()
	}

	articleSlug := slug.Make(title)
	if articleSlug == "" {
		articleSlug = slug.Make(e.Link)
	}

	return &domain.Article{
		ID:             ArticleID(s.cfg.Namespace, e.Link),
		Namespace:      s.cfg.Namespace,
		Title:          title,
		Slug:           articleSlug,
		LeadIn:         leadIn,
		URL:            e.Link,
		PublishingDate: published.UTC(),
		IsPublished:    s.cfg.Publish,
		Authors:        authorsFrom(e.Authors),
		Tags:           tagsFrom(e.Categories),
	}, nil
}

func authorsFrom(names []string) []domain.Author {
	var authors []domain.Author
	for _, n := range slugged(names) {
		authors = append(authors, domain.Author{Name: n.name, Slug: n.slug})
	}
	return authors
}

func tagsFrom(categories []string) []domain.Tag {
	var tags []domain.Tag
	for _, n := range slugged(categories) {
		tags = append(tags, domain.Tag{Name: n.name, Slug: n.slug})
	}
	return tags
}

type sluggedName struct {
	name string
	slug string
}

// slugged pairs each distinct name with a slug. Names without a usable slug, or
// whose slug is already held by a different name, get a stable hash suffix.
// Names equal up to case and spacing are duplicates.
func slugged(names []string) []sluggedName {
	var out []sluggedName
	owner := make(map[string]string)
	for _, name := range names {
		name = strings.Join(strings.Fields(name), " ")
		if name == "" {
			continue
		}
		s := slug.Make(name)
		if s == "" {
			s = slug.Disambiguate("", name)
		}
		if prev, taken := owner[s]; taken {
			if strings.EqualFold(prev, name) {
				continue
			}
			s = slug.Disambiguate(s, name)
			if _, taken := owner[s]; taken {
				continue
			}
		}
		owner[s] = name
		out = append(out, sluggedName{name: name, slug: s})
	}
	return out
}
