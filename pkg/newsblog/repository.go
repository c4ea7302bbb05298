package newsblog

import (
	"context"
	"time"

	"newsblog/pkg/domain"
)

// Repository is the storage contract every backend (postgres, sqlite, mongo, memory) implements.
type Repository interface {
	// Save inserts or replaces an article, its author and tag associations.
	// An empty ID is filled in.
	Save(ctx context.Context, article *domain.Article) error

	// ExistingURLs returns the set of source URLs already stored in a namespace.
	ExistingURLs(ctx context.Context, namespace string) (map[string]bool, error)

	// Articles lists articles matching the filter, newest first unless filter.OldestFirst.
	Articles(ctx context.Context, filter domain.ArticleFilter) ([]domain.Article, error)

	// Months returns per-month article counts, most recent month first.
	Months(ctx context.Context, namespace string, scope domain.Scope) ([]domain.MonthBucket, error)

	// Authors returns authors with at least one article, by count descending.
	Authors(ctx context.Context, namespace string, scope domain.Scope) ([]domain.AuthorCount, error)

	// Tags returns tags attached to articles, by count descending.
	Tags(ctx context.Context, namespace string, scope domain.Scope) ([]domain.TagCount, error)

	// SetFlag sets flag to value on the given articles and returns how many matched.
	SetFlag(ctx context.Context, ids []string, flag domain.Flag, value bool) (int64, error)
}

// YearRange returns the half-open range covering year.
func YearRange(year int) (time.Time, time.Time) {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(1, 0, 0)
}

// MonthRange returns the half-open range covering year/month.
func MonthRange(year int, month time.Month) (time.Time, time.Time) {
	from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 1, 0)
}

// DayRange returns the half-open range covering one day.
func DayRange(year int, month time.Month, day int) (time.Time, time.Time) {
	from := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 0, 1)
}
