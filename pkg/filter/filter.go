package filter

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"newsblog/pkg/parser"
)

// Filter decides whether a candidate URL should be imported
type Filter interface {
	ShouldKeep(ctx context.Context, url string) (bool, error)
}

// FilterEntries applies all filters to the links of entries, keeping order.
// It stops once limit entries are kept, so stateful filters never see the
// entries past the limit. limit <= 0 means no limit.
func FilterEntries(ctx context.Context, entries []parser.Entry, limit int, filters ...Filter) ([]parser.Entry, error) {
	filtered := make([]parser.Entry, 0, len(entries))
	for _, e := range entries {
		if limit > 0 && len(filtered) >= limit {
			break
		}
		keep, err := keepURL(ctx, e.Link, filters)
		if err != nil {
			return nil, err
		}
		if keep {
			filtered = append(filtered, e)
		}
	}
	return filtered, nil
}

func keepURL(ctx context.Context, urlStr string, filters []Filter) (bool, error) {
	for _, f := range filters {
		shouldKeep, err := f.ShouldKeep(ctx, urlStr)
		if err != nil {
			return false, fmt.Errorf("filter error for URL %s: %w", urlStr, err)
		}
		if !shouldKeep {
			return false, nil
		}
	}
	return true, nil
}

// BaseURLFilter filters out base/root URLs
type BaseURLFilter struct{}

// NewBaseURLFilter creates a new base URL filter
func NewBaseURLFilter() *BaseURLFilter {
	return &BaseURLFilter{}
}

// ShouldKeep returns false if URL is a base/root URL
func (f *BaseURLFilter) ShouldKeep(ctx context.Context, urlStr string) (bool, error) {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		// Unparseable URLs are left for the fetch to reject
		return true, nil
	}

	path := strings.Trim(parsed.Path, "/")
	return path != "", nil
}

// AlreadyImportedFilter filters out URLs already stored in the target namespace
type AlreadyImportedFilter struct {
	imported map[string]bool
}

// NewAlreadyImportedFilter creates a filter over a set of stored URLs
func NewAlreadyImportedFilter(imported map[string]bool) *AlreadyImportedFilter {
	return &AlreadyImportedFilter{imported: imported}
}

// ShouldKeep returns false if URL is already in the imported set
func (f *AlreadyImportedFilter) ShouldKeep(ctx context.Context, urlStr string) (bool, error) {
	return !f.imported[urlStr], nil
}

// SeenFilter keeps only the first occurrence of a URL. It is safe for concurrent use,
// so feeds parsed in parallel that share entries import them once.
type SeenFilter struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewSeenFilter creates an empty SeenFilter
func NewSeenFilter() *SeenFilter {
	return &SeenFilter{seen: make(map[string]struct{})}
}

// ShouldKeep returns true the first time a URL is seen
func (f *SeenFilter) ShouldKeep(ctx context.Context, urlStr string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.seen[urlStr]; ok {
		return false, nil
	}
	f.seen[urlStr] = struct{}{}
	return true, nil
}
