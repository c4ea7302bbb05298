package parser

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Entry is one candidate article found in a source (feed, sitemap or URL list).
type Entry struct {
	Link        string
	Title       string
	Description string // summary, may contain HTML
	Content     string // full body when the feed carries it, may contain HTML
	Authors     []string
	Categories  []string
	Published   time.Time // zero when the source does not say
}

// Parser turns a source location into entries.
type Parser interface {
	Parse(ctx context.Context, source string) ([]Entry, error)
}

// ErrNoEntries is returned when a source parses but yields nothing usable.
var ErrNoEntries = errors.New("no entries found")

// Chain tries each parser in order and returns the first non-empty result.
type Chain []Parser

// Parse implements Parser.
func (c Chain) Parse(ctx context.Context, source string) ([]Entry, error) {
	var lastErr error
	for _, p := range c {
		entries, err := p.Parse(ctx, source)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}
		if len(entries) > 0 {
			return entries, nil
		}
		lastErr = ErrNoEntries
	}
	if lastErr == nil {
		lastErr = ErrNoEntries
	}
	return nil, fmt.Errorf("all parsers failed for %s, last error: %w", source, lastErr)
}
