package parser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"newsblog/pkg/httpclient"

	"github.com/mmcdole/gofeed"
)

// FeedParser handles RSS/Atom/JSON feed parsing operations
type FeedParser struct {
	feedParser *gofeed.Parser
}

// NewFeedParser creates a feed parser. A nil client uses gofeed's default HTTP client.
func NewFeedParser(client *httpclient.HTTPClient) *FeedParser {
	fp := gofeed.NewParser()
	if client != nil {
		fp.Client = client.Client()
	}
	return &FeedParser{feedParser: fp}
}

// Parse fetches and parses the feed at feedURL
func (p *FeedParser) Parse(ctx context.Context, feedURL string) ([]Entry, error) {
	feed, err := p.feedParser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}
	return entriesFromFeed(feed)
}

// ParseString parses a feed document already in memory.
func (p *FeedParser) ParseString(doc string) ([]Entry, error) {
	feed, err := p.feedParser.ParseString(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}
	return entriesFromFeed(feed)
}

func entriesFromFeed(feed *gofeed.Feed) ([]Entry, error) {
	if feed == nil || len(feed.Items) == 0 {
		return nil, fmt.Errorf("feed contains no items: %w", ErrNoEntries)
	}

	entries := make([]Entry, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil || strings.TrimSpace(item.Link) == "" {
			continue
		}
		entries = append(entries, entryFromItem(item, feed))
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("no valid links in feed items: %w", ErrNoEntries)
	}
	return entries, nil
}

func entryFromItem(item *gofeed.Item, feed *gofeed.Feed) Entry {
	e := Entry{
		Link:        strings.TrimSpace(item.Link),
		Title:       strings.TrimSpace(item.Title),
		Description: item.Description,
		Content:     item.Content,
		Categories:  item.Categories,
	}

	people := item.Authors
	if len(people) == 0 {
		people = feed.Authors
	}
	for _, p := range people {
		if p != nil && strings.TrimSpace(p.Name) != "" {
			e.Authors = append(e.Authors, strings.TrimSpace(p.Name))
		}
	}

	switch {
	case item.PublishedParsed != nil:
		e.Published = item.PublishedParsed.UTC()
	case item.UpdatedParsed != nil:
		e.Published = item.UpdatedParsed.UTC()
	default:
		e.Published = time.Time{}
	}
	return e
}
