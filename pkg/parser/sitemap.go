package parser

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"newsblog/pkg/httpclient"
	"newsblog/pkg/logging"
)

// maxSitemapDepth bounds how deep nested sitemap indexes are followed.
const maxSitemapDepth = 3

// SitemapParser handles sitemap parsing operations
type SitemapParser struct {
	client *httpclient.HTTPClient
}

// NewSitemapParser creates a new sitemap parser
func NewSitemapParser(client *httpclient.HTTPClient) *SitemapParser {
	if client == nil {
		client = httpclient.NewClient(httpclient.DefaultClient, 0)
	}
	return &SitemapParser{client: client}
}

// Parse fetches and parses a sitemap or sitemap index from the given URL
func (p *SitemapParser) Parse(ctx context.Context, url string) ([]Entry, error) {
	return p.parse(ctx, url, 0)
}

func (p *SitemapParser) parse(ctx context.Context, url string, depth int) ([]Entry, error) {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return nil, fmt.Errorf("not an http(s) sitemap location: %s", url)
	}

	resp, err := p.client.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sitemap: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	// Peek at the first bytes to tell an index from a url set
	peekBuffer := make([]byte, 512)
	n, err := io.ReadFull(resp.Body, peekBuffer)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("failed to read sitemap: %w", err)
	}

	content := string(peekBuffer[:n])
	reader := io.MultiReader(strings.NewReader(content), resp.Body)

	if !strings.Contains(content, "sitemapindex") {
		return parseURLSet(reader)
	}

	if depth >= maxSitemapDepth {
		return nil, fmt.Errorf("sitemap index nested deeper than %d", maxSitemapDepth)
	}

	sitemapURLs, err := parseSitemapIndex(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to parse sitemap index: %w", err)
	}
	if len(sitemapURLs) == 0 {
		return nil, fmt.Errorf("sitemap index contained no sitemap URLs: %w", ErrNoEntries)
	}

	var all []Entry
	for _, sitemapURL := range sitemapURLs {
		entries, err := p.parse(ctx, sitemapURL, depth+1)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logging.Warn().Err(err).Str("sitemap", sitemapURL).Msg("skipping sitemap from index")
			continue
		}
		all = append(all, entries...)
	}

	if len(all) == 0 {
		return nil, fmt.Errorf("no entries in any sitemap from index: %w", ErrNoEntries)
	}
	return all, nil
}

func parseSitemapIndex(reader io.Reader) ([]string, error) {
	var index sitemapIndex
	if err := xml.NewDecoder(reader).Decode(&index); err != nil {
		return nil, fmt.Errorf("failed to decode sitemap index XML: %w", err)
	}

	urls := make([]string, 0, len(index.Sitemaps))
	for _, ref := range index.Sitemaps {
		if loc := strings.TrimSpace(ref.Location); loc != "" {
			urls = append(urls, loc)
		}
	}
	return urls, nil
}

func parseURLSet(reader io.Reader) ([]Entry, error) {
	var set urlSet
	if err := xml.NewDecoder(reader).Decode(&set); err != nil {
		return nil, fmt.Errorf("failed to decode sitemap XML: %w", err)
	}

	entries := make([]Entry, 0, len(set.URLs))
	for _, u := range set.URLs {
		loc := strings.TrimSpace(u.Location)
		if loc == "" {
			continue
		}
		entries = append(entries, Entry{Link: loc, Published: parseLastMod(u.LastMod)})
	}
	return entries, nil
}

// parseLastMod accepts the W3C datetime forms sitemaps use. Unparseable values yield zero.
func parseLastMod(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04Z07:00", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

type urlSet struct {
	XMLName xml.Name   `xml:"urlset"`
	URLs    []urlEntry `xml:"url"`
}

type urlEntry struct {
	Location string `xml:"loc"`
	LastMod  string `xml:"lastmod,omitempty"`
}

type sitemapIndex struct {
	XMLName  xml.Name     `xml:"sitemapindex"`
	Sitemaps []sitemapRef `xml:"sitemap"`
}

type sitemapRef struct {
	Location string `xml:"loc"`
}
