package parser

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"newsblog/pkg/httpclient"

	"github.com/PuerkitoBio/goquery"
)

// DefaultLinkSelector matches post titles on common blog index layouts.
const DefaultLinkSelector = "h2.entry-title a, article h2 a, article h3 a"

// HTMLParser reads article links from a blog index page, e.g. a category
// listing that has neither a feed nor a sitemap.
type HTMLParser struct {
	client   *httpclient.HTTPClient
	selector string
}

// NewHTMLParser creates a parser that takes the anchors matched by selector.
// An empty selector uses DefaultLinkSelector.
func NewHTMLParser(client *httpclient.HTTPClient, selector string) *HTMLParser {
	if client == nil {
		client = httpclient.NewClient(httpclient.CloudflareClient, 0)
	}
	if strings.TrimSpace(selector) == "" {
		selector = DefaultLinkSelector
	}
	return &HTMLParser{client: client, selector: selector}
}

// Parse fetches pageURL and returns one entry per distinct matched link.
func (p *HTMLParser) Parse(ctx context.Context, pageURL string) ([]Entry, error) {
	base, err := url.Parse(pageURL)
	if err != nil || (base.Scheme != "http" && base.Scheme != "https") {
		return nil, fmt.Errorf("not an http(s) page: %s", pageURL)
	}

	html, err := p.client.FetchString(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch HTML: %w", err)
	}

	entries, err := ExtractLinks(html, base, p.selector)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrNoEntries
	}
	return entries, nil
}

// ExtractLinks returns the anchors of html matched by selector, resolved
// against base. The anchor text becomes the entry title.
func ExtractLinks(html string, base *url.URL, selector string) ([]Entry, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	seen := make(map[string]bool)
	var entries []Entry
	doc.Find(selector).Each(func(_ int, link *goquery.Selection) {
		href, ok := link.Attr("href")
		href = strings.TrimSpace(href)
		if !ok || href == "" || strings.HasPrefix(href, "#") {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref)
		abs.Fragment = ""
		location := abs.String()
		if seen[location] {
			return
		}
		seen[location] = true

		title := strings.Join(strings.Fields(link.Text()), " ")
		if title == "" {
			title, _ = link.Attr("title")
		}
		entries = append(entries, Entry{Link: location, Title: title})
	})
	return entries, nil
}
