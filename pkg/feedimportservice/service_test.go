package feedimportservice

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"newsblog/pkg/domain"
	"newsblog/pkg/parser"
	"newsblog/pkg/slug"
	"newsblog/pkg/store/memstore"
	"newsblog/pkg/worker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const namespace = "news"

func TestService_ImportFeed_WithFiltering(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	htmlServer, feedServer := createMockServers(t)

	persistInitialArticles(t, ctx, store, htmlServer.URL)

	svc := createTestService(t, store, Config{Namespace: namespace, Workers: 2, Publish: true})
	res, err := svc.Import(ctx, []string{feedServer.URL + "/feed.xml"})
	require.NoError(t, err)

	// u1 is already stored and the site root is filtered out
	assert.Equal(t, uint64(2), res.Imported)
	assert.Zero(t, res.Failed)

	urls, err := store.ExistingURLs(ctx, namespace)
	require.NoError(t, err)
	assert.Len(t, urls, 3)
	assert.True(t, urls[htmlServer.URL+"/u2"])
	assert.True(t, urls[htmlServer.URL+"/u5"])

	articles, err := store.Articles(ctx, domain.ArticleFilter{Namespace: namespace, PublishedOnly: true})
	require.NoError(t, err)
	require.Len(t, articles, 2)

	byURL := map[string]domain.Article{}
	for _, a := range articles {
		byURL[a.URL] = a
	}

	u2 := byURL[htmlServer.URL+"/u2"]
	assert.Equal(t, "Second story", u2.Title)
	assert.Equal(t, "second-story", u2.Slug)
	assert.Equal(t, "Summary of the second story.", u2.LeadIn)
	assert.True(t, time.Date(2024, 3, 20, 14, 30, 0, 0, time.UTC).Equal(u2.PublishingDate))
	require.Len(t, u2.Authors, 1)
	assert.Equal(t, "grace-hopper", u2.Authors[0].Slug)
	assert.ElementsMatch(t, []string{"go", "databases"}, []string{u2.Tags[0].Slug, u2.Tags[1].Slug})

	// The untitled entry was completed from its page
	u5 := byURL[htmlServer.URL+"/u5"]
	assert.Equal(t, "Article 5", u5.Title)

	tags, err := store.Tags(ctx, namespace, domain.ScopeAll)
	require.NoError(t, err)
	assert.NotEmpty(t, tags)
}

func TestService_ImportTwiceIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	_, feedServer := createMockServers(t)

	svc := createTestService(t, store, Config{Namespace: namespace})
	_, err := svc.Import(ctx, []string{feedServer.URL + "/feed.xml"})
	require.NoError(t, err)
	first := store.Len()

	res, err := svc.Import(ctx, []string{feedServer.URL + "/feed.xml"})
	require.NoError(t, err)
	assert.Zero(t, res.Imported)
	assert.Equal(t, first, store.Len())
}

func TestService_MaxEntries(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	_, feedServer := createMockServers(t)

	svc := createTestService(t, store, Config{Namespace: namespace, MaxEntries: 1})
	res, err := svc.Import(ctx, []string{feedServer.URL + "/feed.xml"})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), res.Imported)
}

func TestService_MaxEntriesLeavesCutEntriesForLaterSources(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()

	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		items := `<item><title>Shared one</title><link>` + server.URL + `/s1</link></item>
  <item><title>Shared two</title><link>` + server.URL + `/s2</link></item>`
		if r.URL.Path == "/b.xml" {
			items = `<item><title>Shared two</title><link>` + server.URL + `/s2</link></item>`
		}
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><rss version="2.0"><channel><title>Feed</title>` + items + `</channel></rss>`))
	}))
	t.Cleanup(server.Close)

	svc := createTestService(t, store, Config{Namespace: namespace, MaxEntries: 1, FeedWorkers: 1})
	res, err := svc.Import(ctx, []string{server.URL + "/a.xml", server.URL + "/b.xml"})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), res.Imported)

	urls, err := store.ExistingURLs(ctx, namespace)
	require.NoError(t, err)
	assert.True(t, urls[server.URL+"/s1"])
	assert.True(t, urls[server.URL+"/s2"])
}

func TestService_FailedSourceIsSkipped(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	_, feedServer := createMockServers(t)

	svc := createTestService(t, store, Config{Namespace: namespace, FeedWorkers: 2})
	res, err := svc.Import(ctx, []string{feedServer.URL + "/missing.xml", feedServer.URL + "/feed.xml"})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), res.SourcesFailed)
	assert.NotZero(t, res.Imported)
}

func TestService_AllSourcesFail(t *testing.T) {
	ctx := context.Background()
	_, feedServer := createMockServers(t)

	svc := createTestService(t, memstore.New(), Config{Namespace: namespace})
	_, err := svc.Import(ctx, []string{feedServer.URL + "/missing.xml"})
	require.Error(t, err)
}

func TestNewService_Validation(t *testing.T) {
	p := parser.NewFeedParser(nil)
	store := memstore.New()

	_, err := NewService(nil, p, nil, Config{Namespace: namespace})
	assert.Error(t, err)
	_, err = NewService(store, nil, nil, Config{Namespace: namespace})
	assert.Error(t, err)
	_, err = NewService(store, p, nil, Config{})
	assert.Error(t, err)
	_, err = NewService(store, p, nil, Config{Namespace: namespace, FetchFullText: true})
	assert.Error(t, err)
}

func TestArticleID_Stable(t *testing.T) {
	a := ArticleID("news", "https://example.com/x")
	assert.Equal(t, a, ArticleID("news", "https://example.com/x"))
	assert.NotEqual(t, a, ArticleID("other", "https://example.com/x"))
}

func TestAuthorsFrom_DedupesBySlug(t *testing.T) {
	authors := authorsFrom([]string{"Ada Lovelace", "ada  lovelace", " ", "Grace"})
	require.Len(t, authors, 2)
	assert.Equal(t, "ada-lovelace", authors[0].Slug)
	assert.Equal(t, "grace", authors[1].Slug)
}

func TestTagsFrom_KeepsDistinctNames(t *testing.T) {
	tags := tagsFrom([]string{"C", "C++", "C#", "Новости", "技术", "c"})
	require.Len(t, tags, 5)

	slugs := make(map[string]bool)
	for _, tag := range tags {
		assert.NotEmpty(t, tag.Slug, tag.Name)
		slugs[tag.Slug] = true
	}
	assert.Len(t, slugs, 5)
	assert.Equal(t, "c", tags[0].Slug)
	assert.Equal(t, "c-plus-plus", tags[1].Slug)
	assert.Equal(t, "c-sharp", tags[2].Slug)
	assert.Equal(t, "новости", tags[3].Slug)
	assert.Equal(t, "技术", tags[4].Slug)
}

func TestAuthorsFrom_NonLatinNames(t *testing.T) {
	authors := authorsFrom([]string{"李雷", "Иван Петров"})
	require.Len(t, authors, 2)
	assert.Equal(t, "李雷", authors[0].Slug)
	assert.Equal(t, "иван-петров", authors[1].Slug)
}

func TestTagsFrom_SlugCollisionIsDisambiguated(t *testing.T) {
	tags := tagsFrom([]string{"Go", "Go!", "!!!"})
	require.Len(t, tags, 3)
	assert.Equal(t, "go", tags[0].Slug)
	assert.Equal(t, slug.Disambiguate("go", "Go!"), tags[1].Slug)
	assert.Equal(t, slug.Disambiguate("", "!!!"), tags[2].Slug)

	// The suffix only depends on the name, so every article agrees on it.
	again := tagsFrom([]string{"Go", "Go!"})
	assert.Equal(t, tags[1].Slug, again[1].Slug)
}

// persistInitialArticles stores the article behind u1 so the importer skips it
func persistInitialArticles(t *testing.T, ctx context.Context, store *memstore.Store, base string) {
	t.Helper()

	a := &domain.Article{
		Namespace:      namespace,
		Title:          "Article 1",
		URL:            base + "/u1",
		PublishingDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.Save(ctx, a))
}

// createMockServers serves article pages and a feed listing u1, the site root, u2 and u5
func createMockServers(t *testing.T) (*httptest.Server, *httptest.Server) {
	t.Helper()

	htmlServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/u5" {
			w.Write([]byte(`<html><head><title>Article 5</title></head><body><article><h1>Article 5</h1><p>Content 5 is long enough to be a paragraph.</p></article></body></html>`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(htmlServer.Close)

	feed := `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:dc="http://purl.org/dc/elements/1.1/">
<channel>
  <title>Example</title>
  <item><title>First story</title><link>` + htmlServer.URL + `/u1</link></item>
  <item><title>Home</title><link>` + htmlServer.URL + `/</link></item>
  <item>
    <title>Second story</title>
    <link>` + htmlServer.URL + `/u2</link>
    <description>&lt;p&gt;Summary of the second story.&lt;/p&gt;</description>
    <dc:creator>Grace Hopper</dc:creator>
    <category>Go</category>
    <category>Databases</category>
    <pubDate>Wed, 20 Mar 2024 14:30:00 +0000</pubDate>
  </item>
  <item><link>` + htmlServer.URL + `/u5</link></item>
</channel>
</rss>`

	feedServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/feed.xml" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(feed))
	}))
	t.Cleanup(feedServer.Close)

	return htmlServer, feedServer
}

func createTestService(t *testing.T, store *memstore.Store, cfg Config) *Service {
	t.Helper()
	svc, err := NewService(store, parser.NewFeedParser(nil), worker.NewWorker(nil, 0), cfg)
	require.NoError(t, err)
	return svc
}
