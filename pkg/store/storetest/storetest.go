// Package storetest is a conformance suite run against every newsblog.Repository backend.
package storetest

import (
	"context"
	"sort"
	"testing"
	"time"

	"newsblog/pkg/domain"
	"newsblog/pkg/newsblog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns an empty repository. The suite calls it once per subtest.
type Factory func(t *testing.T) newsblog.Repository

var (
	authorX = domain.Author{Name: "Xavier", Slug: "xavier"}
	authorY = domain.Author{Name: "Yvonne", Slug: "yvonne"}
	authorZ = domain.Author{Name: "Zoe", Slug: "zoe"}

	tagGo    = domain.Tag{Name: "Go", Slug: "go"}
	tagDB    = domain.Tag{Name: "Databases", Slug: "db"}
	tagNews  = domain.Tag{Name: "News", Slug: "news"}
	tagDraft = domain.Tag{Name: "Draft", Slug: "draft"}
)

func date(y int, m time.Month, d, h, min int) time.Time {
	return time.Date(y, m, d, h, min, 0, 0, time.UTC)
}

// Fixture returns the articles seeded by Seed.
//
//	blog-a: 2 articles in March 2024, 1 in April 2024; xavier on 3, yvonne on 1
//	blog-b: 1 article (yvonne) to check namespace isolation
//	blog-c: one published (Dec 2023) and one unpublished (Jan 2024) article
func Fixture() []domain.Article {
	return []domain.Article{
		{
			Namespace: "blog-a", Title: "Go generics in practice", Slug: "go-generics",
			LeadIn: "Type parameters after two years", URL: "https://example.com/a1",
			PublishingDate: date(2024, time.March, 5, 9, 0), IsPublished: true,
			Authors: []domain.Author{authorX}, Tags: []domain.Tag{tagGo, tagDB},
		},
		{
			Namespace: "blog-a", Title: "Connection pools", Slug: "connection-pools",
			LeadIn: "Sizing pgx pools", URL: "https://example.com/a2",
			PublishingDate: date(2024, time.March, 20, 14, 30), IsPublished: true,
			Authors: []domain.Author{authorX, authorY}, Tags: []domain.Tag{tagGo},
		},
		{
			Namespace: "blog-a", Title: "Release notes", Slug: "release-notes",
			LeadIn: "What shipped in April", URL: "https://example.com/a3",
			PublishingDate: date(2024, time.April, 2, 8, 0), IsPublished: true, IsFeatured: true,
			Authors: []domain.Author{authorX}, Tags: []domain.Tag{tagGo, tagNews},
		},
		{
			Namespace: "blog-b", Title: "Elsewhere", Slug: "elsewhere",
			PublishingDate: date(2024, time.March, 10, 12, 0), IsPublished: true,
			Authors: []domain.Author{authorY}, Tags: []domain.Tag{tagDB},
		},
		{
			Namespace: "blog-c", Title: "Year end", Slug: "year-end",
			PublishingDate: date(2023, time.December, 31, 23, 30), IsPublished: true,
			Authors: []domain.Author{authorX}, Tags: []domain.Tag{tagGo},
		},
		{
			Namespace: "blog-c", Title: "Unfinished", Slug: "unfinished",
			PublishingDate: date(2024, time.January, 15, 10, 0), IsPublished: false,
			Authors: []domain.Author{authorZ}, Tags: []domain.Tag{tagDraft},
		},
	}
}

// Seed saves the fixture into repo and returns the saved articles with IDs filled in.
func Seed(t *testing.T, repo newsblog.Repository) []domain.Article {
	t.Helper()
	ctx := context.Background()
	articles := Fixture()
	for i := range articles {
		require.NoError(t, repo.Save(ctx, &articles[i]), "save %s", articles[i].Slug)
		require.NotEmpty(t, articles[i].ID)
	}
	return articles
}

// Run executes the suite.
func Run(t *testing.T, newRepo Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, repo newsblog.Repository)
	}{
		{"MonthsScenario", testMonthsScenario},
		{"ArticleByID", testArticleByID},
		{"MonthsDistinctAndDescending", testMonthsDistinctAndDescending},
		{"MonthsSumMatchesArticleCount", testMonthsSumMatchesArticleCount},
		{"MonthsUnknownNamespace", testMonthsUnknownNamespace},
		{"AuthorsScenario", testAuthorsScenario},
		{"AuthorsNeverZero", testAuthorsNeverZero},
		{"AuthorsScope", testAuthorsScope},
		{"AuthorsUseCurrentName", testAuthorsUseCurrentName},
		{"TagsEmptyNamespace", testTagsEmptyNamespace},
		{"TagsCounts", testTagsCounts},
		{"TagsPublishedScopeWithoutPublished", testTagsPublishedScopeWithoutPublished},
		{"Idempotence", testIdempotence},
		{"ArticlesFilters", testArticlesFilters},
		{"ArticlesPaging", testArticlesPaging},
		{"ArticlesHydrated", testArticlesHydrated},
		{"SaveReplacesAssociations", testSaveReplacesAssociations},
		{"ExistingURLs", testExistingURLs},
		{"SetFlag", testSetFlag},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newRepo(t))
		})
	}
}

func testMonthsScenario(t *testing.T, repo newsblog.Repository) {
	Seed(t, repo)

	months, err := repo.Months(context.Background(), "blog-a", domain.ScopeAll)
	require.NoError(t, err)
	assert.Equal(t, []domain.MonthBucket{
		{Date: time.Date(2024, time.April, 3, 0, 0, 0, 0, time.UTC), NumArticles: 1},
		{Date: time.Date(2024, time.March, 3, 0, 0, 0, 0, time.UTC), NumArticles: 2},
	}, months)
}

func testMonthsDistinctAndDescending(t *testing.T, repo newsblog.Repository) {
	Seed(t, repo)

	for _, ns := range []string{"blog-a", "blog-b", "blog-c"} {
		months, err := repo.Months(context.Background(), ns, domain.ScopeAll)
		require.NoError(t, err)

		seen := make(map[time.Time]bool)
		for i, m := range months {
			assert.False(t, seen[m.Date], "duplicate month %s in %s", m.Date, ns)
			seen[m.Date] = true
			assert.Equal(t, 3, m.Date.Day())
			if i > 0 {
				assert.True(t, months[i-1].Date.After(m.Date), "months of %s not strictly descending", ns)
			}
		}
	}
}

func testMonthsSumMatchesArticleCount(t *testing.T, repo newsblog.Repository) {
	articles := Seed(t, repo)
	ctx := context.Background()

	for _, scope := range []domain.Scope{domain.ScopeAll, domain.ScopePublished} {
		for _, ns := range []string{"blog-a", "blog-b", "blog-c"} {
			want := 0
			for _, a := range articles {
				if a.Namespace == ns && (scope == domain.ScopeAll || a.IsPublished) {
					want++
				}
			}

			months, err := repo.Months(ctx, ns, scope)
			require.NoError(t, err)
			got := 0
			for _, m := range months {
				got += m.NumArticles
			}
			assert.Equal(t, want, got, "namespace %s scope %s", ns, scope)
		}
	}

	// The December 31st 23:30 UTC article stays in December.
	months, err := repo.Months(ctx, "blog-c", domain.ScopePublished)
	require.NoError(t, err)
	require.Len(t, months, 1)
	assert.Equal(t, 2023, months[0].Year())
	assert.Equal(t, time.December, months[0].Month())
}

func testMonthsUnknownNamespace(t *testing.T, repo newsblog.Repository) {
	Seed(t, repo)

	months, err := repo.Months(context.Background(), "no-such-blog", domain.ScopeAll)
	require.NoError(t, err)
	assert.Empty(t, months)
}

func testAuthorsScenario(t *testing.T, repo newsblog.Repository) {
	Seed(t, repo)

	authors, err := repo.Authors(context.Background(), "blog-a", domain.ScopeAll)
	require.NoError(t, err)
	require.Len(t, authors, 2)
	assert.Equal(t, "xavier", authors[0].Slug)
	assert.Equal(t, "Xavier", authors[0].Name)
	assert.NotEmpty(t, authors[0].ID)
	assert.Equal(t, 3, authors[0].NumArticles)
	assert.Equal(t, "yvonne", authors[1].Slug)
	assert.Equal(t, 1, authors[1].NumArticles)
}

func testAuthorsNeverZero(t *testing.T, repo newsblog.Repository) {
	Seed(t, repo)

	for _, ns := range []string{"blog-a", "blog-b", "blog-c", "no-such-blog"} {
		authors, err := repo.Authors(context.Background(), ns, domain.ScopeAll)
		require.NoError(t, err)
		for i, a := range authors {
			assert.Positive(t, a.NumArticles, "author %s in %s", a.Slug, ns)
			if i > 0 {
				assert.GreaterOrEqual(t, authors[i-1].NumArticles, a.NumArticles)
			}
		}
	}
}

func testAuthorsScope(t *testing.T, repo newsblog.Repository) {
	Seed(t, repo)
	ctx := context.Background()

	all, err := repo.Authors(ctx, "blog-c", domain.ScopeAll)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"xavier", "zoe"}, authorSlugs(all))

	published, err := repo.Authors(ctx, "blog-c", domain.ScopePublished)
	require.NoError(t, err)
	assert.Equal(t, []string{"xavier"}, authorSlugs(published))
}

func testTagsEmptyNamespace(t *testing.T, repo newsblog.Repository) {
	ctx := context.Background()

	tags, err := repo.Tags(ctx, "blog-a", domain.ScopeAll)
	require.NoError(t, err)
	assert.Empty(t, tags)

	Seed(t, repo)
	tags, err = repo.Tags(ctx, "no-such-blog", domain.ScopeAll)
	require.NoError(t, err)
	assert.Empty(t, tags)
}

func testTagsCounts(t *testing.T, repo newsblog.Repository) {
	Seed(t, repo)

	tags, err := repo.Tags(context.Background(), "blog-a", domain.ScopeAll)
	require.NoError(t, err)
	require.Len(t, tags, 3)
	assert.Equal(t, "go", tags[0].Slug)
	assert.Equal(t, 3, tags[0].NumArticles)
	assert.NotEmpty(t, tags[0].ID)

	// db and news tie at one article each; their order is unspecified.
	assert.ElementsMatch(t, []string{"db", "news"}, tagSlugs(tags[1:]))
	assert.Equal(t, 1, tags[1].NumArticles)
	assert.Equal(t, 1, tags[2].NumArticles)
}

func testTagsPublishedScopeWithoutPublished(t *testing.T, repo newsblog.Repository) {
	ctx := context.Background()
	draft := domain.Article{
		Namespace: "drafts", Title: "Draft", Slug: "draft",
		PublishingDate: date(2024, time.May, 1, 0, 0),
		Tags:           []domain.Tag{tagDraft},
	}
	require.NoError(t, repo.Save(ctx, &draft))

	tags, err := repo.Tags(ctx, "drafts", domain.ScopePublished)
	require.NoError(t, err)
	assert.Empty(t, tags)

	tags, err = repo.Tags(ctx, "drafts", domain.ScopeAll)
	require.NoError(t, err)
	assert.Equal(t, []string{"draft"}, tagSlugs(tags))
}

func testIdempotence(t *testing.T, repo newsblog.Repository) {
	Seed(t, repo)
	ctx := context.Background()

	m1, err := repo.Months(ctx, "blog-a", domain.ScopeAll)
	require.NoError(t, err)
	m2, err := repo.Months(ctx, "blog-a", domain.ScopeAll)
	require.NoError(t, err)
	assert.Equal(t, m1, m2)

	a1, err := repo.Authors(ctx, "blog-a", domain.ScopeAll)
	require.NoError(t, err)
	a2, err := repo.Authors(ctx, "blog-a", domain.ScopeAll)
	require.NoError(t, err)
	assert.Equal(t, a1, a2)

	t1, err := repo.Tags(ctx, "blog-a", domain.ScopeAll)
	require.NoError(t, err)
	t2, err := repo.Tags(ctx, "blog-a", domain.ScopeAll)
	require.NoError(t, err)
	assert.Equal(t, t1, t2)
}

func testArticlesFilters(t *testing.T, repo newsblog.Repository) {
	Seed(t, repo)
	ctx := context.Background()

	tests := []struct {
		name   string
		filter domain.ArticleFilter
		want   []string
	}{
		{"namespace newest first", domain.ArticleFilter{Namespace: "blog-a"}, []string{"release-notes", "connection-pools", "go-generics"}},
		{"oldest first", domain.ArticleFilter{Namespace: "blog-a", OldestFirst: true}, []string{"go-generics", "connection-pools", "release-notes"}},
		{"published only", domain.ArticleFilter{Namespace: "blog-c", PublishedOnly: true}, []string{"year-end"}},
		{"author", domain.ArticleFilter{Namespace: "blog-a", AuthorSlug: "yvonne"}, []string{"connection-pools"}},
		{"tag", domain.ArticleFilter{Namespace: "blog-a", TagSlug: "news"}, []string{"release-notes"}},
		{"month range", domain.ArticleFilter{Namespace: "blog-a", Since: date(2024, time.March, 1, 0, 0), Until: date(2024, time.April, 1, 0, 0)}, []string{"connection-pools", "go-generics"}},
		{"until is exclusive", domain.ArticleFilter{Namespace: "blog-a", Until: date(2024, time.March, 20, 14, 30)}, []string{"go-generics"}},
		{"after is exclusive", domain.ArticleFilter{Namespace: "blog-a", After: date(2024, time.March, 20, 14, 30), OldestFirst: true}, []string{"release-notes"}},
		{"query case insensitive", domain.ArticleFilter{Namespace: "blog-a", Query: "PGX"}, []string{"connection-pools"}},
		{"query title", domain.ArticleFilter{Namespace: "blog-a", Query: "generics"}, []string{"go-generics"}},
		{"unknown namespace", domain.ArticleFilter{Namespace: "no-such-blog"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.Articles(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, articleSlugs(got))
		})
	}

	all, err := repo.Articles(ctx, domain.ArticleFilter{PublishedOnly: true})
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func testArticlesPaging(t *testing.T, repo newsblog.Repository) {
	Seed(t, repo)
	ctx := context.Background()

	page1, err := repo.Articles(ctx, domain.ArticleFilter{Namespace: "blog-a", Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"release-notes", "connection-pools"}, articleSlugs(page1))

	page2, err := repo.Articles(ctx, domain.ArticleFilter{Namespace: "blog-a", Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"go-generics"}, articleSlugs(page2))

	page3, err := repo.Articles(ctx, domain.ArticleFilter{Namespace: "blog-a", Limit: 2, Offset: 4})
	require.NoError(t, err)
	assert.Empty(t, page3)
}

func testArticlesHydrated(t *testing.T, repo newsblog.Repository) {
	seeded := Seed(t, repo)

	got, err := repo.Articles(context.Background(), domain.ArticleFilter{Namespace: "blog-a", TagSlug: "news"})
	require.NoError(t, err)
	require.Len(t, got, 1)

	a := got[0]
	assert.Equal(t, seeded[2].ID, a.ID)
	assert.Equal(t, "blog-a", a.Namespace)
	assert.Equal(t, "Release notes", a.Title)
	assert.Equal(t, "What shipped in April", a.LeadIn)
	assert.Equal(t, "https://example.com/a3", a.URL)
	assert.True(t, a.PublishingDate.Equal(date(2024, time.April, 2, 8, 0)))
	assert.True(t, a.IsPublished)
	assert.True(t, a.IsFeatured)
	assert.Equal(t, []string{"xavier"}, slugsOfAuthors(a.Authors))
	assert.ElementsMatch(t, []string{"go", "news"}, slugsOfTags(a.Tags))
}

func testSaveReplacesAssociations(t *testing.T, repo newsblog.Repository) {
	seeded := Seed(t, repo)
	ctx := context.Background()

	updated := seeded[0]
	updated.Title = "Go generics revisited"
	updated.Authors = []domain.Author{authorY}
	updated.Tags = []domain.Tag{tagNews}
	require.NoError(t, repo.Save(ctx, &updated))
	assert.Equal(t, seeded[0].ID, updated.ID)

	got, err := repo.Articles(ctx, domain.ArticleFilter{Namespace: "blog-a", AuthorSlug: "yvonne"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"go-generics", "connection-pools"}, articleSlugs(got))

	authors, err := repo.Authors(ctx, "blog-a", domain.ScopeAll)
	require.NoError(t, err)
	counts := make(map[string]int)
	for _, a := range authors {
		counts[a.Slug] = a.NumArticles
	}
	assert.Equal(t, map[string]int{"xavier": 2, "yvonne": 2}, counts)

	all, err := repo.Articles(ctx, domain.ArticleFilter{Namespace: "blog-a"})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func testExistingURLs(t *testing.T, repo newsblog.Repository) {
	Seed(t, repo)

	urls, err := repo.ExistingURLs(context.Background(), "blog-a")
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{
		"https://example.com/a1": true,
		"https://example.com/a2": true,
		"https://example.com/a3": true,
	}, urls)

	urls, err = repo.ExistingURLs(context.Background(), "blog-b")
	require.NoError(t, err)
	assert.Empty(t, urls)
}

func testSetFlag(t *testing.T, repo newsblog.Repository) {
	seeded := Seed(t, repo)
	ctx := context.Background()

	n, err := repo.SetFlag(ctx, []string{seeded[0].ID, seeded[1].ID, "missing"}, domain.FlagPublished, false)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	published, err := repo.Articles(ctx, domain.ArticleFilter{Namespace: "blog-a", PublishedOnly: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"release-notes"}, articleSlugs(published))

	months, err := repo.Months(ctx, "blog-a", domain.ScopePublished)
	require.NoError(t, err)
	assert.Len(t, months, 1)

	n, err = repo.SetFlag(ctx, []string{seeded[0].ID}, domain.FlagFeatured, true)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := repo.Articles(ctx, domain.ArticleFilter{Namespace: "blog-a", TagSlug: "db"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].IsFeatured)
	assert.False(t, got[0].IsPublished)
}

func testArticleByID(t *testing.T, repo newsblog.Repository) {
	ctx := context.Background()
	seeded := Seed(t, repo)
	var unfinished domain.Article
	for _, a := range seeded {
		if a.Slug == "unfinished" {
			unfinished = a
		}
	}

	got, err := repo.Articles(ctx, domain.ArticleFilter{Namespace: "blog-c", ID: unfinished.ID, Limit: 1})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "unfinished", got[0].Slug)
	assert.Equal(t, []string{"zoe"}, slugsOfAuthors(got[0].Authors))

	got, err = repo.Articles(ctx, domain.ArticleFilter{Namespace: "blog-a", ID: unfinished.ID})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func testAuthorsUseCurrentName(t *testing.T, repo newsblog.Repository) {
	ctx := context.Background()
	first := domain.Article{
		Namespace: "renamed", Title: "First", Slug: "first", URL: "https://example.com/r1",
		PublishingDate: date(2024, time.May, 1, 9, 0), IsPublished: true,
		Authors: []domain.Author{{Name: "Ada", Slug: "ada"}}, Tags: []domain.Tag{{Name: "golang", Slug: "go"}},
	}
	second := domain.Article{
		Namespace: "renamed", Title: "Second", Slug: "second", URL: "https://example.com/r2",
		PublishingDate: date(2024, time.May, 2, 9, 0), IsPublished: true,
		Authors: []domain.Author{{Name: "Ada Lovelace", Slug: "ada"}}, Tags: []domain.Tag{{Name: "Go", Slug: "go"}},
	}
	require.NoError(t, repo.Save(ctx, &first))
	require.NoError(t, repo.Save(ctx, &second))

	authors, err := repo.Authors(ctx, "renamed", domain.ScopeAll)
	require.NoError(t, err)
	require.Len(t, authors, 1)
	assert.Equal(t, "Ada Lovelace", authors[0].Name)
	assert.Equal(t, first.Authors[0].ID, authors[0].ID)
	assert.Equal(t, 2, authors[0].NumArticles)

	tags, err := repo.Tags(ctx, "renamed", domain.ScopeAll)
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, "Go", tags[0].Name)
}

func articleSlugs(articles []domain.Article) []string {
	var out []string
	for _, a := range articles {
		out = append(out, a.Slug)
	}
	return out
}

func authorSlugs(authors []domain.AuthorCount) []string {
	var out []string
	for _, a := range authors {
		out = append(out, a.Slug)
	}
	return out
}

func tagSlugs(tags []domain.TagCount) []string {
	var out []string
	for _, t := range tags {
		out = append(out, t.Slug)
	}
	return out
}

func slugsOfAuthors(authors []domain.Author) []string {
	out := make([]string, 0, len(authors))
	for _, a := range authors {
		out = append(out, a.Slug)
	}
	sort.Strings(out)
	return out
}

func slugsOfTags(tags []domain.Tag) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		out = append(out, t.Slug)
	}
	return out
}
