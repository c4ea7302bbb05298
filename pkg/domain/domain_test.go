package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScope(t *testing.T) {
	tests := []struct {
		in      string
		want    Scope
		wantErr bool
	}{
		{"", ScopeAll, false},
		{"all", ScopeAll, false},
		{" Published ", ScopePublished, false},
		{"drafts", ScopeAll, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseScope(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, mustParse(t, got.String()))
		})
	}
}

func mustParse(t *testing.T, s string) Scope {
	t.Helper()
	scope, err := ParseScope(s)
	require.NoError(t, err)
	return scope
}

func TestFlagColumn(t *testing.T) {
	assert.Equal(t, "is_published", FlagPublished.Column())
	assert.Equal(t, "is_featured", FlagFeatured.Column())
}

func TestNewMonthBucket(t *testing.T) {
	b := NewMonthBucket(2023, time.December, 4)
	assert.Equal(t, time.Date(2023, time.December, 3, 0, 0, 0, 0, time.UTC), b.Date)
	assert.Equal(t, 2023, b.Year())
	assert.Equal(t, time.December, b.Month())
	assert.Equal(t, 4, b.NumArticles)

	// The month survives a shift to any real-world offset.
	for _, offset := range []int{-12, 14} {
		zone := time.FixedZone("z", offset*3600)
		assert.Equal(t, time.December, b.Date.In(zone).Month())
	}
}

func TestArticleFilter_Matches(t *testing.T) {
	a := &Article{
		ID:             "a1",
		Namespace:      "blog",
		Title:          "Connection Pools",
		LeadIn:         "Sizing pgx pools",
		PublishingDate: time.Date(2024, time.March, 20, 14, 30, 0, 0, time.UTC),
		IsPublished:    true,
		Authors:        []Author{{Slug: "xavier"}},
		Tags:           []Tag{{Slug: "go"}},
	}
	at := a.PublishingDate

	tests := []struct {
		name   string
		filter ArticleFilter
		want   bool
	}{
		{"zero filter", ArticleFilter{}, true},
		{"id", ArticleFilter{ID: "a1"}, true},
		{"other id", ArticleFilter{ID: "a2"}, false},
		{"namespace", ArticleFilter{Namespace: "blog"}, true},
		{"other namespace", ArticleFilter{Namespace: "other"}, false},
		{"published only", ArticleFilter{PublishedOnly: true}, true},
		{"author", ArticleFilter{AuthorSlug: "xavier"}, true},
		{"other author", ArticleFilter{AuthorSlug: "yvonne"}, false},
		{"tag", ArticleFilter{TagSlug: "go"}, true},
		{"other tag", ArticleFilter{TagSlug: "db"}, false},
		{"since inclusive", ArticleFilter{Since: at}, true},
		{"since later", ArticleFilter{Since: at.Add(time.Second)}, false},
		{"until exclusive", ArticleFilter{Until: at}, false},
		{"until later", ArticleFilter{Until: at.Add(time.Second)}, true},
		{"after exclusive", ArticleFilter{After: at}, false},
		{"after earlier", ArticleFilter{After: at.Add(-time.Second)}, true},
		{"query title", ArticleFilter{Query: "connection"}, true},
		{"query lead-in", ArticleFilter{Query: "PGX"}, true},
		{"query miss", ArticleFilter{Query: "kafka"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Matches(a))
		})
	}

	a.IsPublished = false
	assert.False(t, ArticleFilter{PublishedOnly: true}.Matches(a))
}
