package memstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"newsblog/pkg/domain"
	"newsblog/pkg/newsblog"
	"newsblog/pkg/store/storetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Conformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) newsblog.Repository {
		return New()
	})
}

func TestStore_TagTiesKeepInsertionOrder(t *testing.T) {
	s := New()
	ctx := context.Background()
	for _, slug := range []string{"zeta", "alpha", "mid"} {
		a := domain.Article{
			Namespace:      "blog",
			Slug:           slug,
			PublishingDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			Tags:           []domain.Tag{{Name: slug, Slug: slug}},
		}
		require.NoError(t, s.Save(ctx, &a))
	}

	tags, err := s.Tags(ctx, "blog", domain.ScopeAll)
	require.NoError(t, err)
	require.Len(t, tags, 3)
	assert.Equal(t, "zeta", tags[0].Slug)
	assert.Equal(t, "alpha", tags[1].Slug)
	assert.Equal(t, "mid", tags[2].Slug)
}

func TestStore_ReturnedArticlesAreCopies(t *testing.T) {
	s := New()
	ctx := context.Background()
	a := domain.Article{Namespace: "blog", Slug: "one", Tags: []domain.Tag{{Name: "Go", Slug: "go"}}}
	require.NoError(t, s.Save(ctx, &a))

	got, err := s.Articles(ctx, domain.ArticleFilter{Namespace: "blog"})
	require.NoError(t, err)
	got[0].Tags[0].Slug = "mutated"

	again, err := s.Articles(ctx, domain.ArticleFilter{Namespace: "blog"})
	require.NoError(t, err)
	assert.Equal(t, "go", again[0].Tags[0].Slug)
}

func TestStore_CancelledContext(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Months(ctx, "blog", domain.ScopeAll)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStore_ConcurrentSaveAndRead(t *testing.T) {
	s := New()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			a := domain.Article{
				Namespace:      "blog",
				PublishingDate: time.Date(2024, time.Month(i%12+1), 10, 0, 0, 0, 0, time.UTC),
				Authors:        []domain.Author{{Name: "Ann", Slug: "ann"}},
			}
			assert.NoError(t, s.Save(ctx, &a))
		}(i)
		go func() {
			defer wg.Done()
			_, err := s.Months(ctx, "blog", domain.ScopeAll)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, s.Len())
	authors, err := s.Authors(ctx, "blog", domain.ScopeAll)
	require.NoError(t, err)
	require.Len(t, authors, 1)
	assert.Equal(t, 20, authors[0].NumArticles)
}
