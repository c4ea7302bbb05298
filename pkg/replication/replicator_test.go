package replication

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"newsblog/pkg/domain"
	"newsblog/pkg/newsblog"
	"newsblog/pkg/store/memstore"
	"newsblog/pkg/store/storetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReplicator_RequiresRepositories(t *testing.T) {
	_, err := NewReplicator(Config{Target: memstore.New()})
	assert.Error(t, err)
	_, err = NewReplicator(Config{Source: memstore.New()})
	assert.Error(t, err)
}

func TestReplicateNamespace_CopiesAndPreservesCounts(t *testing.T) {
	ctx := context.Background()
	source := memstore.New()
	storetest.Seed(t, source)
	target := memstore.New()

	r, err := NewReplicator(Config{Source: source, Target: target, BatchSize: 2, Workers: 3})
	require.NoError(t, err)

	stats, err := r.ReplicateNamespace(ctx, "blog-a")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Processed)
	assert.Equal(t, 3, stats.Copied)
	assert.Zero(t, stats.Skipped)

	for _, scope := range []domain.Scope{domain.ScopeAll, domain.ScopePublished} {
		wantMonths, err := source.Months(ctx, "blog-a", scope)
		require.NoError(t, err)
		gotMonths, err := target.Months(ctx, "blog-a", scope)
		require.NoError(t, err)
		assert.Equal(t, wantMonths, gotMonths)

		wantAuthors, err := source.Authors(ctx, "blog-a", scope)
		require.NoError(t, err)
		gotAuthors, err := target.Authors(ctx, "blog-a", scope)
		require.NoError(t, err)
		assert.Equal(t, authorCounts(wantAuthors), authorCounts(gotAuthors))
	}

	other, err := target.Months(ctx, "blog-b", domain.ScopeAll)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestReplicateNamespace_SkipsExistingURLs(t *testing.T) {
	ctx := context.Background()
	source := memstore.New()
	storetest.Seed(t, source)
	target := memstore.New()

	r, err := NewReplicator(Config{Source: source, Target: target})
	require.NoError(t, err)

	_, err = r.ReplicateNamespace(ctx, "blog-a")
	require.NoError(t, err)

	stats, err := r.ReplicateNamespace(ctx, "blog-a")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Processed)
	assert.Zero(t, stats.Copied)
	assert.Equal(t, 3, stats.Skipped)
	assert.Equal(t, 3, target.Len())
}

func TestReplicateNamespace_IntoOtherNamespaceOfSameStore(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	storetest.Seed(t, store)
	before := store.Len()

	r, err := NewReplicator(Config{Source: store, Target: store, TargetNamespace: "blog-a-copy"})
	require.NoError(t, err)

	stats, err := r.ReplicateNamespace(ctx, "blog-a")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Copied)
	assert.Equal(t, before+3, store.Len())

	orig, err := store.Months(ctx, "blog-a", domain.ScopeAll)
	require.NoError(t, err)
	copied, err := store.Months(ctx, "blog-a-copy", domain.ScopeAll)
	require.NoError(t, err)
	assert.Equal(t, orig, copied)
}

func TestReplicateNamespace_PagesThroughLargeSource(t *testing.T) {
	ctx := context.Background()
	source := memstore.New()
	for i := 0; i < 25; i++ {
		a := domain.Article{
			Namespace:      "big",
			URL:            fmt.Sprintf("https://example.com/%d", i),
			PublishingDate: time.Date(2024, 1, 1, 0, i, 0, 0, time.UTC),
		}
		require.NoError(t, source.Save(ctx, &a))
	}

	target := memstore.New()
	r, err := NewReplicator(Config{Source: source, Target: target, BatchSize: 10})
	require.NoError(t, err)

	stats, err := r.ReplicateNamespace(ctx, "big")
	require.NoError(t, err)
	assert.Equal(t, 25, stats.Copied)
	assert.Equal(t, 25, target.Len())
}

type failingTarget struct {
	newsblog.Repository
}

func (failingTarget) ExistingURLs(context.Context, string) (map[string]bool, error) {
	return map[string]bool{}, nil
}

func (failingTarget) Save(context.Context, *domain.Article) error {
	return errors.New("disk full")
}

func TestReplicateNamespace_FailsFast(t *testing.T) {
	source := memstore.New()
	storetest.Seed(t, source)

	r, err := NewReplicator(Config{Source: source, Target: failingTarget{}})
	require.NoError(t, err)

	_, err = r.ReplicateNamespace(context.Background(), "blog-a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

type countingFailTarget struct {
	newsblog.Repository
	saves atomic.Int64
}

func (*countingFailTarget) ExistingURLs(context.Context, string) (map[string]bool, error) {
	return map[string]bool{}, nil
}

func (t *countingFailTarget) Save(context.Context, *domain.Article) error {
	t.saves.Add(1)
	return errors.New("disk full")
}

func TestReplicateNamespace_StopsRemainingBatchesAfterFailure(t *testing.T) {
	source := memstore.New()
	storetest.Seed(t, source)
	target := &countingFailTarget{}

	r, err := NewReplicator(Config{Source: source, Target: target, BatchSize: 1, Workers: 1})
	require.NoError(t, err)

	stats, err := r.ReplicateNamespace(context.Background(), "blog-a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch [0:1]")
	assert.Equal(t, int64(1), target.saves.Load())
	assert.Zero(t, stats.Copied)
}

func TestFilterNewArticlesByURL(t *testing.T) {
	in := []domain.Article{{ID: "1", URL: "u1"}, {ID: "2", URL: ""}, {ID: "3", URL: "u3"}}
	out := filterNewArticlesByURL(in, map[string]bool{"u1": true})
	require.Len(t, out, 2)
	assert.Equal(t, "2", out[0].ID)
	assert.Equal(t, "3", out[1].ID)
}

func TestCalculateBatchEnd(t *testing.T) {
	assert.Equal(t, 10, calculateBatchEnd(0, 10, 25))
	assert.Equal(t, 25, calculateBatchEnd(20, 10, 25))
}

func authorCounts(authors []domain.AuthorCount) map[string]int {
	out := make(map[string]int, len(authors))
	for _, a := range authors {
		out[a.Slug] = a.NumArticles
	}
	return out
}
