package mongostore

import (
	"context"
	"os"
	"testing"
	"time"

	"newsblog/pkg/db"
	"newsblog/pkg/domain"
	"newsblog/pkg/newsblog"
	"newsblog/pkg/store/storetest"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestNew_NilDatabase(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
}

func TestMonthsPipeline(t *testing.T) {
	p := monthsPipeline("blog-a", domain.ScopePublished)
	require.Len(t, p, 3)

	match := p[0].(bson.D)
	assert.Equal(t, "$match", match[0].Key)
	assert.Equal(t, bson.D{
		{Key: "namespace", Value: "blog-a"},
		{Key: "is_published", Value: true},
	}, match[0].Value)

	group := p[1].(bson.D)[0].Value.(bson.D)
	assert.Equal(t, "_id", group[0].Key)
	assert.Equal(t, bson.D{
		{Key: "year", Value: bson.D{{Key: "$year", Value: "$publishing_date"}}},
		{Key: "month", Value: bson.D{{Key: "$month", Value: "$publishing_date"}}},
	}, group[0].Value)

	sort := p[2].(bson.D)[0].Value.(bson.D)
	assert.Equal(t, bson.D{{Key: "_id.year", Value: -1}, {Key: "_id.month", Value: -1}}, sort)
}

func TestMonthsPipeline_AllScopeMatchesNamespaceOnly(t *testing.T) {
	p := monthsPipeline("blog-a", domain.ScopeAll)
	match := p[0].(bson.D)[0].Value
	assert.Equal(t, bson.D{{Key: "namespace", Value: "blog-a"}}, match)
}

func TestCountPipeline(t *testing.T) {
	p := countPipeline("blog-a", domain.ScopeAll, "tags", tagsCollection)
	require.Len(t, p, 7)

	assert.Equal(t, bson.D{{Key: "$unwind", Value: "$tags"}}, p[1])

	group := p[2].(bson.D)[0].Value.(bson.D)
	assert.Equal(t, bson.E{Key: "_id", Value: "$tags.slug"}, group[0])
	assert.Equal(t, bson.E{Key: "articles", Value: bson.D{{Key: "$addToSet", Value: "$_id"}}}, group[3])
}

func TestCountPipeline_NamesComeFromCanonicalDocuments(t *testing.T) {
	p := countPipeline("blog-a", domain.ScopePublished, "authors", peopleCollection)

	assert.Equal(t, bson.D{{Key: "$lookup", Value: bson.D{
		{Key: "from", Value: "people"},
		{Key: "localField", Value: "_id"},
		{Key: "foreignField", Value: "slug"},
		{Key: "as", Value: "canonical"},
	}}}, p[3])

	project := p[5].(bson.D)[0].Value.(bson.D)
	assert.Equal(t, bson.E{Key: "id", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$canonical._id", "$id"}}}}, project[0])
	assert.Equal(t, bson.E{Key: "name", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$canonical.name", "$name"}}}}, project[1])

	// Sorting happens after the canonical name is projected
	assert.Equal(t, "$sort", p[6].(bson.D)[0].Key)
}

func TestArticlesFilter(t *testing.T) {
	since := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	until := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

	got := articlesFilter(domain.ArticleFilter{
		Namespace:     "blog-a",
		PublishedOnly: true,
		TagSlug:       "go",
		Since:         since,
		Until:         until,
		Query:         "a.b",
	})

	want := bson.D{
		{Key: "namespace", Value: "blog-a"},
		{Key: "is_published", Value: true},
		{Key: "tags.slug", Value: "go"},
		{Key: "publishing_date", Value: bson.D{{Key: "$gte", Value: since}, {Key: "$lt", Value: until}}},
		{Key: "$or", Value: bson.A{
			bson.D{{Key: "title", Value: bson.D{{Key: "$regex", Value: `a\.b`}, {Key: "$options", Value: "i"}}}},
			bson.D{{Key: "lead_in", Value: bson.D{{Key: "$regex", Value: `a\.b`}, {Key: "$options", Value: "i"}}}},
		}},
	}
	assert.Equal(t, want, got)
}

func TestArticlesFilter_Empty(t *testing.T) {
	assert.Empty(t, articlesFilter(domain.ArticleFilter{}))
	assert.Equal(t,
		bson.D{{Key: "_id", Value: "a1"}, {Key: "namespace", Value: "blog-a"}},
		articlesFilter(domain.ArticleFilter{ID: "a1", Namespace: "blog-a"}))
}

func TestArticlesSort(t *testing.T) {
	assert.Equal(t, bson.D{{Key: "publishing_date", Value: -1}, {Key: "_id", Value: 1}}, articlesSort(domain.ArticleFilter{}))
	assert.Equal(t, bson.D{{Key: "publishing_date", Value: 1}, {Key: "_id", Value: 1}}, articlesSort(domain.ArticleFilter{OldestFirst: true}))
}

// Integration test. Requires a running MongoDB reachable through NEWSBLOG_MONGO_URI.
func TestStore_Conformance(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	uri := os.Getenv("NEWSBLOG_MONGO_URI")
	if uri == "" {
		t.Skip("NEWSBLOG_MONGO_URI not set")
	}

	storetest.Run(t, func(t *testing.T) newsblog.Repository {
		ctx := context.Background()
		client := db.NewClient(uri, "newsblog_test_"+uuid.NewString()[:8])
		require.NoError(t, client.Connect(ctx))
		t.Cleanup(func() {
			_ = client.Database().Drop(ctx)
			_ = client.Close(ctx)
		})

		s, err := New(client.Database())
		require.NoError(t, err)
		require.NoError(t, s.EnsureIndexes(ctx))
		return s
	})
}
