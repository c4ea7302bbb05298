// Package mongostore implements the article repository on MongoDB.
//
// Articles embed their authors and tags. The people and tags collections hold
// one canonical document per slug so that IDs stay stable across articles.
package mongostore

import (
	"context"
	"fmt"
	"time"

	"newsblog/pkg/domain"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	articlesCollection = "articles"
	peopleCollection   = "people"
	tagsCollection     = "tags"
)

// Store is a MongoDB-backed article repository.
type Store struct {
	articles *mongo.Collection
	people   *mongo.Collection
	tags     *mongo.Collection
}

// New uses the collections of database.
func New(database *mongo.Database) (*Store, error) {
	if database == nil {
		return nil, fmt.Errorf("mongo database not connected")
	}
	return &Store{
		articles: database.Collection(articlesCollection),
		people:   database.Collection(peopleCollection),
		tags:     database.Collection(tagsCollection),
	}, nil
}

// EnsureIndexes creates the lookup and uniqueness indexes.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.articles.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "namespace", Value: 1}, {Key: "publishing_date", Value: -1}}},
		{Keys: bson.D{{Key: "namespace", Value: 1}, {Key: "url", Value: 1}}},
		{Keys: bson.D{{Key: "authors.slug", Value: 1}}},
		{Keys: bson.D{{Key: "tags.slug", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create article indexes: %w", err)
	}

	unique := mongo.IndexModel{
		Keys:    bson.D{{Key: "slug", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := s.people.Indexes().CreateOne(ctx, unique); err != nil {
		return fmt.Errorf("create people index: %w", err)
	}
	if _, err := s.tags.Indexes().CreateOne(ctx, unique); err != nil {
		return fmt.Errorf("create tags index: %w", err)
	}
	return nil
}

type slugDoc struct {
	ID   string `bson:"_id"`
	Name string `bson:"name"`
	Slug string `bson:"slug"`
}

// upsertBySlug returns the canonical document for slug, creating it with id when absent.
func upsertBySlug(ctx context.Context, coll *mongo.Collection, id, name, slug string) (slugDoc, error) {
	if id == "" {
		id = uuid.NewString()
	}
	update := bson.D{
		{Key: "$set", Value: bson.D{{Key: "name", Value: name}}},
		{Key: "$setOnInsert", Value: bson.D{{Key: "_id", Value: id}}},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var doc slugDoc
	err := coll.FindOneAndUpdate(ctx, bson.D{{Key: "slug", Value: slug}}, update, opts).Decode(&doc)
	return doc, err
}

// Save replaces the article document, resolving authors and tags to their canonical IDs first.
func (s *Store) Save(ctx context.Context, article *domain.Article) error {
	if article.ID == "" {
		article.ID = uuid.NewString()
	}

	for i := range article.Authors {
		au := &article.Authors[i]
		doc, err := upsertBySlug(ctx, s.people, au.ID, au.Name, au.Slug)
		if err != nil {
			return fmt.Errorf("upsert person slug=%q: %w", au.Slug, err)
		}
		au.ID = doc.ID
	}
	for i := range article.Tags {
		t := &article.Tags[i]
		doc, err := upsertBySlug(ctx, s.tags, t.ID, t.Name, t.Slug)
		if err != nil {
			return fmt.Errorf("upsert tag slug=%q: %w", t.Slug, err)
		}
		t.ID = doc.ID
	}

	doc := *article
	doc.PublishingDate = article.PublishingDate.UTC()
	_, err := s.articles.ReplaceOne(ctx,
		bson.D{{Key: "_id", Value: article.ID}},
		doc,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("replace article id=%q: %w", article.ID, err)
	}
	return nil
}

// ExistingURLs returns the source URLs already stored in namespace.
func (s *Store) ExistingURLs(ctx context.Context, namespace string) (map[string]bool, error) {
	filter := bson.D{
		{Key: "namespace", Value: namespace},
		{Key: "url", Value: bson.D{{Key: "$exists", Value: true}, {Key: "$ne", Value: ""}}},
	}
	opts := options.Find().SetProjection(bson.D{{Key: "url", Value: 1}})

	cursor, err := s.articles.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find urls: %w", err)
	}
	defer cursor.Close(ctx)

	set := make(map[string]bool)
	for cursor.Next(ctx) {
		var doc struct {
			URL string `bson:"url"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode url: %w", err)
		}
		set[doc.URL] = true
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return set, nil
}

// Articles lists articles matching filter.
func (s *Store) Articles(ctx context.Context, filter domain.ArticleFilter) ([]domain.Article, error) {
	opts := options.Find().SetSort(articlesSort(filter))
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}
	if filter.Offset > 0 {
		opts.SetSkip(int64(filter.Offset))
	}

	cursor, err := s.articles.Find(ctx, articlesFilter(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("find articles: %w", err)
	}

	articles := make([]domain.Article, 0)
	if err := cursor.All(ctx, &articles); err != nil {
		return nil, fmt.Errorf("decode articles: %w", err)
	}
	for i := range articles {
		articles[i].PublishingDate = articles[i].PublishingDate.UTC()
	}
	return articles, nil
}

// Months groups the namespace's articles by calendar month of their UTC publishing date.
func (s *Store) Months(ctx context.Context, namespace string, scope domain.Scope) ([]domain.MonthBucket, error) {
	cursor, err := s.articles.Aggregate(ctx, monthsPipeline(namespace, scope))
	if err != nil {
		return nil, fmt.Errorf("aggregate months: %w", err)
	}
	defer cursor.Close(ctx)

	months := make([]domain.MonthBucket, 0)
	for cursor.Next(ctx) {
		var row struct {
			ID struct {
				Year  int `bson:"year"`
				Month int `bson:"month"`
			} `bson:"_id"`
			NumArticles int `bson:"num_articles"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, fmt.Errorf("decode month: %w", err)
		}
		months = append(months, domain.NewMonthBucket(row.ID.Year, time.Month(row.ID.Month), row.NumArticles))
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return months, nil
}

type countRow struct {
	Slug        string `bson:"_id"`
	ID          string `bson:"id"`
	Name        string `bson:"name"`
	NumArticles int    `bson:"num_articles"`
}

func (s *Store) counts(ctx context.Context, namespace string, scope domain.Scope, field, from string) ([]countRow, error) {
	cursor, err := s.articles.Aggregate(ctx, countPipeline(namespace, scope, field, from))
	if err != nil {
		return nil, fmt.Errorf("aggregate %s: %w", field, err)
	}
	var rows []countRow
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode %s: %w", field, err)
	}
	return rows, nil
}

// Authors counts distinct articles per person in namespace.
func (s *Store) Authors(ctx context.Context, namespace string, scope domain.Scope) ([]domain.AuthorCount, error) {
	rows, err := s.counts(ctx, namespace, scope, "authors", peopleCollection)
	if err != nil {
		return nil, err
	}
	authors := make([]domain.AuthorCount, 0, len(rows))
	for _, r := range rows {
		authors = append(authors, domain.AuthorCount{
			Author:      domain.Author{ID: r.ID, Name: r.Name, Slug: r.Slug},
			NumArticles: r.NumArticles,
		})
	}
	return authors, nil
}

// Tags counts articles per tag in namespace. An empty namespace short-circuits.
func (s *Store) Tags(ctx context.Context, namespace string, scope domain.Scope) ([]domain.TagCount, error) {
	total, err := s.articles.CountDocuments(ctx, scopeMatch(namespace, scope))
	if err != nil {
		return nil, fmt.Errorf("count articles: %w", err)
	}
	if total == 0 {
		return []domain.TagCount{}, nil
	}

	rows, err := s.counts(ctx, namespace, scope, "tags", tagsCollection)
	if err != nil {
		return nil, err
	}
	tags := make([]domain.TagCount, 0, len(rows))
	for _, r := range rows {
		tags = append(tags, domain.TagCount{
			Tag:         domain.Tag{ID: r.ID, Name: r.Name, Slug: r.Slug},
			NumArticles: r.NumArticles,
		})
	}
	return tags, nil
}

// SetFlag updates flag on the given articles and returns how many matched.
func (s *Store) SetFlag(ctx context.Context, ids []string, flag domain.Flag, value bool) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := s.articles.UpdateMany(ctx,
		bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}}},
		bson.D{{Key: "$set", Value: bson.D{{Key: flag.Column(), Value: value}}}},
	)
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", flag.Column(), err)
	}
	return res.MatchedCount, nil
}
