package mongostore

import (
	"regexp"

	"newsblog/pkg/domain"

	"go.mongodb.org/mongo-driver/bson"
)

func scopeMatch(namespace string, scope domain.Scope) bson.D {
	match := bson.D{{Key: "namespace", Value: namespace}}
	if scope == domain.ScopePublished {
		match = append(match, bson.E{Key: "is_published", Value: true})
	}
	return match
}

// monthsPipeline groups by the UTC year and month of publishing_date.
func monthsPipeline(namespace string, scope domain.Scope) bson.A {
	return bson.A{
		bson.D{{Key: "$match", Value: scopeMatch(namespace, scope)}},
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{
				{Key: "year", Value: bson.D{{Key: "$year", Value: "$publishing_date"}}},
				{Key: "month", Value: bson.D{{Key: "$month", Value: "$publishing_date"}}},
			}},
			{Key: "num_articles", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		bson.D{{Key: "$sort", Value: bson.D{
			{Key: "_id.year", Value: -1},
			{Key: "_id.month", Value: -1},
		}}},
	}
}

// countPipeline unwinds an embedded array field ("authors" or "tags") and counts
// distinct articles per slug. IDs and names come from the canonical documents in
// the from collection; the embedded copies are only a fallback.
func countPipeline(namespace string, scope domain.Scope, field, from string) bson.A {
	path := "$" + field
	return bson.A{
		bson.D{{Key: "$match", Value: scopeMatch(namespace, scope)}},
		bson.D{{Key: "$unwind", Value: path}},
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: path + ".slug"},
			{Key: "id", Value: bson.D{{Key: "$first", Value: path + ".id"}}},
			{Key: "name", Value: bson.D{{Key: "$first", Value: path + ".name"}}},
			{Key: "articles", Value: bson.D{{Key: "$addToSet", Value: "$_id"}}},
		}}},
		bson.D{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: from},
			{Key: "localField", Value: "_id"},
			{Key: "foreignField", Value: "slug"},
			{Key: "as", Value: "canonical"},
		}}},
		bson.D{{Key: "$unwind", Value: bson.D{
			{Key: "path", Value: "$canonical"},
			{Key: "preserveNullAndEmptyArrays", Value: true},
		}}},
		bson.D{{Key: "$project", Value: bson.D{
			{Key: "id", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$canonical._id", "$id"}}}},
			{Key: "name", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$canonical.name", "$name"}}}},
			{Key: "num_articles", Value: bson.D{{Key: "$size", Value: "$articles"}}},
		}}},
		bson.D{{Key: "$sort", Value: bson.D{
			{Key: "num_articles", Value: -1},
			{Key: "name", Value: 1},
		}}},
	}
}

// articlesFilter translates an ArticleFilter into a find filter. Paging and
// ordering are applied through find options.
func articlesFilter(filter domain.ArticleFilter) bson.D {
	q := bson.D{}
	if filter.ID != "" {
		q = append(q, bson.E{Key: "_id", Value: filter.ID})
	}
	if filter.Namespace != "" {
		q = append(q, bson.E{Key: "namespace", Value: filter.Namespace})
	}
	if filter.PublishedOnly {
		q = append(q, bson.E{Key: "is_published", Value: true})
	}
	if filter.AuthorSlug != "" {
		q = append(q, bson.E{Key: "authors.slug", Value: filter.AuthorSlug})
	}
	if filter.TagSlug != "" {
		q = append(q, bson.E{Key: "tags.slug", Value: filter.TagSlug})
	}

	dates := bson.D{}
	if !filter.Since.IsZero() {
		dates = append(dates, bson.E{Key: "$gte", Value: filter.Since.UTC()})
	}
	if !filter.Until.IsZero() {
		dates = append(dates, bson.E{Key: "$lt", Value: filter.Until.UTC()})
	}
	if !filter.After.IsZero() {
		dates = append(dates, bson.E{Key: "$gt", Value: filter.After.UTC()})
	}
	if len(dates) > 0 {
		q = append(q, bson.E{Key: "publishing_date", Value: dates})
	}

	if filter.Query != "" {
		re := bson.D{
			{Key: "$regex", Value: regexp.QuoteMeta(filter.Query)},
			{Key: "$options", Value: "i"},
		}
		q = append(q, bson.E{Key: "$or", Value: bson.A{
			bson.D{{Key: "title", Value: re}},
			bson.D{{Key: "lead_in", Value: re}},
		}})
	}
	return q
}

func articlesSort(filter domain.ArticleFilter) bson.D {
	dir := -1
	if filter.OldestFirst {
		dir = 1
	}
	return bson.D{
		{Key: "publishing_date", Value: dir},
		{Key: "_id", Value: 1},
	}
}
