package domain

import "time"

// Article represents a news blog article scoped to a namespace (one blog instance).
type Article struct {
	ID        string `bson:"_id" json:"id"`
	Namespace string `bson:"namespace" json:"namespace"`
	Title     string `bson:"title" json:"title"`
	Slug      string `bson:"slug" json:"slug"`
	LeadIn    string `bson:"lead_in" json:"lead_in,omitempty"`

	// URL is the source link the article was imported from, when known.
	URL string `bson:"url,omitempty" json:"url,omitempty"`

	PublishingDate time.Time `bson:"publishing_date" json:"publishing_date"`
	IsPublished    bool      `bson:"is_published" json:"is_published"`
	IsFeatured     bool      `bson:"is_featured" json:"is_featured"`

	Authors []Author `bson:"authors" json:"authors,omitempty"`
	Tags    []Tag    `bson:"tags" json:"tags,omitempty"`
}

// Author is a person credited on articles. Slug is unique.
type Author struct {
	ID   string `bson:"id" json:"id"`
	Name string `bson:"name" json:"name"`
	Slug string `bson:"slug" json:"slug"`
}

// Tag is a label attached to articles. Slug is unique.
type Tag struct {
	ID   string `bson:"id" json:"id"`
	Name string `bson:"name" json:"name"`
	Slug string `bson:"slug" json:"slug"`
}

// HasAuthor reports whether an author with the given slug is credited on the article.
func (a *Article) HasAuthor(slug string) bool {
	for _, au := range a.Authors {
		if au.Slug == slug {
			return true
		}
	}
	return false
}

// HasTag reports whether a tag with the given slug is attached to the article.
func (a *Article) HasTag(slug string) bool {
	for _, t := range a.Tags {
		if t.Slug == slug {
			return true
		}
	}
	return false
}
