package domain

import (
	"fmt"
	"strings"
	"time"
)

// Scope selects which articles of a namespace the archive/author/tag counts consider.
type Scope int

const (
	// ScopeAll counts every article, published or not.
	ScopeAll Scope = iota
	// ScopePublished counts published articles only.
	ScopePublished
)

func (s Scope) String() string {
	switch s {
	case ScopePublished:
		return "published"
	default:
		return "all"
	}
}

// ParseScope parses "all" or "published".
func ParseScope(s string) (Scope, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return ScopeAll, nil
	case "published":
		return ScopePublished, nil
	default:
		return ScopeAll, fmt.Errorf("unknown scope %q", s)
	}
}

// Flag names a boolean article attribute that admins toggle in bulk.
type Flag int

const (
	FlagPublished Flag = iota
	FlagFeatured
)

// Column returns the storage column/field name of the flag.
func (f Flag) Column() string {
	if f == FlagFeatured {
		return "is_featured"
	}
	return "is_published"
}

// ArticleFilter narrows an article listing. Zero values disable a condition.
type ArticleFilter struct {
	// ID selects a single article.
	ID string

	// Namespace limits results to one blog instance; empty means every namespace.
	Namespace     string
	PublishedOnly bool

	AuthorSlug string
	TagSlug    string

	// Since is inclusive, Until and After are exclusive.
	Since time.Time
	Until time.Time
	After time.Time

	// Query matches title or lead-in, case-insensitively.
	Query string

	// OldestFirst reverses the default newest-first ordering.
	OldestFirst bool

	Limit  int
	Offset int
}

// Matches reports whether a satisfies every condition of f except paging.
func (f ArticleFilter) Matches(a *Article) bool {
	if f.ID != "" && a.ID != f.ID {
		return false
	}
	if f.Namespace != "" && a.Namespace != f.Namespace {
		return false
	}
	if f.PublishedOnly && !a.IsPublished {
		return false
	}
	if f.AuthorSlug != "" && !a.HasAuthor(f.AuthorSlug) {
		return false
	}
	if f.TagSlug != "" && !a.HasTag(f.TagSlug) {
		return false
	}
	if !f.Since.IsZero() && a.PublishingDate.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && !a.PublishingDate.Before(f.Until) {
		return false
	}
	if !f.After.IsZero() && !a.PublishingDate.After(f.After) {
		return false
	}
	if f.Query != "" {
		q := strings.ToLower(f.Query)
		if !strings.Contains(strings.ToLower(a.Title), q) && !strings.Contains(strings.ToLower(a.LeadIn), q) {
			return false
		}
	}
	return true
}
