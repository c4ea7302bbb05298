package sqlitestore

import (
	"context"
	"fmt"
)

const ddl = `
CREATE TABLE IF NOT EXISTS articles (
  id TEXT PRIMARY KEY,
  namespace TEXT NOT NULL,
  title TEXT NOT NULL DEFAULT '',
  slug TEXT NOT NULL DEFAULT '',
  lead_in TEXT NOT NULL DEFAULT '',
  url TEXT NOT NULL DEFAULT '',
  publishing_date TEXT NOT NULL,
  is_published INTEGER NOT NULL DEFAULT 0,
  is_featured INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_articles_namespace_date ON articles(namespace, publishing_date);

CREATE TABLE IF NOT EXISTS people (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL DEFAULT '',
  slug TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS article_authors (
  article_id TEXT NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
  person_id TEXT NOT NULL REFERENCES people(id) ON DELETE CASCADE,
  position INTEGER NOT NULL DEFAULT 0,
  PRIMARY KEY (article_id, person_id)
);

CREATE TABLE IF NOT EXISTS tags (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL DEFAULT '',
  slug TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS tagged_items (
  tag_id TEXT NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
  article_id TEXT NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
  position INTEGER NOT NULL DEFAULT 0,
  PRIMARY KEY (tag_id, article_id)
);
CREATE INDEX IF NOT EXISTS idx_tagged_items_article ON tagged_items(article_id);
`

// EnsureSchema creates the tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create newsblog schema: %w", err)
	}
	return nil
}
