package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteConfig holds configuration for a local SQLite database.
type SQLiteConfig struct {
	// Path is a file path or ":memory:".
	Path string
}

// SQLiteClient wraps a database/sql handle opened with the pure-Go sqlite driver.
type SQLiteClient struct {
	db  *sql.DB
	cfg SQLiteConfig
}

// NewSQLiteClient constructs a SQLite client. Call Connect before use.
func NewSQLiteClient(cfg SQLiteConfig) *SQLiteClient {
	return &SQLiteClient{cfg: cfg}
}

// Connect opens the database and enables foreign keys.
func (c *SQLiteClient) Connect(ctx context.Context) error {
	if c.cfg.Path == "" {
		return fmt.Errorf("sqlite path is required")
	}

	db, err := sql.Open("sqlite", c.cfg.Path)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}

	// One connection: ":memory:" databases are per connection and the
	// foreign_keys pragma is per connection too.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return fmt.Errorf("enable sqlite foreign keys: %w", err)
	}

	c.db = db
	return nil
}

// Close closes the handle.
func (c *SQLiteClient) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// DB exposes the handle.
func (c *SQLiteClient) DB() *sql.DB {
	return c.db
}
