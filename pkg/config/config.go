// Package config loads newsblog configuration in layers: built-in defaults,
// then an optional YAML file, then NEWSBLOG_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths searched for a config file, in order.
var DefaultConfigPaths = []string{
	"newsblog.yaml",
	"newsblog.yml",
	"/etc/newsblog/config.yaml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// EnvPrefix prefixes every environment override. A double underscore separates
// nesting levels: NEWSBLOG_STORAGE__POSTGRES__DSN sets storage.postgres.dsn.
const EnvPrefix = "NEWSBLOG_"

// Storage backends.
const (
	BackendPostgres = "postgres"
	BackendSupabase = "supabase"
	BackendMongo    = "mongo"
	BackendSQLite   = "sqlite"
	BackendMemory   = "memory"
)

// Config is the complete configuration.
type Config struct {
	Storage StorageConfig `koanf:"storage"`
	Log     LogConfig     `koanf:"log"`
	Blog    BlogConfig    `koanf:"blog"`
	Import  ImportConfig  `koanf:"import"`
}

// StorageConfig selects and configures the repository backend.
type StorageConfig struct {
	Backend  string         `koanf:"backend" validate:"required,oneof=postgres supabase mongo sqlite memory"`
	Postgres PostgresConfig `koanf:"postgres"`
	Supabase SupabaseConfig `koanf:"supabase"`
	Mongo    MongoConfig    `koanf:"mongo"`
	SQLite   SQLiteConfig   `koanf:"sqlite"`

	// EnsureSchema creates tables or indexes on startup.
	EnsureSchema bool `koanf:"ensure_schema"`
}

// PostgresConfig configures a plain Postgres pool.
type PostgresConfig struct {
	DSN         string        `koanf:"dsn" validate:"required_if=Enabled true"`
	MaxConns    int32         `koanf:"max_conns" validate:"gte=0"`
	MinConns    int32         `koanf:"min_conns" validate:"gte=0"`
	ConnMaxIdle time.Duration `koanf:"conn_max_idle"`
	ConnMaxLife time.Duration `koanf:"conn_max_life"`

	// Enabled is derived from Storage.Backend.
	Enabled bool `koanf:"-"`
}

// SupabaseConfig configures a Supabase project.
type SupabaseConfig struct {
	ConnectionString string        `koanf:"connection_string"`
	URL              string        `koanf:"url" validate:"omitempty,url"`
	Key              string        `koanf:"key"`
	Password         string        `koanf:"password"`
	MaxConns         int32         `koanf:"max_conns" validate:"gte=0"`
	ConnMaxIdle      time.Duration `koanf:"conn_max_idle"`
}

// MongoConfig configures the Mongo client.
type MongoConfig struct {
	URI      string `koanf:"uri" validate:"required_if=Enabled true"`
	Database string `koanf:"database" validate:"required_if=Enabled true"`

	Enabled bool `koanf:"-"`
}

// SQLiteConfig configures the SQLite file.
type SQLiteConfig struct {
	Path string `koanf:"path" validate:"required_if=Enabled true"`

	Enabled bool `koanf:"-"`
}

// LogConfig configures the global logger.
type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn warning error fatal disabled off"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

// BlogConfig configures the query service.
type BlogConfig struct {
	// ArchiveScope is "all" (count unpublished articles too) or "published".
	ArchiveScope string `koanf:"archive_scope" validate:"oneof=all published"`
	PaginateBy   int    `koanf:"paginate_by" validate:"gte=1,lte=1000"`
}

// ImportConfig configures the feed importer.
type ImportConfig struct {
	FeedWorkers   int           `koanf:"feed_workers" validate:"gte=1,lte=64"`
	Workers       int           `koanf:"workers" validate:"gte=1,lte=256"`
	MaxEntries    int           `koanf:"max_entries" validate:"gte=0"`
	FetchFullText bool          `koanf:"fetch_full_text"`
	Publish       bool          `koanf:"publish"`
	LeadInLength  int           `koanf:"lead_in_length" validate:"gte=0"`
	ClientType    string        `koanf:"client_type" validate:"oneof=default browser cloudflare"`
	Timeout       time.Duration `koanf:"timeout" validate:"gte=0"`

	// LinkSelector picks article links on HTML index pages.
	LinkSelector string `koanf:"link_selector"`
}

func defaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Backend: BackendSQLite,
			SQLite:  SQLiteConfig{Path: "newsblog.db"},
			Postgres: PostgresConfig{
				MaxConns:    10,
				ConnMaxIdle: 5 * time.Minute,
				ConnMaxLife: time.Hour,
			},
			Supabase: SupabaseConfig{
				MaxConns:    5,
				ConnMaxIdle: 5 * time.Minute,
			},
			Mongo:        MongoConfig{Database: "newsblog"},
			EnsureSchema: true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Blog: BlogConfig{
			ArchiveScope: "all",
			PaginateBy:   10,
		},
		Import: ImportConfig{
			FeedWorkers:  2,
			Workers:      5,
			MaxEntries:   1000,
			LeadInLength: 300,
			ClientType:   "default",
			Timeout:      30 * time.Second,
		},
	}
}

// Load builds the configuration from defaults, the config file and the environment, then validates it.
func Load() (*Config, error) {
	return LoadFrom(findConfigFile())
}

// LoadFrom is Load with an explicit config file path; empty skips the file layer.
func LoadFrom(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// envTransformFunc maps NEWSBLOG_STORAGE__SQLITE__PATH to storage.sqlite.path.
func envTransformFunc(key string) string {
	key = strings.TrimPrefix(key, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(key), "__", ".")
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and the settings the chosen backend needs.
func (c *Config) Validate() error {
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	c.Storage.Postgres.Enabled = c.Storage.Backend == BackendPostgres
	c.Storage.Mongo.Enabled = c.Storage.Backend == BackendMongo
	c.Storage.SQLite.Enabled = c.Storage.Backend == BackendSQLite

	if err := validate.Struct(c); err != nil {
		return err
	}

	if c.Storage.Backend == BackendSupabase {
		s := c.Storage.Supabase
		if s.ConnectionString == "" && (s.URL == "" || s.Password == "") {
			return errors.New("supabase needs connection_string, or url and password")
		}
	}
	if c.Storage.Postgres.MinConns > c.Storage.Postgres.MaxConns && c.Storage.Postgres.MaxConns > 0 {
		return errors.New("storage.postgres.min_conns exceeds max_conns")
	}
	return nil
}
