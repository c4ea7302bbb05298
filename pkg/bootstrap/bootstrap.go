// Package bootstrap turns a loaded configuration into a ready repository and service.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"newsblog/pkg/config"
	"newsblog/pkg/db"
	"newsblog/pkg/domain"
	"newsblog/pkg/logging"
	"newsblog/pkg/newsblog"
	"newsblog/pkg/store/memstore"
	"newsblog/pkg/store/mongostore"
	"newsblog/pkg/store/pgstore"
	"newsblog/pkg/store/sqlitestore"
)

// CloseFunc releases the connections behind a repository.
type CloseFunc func() error

func noopClose() error { return nil }

// InitLogging configures the global logger from cfg.
func InitLogging(cfg config.LogConfig) {
	logging.Init(logging.Config{Level: cfg.Level, Format: cfg.Format})
}

// Open connects the configured backend and returns it as a Repository.
func Open(ctx context.Context, cfg config.StorageConfig) (newsblog.Repository, CloseFunc, error) {
	log := logging.With().Str("component", "bootstrap").Str("backend", cfg.Backend).Logger()

	switch cfg.Backend {
	case config.BackendMemory:
		log.Warn().Msg("using in-memory storage, nothing will persist")
		return memstore.New(), noopClose, nil

	case config.BackendSQLite:
		client := db.NewSQLiteClient(db.SQLiteConfig{Path: cfg.SQLite.Path})
		if err := client.Connect(ctx); err != nil {
			return nil, nil, fmt.Errorf("connect sqlite: %w", err)
		}
		store, err := sqlitestore.New(client.DB())
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		if cfg.EnsureSchema {
			if err := store.EnsureSchema(ctx); err != nil {
				_ = client.Close()
				return nil, nil, err
			}
		}
		log.Info().Str("path", cfg.SQLite.Path).Msg("sqlite storage ready")
		return store, client.Close, nil

	case config.BackendPostgres:
		client := db.NewPostgresClient(db.PostgresConfig{
			DSN:         cfg.Postgres.DSN,
			MaxConns:    cfg.Postgres.MaxConns,
			MinConns:    cfg.Postgres.MinConns,
			ConnMaxIdle: cfg.Postgres.ConnMaxIdle,
			ConnMaxLife: cfg.Postgres.ConnMaxLife,
		})
		if err := client.Connect(ctx); err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		return openPG(ctx, log, client, cfg.EnsureSchema)

	case config.BackendSupabase:
		client := db.NewSupabaseClient(db.SupabaseConfig{
			ConnectionString: cfg.Supabase.ConnectionString,
			SupabaseURL:      cfg.Supabase.URL,
			SupabaseKey:      cfg.Supabase.Key,
			Password:         cfg.Supabase.Password,
			MaxConns:         cfg.Supabase.MaxConns,
			ConnMaxIdle:      cfg.Supabase.ConnMaxIdle,
		})
		if err := client.Connect(ctx); err != nil {
			return nil, nil, fmt.Errorf("connect supabase: %w", err)
		}
		return openPG(ctx, log, client, cfg.EnsureSchema)

	case config.BackendMongo:
		client := db.NewClient(cfg.Mongo.URI, cfg.Mongo.Database)
		if err := client.Connect(ctx); err != nil {
			return nil, nil, fmt.Errorf("connect mongo: %w", err)
		}
		closeMongo := func() error { return client.Close(context.Background()) }
		store, err := mongostore.New(client.Database())
		if err != nil {
			_ = closeMongo()
			return nil, nil, err
		}
		if cfg.EnsureSchema {
			if err := store.EnsureIndexes(ctx); err != nil {
				_ = closeMongo()
				return nil, nil, err
			}
		}
		log.Info().Str("database", cfg.Mongo.Database).Msg("mongo storage ready")
		return store, closeMongo, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

type pgClient interface {
	db.PoolProvider
	Close() error
}

func openPG(ctx context.Context, log zerolog.Logger, client pgClient, ensureSchema bool) (newsblog.Repository, CloseFunc, error) {
	store, err := pgstore.New(client.Pool())
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	if ensureSchema {
		if err := store.EnsureSchema(ctx); err != nil {
			_ = client.Close()
			return nil, nil, err
		}
	}
	log.Info().Msg("postgres storage ready")
	return store, client.Close, nil
}

// NewService builds the query service with the blog settings of cfg.
func NewService(cfg config.BlogConfig, repo newsblog.Repository) (*newsblog.Service, error) {
	scope, err := domain.ParseScope(cfg.ArchiveScope)
	if err != nil {
		return nil, err
	}
	return newsblog.NewService(repo, newsblog.Options{
		Scope:    scope,
		PageSize: cfg.PaginateBy,
	})
}
