package db

import (
	"database/sql"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolProvider is implemented by clients that hand out a pgx pool.
// This allows both PostgresClient and SupabaseClient to back the postgres store.
type PoolProvider interface {
	Pool() *pgxpool.Pool
}

// SQLProvider is implemented by clients that hand out a database/sql handle.
type SQLProvider interface {
	DB() *sql.DB
}
