package pgsql

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// BaseRepository holds the connection pool shared by the pgsql repositories.
// The ledger is append-only and every write here is a single statement, so
// no transaction helpers are needed.
type BaseRepository struct {
	Pool *pgxpool.Pool
}
