package pgx

import (
	"context"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
	Begin(ctx context.Context) (pgxv5.Tx, error)
}

// DBStorage implements the store.Storage interface on PostgreSQL. Facet
// payloads, facet statuses, issues, and character graphs live in JSONB
// columns; everything the API filters or joins on is a plain column.
type DBStorage struct {
	conn pgxIConn
}

// NewDBStorage creates a DBStorage using an existing connection or
// pool.
func NewDBStorage(conn pgxIConn) *DBStorage {
	return &DBStorage{conn: conn}
}
