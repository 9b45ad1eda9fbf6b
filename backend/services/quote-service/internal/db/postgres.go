package db

import (
	"context"
	"database/sql"

	libdb "sunquote/backend/libs/db"
)

// NewPostgres returns shared DB connection.
func NewPostgres(ctx context.Context, dsn string, opts libdb.PoolOptions) (*sql.DB, error) {
	return libdb.NewPostgresDB(ctx, dsn, opts)
}
