// Package storage opens the local SQLite database and applies the embedded
// schema migrations. The caller registers a database/sql driver named
// "sqlite" (modernc.org/sqlite) before calling Open.
package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/movesync/internal/common"
	"github.com/dmitrijs2005/movesync/internal/storage/migrations"
	"github.com/pressly/goose/v3"
)

// Open opens (creating if necessary) the local database at dsn and runs
// pending migrations. A failure here is fatal for the whole sync engine and
// is reported as common.ErrStoreUnavailable.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}

	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: migrations: %v", common.ErrStoreUnavailable, err)
	}

	return db, nil
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}

	return goose.UpContext(ctx, db, ".")
}
