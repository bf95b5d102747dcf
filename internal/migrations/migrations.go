// Package migrations holds the Postgres schema.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

//go:embed sql/*.sql
var sqlFiles embed.FS

var Migrations = migrate.NewMigrations()

func init() {
	files, err := fs.Sub(sqlFiles, "sql")
	if err != nil {
		panic(err)
	}
	if err := Migrations.Discover(files); err != nil {
		panic(err)
	}
}

// Up applies every pending migration to the database at dsn.
func Up(ctx context.Context, dsn string) error {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, Migrations)
	if err := migrator.Init(ctx); err != nil {
		return fmt.Errorf("migrations: init: %w", err)
	}

	if err := migrator.Lock(ctx); err != nil {
		return fmt.Errorf("migrations: lock: %w", err)
	}
	defer func() {
		if err := migrator.Unlock(ctx); err != nil {
			slog.ErrorContext(ctx, "migrations: unlock failed", "error", err)
		}
	}()

	group, err := migrator.Migrate(ctx)
	if err != nil {
		return fmt.Errorf("migrations: migrate: %w", err)
	}

	if group.IsZero() {
		slog.InfoContext(ctx, "migrations: database is up to date")
		return nil
	}

	slog.InfoContext(ctx, "migrations: applied", "group", group.String())
	return nil
}
