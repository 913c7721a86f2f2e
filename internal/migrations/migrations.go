// Package migrations embeds the goose SQL migrations of the route store. The
// statements are written to run unchanged on sqlite and postgres.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed *.sql
var Migrations embed.FS

// GooseDialect maps a database/sql driver name to the goose dialect.
func GooseDialect(driver string) string {
	switch driver {
	case "pgx", "postgres":
		return "postgres"
	default:
		return "sqlite3"
	}
}

// Up applies all pending migrations to db.
func Up(ctx context.Context, db *sql.DB, driver string) error {
	goose.SetBaseFS(Migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect(GooseDialect(driver)); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}
