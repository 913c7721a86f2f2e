// Package repomanager opens the route database, applies the embedded goose
// migrations and vends repositories bound to a DBTX, so the same
// constructors serve plain connections and transactions.
package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/dmitrijs2005/santatracker/internal/dbx"
	"github.com/dmitrijs2005/santatracker/internal/migrations"
	"github.com/dmitrijs2005/santatracker/internal/repositories/destinations"
	"github.com/dmitrijs2005/santatracker/internal/repositories/metadata"
	"github.com/dmitrijs2005/santatracker/internal/repositories/streamentries"
)

type RepositoryManager interface {
	DB() *sql.DB
	Destinations(db dbx.DBTX) destinations.Repository
	StreamEntries(db dbx.DBTX) streamentries.Repository
	Metadata(db dbx.DBTX) metadata.Repository
	Close() error
}

// runMigrations is a seam for testing migrations.Up.
var runMigrations = migrations.Up

type Manager struct {
	db      *sql.DB
	dialect dbx.Dialect
}

// Open connects with the given database/sql driver ("sqlite" or "pgx") and
// migrates the schema. Sqlite is limited to a single connection so writers
// never see SQLITE_BUSY.
func Open(ctx context.Context, driver, dsn string) (*Manager, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if dbx.DialectFor(driver) == dbx.Question {
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	m := New(db, driver)
	if err := m.RunMigrations(ctx, driver); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}
	return m, nil
}

// New wraps an already opened database without migrating it.
func New(db *sql.DB, driver string) *Manager {
	return &Manager{db: db, dialect: dbx.DialectFor(driver)}
}

func (m *Manager) RunMigrations(ctx context.Context, driver string) error {
	return runMigrations(ctx, m.db, driver)
}

func (m *Manager) DB() *sql.DB { return m.db }

func (m *Manager) Destinations(db dbx.DBTX) destinations.Repository {
	return destinations.NewSQLRepository(db, m.dialect)
}

func (m *Manager) StreamEntries(db dbx.DBTX) streamentries.Repository {
	return streamentries.NewSQLRepository(db, m.dialect)
}

func (m *Manager) Metadata(db dbx.DBTX) metadata.Repository {
	return metadata.NewSQLRepository(db, m.dialect)
}

func (m *Manager) Close() error {
	return m.db.Close()
}
