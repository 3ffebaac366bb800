package data

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/postgres/*.sql migrations/sqlite3/*.sql
var embedMigrations embed.FS

// Supported database/sql driver names. They double as goose dialects.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// Migrator applies the embedded schema migrations for one driver.
type Migrator struct {
	db     *sql.DB
	driver string
}

// NewMigrator returns a Migrator for db. A nil logger silences goose.
func NewMigrator(db *sql.DB, driver string, logger goose.Logger) (*Migrator, error) {
	if driver != DriverPostgres && driver != DriverSQLite {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	goose.SetBaseFS(embedMigrations)
	if logger == nil {
		logger = goose.NopLogger()
	}
	goose.SetLogger(logger)

	if err := goose.SetDialect(driver); err != nil {
		return nil, fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return &Migrator{db: db, driver: driver}, nil
}

func (m *Migrator) dir() string {
	return "migrations/" + m.driver
}

// Up applies all pending migrations.
func (m *Migrator) Up() error {
	if err := goose.Up(m.db, m.dir()); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Down rolls back the most recent migration.
func (m *Migrator) Down() error {
	if err := goose.Down(m.db, m.dir()); err != nil {
		return fmt.Errorf("failed to rollback migration: %w", err)
	}
	return nil
}

// Status prints the state of every migration through the goose logger.
func (m *Migrator) Status() error {
	if err := goose.Status(m.db, m.dir()); err != nil {
		return fmt.Errorf("failed to get migration status: %w", err)
	}
	return nil
}

// Version returns the current schema version.
func (m *Migrator) Version() (int64, error) {
	version, err := goose.GetDBVersion(m.db)
	if err != nil {
		return 0, fmt.Errorf("failed to get database version: %w", err)
	}
	return version, nil
}
