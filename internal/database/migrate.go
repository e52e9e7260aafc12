package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib" // "pgx" driver for database/sql
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// migrationsTable keeps modgen's history apart from other schemas sharing
// the database.
const migrationsTable = "modgen_schema_migrations"

// Migrate brings allocator_state up to the newest embedded migration and
// returns the version it ends on. A dirty version is an error: a previous
// run failed halfway and needs manual repair.
func Migrate(databaseURL string, logger *zap.Logger) (uint, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return 0, fmt.Errorf("database: open for migrations: %w", err)
	}
	defer db.Close()

	m, err := newMigrator(db)
	if err != nil {
		return 0, err
	}

	before, _, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return 0, fmt.Errorf("database: read migration version: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("database: apply migrations: %w", err)
	}
	after, dirty, err := m.Version()
	if err != nil {
		return 0, fmt.Errorf("database: read migration version: %w", err)
	}
	if dirty {
		return after, fmt.Errorf("database: migration %d is dirty", after)
	}

	if after != before {
		logger.Info("allocator schema migrated", zap.Uint("from", before), zap.Uint("to", after))
	} else {
		logger.Debug("allocator schema up to date", zap.Uint("version", after))
	}
	return after, nil
}

func newMigrator(db *sql.DB) (*migrate.Migrate, error) {
	driver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: migrationsTable})
	if err != nil {
		return nil, fmt.Errorf("database: migration driver: %w", err)
	}
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("database: migration source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("database: migrator: %w", err)
	}
	return m, nil
}
