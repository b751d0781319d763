package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite" // registers the sqlite:// scheme
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed postgres/*.sql sqlite/*.sql
var MigrationFiles embed.FS

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// RunPostgres applies pending Postgres migrations against db.
// If autoMigrate is false it only reports the current version.
func RunPostgres(db *sql.DB, autoMigrate bool) error {
	sourceDriver, err := iofs.New(MigrationFiles, DialectPostgres)
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, DialectPostgres, dbDriver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	return apply(m, DialectPostgres, autoMigrate)
}

// RunSQLite applies pending SQLite migrations to the database file at path.
// The migration connection is closed before returning so the caller can
// open the file with its own pool settings.
func RunSQLite(path string, autoMigrate bool) error {
	sourceDriver, err := iofs.New(MigrationFiles, DialectSQLite)
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", sourceDriver, "sqlite://"+path)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	runErr := apply(m, DialectSQLite, autoMigrate)

	srcErr, dbErr := m.Close()
	if runErr != nil {
		return runErr
	}
	if srcErr != nil {
		return fmt.Errorf("failed to close migration source: %w", srcErr)
	}
	if dbErr != nil {
		return fmt.Errorf("failed to close migration database: %w", dbErr)
	}
	return nil
}

func apply(m *migrate.Migrate, dialect string, autoMigrate bool) error {
	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to get current migration version: %w", err)
	}

	if dirty {
		slog.Warn("Database is in dirty state - migration was interrupted",
			"dialect", dialect,
			"version", version,
			"action", "attempting automatic recovery",
		)

		// Every migration is idempotent (IF [NOT] EXISTS), so forcing the
		// recorded version and re-running Up is safe.
		if err := m.Force(int(version)); err != nil {
			return fmt.Errorf("failed to recover dirty migration state at version %d: %w", version, err)
		}
		slog.Info("Recovered dirty migration state", "dialect", dialect, "version", version)
	}

	if !autoMigrate {
		slog.Info("Auto-migration disabled, skipping migrations",
			"dialect", dialect,
			"current_version", version,
			"dirty", dirty,
		)
		return nil
	}

	slog.Info("Running database migrations", "dialect", dialect, "current_version", version)

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			slog.Info("Database schema is up to date", "dialect", dialect, "version", version)
			return nil
		}
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	newVersion, _, err := m.Version()
	if err != nil {
		return fmt.Errorf("failed to get updated migration version: %w", err)
	}

	slog.Info("Database migrations completed successfully",
		"dialect", dialect,
		"from_version", version,
		"to_version", newVersion,
	)
	return nil
}
