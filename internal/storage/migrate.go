package storage

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/agent-diff/migrations"
)

// newBaselineMigrator builds a migrator over the embedded baselines schema.
func newBaselineMigrator(databaseURL string) (*migrate.Migrate, error) {
	source, err := iofs.New(migrations.Postgres, "postgres")
	if err != nil {
		return nil, fmt.Errorf("failed to load embedded migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return m, nil
}

// RunBaselineMigrations brings the baselines schema up to date.
func RunBaselineMigrations(databaseURL string) error {
	m, err := newBaselineMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = m.Close() // nolint:errcheck // cleanup in defer
	}()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run baseline migrations: %w", err)
	}
	return nil
}

// RollbackBaselineMigration rolls back the most recent migration.
func RollbackBaselineMigration(databaseURL string) error {
	m, err := newBaselineMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = m.Close() // nolint:errcheck // cleanup in defer
	}()

	if err := m.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to rollback baseline migration: %w", err)
	}
	return nil
}

// BaselineMigrationVersion returns the schema version the database is at.
func BaselineMigrationVersion(databaseURL string) (version uint, dirty bool, err error) {
	m, err := newBaselineMigrator(databaseURL)
	if err != nil {
		return 0, false, err
	}
	defer func() {
		_, _ = m.Close() // nolint:errcheck // cleanup in defer
	}()

	version, dirty, err = m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, fmt.Errorf("failed to get baseline migration version: %w", err)
	}
	return version, dirty, nil
}
