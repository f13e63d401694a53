package biasstore

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/fieldcam/cameracore/internal/monitoring"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// migrateUp brings the database up to the latest migration. When
// migrationsDir is empty, it applies the migrations embedded in this
// package at build time; otherwise it reads .sql files from that directory,
// for iterating on schema changes without a rebuild.
func (s *Store) migrateUp(migrationsDir string) error {
	databaseDriver, err := sqlite.WithInstance(s.DB, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("biasstore: sqlite migrate driver: %w", err)
	}

	var m *migrate.Migrate
	if migrationsDir != "" {
		absPath, err := filepath.Abs(migrationsDir)
		if err != nil {
			return fmt.Errorf("biasstore: resolve migrations dir: %w", err)
		}
		m, err = migrate.NewWithDatabaseInstance(fmt.Sprintf("file://%s", absPath), "sqlite", databaseDriver)
		if err != nil {
			return fmt.Errorf("biasstore: migrate instance from %s: %w", absPath, err)
		}
	} else {
		sourceDriver, err := iofs.New(migrationsFS, "migrations")
		if err != nil {
			return fmt.Errorf("biasstore: embedded migrations: %w", err)
		}
		m, err = migrate.NewWithInstance("iofs", sourceDriver, "sqlite", databaseDriver)
		if err != nil {
			return fmt.Errorf("biasstore: migrate instance from embedded fs: %w", err)
		}
	}
	m.Log = &migrateLogger{}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("biasstore: migrate up: %w", err)
	}
	return nil
}

// migrateLogger routes golang-migrate's own log lines through
// monitoring.Logf so they land wherever the rest of the process's
// diagnostics go.
type migrateLogger struct{}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	monitoring.Logf("[biasstore migrate] "+format, v...)
}

func (l *migrateLogger) Verbose() bool { return false }
