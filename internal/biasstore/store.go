// Package biasstore persists an OrientationFilter's converged gyro/mag bias
// across process restarts, in a small sqlite database, so a long-running
// capture session doesn't re-walk the same stationary-bias convergence on
// every restart.
package biasstore

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/fieldcam/cameracore/internal/config"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a sqlite-backed *sql.DB holding the single-row bias_state
// table. It is safe for concurrent use across goroutines, same as *sql.DB.
type Store struct {
	*sql.DB
}

// Open opens (creating if necessary) the sqlite database named in cfg and
// brings its schema up to date. A nil cfg uses EmptyBiasStoreConfig, i.e.
// the "bias.db" default path with embedded migrations.
func Open(cfg *config.BiasStoreConfig) (*Store, error) {
	if cfg == nil {
		cfg = config.EmptyBiasStoreConfig()
	}

	db, err := sql.Open("sqlite", cfg.GetDBPath())
	if err != nil {
		return nil, fmt.Errorf("biasstore: open %s: %w", cfg.GetDBPath(), err)
	}

	store := &Store{DB: db}
	if err := store.migrateUp(cfg.GetMigrationsDir()); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error { return s.DB.Close() }
