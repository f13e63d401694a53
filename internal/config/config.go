package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the canonical bias-store defaults file, checked into
// config/ alongside config/biasstore.example.json.
const DefaultConfigPath = "config/biasstore.defaults.json"

// BiasStoreConfig configures internal/biasstore: where the sqlite database
// and its migrations live, and how aggressively the periodic flush runs.
// Fields are pointers so a partial JSON file only overrides what it sets;
// LoadBiasStoreConfig and the Get* accessors follow the same
// pointer-field/partial-override/validate pattern as
// orientation.LoadFilterConfigJSON. biasstore.Open reads only DBPath and
// MigrationsDir; FlushInterval, FlushDisable and MaxBiasAgeSecs are loaded
// and validated, but no code outside this package uses them (cmd/imu-stream takes
// its flush interval and maximum bias age from its own flags).
type BiasStoreConfig struct {
	// DBPath is the sqlite file the bias store opens. A relative path is
	// resolved against the process's working directory.
	DBPath *string `json:"db_path,omitempty"`

	// MigrationsDir overrides the embedded migration set with a directory
	// on disk, for iterating on schema changes without a rebuild. Leave
	// unset in production: biasstore.Open embeds its migrations.
	MigrationsDir *string `json:"migrations_dir,omitempty"`

	// FlushInterval is how often a running capture session persists its
	// converged gyro/mag bias, expressed as a duration string ("30s").
	FlushInterval *string `json:"flush_interval,omitempty"`

	// FlushDisable turns off the periodic flush entirely; the store is
	// still written to once on clean shutdown.
	FlushDisable *bool `json:"flush_disable,omitempty"`

	// MaxBiasAgeSecs bounds how old a persisted bias can be and still be
	// trusted on load. Older rows are treated as if nothing were stored,
	// since a bias estimate from a prior session on a different mount or
	// after a long power-off is more likely wrong than helpful.
	MaxBiasAgeSecs *float64 `json:"max_bias_age_secs,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }

// EmptyBiasStoreConfig returns a BiasStoreConfig with every field nil. Use
// LoadBiasStoreConfig to populate one from a JSON file.
func EmptyBiasStoreConfig() *BiasStoreConfig {
	return &BiasStoreConfig{}
}

// LoadBiasStoreConfig loads a BiasStoreConfig from a JSON file. The file
// must have a .json extension and be under 1MB; fields omitted from the
// file keep their production defaults via the Get* accessors.
func LoadBiasStoreConfig(path string) (*BiasStoreConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyBiasStoreConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical bias-store defaults from
// DefaultConfigPath, searching from the current directory up through a few
// parent directories. Panics if the file cannot be found; intended for test
// setup run from anywhere under the repository root.
func MustLoadDefaultConfig() *BiasStoreConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,
		"../../../" + DefaultConfigPath,
		"../../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadBiasStoreConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that any set fields hold valid values.
func (c *BiasStoreConfig) Validate() error {
	if c.FlushInterval != nil && *c.FlushInterval != "" {
		if _, err := time.ParseDuration(*c.FlushInterval); err != nil {
			return fmt.Errorf("invalid flush_interval %q: %w", *c.FlushInterval, err)
		}
	}
	if c.MaxBiasAgeSecs != nil && *c.MaxBiasAgeSecs < 0 {
		return fmt.Errorf("max_bias_age_secs must be non-negative, got %f", *c.MaxBiasAgeSecs)
	}
	if c.DBPath != nil && *c.DBPath == "" {
		return fmt.Errorf("db_path must not be empty when set")
	}
	return nil
}

// GetDBPath returns the configured database path or the default.
func (c *BiasStoreConfig) GetDBPath() string {
	if c.DBPath == nil || *c.DBPath == "" {
		return "bias.db"
	}
	return *c.DBPath
}

// GetMigrationsDir returns the configured migrations directory override, or
// "" when the embedded migration set should be used.
func (c *BiasStoreConfig) GetMigrationsDir() string {
	if c.MigrationsDir == nil {
		return ""
	}
	return *c.MigrationsDir
}

// GetFlushInterval parses and returns FlushInterval, or 30 seconds.
func (c *BiasStoreConfig) GetFlushInterval() time.Duration {
	if c.FlushInterval == nil || *c.FlushInterval == "" {
		return 30 * time.Second
	}
	d, err := time.ParseDuration(*c.FlushInterval)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GetFlushDisable returns FlushDisable or false.
func (c *BiasStoreConfig) GetFlushDisable() bool {
	if c.FlushDisable == nil {
		return false
	}
	return *c.FlushDisable
}

// GetMaxBiasAgeSecs returns MaxBiasAgeSecs or one hour.
func (c *BiasStoreConfig) GetMaxBiasAgeSecs() float64 {
	if c.MaxBiasAgeSecs == nil {
		return 3600
	}
	return *c.MaxBiasAgeSecs
}
