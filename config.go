package reflectdb

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/syssam/reflectdb/dialect"
	rsql "github.com/syssam/reflectdb/dialect/sql"
)

// RallyDefaults carries the paging/ordering fallback Rally applies when a
// caller's Options leaves OrderBy/Order/Limit/Offset unset.
type RallyDefaults struct {
	OrderBy string `yaml:"order_by"`
	Order   string `yaml:"order"`
	Limit   int    `yaml:"limit"`
	Offset  int    `yaml:"offset"`
}

// LockConfig tunes the slug-granular locking CRUD calls serialize through.
type LockConfig struct {
	// AcquireTimeout bounds how long withSlugLock waits for a contended
	// slug's lock before giving up. Zero means wait indefinitely.
	AcquireTimeout time.Duration `yaml:"acquire_timeout"`
}

// Config is the engine's YAML-driven configuration: which dialect to
// speak and how to reach the single database an Engine talks to (no
// multi-database federation), plus the identity/paging/locking defaults
// Create and Rally fall back to when a caller doesn't specify them.
type Config struct {
	Dialect      string `yaml:"dialect"`
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`

	// DefaultLocaleID/DefaultEnvID seed the base locale_id/env_id columns
	// on Create when spec doesn't supply them. Zero means leave the
	// column unset (the row keeps its nullable-column default).
	DefaultLocaleID int64 `yaml:"default_locale_id"`
	DefaultEnvID    int64 `yaml:"default_env_id"`

	Rally RallyDefaults `yaml:"rally"`
	Lock  LockConfig    `yaml:"lock"`
}

// DefaultConfig returns the zero-config development default: an in-memory
// SQLite database, "position asc" paging 30 rows at a time, and a 5s
// slug-lock acquire timeout.
func DefaultConfig() *Config {
	return &Config{
		Dialect: dialect.SQLite,
		DSN:     "file::memory:?cache=shared",
		Rally: RallyDefaults{
			OrderBy: "position",
			Order:   "asc",
			Limit:   30,
		},
		Lock: LockConfig{
			AcquireTimeout: 5 * time.Second,
		},
	}
}

// rallyOrDefault returns c's Rally defaults, falling back to DefaultConfig's
// when c is nil or its own fields are unset, so an Engine built without an
// explicit Config still pages sensibly.
func (c *Config) rallyOrDefault() RallyDefaults {
	d := DefaultConfig().Rally
	if c == nil {
		return d
	}
	r := c.Rally
	if r.OrderBy == "" {
		r.OrderBy = d.OrderBy
	}
	if r.Order == "" {
		r.Order = d.Order
	}
	if r.Limit <= 0 {
		r.Limit = d.Limit
	}
	return r
}

// applyIdentityDefaults fills spec's locale_id/env_id from c's configured
// defaults when the caller's spec didn't supply them, cloning spec rather
// than mutating the caller's map.
func (c *Config) applyIdentityDefaults(spec map[string]any) map[string]any {
	if c == nil {
		return spec
	}
	out := spec
	if _, ok := out["locale_id"]; !ok && c.DefaultLocaleID != 0 {
		out = cloneMap(out)
		out["locale_id"] = c.DefaultLocaleID
	}
	if _, ok := out["env_id"]; !ok && c.DefaultEnvID != 0 {
		out = cloneMap(out)
		out["env_id"] = c.DefaultEnvID
	}
	return out
}

// LoadConfig reads and parses a YAML config file at path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reflectdb: load config: %w", err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("reflectdb: load config: %w", err)
	}
	return cfg, nil
}

// Open opens the database connection described by cfg.
func (c *Config) Open() (dialect.Driver, error) {
	drv, err := rsql.Open(c.Dialect, c.DSN)
	if err != nil {
		return nil, fmt.Errorf("reflectdb: open %s: %w", c.Dialect, err)
	}
	if c.MaxOpenConns > 0 {
		drv.DB().SetMaxOpenConns(c.MaxOpenConns)
	}
	if c.MaxIdleConns > 0 {
		drv.DB().SetMaxIdleConns(c.MaxIdleConns)
	}
	return drv, nil
}
