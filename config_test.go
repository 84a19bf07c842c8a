package reflectdb

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestApplyIdentityDefaultsFillsAbsentKeys(t *testing.T) {
	cfg := &Config{DefaultLocaleID: 3, DefaultEnvID: 9}
	spec := map[string]any{"name": "widget"}
	out := cfg.applyIdentityDefaults(spec)

	require.Equal(t, int64(3), out["locale_id"])
	require.Equal(t, int64(9), out["env_id"])
	require.NotContains(t, spec, "locale_id", "caller's map must not be mutated")
}

func TestApplyIdentityDefaultsRespectsCallerValues(t *testing.T) {
	cfg := &Config{DefaultLocaleID: 3}
	spec := map[string]any{"locale_id": int64(99)}
	out := cfg.applyIdentityDefaults(spec)
	require.Equal(t, int64(99), out["locale_id"])
}

func TestApplyIdentityDefaultsNilConfig(t *testing.T) {
	var cfg *Config
	spec := map[string]any{"name": "widget"}
	out := cfg.applyIdentityDefaults(spec)
	require.Equal(t, spec, out)
}

func TestRallyOrDefaultFallsBackPerField(t *testing.T) {
	cfg := &Config{Rally: RallyDefaults{Limit: 10}}
	r := cfg.rallyOrDefault()
	require.Equal(t, "position", r.OrderBy)
	require.Equal(t, "asc", r.Order)
	require.Equal(t, 10, r.Limit)
}

func TestRallyOrDefaultNilConfig(t *testing.T) {
	var cfg *Config
	r := cfg.rallyOrDefault()
	require.Equal(t, DefaultConfig().Rally, r)
}
