package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrambleopt/scrambleopt/internal/optimization"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, 30*time.Second, cfg.HTTP.ReadTimeout)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "data", cfg.Store.Dir)
	assert.Equal(t, 16, cfg.Runs.MaxConcurrent)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("HTTP_PORT", "9999")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("STORE_DIR", "/tmp/scrambleopt")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.HTTP.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "/tmp/scrambleopt", cfg.Store.Dir)
}

const runConfigYAML = `
solver: anneal
perturbers:
  swap: 2
  mutate: 1
objective:
  name: terrain
  direction: minimize
  weights:
    roughness: 1
    climb: 0.5
seed: 42
maxIterations: 5000
maxDuration: 2m30s
progressEvery: 25
anneal:
  initialTemp: 10
  floorTemp: 0.001
  coolingRate: 0.995
`

func TestParseRunConfig(t *testing.T) {
	cfg, err := ParseRunConfig([]byte(runConfigYAML))
	require.NoError(t, err)

	assert.Equal(t, "anneal", cfg.Solver)
	assert.Equal(t, map[string]float64{"swap": 2, "mutate": 1}, cfg.Perturbers)
	assert.Equal(t, int64(42), cfg.Seed)
	assert.Equal(t, 5000, cfg.MaxIterations)
	assert.Equal(t, 150*time.Second, cfg.MaxDuration.Std())
	assert.Equal(t, 25, cfg.ProgressEvery)
	assert.Equal(t, 0.995, cfg.Anneal.CoolingRate)
	assert.Equal(t, 1, cfg.Candidates, "defaults are applied during parsing")
}

func TestParseRunConfigRejectsUnknownFields(t *testing.T) {
	_, err := ParseRunConfig([]byte("solver: anneal\ncooling: fast\n"))
	require.Error(t, err)
	assert.True(t, optimization.IsConfigError(err))
}

func TestParseRunConfigRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"no solver", "perturbers: {swap: 1}\nmaxIterations: 10\n"},
		{"no perturbers", "solver: hillclimb\nmaxIterations: 10\n"},
		{"zero weights", "solver: hillclimb\nperturbers: {swap: 0, shift: 0}\nmaxIterations: 10\n"},
		{"no budget", "solver: hillclimb\nperturbers: {swap: 1}\n"},
		{"bad duration", "solver: hillclimb\nperturbers: {swap: 1}\nmaxDuration: fast\n"},
		{"bad direction", "solver: hillclimb\nperturbers: {swap: 1}\nmaxIterations: 10\nobjective: {direction: sideways}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRunConfig([]byte(tt.yaml))
			require.Error(t, err)
			assert.True(t, optimization.IsConfigError(err), "got %v", err)
		})
	}
}

func TestLoadRunConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(runConfigYAML), 0o644))

	cfg, err := LoadRunConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "anneal", cfg.Solver)

	_, err = LoadRunConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, optimization.IsLoadError(err))
}
