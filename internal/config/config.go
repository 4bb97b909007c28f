// Package config holds the service configuration, loaded from environment
// variables, and the YAML loader for per-run optimization configs.
package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v10"
	"gopkg.in/yaml.v3"

	"github.com/scrambleopt/scrambleopt/internal/optimization"
)

type Config struct {
	Environment string `env:"ENV" envDefault:"development"`
	HTTP        struct {
		Port            int           `env:"HTTP_PORT" envDefault:"8080"`
		ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
		WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
		IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
		ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	}
	Logging struct {
		Level  string `env:"LOG_LEVEL" envDefault:"info"`
		Format string `env:"LOG_FORMAT" envDefault:"json"`
		Output string `env:"LOG_OUTPUT" envDefault:"stderr"`
	}
	Store struct {
		Dir string `env:"STORE_DIR" envDefault:"data"`
	}
	Runs struct {
		// MaxConcurrent caps the number of simultaneously live runs the
		// server will accept. Zero means no cap.
		MaxConcurrent int `env:"RUNS_MAX_CONCURRENT" envDefault:"16"`
	}
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	if cfg.Environment == "development" && cfg.Logging.Level == "" {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

// LoadRunConfig reads a run configuration from a YAML file, applies
// defaults and validates it.
func LoadRunConfig(path string) (optimization.RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return optimization.RunConfig{}, optimization.NewLoadError("read run config", err)
	}
	return ParseRunConfig(data)
}

// ParseRunConfig decodes YAML into a validated run configuration. Unknown
// fields are rejected so typos surface instead of silently defaulting.
func ParseRunConfig(data []byte) (optimization.RunConfig, error) {
	var cfg optimization.RunConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return optimization.RunConfig{}, optimization.NewConfigErrorf("decode run config: %v", err)
	}
	cfg = cfg.Normalized()
	if err := cfg.Validate(); err != nil {
		return optimization.RunConfig{}, fmt.Errorf("run config: %w", err)
	}
	return cfg, nil
}
