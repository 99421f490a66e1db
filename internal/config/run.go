// Package config loads the run configuration and the model input document.
package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sawpanic/almrun/internal/infrastructure/db"
	"github.com/sawpanic/almrun/internal/ladder"
	"github.com/sawpanic/almrun/internal/persistence"
	"github.com/sawpanic/almrun/internal/scenario"
)

// RunConfig is the operational configuration of a projection run
type RunConfig struct {
	Scenario         string                    `yaml:"scenario"`
	Paths            []int                     `yaml:"paths"` // empty runs every path of the scenario
	Horizon          int                       `yaml:"horizon"`
	Workers          int                       `yaml:"workers"`
	FundLinked       bool                      `yaml:"fund_linked"`
	Inputs           string                    `yaml:"inputs"`
	Output           string                    `yaml:"output"` // JSON-lines directory for finished paths
	ProgressInterval time.Duration             `yaml:"progress_interval"`
	Calibration      ladder.SolverConfig       `yaml:"calibration"`
	Scenarios        ScenarioSource            `yaml:"scenarios"`
	Database         db.Config                 `yaml:"database"`
	Breaker          persistence.BreakerConfig `yaml:"breaker"`
	Server           ServerConfig              `yaml:"server"`
}

// ScenarioSource locates scenario files and the optional Redis cache in front of them
type ScenarioSource struct {
	Dir   string               `yaml:"dir"`
	Redis scenario.RedisConfig `yaml:"redis"`
}

// ServerConfig configures the HTTP surface of the serve command
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// DefaultRunConfig returns the run defaults
func DefaultRunConfig() RunConfig {
	return RunConfig{
		Horizon:          60,
		Workers:          runtime.NumCPU(),
		FundLinked:       true,
		Output:           "out/runs",
		ProgressInterval: 250 * time.Millisecond,
		Calibration:      ladder.DefaultSolverConfig(),
		Scenarios: ScenarioSource{
			Dir:   "scenarios",
			Redis: scenario.DefaultRedisConfig(),
		},
		Database: db.DefaultConfig(),
		Breaker:  persistence.DefaultBreakerConfig(),
		Server: ServerConfig{
			Addr:         ":8090",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// LoadRunConfig reads the YAML file (if any), applies ALMRUN_* overrides and validates
func LoadRunConfig(path string) (*RunConfig, error) {
	cfg := DefaultRunConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read run config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse run config: %w", err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, fmt.Errorf("invalid environment override: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid run config: %w", err)
	}
	return &cfg, nil
}

func (c *RunConfig) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
		return nil
	}
	flag := func(key string, dst *bool) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = b
		return nil
	}

	str("ALMRUN_SCENARIO", &c.Scenario)
	str("ALMRUN_INPUTS", &c.Inputs)
	str("ALMRUN_OUTPUT", &c.Output)
	str("ALMRUN_SCENARIO_DIR", &c.Scenarios.Dir)
	str("ALMRUN_REDIS_ADDR", &c.Scenarios.Redis.Addr)
	str("ALMRUN_PG_DSN", &c.Database.DSN)
	str("ALMRUN_HTTP_ADDR", &c.Server.Addr)

	for _, err := range []error{
		num("ALMRUN_HORIZON", &c.Horizon),
		num("ALMRUN_WORKERS", &c.Workers),
		flag("ALMRUN_FUND_LINKED", &c.FundLinked),
		flag("ALMRUN_REDIS_ENABLED", &c.Scenarios.Redis.Enabled),
		flag("ALMRUN_PG_ENABLED", &c.Database.Enabled),
	} {
		if err != nil {
			return err
		}
	}
	return nil
}

// Validate ensures the configuration is usable
func (c *RunConfig) Validate() error {
	if c.Horizon < 1 {
		return fmt.Errorf("horizon must be at least 1, got %d", c.Horizon)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	for _, p := range c.Paths {
		if p < 0 {
			return fmt.Errorf("path numbers must not be negative, got %d", p)
		}
	}
	if err := c.Calibration.Validate(); err != nil {
		return fmt.Errorf("calibration: %w", err)
	}
	if c.Database.Enabled && c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required when the database sink is enabled")
	}
	if c.Scenarios.Redis.Enabled && c.Scenarios.Redis.Addr == "" {
		return fmt.Errorf("scenarios.redis.addr is required when the redis cache is enabled")
	}
	return nil
}
