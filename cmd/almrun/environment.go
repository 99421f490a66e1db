package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sawpanic/almrun/internal/config"
	"github.com/sawpanic/almrun/internal/infrastructure/db"
	"github.com/sawpanic/almrun/internal/metrics"
	"github.com/sawpanic/almrun/internal/persistence"
	"github.com/sawpanic/almrun/internal/projection"
	"github.com/sawpanic/almrun/internal/scenario"
)

// environment is everything a command needs before it can build an engine
type environment struct {
	cfg    *config.RunConfig
	inputs *config.Inputs
	scen   *scenario.Scenario
	db     *db.Manager
	redis  *scenario.RedisStore
}

// addRunFlags registers the overrides shared by project, validate and serve
func addRunFlags(fs *pflag.FlagSet) {
	fs.String("scenario", "", "Scenario id (overrides the config file)")
	fs.String("inputs", "", "Model input document (overrides the config file)")
	fs.IntSlice("paths", nil, "Path numbers to project; empty runs every path")
	fs.Int("horizon", 0, "Projection horizon in years")
	fs.Int("workers", 0, "Number of paths projected concurrently")
	fs.String("output", "", "Directory for finished path records")
	fs.Bool("no-fund-link", false, "Project fund-linked cohorts without fund valuation")
}

func applyRunFlags(fs *pflag.FlagSet, cfg *config.RunConfig) error {
	if fs.Changed("scenario") {
		cfg.Scenario, _ = fs.GetString("scenario")
	}
	if fs.Changed("inputs") {
		cfg.Inputs, _ = fs.GetString("inputs")
	}
	if fs.Changed("paths") {
		cfg.Paths, _ = fs.GetIntSlice("paths")
	}
	if fs.Changed("horizon") {
		cfg.Horizon, _ = fs.GetInt("horizon")
	}
	if fs.Changed("workers") {
		cfg.Workers, _ = fs.GetInt("workers")
	}
	if fs.Changed("output") {
		cfg.Output, _ = fs.GetString("output")
	}
	if fs.Changed("no-fund-link") {
		off, _ := fs.GetBool("no-fund-link")
		cfg.FundLinked = !off
	}
	return cfg.Validate()
}

func loadEnvironment(ctx context.Context, cmd *cobra.Command) (*environment, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadRunConfig(path)
	if err != nil {
		return nil, err
	}
	if err := applyRunFlags(cmd.Flags(), cfg); err != nil {
		return nil, fmt.Errorf("invalid flags: %w", err)
	}
	if cfg.Scenario == "" {
		return nil, fmt.Errorf("no scenario selected: set scenario in %s or pass --scenario", path)
	}
	if cfg.Inputs == "" {
		return nil, fmt.Errorf("no model inputs: set inputs in %s or pass --inputs", path)
	}

	inputs, err := config.LoadInputs(cfg.Inputs)
	if err != nil {
		return nil, err
	}

	env := &environment{cfg: cfg, inputs: inputs}

	var store scenario.Store = scenario.FileStore{Dir: cfg.Scenarios.Dir}
	if cfg.Scenarios.Redis.Enabled {
		rs, err := scenario.NewRedisStore(cfg.Scenarios.Redis, store)
		if err != nil {
			log.Warn().Err(err).Str("addr", cfg.Scenarios.Redis.Addr).Msg("Scenario cache unavailable, reading files directly")
		} else {
			env.redis = rs
			store = rs
		}
	}

	env.scen, err = projection.LoadScenario(ctx, store, cfg.Scenario, logStage)
	if err != nil {
		env.close()
		return nil, err
	}

	env.db, err = db.NewManager(cfg.Database)
	if err != nil {
		env.close()
		return nil, err
	}

	log.Info().
		Str("scenario", env.scen.ID).
		Int("paths", len(env.scen.Paths)).
		Int("cohorts", len(inputs.Cohorts)).
		Int("horizon", cfg.Horizon).
		Bool("database", env.db.IsEnabled()).
		Msg("Run environment loaded")
	return env, nil
}

// sink writes JSON lines below the output directory and, when enabled, to Postgres
// behind a circuit breaker
func (e *environment) sink(reg *metrics.Registry) persistence.PathSink {
	var dbSink persistence.PathSink
	if e.db != nil && e.db.IsEnabled() {
		breaker := persistence.NewBreakerSink("postgres", e.db.Repository().Paths, e.cfg.Breaker)
		dbSink = reg.InstrumentSink("postgres", breaker)
	}
	return reg.InstrumentSink("store", db.NewPathStore(e.cfg.Output, dbSink))
}

func (e *environment) close() {
	if e.redis != nil {
		if err := e.redis.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close scenario cache")
		}
	}
	if e.db != nil {
		if err := e.db.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close database")
		}
	}
}

// logStage reports preparation stages that run before a progress indicator exists
func logStage(p projection.Progress) {
	log.Debug().
		Str("scenario", p.Scenario).
		Str("stage", p.Stage).
		Float64("fraction", p.Fraction()).
		Msg("Stage progress")
}
