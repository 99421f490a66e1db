// Package projection runs the stochastic balance-sheet projection: per path it steps
// cohorts, unit-linked funds and the company aggregate through t = 0..H.
package projection

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/sawpanic/almrun/internal/config"
	"github.com/sawpanic/almrun/internal/ladder"
	"github.com/sawpanic/almrun/internal/scenario"
)

// State of the engine's lifecycle
type State int

const (
	StateUnbuilt State = iota
	StateGraphBuilt
	StateLadderSolved
	StatePathComputing
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnbuilt:
		return "unbuilt"
	case StateGraphBuilt:
		return "graph_built"
	case StateLadderSolved:
		return "ladder_solved"
	case StatePathComputing:
		return "path_computing"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Status is the outcome of a run
type Status int

const (
	StatusFinished Status = iota
	StatusAborted
	StatusCrashed
)

func (s Status) String() string {
	switch s {
	case StatusFinished:
		return "finished"
	case StatusAborted:
		return "aborted"
	case StatusCrashed:
		return "crashed"
	}
	return "unknown"
}

// Recorder receives engine measurements; internal/metrics implements it
type Recorder interface {
	ObserveCalibration(scenario string, q float64, iterations int)
	ObservePath(scenario, status string, elapsed time.Duration)
	RunStarted(scenario string)
	RunFinished(scenario, status string)
}

// Options configure an engine
type Options struct {
	// ScenarioID is the requested scenario; empty accepts whatever scenario was loaded
	ScenarioID       string
	Horizon          int
	Workers          int
	FundLinked       bool
	Calibration      ladder.SolverConfig
	ProgressInterval time.Duration
	Recorder         Recorder
	// Progress receives the build and solve stages of direct Build and Solve calls
	Progress func(Progress)
}

// OptionsFromConfig maps the run configuration onto engine options
func OptionsFromConfig(cfg *config.RunConfig) Options {
	return Options{
		ScenarioID:       cfg.Scenario,
		Horizon:          cfg.Horizon,
		Workers:          cfg.Workers,
		FundLinked:       cfg.FundLinked,
		Calibration:      cfg.Calibration,
		ProgressInterval: cfg.ProgressInterval,
	}
}

// Hooks let the caller observe and stop a run. Progress sees the build and solve stages
// when Run has to prepare the engine, then the finished paths. Abort is polled before
// each path starts.
type Hooks struct {
	Progress func(Progress)
	Abort    func() bool
	PathDone func(ctx context.Context, res *PathResult) error
}

// Completion is the outcome of Run. Paths holds the finished paths in request order.
type Completion struct {
	RunID    string
	Scenario string
	Status   Status
	Err      error
	Paths    []*PathResult
	Started  time.Time
	Finished time.Time
}

// Engine projects one scenario. The graph and ladder are built once and shared
// read-only by all paths.
type Engine struct {
	opts   Options
	inputs *config.Inputs
	scen   *scenario.Scenario

	mu          sync.Mutex
	state       State
	graph       *Graph
	calibration ladder.Solution
}

// NewEngine creates an engine in state Unbuilt
func NewEngine(inputs *config.Inputs, scen *scenario.Scenario, opts Options) *Engine {
	if opts.Horizon == 0 {
		opts.Horizon = scen.Horizon
	}
	if opts.Calibration == (ladder.SolverConfig{}) {
		opts.Calibration = ladder.DefaultSolverConfig()
	}
	return &Engine{opts: opts, inputs: inputs, scen: scen}
}

// State returns the current lifecycle state
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Graph returns the built graph, nil before Build
func (e *Engine) Graph() *Graph {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.graph
}

// Calibration returns the ladder solution, zero before Solve
func (e *Engine) Calibration() ladder.Solution {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calibration
}

// Build validates the inputs and lays out the cohort graph
func (e *Engine) Build() error { return e.build(e.reporter("", StageBuild, e.opts.Progress)) }

// Solve calibrates the default probability of the existing bond portfolio
func (e *Engine) Solve() error { return e.solve(e.reporter("", StageSolve, e.opts.Progress)) }

func (e *Engine) reporter(runID, stage string, fn func(Progress)) func(int) {
	return stageReporter(runID, e.scen.ID, stage, fn)
}

func (e *Engine) build(report func(int)) error {
	report(0)
	if err := e.buildGraph(); err != nil {
		return err
	}
	report(1)
	return nil
}

func (e *Engine) buildGraph() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateUnbuilt {
		return fmt.Errorf("build in state %s: %w", e.state, ErrWrongState)
	}

	id := e.opts.ScenarioID
	if id == "" {
		id = e.scen.ID
	}
	g, err := BuildGraph(e.inputs, e.scen, id, e.opts.Horizon, e.opts.FundLinked)
	if err != nil {
		e.state = StateFailed
		return err
	}
	e.graph = g
	e.state = StateGraphBuilt

	log.Info().
		Str("scenario", e.scen.ID).
		Int("horizon", g.Horizon).
		Int("cohorts", len(g.Cohorts)).
		Int("funds", g.Funds()).
		Msg("Cohort graph built")
	return nil
}

func (e *Engine) solve(report func(int)) error {
	report(0)
	if err := e.calibrate(); err != nil {
		return err
	}
	report(1)
	return nil
}

func (e *Engine) calibrate() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateGraphBuilt {
		return fmt.Errorf("solve in state %s: %w", e.state, ErrWrongState)
	}

	start := time.Now()
	sol, err := e.graph.Ladder.Calibrate(e.inputs.Seed.FIMarketValue, e.opts.Calibration)
	e.calibration = sol
	if err != nil {
		e.state = StateFailed
		log.Error().Err(err).Str("scenario", e.scen.ID).Msg("Ladder calibration failed")
		return fmt.Errorf("scenario %s: %w", e.scen.ID, err)
	}
	e.state = StateLadderSolved

	if e.opts.Recorder != nil {
		e.opts.Recorder.ObserveCalibration(e.scen.ID, sol.Root, sol.Iterations)
	}
	log.Info().
		Str("scenario", e.scen.ID).
		Float64("q", sol.Root).
		Int("iterations", sol.Iterations).
		Float64("market_value", e.graph.Ladder.MarketValue).
		Float64("duration", e.graph.Ladder.Duration).
		Dur("elapsed", time.Since(start)).
		Msg("Ladder calibrated")
	return nil
}

// prepare builds and solves as far as needed, reporting the stages under runID
func (e *Engine) prepare(runID string, fn func(Progress)) error {
	switch e.State() {
	case StateUnbuilt:
		if err := e.build(e.reporter(runID, StageBuild, fn)); err != nil {
			return err
		}
		return e.solve(e.reporter(runID, StageSolve, fn))
	case StateGraphBuilt:
		return e.solve(e.reporter(runID, StageSolve, fn))
	case StateLadderSolved, StateDone:
		return nil
	}
	return fmt.Errorf("run in state %s: %w", e.State(), ErrWrongState)
}

// ProjectPath computes one path on a fresh state. It is safe for concurrent use once
// the ladder is solved.
func (e *Engine) ProjectPath(n int) (*PathResult, error) {
	e.mu.Lock()
	g, state := e.graph, e.state
	e.mu.Unlock()
	if state != StateLadderSolved && state != StatePathComputing && state != StateDone {
		return nil, fmt.Errorf("project path in state %s: %w", state, ErrWrongState)
	}

	path, err := e.scen.Path(n)
	if err != nil {
		return nil, err
	}
	ps := newPathState(g, n)
	if err := ps.validate(g.Horizon); err != nil {
		return nil, &ConfigError{Scenario: e.scen.ID, Reason: "path state", Err: err}
	}
	if err := newPathRun(g, path, ps).run(); err != nil {
		return nil, err
	}
	return newPathResult(g, ps), nil
}

// Run projects the given paths (all scenario paths when empty) concurrently
func (e *Engine) Run(ctx context.Context, paths []int, hooks Hooks) Completion {
	return e.RunWithID(ctx, uuid.NewString(), paths, hooks)
}

// RunWithID is Run with a caller-chosen run id
func (e *Engine) RunWithID(ctx context.Context, runID string, paths []int, hooks Hooks) Completion {
	c := Completion{RunID: runID, Scenario: e.scen.ID, Started: time.Now()}
	finish := func(status Status, err error) Completion {
		c.Status, c.Err, c.Finished = status, err, time.Now()
		if e.opts.Recorder != nil {
			e.opts.Recorder.RunFinished(c.Scenario, status.String())
		}
		return c
	}
	if e.opts.Recorder != nil {
		e.opts.Recorder.RunStarted(c.Scenario)
	}

	if err := e.prepare(runID, hooks.Progress); err != nil {
		return finish(StatusCrashed, err)
	}
	if len(paths) == 0 {
		paths = e.scen.Numbers()
	}
	e.setState(StatePathComputing)

	log.Info().
		Str("run_id", runID).
		Str("scenario", c.Scenario).
		Int("paths", len(paths)).
		Int("workers", e.workers()).
		Msg("Projection started")

	progress := newProgressReporter(runID, c.Scenario, len(paths), e.opts.ProgressInterval, hooks.Progress)
	progress.start()

	results := make([]*PathResult, len(paths))
	var stopped atomic.Bool
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers())

	for i, n := range paths {
		if stop(gctx, hooks.Abort) {
			stopped.Store(true)
			break
		}
		g.Go(func() error {
			if stop(gctx, hooks.Abort) {
				stopped.Store(true)
				return nil
			}
			start := time.Now()
			res, err := e.ProjectPath(n)
			if err != nil {
				e.observePath("failed", start)
				log.Error().Err(err).Str("run_id", runID).Str("scenario", c.Scenario).Int("path", n).Msg("Path failed")
				return err
			}
			if hooks.PathDone != nil {
				if err := hooks.PathDone(gctx, res); err != nil {
					e.observePath("failed", start)
					return fmt.Errorf("path %d: %w", n, err)
				}
			}
			results[i] = res
			e.observePath("finished", start)
			log.Debug().Str("run_id", runID).Int("path", n).Dur("elapsed", time.Since(start)).Msg("Path projected")
			progress.advance(n)
			return nil
		})
	}

	err := g.Wait()
	for _, r := range results {
		if r != nil {
			c.Paths = append(c.Paths, r)
		}
	}

	switch {
	case err != nil && !errors.Is(err, context.Canceled):
		e.setState(StateFailed)
		log.Error().Err(err).Str("run_id", runID).Str("scenario", c.Scenario).Msg("Projection crashed")
		return finish(StatusCrashed, err)
	case err != nil || stopped.Load() || ctx.Err() != nil:
		e.setState(StateDone)
		log.Warn().Str("run_id", runID).Int("done", progress.done()).Int("total", len(paths)).Msg("Projection aborted")
		return finish(StatusAborted, nil)
	}

	e.setState(StateDone)
	log.Info().
		Str("run_id", runID).
		Str("scenario", c.Scenario).
		Int("paths", len(c.Paths)).
		Dur("elapsed", time.Since(c.Started)).
		Msg("Projection finished")
	return finish(StatusFinished, nil)
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

func (e *Engine) workers() int {
	if e.opts.Workers > 0 {
		return e.opts.Workers
	}
	return runtime.NumCPU()
}

func (e *Engine) observePath(status string, start time.Time) {
	if e.opts.Recorder != nil {
		e.opts.Recorder.ObservePath(e.scen.ID, status, time.Since(start))
	}
}

func stop(ctx context.Context, abort func() bool) bool {
	return ctx.Err() != nil || (abort != nil && abort())
}
