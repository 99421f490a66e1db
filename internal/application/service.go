// Package application wires a projection engine to its sinks, its metrics and the
// run registry. The CLI and the HTTP surface both drive runs through a Service.
package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/almrun/internal/config"
	logprogress "github.com/sawpanic/almrun/internal/log"
	"github.com/sawpanic/almrun/internal/metrics"
	"github.com/sawpanic/almrun/internal/persistence"
	"github.com/sawpanic/almrun/internal/projection"
	"github.com/sawpanic/almrun/internal/scenario"
)

// ErrRunActive is returned when a second run is launched on a busy engine
var ErrRunActive = errors.New("a run is already active")

// Publisher receives live progress, e.g. the websocket hub
type Publisher interface {
	Publish(p projection.Progress)
	Close(c projection.Completion)
}

// Steps logged by Prepare and Run
var Steps = []string{"build", "solve", "project"}

// Deps are the collaborators of a service. Runs is created when nil; the rest is optional.
type Deps struct {
	Runs      *projection.Registry
	Metrics   *metrics.Registry
	Sink      persistence.PathSink
	Publisher Publisher
	Progress  func(projection.Progress)
}

// Service owns one engine and serializes runs on it
type Service struct {
	scen   *scenario.Scenario
	engine *projection.Engine
	deps   Deps

	mu     sync.Mutex
	steps  *logprogress.StepLogger
	active *activeRun
	wg     sync.WaitGroup
}

type activeRun struct {
	id     string
	abort  atomic.Bool
	cancel context.CancelFunc
}

// NewService creates a service for one scenario. Nothing is computed until Prepare.
func NewService(cfg *config.RunConfig, inputs *config.Inputs, scen *scenario.Scenario, deps Deps) *Service {
	if deps.Runs == nil {
		deps.Runs = projection.NewRegistry(0)
	}
	if deps.Sink == nil {
		deps.Sink = persistence.Discard{}
	}

	s := &Service{
		scen:  scen,
		deps:  deps,
		steps: logprogress.NewStepLogger(Steps),
	}

	opts := projection.OptionsFromConfig(cfg)
	if deps.Metrics != nil {
		opts.Recorder = deps.Metrics
	}
	opts.Progress = s.stage
	s.engine = projection.NewEngine(inputs, scen, opts)
	return s
}

// Engine exposes the underlying engine
func (s *Service) Engine() *projection.Engine { return s.engine }

// Runs exposes the run registry
func (s *Service) Runs() *projection.Registry { return s.deps.Runs }

// Prepare builds the cohort graph and calibrates the ladder
func (s *Service) Prepare() error {
	if s.engine.State() == projection.StateUnbuilt {
		s.steps.StartStep("build")
		if err := s.engine.Build(); err != nil {
			s.steps.Fail(err)
			return err
		}
	}
	if s.engine.State() == projection.StateGraphBuilt {
		s.steps.StartStep("solve")
		if err := s.engine.Solve(); err != nil {
			s.steps.Fail(err)
			return err
		}
	}
	s.steps.CompleteStep()
	return nil
}

// Run projects paths synchronously under a fresh run id
func (s *Service) Run(ctx context.Context, paths []int) (projection.Completion, error) {
	run, err := s.begin(uuid.NewString())
	if err != nil {
		return projection.Completion{}, err
	}
	return s.execute(ctx, run, paths), nil
}

// Launch starts a run in the background and returns its id
func (s *Service) Launch(paths []int) (string, error) {
	run, err := s.begin(uuid.NewString())
	if err != nil {
		return "", err
	}

	total := len(paths)
	if total == 0 {
		total = len(s.scen.Numbers())
	}
	s.deps.Runs.Update(projection.Progress{RunID: run.id, Scenario: s.scen.ID, Total: total})

	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	run.cancel = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		s.execute(ctx, run, paths)
	}()
	return run.id, nil
}

// Abort asks the active run to stop before its next path
func (s *Service) Abort(runID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil || s.active.id != runID {
		return false
	}
	s.active.abort.Store(true)
	log.Info().Str("run_id", runID).Msg("Run abort requested")
	return true
}

// Wait blocks until every launched run has returned
func (s *Service) Wait() { s.wg.Wait() }

// Shutdown aborts the active run and waits for launched runs to return. When ctx
// expires first the run's context is canceled as well.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.active != nil {
		s.active.abort.Store(true)
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.mu.Lock()
		if s.active != nil && s.active.cancel != nil {
			s.active.cancel()
		}
		s.mu.Unlock()
		return ctx.Err()
	}
}

func (s *Service) begin(id string) (*activeRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil {
		return nil, fmt.Errorf("run %s: %w", s.active.id, ErrRunActive)
	}
	s.active = &activeRun{id: id}
	return s.active, nil
}

func (s *Service) end(run *activeRun) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == run {
		s.active = nil
	}
}

func (s *Service) execute(ctx context.Context, run *activeRun, paths []int) projection.Completion {
	defer s.end(run)

	if err := s.Prepare(); err != nil {
		c := projection.Completion{RunID: run.id, Scenario: s.scen.ID, Status: projection.StatusCrashed, Err: err}
		s.complete(c)
		return c
	}

	if g := s.engine.Graph(); g != nil {
		if err := s.deps.Sink.Write(ctx, projection.LadderRows(run.id, s.scen.ID, g.Ladder)); err != nil {
			log.Warn().Err(err).Str("run_id", run.id).Msg("Failed to store ladder records")
		}
	}

	s.steps.StartStep("project")
	hooks := projection.Hooks{
		Progress: s.progress,
		Abort:    run.abort.Load,
		PathDone: func(ctx context.Context, res *projection.PathResult) error {
			return s.deps.Sink.Write(ctx, res.Rows(run.id))
		},
	}
	c := s.engine.RunWithID(ctx, run.id, paths, hooks)
	if c.Status == projection.StatusCrashed {
		s.steps.Fail(c.Err)
	} else {
		s.steps.Finish()
	}
	s.complete(c)
	return c
}

// stage forwards build and solve events, under the active run's id when there is one
func (s *Service) stage(p projection.Progress) {
	s.mu.Lock()
	run := s.active
	s.mu.Unlock()

	if run != nil {
		p.RunID = run.id
		s.progress(p)
		return
	}
	if s.deps.Progress != nil {
		s.deps.Progress(p)
	}
}

func (s *Service) progress(p projection.Progress) {
	s.deps.Runs.Update(p)
	if s.deps.Publisher != nil {
		s.deps.Publisher.Publish(p)
	}
	if s.deps.Progress != nil {
		s.deps.Progress(p)
	}
}

func (s *Service) complete(c projection.Completion) {
	s.deps.Runs.Finish(c)
	if s.deps.Publisher != nil {
		s.deps.Publisher.Close(c)
	}
}
