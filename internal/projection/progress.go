package projection

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Stages reported through the progress hook. Load, build and solve report 0/1 when
// they start and 1/1 when they succeed; project counts finished paths.
const (
	StageLoad    = "load"
	StageBuild   = "build"
	StageSolve   = "solve"
	StageProject = "project"
)

// Progress is a snapshot of a running projection
type Progress struct {
	RunID    string `json:"run_id"`
	Scenario string `json:"scenario"`
	Stage    string `json:"stage"`
	Path     int    `json:"path"`
	Done     int    `json:"done"`
	Total    int    `json:"total"`
}

// Preparing reports whether the event belongs to a stage before path computation
func (p Progress) Preparing() bool {
	return p.Stage != "" && p.Stage != StageProject
}

// Fraction is the share of finished paths
func (p Progress) Fraction() float64 {
	if p.Total == 0 {
		return 1
	}
	return float64(p.Done) / float64(p.Total)
}

// progressReporter forwards path completions to the progress hook, at most once per
// interval except for the first and the last event.
type progressReporter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	fn      func(Progress)
	p       Progress
}

func newProgressReporter(runID, scenarioID string, total int, every time.Duration, fn func(Progress)) *progressReporter {
	limit := rate.Inf
	if every > 0 {
		limit = rate.Every(every)
	}
	return &progressReporter{
		limiter: rate.NewLimiter(limit, 1),
		fn:      fn,
		p:       Progress{RunID: runID, Scenario: scenarioID, Stage: StageProject, Total: total},
	}
}

func (r *progressReporter) start() {
	if r.fn == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.limiter.Allow()
	r.fn(r.p)
}

func (r *progressReporter) advance(path int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.p.Done++
	r.p.Path = path
	if r.fn == nil {
		return
	}
	if r.p.Done == r.p.Total || r.limiter.Allow() {
		r.fn(r.p)
	}
}

func (r *progressReporter) done() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.p.Done
}

// stageReporter emits the start (0/1) and the end (1/1) of one preparation stage
func stageReporter(runID, scenarioID, stage string, fn func(Progress)) func(done int) {
	return func(done int) {
		if fn != nil {
			fn(Progress{RunID: runID, Scenario: scenarioID, Stage: stage, Done: done, Total: 1})
		}
	}
}
