package projection

import (
	"sort"
	"sync"
	"time"
)

// RunStatus is the externally visible snapshot of a run
type RunStatus struct {
	RunID    string     `json:"run_id"`
	Scenario string     `json:"scenario"`
	State    string     `json:"state"`
	Stage    string     `json:"stage,omitempty"`
	Done     int        `json:"done"`
	Total    int        `json:"total"`
	Started  time.Time  `json:"started"`
	Finished *time.Time `json:"finished,omitempty"`
	Error    string     `json:"error,omitempty"`
}

// Registry keeps the status of recent runs for the HTTP surface
type Registry struct {
	mu    sync.RWMutex
	runs  map[string]*RunStatus
	order []string
	limit int
}

// NewRegistry keeps at most limit runs, evicting the oldest
func NewRegistry(limit int) *Registry {
	if limit <= 0 {
		limit = 100
	}
	return &Registry{runs: make(map[string]*RunStatus), limit: limit}
}

// Update records a progress event, registering the run on first sight. Preparation
// stages only move the stage; Done and Total count paths.
func (r *Registry) Update(p Progress) {
	if p.RunID == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.get(p.RunID, p.Scenario)
	if p.Stage != "" {
		s.Stage = p.Stage
	}
	if p.Preparing() {
		return
	}
	s.Done, s.Total = p.Done, p.Total
}

// Finish records a run's completion
func (r *Registry) Finish(c Completion) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.get(c.RunID, c.Scenario)
	s.State = c.Status.String()
	s.Done = len(c.Paths)
	if !c.Started.IsZero() {
		s.Started = c.Started
	}
	finished := c.Finished
	s.Finished = &finished
	if c.Err != nil {
		s.Error = c.Err.Error()
	}
}

func (r *Registry) get(id, scenarioID string) *RunStatus {
	if s, ok := r.runs[id]; ok {
		return s
	}
	s := &RunStatus{RunID: id, Scenario: scenarioID, State: "running", Started: time.Now()}
	r.runs[id] = s
	r.order = append(r.order, id)
	for len(r.order) > r.limit {
		delete(r.runs, r.order[0])
		r.order = r.order[1:]
	}
	return s
}

// Get returns a copy of one run's status
func (r *Registry) Get(id string) (RunStatus, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.runs[id]
	if !ok {
		return RunStatus{}, false
	}
	return *s, true
}

// List returns all known runs, newest first
func (r *Registry) List() []RunStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]RunStatus, 0, len(r.runs))
	for _, s := range r.runs {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Started.After(out[j].Started) })
	return out
}
