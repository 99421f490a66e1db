package projection

import (
	"fmt"

	"github.com/sawpanic/almrun/internal/config"
	"github.com/sawpanic/almrun/internal/scenario"
)

// PathState holds every mutable record of one path. It is allocated fresh per path
// and never shared between workers.
type PathState struct {
	Path       int
	Cohorts    [][]CohortRecord
	Funds      [][]FundRecord
	Aggregates []AggregateRecord

	redirect   []float64
	zzrSpots   []float64
	spots10    []float64
	rawSurplus []float64
}

func newPathState(g *Graph, path int) *PathState {
	n := g.Horizon + 1
	ps := &PathState{
		Path:       path,
		Cohorts:    make([][]CohortRecord, len(g.Cohorts)),
		Funds:      make([][]FundRecord, g.Funds()),
		Aggregates: make([]AggregateRecord, n),
		redirect:   make([]float64, len(g.Cohorts)),
		zzrSpots:   make([]float64, n),
		spots10:    make([]float64, n),
		rawSurplus: make([]float64, n),
	}
	for i := range ps.Cohorts {
		ps.Cohorts[i] = make([]CohortRecord, n)
		for t := range ps.Cohorts[i] {
			ps.Cohorts[i][t].T = t
		}
	}
	for i := range ps.Funds {
		ps.Funds[i] = make([]FundRecord, n)
		for t := range ps.Funds[i] {
			ps.Funds[i][t].T = t
		}
	}
	for t := range ps.Aggregates {
		ps.Aggregates[t].T = t
	}
	return ps
}

// validate asserts the chronology invariant of every per-path chain
func (ps *PathState) validate(horizon int) error {
	n := horizon + 1
	if len(ps.Aggregates) != n {
		return fmt.Errorf("aggregate chain has length %d, want %d", len(ps.Aggregates), n)
	}
	for i, c := range ps.Cohorts {
		if len(c) != n {
			return fmt.Errorf("cohort chain %d has length %d, want %d", i, len(c), n)
		}
	}
	for i, f := range ps.Funds {
		if len(f) != n {
			return fmt.Errorf("fund chain %d has length %d, want %d", i, len(f), n)
		}
	}
	return nil
}

// pathRun carries everything one path's recursion reads
type pathRun struct {
	g     *Graph
	in    *config.Inputs
	rules config.ManagementRules
	path  scenario.Path
	ps    *PathState
}

func newPathRun(g *Graph, path scenario.Path, ps *PathState) *pathRun {
	return &pathRun{g: g, in: g.Inputs, rules: g.Inputs.Rules, path: path, ps: ps}
}

// step runs one timestep t >= 1 in the fixed pass order
func (r *pathRun) step(t int) error {
	r.aggregatePass1(t)
	r.fundPass(t)
	r.cohortPass1(t)
	r.aggregatePass2(t)
	r.cohortPass2(t)
	r.aggregatePass3(t)
	r.cohortPass3(t)
	return r.checkFinite(t)
}

// run seeds t = 0, steps through the horizon and finishes with the reverse pass
func (r *pathRun) run() error {
	r.seed()
	for t := 1; t <= r.g.Horizon; t++ {
		if err := r.step(t); err != nil {
			return err
		}
	}
	allocateSurplusFund(r.g, r.ps)
	return nil
}
