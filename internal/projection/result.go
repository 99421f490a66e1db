package projection

import (
	"github.com/sawpanic/almrun/internal/ladder"
	"github.com/sawpanic/almrun/internal/persistence"
	"github.com/sawpanic/almrun/internal/record"
)

// CohortChain is one cohort's finished record chain
type CohortChain struct {
	Key     CohortKey
	Records []CohortRecord
}

// FundChain is one Fonds cohort's finished fund chain
type FundChain struct {
	Key     CohortKey
	Records []FundRecord
}

// PathResult is everything one path produced
type PathResult struct {
	Scenario   string
	Path       int
	Cohorts    []CohortChain
	Funds      []FundChain
	Aggregates []AggregateRecord
}

func newPathResult(g *Graph, ps *PathState) *PathResult {
	res := &PathResult{
		Scenario:   g.Scenario.ID,
		Path:       ps.Path,
		Cohorts:    make([]CohortChain, len(g.Cohorts)),
		Aggregates: ps.Aggregates,
	}
	for i, c := range g.Cohorts {
		res.Cohorts[i] = CohortChain{Key: c.Key, Records: ps.Cohorts[i]}
		if c.Fund >= 0 {
			res.Funds = append(res.Funds, FundChain{Key: c.Key, Records: ps.Funds[c.Fund]})
		}
	}
	return res
}

// Horizon is the last timestep of the path
func (r *PathResult) Horizon() int { return len(r.Aggregates) - 1 }

// Aggregate returns the aggregate record of timestep t, nil outside 0..H
func (r *PathResult) Aggregate(t int) *AggregateRecord {
	if t < 0 || t >= len(r.Aggregates) {
		return nil
	}
	return &r.Aggregates[t]
}

// Cohort returns a cohort chain by key
func (r *PathResult) Cohort(key CohortKey) ([]CohortRecord, bool) {
	for _, c := range r.Cohorts {
		if c.Key == key {
			return c.Records, true
		}
	}
	return nil, false
}

// Fund returns the fund chain of a Fonds cohort
func (r *PathResult) Fund(key CohortKey) ([]FundRecord, bool) {
	for _, f := range r.Funds {
		if f.Key == key {
			return f.Records, true
		}
	}
	return nil, false
}

// Rows flattens the path into persistence rows
func (r *PathResult) Rows(runID string) []persistence.Row {
	n := len(r.Aggregates) * (1 + len(r.Cohorts) + len(r.Funds))
	rows := make([]persistence.Row, 0, n)
	add := func(kind, key string, t int, a record.Accessor) {
		rows = append(rows, persistence.Row{
			RunID:    runID,
			Scenario: r.Scenario,
			Path:     r.Path,
			Kind:     kind,
			Key:      key,
			Timestep: t,
			Fields:   record.Map(a.Fields()),
		})
	}
	for t := range r.Aggregates {
		add(persistence.KindAggregate, persistence.KindAggregate, t, &r.Aggregates[t])
	}
	for _, c := range r.Cohorts {
		key := c.Key.String()
		for t := range c.Records {
			add(persistence.KindCohort, key, t, &c.Records[t])
		}
	}
	for _, f := range r.Funds {
		key := f.Key.String()
		for t := range f.Records {
			add(persistence.KindFund, key, t, &f.Records[t])
		}
	}
	return rows
}

// LadderRows flattens the scenario-level ladder; it is stored once per run as path 0
func LadderRows(runID, scenarioID string, l *ladder.Ladder) []persistence.Row {
	rows := make([]persistence.Row, 0, l.Len())
	for _, rec := range l.Records() {
		fields := record.Map(rec.Fields())
		fields["q"] = l.Q
		rows = append(rows, persistence.Row{
			RunID:    runID,
			Scenario: scenarioID,
			Kind:     persistence.KindLadder,
			Key:      persistence.KindLadder,
			Timestep: rec.T,
			Fields:   fields,
		})
	}
	return rows
}
