package projection

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/almrun/internal/scenario"
)

func TestCohortKey(t *testing.T) {
	keys := []CohortKey{termKDS, endowmentKDS, endowmentFonds}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	assert.Equal(t, []CohortKey{endowmentFonds, endowmentKDS, termKDS}, keys)
	assert.Equal(t, "endowment/2010/old/fonds", endowmentFonds.String())
	assert.Equal(t, endowmentKDS, endowmentFonds.Sibling())
	assert.Equal(t, endowmentFonds, endowmentKDS.Sibling())

	b, err := ParseBusiness(" New ")
	require.NoError(t, err)
	assert.Equal(t, BusinessNew, b)
	_, err = ParseDeposit("unit")
	assert.Error(t, err)
}

func TestCohortStatic_PresentValues(t *testing.T) {
	c := &CohortStatic{
		Premium:   make([]float64, 3),
		Cost:      make([]float64, 3),
		Death:     []float64{0, 1, 1},
		Surrender: []float64{0, 2, 0},
		Maturity:  []float64{0, 0, 10},
		Reserve:   []float64{20, 11, 0},
	}
	c.presentValues()

	assert.Equal(t, []float64{12, 11, 0}, c.PVG)
	assert.Equal(t, []float64{2, 0, 0}, c.PVO)
	assert.Equal(t, []float64{14, 11, 0}, c.BonusBase)
	assert.InDelta(t, 25.0/14.0, c.RemainingDuration[0], 1e-12)
	assert.InDelta(t, 1.0, c.RemainingDuration[1], 1e-12)
	assert.Zero(t, c.RemainingDuration[2])
	assert.Equal(t, 2, c.EndTimestep)
}

func TestCohortStatic_DiscountsAtTechnicalRate(t *testing.T) {
	c := &CohortStatic{
		TechnicalRate: 0.02,
		Premium:       make([]float64, 3),
		Cost:          make([]float64, 3),
		Death:         make([]float64, 3),
		Surrender:     make([]float64, 3),
		Maturity:      []float64{0, 0, 100},
		Reserve:       []float64{0, 0, 0},
	}
	c.presentValues()

	assert.InDelta(t, 100/1.02/1.02, c.PVG[0], 1e-12)
	assert.InDelta(t, 2.0, c.RemainingDuration[0], 1e-12)
	assert.Equal(t, 2, c.EndTimestep)
}

func TestBuildGraph_Layout(t *testing.T) {
	in, scen := richFixture()
	g, err := BuildGraph(in, scen, scen.ID, richHorizon, true)
	require.NoError(t, err)

	require.Len(t, g.Cohorts, 3)
	assert.Equal(t, endowmentFonds, g.Cohorts[0].Key)

	kds, ok := g.Cohort(endowmentKDS)
	require.True(t, ok)
	assert.Equal(t, kds, g.Cohorts[0].Sibling)
	assert.Equal(t, 0, g.Cohorts[0].Fund)
	assert.Equal(t, -1, g.Cohorts[kds].Sibling)
	assert.Equal(t, -1, g.Cohorts[kds].Fund)
	assert.Equal(t, 1, g.Funds())
	assert.Len(t, g.Cohorts[2].Risk, richHorizon+1, "optional rows are padded")

	g.Cohorts[1].PVG = g.Cohorts[1].PVG[:2]
	var cfgErr *ConfigError
	assert.ErrorAs(t, g.Validate(), &cfgErr)
}

func TestBuildGraph_ScenarioIDMismatch(t *testing.T) {
	in, scen := richFixture()

	_, err := BuildGraph(in, scen, "base", richHorizon, true)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "base", cfgErr.Scenario)
	assert.ErrorIs(t, err, scenario.ErrIDMismatch)

	e := NewEngine(in, scen, Options{ScenarioID: "base", Horizon: richHorizon})
	require.ErrorIs(t, e.Build(), scenario.ErrIDMismatch)
	assert.Equal(t, StateFailed, e.State())
}

func TestProgressReporter_Throttles(t *testing.T) {
	var got []Progress
	r := newProgressReporter("run", "base", 5, time.Hour, func(p Progress) { got = append(got, p) })

	r.start()
	for path := 1; path <= 5; path++ {
		r.advance(path)
	}

	require.Len(t, got, 2)
	assert.Equal(t, 0, got[0].Done)
	assert.Equal(t, 5, got[1].Done)
	assert.Equal(t, 5, got[1].Path)
	assert.Equal(t, 5, r.done())
}

func TestProgressReporter_Unthrottled(t *testing.T) {
	var got []Progress
	r := newProgressReporter("run", "base", 3, 0, func(p Progress) { got = append(got, p) })
	r.start()
	for path := 1; path <= 3; path++ {
		r.advance(path)
	}
	assert.Len(t, got, 4)

	silent := newProgressReporter("run", "base", 3, 0, nil)
	silent.start()
	silent.advance(1)
	assert.Equal(t, 1, silent.done())
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry(2)

	reg.Update(Progress{RunID: "a", Scenario: "base", Done: 1, Total: 4})
	s, ok := reg.Get("a")
	require.True(t, ok)
	assert.Equal(t, "running", s.State)
	assert.Equal(t, 4, s.Total)

	reg.Update(Progress{RunID: "a", Scenario: "base", Stage: StageSolve, Done: 1, Total: 1})
	reg.Update(Progress{Scenario: "base", Stage: StageLoad})
	s, _ = reg.Get("a")
	assert.Equal(t, StageSolve, s.Stage)
	assert.Equal(t, 1, s.Done, "stages leave the path counters alone")
	assert.Equal(t, 4, s.Total)
	assert.Len(t, reg.List(), 1, "events without a run are ignored")

	reg.Finish(Completion{RunID: "a", Scenario: "base", Status: StatusAborted, Paths: []*PathResult{{}, {}}, Finished: time.Now()})
	s, _ = reg.Get("a")
	assert.Equal(t, "aborted", s.State)
	assert.Equal(t, 2, s.Done)
	require.NotNil(t, s.Finished)

	reg.Update(Progress{RunID: "b"})
	reg.Update(Progress{RunID: "c"})
	_, ok = reg.Get("a")
	assert.False(t, ok, "oldest run evicted")
	assert.Len(t, reg.List(), 2)
}
