package projection

import (
	"fmt"
	"sort"

	"github.com/sawpanic/almrun/internal/config"
	"github.com/sawpanic/almrun/internal/ladder"
	"github.com/sawpanic/almrun/internal/scenario"
)

// CohortStatic is the path-independent part of a cohort: its seed rows and the
// reverse present-value pass over them. Rows are indexed by timestep 0..H.
type CohortStatic struct {
	Key           CohortKey
	LoB           config.LoB
	TechnicalRate float64

	FundValue      float64
	FundChargeRate float64

	Premium         []float64
	Cost            []float64
	Death           []float64
	Surrender       []float64
	Maturity        []float64
	Reserve         []float64
	Risk            []float64
	Other           []float64
	FundPremium     []float64
	FundPayoutRatio []float64
	FundGuarantee   []float64

	PVG               []float64
	PVO               []float64
	BonusBase         []float64
	RemainingDuration []float64
	EndTimestep       int

	// Sibling is the KDS cohort of a Fonds cohort, -1 otherwise
	Sibling int
	// Fund indexes the fund chains of a path, -1 when the cohort has none
	Fund int
}

// ProfitSharing reports whether the cohort participates in the declaration
func (c *CohortStatic) ProfitSharing() bool { return c.LoB.ProfitSharing }

// Graph is the scenario-level structure shared read-only by every path once the ladder
// is solved.
type Graph struct {
	Scenario   *scenario.Scenario
	Inputs     *config.Inputs
	Horizon    int
	FundLinked bool
	Cohorts    []*CohortStatic
	Ladder     *ladder.Ladder

	index map[CohortKey]int
	funds int
}

// BuildGraph validates the inputs and lays out the cohort chains. id is the scenario
// the run asked for; a loaded scenario carrying another id is a ConfigError.
func BuildGraph(in *config.Inputs, scen *scenario.Scenario, id string, horizon int, fundLinked bool) (*Graph, error) {
	if err := in.Validate(horizon); err != nil {
		return nil, &ConfigError{Scenario: id, Reason: "inputs", Err: err}
	}
	if err := scen.Validate(id, horizon); err != nil {
		return nil, &ConfigError{Scenario: id, Reason: "scenario", Err: err}
	}

	g := &Graph{
		Scenario:   scen,
		Inputs:     in,
		Horizon:    horizon,
		FundLinked: fundLinked,
		index:      make(map[CohortKey]int, len(in.Cohorts)),
	}

	for _, ci := range in.Cohorts {
		c, err := newCohortStatic(in, ci, horizon)
		if err != nil {
			return nil, &ConfigError{Scenario: id, Reason: "cohort " + ci.Name(), Err: err}
		}
		g.Cohorts = append(g.Cohorts, c)
	}
	sort.SliceStable(g.Cohorts, func(i, j int) bool { return g.Cohorts[i].Key.Less(g.Cohorts[j].Key) })

	for i, c := range g.Cohorts {
		if _, dup := g.index[c.Key]; dup {
			return nil, &ConfigError{Scenario: id, Reason: fmt.Sprintf("duplicate cohort %s", c.Key)}
		}
		g.index[c.Key] = i
	}
	for _, c := range g.Cohorts {
		c.Sibling, c.Fund = -1, -1
		if c.Key.Deposit != DepositFonds {
			continue
		}
		s, ok := g.index[c.Key.Sibling()]
		if !ok {
			return nil, &ConfigError{Scenario: id, Reason: fmt.Sprintf("fund-linked cohort %s has no classic sibling", c.Key)}
		}
		c.Sibling = s
		if fundLinked {
			c.Fund = g.funds
			g.funds++
		}
	}

	cfs, earnings := in.ExistingBonds.ByTimestep()
	l, err := ladder.Build(scen.InitialCurve(), cfs, earnings, horizon)
	if err != nil {
		return nil, &ConfigError{Scenario: id, Reason: "existing bonds", Err: err}
	}
	g.Ladder = l

	return g, g.Validate()
}

func newCohortStatic(in *config.Inputs, ci config.CohortInput, horizon int) (*CohortStatic, error) {
	business, err := ParseBusiness(ci.Business)
	if err != nil {
		return nil, err
	}
	deposit, err := ParseDeposit(ci.Deposit)
	if err != nil {
		return nil, err
	}
	lob, ok := in.LoB(ci.LoB)
	if !ok {
		return nil, fmt.Errorf("unknown line of business %q", ci.LoB)
	}

	n := horizon + 1
	r := ci.Rows
	c := &CohortStatic{
		Key:             CohortKey{LoB: ci.LoB, Generation: ci.Generation, Business: business, Deposit: deposit},
		LoB:             lob,
		TechnicalRate:   ci.TechnicalRate,
		FundValue:       ci.FundValue,
		FundChargeRate:  ci.FundChargeRate,
		Premium:         pad(r.Premium, n),
		Cost:            pad(r.Cost, n),
		Death:           pad(r.Death, n),
		Surrender:       pad(r.Surrender, n),
		Maturity:        pad(r.Maturity, n),
		Reserve:         pad(r.Reserve, n),
		Risk:            pad(r.Risk, n),
		Other:           pad(r.Other, n),
		FundPremium:     pad(r.FundPremium, n),
		FundPayoutRatio: pad(r.FundPayoutRatio, n),
		FundGuarantee:   pad(r.FundGuarantee, n),
	}
	c.presentValues()
	return c, nil
}

// Cohort looks up a cohort index by key
func (g *Graph) Cohort(key CohortKey) (int, bool) {
	i, ok := g.index[key]
	return i, ok
}

// Funds is the number of fund chains per path
func (g *Graph) Funds() int { return g.funds }

// Validate asserts the chronology invariant of every static chain
func (g *Graph) Validate() error {
	n := g.Horizon + 1
	for _, c := range g.Cohorts {
		for name, v := range map[string][]float64{
			"premium": c.Premium, "cost": c.Cost, "death": c.Death, "surrender": c.Surrender,
			"maturity": c.Maturity, "reserve": c.Reserve, "pvg": c.PVG, "pvo": c.PVO,
			"bonus_base": c.BonusBase, "remaining_duration": c.RemainingDuration,
		} {
			if len(v) != n {
				return &ConfigError{Scenario: g.Scenario.ID,
					Reason: fmt.Sprintf("cohort %s chain %s has length %d, want %d", c.Key, name, len(v), n)}
			}
		}
	}
	if g.Ladder != nil && g.Ladder.Len() != g.Horizon {
		return &ConfigError{Scenario: g.Scenario.ID,
			Reason: fmt.Sprintf("ladder chain has length %d, want %d", g.Ladder.Len(), g.Horizon)}
	}
	return nil
}

func pad(v []float64, n int) []float64 {
	out := make([]float64, n)
	copy(out, v)
	return out
}
