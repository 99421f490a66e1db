package projection

import (
	"github.com/sawpanic/almrun/internal/domain/surplus"
)

// presentValues runs the reverse pass over the seed rows at the technical rate:
// guaranteed and other benefit present values, the bonus base, the remaining duration
// and the end timestep.
func (c *CohortStatic) presentValues() {
	n := len(c.Reserve)
	h := n - 1
	c.PVG = make([]float64, n)
	c.PVO = make([]float64, n)
	c.BonusBase = make([]float64, n)
	c.RemainingDuration = make([]float64, n)

	v := 1 / (1 + c.TechnicalRate)
	price, weighted := 0.0, 0.0
	for t := h - 1; t >= 0; t-- {
		c.PVG[t] = (c.PVG[t+1] + c.Death[t+1] + c.Maturity[t+1]) * v
		c.PVO[t] = (c.PVO[t+1] + c.Surrender[t+1]) * v
		c.BonusBase[t] = c.PVG[t] + c.PVO[t]

		cf := c.Death[t+1] + c.Surrender[t+1] + c.Maturity[t+1]
		weighted = (weighted + price + cf) * v
		price = (price + cf) * v
		if price > 0 {
			c.RemainingDuration[t] = weighted / price
		}
	}

	c.EndTimestep = 0
	for t := h; t >= 0; t-- {
		if c.Premium[t] != 0 || c.Cost[t] != 0 || c.Death[t] != 0 || c.Surrender[t] != 0 ||
			c.Maturity[t] != 0 || c.Reserve[t] != 0 {
			c.EndTimestep = t
			break
		}
	}
}

// allocateSurplusFund distributes each year's surplus-fund cash flow back onto the
// cohorts, walking t = H..1 so that the successor keys are known.
func allocateSurplusFund(g *Graph, ps *PathState) {
	n := len(g.Cohorts)
	weights := make([]float64, n)
	fallback := make([]float64, n)
	eligible := make([]bool, n)
	for i, c := range g.Cohorts {
		eligible[i] = c.ProfitSharing()
	}

	var successor []float64
	for t := g.Horizon; t >= 1; t-- {
		for i := range g.Cohorts {
			r := &ps.Cohorts[i][t]
			weights[i] = r.BonusBenefits
			fallback[i] = r.ReserveBeforeDecl
		}
		shares := surplus.Shares(weights, successor, fallback, eligible)
		cf := ps.Aggregates[t].SurplusFundCF
		for i := range g.Cohorts {
			r := &ps.Cohorts[i][t]
			r.SurplusFundShare = shares[i]
			r.SurplusFundAllocation = cf * shares[i]
		}
		successor = shares
	}
}
