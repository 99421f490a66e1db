package projection

import (
	"fmt"

	"github.com/sawpanic/almrun/internal/record"
)

// checkFinite collects every non-finite checked field of timestep t
func (r *pathRun) checkFinite(t int) error {
	bad := record.NonFinite("aggregate.", r.ps.Aggregates[t].Fields())
	for i, c := range r.g.Cohorts {
		bad = append(bad, record.NonFinite(fmt.Sprintf("cohort[%s].", c.Key), r.ps.Cohorts[i][t].Fields())...)
		if c.Fund >= 0 {
			bad = append(bad, record.NonFinite(fmt.Sprintf("fund[%s].", c.Key), r.ps.Funds[c.Fund][t].Fields())...)
		}
	}
	if len(bad) == 0 {
		return nil
	}
	return &NonFiniteError{Scenario: r.g.Scenario.ID, Path: r.ps.Path, Timestep: t, Fields: bad}
}
