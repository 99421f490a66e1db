package projection

import "github.com/sawpanic/almrun/internal/domain/fundlinked"

// fundPass rolls the unit-linked funds of timestep t. Premiums and guarantees scale with
// the cohort's persistence at the start of the year.
func (r *pathRun) fundPass(t int) {
	ret := fundlinked.IndexReturn(r.path.EquityPrice(t-1), r.path.EquityPrice(t), r.path.Dividend(t))
	for i, c := range r.g.Cohorts {
		if c.Fund < 0 {
			continue
		}
		prev := &r.ps.Funds[c.Fund][t-1]
		f := &r.ps.Funds[c.Fund][t]
		pp := r.ps.Cohorts[i][t-1].Persistence

		res := fundlinked.Roll(fundlinked.Step{
			StartValue:       prev.Value,
			Premium:          pp * c.FundPremium[t],
			ChargeRate:       c.FundChargeRate,
			Return:           ret,
			PayoutRatio:      c.FundPayoutRatio[t],
			GuaranteedPayout: pp * c.FundGuarantee[t],
			ChargeRetention:  r.rules.FundChargeRetention,
		})
		f.Premium = pp * c.FundPremium[t]
		f.Charges = res.Charges
		f.RetainedCharges = res.RetainedCharges
		f.Return = ret
		f.Growth = res.Growth
		f.Payout = res.Payout
		f.GuaranteeShortfall = res.GuaranteeShortfall
		f.Value = res.EndValue
	}
}
