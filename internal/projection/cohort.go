package projection

import (
	"math"

	"github.com/sawpanic/almrun/internal/domain/behavior"
	"github.com/sawpanic/almrun/internal/domain/declaration"
)

// seedCohorts fills timestep 0: full persistence, seed reserve, ZZR on the seed
// reference rate and the historical credited rate.
func (r *pathRun) seedCohorts(ref, declared float64) {
	for i, c := range r.g.Cohorts {
		cr := &r.ps.Cohorts[i][0]
		cr.Persistence, cr.Lapse, cr.Capital = 1, 1, 1
		cr.ReserveBeforeDecl = c.Reserve[0]
		cr.Reserve = c.Reserve[0]
		cr.ZZR = r.zzr(c, cr.ReserveBeforeDecl, ref, 0)
		cr.CreditedRate = c.TechnicalRate
		if c.ProfitSharing() {
			cr.CreditedRate += declared
		}
	}
}

// seedSuaf splits the opening terminal-bonus fund by profit-participating reserve.
// Shares of Fonds cohorts land on their classic sibling. Input validation rejects a
// non-zero fund without participating reserve.
func (r *pathRun) seedSuaf(total, reserveUeb float64) {
	if reserveUeb == 0 {
		return
	}
	for i, c := range r.g.Cohorts {
		if !c.ProfitSharing() {
			continue
		}
		share := total * r.ps.Cohorts[i][0].ReserveBeforeDecl / reserveUeb
		target := i
		if c.Sibling >= 0 {
			target = c.Sibling
		}
		r.ps.Cohorts[target][0].Suaf += share
	}
}

func (r *pathRun) zzr(c *CohortStatic, reserve, ref float64, t int) float64 {
	return reserve * math.Max(0, c.TechnicalRate-ref) * math.Min(c.RemainingDuration[t], r.rules.ZZRCapYears)
}

// cohortPass1 applies policyholder behavior and projects the guaranteed cash flows of
// timestep t.
func (r *pathRun) cohortPass1(t int) {
	a := &r.ps.Aggregates[t]
	for i, c := range r.g.Cohorts {
		p := &r.ps.Cohorts[i][t-1]
		cr := &r.ps.Cohorts[i][t]
		b := c.LoB.Behavior

		cr.RateGap = behavior.RateGap(a.ReferenceSpot10, p.CreditedRate)
		cr.ExcessLapse = behavior.ExcessLapse(cr.RateGap, b)
		cr.CapitalChoice = behavior.CapitalChoice(cr.RateGap, b, c.LoB.CapitalOption, c.Maturity[t])
		cr.Lapse = behavior.Multiplier(p.Lapse, cr.ExcessLapse)
		cr.Capital = behavior.Multiplier(p.Capital, cr.CapitalChoice)
		cr.Persistence = cr.Lapse * cr.Capital

		cr.Premium = p.Persistence * c.Premium[t]
		cr.Surcharge = cr.Premium * r.rules.SurchargeRate
		cr.Cost = p.Persistence * c.Cost[t]

		perUnit := c.Reserve[t] + p.LockInFactor*c.BonusBase[t]
		exits := behavior.ExitPayments(p.Persistence, cr.ExcessLapse, cr.CapitalChoice, perUnit, b.SurrenderPenalty)
		cr.LapseExits = exits.LapsePayout
		cr.PenaltyGain = exits.PenaltyGain
		cr.CapitalExits = exits.CapitalPayout

		var retained float64
		if c.Fund >= 0 {
			f := &r.ps.Funds[c.Fund][t]
			cr.FundShortfall = f.GuaranteeShortfall
			retained = f.RetainedCharges
		}

		scale := (1 + p.LockInFactor) * p.Persistence
		cr.Death = scale * c.Death[t]
		cr.Surrender = scale*c.Surrender[t] + cr.LapseExits
		cr.Maturity = scale*c.Maturity[t] + cr.CapitalExits + cr.FundShortfall

		cr.Reinsurance = -r.rules.CededShare * p.Persistence * c.Risk[t]
		cr.RiskResult = p.Persistence * c.Risk[t]
		cr.OtherResult = p.Persistence*c.Other[t] + cr.PenaltyGain + cr.Surcharge + retained

		cr.PVGuaranteed = cr.Persistence * c.PVG[t]
		cr.PVOther = cr.Persistence * c.PVO[t]

		cr.TechnicalInterest = c.TechnicalRate * (p.Reserve + cr.Premium - cr.Cost)
		cr.ReserveBeforeDecl = cr.Persistence * perUnit
		cr.ZZR = r.zzr(c, cr.ReserveBeforeDecl, a.ReferenceRate, t)
		cr.ZZRChange = cr.ZZR - p.ZZR

		cr.GuaranteedBenefits = p.Persistence*(c.Death[t]+c.Surrender[t]+c.Maturity[t]) +
			(p.Persistence-cr.Persistence)*c.Reserve[t]
	}
}

// cohortPass2 books the declaration of timestep t onto the cohorts. Fonds cohorts come
// first and hand their terminal-bonus fund over to the classic sibling.
func (r *pathRun) cohortPass2(t int) {
	a := &r.ps.Aggregates[t]
	for i := range r.ps.redirect {
		r.ps.redirect[i] = 0
	}

	for i, c := range r.g.Cohorts {
		p := &r.ps.Cohorts[i][t-1]
		cr := &r.ps.Cohorts[i][t]

		cr.LockInFactor = p.LockInFactor
		if c.ProfitSharing() && cr.ReserveBeforeDecl != 0 {
			cr.Bonus = a.DeclaredRate * cr.ReserveBeforeDecl
			cr.LockInFactor, cr.BonusCash = declaration.LockIn(p.LockInFactor, cr.Bonus, cr.Persistence, c.BonusBase[t])
			cr.LockIn = cr.Bonus - cr.BonusCash
			cr.SuafContribution = a.TerminalContributionRate * cr.ReserveBeforeDecl
		}

		benefits := cr.Benefits()
		cr.PayoutRatio = declaration.PayoutRatio(benefits, cr.ReserveBeforeDecl)
		paid, carried := declaration.TerminalBonus(p.Suaf, a.SuafAvailableRatio, cr.PayoutRatio)
		cr.TerminalBonus = paid

		if c.Sibling >= 0 {
			r.ps.redirect[c.Sibling] += carried + cr.SuafContribution
		} else {
			suaf := carried + cr.SuafContribution + r.ps.redirect[i]
			if t >= c.EndTimestep || t == r.g.Horizon {
				cr.EndPayment = suaf
				suaf = 0
			}
			cr.Suaf = suaf
		}

		cr.Reserve = cr.ReserveBeforeDecl + cr.LockIn
		cr.LockInReserve = cr.Persistence * cr.LockInFactor * c.BonusBase[t]
		cr.CreditedRate = c.TechnicalRate
		if c.ProfitSharing() {
			cr.CreditedRate += a.DeclaredRate
		}
		cr.ActualBenefits = benefits + cr.TerminalBonus + cr.EndPayment + cr.BonusCash
		cr.BonusBenefits = cr.ActualBenefits - cr.GuaranteedBenefits
	}
}

// cohortPass3 allocates the year's RfB contribution by reserve before declaration
func (r *pathRun) cohortPass3(t int) {
	a := &r.ps.Aggregates[t]
	if a.ReserveBeforeDeclUeb == 0 {
		return
	}
	for i, c := range r.g.Cohorts {
		if !c.ProfitSharing() {
			continue
		}
		cr := &r.ps.Cohorts[i][t]
		cr.SurplusFundContribution = a.RfBContribution * cr.ReserveBeforeDecl / a.ReserveBeforeDeclUeb
	}
}
