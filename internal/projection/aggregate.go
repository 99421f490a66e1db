package projection

import (
	"math"

	"github.com/sawpanic/almrun/internal/domain/assets"
	"github.com/sawpanic/almrun/internal/domain/balance"
	"github.com/sawpanic/almrun/internal/domain/declaration"
	"github.com/sawpanic/almrun/internal/domain/discount"
	"github.com/sawpanic/almrun/internal/domain/surplus"
)

// observe copies the path observables of timestep t
func (r *pathRun) observe(a *AggregateRecord, t int) {
	a.Spot1Y = r.path.SpotRate(t)
	a.ZZRSpot = r.path.TenYearZZRSpot(t)
	a.ReferenceSpot10 = r.path.SpotByResidualMaturity(t, 10)
	a.DiscountFactor = r.path.DiscountFactor(t)
	a.EquityIndex = r.path.EquityPrice(t)
	a.PropertyIndex = r.path.PropertyPrice(t)
	a.DividendYield = r.path.Dividend(t)
	a.RentYield = r.path.Rent(t)
	r.ps.zzrSpots[t] = a.ZZRSpot
	r.ps.spots10[t] = a.ReferenceSpot10
}

// seed builds timestep 0 of every chain from the balance-sheet seed and history
func (r *pathRun) seed() {
	a := &r.ps.Aggregates[0]
	seed, hist := r.in.Seed, r.in.History
	r.observe(a, 0)

	a.ReferenceRate = hist.ReferenceRate
	if a.ReferenceRate == 0 {
		a.ReferenceRate = discount.TrailingMean(r.ps.zzrSpots, hist.ZZRSpots, 0, r.rules.ReferenceWindow)
	}
	a.MeanSpot = discount.TrailingMean(r.ps.spots10, hist.ZZRSpots, 0, r.rules.MeanSpotWindow)
	a.DeclaredRate = hist.DeclaredRate
	a.NetYield = hist.NetYield
	if n := len(hist.RawSurplus); n > 0 {
		a.RawSurplus = hist.RawSurplus[n-1]
	}

	for _, c := range r.g.Cohorts {
		if c.Fund >= 0 {
			r.ps.Funds[c.Fund][0].Value = c.FundValue
		}
	}
	r.seedCohorts(a.ReferenceRate, hist.DeclaredRate)
	r.sumPass1(0)
	r.seedSuaf(seed.Suaf, a.ReserveBeforeDeclUeb)
	r.sumPass2(0)

	a.FreeRfB = seed.FreeRfB
	a.Equity = seed.Equity
	a.LatentTax = seed.LatentTax
	a.LossCarryForward = seed.LossCarryForward
	a.SubDebtNominal = r.in.SubDebt.At(0)

	m := r.rules.ReinvestMaturity
	a.newCoupons = make([]float64, m+1)
	a.newPrincipal = make([]float64, m+1)
	a.ExistingBookValue = seed.FIBookValue
	a.Accrual = r.g.Ladder.InitialAccrual
	a.FIMarketValueBefore = seed.FIMarketValue
	a.FIBookValue = seed.FIBookValue
	a.FIMarketValue = seed.FIMarketValue
	a.EQBookValue = seed.EQBookValue
	a.EQMarketValue = seed.EQMarketValue
	a.REBookValue = seed.REBookValue
	a.REMarketValue = seed.REMarketValue
	a.CreditRate = a.Spot1Y + r.rules.CreditSpread
	r.totals(a)
}

// aggregatePass1 prepares timestep t before any cohort moves
func (r *pathRun) aggregatePass1(t int) {
	a := &r.ps.Aggregates[t]
	p := &r.ps.Aggregates[t-1]
	hist := r.in.History
	r.observe(a, t)

	a.ReferenceRate = discount.TrailingMean(r.ps.zzrSpots, hist.ZZRSpots, t, r.rules.ReferenceWindow)
	if c := r.rules.ReferenceCorridor; c > 0 {
		a.ReferenceRate = math.Min(math.Max(a.ReferenceRate, p.ReferenceRate-c), p.ReferenceRate+c)
	}
	a.MeanSpot = discount.TrailingMean(r.ps.spots10, hist.ZZRSpots, t, r.rules.MeanSpotWindow)

	lr := r.g.Ladder.At(t)
	a.ExistingCashFlow = lr.AdjustedCashFlow
	a.ExistingEarnings = lr.AdjustedEarnings
	a.ExistingBookValue = lr.AdjustedBookValue
	a.Accrual = lr.Accrual

	m := r.rules.ReinvestMaturity
	a.newCoupons = make([]float64, m+1)
	a.newPrincipal = make([]float64, m+1)
	a.NewCoupons = assets.Shift(a.newCoupons, p.newCoupons)
	a.NewPrincipal = assets.Shift(a.newPrincipal, p.newPrincipal)
	a.NewBookValue = assets.Outstanding(a.newPrincipal)
	a.FIMarketValueBefore = r.fixedIncomeValue(t, a)

	a.EQMarketValueBefore = assets.Roll(p.EQMarketValue, r.path.EquityPrice(t-1), a.EquityIndex)
	a.EQBookValueBefore = p.EQBookValue
	a.DividendIncome = p.EQMarketValue * a.DividendYield
	a.REMarketValueBefore = assets.Roll(p.REMarketValue, r.path.PropertyPrice(t-1), a.PropertyIndex)
	a.REBookValueBefore = p.REBookValue
	a.RentIncome = p.REMarketValue * a.RentYield

	a.CreditRepayment, a.CreditInterest = balance.CreditRepayment(p.Credit, p.CreditRate)
	a.SubDebtNominal = r.in.SubDebt.At(t)
	a.SubDebtCoupon, a.SubDebtRepayment = balance.SubDebt(p.SubDebtNominal, a.SubDebtNominal, r.in.SubDebt.CouponRate)
	a.SubDebtIssued = math.Max(0, a.SubDebtNominal-p.SubDebtNominal)
}

// fixedIncomeValue discounts the remaining existing and reinvested bond flows on the
// path curve of timestep t
func (r *pathRun) fixedIncomeValue(t int, a *AggregateRecord) float64 {
	existing := r.g.Ladder.RemainingCashFlows(t)
	cfs := make([]float64, max(len(existing), len(a.newCoupons)))
	copy(cfs, existing)
	for m := 1; m < len(a.newCoupons); m++ {
		cfs[m] += a.newCoupons[m] + a.newPrincipal[m]
	}
	curve := func(m int) float64 { return r.path.SpotByResidualMaturity(t, m) }
	return discount.PresentValue(curve, cfs, discount.MidYearOffset)
}

// sumPass1 aggregates the cohort and fund records after cohort pass 1
func (r *pathRun) sumPass1(t int) {
	a := &r.ps.Aggregates[t]
	for i, c := range r.g.Cohorts {
		cr := &r.ps.Cohorts[i][t]
		a.Premiums += cr.Premium
		a.Surcharges += cr.Surcharge
		a.Costs += cr.Cost
		a.DeathBenefits += cr.Death
		a.SurrenderBenefits += cr.Surrender
		a.MaturityBenefits += cr.Maturity
		a.LapseExits += cr.LapseExits
		a.CapitalExits += cr.CapitalExits
		a.PenaltyGain += cr.PenaltyGain
		a.Reinsurance += cr.Reinsurance
		a.RiskResult += cr.RiskResult
		a.OtherResult += cr.OtherResult
		a.TechnicalInterest += cr.TechnicalInterest
		a.ZZR += cr.ZZR
		a.ZZRChange += cr.ZZRChange
		a.ReserveBeforeDecl += cr.ReserveBeforeDecl
		a.GuaranteedBenefits += cr.GuaranteedBenefits
		a.PVGuaranteed += cr.PVGuaranteed
		a.PVOther += cr.PVOther

		if c.ProfitSharing() {
			a.ReserveBeforeDeclUeb += cr.ReserveBeforeDecl
			if c.Key.Business == BusinessNew {
				a.ReserveUebNew += cr.ReserveBeforeDecl
			} else {
				a.ReserveUebOld += cr.ReserveBeforeDecl
			}
			a.TechnicalInterestUeb += cr.TechnicalInterest
			a.ZZRChangeUeb += cr.ZZRChange
			a.RiskResultUeb += cr.RiskResult
			a.OtherResultUeb += cr.OtherResult
		}

		if c.Fund >= 0 {
			f := &r.ps.Funds[c.Fund][t]
			a.FundValue += f.Value
			a.FundPremiums += f.Premium
			a.FundCharges += f.Charges
			a.FundRetainedCharges += f.RetainedCharges
			a.FundPayout += f.Payout
			a.FundGuaranteeShortfall += f.GuaranteeShortfall
		}
	}
}

// sumPass2 aggregates the cohort records after cohort pass 2
func (r *pathRun) sumPass2(t int) {
	a := &r.ps.Aggregates[t]
	a.LockIn, a.TerminalBonusPaid, a.EndPayments, a.BonusCash = 0, 0, 0, 0
	a.Suaf, a.Reserve, a.LockInReserve = 0, 0, 0
	for i := range r.g.Cohorts {
		cr := &r.ps.Cohorts[i][t]
		a.LockIn += cr.LockIn
		a.TerminalBonusPaid += cr.TerminalBonus
		a.EndPayments += cr.EndPayment
		a.BonusCash += cr.BonusCash
		a.Suaf += cr.Suaf
		a.Reserve += cr.Reserve
		a.LockInReserve += cr.LockInReserve
	}
}

// aggregatePass2 runs asset management, the surplus computation and the declaration
// of timestep t
func (r *pathRun) aggregatePass2(t int) {
	a := &r.ps.Aggregates[t]
	p := &r.ps.Aggregates[t-1]
	rules := r.rules
	r.sumPass1(t)

	ratios := assets.Allocate(rules.Allocation, a.MeanSpot, p.NetYield, p.ReserveQuota)
	a.TargetFIRatio, a.MinFIRatio = ratios.TargetFI, ratios.MinFI
	a.TargetRERatio, a.MinRERatio = ratios.TargetRE, ratios.MinRE
	a.TargetEQRatio = ratios.TargetEQ

	a.EQWriteDown = assets.WriteDown(a.EQBookValueBefore, a.EQMarketValueBefore)
	a.REWriteDown = assets.WriteDown(a.REBookValueBefore, a.REMarketValueBefore)
	a.EQBookValue = a.EQBookValueBefore - a.EQWriteDown
	a.REBookValue = a.REBookValueBefore - a.REWriteDown
	a.EQPlannedRealization = assets.PlannedRealization(a.EQBookValue, a.EQMarketValueBefore, rules.TargetBookToMarketEQ)
	a.REPlannedRealization = assets.PlannedRealization(a.REBookValue, a.REMarketValueBefore, rules.TargetBookToMarketRE)
	a.EQBookValue += a.EQPlannedRealization
	a.REBookValue += a.REPlannedRealization

	a.FIEarnings = a.ExistingEarnings + a.Accrual - p.Accrual + a.NewCoupons
	a.FIEarningsBooked, a.FIDeficit = assets.NetDeficit(a.FIEarnings, p.FIDeficit)
	a.InvestmentCosts = rules.InvestmentCostRate * p.TotalBookValue

	income := a.FIEarningsBooked + a.DividendIncome + a.RentIncome +
		a.EQPlannedRealization + a.REPlannedRealization -
		a.EQWriteDown - a.REWriteDown - a.InvestmentCosts
	shortfall := a.TechnicalInterest + a.ZZRChange - income
	a.EQShortfallRealization, a.REShortfallRealization = assets.ShortfallRealization(shortfall,
		a.EQMarketValueBefore-a.EQBookValue, a.REMarketValueBefore-a.REBookValue)
	a.EQBookValue += a.EQShortfallRealization
	a.REBookValue += a.REShortfallRealization
	a.CapitalIncome = income + a.EQShortfallRealization + a.REShortfallRealization
	a.NetYield = assets.NetYield(a.CapitalIncome, p.TotalBookValue)

	a.RawSurplus = surplus.Raw(surplus.RawInputs{
		CapitalIncome:      a.CapitalIncome,
		TechnicalInterest:  a.TechnicalInterest,
		ZZRChange:          a.ZZRChange,
		RiskResult:         a.RiskResult,
		Reinsurance:        a.Reinsurance,
		OtherResult:        a.OtherResult,
		CreditInterest:     a.CreditInterest,
		SubordinatedCoupon: a.SubDebtCoupon,
	})
	r.ps.rawSurplus[t] = a.RawSurplus

	a.MinimumContribution = surplus.MinimumContribution(surplus.MinimumInputs{
		CapitalIncome:     surplus.ProfitShare(a.CapitalIncome, a.ReserveBeforeDeclUeb, a.ReserveBeforeDecl),
		TechnicalInterest: a.TechnicalInterestUeb,
		ZZRChange:         a.ZZRChangeUeb,
		RiskResult:        a.RiskResultUeb,
		OtherResult:       a.OtherResultUeb,
	}, rules.Minimum)
	a.TrailingSurplus = discount.TrailingMean(r.ps.rawSurplus[1:], r.in.History.RawSurplus, t-1, rules.SurplusWindow)
	a.RfBContribution = declaration.Contribution(a.MinimumContribution, a.RawSurplus, a.TrailingSurplus, rules.Participation)

	equityAfterLoss := p.Equity + a.RawSurplus - a.RfBContribution
	forced := declaration.Forced(equityAfterLoss, rules.MinEquityRatio*a.ReserveBeforeDecl,
		p.FreeRfB+a.RfBContribution, p.Suaf, rules.SuafShare56b)
	a.ForcedFromFree, a.ForcedFromSuaf = forced.FromFree, forced.FromSuaf
	a.SuafAvailableRatio = declaration.AvailableRatio(p.Suaf, forced.FromSuaf)

	step := rules.At(t)
	cascade := declaration.Declare(p.FreeRfB+a.RfBContribution-forced.FromFree,
		step.DrawShare, step.TargetExcessRate, a.ReserveBeforeDeclUeb, step.TerminalShare)
	a.DeclaredRate = cascade.DeclaredRate
	a.TerminalContributionRate = cascade.TerminalRate
	a.InterestPortion = cascade.InterestPortion
	a.TerminalPortion = cascade.TerminalPortion
	a.FreeRfB = cascade.RemainingFreeRfB

	a.PreTaxResult = a.RawSurplus - a.RfBContribution + forced.Total()
	tax := balance.ComputeTax(a.PreTaxResult, p.LossCarryForward, p.LatentTax, rules.TaxRate, rules.LatentRelease)
	a.TaxCurrent = tax.Current
	a.TaxDeferredCorrection = tax.DeferredCorrection
	a.TaxExpense = tax.Expense
	a.LossCarryForward = tax.LossCarryForward
	a.LatentTax = tax.LatentTax
	a.NetIncome = a.PreTaxResult - a.TaxExpense
	a.Equity, a.Dividend = balance.Equity(p.Equity, a.NetIncome, rules.DividendPayout)
}

// aggregatePass3 closes timestep t: year-end sums, cash flow, credit and reinvestment
func (r *pathRun) aggregatePass3(t int) {
	a := &r.ps.Aggregates[t]
	r.sumPass2(t)

	if t == r.g.Horizon {
		a.FinalDistribution = a.FreeRfB
		a.FreeRfB = 0
	}
	a.SurplusFundCF = a.InterestPortion + a.TerminalPortion + a.FinalDistribution

	insurance := a.Premiums + a.Surcharges + a.Reinsurance + a.FundRetainedCharges -
		a.Costs - a.DeathBenefits - a.SurrenderBenefits - a.MaturityBenefits -
		a.TerminalBonusPaid - a.EndPayments - a.BonusCash - a.FinalDistribution
	investment := a.ExistingCashFlow + a.NewCoupons + a.NewPrincipal +
		a.DividendIncome + a.RentIncome - a.InvestmentCosts
	company := a.SubDebtIssued - a.SubDebtCoupon - a.SubDebtRepayment -
		a.CreditRepayment - a.TaxCurrent - a.Dividend
	a.CashBeforeCredit = insurance + investment + company

	var investable float64
	a.Credit, investable = balance.Credit(a.CashBeforeCredit)
	a.CreditRate = a.Spot1Y + r.rules.CreditSpread

	buy := assets.Reinvest(investable,
		assets.Holdings{FI: a.ExistingBookValue + a.NewBookValue, EQ: a.EQBookValue, RE: a.REBookValue},
		assets.Ratios{TargetFI: a.TargetFIRatio, MinFI: a.MinFIRatio, TargetRE: a.TargetRERatio, MinRE: a.MinRERatio, TargetEQ: a.TargetEQRatio})
	a.PurchasesFI, a.PurchasesEQ, a.PurchasesRE = buy.FI, buy.EQ, buy.RE

	m := r.rules.ReinvestMaturity
	a.NewBondCoupon = r.path.CouponByResidualMaturity(t, m)
	assets.AddParBond(a.newCoupons, a.newPrincipal, buy.FI, a.NewBondCoupon, m)
	a.NewBookValue += buy.FI

	a.FIBookValue = a.ExistingBookValue + a.NewBookValue
	a.FIMarketValue = a.FIMarketValueBefore + buy.FI
	a.EQBookValue += buy.EQ
	a.EQMarketValue = a.EQMarketValueBefore + buy.EQ
	a.REBookValue += buy.RE
	a.REMarketValue = a.REMarketValueBefore + buy.RE
	r.totals(a)
}

// totals closes the asset side and the balance-sheet gap diagnostic
func (r *pathRun) totals(a *AggregateRecord) {
	a.TotalBookValue = a.FIBookValue + a.EQBookValue + a.REBookValue
	a.TotalMarketValue = a.FIMarketValue + a.EQMarketValue + a.REMarketValue
	a.ReserveQuota = assets.ReserveQuota(a.TotalBookValue, a.TotalMarketValue)
	liabilities := a.Reserve + a.ZZR + a.FreeRfB + a.Suaf + a.Equity + a.SubDebtNominal + a.Credit + a.LatentTax
	a.BalanceGap = a.TotalBookValue + a.Accrual - liabilities
}
