package projection

import "github.com/sawpanic/almrun/internal/record"

// CohortRecord is the state of one cohort at one timestep of one path
type CohortRecord struct {
	T int

	Persistence   float64
	Lapse         float64
	Capital       float64
	RateGap       float64
	ExcessLapse   float64
	CapitalChoice float64
	LockInFactor  float64

	Premium            float64
	Surcharge          float64
	Cost               float64
	Death              float64
	Surrender          float64
	Maturity           float64
	LapseExits         float64
	PenaltyGain        float64
	CapitalExits       float64
	FundShortfall      float64
	Reinsurance        float64
	RiskResult         float64
	OtherResult        float64
	PVGuaranteed       float64
	PVOther            float64
	TechnicalInterest  float64
	ReserveBeforeDecl  float64
	ZZR                float64
	ZZRChange          float64
	GuaranteedBenefits float64

	Bonus            float64
	LockIn           float64
	BonusCash        float64
	SuafContribution float64
	PayoutRatio      float64
	TerminalBonus    float64
	EndPayment       float64
	Suaf             float64
	Reserve          float64
	LockInReserve    float64
	CreditedRate     float64
	ActualBenefits   float64
	BonusBenefits    float64

	SurplusFundContribution float64
	SurplusFundShare        float64
	SurplusFundAllocation   float64
}

// Benefits is the sum of death, surrender and maturity payments
func (r *CohortRecord) Benefits() float64 { return r.Death + r.Surrender + r.Maturity }

func (r *CohortRecord) Fields() []record.Field {
	return []record.Field{
		{Name: "persistence", Value: r.Persistence, Checked: true},
		{Name: "lapse_multiplier", Value: r.Lapse, Checked: true},
		{Name: "capital_multiplier", Value: r.Capital, Checked: true},
		{Name: "rate_gap", Value: r.RateGap, Checked: true},
		{Name: "excess_lapse", Value: r.ExcessLapse, Checked: true},
		{Name: "capital_choice", Value: r.CapitalChoice, Checked: true},
		{Name: "lock_in_factor", Value: r.LockInFactor, Checked: true},
		{Name: "premium", Value: r.Premium, Checked: true},
		{Name: "surcharge", Value: r.Surcharge, Checked: true},
		{Name: "cost", Value: r.Cost, Checked: true},
		{Name: "death", Value: r.Death, Checked: true},
		{Name: "surrender", Value: r.Surrender, Checked: true},
		{Name: "maturity", Value: r.Maturity, Checked: true},
		{Name: "lapse_exits", Value: r.LapseExits, Checked: true},
		{Name: "penalty_gain", Value: r.PenaltyGain, Checked: true},
		{Name: "capital_exits", Value: r.CapitalExits, Checked: true},
		{Name: "fund_shortfall", Value: r.FundShortfall, Checked: true},
		{Name: "reinsurance", Value: r.Reinsurance, Checked: true},
		{Name: "risk_result", Value: r.RiskResult, Checked: true},
		{Name: "other_result", Value: r.OtherResult, Checked: true},
		{Name: "pv_guaranteed", Value: r.PVGuaranteed, Checked: true},
		{Name: "pv_other", Value: r.PVOther, Checked: true},
		{Name: "technical_interest", Value: r.TechnicalInterest, Checked: true},
		{Name: "reserve_before_declaration", Value: r.ReserveBeforeDecl, Checked: true},
		{Name: "zzr", Value: r.ZZR, Checked: true},
		{Name: "zzr_change", Value: r.ZZRChange, Checked: true},
		{Name: "guaranteed_benefits", Value: r.GuaranteedBenefits, Checked: true},
		{Name: "bonus", Value: r.Bonus, Checked: true},
		{Name: "lock_in", Value: r.LockIn, Checked: true},
		{Name: "bonus_cash", Value: r.BonusCash, Checked: true},
		{Name: "suaf_contribution", Value: r.SuafContribution, Checked: true},
		{Name: "payout_ratio", Value: r.PayoutRatio, Checked: true},
		{Name: "terminal_bonus", Value: r.TerminalBonus, Checked: true},
		{Name: "end_payment", Value: r.EndPayment, Checked: true},
		{Name: "suaf", Value: r.Suaf, Checked: true},
		{Name: "reserve", Value: r.Reserve, Checked: true},
		{Name: "lock_in_reserve", Value: r.LockInReserve, Checked: true},
		{Name: "credited_rate", Value: r.CreditedRate, Checked: true},
		{Name: "actual_benefits", Value: r.ActualBenefits, Checked: true},
		{Name: "bonus_benefits", Value: r.BonusBenefits, Checked: true},
		{Name: "surplus_fund_contribution", Value: r.SurplusFundContribution, Checked: true},
		{Name: "surplus_fund_share", Value: r.SurplusFundShare, Checked: true},
		{Name: "surplus_fund_allocation", Value: r.SurplusFundAllocation, Checked: true},
	}
}

// FundRecord is the unit-linked fund of a Fonds cohort at one timestep
type FundRecord struct {
	T                  int
	Premium            float64
	Charges            float64
	RetainedCharges    float64
	Return             float64
	Growth             float64
	Payout             float64
	GuaranteeShortfall float64
	Value              float64
}

func (r *FundRecord) Fields() []record.Field {
	return []record.Field{
		{Name: "premium", Value: r.Premium, Checked: true},
		{Name: "charges", Value: r.Charges, Checked: true},
		{Name: "retained_charges", Value: r.RetainedCharges, Checked: true},
		{Name: "return", Value: r.Return, Checked: true},
		{Name: "growth", Value: r.Growth, Checked: true},
		{Name: "payout", Value: r.Payout, Checked: true},
		{Name: "guarantee_shortfall", Value: r.GuaranteeShortfall, Checked: true},
		{Name: "value", Value: r.Value, Checked: true},
	}
}

// AggregateRecord is the company view at one timestep of one path
type AggregateRecord struct {
	T int

	// path observables
	Spot1Y          float64
	ZZRSpot         float64
	ReferenceSpot10 float64
	DiscountFactor  float64
	EquityIndex     float64
	PropertyIndex   float64
	DividendYield   float64
	RentYield       float64
	ReferenceRate   float64
	MeanSpot        float64

	// fixed income before transactions
	ExistingCashFlow    float64
	ExistingEarnings    float64
	ExistingBookValue   float64
	Accrual             float64
	NewCoupons          float64
	NewPrincipal        float64
	NewBookValue        float64
	FIMarketValueBefore float64

	// equities and real estate before transactions
	EQMarketValueBefore float64
	EQBookValueBefore   float64
	DividendIncome      float64
	REMarketValueBefore float64
	REBookValueBefore   float64
	RentIncome          float64

	// financing
	CreditRepayment  float64
	CreditInterest   float64
	SubDebtNominal   float64
	SubDebtCoupon    float64
	SubDebtRepayment float64
	SubDebtIssued    float64

	// cohort sums
	Premiums               float64
	Surcharges             float64
	Costs                  float64
	DeathBenefits          float64
	SurrenderBenefits      float64
	MaturityBenefits       float64
	LapseExits             float64
	CapitalExits           float64
	PenaltyGain            float64
	Reinsurance            float64
	RiskResult             float64
	OtherResult            float64
	TechnicalInterest      float64
	ZZR                    float64
	ZZRChange              float64
	ReserveBeforeDecl      float64
	GuaranteedBenefits     float64
	PVGuaranteed           float64
	PVOther                float64
	ReserveBeforeDeclUeb   float64
	ReserveUebOld          float64
	ReserveUebNew          float64
	TechnicalInterestUeb   float64
	ZZRChangeUeb           float64
	RiskResultUeb          float64
	OtherResultUeb         float64
	FundValue              float64
	FundPremiums           float64
	FundCharges            float64
	FundRetainedCharges    float64
	FundPayout             float64
	FundGuaranteeShortfall float64

	// asset management
	TargetFIRatio          float64
	MinFIRatio             float64
	TargetRERatio          float64
	MinRERatio             float64
	TargetEQRatio          float64
	ReserveQuota           float64
	EQWriteDown            float64
	REWriteDown            float64
	EQPlannedRealization   float64
	REPlannedRealization   float64
	EQShortfallRealization float64
	REShortfallRealization float64
	FIEarnings             float64
	FIEarningsBooked       float64
	FIDeficit              float64
	InvestmentCosts        float64
	CapitalIncome          float64
	NetYield               float64

	// surplus and declaration
	RawSurplus               float64
	TrailingSurplus          float64
	MinimumContribution      float64
	RfBContribution          float64
	ForcedFromFree           float64
	ForcedFromSuaf           float64
	SuafAvailableRatio       float64
	DeclaredRate             float64
	TerminalContributionRate float64
	InterestPortion          float64
	TerminalPortion          float64
	FreeRfB                  float64
	PreTaxResult             float64
	TaxCurrent               float64
	TaxDeferredCorrection    float64
	TaxExpense               float64
	LossCarryForward         float64
	LatentTax                float64
	NetIncome                float64
	Dividend                 float64
	Equity                   float64

	// year end
	LockIn            float64
	TerminalBonusPaid float64
	EndPayments       float64
	BonusCash         float64
	Suaf              float64
	Reserve           float64
	LockInReserve     float64
	FinalDistribution float64
	SurplusFundCF     float64
	CashBeforeCredit  float64
	Credit            float64
	CreditRate        float64
	PurchasesFI       float64
	PurchasesEQ       float64
	PurchasesRE       float64
	NewBondCoupon     float64
	FIBookValue       float64
	FIMarketValue     float64
	EQBookValue       float64
	EQMarketValue     float64
	REBookValue       float64
	REMarketValue     float64
	TotalBookValue    float64
	TotalMarketValue  float64
	BalanceGap        float64

	// reinvestment ladders indexed by residual maturity
	newCoupons   []float64
	newPrincipal []float64
}

func (r *AggregateRecord) Fields() []record.Field {
	f := func(name string, v float64) record.Field { return record.Field{Name: name, Value: v, Checked: true} }
	return []record.Field{
		f("spot_1y", r.Spot1Y),
		f("zzr_spot", r.ZZRSpot),
		f("reference_spot_10y", r.ReferenceSpot10),
		f("discount_factor", r.DiscountFactor),
		f("equity_index", r.EquityIndex),
		f("property_index", r.PropertyIndex),
		f("dividend_yield", r.DividendYield),
		f("rent_yield", r.RentYield),
		f("reference_rate", r.ReferenceRate),
		f("mean_spot", r.MeanSpot),
		f("existing_cash_flow", r.ExistingCashFlow),
		f("existing_earnings", r.ExistingEarnings),
		f("existing_book_value", r.ExistingBookValue),
		f("accrual", r.Accrual),
		f("new_coupons", r.NewCoupons),
		f("new_principal", r.NewPrincipal),
		f("new_book_value", r.NewBookValue),
		f("fi_market_value_before", r.FIMarketValueBefore),
		f("eq_market_value_before", r.EQMarketValueBefore),
		f("eq_book_value_before", r.EQBookValueBefore),
		f("dividend_income", r.DividendIncome),
		f("re_market_value_before", r.REMarketValueBefore),
		f("re_book_value_before", r.REBookValueBefore),
		f("rent_income", r.RentIncome),
		f("credit_repayment", r.CreditRepayment),
		f("credit_interest", r.CreditInterest),
		f("sub_debt_nominal", r.SubDebtNominal),
		f("sub_debt_coupon", r.SubDebtCoupon),
		f("sub_debt_repayment", r.SubDebtRepayment),
		f("sub_debt_issued", r.SubDebtIssued),
		f("premiums", r.Premiums),
		f("surcharges", r.Surcharges),
		f("costs", r.Costs),
		f("death_benefits", r.DeathBenefits),
		f("surrender_benefits", r.SurrenderBenefits),
		f("maturity_benefits", r.MaturityBenefits),
		f("lapse_exits", r.LapseExits),
		f("capital_exits", r.CapitalExits),
		f("penalty_gain", r.PenaltyGain),
		f("reinsurance", r.Reinsurance),
		f("risk_result", r.RiskResult),
		f("other_result", r.OtherResult),
		f("technical_interest", r.TechnicalInterest),
		f("zzr", r.ZZR),
		f("zzr_change", r.ZZRChange),
		f("reserve_before_declaration", r.ReserveBeforeDecl),
		f("guaranteed_benefits", r.GuaranteedBenefits),
		f("pv_guaranteed", r.PVGuaranteed),
		f("pv_other", r.PVOther),
		f("reserve_before_declaration_ueb", r.ReserveBeforeDeclUeb),
		f("reserve_ueb_old", r.ReserveUebOld),
		f("reserve_ueb_new", r.ReserveUebNew),
		f("technical_interest_ueb", r.TechnicalInterestUeb),
		f("zzr_change_ueb", r.ZZRChangeUeb),
		f("risk_result_ueb", r.RiskResultUeb),
		f("other_result_ueb", r.OtherResultUeb),
		f("fund_value", r.FundValue),
		f("fund_premiums", r.FundPremiums),
		f("fund_charges", r.FundCharges),
		f("fund_retained_charges", r.FundRetainedCharges),
		f("fund_payout", r.FundPayout),
		f("fund_guarantee_shortfall", r.FundGuaranteeShortfall),
		f("target_fi_ratio", r.TargetFIRatio),
		f("min_fi_ratio", r.MinFIRatio),
		f("target_re_ratio", r.TargetRERatio),
		f("min_re_ratio", r.MinRERatio),
		f("target_eq_ratio", r.TargetEQRatio),
		f("reserve_quota", r.ReserveQuota),
		f("eq_write_down", r.EQWriteDown),
		f("re_write_down", r.REWriteDown),
		f("eq_planned_realization", r.EQPlannedRealization),
		f("re_planned_realization", r.REPlannedRealization),
		f("eq_shortfall_realization", r.EQShortfallRealization),
		f("re_shortfall_realization", r.REShortfallRealization),
		f("fi_earnings", r.FIEarnings),
		f("fi_earnings_booked", r.FIEarningsBooked),
		f("fi_deficit", r.FIDeficit),
		f("investment_costs", r.InvestmentCosts),
		f("capital_income", r.CapitalIncome),
		f("net_yield", r.NetYield),
		f("raw_surplus", r.RawSurplus),
		f("trailing_surplus", r.TrailingSurplus),
		f("minimum_contribution", r.MinimumContribution),
		f("rfb_contribution", r.RfBContribution),
		f("forced_from_free", r.ForcedFromFree),
		f("forced_from_suaf", r.ForcedFromSuaf),
		f("suaf_available_ratio", r.SuafAvailableRatio),
		f("declared_rate", r.DeclaredRate),
		f("terminal_contribution_rate", r.TerminalContributionRate),
		f("interest_portion", r.InterestPortion),
		f("terminal_portion", r.TerminalPortion),
		f("free_rfb", r.FreeRfB),
		f("pre_tax_result", r.PreTaxResult),
		f("tax_current", r.TaxCurrent),
		f("tax_deferred_correction", r.TaxDeferredCorrection),
		f("tax_expense", r.TaxExpense),
		f("loss_carry_forward", r.LossCarryForward),
		f("latent_tax", r.LatentTax),
		f("net_income", r.NetIncome),
		f("dividend", r.Dividend),
		f("equity", r.Equity),
		f("lock_in", r.LockIn),
		f("terminal_bonus_paid", r.TerminalBonusPaid),
		f("end_payments", r.EndPayments),
		f("bonus_cash", r.BonusCash),
		f("suaf", r.Suaf),
		f("reserve", r.Reserve),
		f("lock_in_reserve", r.LockInReserve),
		f("final_distribution", r.FinalDistribution),
		f("surplus_fund_cf", r.SurplusFundCF),
		f("cash_before_credit", r.CashBeforeCredit),
		f("credit", r.Credit),
		f("credit_rate", r.CreditRate),
		f("purchases_fi", r.PurchasesFI),
		f("purchases_eq", r.PurchasesEQ),
		f("purchases_re", r.PurchasesRE),
		f("new_bond_coupon", r.NewBondCoupon),
		f("fi_book_value", r.FIBookValue),
		f("fi_market_value", r.FIMarketValue),
		f("eq_book_value", r.EQBookValue),
		f("eq_market_value", r.EQMarketValue),
		f("re_book_value", r.REBookValue),
		f("re_market_value", r.REMarketValue),
		f("total_book_value", r.TotalBookValue),
		f("total_market_value", r.TotalMarketValue),
		{Name: "balance_gap", Value: r.BalanceGap},
	}
}

// NewBondLadder returns copies of the reinvestment coupon and principal ladders
func (r *AggregateRecord) NewBondLadder() (coupons, principal []float64) {
	return append([]float64(nil), r.newCoupons...), append([]float64(nil), r.newPrincipal...)
}
