package projection

import (
	"github.com/sawpanic/almrun/internal/config"
	"github.com/sawpanic/almrun/internal/domain/behavior"
	"github.com/sawpanic/almrun/internal/scenario"
)

func series(v ...float64) []float64 { return v }

func flat(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// degenerateFixture is a three-year run with no market movement, no bonds and a
// single run-off cohort at technical rate zero.
func degenerateFixture() (*config.Inputs, *scenario.Scenario) {
	const h = 3
	curves := make([][]float64, h+1)
	for t := range curves {
		curves[t] = []float64{0, 0}
	}
	scen := &scenario.Scenario{
		ID:      "flat",
		Horizon: h,
		Initial: []float64{0, 0, 0, 0},
		Paths: []scenario.Table{{
			Number:   1,
			Equity:   flat(h+1, 1),
			Property: flat(h+1, 1),
			Curves:   curves,
		}},
	}
	zero := flat(h+1, 0)
	in := &config.Inputs{
		Rules: config.DefaultManagementRules(),
		LoBs:  []config.LoB{{Name: "endowment", ProfitSharing: true}},
		Cohorts: []config.CohortInput{{
			LoB: "endowment", Generation: 2004, Business: "old", Deposit: "kds",
			Rows: config.CohortRows{
				Premium: zero, Cost: zero, Death: zero, Surrender: zero, Maturity: zero,
				Reserve: series(100, 80, 50, 0),
			},
		}},
	}
	return in, scen
}

const richHorizon = 5

func richPath(n int, level, equityDrift float64) scenario.Table {
	curves := make([][]float64, richHorizon+1)
	equity := make([]float64, richHorizon+1)
	property := make([]float64, richHorizon+1)
	for t := range curves {
		s := level + 0.002*float64(t)
		curves[t] = []float64{0, s, s + 0.004, s + 0.008, s + 0.01, s + 0.012}
		equity[t] = 100 * (1 + equityDrift*float64(t))
		property[t] = 100 + float64(t)
	}
	return scenario.Table{
		Number:    n,
		Equity:    equity,
		Dividends: flat(richHorizon+1, 0.02),
		Property:  property,
		Rents:     flat(richHorizon+1, 0.03),
		Curves:    curves,
	}
}

// richFixture has a profit-participating line with a classic and a fund-linked deposit,
// a non-participating term line, an existing bond portfolio and three paths.
func richFixture() (*config.Inputs, *scenario.Scenario) {
	scen := &scenario.Scenario{
		ID:      "stress",
		Horizon: richHorizon,
		Initial: []float64{0, 0.01, 0.015, 0.02, 0.022, 0.025},
		Paths: []scenario.Table{
			richPath(1, 0.01, 0.04),
			richPath(2, 0.03, -0.05),
			richPath(3, 0.045, 0.01),
		},
	}

	rules := config.DefaultManagementRules()
	rules.SurchargeRate = 0.01
	rules.CededShare = 0.1
	rules.InvestmentCostRate = 0.001
	rules.FundChargeRetention = 0.5
	rules.LatentRelease = 0.1
	rules.DividendPayout = 0.5
	rules.CreditSpread = 0.01

	in := &config.Inputs{
		Rules: rules,
		LoBs: []config.LoB{
			{Name: "endowment", ProfitSharing: true, CapitalOption: true, Behavior: behavior.Params{
				LapseSensitivity: 2, LapseCap: 0.05, CapitalSensitivity: 1, CapitalCap: 0.1, SurrenderPenalty: 0.03,
			}},
			{Name: "term"},
		},
		Seed: config.BalanceSeed{
			FIBookValue: 900, FIMarketValue: 950,
			EQBookValue: 80, EQMarketValue: 100,
			REBookValue: 40, REMarketValue: 50,
			FreeRfB: 30, Suaf: 10, Equity: 60, LatentTax: 2,
		},
		SubDebt: config.SubDebtSchedule{CouponRate: 0.05, Nominal: series(20, 20, 20)},
		History: config.History{
			ZZRSpots:     series(0.035, 0.033, 0.03, 0.028, 0.025, 0.022, 0.02, 0.018, 0.015),
			RawSurplus:   series(5, 6, 7),
			DeclaredRate: 0.01,
			NetYield:     0.025,
		},
		ExistingBonds: config.ExistingBonds{
			CashFlows: series(30, 30, 30, 30, 1030),
			Earnings:  series(20, 20, 20, 20, 20),
		},
		Cohorts: []config.CohortInput{
			{
				LoB: "endowment", Generation: 2010, Business: "old", Deposit: "kds", TechnicalRate: 0.0175,
				Rows: config.CohortRows{
					Premium:   series(0, 10, 10, 10, 10, 0),
					Cost:      series(0, 1, 1, 1, 1, 0),
					Death:     series(0, 5, 5, 5, 5, 5),
					Surrender: series(0, 8, 8, 8, 8, 0),
					Maturity:  series(0, 0, 0, 0, 0, 600),
					Reserve:   series(600, 610, 620, 625, 630, 0),
					Risk:      series(0, 1, 1, 1, 1, 1),
					Other:     series(0, 0.5, 0.5, 0.5, 0.5, 0.5),
				},
			},
			{
				LoB: "endowment", Generation: 2010, Business: "old", Deposit: "fonds", TechnicalRate: 0.0175,
				FundValue: 50, FundChargeRate: 0.01,
				Rows: config.CohortRows{
					Premium:         series(0, 2, 2, 2, 2, 0),
					Cost:            flat(richHorizon+1, 0),
					Death:           flat(richHorizon+1, 0),
					Surrender:       flat(richHorizon+1, 0),
					Maturity:        series(0, 0, 0, 0, 0, 60),
					Reserve:         series(60, 61, 62, 63, 64, 0),
					FundPremium:     series(0, 3, 3, 3, 3, 0),
					FundPayoutRatio: series(0, 0, 0, 0, 0, 1),
					FundGuarantee:   series(0, 0, 0, 0, 0, 70),
				},
			},
			{
				LoB: "term", Generation: 2015, Business: "new", Deposit: "kds", TechnicalRate: 0.0125,
				Rows: config.CohortRows{
					Premium:   series(0, 4, 4, 4, 4, 0),
					Cost:      series(0, 0.5, 0.5, 0.5, 0.5, 0),
					Death:     series(0, 3, 3, 3, 3, 3),
					Surrender: flat(richHorizon+1, 0),
					Maturity:  flat(richHorizon+1, 0),
					Reserve:   series(40, 38, 35, 30, 20, 0),
				},
			},
		},
	}
	return in, scen
}

func richOptions() Options {
	return Options{Horizon: richHorizon, Workers: 2, FundLinked: true}
}

var (
	endowmentKDS   = CohortKey{LoB: "endowment", Generation: 2010, Business: BusinessOld, Deposit: DepositKDS}
	endowmentFonds = CohortKey{LoB: "endowment", Generation: 2010, Business: BusinessOld, Deposit: DepositFonds}
	termKDS        = CohortKey{LoB: "term", Generation: 2015, Business: BusinessNew, Deposit: DepositKDS}
)

// twoCohortFixture extends the degenerate run with an old cohort at 2% and a new
// cohort at 1%, both paying their reserve out by t = 3.
func twoCohortFixture() (*config.Inputs, *scenario.Scenario) {
	in, scen := degenerateFixture()
	zero := flat(4, 0)
	in.Cohorts = []config.CohortInput{
		{
			LoB: "endowment", Generation: 2004, Business: "old", Deposit: "kds", TechnicalRate: 0.02,
			Rows: config.CohortRows{
				Premium: zero, Cost: zero, Death: series(0, 2, 2, 2), Surrender: zero,
				Maturity: series(0, 30, 35.6, 51),
				Reserve:  series(100, 70, 35, 0),
			},
		},
		{
			LoB: "endowment", Generation: 2018, Business: "new", Deposit: "kds", TechnicalRate: 0.01,
			Rows: config.CohortRows{
				Premium: zero, Cost: zero, Death: series(0, 10.5, 20.4, 20.2), Surrender: zero, Maturity: zero,
				Reserve: series(50, 40, 20, 0),
			},
		},
	}
	return in, scen
}

var (
	oldKDS = CohortKey{LoB: "endowment", Generation: 2004, Business: BusinessOld, Deposit: DepositKDS}
	newKDS = CohortKey{LoB: "endowment", Generation: 2018, Business: BusinessNew, Deposit: DepositKDS}
)
