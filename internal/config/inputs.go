package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sawpanic/almrun/internal/domain/assets"
	"github.com/sawpanic/almrun/internal/domain/behavior"
	"github.com/sawpanic/almrun/internal/domain/surplus"
)

// Inputs is the model input document: everything the engine reads from configuration
// providers besides the capital-market scenario.
type Inputs struct {
	Rules         ManagementRules `yaml:"management_rules"`
	LoBs          []LoB           `yaml:"lines_of_business"`
	Seed          BalanceSeed     `yaml:"balance_seed"`
	SubDebt       SubDebtSchedule `yaml:"subordinated_debt"`
	History       History         `yaml:"history"`
	ExistingBonds ExistingBonds   `yaml:"existing_bonds"`
	Cohorts       []CohortInput   `yaml:"cohorts"`
}

// ManagementRules are the company's time-independent steering parameters plus a few
// time-dependent series read through At.
type ManagementRules struct {
	Allocation           assets.AllocationRules `yaml:"allocation"`
	TargetBookToMarketEQ float64                `yaml:"target_book_to_market_eq"`
	TargetBookToMarketRE float64                `yaml:"target_book_to_market_re"`
	InvestmentCostRate   float64                `yaml:"investment_cost_rate"`
	ReinvestMaturity     int                    `yaml:"reinvest_maturity"`
	CreditSpread         float64                `yaml:"credit_spread"`

	ReferenceWindow   int     `yaml:"reference_window"`
	ReferenceCorridor float64 `yaml:"reference_corridor"` // 0 disables the corridor
	MeanSpotWindow    int     `yaml:"mean_spot_window"`
	ZZRCapYears       float64 `yaml:"zzr_cap_years"`

	SurchargeRate       float64 `yaml:"surcharge_rate"`
	CededShare          float64 `yaml:"ceded_share"`
	FundChargeRetention float64 `yaml:"fund_charge_retention"`

	Participation  float64              `yaml:"participation"`
	SurplusWindow  int                  `yaml:"surplus_window"`
	Minimum        surplus.MinimumRates `yaml:"minimum_participation"`
	MinEquityRatio float64              `yaml:"min_equity_ratio"`
	SuafShare56b   float64              `yaml:"suaf_share_56b"`

	TaxRate        float64 `yaml:"tax_rate"`
	LatentRelease  float64 `yaml:"latent_tax_release"`
	DividendPayout float64 `yaml:"dividend_payout"`

	TimeDependent TimeRules `yaml:"time_dependent"`
}

// TimeRules are series indexed by timestep; the last value is carried forward
type TimeRules struct {
	DrawShare        []float64 `yaml:"draw_share"`
	TargetExcessRate []float64 `yaml:"target_excess_rate"`
	TerminalShare    []float64 `yaml:"terminal_share"`
}

// StepRules are the time-dependent rules resolved for one timestep
type StepRules struct {
	DrawShare        float64
	TargetExcessRate float64
	TerminalShare    float64
}

// DefaultManagementRules returns the rule defaults applied before decoding
func DefaultManagementRules() ManagementRules {
	return ManagementRules{
		Allocation: assets.AllocationRules{
			Method:   assets.MethodStatic,
			TargetFI: 0.85,
			MinFI:    0.7,
			MaxFI:    0.95,
			TargetRE: 0.05,
		},
		TargetBookToMarketEQ: 0.9,
		TargetBookToMarketRE: 0.9,
		ReinvestMaturity:     10,
		ReferenceWindow:      10,
		MeanSpotWindow:       10,
		ZZRCapYears:          15,
		Participation:        0.9,
		SurplusWindow:        10,
		Minimum:              surplus.MinimumRates{Investment: 0.9, Risk: 0.9, Other: 0.5},
		MinEquityRatio:       0.02,
		SuafShare56b:         1,
		TaxRate:              0.3,
		TimeDependent: TimeRules{
			DrawShare:        []float64{0.5},
			TargetExcessRate: []float64{0.01},
			TerminalShare:    []float64{0.3},
		},
	}
}

// At resolves the time-dependent rules for timestep t
func (m ManagementRules) At(t int) StepRules {
	return StepRules{
		DrawShare:        carry(m.TimeDependent.DrawShare, t),
		TargetExcessRate: carry(m.TimeDependent.TargetExcessRate, t),
		TerminalShare:    carry(m.TimeDependent.TerminalShare, t),
	}
}

// LoB classifies a line of business
type LoB struct {
	Name          string          `yaml:"name"`
	ProfitSharing bool            `yaml:"profit_sharing"`
	CapitalOption bool            `yaml:"capital_option"`
	Behavior      behavior.Params `yaml:"behavior"`
}

// BalanceSeed are the opening balance-sheet values at t = 0
type BalanceSeed struct {
	FIBookValue      float64 `yaml:"fi_book_value"`
	FIMarketValue    float64 `yaml:"fi_market_value"`
	EQBookValue      float64 `yaml:"eq_book_value"`
	EQMarketValue    float64 `yaml:"eq_market_value"`
	REBookValue      float64 `yaml:"re_book_value"`
	REMarketValue    float64 `yaml:"re_market_value"`
	FreeRfB          float64 `yaml:"free_rfb"`
	Suaf             float64 `yaml:"suaf"`
	Equity           float64 `yaml:"equity"`
	LatentTax        float64 `yaml:"latent_tax"`
	LossCarryForward float64 `yaml:"loss_carry_forward"`
}

// SubDebtSchedule is the outstanding subordinated nominal per timestep
type SubDebtSchedule struct {
	CouponRate float64   `yaml:"coupon_rate"`
	Nominal    []float64 `yaml:"nominal"`
}

// At returns the nominal outstanding at the end of timestep t; the schedule runs off
// to zero after its last entry.
func (s SubDebtSchedule) At(t int) float64 {
	if t < 0 || t >= len(s.Nominal) {
		return 0
	}
	return s.Nominal[t]
}

// History holds pre-projection figures for the trailing averages. ZZRSpots end with
// the year before t = 0; RawSurplus ends with the year t = 0.
type History struct {
	ZZRSpots      []float64 `yaml:"zzr_spots"`
	RawSurplus    []float64 `yaml:"raw_surplus"`
	DeclaredRate  float64   `yaml:"declared_rate"`
	NetYield      float64   `yaml:"net_yield"`
	ReferenceRate float64   `yaml:"reference_rate"` // 0 derives the t=0 rate from ZZRSpots
}

// ExistingBonds is the cash-flow and earnings schedule of the bond portfolio held at
// t = 0; entry k belongs to timestep k+1.
type ExistingBonds struct {
	CashFlows []float64 `yaml:"cash_flows"`
	Earnings  []float64 `yaml:"earnings"`
}

// ByTimestep returns the schedules re-indexed by timestep (index 0 unused)
func (e ExistingBonds) ByTimestep() (cashFlows, earnings []float64) {
	return append([]float64{0}, e.CashFlows...), append([]float64{0}, e.Earnings...)
}

// CohortInput is one configured cohort with its deterministic seed projection
type CohortInput struct {
	LoB            string     `yaml:"lob"`
	Generation     int        `yaml:"generation"`
	Business       string     `yaml:"business"` // old | new
	Deposit        string     `yaml:"deposit"`  // kds | fonds
	TechnicalRate  float64    `yaml:"technical_rate"`
	FundValue      float64    `yaml:"fund_value"`
	FundChargeRate float64    `yaml:"fund_charge_rate"`
	Rows           CohortRows `yaml:"rows"`
}

// CohortRows are the per-timestep seed series, each with H+1 entries
type CohortRows struct {
	Premium         []float64 `yaml:"premium"`
	Cost            []float64 `yaml:"cost"`
	Death           []float64 `yaml:"death"`
	Surrender       []float64 `yaml:"surrender"`
	Maturity        []float64 `yaml:"maturity"`
	Reserve         []float64 `yaml:"reserve"`
	Risk            []float64 `yaml:"risk"`
	Other           []float64 `yaml:"other"`
	FundPremium     []float64 `yaml:"fund_premium"`
	FundPayoutRatio []float64 `yaml:"fund_payout_ratio"`
	FundGuarantee   []float64 `yaml:"fund_guarantee"`
}

// Name identifies the cohort in diagnostics
func (c CohortInput) Name() string {
	return fmt.Sprintf("%s/%d/%s/%s", c.LoB, c.Generation, strings.ToLower(c.Business), strings.ToLower(c.Deposit))
}

// LoadInputs reads and decodes the input document on top of the defaults
func LoadInputs(path string) (*Inputs, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read inputs: %w", err)
	}
	return ParseInputs(data)
}

// ParseInputs decodes an input document
func ParseInputs(data []byte) (*Inputs, error) {
	in := Inputs{Rules: DefaultManagementRules()}
	if err := yaml.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("failed to parse inputs: %w", err)
	}
	return &in, nil
}

// LoB looks up a line of business
func (in *Inputs) LoB(name string) (LoB, bool) {
	for _, l := range in.LoBs {
		if l.Name == name {
			return l, true
		}
	}
	return LoB{}, false
}

// Validate checks the document for a projection over 0..horizon
func (in *Inputs) Validate(horizon int) error {
	var errs []error
	add := func(format string, args ...any) { errs = append(errs, fmt.Errorf(format, args...)) }

	r := in.Rules
	if _, err := assets.ParseMethod(string(r.Allocation.Method)); err != nil {
		errs = append(errs, err)
	}
	if r.ReinvestMaturity < 1 {
		add("reinvest_maturity must be at least 1")
	}
	if r.ReferenceWindow < 1 || r.MeanSpotWindow < 1 || r.SurplusWindow < 1 {
		add("averaging windows must be at least 1")
	}
	if len(r.TimeDependent.DrawShare) == 0 || len(r.TimeDependent.TargetExcessRate) == 0 || len(r.TimeDependent.TerminalShare) == 0 {
		add("time_dependent rules need at least one value each")
	}

	names := make(map[string]bool, len(in.LoBs))
	for _, l := range in.LoBs {
		if l.Name == "" {
			add("line of business without name")
		}
		if names[l.Name] {
			add("duplicate line of business %q", l.Name)
		}
		names[l.Name] = true
	}

	if len(in.Cohorts) == 0 {
		add("no cohorts configured")
	}
	seen := make(map[string]bool, len(in.Cohorts))
	for _, c := range in.Cohorts {
		name := c.Name()
		if !names[c.LoB] {
			add("cohort %s: unknown line of business %q", name, c.LoB)
		}
		if seen[name] {
			add("cohort %s: duplicate key", name)
		}
		seen[name] = true
		switch strings.ToLower(c.Business) {
		case "old", "new":
		default:
			add("cohort %s: business must be old or new", name)
		}
		switch strings.ToLower(c.Deposit) {
		case "kds", "fonds":
		default:
			add("cohort %s: deposit must be kds or fonds", name)
		}
		if err := c.Rows.validate(horizon); err != nil {
			add("cohort %s: %w", name, err)
		}
	}

	if in.Seed.Suaf != 0 && in.seedReserveUeb() == 0 {
		add("balance_seed.suaf %g needs a profit-participating reserve at t=0", in.Seed.Suaf)
	}

	for name, v := range map[string][]float64{
		"existing_bonds.cash_flows": in.ExistingBonds.CashFlows,
		"existing_bonds.earnings":   in.ExistingBonds.Earnings,
		"history.zzr_spots":         in.History.ZZRSpots,
		"history.raw_surplus":       in.History.RawSurplus,
		"subordinated_debt.nominal": in.SubDebt.Nominal,
	} {
		if i := firstNonFinite(v); i >= 0 {
			add("%s[%d] is not finite", name, i)
		}
	}

	return errors.Join(errs...)
}

// seedReserveUeb is the t=0 reserve of the profit-participating cohorts, the key
// the opening terminal-bonus fund is split by
func (in *Inputs) seedReserveUeb() float64 {
	var sum float64
	for _, c := range in.Cohorts {
		if lob, ok := in.LoB(c.LoB); ok && lob.ProfitSharing && len(c.Rows.Reserve) > 0 {
			sum += c.Rows.Reserve[0]
		}
	}
	return sum
}

func (rows CohortRows) validate(horizon int) error {
	var errs []error
	required := []struct {
		name string
		v    []float64
	}{
		{"premium", rows.Premium}, {"cost", rows.Cost}, {"death", rows.Death},
		{"surrender", rows.Surrender}, {"maturity", rows.Maturity}, {"reserve", rows.Reserve},
	}
	optional := []struct {
		name string
		v    []float64
	}{
		{"risk", rows.Risk}, {"other", rows.Other}, {"fund_premium", rows.FundPremium},
		{"fund_payout_ratio", rows.FundPayoutRatio}, {"fund_guarantee", rows.FundGuarantee},
	}

	for _, r := range required {
		if len(r.v) != horizon+1 {
			errs = append(errs, fmt.Errorf("row %s has %d entries, need %d", r.name, len(r.v), horizon+1))
		}
	}
	for _, r := range optional {
		if len(r.v) != 0 && len(r.v) != horizon+1 {
			errs = append(errs, fmt.Errorf("row %s has %d entries, need 0 or %d", r.name, len(r.v), horizon+1))
		}
	}
	for _, r := range append(required, optional...) {
		if i := firstNonFinite(r.v); i >= 0 {
			errs = append(errs, fmt.Errorf("row %s[%d] is not finite", r.name, i))
		}
	}
	return errors.Join(errs...)
}

func carry(v []float64, t int) float64 {
	if len(v) == 0 {
		return 0
	}
	if t >= len(v) {
		return v[len(v)-1]
	}
	if t < 0 {
		return v[0]
	}
	return v[t]
}

func firstNonFinite(v []float64) int {
	for i, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return i
		}
	}
	return -1
}
