// Package assets holds the asset-management rules of the projection: strategic
// allocation ratios, realization of unrealized gains and losses, earnings netting,
// reinvestment of free cash and the bookkeeping of newly bought par bonds.
package assets

import (
	"fmt"
	"math"
)

// Method selects how the fixed-income target ratio is derived
type Method string

const (
	MethodStatic       Method = "static"
	MethodMeanRate     Method = "mean_rate"
	MethodReserveRatio Method = "reserve_ratio"
)

// ParseMethod validates a configured allocation method
func ParseMethod(s string) (Method, error) {
	switch m := Method(s); m {
	case MethodStatic, MethodMeanRate, MethodReserveRatio:
		return m, nil
	case "":
		return MethodStatic, nil
	default:
		return "", fmt.Errorf("unknown allocation method %q", s)
	}
}

// AllocationRules are the strategic asset-allocation settings
type AllocationRules struct {
	Method           Method  `yaml:"method"`
	TargetFI         float64 `yaml:"target_fi"`
	MinFI            float64 `yaml:"min_fi"`
	MaxFI            float64 `yaml:"max_fi"`
	TargetRE         float64 `yaml:"target_re"`
	MinRE            float64 `yaml:"min_re"`
	Sensitivity      float64 `yaml:"sensitivity"`
	ReserveThreshold float64 `yaml:"reserve_threshold"`
}

// Ratios are the allocation targets for one timestep
type Ratios struct {
	TargetFI float64
	MinFI    float64
	TargetRE float64
	MinRE    float64
	TargetEQ float64
}

// Allocate derives the year's target and minimum ratios.
//
// mean_rate shifts the fixed-income target by the gap between the trailing mean spot
// rate and last year's net yield; reserve_ratio moves to the maximum fixed-income quota
// while the unrealized-reserve quota is below its threshold.
func Allocate(r AllocationRules, meanSpot, prevNetYield, reserveQuota float64) Ratios {
	out := Ratios{
		TargetFI: r.TargetFI,
		MinFI:    r.MinFI,
		TargetRE: r.TargetRE,
		MinRE:    r.MinRE,
	}
	maxFI := r.MaxFI
	if maxFI < r.MinFI {
		maxFI = math.Max(r.TargetFI, r.MinFI)
	}

	switch r.Method {
	case MethodMeanRate:
		out.TargetFI = clamp(r.TargetFI+r.Sensitivity*(meanSpot-prevNetYield), r.MinFI, maxFI)
	case MethodReserveRatio:
		if reserveQuota < r.ReserveThreshold {
			out.TargetFI = maxFI
		}
	}

	out.TargetRE = math.Min(out.TargetRE, math.Max(0, 1-out.TargetFI))
	out.TargetEQ = math.Max(0, 1-out.TargetFI-out.TargetRE)
	return out
}

// ReserveQuota is the unrealized-reserve quota (MV-BV)/BV of the whole portfolio
func ReserveQuota(bookValue, marketValue float64) float64 {
	if bookValue <= 0 {
		return 0
	}
	return (marketValue - bookValue) / bookValue
}

// PlannedRealization returns the unrealized gain realized to lift the book-to-market
// ratio of a holding up to target. Realization is cash neutral: the holding is sold and
// bought back, raising its book value by the returned amount.
func PlannedRealization(bookValue, marketValue, target float64) float64 {
	if marketValue <= bookValue {
		return 0
	}
	goal := math.Min(marketValue, target*marketValue)
	return math.Max(0, goal-bookValue)
}

// WriteDown returns the impairment required when book value exceeds market value
func WriteDown(bookValue, marketValue float64) float64 {
	return math.Max(0, bookValue-math.Max(marketValue, 0))
}

// NetDeficit nets the year's fixed-income earnings against deficits carried from
// earlier years. A negative total is carried forward instead of booked.
func NetDeficit(earnings, prevDeficit float64) (booked, deficit float64) {
	total := earnings - prevDeficit
	if total < 0 {
		return 0, -total
	}
	return total, 0
}

// ShortfallRealization covers an earnings shortfall by realizing unrealized gains,
// equities first and real estate second.
func ShortfallRealization(shortfall, eqReserve, reReserve float64) (fromEQ, fromRE float64) {
	if shortfall <= 0 {
		return 0, 0
	}
	fromEQ = math.Min(shortfall, math.Max(0, eqReserve))
	fromRE = math.Min(shortfall-fromEQ, math.Max(0, reReserve))
	return fromEQ, fromRE
}

// NetYield is the capital income relative to last year's total book value
func NetYield(capitalIncome, prevBookValue float64) float64 {
	if prevBookValue <= 0 {
		return 0
	}
	return capitalIncome / prevBookValue
}

// Holdings are book values (or purchases) per asset class
type Holdings struct {
	FI float64
	EQ float64
	RE float64
}

// Total sums the three classes
func (h Holdings) Total() float64 { return h.FI + h.EQ + h.RE }

// Reinvest splits investable cash across asset classes: first up to the minimum
// fixed-income and real-estate ratios, then up to the equity and real-estate targets,
// the remainder into fixed income.
func Reinvest(amount float64, books Holdings, r Ratios) Holdings {
	var buy Holdings
	if amount <= 0 {
		return buy
	}
	total := books.Total() + amount
	rest := amount

	take := func(want float64) float64 {
		x := math.Min(rest, math.Max(0, want))
		rest -= x
		return x
	}

	buy.FI = take(r.MinFI*total - books.FI)
	buy.RE = take(r.MinRE*total - books.RE)
	buy.EQ = take(r.TargetEQ*total - books.EQ)
	buy.RE += take(r.TargetRE*total - books.RE - buy.RE)
	buy.FI += rest
	return buy
}

// AddParBond books a bond bought at par into the coupon and principal ladders, both
// indexed by residual maturity.
func AddParBond(coupons, principal []float64, amount, coupon float64, maturity int) {
	if amount == 0 || maturity <= 0 {
		return
	}
	if maturity >= len(principal) {
		maturity = len(principal) - 1
	}
	for r := 1; r <= maturity; r++ {
		coupons[r] += amount * coupon
	}
	principal[maturity] += amount
}

// Shift moves a residual-maturity ladder one year forward into dst and returns the
// flow falling due. dst and src may not alias.
func Shift(dst, src []float64) float64 {
	due := 0.0
	if len(src) > 1 {
		due = src[1]
	}
	for r := range dst {
		dst[r] = 0
		if r >= 1 && r+1 < len(src) {
			dst[r] = src[r+1]
		}
	}
	return due
}

// Outstanding sums a ladder's remaining flows
func Outstanding(flows []float64) float64 {
	s := 0.0
	for r := 1; r < len(flows); r++ {
		s += flows[r]
	}
	return s
}

// Roll scales a market value by an index move
func Roll(prevMarketValue, pricePrev, price float64) float64 {
	if pricePrev == 0 {
		return prevMarketValue
	}
	return prevMarketValue * price / pricePrev
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		hi = lo
	}
	return math.Min(math.Max(v, lo), hi)
}
