// Package declaration implements the profit-declaration cascade: RfB contribution,
// §56b forced drawdown, the split of the declared amount into an interest credit and a
// terminal-bonus (SÜAF) contribution, and the per-cohort lock-in bookkeeping.
package declaration

import "math"

// Contribution returns the RfB contribution: at least the regulatory minimum, otherwise
// the participation rate applied to the trailing average surplus, capped at the
// positive raw surplus of the year.
func Contribution(minimum, rawSurplus, trailingSurplus, participation float64) float64 {
	target := participation * math.Max(0, trailingSurplus)
	voluntary := math.Min(math.Max(rawSurplus, 0), target)
	return math.Max(minimum, voluntary)
}

// Drawdown is the §56b-style emergency use of the RfB
type Drawdown struct {
	FromFree float64
	FromSuaf float64
}

// Total returns the amount drawn from both parts
func (d Drawdown) Total() float64 { return d.FromFree + d.FromSuaf }

// Forced covers the part of a loss that would push equity below its floor, first from
// the free RfB and then from up to suafShare of the terminal-bonus fund.
func Forced(equityAfterLoss, equityFloor, freeRfB, suaf, suafShare float64) Drawdown {
	need := equityFloor - equityAfterLoss
	if need <= 0 {
		return Drawdown{}
	}
	d := Drawdown{FromFree: math.Min(need, math.Max(freeRfB, 0))}
	need -= d.FromFree
	if need > 0 {
		d.FromSuaf = math.Min(need, math.Max(suaf, 0)*suafShare)
	}
	return d
}

// Cascade is the split of the amount available for declaration
type Cascade struct {
	Available        float64
	InterestPortion  float64
	TerminalPortion  float64
	DeclaredRate     float64
	TerminalRate     float64
	RemainingFreeRfB float64
}

// Declare withdraws drawShare of the free RfB, credits interest up to the target excess
// rate on the profit-participating reserve and sends terminalShare of the remainder to
// the terminal-bonus fund.
func Declare(freeRfB, drawShare, targetExcessRate, reserveUeb, terminalShare float64) Cascade {
	c := Cascade{RemainingFreeRfB: freeRfB}
	if freeRfB <= 0 || reserveUeb <= 0 {
		return c
	}
	c.Available = drawShare * freeRfB
	c.InterestPortion = math.Min(c.Available, math.Max(0, targetExcessRate)*reserveUeb)
	c.TerminalPortion = terminalShare * (c.Available - c.InterestPortion)
	c.DeclaredRate = c.InterestPortion / reserveUeb
	c.TerminalRate = c.TerminalPortion / reserveUeb
	c.RemainingFreeRfB = freeRfB - c.InterestPortion - c.TerminalPortion
	return c
}

// LockIn converts a bonus into an increase of the cumulative lock-in factor. When the
// cohort has no future benefits left the bonus is returned as cash instead.
func LockIn(prevFactor, bonus, persistence, bonusBase float64) (factor, cash float64) {
	base := persistence * bonusBase
	if base <= 0 {
		return prevFactor, bonus
	}
	return prevFactor + bonus/base, 0
}

// PayoutRatio is the share of the cohort's value leaving through benefits this year
func PayoutRatio(benefits, reserve float64) float64 {
	total := benefits + reserve
	if total <= 0 {
		return 0
	}
	return benefits / total
}

// TerminalBonus is the terminal-bonus fund share paid with this year's benefits
func TerminalBonus(prevSuaf, availableRatio, payoutRatio float64) (paid, carried float64) {
	available := prevSuaf * availableRatio
	paid = available * payoutRatio
	return paid, available - paid
}

// AvailableRatio is the share of the terminal-bonus fund left after a forced drawdown
func AvailableRatio(suaf, drawn float64) float64 {
	if suaf <= 0 {
		return 1
	}
	return math.Max(0, suaf-drawn) / suaf
}
