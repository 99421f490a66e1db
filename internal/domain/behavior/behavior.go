// Package behavior models policyholder reactions to the gap between market rates and the
// credited rate: dynamic lapses and lump-sum (capital) choice.
package behavior

// Params are the per-line-of-business sensitivities
type Params struct {
	LapseSensitivity   float64 `yaml:"lapse_sensitivity"`
	LapseCap           float64 `yaml:"lapse_cap"`
	CapitalSensitivity float64 `yaml:"capital_sensitivity"`
	CapitalCap         float64 `yaml:"capital_cap"`
	SurrenderPenalty   float64 `yaml:"surrender_penalty"`
}

// RateGap is the signal driving both reactions: market reference rate minus the
// total rate credited in the previous year.
func RateGap(marketRate, creditedRate float64) float64 {
	return marketRate - creditedRate
}

// ExcessLapse returns the additional lapse rate for a given rate gap
func ExcessLapse(gap float64, p Params) float64 {
	return clamp(p.LapseSensitivity*gap, 0, p.LapseCap)
}

// CapitalChoice returns the additional lump-sum election rate. Only cohorts with a
// capital option and a scheduled maturity payment react.
func CapitalChoice(gap float64, p Params, hasOption bool, maturity float64) float64 {
	if !hasOption || maturity == 0 {
		return 0
	}
	return clamp(p.CapitalSensitivity*gap, 0, p.CapitalCap)
}

// Multiplier rolls a persistence multiplier forward by one exit rate
func Multiplier(prev, rate float64) float64 {
	return prev * (1 - rate)
}

// Exits splits the reserve released by excess exits into the lapse payout, the penalty
// kept by the insurer and the capital-choice payout.
type Exits struct {
	LapsePayout   float64
	PenaltyGain   float64
	CapitalPayout float64
}

// ExitPayments values excess exits at the end-of-year reserve per in-force unit
func ExitPayments(startPersistence, lapseRate, capitalRate, reservePerUnit, penalty float64) Exits {
	lapsed := startPersistence * lapseRate * reservePerUnit
	return Exits{
		LapsePayout:   lapsed * (1 - penalty),
		PenaltyGain:   lapsed * penalty,
		CapitalPayout: startPersistence * (1 - lapseRate) * capitalRate * reservePerUnit,
	}
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
