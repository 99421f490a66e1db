// Package surplus computes the company's raw surplus, the regulatory minimum
// policyholder participation and the back-allocation of the surplus fund to cohorts.
package surplus

import "math"

// RawInputs are the year's result components, signed as income (+) / expense (-)
// except where noted.
type RawInputs struct {
	CapitalIncome      float64
	TechnicalInterest  float64 // expense, positive number
	ZZRChange          float64 // expense, positive number when the top-up reserve grows
	RiskResult         float64
	Reinsurance        float64
	OtherResult        float64
	CreditInterest     float64 // expense, positive number
	SubordinatedCoupon float64 // expense, positive number
}

// Raw returns the raw surplus (Rohüberschuss) before policyholder participation
func Raw(in RawInputs) float64 {
	return in.CapitalIncome - in.TechnicalInterest - in.ZZRChange +
		in.RiskResult + in.Reinsurance + in.OtherResult -
		in.CreditInterest - in.SubordinatedCoupon
}

// MinimumRates are the regulatory participation quotas
type MinimumRates struct {
	Investment float64 `yaml:"investment"`
	Risk       float64 `yaml:"risk"`
	Other      float64 `yaml:"other"`
}

// MinimumInputs are the profit-participating shares of the result sources
type MinimumInputs struct {
	CapitalIncome     float64
	TechnicalInterest float64
	ZZRChange         float64
	RiskResult        float64
	OtherResult       float64
}

// MinimumContribution is the regulatory floor of the RfB contribution. Only positive
// result sources participate.
func MinimumContribution(in MinimumInputs, r MinimumRates) float64 {
	investment := in.CapitalIncome - in.TechnicalInterest - in.ZZRChange
	return r.Investment*math.Max(0, investment) +
		r.Risk*math.Max(0, in.RiskResult) +
		r.Other*math.Max(0, in.OtherResult)
}

// ProfitShare splits a company-wide amount by the profit-participating reserve share
func ProfitShare(amount, reserveUeb, reserveTotal float64) float64 {
	if reserveTotal == 0 {
		return 0
	}
	return amount * reserveUeb / reserveTotal
}

// Shares returns the back-allocation keys of the surplus fund for one timestep.
// Weights are the cohorts' bonus benefits (actual minus guaranteed); when they do not
// sum to a positive amount the successor keys are reused, then the fallback weights,
// then an equal split over eligible cohorts.
func Shares(weights, successor, fallback []float64, eligible []bool) []float64 {
	const eps = 1e-12
	out := make([]float64, len(weights))

	if normalize(out, weights, eligible) > eps {
		return out
	}
	if successor != nil && sum(successor) > eps {
		copy(out, successor)
		return out
	}
	if normalize(out, fallback, eligible) > eps {
		return out
	}

	n := 0
	for _, ok := range eligible {
		if ok {
			n++
		}
	}
	if n == 0 {
		return out
	}
	for k, ok := range eligible {
		if ok {
			out[k] = 1 / float64(n)
		}
	}
	return out
}

func normalize(out, w []float64, eligible []bool) float64 {
	total := 0.0
	for k, v := range w {
		if eligible[k] && v > 0 {
			total += v
		}
	}
	if total <= 0 {
		return 0
	}
	for k, v := range w {
		if eligible[k] && v > 0 {
			out[k] = v / total
		} else {
			out[k] = 0
		}
	}
	return total
}

func sum(v []float64) float64 {
	s := 0.0
	for _, x := range v {
		s += x
	}
	return s
}
