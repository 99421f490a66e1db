// Package discount holds the term-structure helpers shared by the bond ladder and the
// asset recursion. All functions are pure; rates are annual effective decimals.
package discount

import "math"

// MidYearOffset is the fractional-year payment point of annual cash flows
const MidYearOffset = 0.5

// ZeroBond returns the price of a unit zero bond maturing in r years at spot s
func ZeroBond(spot float64, r float64) float64 {
	if r == 0 {
		return 1
	}
	return math.Pow(1+spot, -r)
}

// ForwardRate returns the one-year forward rate between maturities r-1 and r
func ForwardRate(spotPrev, spot float64, r int) float64 {
	if r <= 0 {
		return 0
	}
	num := math.Pow(1+spot, float64(r))
	den := math.Pow(1+spotPrev, float64(r-1))
	return num/den - 1
}

// RollFactor is the half-year roll-forward factor (1+f)^offset
func RollFactor(forward, offset float64) float64 {
	return math.Pow(1+forward, offset)
}

// MidYear discounts a cash flow paid at r-1+offset years using the spots for
// maturities r-1 and r.
func MidYear(spotPrev, spot float64, r int, offset float64) float64 {
	f := ForwardRate(spotPrev, spot, r)
	return ZeroBond(spotPrev, float64(r-1)) / RollFactor(f, offset)
}

// Curve is a spot curve indexed by residual maturity; Curve(0) must return 0
type Curve func(r int) float64

// PresentValue discounts cfs[r] (paid in year r, r >= 1) to the start of the curve.
// cfs[0] is ignored.
func PresentValue(curve Curve, cfs []float64, offset float64) float64 {
	pv := 0.0
	for r := 1; r < len(cfs); r++ {
		if cfs[r] == 0 {
			continue
		}
		pv += cfs[r] * MidYear(curve(r-1), curve(r), r, offset)
	}
	return pv
}

// Survival returns (1-q)^exponent, the default-survival weight of a cash flow
func Survival(q, exponent float64) float64 {
	return math.Pow(1-q, exponent)
}

// TrailingMean averages values over the window ending at index end (inclusive).
// Indices below zero are read from history, history[len-1] being index -1.
func TrailingMean(values []float64, history []float64, end, window int) float64 {
	if window <= 0 {
		return 0
	}
	sum := 0.0
	n := 0
	for k := end - window + 1; k <= end; k++ {
		switch {
		case k >= 0 && k < len(values):
			sum += values[k]
			n++
		case k < 0:
			h := len(history) + k
			if h >= 0 {
				sum += history[h]
				n++
			}
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
