// Package scenario provides read-only access to the capital-market scenarios driving a
// projection: one initial term structure per scenario and a set of stochastic paths.
package scenario

import (
	"errors"
	"fmt"
	"math"

	"github.com/sawpanic/almrun/internal/domain/discount"
)

// Path is one stochastic realization of the capital market. t is the projection
// timestep, r a residual maturity in years.
type Path interface {
	SpotRate(t int) float64
	DiscountFactor(t int) float64
	EquityPrice(t int) float64
	Dividend(t int) float64
	PropertyPrice(t int) float64
	Rent(t int) float64
	TenYearZZRSpot(t int) float64
	SpotByResidualMaturity(t, r int) float64
	CouponByResidualMaturity(t, r int) float64
}

// Table is a fully materialized path. Every series is indexed by timestep 0..H;
// Curves[t][r] is the spot rate for residual maturity r (Curves[t][0] is ignored).
// Dividend and Rent are income yields on last year's market value.
type Table struct {
	Number    int         `json:"path" yaml:"path"`
	Discount  []float64   `json:"discount" yaml:"discount"`
	Equity    []float64   `json:"equity" yaml:"equity"`
	Dividends []float64   `json:"dividends" yaml:"dividends"`
	Property  []float64   `json:"property" yaml:"property"`
	Rents     []float64   `json:"rents" yaml:"rents"`
	ZZRSpot   []float64   `json:"zzr_spot" yaml:"zzr_spot"`
	Curves    [][]float64 `json:"curves" yaml:"curves"`
	Coupons   [][]float64 `json:"coupons,omitempty" yaml:"coupons,omitempty"`
}

var _ Path = (*Table)(nil)

// SpotRate is the one-year spot rate
func (p *Table) SpotRate(t int) float64 { return p.SpotByResidualMaturity(t, 1) }

func (p *Table) EquityPrice(t int) float64 { return series(p.Equity, t) }
func (p *Table) Dividend(t int) float64 { return series(p.Dividends, t) }
func (p *Table) PropertyPrice(t int) float64 { return series(p.Property, t) }
func (p *Table) Rent(t int) float64 { return series(p.Rents, t) }

// DiscountFactor is the path deflator to timestep t. Without a supplied series it
// rolls the one-year spot rates.
func (p *Table) DiscountFactor(t int) float64 {
	if len(p.Discount) > 0 {
		return series(p.Discount, t)
	}
	df := 1.0
	for s := 1; s <= t; s++ {
		df /= 1 + p.SpotRate(s-1)
	}
	return df
}

// TenYearZZRSpot is the rate entering the reference-rate average. It falls back to
// the ten-year spot when no dedicated series is supplied.
func (p *Table) TenYearZZRSpot(t int) float64 {
	if len(p.ZZRSpot) == 0 {
		return p.SpotByResidualMaturity(t, 10)
	}
	return series(p.ZZRSpot, t)
}

// SpotByResidualMaturity extrapolates flat beyond the longest supplied maturity
func (p *Table) SpotByResidualMaturity(t, r int) float64 {
	if r <= 0 || len(p.Curves) == 0 {
		return 0
	}
	return series(p.curve(t), r)
}

// CouponByResidualMaturity is the par coupon of a new bond maturing in r years.
// Supplied coupon tables take precedence over the curve-implied par rate.
func (p *Table) CouponByResidualMaturity(t, r int) float64 {
	if r <= 0 {
		return 0
	}
	if len(p.Coupons) > 0 {
		return series(clampRow(p.Coupons, t), r)
	}
	return ParCoupon(func(m int) float64 { return p.SpotByResidualMaturity(t, m) }, r)
}

func (p *Table) curve(t int) []float64 { return clampRow(p.Curves, t) }

// Validate checks that every series covers timesteps 0..horizon
func (p *Table) Validate(horizon int) error {
	var errs []error
	check := func(name string, v []float64, optional bool) {
		if optional && len(v) == 0 {
			return
		}
		if len(v) < horizon+1 {
			errs = append(errs, fmt.Errorf("path %d: %s has %d entries, need %d", p.Number, name, len(v), horizon+1))
		}
		for t, x := range v {
			if math.IsNaN(x) || math.IsInf(x, 0) {
				errs = append(errs, fmt.Errorf("path %d: %s[%d] is not finite", p.Number, name, t))
				break
			}
		}
	}
	check("discount", p.Discount, true)
	check("equity", p.Equity, false)
	check("dividends", p.Dividends, true)
	check("property", p.Property, false)
	check("rents", p.Rents, true)
	check("zzr_spot", p.ZZRSpot, true)
	if len(p.Curves) < horizon+1 {
		errs = append(errs, fmt.Errorf("path %d: curves has %d entries, need %d", p.Number, len(p.Curves), horizon+1))
	}
	for t, c := range p.Curves {
		if len(c) < 2 {
			errs = append(errs, fmt.Errorf("path %d: curve at t=%d has no maturities", p.Number, t))
			break
		}
	}
	return errors.Join(errs...)
}

// ParCoupon returns the coupon making a bullet bond of maturity m trade at par on
// the given spot curve: c = (1 - v_m) / Σ v_r.
func ParCoupon(spot func(r int) float64, m int) float64 {
	annuity := 0.0
	v := 0.0
	for r := 1; r <= m; r++ {
		v = discount.ZeroBond(spot(r), float64(r))
		annuity += v
	}
	if annuity == 0 {
		return 0
	}
	return (1 - v) / annuity
}

func series(v []float64, i int) float64 {
	switch {
	case len(v) == 0:
		return 0
	case i < 0:
		return v[0]
	case i >= len(v):
		return v[len(v)-1]
	}
	return v[i]
}

func clampRow(rows [][]float64, t int) []float64 {
	if len(rows) == 0 {
		return nil
	}
	if t < 0 {
		t = 0
	}
	if t >= len(rows) {
		t = len(rows) - 1
	}
	return rows[t]
}
