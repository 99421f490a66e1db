// Package ladder projects the existing fixed-income portfolio under a constant annual
// default probability and calibrates that probability to the portfolio's market value.
package ladder

import (
	"errors"
	"fmt"
	"math"

	"github.com/sawpanic/almrun/internal/domain/discount"
	"github.com/sawpanic/almrun/internal/record"
)

// CalibrationError is raised when the default probability cannot be solved.
// It is fatal for the scenario.
type CalibrationError struct {
	Q          float64
	Residual   float64
	Iterations int
	Err        error
}

func (e *CalibrationError) Error() string {
	return fmt.Sprintf("default probability calibration failed after %d iterations (q=%g, residual=%g): %v",
		e.Iterations, e.Q, e.Residual, e.Err)
}

func (e *CalibrationError) Unwrap() error { return e.Err }

// Record is the ladder state at one timestep t in 1..H
type Record struct {
	T              int
	Forward        float64
	RollFactor     float64
	DiscountFactor float64
	CashFlow       float64
	Earnings       float64
	Discounted     float64

	Survival          float64
	AdjustedCashFlow  float64
	AdjustedEarnings  float64
	AdjustedBookValue float64
	Accrual           float64
}

// Fields exposes the record for reporting
func (r *Record) Fields() []record.Field {
	return []record.Field{
		{Name: "forward", Value: r.Forward, Checked: true},
		{Name: "roll_factor", Value: r.RollFactor, Checked: true},
		{Name: "discount_factor", Value: r.DiscountFactor, Checked: true},
		{Name: "cash_flow", Value: r.CashFlow, Checked: true},
		{Name: "earnings", Value: r.Earnings, Checked: true},
		{Name: "discounted", Value: r.Discounted, Checked: true},
		{Name: "survival", Value: r.Survival, Checked: true},
		{Name: "adjusted_cash_flow", Value: r.AdjustedCashFlow, Checked: true},
		{Name: "adjusted_earnings", Value: r.AdjustedEarnings, Checked: true},
		{Name: "adjusted_book_value", Value: r.AdjustedBookValue, Checked: true},
		{Name: "accrual", Value: r.Accrual, Checked: true},
	}
}

// Ladder is the scenario-level, path-independent record chain. It is read-only once
// calibrated.
type Ladder struct {
	Horizon int
	Offset  float64
	records []Record

	Q                float64
	MarketValue      float64
	Duration         float64
	InitialBookValue float64
	InitialAccrual   float64
	Iterations       int
}

// Build runs the forward pass over t = 1..horizon. cashFlows and earnings are indexed
// by timestep (index 0 ignored); shorter schedules are padded with zeros.
func Build(curve discount.Curve, cashFlows, earnings []float64, horizon int) (*Ladder, error) {
	if horizon < 1 {
		return nil, fmt.Errorf("ladder horizon must be at least 1, got %d", horizon)
	}
	if curve(0) != 0 {
		return nil, errors.New("spot curve must return 0 at residual maturity 0")
	}

	l := &Ladder{Horizon: horizon, Offset: discount.MidYearOffset, records: make([]Record, horizon)}
	for t := 1; t <= horizon; t++ {
		r := &l.records[t-1]
		r.T = t
		spotPrev, spot := curve(t-1), curve(t)
		r.Forward = discount.ForwardRate(spotPrev, spot, t)
		r.RollFactor = discount.RollFactor(r.Forward, l.Offset)
		r.DiscountFactor = discount.ZeroBond(spotPrev, float64(t-1)) / r.RollFactor
		r.CashFlow = at(cashFlows, t)
		r.Earnings = at(earnings, t)
		r.Discounted = r.DiscountFactor * r.CashFlow
	}
	l.Apply(0)
	return l, nil
}

// At returns the record of timestep t, or nil outside 1..H
func (l *Ladder) At(t int) *Record {
	if t < 1 || t > l.Horizon {
		return nil
	}
	return &l.records[t-1]
}

// Len is the chain length
func (l *Ladder) Len() int { return len(l.records) }

// Records returns the chain in timestep order
func (l *Ladder) Records() []Record { return l.records }

// Objective is f(q) = -mv0 + Σ k_t (1-q)^(t-1+φ) with its closed-form derivative
func (l *Ladder) Objective(mv0 float64) Objective {
	return func(q float64) (float64, float64) {
		f, df := -mv0, 0.0
		for i := range l.records {
			r := &l.records[i]
			if r.Discounted == 0 {
				continue
			}
			e := float64(r.T-1) + l.Offset
			f += r.Discounted * math.Pow(1-q, e)
			df -= r.Discounted * e * math.Pow(1-q, e-1)
		}
		return f, df
	}
}

// Calibrate solves the default probability that reproduces the market value mv0 and
// runs the reverse pass with it.
func (l *Ladder) Calibrate(mv0 float64, cfg SolverConfig) (Solution, error) {
	sol, err := Newton(l.Objective(mv0), cfg)
	if err != nil {
		return sol, &CalibrationError{Q: sol.Root, Residual: sol.Value, Iterations: sol.Iterations, Err: err}
	}
	if sol.Root < 0 && !cfg.AllowNegative {
		return sol, &CalibrationError{Q: sol.Root, Residual: sol.Value, Iterations: sol.Iterations, Err: ErrNegativeRoot}
	}
	l.Apply(sol.Root)
	l.Iterations = sol.Iterations
	return sol, nil
}

// Apply runs the reverse pass t = H..1 for a given default probability
func (l *Ladder) Apply(q float64) {
	l.Q = q
	var next *Record
	mv, weighted := 0.0, 0.0
	for t := l.Horizon; t >= 1; t-- {
		r := &l.records[t-1]
		e := float64(t-1) + l.Offset
		r.Survival = discount.Survival(q, e)
		r.AdjustedCashFlow = r.CashFlow * r.Survival
		r.AdjustedEarnings = r.Earnings * r.Survival
		if next == nil {
			r.AdjustedBookValue = 0
			r.Accrual = 0
		} else {
			r.AdjustedBookValue = next.AdjustedBookValue + next.AdjustedCashFlow - next.AdjustedEarnings
			r.Accrual = (1 - l.Offset) * next.AdjustedEarnings
		}
		pv := r.Discounted * r.Survival
		mv += pv
		weighted += e * pv
		next = r
	}

	l.MarketValue = mv
	l.Duration = 0
	if mv != 0 {
		l.Duration = weighted / mv
	}
	first := &l.records[0]
	l.InitialBookValue = first.AdjustedBookValue + first.AdjustedCashFlow - first.AdjustedEarnings
	l.InitialAccrual = (1 - l.Offset) * first.AdjustedEarnings
}

// RemainingCashFlows returns the adjusted cash flows after timestep t indexed by
// residual maturity (index 0 unused), for market valuation at t.
func (l *Ladder) RemainingCashFlows(t int) []float64 {
	if t >= l.Horizon {
		return nil
	}
	out := make([]float64, l.Horizon-t+1)
	for s := t + 1; s <= l.Horizon; s++ {
		out[s-t] = l.records[s-1].AdjustedCashFlow
	}
	return out
}

func at(v []float64, t int) float64 {
	if t < len(v) {
		return v[t]
	}
	return 0
}
