package ladder

import (
	"errors"
	"fmt"
	"math"
)

// SolverConfig defines the damped Newton iteration used for calibration
type SolverConfig struct {
	InitialGuess  float64 `yaml:"initial_guess" json:"initial_guess"`
	Tolerance     float64 `yaml:"tolerance" json:"tolerance"` // |f(q)| in currency units
	MaxIterations int     `yaml:"max_iterations" json:"max_iterations"`
	MinStepRatio  float64 `yaml:"min_step_ratio" json:"min_step_ratio"`
	MaxStepRatio  float64 `yaml:"max_step_ratio" json:"max_step_ratio"`
	AllowNegative bool    `yaml:"allow_negative" json:"allow_negative"`
}

// DefaultSolverConfig returns the default calibration settings
func DefaultSolverConfig() SolverConfig {
	return SolverConfig{
		InitialGuess:  0.01,
		Tolerance:     0.001,
		MaxIterations: 20,
		MinStepRatio:  0.1,
		MaxStepRatio:  2,
	}
}

// Validate checks solver settings
func (c SolverConfig) Validate() error {
	if c.MaxIterations <= 0 {
		return fmt.Errorf("max_iterations must be positive, got %d", c.MaxIterations)
	}
	if c.Tolerance <= 0 {
		return fmt.Errorf("tolerance must be positive, got %g", c.Tolerance)
	}
	if c.MinStepRatio <= 0 || c.MaxStepRatio < c.MinStepRatio {
		return fmt.Errorf("step ratio bounds [%g, %g] are invalid", c.MinStepRatio, c.MaxStepRatio)
	}
	return nil
}

var (
	ErrZeroDerivative = errors.New("zero derivative")
	ErrNotConverged   = errors.New("did not converge")
	ErrNegativeRoot   = errors.New("negative default probability")
)

// Solution is the outcome of one Newton run
type Solution struct {
	Root       float64
	Value      float64
	Iterations int
	Converged  bool
}

// Objective returns f(x) and f'(x)
type Objective func(x float64) (f, df float64)

// Newton finds a root of fn. From the second step on the step magnitude is kept
// within [MinStepRatio, MaxStepRatio] times the previous step, preserving the Newton
// direction.
func Newton(fn Objective, cfg SolverConfig) (Solution, error) {
	x := cfg.InitialGuess
	prevStep := 0.0

	for iter := 0; iter < cfg.MaxIterations; iter++ {
		f, df := fn(x)
		sol := Solution{Root: x, Value: f, Iterations: iter + 1}

		if math.IsNaN(f) || math.IsInf(f, 0) {
			return sol, fmt.Errorf("objective not finite at %g: %w", x, ErrNotConverged)
		}
		if math.Abs(f) < cfg.Tolerance {
			sol.Converged = true
			return sol, nil
		}
		if df == 0 || math.IsNaN(df) {
			return sol, ErrZeroDerivative
		}

		step := -f / df
		if iter > 0 && prevStep != 0 {
			lo := cfg.MinStepRatio * math.Abs(prevStep)
			hi := cfg.MaxStepRatio * math.Abs(prevStep)
			mag := math.Min(math.Max(math.Abs(step), lo), hi)
			step = math.Copysign(mag, step)
		}

		x += step
		prevStep = step
	}

	f, _ := fn(x)
	sol := Solution{Root: x, Value: f, Iterations: cfg.MaxIterations}
	if math.Abs(f) < cfg.Tolerance {
		sol.Converged = true
		return sol, nil
	}
	return sol, ErrNotConverged
}
