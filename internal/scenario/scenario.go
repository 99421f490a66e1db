package scenario

import (
	"errors"
	"fmt"
	"math"

	"github.com/sawpanic/almrun/internal/domain/discount"
)

// ErrIDMismatch is returned when a stored scenario carries a different id than requested
var ErrIDMismatch = errors.New("scenario id mismatch")

// Scenario is one named interest-rate scenario with its stochastic paths
type Scenario struct {
	ID      string    `json:"id" yaml:"id"`
	Horizon int       `json:"horizon" yaml:"horizon"`
	Initial []float64 `json:"initial_curve" yaml:"initial_curve"` // spot by residual maturity, index 0 ignored
	Paths   []Table   `json:"paths" yaml:"paths"`
}

// InitialCurve returns the path-independent term structure at projection start
func (s *Scenario) InitialCurve() discount.Curve {
	return func(r int) float64 {
		if r <= 0 {
			return 0
		}
		return series(s.Initial, r)
	}
}

// Path returns path n (1-based, as numbered in the scenario file)
func (s *Scenario) Path(n int) (Path, error) {
	for i := range s.Paths {
		if s.Paths[i].Number == n {
			return &s.Paths[i], nil
		}
	}
	return nil, fmt.Errorf("scenario %s has no path %d", s.ID, n)
}

// Numbers lists the path numbers in file order
func (s *Scenario) Numbers() []int {
	out := make([]int, len(s.Paths))
	for i := range s.Paths {
		out[i] = s.Paths[i].Number
	}
	return out
}

// Validate checks the scenario against the requested id and projection horizon
func (s *Scenario) Validate(id string, horizon int) error {
	if s.ID != id {
		return fmt.Errorf("%w: requested %q, loaded %q", ErrIDMismatch, id, s.ID)
	}
	if s.Horizon != 0 && s.Horizon < horizon {
		return fmt.Errorf("scenario %s covers %d years, projection needs %d", s.ID, s.Horizon, horizon)
	}
	if len(s.Initial) < 2 {
		return fmt.Errorf("scenario %s has no initial curve", s.ID)
	}
	for r, x := range s.Initial {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return fmt.Errorf("scenario %s: initial curve at r=%d is not finite", s.ID, r)
		}
	}
	if len(s.Paths) == 0 {
		return fmt.Errorf("scenario %s has no paths", s.ID)
	}

	seen := make(map[int]bool, len(s.Paths))
	var errs []error
	for i := range s.Paths {
		p := &s.Paths[i]
		if seen[p.Number] {
			errs = append(errs, fmt.Errorf("scenario %s: duplicate path %d", s.ID, p.Number))
		}
		seen[p.Number] = true
		if err := p.Validate(horizon); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
