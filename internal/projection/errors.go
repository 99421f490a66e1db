package projection

import (
	"errors"
	"fmt"
	"strings"
)

// ErrWrongState is returned when an engine operation is called out of order
var ErrWrongState = errors.New("engine is not in the required state")

// ConfigError reports invalid inputs found while building the cohort graph
type ConfigError struct {
	Scenario string
	Reason   string
	Err      error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("scenario %s: invalid configuration: %s: %v", e.Scenario, e.Reason, e.Err)
	}
	return fmt.Sprintf("scenario %s: invalid configuration: %s", e.Scenario, e.Reason)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// NonFiniteError lists the record fields that became NaN or infinite at one timestep
type NonFiniteError struct {
	Scenario string
	Path     int
	Timestep int
	Fields   []string
}

func (e *NonFiniteError) Error() string {
	return fmt.Sprintf("scenario %s path %d timestep %d: non-finite values in %s",
		e.Scenario, e.Path, e.Timestep, strings.Join(e.Fields, ", "))
}
