package projection

import (
	"context"
	"errors"

	"github.com/sawpanic/almrun/internal/scenario"
)

// LoadScenario loads scenario id from store, reporting the load stage through fn. A
// stored document naming another scenario is a ConfigError.
func LoadScenario(ctx context.Context, store scenario.Store, id string, fn func(Progress)) (*scenario.Scenario, error) {
	report := stageReporter("", id, StageLoad, fn)
	report(0)

	s, err := store.Load(ctx, id)
	if errors.Is(err, scenario.ErrIDMismatch) {
		return nil, &ConfigError{Scenario: id, Reason: "scenario", Err: err}
	}
	if err != nil {
		return nil, err
	}

	report(1)
	return s, nil
}
