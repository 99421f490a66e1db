package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/almrun/internal/domain/assets"
)

const inputsDoc = `
management_rules:
  allocation:
    method: mean_rate
    target_fi: 0.8
    min_fi: 0.6
    max_fi: 0.9
  participation: 0.85
  time_dependent:
    target_excess_rate: [0.01, 0.012, 0.015]
lines_of_business:
  - name: endowment
    profit_sharing: true
    capital_option: true
    behavior:
      lapse_sensitivity: 0.5
      lapse_cap: 0.1
balance_seed:
  fi_book_value: 1000
  fi_market_value: 1050
subordinated_debt:
  coupon_rate: 0.05
  nominal: [100, 100, 50]
existing_bonds:
  cash_flows: [30, 30, 1030]
  earnings: [30, 30, 30]
cohorts:
  - lob: endowment
    generation: 2004
    business: old
    deposit: kds
    technical_rate: 0.0275
    rows:
      premium: [0, 10, 10]
      cost: [0, 1, 1]
      death: [0, 2, 2]
      surrender: [0, 3, 3]
      maturity: [0, 0, 100]
      reserve: [100, 105, 0]
`

func TestParseInputs(t *testing.T) {
	in, err := ParseInputs([]byte(inputsDoc))
	require.NoError(t, err)
	require.NoError(t, in.Validate(2))

	assert.Equal(t, assets.MethodMeanRate, in.Rules.Allocation.Method)
	assert.Equal(t, 0.85, in.Rules.Participation)
	assert.Equal(t, 10, in.Rules.ReinvestMaturity, "defaults survive decoding")
	assert.Equal(t, 0.9, in.Rules.Minimum.Investment)

	lob, ok := in.LoB("endowment")
	require.True(t, ok)
	assert.True(t, lob.CapitalOption)
	assert.Equal(t, 0.5, lob.Behavior.LapseSensitivity)

	cfs, earnings := in.ExistingBonds.ByTimestep()
	assert.Equal(t, []float64{0, 30, 30, 1030}, cfs)
	assert.Len(t, earnings, 4)

	assert.Equal(t, 50.0, in.SubDebt.At(2))
	assert.Equal(t, 0.0, in.SubDebt.At(3))
}

func TestManagementRules_At(t *testing.T) {
	in, err := ParseInputs([]byte(inputsDoc))
	require.NoError(t, err)

	assert.Equal(t, 0.01, in.Rules.At(0).TargetExcessRate)
	assert.Equal(t, 0.015, in.Rules.At(2).TargetExcessRate)
	assert.Equal(t, 0.015, in.Rules.At(40).TargetExcessRate)
	assert.Equal(t, 0.5, in.Rules.At(7).DrawShare)
}

func TestInputsValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(in *Inputs)
		wantErr string
	}{
		{"unknown lob", func(in *Inputs) { in.Cohorts[0].LoB = "annuity" }, "unknown line of business"},
		{"incomplete row", func(in *Inputs) { in.Cohorts[0].Rows.Reserve = []float64{1, 2} }, "row reserve"},
		{"bad optional row", func(in *Inputs) { in.Cohorts[0].Rows.Risk = []float64{1} }, "row risk"},
		{"bad deposit", func(in *Inputs) { in.Cohorts[0].Deposit = "unit" }, "deposit must be"},
		{"duplicate cohort", func(in *Inputs) { in.Cohorts = append(in.Cohorts, in.Cohorts[0]) }, "duplicate key"},
		{"bad method", func(in *Inputs) { in.Rules.Allocation.Method = "guess" }, "allocation method"},
		{"no cohorts", func(in *Inputs) { in.Cohorts = nil }, "no cohorts"},
		{"suaf without participating reserve", func(in *Inputs) {
			in.Seed.Suaf = 10
			in.LoBs[0].ProfitSharing = false
		}, "balance_seed.suaf"},
		{"suaf on run-off reserve", func(in *Inputs) {
			in.Seed.Suaf = 10
			in.Cohorts[0].Rows.Reserve = []float64{0, 105, 0}
		}, "balance_seed.suaf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := ParseInputs([]byte(inputsDoc))
			require.NoError(t, err)
			tt.mutate(in)

			err = in.Validate(2)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadRunConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "almrun.yaml")
	doc := `
scenario: base
horizon: 40
workers: 2
inputs: inputs.yaml
calibration:
  tolerance: 0.0001
database:
  enabled: false
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	cfg, err := LoadRunConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "base", cfg.Scenario)
	assert.Equal(t, 40, cfg.Horizon)
	assert.Equal(t, 0.0001, cfg.Calibration.Tolerance)
	assert.Equal(t, 20, cfg.Calibration.MaxIterations, "default kept")
	assert.Equal(t, ":8090", cfg.Server.Addr)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"ALMRUN_SCENARIO":   "stress",
		"ALMRUN_WORKERS":    "3",
		"ALMRUN_PG_ENABLED": "true",
		"ALMRUN_PG_DSN":     "postgres://localhost/almrun",
	}
	lookup := func(k string) (string, bool) { v, ok := env[k]; return v, ok }

	cfg := DefaultRunConfig()
	require.NoError(t, cfg.applyEnv(lookup))
	assert.Equal(t, "stress", cfg.Scenario)
	assert.Equal(t, 3, cfg.Workers)
	assert.True(t, cfg.Database.Enabled)
	require.NoError(t, cfg.Validate())

	env["ALMRUN_HORIZON"] = "ten"
	err := cfg.applyEnv(lookup)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "ALMRUN_HORIZON"))
}

func TestRunConfigValidate(t *testing.T) {
	cfg := DefaultRunConfig()
	require.NoError(t, cfg.Validate())

	cfg.Database.Enabled = true
	assert.Error(t, cfg.Validate(), "dsn required")

	cfg = DefaultRunConfig()
	cfg.Horizon = 0
	assert.Error(t, cfg.Validate())
}
