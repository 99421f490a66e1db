package behavior

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExcessLapse(t *testing.T) {
	p := Params{LapseSensitivity: 2, LapseCap: 0.1}

	tests := []struct {
		name string
		gap  float64
		want float64
	}{
		{"market below credited", -0.01, 0},
		{"small gap", 0.01, 0.02},
		{"capped", 0.2, 0.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ExcessLapse(tt.gap, p), 1e-12)
		})
	}
}

func TestExcessLapse_ZeroSensitivity(t *testing.T) {
	assert.Equal(t, 0.0, ExcessLapse(0.5, Params{LapseCap: 1}))
}

func TestCapitalChoice_RequiresOptionAndMaturity(t *testing.T) {
	p := Params{CapitalSensitivity: 1, CapitalCap: 0.5}

	assert.Equal(t, 0.0, CapitalChoice(0.1, p, false, 100))
	assert.Equal(t, 0.0, CapitalChoice(0.1, p, true, 0))
	assert.InDelta(t, 0.1, CapitalChoice(0.1, p, true, 100), 1e-12)
}

func TestExitPayments_ConserveReserve(t *testing.T) {
	e := ExitPayments(0.9, 0.1, 0.2, 1000, 0.05)

	released := 0.9*1000 - 0.9*(1-0.1)*(1-0.2)*1000
	assert.InDelta(t, released, e.LapsePayout+e.PenaltyGain+e.CapitalPayout, 1e-9)
	assert.InDelta(t, 0.9*0.1*1000*0.05, e.PenaltyGain, 1e-9)
}

func TestMultiplier(t *testing.T) {
	assert.InDelta(t, 0.81, Multiplier(Multiplier(1, 0.1), 0.1), 1e-12)
}
