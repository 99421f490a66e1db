package declaration

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContribution(t *testing.T) {
	tests := []struct {
		name                              string
		minimum, raw, trailing, participation float64
		want                              float64
	}{
		{"minimum binds", 50, 100, 40, 0.5, 50},
		{"voluntary binds", 10, 100, 120, 0.5, 60},
		{"capped by raw surplus", 0, 30, 200, 0.5, 30},
		{"loss year pays minimum only", 5, -100, 200, 0.5, 5},
		{"nothing to share", 0, 0, 0, 0.9, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Contribution(tt.minimum, tt.raw, tt.trailing, tt.participation), 1e-12)
		})
	}
}

func TestForced(t *testing.T) {
	assert.Equal(t, Drawdown{}, Forced(100, 50, 10, 10, 1))

	d := Forced(20, 50, 10, 100, 0.5)
	assert.InDelta(t, 10.0, d.FromFree, 1e-12)
	assert.InDelta(t, 20.0, d.FromSuaf, 1e-12)
	assert.InDelta(t, 30.0, d.Total(), 1e-12)

	d = Forced(-100, 50, 10, 100, 0.5)
	assert.InDelta(t, 10.0, d.FromFree, 1e-12)
	assert.InDelta(t, 50.0, d.FromSuaf, 1e-12)
}

func TestDeclare(t *testing.T) {
	c := Declare(100, 0.5, 0.01, 2000, 0.4)

	assert.InDelta(t, 50.0, c.Available, 1e-12)
	assert.InDelta(t, 20.0, c.InterestPortion, 1e-12)
	assert.InDelta(t, 12.0, c.TerminalPortion, 1e-12)
	assert.InDelta(t, 0.01, c.DeclaredRate, 1e-12)
	assert.InDelta(t, 0.006, c.TerminalRate, 1e-12)
	assert.InDelta(t, 68.0, c.RemainingFreeRfB, 1e-12)
}

func TestDeclare_EmptyRfB(t *testing.T) {
	c := Declare(0, 0.5, 0.01, 2000, 0.4)
	assert.Equal(t, Cascade{}, c)
}

func TestLockIn(t *testing.T) {
	f, cash := LockIn(0.1, 20, 0.5, 400)
	assert.InDelta(t, 0.2, f, 1e-12)
	assert.Equal(t, 0.0, cash)

	f, cash = LockIn(0.1, 20, 0.5, 0)
	assert.InDelta(t, 0.1, f, 1e-12)
	assert.InDelta(t, 20.0, cash, 1e-12)
}

func TestTerminalBonus(t *testing.T) {
	paid, carried := TerminalBonus(100, 0.8, 0.25)
	assert.InDelta(t, 20.0, paid, 1e-12)
	assert.InDelta(t, 60.0, carried, 1e-12)

	assert.InDelta(t, 0.25, PayoutRatio(25, 75), 1e-12)
	assert.Equal(t, 0.0, PayoutRatio(0, 0))
	assert.InDelta(t, 0.8, AvailableRatio(100, 20), 1e-12)
	assert.Equal(t, 1.0, AvailableRatio(0, 0))
}
