package fundlinked

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoll(t *testing.T) {
	r := Roll(Step{
		StartValue:       1000,
		Premium:          100,
		ChargeRate:       0.01,
		Return:           0.05,
		PayoutRatio:      0.1,
		GuaranteedPayout: 50,
		ChargeRetention:  0.5,
	})

	assert.InDelta(t, 11.0, r.Charges, 1e-9)
	assert.InDelta(t, 5.5, r.RetainedCharges, 1e-9)
	assert.InDelta(t, 54.45, r.Growth, 1e-9)
	assert.InDelta(t, 1143.45, r.ValueBeforePayout, 1e-9)
	assert.InDelta(t, 114.345, r.Payout, 1e-9)
	assert.Equal(t, 0.0, r.GuaranteeShortfall)
	assert.InDelta(t, 1029.105, r.EndValue, 1e-9)
}

func TestRoll_GuaranteeBites(t *testing.T) {
	r := Roll(Step{StartValue: 100, Return: -0.5, PayoutRatio: 1, GuaranteedPayout: 80})

	assert.InDelta(t, 50.0, r.Payout, 1e-9)
	assert.InDelta(t, 30.0, r.GuaranteeShortfall, 1e-9)
	assert.InDelta(t, 0.0, r.EndValue, 1e-9)
}

func TestIndexReturn(t *testing.T) {
	assert.InDelta(t, 0.12, IndexReturn(100, 110, 0.02), 1e-12)
	assert.InDelta(t, 0.02, IndexReturn(0, 110, 0.02), 1e-12)
}
