package balance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeTax(t *testing.T) {
	tests := []struct {
		name        string
		preTax      float64
		lossCarry   float64
		latent      float64
		wantCurrent float64
		wantLCF     float64
		wantExpense float64
	}{
		{"profit without losses", 100, 0, 0, 30, 0, 30},
		{"profit partially offset", 100, 40, 0, 18, 0, 18},
		{"profit fully offset", 100, 150, 0, 0, 50, 0},
		{"loss year grows carry-forward", -80, 20, 0, 0, 100, 0},
		{"latent release reduces expense", 100, 0, 10, 30, 0, 29},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeTax(tt.preTax, tt.lossCarry, tt.latent, 0.3, 0.1)
			assert.InDelta(t, tt.wantCurrent, got.Current, 1e-12)
			assert.InDelta(t, tt.wantLCF, got.LossCarryForward, 1e-12)
			assert.InDelta(t, tt.wantExpense, got.Expense, 1e-12)
			assert.InDelta(t, tt.latent*0.9, got.LatentTax, 1e-12)
		})
	}
}

func TestEquity(t *testing.T) {
	eq, div := Equity(100, 20, 0.5)
	assert.InDelta(t, 110.0, eq, 1e-12)
	assert.InDelta(t, 10.0, div, 1e-12)

	eq, div = Equity(100, -20, 0.5)
	assert.InDelta(t, 80.0, eq, 1e-12)
	assert.Equal(t, 0.0, div)
}

func TestSubDebt(t *testing.T) {
	coupon, repay := SubDebt(100, 60, 0.05)
	assert.InDelta(t, 5.0, coupon, 1e-12)
	assert.InDelta(t, 40.0, repay, 1e-12)

	_, repay = SubDebt(100, 120, 0.05)
	assert.Equal(t, 0.0, repay)
}

func TestCredit(t *testing.T) {
	credit, inv := Credit(-25)
	assert.Equal(t, 25.0, credit)
	assert.Equal(t, 0.0, inv)

	credit, inv = Credit(25)
	assert.Equal(t, 0.0, credit)
	assert.Equal(t, 25.0, inv)

	repay, interest := CreditRepayment(100, 0.02)
	assert.InDelta(t, 102.0, repay, 1e-12)
	assert.InDelta(t, 2.0, interest, 1e-12)
}
