// Package balance rolls the company's own balance-sheet positions forward: tax with
// loss carry-forward and deferred-tax release, equity, subordinated debt and the
// one-year liquidity credit.
package balance

import "math"

// Tax is the year's tax computation
type Tax struct {
	LossUsed           float64
	Taxable            float64
	Current            float64
	DeferredCorrection float64
	Expense            float64
	LossCarryForward   float64
	LatentTax          float64
}

// ComputeTax taxes the pre-tax result after offsetting the loss carry-forward and
// releases releaseRate of the latent tax liability against the expense.
func ComputeTax(preTax, prevLossCarry, prevLatent, rate, releaseRate float64) Tax {
	var t Tax
	positive := math.Max(preTax, 0)
	t.LossUsed = math.Min(prevLossCarry, positive)
	t.Taxable = positive - t.LossUsed
	t.Current = rate * t.Taxable
	t.DeferredCorrection = prevLatent * releaseRate
	t.Expense = t.Current - t.DeferredCorrection
	t.LossCarryForward = prevLossCarry - t.LossUsed + math.Max(0, -preTax)
	t.LatentTax = prevLatent - t.DeferredCorrection
	return t
}

// Equity rolls equity capital forward and returns the shareholder distribution
func Equity(prev, netIncome, payoutRatio float64) (equity, dividend float64) {
	dividend = payoutRatio * math.Max(0, netIncome)
	return prev + netIncome - dividend, dividend
}

// SubDebt derives coupon and repayment of subordinated debt from two schedule points
func SubDebt(prevNominal, nominal, couponRate float64) (coupon, repayment float64) {
	return prevNominal * couponRate, math.Max(0, prevNominal-nominal)
}

// Credit sizes the liquidity credit: a negative cash flow before credit is borrowed
// for one year, a positive one is investable.
func Credit(cashBeforeCredit float64) (credit, investable float64) {
	if cashBeforeCredit < 0 {
		return -cashBeforeCredit, 0
	}
	return 0, cashBeforeCredit
}

// CreditRepayment is the principal plus interest due on last year's credit
func CreditRepayment(prevCredit, prevRate float64) (repayment, interest float64) {
	interest = prevCredit * prevRate
	return prevCredit + interest, interest
}
