// Package fundlinked rolls unit-linked fund values forward and prices the guaranteed
// minimum benefit that the classic deposit has to top up.
package fundlinked

import "math"

// Step are the inputs of one annual fund roll-forward
type Step struct {
	StartValue       float64
	Premium          float64
	ChargeRate       float64
	Return           float64
	PayoutRatio      float64
	GuaranteedPayout float64
	ChargeRetention  float64
}

// Result of one roll-forward
type Result struct {
	Charges            float64
	RetainedCharges    float64
	Growth             float64
	ValueBeforePayout  float64
	Payout             float64
	GuaranteeShortfall float64
	EndValue           float64
}

// IndexReturn is the total return of the fund's reference index, income reinvested
func IndexReturn(pricePrev, price, incomeYield float64) float64 {
	if pricePrev == 0 {
		return incomeYield
	}
	return price/pricePrev - 1 + incomeYield
}

// Roll applies premium, charges, market return and payouts to the fund
func Roll(s Step) Result {
	var r Result
	base := s.StartValue + s.Premium
	r.Charges = s.ChargeRate * base
	r.RetainedCharges = s.ChargeRetention * r.Charges
	r.Growth = (base - r.Charges) * s.Return
	r.ValueBeforePayout = base - r.Charges + r.Growth
	r.Payout = math.Max(0, r.ValueBeforePayout) * s.PayoutRatio
	r.GuaranteeShortfall = math.Max(0, s.GuaranteedPayout-r.Payout)
	r.EndValue = r.ValueBeforePayout - r.Payout
	return r
}
