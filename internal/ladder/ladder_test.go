package ladder

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flatCurve(rate float64) func(int) float64 {
	return func(r int) float64 {
		if r == 0 {
			return 0
		}
		return rate
	}
}

// couponLadder is a 2% bullet bond with nominal n maturing at horizon
func couponLadder(n float64, horizon int) (cfs, earnings []float64) {
	cfs = make([]float64, horizon+1)
	earnings = make([]float64, horizon+1)
	for t := 1; t <= horizon; t++ {
		cfs[t] = 0.02 * n
		earnings[t] = 0.02 * n
	}
	cfs[horizon] += n
	return cfs, earnings
}

func TestBuild_TwoPercentCouponPresentValue(t *testing.T) {
	const n, horizon = 1_000_000.0, 10
	cfs, earnings := couponLadder(n, horizon)

	l, err := Build(flatCurve(0.03), cfs, earnings, horizon)
	require.NoError(t, err)
	require.Equal(t, horizon, l.Len())

	want := 0.0
	for t := 1; t <= horizon; t++ {
		want += cfs[t] * math.Pow(1.03, -(float64(t)-0.5))
	}

	l.Apply(0)
	assert.InEpsilon(t, want, l.MarketValue, 1e-6)
	for _, r := range l.Records() {
		assert.InDelta(t, 0.03, r.Forward, 1e-12)
	}
}

func TestBuild_SteepCurveForwardRates(t *testing.T) {
	spots := []float64{0, 0.01, 0.02, 0.025}
	l, err := Build(func(r int) float64 { return spots[r] }, []float64{0, 0, 0, 100}, nil, 3)
	require.NoError(t, err)

	f2 := math.Pow(1.02, 2)/1.01 - 1
	assert.InDelta(t, f2, l.At(2).Forward, 1e-12)

	df3 := math.Pow(1.02, -2) / math.Pow(1+l.At(3).Forward, 0.5)
	assert.InDelta(t, df3, l.At(3).DiscountFactor, 1e-12)
	assert.InDelta(t, 100*df3, l.At(3).Discounted, 1e-9)
	assert.Nil(t, l.At(0))
	assert.Nil(t, l.At(4))
}

func TestCalibrate_SurvivalIdentity(t *testing.T) {
	const n, horizon = 1_000_000.0, 8
	cfs, earnings := couponLadder(n, horizon)
	l, err := Build(flatCurve(0.02), cfs, earnings, horizon)
	require.NoError(t, err)

	l.Apply(0)
	mv0 := 0.97 * l.MarketValue

	sol, err := l.Calibrate(mv0, DefaultSolverConfig())
	require.NoError(t, err)
	assert.True(t, sol.Converged)
	assert.Greater(t, l.Q, 0.0)

	for _, r := range l.Records() {
		want := r.CashFlow * math.Pow(1-l.Q, float64(r.T-1)+0.5)
		assert.InDelta(t, want, r.AdjustedCashFlow, 1e-9, "t=%d", r.T)
	}
	assert.InDelta(t, mv0, l.MarketValue, 0.001)
}

func TestCalibrate_AnalyticRoot(t *testing.T) {
	// single flow at t=1: k(1-q)^0.5 = mv0  =>  q = 1 - (mv0/k)^2
	const k, root = 1_000_000.0, 0.02
	mv0 := k * math.Sqrt(1-root)

	l, err := Build(flatCurve(0), []float64{0, k}, nil, 1)
	require.NoError(t, err)

	cfg := DefaultSolverConfig()
	sol, err := l.Calibrate(mv0, cfg)
	require.NoError(t, err)
	assert.LessOrEqual(t, sol.Iterations, cfg.MaxIterations)
	assert.InDelta(t, root, sol.Root, 1e-6)
}

func TestCalibrate_ReverseBookValues(t *testing.T) {
	cfs := []float64{0, 10, 10, 110}
	earnings := []float64{0, 10, 10, 10}
	l, err := Build(flatCurve(0.01), cfs, earnings, 3)
	require.NoError(t, err)
	l.Apply(0)

	assert.Equal(t, 0.0, l.At(3).AdjustedBookValue)
	assert.InDelta(t, 100.0, l.At(2).AdjustedBookValue, 1e-12)
	assert.InDelta(t, 100.0, l.At(1).AdjustedBookValue, 1e-12)
	assert.InDelta(t, 100.0, l.InitialBookValue, 1e-12)
	assert.InDelta(t, 5.0, l.At(1).Accrual, 1e-12)
	assert.InDelta(t, 5.0, l.InitialAccrual, 1e-12)
	assert.Equal(t, 0.0, l.At(3).Accrual)
	assert.Greater(t, l.Duration, 2.0)
	assert.Less(t, l.Duration, 2.5)
}

func TestCalibrate_NegativeRootRejected(t *testing.T) {
	l, err := Build(flatCurve(0), []float64{0, 100}, nil, 1)
	require.NoError(t, err)

	_, err = l.Calibrate(105, DefaultSolverConfig())
	var ce *CalibrationError
	require.True(t, errors.As(err, &ce))
	assert.ErrorIs(t, err, ErrNegativeRoot)

	cfg := DefaultSolverConfig()
	cfg.AllowNegative = true
	sol, err := l.Calibrate(105, cfg)
	require.NoError(t, err)
	assert.Less(t, sol.Root, 0.0)
}

func TestCalibrate_ZeroDerivative(t *testing.T) {
	l, err := Build(flatCurve(0.01), nil, nil, 3)
	require.NoError(t, err)

	_, err = l.Calibrate(100, DefaultSolverConfig())
	assert.ErrorIs(t, err, ErrZeroDerivative)

	// nothing to value and nothing to match converges immediately
	sol, err := l.Calibrate(0, DefaultSolverConfig())
	require.NoError(t, err)
	assert.Equal(t, 1, sol.Iterations)
}

func TestNewton_NotConverged(t *testing.T) {
	cfg := DefaultSolverConfig()
	cfg.MaxIterations = 3
	_, err := Newton(func(x float64) (float64, float64) { return math.Exp(x) + 1, math.Exp(x) }, cfg)
	assert.ErrorIs(t, err, ErrNotConverged)
}

func TestSolverConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultSolverConfig().Validate())

	bad := DefaultSolverConfig()
	bad.MaxStepRatio = 0.05
	assert.Error(t, bad.Validate())
}

func TestRemainingCashFlows(t *testing.T) {
	l, err := Build(flatCurve(0.01), []float64{0, 1, 2, 3}, nil, 3)
	require.NoError(t, err)

	assert.Equal(t, []float64{0, 2, 3}, l.RemainingCashFlows(1))
	assert.Nil(t, l.RemainingCashFlows(3))
}
