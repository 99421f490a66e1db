package discount

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestForwardRate_FlatCurve(t *testing.T) {
	for r := 1; r <= 30; r++ {
		assert.InDelta(t, 0.03, ForwardRate(0.03, 0.03, r), 1e-12, "maturity %d", r)
	}
}

func TestMidYear_FlatCurve(t *testing.T) {
	tests := []struct {
		name string
		spot float64
		r    int
	}{
		{"first year", 0.02, 1},
		{"fifth year", 0.02, 5},
		{"negative rates", -0.005, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MidYear(tt.spot, tt.spot, tt.r, MidYearOffset)
			want := math.Pow(1+tt.spot, -(float64(tt.r) - 1 + MidYearOffset))
			assert.InDelta(t, want, got, 1e-12)
		})
	}
}

func TestPresentValue_MatchesManualSum(t *testing.T) {
	curve := func(r int) float64 {
		if r == 0 {
			return 0
		}
		return 0.01 + 0.001*float64(r)
	}
	cfs := []float64{0, 10, 10, 110}

	want := 0.0
	for r := 1; r < len(cfs); r++ {
		f := math.Pow(1+curve(r), float64(r))/math.Pow(1+curve(r-1), float64(r-1)) - 1
		want += cfs[r] * math.Pow(1+curve(r-1), -float64(r-1)) / math.Pow(1+f, 0.5)
	}

	assert.InDelta(t, want, PresentValue(curve, cfs, MidYearOffset), 1e-10)
}

func TestTrailingMean_UsesHistory(t *testing.T) {
	values := []float64{0.01, 0.02, 0.03}
	history := []float64{0.05, 0.04}

	// window 4 ending at index 1 covers history[-2], history[-1], values[0], values[1]
	assert.InDelta(t, (0.05+0.04+0.01+0.02)/4, TrailingMean(values, history, 1, 4), 1e-12)
	// without enough history only the available points are averaged
	assert.InDelta(t, (0.04+0.01)/2, TrailingMean(values, history[1:], 0, 5), 1e-12)
	assert.Equal(t, 0.0, TrailingMean(nil, nil, 0, 3))
}
