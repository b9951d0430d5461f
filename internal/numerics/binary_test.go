package numerics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTauEff(t *testing.T) {
	assert.Equal(t, 12.0, TauEff(10, 2))
	assert.Equal(t, TauFloor, TauEff(-5, 0))
}

func TestD2AtTheMoney(t *testing.T) {
	// S == K, no drift term, so d2 should be exactly -0.5*sigma*sqrt(tau).
	sigma, tau := 0.3, 1.0
	got := D2(100, 100, sigma, tau)
	want := -0.5 * sigma * sigma * tau / (sigma * math.Sqrt(tau))
	assert.InDelta(t, want, got, 1e-9)
}

func TestD2GuardsInvalidInputs(t *testing.T) {
	cases := []struct {
		s, k, sigma, tau float64
	}{
		{0, 100, 0.3, 1},
		{100, 0, 0.3, 1},
		{100, 100, 0, 1},
		{100, 100, 0.3, 0},
	}
	for _, c := range cases {
		assert.Zero(t, D2(c.s, c.k, c.sigma, c.tau))
	}
}

func TestPFairUpDownComplementary(t *testing.T) {
	d2 := 0.75
	assert.InDelta(t, 1.0, PFairUp(d2)+PFairDown(d2), 1e-12)
}

func TestZSignMatchesMoneyness(t *testing.T) {
	assert.Positive(t, Z(110, 100, 0.3, 1))
	assert.Negative(t, Z(90, 100, 0.3, 1))
}

func TestDeltaBinaryNonNegative(t *testing.T) {
	assert.GreaterOrEqual(t, DeltaBinary(100, 100, 0.3, 1), 0.0)
	assert.Zero(t, DeltaBinary(100, 100, 0, 1))
}
