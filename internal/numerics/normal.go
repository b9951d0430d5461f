// Package numerics implements the standalone statistical and pricing
// kernels the trading core is built on: the standard normal density and
// CDF, Black-Scholes-style binary pricing, 1-second-sampled EWMA realized
// volatility, a rolling VWAP, and a tick-direction regime classifier.
//
// Everything here is pure math over float64 and holds no external
// dependency: nothing in the retrieval pack imports a stats library for
// closed-form normal CDF or Black-Scholes math, so this stays on the
// standard library by design, not by omission (see DESIGN.md).
package numerics

import "math"

const sqrt2Pi = 2.5066282746310002 // math.Sqrt(2 * math.Pi)

// PDF returns the standard normal probability density function at x.
func PDF(x float64) float64 {
	return math.Exp(-x*x/2) / sqrt2Pi
}

// CDF returns the standard normal cumulative distribution function at x,
// via Abramowitz & Stegun formula 7.1.26 applied to erf, accurate to
// better than 1e-7 absolute error.
func CDF(x float64) float64 {
	return 0.5 * (1 + erf(x/math.Sqrt2))
}

// erf is the Abramowitz-Stegun rational approximation of the error
// function, |error| <= 1.5e-7 for all real x.
func erf(x float64) float64 {
	const (
		a1 = 0.254829592
		a2 = -0.284496736
		a3 = 1.421413741
		a4 = -1.453152027
		a5 = 1.061405429
		p  = 0.3275911
	)

	sign := 1.0
	if x < 0 {
		sign = -1.0
		x = -x
	}

	t := 1.0 / (1.0 + p*x)
	y := 1.0 - (((((a5*t+a4)*t)+a3)*t+a2)*t+a1)*t*math.Exp(-x*x)

	return sign * y
}
