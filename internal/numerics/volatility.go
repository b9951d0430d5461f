package numerics

import "math"

// SecondsPerYear is used to convert an annualized volatility floor into a
// per-second floor.
const SecondsPerYear = 365.0 * 24 * 3600

// DefaultEWMALambda is the default decay factor for the sampled EWMA
// realized-volatility estimator.
const DefaultEWMALambda = 0.94

// DefaultSigmaFloorAnnual is the default annualized volatility floor.
const DefaultSigmaFloorAnnual = 0.30

// MinValidSamples is the minimum EWMA sample count before sigma is
// considered valid.
const MinValidSamples = 10

// EWMAVolatility is a 1-second-sampled exponentially weighted realized
// volatility estimator. Oracle trades arrive far more often than once a
// second; sampling at most once per second avoids the noise a per-tick
// estimator would pick up from runs of identical prices.
//
// Reads are cached: Sigma recomputes at most once per second, otherwise it
// returns the cached value from the last recomputation.
type EWMAVolatility struct {
	lambda           float64
	sigmaFloorPerSec float64

	sigmaSq         float64
	sampleCount     int
	lastSampleTsMs  int64
	lastSamplePrice float64
	hasSample       bool

	cachedSigma float64
	cachedAtMs  int64
	hasCached   bool
}

// NewEWMAVolatility creates an estimator with the given decay factor and
// annualized volatility floor. Pass 0 for either to use the package
// defaults.
func NewEWMAVolatility(lambda, sigmaFloorAnnual float64) *EWMAVolatility {
	if lambda <= 0 {
		lambda = DefaultEWMALambda
	}
	if sigmaFloorAnnual <= 0 {
		sigmaFloorAnnual = DefaultSigmaFloorAnnual
	}
	return &EWMAVolatility{
		lambda:           lambda,
		sigmaFloorPerSec: sigmaFloorAnnual / math.Sqrt(SecondsPerYear),
	}
}

// OnTrade feeds a new oracle trade into the estimator. It only updates
// sigmaSq when at least 1000ms have elapsed since the last sample; trades
// arriving faster than that are ignored for sampling purposes (their price
// is still visible to VWAP/regime via the caller feeding those separately).
func (v *EWMAVolatility) OnTrade(price float64, tsMs int64) {
	if !v.hasSample {
		v.lastSampleTsMs = tsMs
		v.lastSamplePrice = price
		v.hasSample = true
		return
	}

	dtMs := tsMs - v.lastSampleTsMs
	if dtMs < 1000 {
		return
	}

	dtS := float64(dtMs) / 1000.0
	if price <= 0 || v.lastSamplePrice <= 0 || dtS <= 0 {
		v.lastSampleTsMs = tsMs
		v.lastSamplePrice = price
		return
	}

	r := math.Log(price / v.lastSamplePrice)
	rPerSec := (r * r) / dtS
	v.sigmaSq = v.lambda*v.sigmaSq + (1-v.lambda)*rPerSec
	v.sampleCount++
	v.lastSampleTsMs = tsMs
	v.lastSamplePrice = price
}

// Sigma returns the per-second realized volatility, floored at
// sigmaFloorPerSec, valid only once SampleCount() >= MinValidSamples.
// The computation is cached and only refreshed once per second of wall
// clock (nowMs) to keep hot-path reads O(1).
func (v *EWMAVolatility) Sigma(nowMs int64) float64 {
	if v.hasCached && nowMs-v.cachedAtMs < 1000 {
		return v.cachedSigma
	}
	sigma := math.Sqrt(math.Max(v.sigmaSq, 0))
	if sigma < v.sigmaFloorPerSec {
		sigma = v.sigmaFloorPerSec
	}
	v.cachedSigma = sigma
	v.cachedAtMs = nowMs
	v.hasCached = true
	return sigma
}

// SampleCount returns the number of accepted 1-second samples so far.
func (v *EWMAVolatility) SampleCount() int {
	return v.sampleCount
}

// Valid reports whether enough samples exist for Sigma to be trustworthy.
func (v *EWMAVolatility) Valid() bool {
	return v.sampleCount >= MinValidSamples
}
