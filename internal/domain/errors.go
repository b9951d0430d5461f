package domain

import "errors"

// Sentinel errors shared across the engine. None of these are process-fatal;
// callers wrap and log them, they never propagate past a per-market
// boundary.
var (
	ErrNotFound          = errors.New("not found")
	ErrStaleFeed         = errors.New("feed stale")
	ErrWarmupIncomplete  = errors.New("warmup incomplete")
	ErrRiskReject        = errors.New("risk gate rejected")
	ErrOrderRejected     = errors.New("order rejected")
	ErrMarketDiscovery   = errors.New("market discovery failed")
	ErrNumericDomain     = errors.New("numeric domain error")
	ErrHouseSideConflict = errors.New("signal side conflicts with house side")
	ErrLockHeld          = errors.New("lock already held")
)
