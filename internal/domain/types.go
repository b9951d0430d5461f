// Package domain holds the value types and store/cache interfaces shared by
// every layer of the trading core: strategies read them, the reconciliation
// pipeline and risk manager operate on them, and the engine loop threads them
// between feeds, the order gateway and telemetry.
package domain

import "time"

// Side is the binary outcome direction a contract resolves to.
type Side string

const (
	Up   Side = "up"
	Down Side = "down"
)

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == Up {
		return Down
	}
	return Up
}

// AsOutcome converts a fill's side into the settlement outcome it matches
// when that side wins.
func (s Side) AsOutcome() Outcome {
	if s == Up {
		return OutcomeUp
	}
	return OutcomeDown
}

// OrderType maps a signal's passive/urgency profile onto a venue order type.
// It is a pure function of Signal.IsPassive and Signal.UseBid; see
// Signal.OrderType.
type OrderType string

const (
	OrderTypeAggressiveIOC   OrderType = "aggressive_ioc"
	OrderTypePassivePost     OrderType = "passive_post"
	OrderTypeTimedAggressive OrderType = "timed_aggressive"
	OrderTypeLongLivedPost   OrderType = "long_lived_post"
)

// GateReason records why a strategy declined to fire, or why a signal was
// rejected downstream. Surfaced in periodic diagnostics alongside each
// strategy's live parameters.
type GateReason string

const (
	GateNone                        GateReason = ""
	GateWarmupIncomplete            GateReason = "warmup_incomplete"
	GateRegimeTrend                 GateReason = "regime_trend"
	GateEdgeBelowThreshold          GateReason = "edge_below_threshold"
	GateZBelowThreshold             GateReason = "z_below_threshold"
	GateOutsideOpeningWindow        GateReason = "outside_opening_window"
	GateVWAPUnavailable             GateReason = "vwap_unavailable"
	GateTauTooShort                 GateReason = "tau_too_short"
	GateDistanceTooFar              GateReason = "distance_too_far"
	GateAskTooHigh                  GateReason = "ask_too_high"
	GateSigmaInvalid                GateReason = "sigma_invalid"
	GateCooldown                    GateReason = "cooldown"
	GateMaxOrders                   GateReason = "max_orders_reached"
	GateStaleFeed                   GateReason = "stale_feed"
	GateDailyLossHalt               GateReason = "daily_loss_halt"
	GateWeeklyLossHalt              GateReason = "weekly_loss_halt"
	GateMaxExposure                 GateReason = "max_exposure"
	GateBelowMinNotional            GateReason = "below_min_notional"
	GateHouseSideConflict           GateReason = "house_side_conflict"
	GateRiskCheckError              GateReason = "risk_check_error"
	GateDeconflictedLoser           GateReason = "deconflicted_loser"
	GateInsufficientCrossMarketData GateReason = "insufficient_cross_market_data"
	GateDisabled                    GateReason = "strategy_disabled"
)

// Signal is emitted by a strategy evaluator.
type Signal struct {
	StrategyID string
	Side       Side
	IsPassive  bool
	UseBid     bool
	Edge       float64
	Confidence float64
	SizeFrac   float64
	Fair       float64
	Ask        float64
	Reason     string
	CreatedAt  time.Time
}

// OrderType derives the venue order type from the signal's passive/urgency
// profile. timed is supplied by the caller (it knows which strategy this
// signal came from) for the one strategy, certainty-capture, whose orders
// expire after a fixed TTL despite being neither passive nor bid-priced.
func (s Signal) OrderType(timed bool) OrderType {
	switch {
	case s.IsPassive:
		return OrderTypeLongLivedPost
	case s.UseBid:
		return OrderTypePassivePost
	case timed:
		return OrderTypeTimedAggressive
	default:
		return OrderTypeAggressiveIOC
	}
}

// Score is used by the reconciliation pipeline to rank competing signals.
func (s Signal) Score() float64 {
	return s.Edge * s.Confidence
}

// Order is a sized, priced instruction dispatched to the order gateway.
type Order struct {
	StrategyID string
	MarketSlug string
	TokenID    string
	Side       Side
	Price      float64
	SizeUSD    float64
	Type       OrderType
	CreatedAt  time.Time
}

// Fill is a confirmed execution. Every Fill belongs to an accepted Order
// from the same market, strategy and side.
type Fill struct {
	StrategyID  string
	Side        Side
	Price       float64
	SizeShares  float64
	TimestampMs int64
}

// Outcome is the binary settlement result of a market.
type Outcome string

const (
	OutcomeUp   Outcome = "up"
	OutcomeDown Outcome = "down"
)

// MarketContext is immutable after market open.
type MarketContext struct {
	Slug        string
	Strike      float64
	StartMs     int64
	EndMs       int64
	TickSize    float64
	UpTokenID   string
	DownTokenID string
	NegRisk     bool
}

// Inbound events consumed by the engine's single event loop.

// OracleTrade is a trade print from the reference exchange.
type OracleTrade struct {
	TsMs  int64
	Price float64
	Qty   float64
	IsBuy bool
}

// VenueQuote is a top-of-book update from the prediction market CLOB.
type VenueQuote struct {
	TsMs    int64
	Side    Side
	BestBid float64
	BestAsk float64
}

// PriceLevel is a single depth level. IsBid distinguishes a bid-side level
// from an ask-side level within the same VenueBook.Levels slice.
type PriceLevel struct {
	Price float64
	Size  float64
	IsBid bool
}

// VenueBook is a depth snapshot from the venue CLOB.
type VenueBook struct {
	TsMs   int64
	Side   Side
	Levels []PriceLevel
}

// OrderAckStatus is the terminal or interim status of a submitted order.
type OrderAckStatus string

const (
	OrderAckFilled   OrderAckStatus = "filled"
	OrderAckRejected OrderAckStatus = "rejected"
	OrderAckExpired  OrderAckStatus = "expired"
)

// OrderAck is the gateway's response to a dispatched order.
type OrderAck struct {
	OrderID    string
	StrategyID string
	Side       Side
	Status     OrderAckStatus
	Price      float64
	SizeShares float64
	LatencyMs  int64
}

// Tick is a periodic heartbeat used for stale-feed detection.
type Tick struct {
	TsMs int64
}
