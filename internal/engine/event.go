package engine

import "github.com/onyxlabs/pmengine/internal/domain"

// EventKind discriminates which field of Event is populated.
type EventKind int

const (
	EventOracleTrade EventKind = iota
	EventVenueQuote
	EventVenueBook
	EventOrderAck
	EventTick
)

// Event is the single merged type every per-market queue carries. Oracle
// and venue feeds, the order gateway and the heartbeat ticker all wrap
// their payload in an Event before sending; the runner never receives a
// bare domain type.
type Event struct {
	Kind  EventKind
	Trade domain.OracleTrade
	Quote domain.VenueQuote
	Book  domain.VenueBook
	Ack   domain.OrderAck
	Tick  domain.Tick
}
