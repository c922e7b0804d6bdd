package domain

import "time"

// EventKind tags the closed set of event variants a Strategy can receive.
// Dispatch on this by exhaustive switch rather than runtime type
// assertions wherever possible — see SPEC_FULL.md §9 "Polymorphic event
// hierarchy."
type EventKind string

const (
	EventBar              EventKind = "BAR"
	EventTradeTick        EventKind = "TRADE_TICK"
	EventQuoteTick        EventKind = "QUOTE_TICK"
	EventTimeNotification EventKind = "TIME_NOTIFICATION"
)

// Event is the closed tagged-variant envelope for everything an EventFeed
// produces. Exactly one of Bar/TradeTick/QuoteTick/TimeNotification is
// populated, selected by Kind.
type Event struct {
	Kind EventKind

	// DtEvent is the logical event time (UTC); DtReceived is the ingestion
	// time (UTC). Both are required on every event.
	DtEvent    time.Time
	DtReceived time.Time

	Bar              *Bar
	TradeTick        *TradeTick
	QuoteTick        *QuoteTick
	TimeNotification *TimeNotification

	// Meta is optional, read-only, caller-supplied metadata.
	Meta map[string]any
}

// TimeNotification carries no market data; it exists purely to give a
// Strategy a wakeup at a fixed-interval cadence, terminating when its
// bound feed finishes (spec.md §4.A).
type TimeNotification struct {
	Reason string
}

// NewBarEvent wraps a Bar into an Event envelope.
func NewBarEvent(bar Bar, dtReceived time.Time) Event {
	return Event{Kind: EventBar, DtEvent: bar.EndDt, DtReceived: dtReceived, Bar: &bar}
}

// NewTradeTickEvent wraps a TradeTick into an Event envelope.
func NewTradeTickEvent(tick TradeTick, dtReceived time.Time) Event {
	return Event{Kind: EventTradeTick, DtEvent: tick.Timestamp, DtReceived: dtReceived, TradeTick: &tick}
}

// NewQuoteTickEvent wraps a QuoteTick into an Event envelope.
func NewQuoteTickEvent(tick QuoteTick, dtReceived time.Time) Event {
	return Event{Kind: EventQuoteTick, DtEvent: tick.Timestamp, DtReceived: dtReceived, QuoteTick: &tick}
}

// NewTimeNotificationEvent wraps a TimeNotification into an Event envelope
// at the given logical time.
func NewTimeNotificationEvent(dtEvent, dtReceived time.Time, reason string) Event {
	return Event{Kind: EventTimeNotification, DtEvent: dtEvent, DtReceived: dtReceived, TimeNotification: &TimeNotification{Reason: reason}}
}

// Instrument returns the instrument carried by the event's market-data
// payload, or the zero Instrument for a TimeNotification.
func (e Event) Instrument() Instrument {
	switch e.Kind {
	case EventBar:
		return e.Bar.Type.Instrument
	case EventTradeTick:
		return e.TradeTick.Instrument
	case EventQuoteTick:
		return e.QuoteTick.Instrument
	default:
		return Instrument{}
	}
}
