package domain

import "errors"

// Error taxonomy from spec.md §7. Components wrap these sentinels with
// fmt.Errorf("<context>: %w", Err...) so callers can errors.Is against a
// stable kind while still getting a useful message.
var (
	// ErrValidation covers malformed input, bad increments, out-of-range
	// ratios, duplicate keys. Raised synchronously from the offending API.
	ErrValidation = errors.New("validation error")

	// ErrInvalidTransition is raised when a state machine rejects an
	// action; indicates a programming error or race, never recovered from.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrInsufficientFunds means the broker rejected an order for lack of
	// margin/funds. Per spec.md §7 this is surfaced as an order state
	// change to REJECTED with a reason, not necessarily propagated as a Go
	// error to the strategy — but the broker's internal plumbing uses this
	// sentinel to carry the reason string.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrUnknownEntity covers unknown instrument, order id, listener key,
	// or broker key. Raised synchronously.
	ErrUnknownEntity = errors.New("unknown entity")

	// ErrConnection is reserved for broker-boundary connectivity failures;
	// never produced by the core simulation pipeline.
	ErrConnection = errors.New("connection error")

	// ErrNoPriceReference is raised when a margin computation or fill
	// requires a price and no order book has been observed for the
	// instrument, or the last one observed has no levels on either side
	// (spec.md §4.H Failure policy: "missing price reference").
	ErrNoPriceReference = errors.New("no price reference available")
)
