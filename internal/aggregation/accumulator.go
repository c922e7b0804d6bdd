// Package aggregation implements the time-window bar aggregation feed
// described in spec.md §4.K, with the accumulator/windowing split grounded
// in original_source/src/suite_trading/domain/market_data/bar's
// ohlcv_accumulator.py (pure OHLCV tracking) and
// new_bar_event_accumulator.py (window-boundary policy, metadata
// propagation) — kept as two separate pieces here for the same reason.
package aggregation

import (
	"time"

	"github.com/shopspring/decimal"

	"jax-eventengine/internal/domain"
)

// Accumulator tracks open/high/low/close/volume across a caller-controlled
// window. It has no opinion on when a window starts or ends — that policy
// lives in BarFeed.
type Accumulator struct {
	started bool
	open    decimal.Decimal
	high    decimal.Decimal
	low     decimal.Decimal
	close   decimal.Decimal
	volume  decimal.Decimal
}

// Reset clears the accumulator so the next Add call starts a fresh window.
func (a *Accumulator) Reset() {
	*a = Accumulator{}
}

// Add folds one source bar into the running OHLCV state.
func (a *Accumulator) Add(b domain.Bar) {
	if !a.started {
		a.open = b.Open
		a.high = b.High
		a.low = b.Low
		a.close = b.Close
		a.volume = b.Volume
		a.started = true
		return
	}
	if b.High.GreaterThan(a.high) {
		a.high = b.High
	}
	if b.Low.LessThan(a.low) {
		a.low = b.Low
	}
	a.close = b.Close
	a.volume = a.volume.Add(b.Volume)
}

// Started reports whether Add has been called since the last Reset.
func (a *Accumulator) Started() bool { return a.started }

// Build materializes the accumulated OHLCV state into a Bar with the given
// type and window bounds.
func (a *Accumulator) Build(barType domain.BarType, start, end time.Time, partial bool) domain.Bar {
	return domain.Bar{
		Type:      barType,
		StartDt:   start,
		EndDt:     end,
		Open:      a.open,
		High:      a.high,
		Low:       a.low,
		Close:     a.close,
		Volume:    a.volume,
		IsPartial: partial,
	}
}
