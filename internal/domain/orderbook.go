package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// BookLevel is one (price, volume) entry in an order book. Volume must be
// > 0; zero/negative-volume levels are not valid members of a book.
type BookLevel struct {
	Price  decimal.Decimal
	Volume decimal.Decimal
}

// OrderBook is a depth-of-book snapshot for one instrument at one instant.
//
// Invariants (spec.md §3): Bids sorted descending by price; Asks sorted
// ascending by price; zero-spread allowed (bid top == ask top); negative
// prices allowed; either side may be empty.
type OrderBook struct {
	Instrument Instrument
	Timestamp  time.Time
	Bids       []BookLevel
	Asks       []BookLevel
}

// NewOrderBook sorts bids descending and asks ascending and returns a
// well-formed OrderBook.
func NewOrderBook(instrument Instrument, ts time.Time, bids, asks []BookLevel) OrderBook {
	b := append([]BookLevel(nil), bids...)
	a := append([]BookLevel(nil), asks...)
	sort.SliceStable(b, func(i, j int) bool { return b[i].Price.GreaterThan(b[j].Price) })
	sort.SliceStable(a, func(i, j int) bool { return a[i].Price.LessThan(a[j].Price) })
	return OrderBook{Instrument: instrument, Timestamp: ts, Bids: b, Asks: a}
}

// BestBid returns the highest bid level, or false if the book has no bids.
func (ob OrderBook) BestBid() (BookLevel, bool) {
	if len(ob.Bids) == 0 {
		return BookLevel{}, false
	}
	return ob.Bids[0], true
}

// BestAsk returns the lowest ask level, or false if the book has no asks.
func (ob OrderBook) BestAsk() (BookLevel, bool) {
	if len(ob.Asks) == 0 {
		return BookLevel{}, false
	}
	return ob.Asks[0], true
}

// ProposedFill is one candidate execution produced by simulate_fills,
// consumed downstream by FillModel then (on acceptance) turned into an
// OrderFill with a commission attached.
type ProposedFill struct {
	Quantity  decimal.Decimal // signed, matching the target side
	Price     decimal.Decimal
	Timestamp time.Time
}

// SimulateFills walks the opposite side of the book and proposes fills for
// target (a signed quantity: positive = BUY consumes asks, negative = SELL
// consumes bids), honoring optional price filters.
//
// Semantics (spec.md §4.D, confirmed by
// original_source/tests/unit/suite_trading/domain/test_order_book_simulate_fills.py):
//   - BUY (target > 0): walk asks ascending; skip levels priced > maxPrice
//     (if maxPrice != nil); take min(remaining, level.Volume) until the
//     target is met or levels are exhausted.
//   - SELL (target < 0): walk bids descending; skip levels priced <
//     minPrice (if minPrice != nil); symmetric consumption.
//   - Returns an empty list if the opposite side is empty.
//   - Negative prices are valid and are never filtered out by sign.
func (ob OrderBook) SimulateFills(target decimal.Decimal, maxPrice, minPrice *decimal.Decimal) []ProposedFill {
	if target.IsZero() {
		return nil
	}
	var fills []ProposedFill
	if target.IsPositive() {
		remaining := target
		for _, lvl := range ob.Asks {
			if remaining.LessThanOrEqual(decimal.Zero) {
				break
			}
			if maxPrice != nil && lvl.Price.GreaterThan(*maxPrice) {
				continue
			}
			take := decimal.Min(remaining, lvl.Volume)
			if take.LessThanOrEqual(decimal.Zero) {
				continue
			}
			fills = append(fills, ProposedFill{Quantity: take, Price: lvl.Price, Timestamp: ob.Timestamp})
			remaining = remaining.Sub(take)
		}
		return fills
	}

	remaining := target.Neg() // positive magnitude to consume from bids
	for _, lvl := range ob.Bids {
		if remaining.LessThanOrEqual(decimal.Zero) {
			break
		}
		if minPrice != nil && lvl.Price.LessThan(*minPrice) {
			continue
		}
		take := decimal.Min(remaining, lvl.Volume)
		if take.LessThanOrEqual(decimal.Zero) {
			continue
		}
		fills = append(fills, ProposedFill{Quantity: take.Neg(), Price: lvl.Price, Timestamp: ob.Timestamp})
		remaining = remaining.Sub(take)
	}
	return fills
}
