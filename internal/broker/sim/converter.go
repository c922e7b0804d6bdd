// Package sim implements the simulated broker pipeline: the event→order-
// book converter (spec.md §4.E), the market-depth model (§4.F), the
// fee/margin/fill policies (§4.G), and the SimBroker itself (§4.H).
//
// Grounded in original_source/src/suite_trading/platform/broker/sim's
// conversion_functions.py (structure) and libs/replay/replay.go's
// SimBroker (pending-orders/positions/fills bookkeeping, reworked here
// from float64 candles to decimal order-book ingestion).
package sim

import (
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"jax-eventengine/internal/domain"
)

// ConvertEvent decomposes a market-data event into one or more canonical
// (zero-spread where applicable) order books, per spec.md §4.E.
//
// rng supplies the single source of non-determinism in the whole pipeline
// — the tie-break when a bar's high and low are equidistant from its
// open (spec.md §9 Open Questions). Pass a seeded *rand.Rand for
// deterministic tests.
func ConvertEvent(evt domain.Event, rng *rand.Rand) []domain.OrderBook {
	switch evt.Kind {
	case domain.EventQuoteTick:
		return []domain.OrderBook{quoteTickToOrderBook(*evt.QuoteTick)}
	case domain.EventTradeTick:
		return []domain.OrderBook{tradeTickToOrderBook(*evt.TradeTick)}
	case domain.EventBar:
		return barToOrderBooks(*evt.Bar, rng)
	default:
		return nil
	}
}

func quoteTickToOrderBook(q domain.QuoteTick) domain.OrderBook {
	return domain.NewOrderBook(q.Instrument, q.Timestamp,
		[]domain.BookLevel{{Price: q.BidPrice, Volume: q.BidVolume}},
		[]domain.BookLevel{{Price: q.AskPrice, Volume: q.AskVolume}},
	)
}

func tradeTickToOrderBook(t domain.TradeTick) domain.OrderBook {
	return zeroSpreadBook(t.Instrument, t.Timestamp, t.Price, t.Volume)
}

func zeroSpreadBook(instrument domain.Instrument, ts time.Time, price, volume decimal.Decimal) domain.OrderBook {
	if volume.IsZero() {
		// Volume 0 levels are not valid book members (domain.BookLevel),
		// so a zero-volume event yields a book with no levels on either
		// side and does not carry its price — empty sides are explicitly
		// allowed by spec.md §3.
		return domain.NewOrderBook(instrument, ts, nil, nil)
	}
	level := domain.BookLevel{Price: price, Volume: volume}
	return domain.NewOrderBook(instrument, ts, []domain.BookLevel{level}, []domain.BookLevel{level})
}

// barToOrderBooks decomposes a Bar into 4 zero-spread order books at open,
// the two intra-bar extremes, and close, per spec.md §4.E. Timestamps are
// spread evenly across [StartDt, EndDt]: open at StartDt, the middle two
// at StartDt+dur/3 and StartDt+2*dur/3, close at EndDt. The extreme closer
// to the open price is emitted first; exact ties are broken by a random
// bit.
func barToOrderBooks(b domain.Bar, rng *rand.Rand) []domain.OrderBook {
	dur := b.Duration()
	third := time.Duration(int64(dur) / 3)
	tOpen := b.StartDt
	tMid1 := b.StartDt.Add(third)
	tMid2 := b.StartDt.Add(2 * third)
	tClose := b.EndDt

	volume := b.Volume // inherited by every decomposed book; 0 if absent

	highFirst := closerToOpenFirst(b, rng)

	books := make([]domain.OrderBook, 0, 4)
	books = append(books, zeroSpreadBook(b.Type.Instrument, tOpen, b.Open, volume))
	if highFirst {
		books = append(books, zeroSpreadBook(b.Type.Instrument, tMid1, b.High, volume))
		books = append(books, zeroSpreadBook(b.Type.Instrument, tMid2, b.Low, volume))
	} else {
		books = append(books, zeroSpreadBook(b.Type.Instrument, tMid1, b.Low, volume))
		books = append(books, zeroSpreadBook(b.Type.Instrument, tMid2, b.High, volume))
	}
	books = append(books, zeroSpreadBook(b.Type.Instrument, tClose, b.Close, volume))
	return books
}

// closerToOpenFirst reports whether High should be emitted before Low: the
// extreme whose distance from Open is smaller goes first; an exact tie is
// broken by a single random bit (the pipeline's only non-determinism).
func closerToOpenFirst(b domain.Bar, rng *rand.Rand) bool {
	highDist := b.High.Sub(b.Open).Abs()
	lowDist := b.Open.Sub(b.Low).Abs()
	switch {
	case highDist.LessThan(lowDist):
		return true
	case lowDist.LessThan(highDist):
		return false
	default:
		if rng == nil {
			rng = rand.New(rand.NewSource(1))
		}
		return rng.Intn(2) == 0
	}
}
