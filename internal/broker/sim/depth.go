package sim

import (
	"github.com/shopspring/decimal"

	"jax-eventengine/internal/domain"
)

// MarketDepthModel is the pluggable enrichment pass from spec.md §4.F:
// `enrich(order_book) -> order_book`, preserving Instrument and Timestamp.
// The enriched book becomes the single source of pricing truth for the
// SimBroker's matching step at that timestamp.
type MarketDepthModel interface {
	Enrich(book domain.OrderBook) domain.OrderBook
}

// ZeroSpreadDepthModel is the default MarketDepthModel: identity, returns
// its input unchanged.
type ZeroSpreadDepthModel struct{}

func (ZeroSpreadDepthModel) Enrich(book domain.OrderBook) domain.OrderBook { return book }

// SpreadWideningDepthModel widens an incoming book by adding HalfSpread to
// every ask price and subtracting it from every bid price, modeling a
// non-zero bid/ask spread on top of a canonical (often zero-spread) book.
// Grounded in libs/microstructure.go's SlippageModel idea of attaching a
// configurable cost to the touch price.
type SpreadWideningDepthModel struct {
	HalfSpread decimal.Decimal
}

func (m SpreadWideningDepthModel) Enrich(book domain.OrderBook) domain.OrderBook {
	bids := make([]domain.BookLevel, len(book.Bids))
	for i, lvl := range book.Bids {
		bids[i] = domain.BookLevel{Price: lvl.Price.Sub(m.HalfSpread), Volume: lvl.Volume}
	}
	asks := make([]domain.BookLevel, len(book.Asks))
	for i, lvl := range book.Asks {
		asks[i] = domain.BookLevel{Price: lvl.Price.Add(m.HalfSpread), Volume: lvl.Volume}
	}
	return domain.NewOrderBook(book.Instrument, book.Timestamp, bids, asks)
}
