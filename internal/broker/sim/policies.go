package sim

import (
	"time"

	"github.com/shopspring/decimal"

	"jax-eventengine/internal/domain"
)

// FeeModel computes the commission owed on a proposed fill (spec.md
// §4.G). The default charges a fixed amount per unit traded.
type FeeModel interface {
	ComputeCommission(fill domain.ProposedFill, order domain.Order, previousFills []domain.OrderFill) domain.Money
}

// FixedPerUnitFeeModel charges RatePerUnit * |quantity|, grounded in
// libs/replay.go's SimBrokerConfig.CommissionPerShare.
type FixedPerUnitFeeModel struct {
	RatePerUnit decimal.Decimal
	Currency    domain.Currency
}

func (m FixedPerUnitFeeModel) ComputeCommission(fill domain.ProposedFill, _ domain.Order, _ []domain.OrderFill) domain.Money {
	qty := fill.Quantity.Abs()
	return domain.NewMoney(qty.Mul(m.RatePerUnit), m.Currency)
}

// MarginModel computes initial and maintenance margin requirements
// (spec.md §4.G).
type MarginModel interface {
	ComputeInitialMargin(book domain.OrderBook, tradeQuantity decimal.Decimal, isBuy bool, ts time.Time) domain.Money
	ComputeMaintenanceMargin(book domain.OrderBook, netPositionQuantity decimal.Decimal, ts time.Time) domain.Money
}

// FixedRatioMarginModel charges Ratio * |price| * |qty| * contract_size,
// symmetric for long and short positions, per spec.md §4.G default. A
// single instance serves every instrument a SimBroker trades: the
// instrument's contract size and quote currency are read off the order
// book passed to each call, rather than baked into the model.
type FixedRatioMarginModel struct {
	Ratio decimal.Decimal
}

func (m FixedRatioMarginModel) referencePrice(book domain.OrderBook, isBuy bool) decimal.Decimal {
	if isBuy {
		if ask, ok := book.BestAsk(); ok {
			return ask.Price
		}
	} else {
		if bid, ok := book.BestBid(); ok {
			return bid.Price
		}
	}
	if bid, ok := book.BestBid(); ok {
		return bid.Price
	}
	if ask, ok := book.BestAsk(); ok {
		return ask.Price
	}
	return decimal.Zero
}

func (m FixedRatioMarginModel) ComputeInitialMargin(book domain.OrderBook, tradeQuantity decimal.Decimal, isBuy bool, _ time.Time) domain.Money {
	price := m.referencePrice(book, isBuy)
	notional := price.Abs().Mul(tradeQuantity.Abs()).Mul(book.Instrument.ContractSize)
	return domain.NewMoney(notional.Mul(m.Ratio), book.Instrument.QuoteCurrency)
}

func (m FixedRatioMarginModel) ComputeMaintenanceMargin(book domain.OrderBook, netPositionQuantity decimal.Decimal, _ time.Time) domain.Money {
	var price decimal.Decimal
	if bid, ok := book.BestBid(); ok {
		price = bid.Price
	} else if ask, ok := book.BestAsk(); ok {
		price = ask.Price
	}
	notional := price.Abs().Mul(netPositionQuantity.Abs()).Mul(book.Instrument.ContractSize)
	return domain.NewMoney(notional.Mul(m.Ratio), book.Instrument.QuoteCurrency)
}

// FillModel post-processes the list of ProposedFill returned by
// OrderBook.SimulateFills, allowing probabilistic/partial/slippage
// overlays (spec.md §4.G).
type FillModel interface {
	ApplyFillPolicy(order domain.Order, book domain.OrderBook, proposed []domain.ProposedFill) []domain.ProposedFill
}

// IdentityFillModel is the default FillModel: takes every proposed fill
// unchanged.
type IdentityFillModel struct{}

func (IdentityFillModel) ApplyFillPolicy(_ domain.Order, _ domain.OrderBook, proposed []domain.ProposedFill) []domain.ProposedFill {
	return proposed
}

// PartialFillModel caps each proposed fill at a configured fraction of its
// proposed quantity, modeling a venue that rarely fills a resting order in
// full in one pass — grounded in libs/microstructure.go's SlippageModel
// per-symbol-bucket overlay concept.
type PartialFillModel struct {
	Fraction decimal.Decimal // e.g. 0.8 = accept at most 80% of each proposed fill
}

func (m PartialFillModel) ApplyFillPolicy(_ domain.Order, _ domain.OrderBook, proposed []domain.ProposedFill) []domain.ProposedFill {
	out := make([]domain.ProposedFill, 0, len(proposed))
	for _, p := range proposed {
		capped := p
		capped.Quantity = p.Quantity.Mul(m.Fraction)
		if !capped.Quantity.IsZero() {
			out = append(out, capped)
		}
	}
	return out
}
