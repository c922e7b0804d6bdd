package sim

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"jax-eventengine/internal/clock"
	"jax-eventengine/internal/domain"
	"jax-eventengine/internal/fsm"
	"jax-eventengine/internal/observability"
)

// LastPriceSampleSource, LastOrderBookSource, and PriceSampleProcessor are
// the capabilities a SimBroker exposes to subscribers per spec.md §4.H.
type LastPriceSampleSource interface {
	LastPriceSample(instrument domain.Instrument) (domain.PriceSample, bool)
}

type LastOrderBookSource interface {
	LastOrderBook(instrument domain.Instrument) (domain.OrderBook, bool)
}

type PriceSampleProcessor interface {
	ProcessPriceSample(sample domain.PriceSample) error
}

// SimBroker is the in-process broker that matches resting orders against
// canonical order books, grounded in libs/replay/replay.go's SimBroker
// (float64 candle matching reworked here into the decimal order-book
// pipeline of spec.md §4.H) and original_source's
// suite_trading/platform/broker/sim package for the submission/ingestion
// step ordering. Order state is driven exclusively through
// internal/fsm.OrderMachine — order.State is a cached mirror of the
// machine's state, never written to directly.
type SimBroker struct {
	Key string

	depthModel  MarketDepthModel
	feeModel    FeeModel
	marginModel MarginModel
	fillModel   FillModel

	account *Account

	ordersByID         map[uuid.UUID]*domain.Order
	machines           map[uuid.UUID]*fsm.OrderMachine
	ordersByInstrument map[string][]uuid.UUID
	triggersByParent   map[uuid.UUID][]domain.OrderTrigger

	lastBook   map[string]domain.OrderBook
	lastSample map[string]domain.PriceSample

	rng *rand.Rand
}

// NewSimBroker constructs a SimBroker funded with startingCash in
// accountCurrency, using the given pluggable policies. rng supplies the
// converter's tie-break coin flip (spec.md §4.E); with nil, every tie is
// broken by a fresh source seeded with 1, so the outcome is deterministic
// and the same for every tie.
func NewSimBroker(key string, startingCash decimal.Decimal, accountCurrency domain.Currency, depth MarketDepthModel, fee FeeModel, margin MarginModel, fill FillModel, rng *rand.Rand) *SimBroker {
	if depth == nil {
		depth = ZeroSpreadDepthModel{}
	}
	if fill == nil {
		fill = IdentityFillModel{}
	}
	return &SimBroker{
		Key:                key,
		depthModel:         depth,
		feeModel:           fee,
		marginModel:        margin,
		fillModel:          fill,
		account:            NewAccount(startingCash, accountCurrency),
		ordersByID:         make(map[uuid.UUID]*domain.Order),
		machines:           make(map[uuid.UUID]*fsm.OrderMachine),
		ordersByInstrument: make(map[string][]uuid.UUID),
		triggersByParent:   make(map[uuid.UUID][]domain.OrderTrigger),
		lastBook:           make(map[string]domain.OrderBook),
		lastSample:         make(map[string]domain.PriceSample),
		rng:                rng,
	}
}

// Account exposes the broker's cash/margin/position ledger, primarily for
// tests and reporting.
func (b *SimBroker) Account() *Account { return b.account }

func (b *SimBroker) apply(order *domain.Order, action domain.OrderAction) error {
	machine := b.machines[order.ID]
	if machine == nil {
		return fmt.Errorf("%w: order %s has no tracked state machine", domain.ErrUnknownEntity, order.ID)
	}
	next, err := machine.Apply(action)
	if err != nil {
		return err
	}
	order.State = next
	return nil
}

// SubmitOrder runs the order-submission pipeline (spec.md §4.H): validate
// increments, compute and block initial margin, transition the order's FSM,
// and index it for matching.
func (b *SimBroker) SubmitOrder(ctx context.Context, order *domain.Order) error {
	observability.LogOrderSubmitted(ctx, order.ID.String(), order.Instrument.Key(), string(order.Side), order.Quantity.String())

	if err := order.Instrument.Validate(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if !order.Quantity.Equal(order.Instrument.RoundQuantity(order.Quantity)) {
		return fmt.Errorf("%w: quantity %s not a multiple of quantity_increment", domain.ErrValidation, order.Quantity)
	}

	if _, ok := b.machines[order.ID]; !ok {
		b.machines[order.ID] = fsm.NewOrderMachine()
	}
	if err := b.apply(order, domain.ActionSubmit); err != nil {
		return err
	}

	book, haveBook := b.lastBook[order.Instrument.Key()]
	if !haveBook {
		book = domain.OrderBook{Instrument: order.Instrument}
	}
	if _, hasBid := book.BestBid(); !hasBid {
		if _, hasAsk := book.BestAsk(); !hasAsk {
			if err := b.apply(order, domain.ActionReject); err != nil {
				return err
			}
			observability.LogOrderRejected(ctx, order.ID.String(), "no price reference for instrument")
			return fmt.Errorf("%w: instrument %s", domain.ErrNoPriceReference, order.Instrument.Key())
		}
	}
	isBuy := order.Side == domain.Buy
	margin := b.marginModel.ComputeInitialMargin(book, order.Quantity, isBuy, clock.FromContext(ctx).Now().UTC())

	if !b.account.hasFunds(margin) {
		if err := b.apply(order, domain.ActionReject); err != nil {
			return err
		}
		observability.LogOrderRejected(ctx, order.ID.String(), "insufficient funds for initial margin")
		return fmt.Errorf("%w: order %s requires %s", domain.ErrInsufficientFunds, order.ID, margin)
	}

	if err := b.apply(order, domain.ActionAccept); err != nil {
		return err
	}
	b.account.debit(margin)
	b.account.blockMargin(order.Instrument.Key(), margin)

	b.ordersByID[order.ID] = order
	key := order.Instrument.Key()
	b.ordersByInstrument[key] = append(b.ordersByInstrument[key], order.ID)
	if len(order.Triggers) > 0 {
		b.triggersByParent[order.ID] = append(b.triggersByParent[order.ID], order.Triggers...)
	}
	return nil
}

// RegisterChildOrder makes a PENDING order discoverable by a parent's
// OrderTrigger without running it through the submission pipeline. Use
// this when submitting a bracket/OCO order group: the children stay
// PENDING — untouched by matching — until activateTriggers submits them
// once the parent reaches FILLED (spec.md §4.H Timing, §9).
func (b *SimBroker) RegisterChildOrder(order *domain.Order) {
	b.ordersByID[order.ID] = order
}

// CancelOrder transitions an active order to CANCELLED and releases its
// blocked margin. Cancelling an already-terminal or unknown order fails.
func (b *SimBroker) CancelOrder(orderID uuid.UUID) error {
	order, ok := b.ordersByID[orderID]
	if !ok {
		return fmt.Errorf("%w: order %s", domain.ErrUnknownEntity, orderID)
	}
	if err := b.apply(order, domain.ActionCancel); err != nil {
		return err
	}
	b.releaseRemainingMargin(order)
	return nil
}

// LastOrderBook implements LastOrderBookSource.
func (b *SimBroker) LastOrderBook(instrument domain.Instrument) (domain.OrderBook, bool) {
	book, ok := b.lastBook[instrument.Key()]
	return book, ok
}

// LastPriceSample implements LastPriceSampleSource.
func (b *SimBroker) LastPriceSample(instrument domain.Instrument) (domain.PriceSample, bool) {
	sample, ok := b.lastSample[instrument.Key()]
	return sample, ok
}

// ProcessPriceSample implements PriceSampleProcessor, for subscribers that
// prefer sample-level granularity over full order books.
func (b *SimBroker) ProcessPriceSample(sample domain.PriceSample) error {
	b.lastSample[sample.Instrument.Key()] = sample
	return nil
}

// IngestEvent runs the order-book ingestion pipeline for evt: converts it
// to canonical books (§4.E), enriches each (§4.F), then matches every
// active order for that instrument against the resulting book, in
// id-ascending order (spec.md §4.H). It returns every new Execution
// produced by this pass, in settlement order, for the caller (normally the
// Trading Engine) to route back to the owning strategies via the routing
// registry (spec.md §4.H step 3, §4.L).
func (b *SimBroker) IngestEvent(ctx context.Context, evt domain.Event) []domain.Execution {
	var executions []domain.Execution
	for _, book := range ConvertEvent(evt, b.rng) {
		executions = append(executions, b.ingestBook(ctx, book)...)
	}
	return executions
}

func (b *SimBroker) ingestBook(ctx context.Context, book domain.OrderBook) []domain.Execution {
	enriched := b.depthModel.Enrich(book)
	key := enriched.Instrument.Key()
	b.lastBook[key] = enriched

	ids := append([]uuid.UUID(nil), b.ordersByInstrument[key]...)
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	var executions []domain.Execution
	for _, id := range ids {
		order, ok := b.ordersByID[id]
		if !ok {
			continue
		}
		executions = append(executions, b.matchOrder(ctx, order, enriched)...)
	}
	return executions
}

type fillOutcome int

const (
	fillNone fillOutcome = iota
	fillPartial
	fillFull
)

// matchOrder applies one order-book pass to order: resolves its effective
// price filter per order type, proposes fills, runs the FillModel overlay,
// and settles every accepted fill into the account.
func (b *SimBroker) matchOrder(ctx context.Context, order *domain.Order, book domain.OrderBook) []domain.Execution {
	if order.State != domain.OrderAccepted && order.State != domain.OrderPartiallyFilled {
		return nil
	}

	maxPrice, minPrice, tradable := b.priceFilter(order, book)
	if !tradable {
		return nil
	}

	target := order.TargetSignedQuantity()
	if target.IsZero() {
		return nil
	}

	proposed := book.SimulateFills(target, maxPrice, minPrice)
	proposed = b.fillModel.ApplyFillPolicy(*order, book, proposed)

	// FOK must fill in full on this single pass or not trade at all; decide
	// that before calling settleFills, since settleFills commits the
	// account mutations and builds the Executions routed to the strategy,
	// neither of which a rejected FOK order may ever produce (spec.md
	// §4.H "FOK: ... cancel entire order with zero fills").
	if order.TIF == domain.TIFFOK && !fillsCoverTarget(proposed, target) {
		b.applyTIFPolicy(order, fillNone)
		return nil
	}

	var executions []domain.Execution
	outcome := fillNone
	if len(proposed) > 0 {
		full, execs := b.settleFills(ctx, order, proposed)
		executions = execs
		if full {
			outcome = fillFull
		} else {
			outcome = fillPartial
		}
	}
	b.applyTIFPolicy(order, outcome)
	return executions
}

// fillsCoverTarget reports whether proposed's fill quantities sum to
// exactly target, the FOK "fillable in full on this pass" condition.
func fillsCoverTarget(proposed []domain.ProposedFill, target decimal.Decimal) bool {
	sum := decimal.Zero
	for _, p := range proposed {
		sum = sum.Add(p.Quantity)
	}
	return sum.Equal(target)
}

// priceFilter resolves the (maxPrice, minPrice, tradable) triple for order
// given its type, activating STOP orders when the current book's reference
// price crosses the stop, per spec.md §4.H step 2.
func (b *SimBroker) priceFilter(order *domain.Order, book domain.OrderBook) (maxPrice, minPrice *decimal.Decimal, tradable bool) {
	switch order.Type {
	case domain.OrderMarket:
		return nil, nil, true

	case domain.OrderLimit:
		return limitFilter(order)

	case domain.OrderStop:
		if !order.StopActivated {
			if !stopCrossed(order, book) {
				return nil, nil, false
			}
			order.StopActivated = true
		}
		return nil, nil, true

	case domain.OrderStopLimit:
		if !order.StopActivated {
			if !stopCrossed(order, book) {
				return nil, nil, false
			}
			order.StopActivated = true
		}
		return limitFilter(order)

	default:
		return nil, nil, false
	}
}

func limitFilter(order *domain.Order) (maxPrice, minPrice *decimal.Decimal, tradable bool) {
	if order.LimitPrice == nil {
		return nil, nil, false
	}
	if order.Side == domain.Buy {
		return order.LimitPrice, nil, true
	}
	return nil, order.LimitPrice, true
}

// stopCrossed reports whether the book's best reference price has crossed
// the order's stop price: for a BUY stop, the ask must reach or exceed the
// stop; for a SELL stop, the bid must reach or fall below it.
func stopCrossed(order *domain.Order, book domain.OrderBook) bool {
	if order.StopPrice == nil {
		return false
	}
	if order.Side == domain.Buy {
		ask, ok := book.BestAsk()
		return ok && ask.Price.GreaterThanOrEqual(*order.StopPrice)
	}
	bid, ok := book.BestBid()
	return ok && bid.Price.LessThanOrEqual(*order.StopPrice)
}

// settleFills records each proposed fill against order's account state and
// reports whether the order is now fully filled, along with one
// domain.Execution per fill for the caller to route onward.
func (b *SimBroker) settleFills(ctx context.Context, order *domain.Order, proposed []domain.ProposedFill) (bool, []domain.Execution) {
	var executions []domain.Execution
	for _, p := range proposed {
		commission := b.feeModel.ComputeCommission(p, *order, order.Fills)

		fill := domain.OrderFill{
			ID:         uuid.New(),
			OrderID:    order.ID,
			Quantity:   p.Quantity,
			Price:      p.Price,
			Timestamp:  p.Timestamp,
			Commission: commission,
		}
		order.Fills = append(order.Fills, fill)

		settlementValue := domain.NewMoney(p.Quantity.Neg().Mul(p.Price).Mul(order.Instrument.ContractSize), order.Instrument.QuoteCurrency)
		b.account.credit(settlementValue)
		b.account.recordFee(commission)
		b.account.addPosition(order.Instrument.Key(), p.Quantity)

		b.updateMaintenanceMargin(order, fill.Timestamp)
		b.releaseProportionalMargin(order, p.Quantity)

		observability.LogFill(ctx, order.ID.String(), p.Quantity.String(), p.Price.String())

		remaining := order.RemainingQuantity()
		if remaining.IsZero() {
			_ = b.apply(order, domain.ActionFill)
			b.activateTriggers(ctx, order)
		} else {
			_ = b.apply(order, domain.ActionPartialFill)
		}

		executions = append(executions, domain.Execution{Order: *order, Fill: fill})
	}
	return order.State == domain.OrderFilled, executions
}

func (b *SimBroker) updateMaintenanceMargin(order *domain.Order, ts time.Time) {
	key := order.Instrument.Key()
	book := b.lastBook[key]
	net := b.account.netPosition(key)
	b.account.MaintenanceMargin[key] = b.marginModel.ComputeMaintenanceMargin(book, net, ts)
}

func (b *SimBroker) releaseProportionalMargin(order *domain.Order, filledQty decimal.Decimal) {
	if order.Quantity.IsZero() {
		return
	}
	fraction := filledQty.Abs().Div(order.Quantity)
	blocked, ok := b.account.BlockedMargin[order.Instrument.Key()]
	if !ok {
		return
	}
	release := blocked.Mul(fraction)
	b.account.releaseMargin(order.Instrument.Key(), release)
	b.account.credit(release)
}

func (b *SimBroker) releaseRemainingMargin(order *domain.Order) {
	blocked, ok := b.account.BlockedMargin[order.Instrument.Key()]
	if !ok {
		return
	}
	b.account.releaseMargin(order.Instrument.Key(), blocked)
	b.account.credit(blocked)
}

// activateTriggers atomically applies every ACTIVATE/CANCEL trigger
// referencing order once order reaches FILLED (spec.md §4.H Timing, §9).
func (b *SimBroker) activateTriggers(ctx context.Context, order *domain.Order) {
	for _, trig := range b.triggersByParent[order.ID] {
		child, ok := b.ordersByID[trig.OtherOrder]
		if !ok {
			continue
		}
		switch trig.Type {
		case domain.TriggerActivate:
			if child.State == domain.OrderPending {
				_ = b.SubmitOrder(ctx, child)
			}
		case domain.TriggerCancel:
			_ = b.CancelOrder(child.ID)
		}
	}
	delete(b.triggersByParent, order.ID)
}

// applyTIFPolicy enforces IOC/FOK same-pass semantics: IOC cancels any
// unfilled remainder after the first pass; FOK cancels the entire order
// with zero fills if it could not be filled in full on the first pass.
func (b *SimBroker) applyTIFPolicy(order *domain.Order, outcome fillOutcome) {
	switch order.TIF {
	case domain.TIFIOC:
		if order.State == domain.OrderAccepted || order.State == domain.OrderPartiallyFilled {
			b.releaseRemainingMargin(order)
			_ = b.apply(order, domain.ActionCancel)
		}
	case domain.TIFFOK:
		// matchOrder calls this with fillNone when the proposed fills could
		// not cover the full target, before settling any of them, so
		// order.Fills is still empty here. A pass on which the order was
		// not tradable returns from matchOrder before reaching this point.
		if outcome != fillFull && (order.State == domain.OrderAccepted || order.State == domain.OrderPartiallyFilled) {
			b.releaseRemainingMargin(order)
			order.Fills = nil
			_ = b.apply(order, domain.ActionCancel)
		}
	}
}

var _ LastPriceSampleSource = (*SimBroker)(nil)
var _ LastOrderBookSource = (*SimBroker)(nil)
var _ PriceSampleProcessor = (*SimBroker)(nil)
