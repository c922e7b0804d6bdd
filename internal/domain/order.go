package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderSide is BUY or SELL.
type OrderSide string

const (
	Buy  OrderSide = "BUY"
	Sell OrderSide = "SELL"
)

// OrderType enumerates the supported order types.
type OrderType string

const (
	OrderMarket    OrderType = "MARKET"
	OrderLimit     OrderType = "LIMIT"
	OrderStop      OrderType = "STOP"
	OrderStopLimit OrderType = "STOP_LIMIT"
)

// TimeInForce enumerates the supported TIF values.
type TimeInForce string

const (
	TIFGTC TimeInForce = "GTC"
	TIFGTD TimeInForce = "GTD"
	TIFIOC TimeInForce = "IOC"
	TIFFOK TimeInForce = "FOK"
	TIFDay TimeInForce = "DAY"
)

// TradeDirection distinguishes entries from exits for position-sizing and
// margin-release bookkeeping.
type TradeDirection string

const (
	DirectionEntry TradeDirection = "ENTRY"
	DirectionExit  TradeDirection = "EXIT"
)

// OrderState is the set of states the order FSM can occupy (spec.md §3
// Lifecycles, confirmed by
// original_source/src/suite_trading/domain/order/order_state.py).
type OrderState string

const (
	OrderPending         OrderState = "PENDING"
	OrderSubmitted       OrderState = "SUBMITTED"
	OrderAccepted        OrderState = "ACCEPTED"
	OrderRejected        OrderState = "REJECTED"
	OrderPartiallyFilled OrderState = "PARTIALLY_FILLED"
	OrderFilled          OrderState = "FILLED"
	OrderCancelled       OrderState = "CANCELLED"
)

// OrderAction is the set of actions accepted by the order FSM.
type OrderAction string

const (
	ActionSubmit        OrderAction = "SUBMIT"
	ActionAccept        OrderAction = "ACCEPT"
	ActionReject        OrderAction = "REJECT"
	ActionPartialFill   OrderAction = "PARTIAL_FILL"
	ActionFill          OrderAction = "FILL"
	ActionCancel        OrderAction = "CANCEL"
)

// TriggerType describes how one order relates to another: ACTIVATE makes
// the referenced order live, CANCEL cancels it, both occurring atomically
// when the owning order first reaches FILLED (spec.md §9 "Open questions").
type TriggerType string

const (
	TriggerActivate TriggerType = "ACTIVATE"
	TriggerCancel   TriggerType = "CANCEL"
)

// OrderTrigger is one entry in an order's trigger-relationship list.
type OrderTrigger struct {
	Type        TriggerType
	OtherOrder  uuid.UUID
}

// Order is the engine's order record. Ownership (which Strategy submitted
// it, which Broker it was routed to) is stored externally in the routing
// registry (internal/engine), not on the Order itself — spec.md §3.
type Order struct {
	ID             uuid.UUID
	Instrument     Instrument
	Side           OrderSide
	Quantity       decimal.Decimal
	Type           OrderType
	TIF            TimeInForce
	LimitPrice     *decimal.Decimal
	StopPrice      *decimal.Decimal
	Direction      TradeDirection
	Triggers       []OrderTrigger
	State          OrderState
	Fills          []OrderFill
	StopActivated  bool // STOP/STOP_LIMIT: true once the stop has triggered
	SubmittedAt    time.Time
}

// NewOrder constructs a PENDING order with a freshly issued ID.
func NewOrder(instrument Instrument, side OrderSide, qty decimal.Decimal, typ OrderType, tif TimeInForce, direction TradeDirection) Order {
	return Order{
		ID:         uuid.New(),
		Instrument: instrument,
		Side:       side,
		Quantity:   qty,
		Type:       typ,
		TIF:        tif,
		Direction:  direction,
		State:      OrderPending,
	}
}

// FilledQuantity returns the sum of fill quantities recorded so far
// (signed, matching order side).
func (o Order) FilledQuantity() decimal.Decimal {
	sum := decimal.Zero
	for _, f := range o.Fills {
		sum = sum.Add(f.Quantity)
	}
	return sum
}

// RemainingQuantity returns the unsigned remaining quantity to fill.
func (o Order) RemainingQuantity() decimal.Decimal {
	filledAbs := o.FilledQuantity().Abs()
	remaining := o.Quantity.Sub(filledAbs)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// TargetSignedQuantity returns the remaining quantity signed per side: +
// for BUY, - for SELL. Used as simulate_fills' target argument.
func (o Order) TargetSignedQuantity() decimal.Decimal {
	remaining := o.RemainingQuantity()
	if o.Side == Sell {
		return remaining.Neg()
	}
	return remaining
}

// OrderFill is a record of one (partial) trade against an order.
type OrderFill struct {
	ID         uuid.UUID
	OrderID    uuid.UUID
	Quantity   decimal.Decimal // signed, matching order side
	Price      decimal.Decimal
	Timestamp  time.Time
	Commission Money
}
