package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// AssetClass enumerates the kinds of instrument this engine can price and
// trade.
type AssetClass string

const (
	AssetEquity         AssetClass = "equity"
	AssetFuture         AssetClass = "future"
	AssetFXSpot         AssetClass = "fx-spot"
	AssetCommoditySpot  AssetClass = "commodity-spot"
	AssetOption         AssetClass = "option"
)

// Instrument identifies a tradable contract by (Name, Exchange) and carries
// the tick/lot conventions the rest of the engine relies on for
// validation and tick-value computation.
//
// Invariant: TickValue() == PriceIncrement * ContractSize.
type Instrument struct {
	Name               string          `validate:"required"`
	Exchange           string          `validate:"required"`
	AssetClass         AssetClass      `validate:"required"`
	PriceIncrement     decimal.Decimal `validate:"required"`
	QuantityIncrement  decimal.Decimal `validate:"required"`
	ContractSize       decimal.Decimal `validate:"required"`
	ContractUnit       string
	QuoteCurrency      Currency `validate:"required"`
	SettlementCurrency Currency
}

// NewInstrument constructs an Instrument, defaulting SettlementCurrency to
// QuoteCurrency when unset, and validates the required fields and the
// positivity of the increment/size fields (spec.md §3 Instrument
// invariants).
func NewInstrument(name, exchange string, class AssetClass, priceInc, qtyInc, contractSize decimal.Decimal, unit string, quote Currency) (Instrument, error) {
	inst := Instrument{
		Name:               name,
		Exchange:           exchange,
		AssetClass:         class,
		PriceIncrement:     priceInc,
		QuantityIncrement:  qtyInc,
		ContractSize:       contractSize,
		ContractUnit:       unit,
		QuoteCurrency:      quote,
		SettlementCurrency: quote,
	}
	if err := inst.Validate(); err != nil {
		return Instrument{}, err
	}
	return inst, nil
}

// Validate enforces the structural invariants from spec.md §3: positive
// increments/contract size, non-empty identity.
func (i Instrument) Validate() error {
	if err := ValidateStruct(i); err != nil {
		return err
	}
	if i.Name == "" || i.Exchange == "" {
		return fmt.Errorf("%w: instrument requires name and exchange", ErrValidation)
	}
	if !i.PriceIncrement.IsPositive() {
		return fmt.Errorf("%w: instrument %s price_increment must be > 0", ErrValidation, i.Key())
	}
	if !i.QuantityIncrement.IsPositive() {
		return fmt.Errorf("%w: instrument %s quantity_increment must be > 0", ErrValidation, i.Key())
	}
	if !i.ContractSize.IsPositive() {
		return fmt.Errorf("%w: instrument %s contract_size must be > 0", ErrValidation, i.Key())
	}
	return nil
}

// TickValue returns price_increment * contract_size, the spec.md §3
// invariant relating the two.
func (i Instrument) TickValue() decimal.Decimal {
	return i.PriceIncrement.Mul(i.ContractSize)
}

// Key returns the "name@exchange" identity string, lowercased, used as a
// map key and as the instrument component of topic strings (spec.md §6).
func (i Instrument) Key() string {
	return strings.ToLower(i.Name) + "@" + strings.ToLower(i.Exchange)
}

// RoundQuantity rounds qty down to the nearest multiple of the
// instrument's quantity increment.
func (i Instrument) RoundQuantity(qty decimal.Decimal) decimal.Decimal {
	if i.QuantityIncrement.IsZero() {
		return qty
	}
	steps := qty.Div(i.QuantityIncrement).Floor()
	return steps.Mul(i.QuantityIncrement)
}
