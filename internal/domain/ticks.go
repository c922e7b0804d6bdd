package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TradeTick is a single executed trade observation.
type TradeTick struct {
	Instrument Instrument
	Timestamp  time.Time
	Price      decimal.Decimal // negative prices permitted
	Volume     decimal.Decimal // strictly positive
}

// Validate checks TradeTick invariants from spec.md §3.
func (t TradeTick) Validate() error {
	if !t.Volume.IsPositive() {
		return fmt.Errorf("%w: trade tick volume must be > 0", ErrValidation)
	}
	if t.Timestamp.Location() != time.UTC {
		return fmt.Errorf("%w: trade tick timestamp must be UTC", ErrValidation)
	}
	return nil
}

// QuoteTick is a two-sided price observation.
type QuoteTick struct {
	Instrument Instrument
	Timestamp  time.Time
	BidPrice   decimal.Decimal
	AskPrice   decimal.Decimal
	BidVolume  decimal.Decimal
	AskVolume  decimal.Decimal
}

// Validate checks QuoteTick invariants from spec.md §3.
func (q QuoteTick) Validate() error {
	if !q.BidVolume.IsPositive() || !q.AskVolume.IsPositive() {
		return fmt.Errorf("%w: quote tick volumes must be > 0", ErrValidation)
	}
	if q.Timestamp.Location() != time.UTC {
		return fmt.Errorf("%w: quote tick timestamp must be UTC", ErrValidation)
	}
	return nil
}

// PriceSample is a single price observation. Equality/hash key is
// (Instrument, Timestamp, PriceType) only — Price is intentionally
// excluded so late duplicates (same point in time/type, different price
// due to re-delivery) can be dropped by the consumer. See Key().
type PriceSample struct {
	Instrument Instrument
	Timestamp  time.Time
	PriceType  PriceType
	Price      decimal.Decimal
}

// priceSampleKey is the comparable identity (without Price) used for
// equality/hash purposes.
type priceSampleKey struct {
	instrument string
	timestamp  int64
	priceType  PriceType
}

// Key returns the dedup-relevant identity of the sample, excluding Price.
func (p PriceSample) Key() priceSampleKey {
	return priceSampleKey{
		instrument: p.Instrument.Key(),
		timestamp:  p.Timestamp.UnixNano(),
		priceType:  p.PriceType,
	}
}
