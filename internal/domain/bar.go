package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PeriodUnit enumerates the bar period units from spec.md §3.
type PeriodUnit string

const (
	PeriodSecond PeriodUnit = "SECOND"
	PeriodMinute PeriodUnit = "MINUTE"
	PeriodHour   PeriodUnit = "HOUR"
	PeriodDay    PeriodUnit = "DAY"
	PeriodWeek   PeriodUnit = "WEEK"
	PeriodMonth  PeriodUnit = "MONTH"
	PeriodTick   PeriodUnit = "TICK"
	PeriodVolume PeriodUnit = "VOLUME"
)

// PriceType enumerates which price a Bar/PriceSample represents.
type PriceType string

const (
	PriceBid  PriceType = "BID"
	PriceAsk  PriceType = "ASK"
	PriceLast PriceType = "LAST"
	PriceMid  PriceType = "MID"
)

// BarType identifies a class of bars: (instrument, period value, period
// unit, price type).
type BarType struct {
	Instrument  Instrument
	PeriodValue int
	PeriodUnit  PeriodUnit
	PriceType   PriceType
}

// Key returns a stable string identity for use as a map key.
func (bt BarType) Key() string {
	return fmt.Sprintf("%s::%d-%s::%s", bt.Instrument.Key(), bt.PeriodValue, lowerPeriodUnit(bt.PeriodUnit), lowerPriceType(bt.PriceType))
}

// Bar is a single OHLCV observation over [StartDt, EndDt).
//
// Invariant: Low <= {Open, Close} <= High; StartDt < EndDt; both UTC.
type Bar struct {
	Type       BarType
	StartDt    time.Time
	EndDt      time.Time
	Open       decimal.Decimal
	High       decimal.Decimal
	Low        decimal.Decimal
	Close      decimal.Decimal
	Volume     decimal.Decimal
	IsPartial  bool
}

// Validate enforces the Bar invariants from spec.md §3.
func (b Bar) Validate() error {
	if !b.StartDt.Before(b.EndDt) {
		return fmt.Errorf("%w: bar start_dt must be before end_dt", ErrValidation)
	}
	if b.StartDt.Location() != time.UTC || b.EndDt.Location() != time.UTC {
		return fmt.Errorf("%w: bar timestamps must be UTC", ErrValidation)
	}
	if b.Low.GreaterThan(b.Open) || b.Low.GreaterThan(b.Close) || b.Open.GreaterThan(b.High) || b.Close.GreaterThan(b.High) {
		return fmt.Errorf("%w: bar violates low<={open,close}<=high", ErrValidation)
	}
	if b.Volume.IsNegative() {
		return fmt.Errorf("%w: bar volume must be >= 0", ErrValidation)
	}
	return nil
}

// Duration returns EndDt - StartDt.
func (b Bar) Duration() time.Duration { return b.EndDt.Sub(b.StartDt) }

func lowerPeriodUnit(u PeriodUnit) string { return strings.ToLower(string(u)) }
func lowerPriceType(p PriceType) string   { return strings.ToLower(string(p)) }
