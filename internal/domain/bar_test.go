package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func testBarInstrument(t *testing.T) Instrument {
	t.Helper()
	inst, err := NewInstrument("AAPL", "XNAS", AssetEquity,
		decimal.NewFromFloat(0.01), decimal.NewFromInt(1), decimal.NewFromInt(1), "share", MustCurrency("USD"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return inst
}

func TestBar_Validate_RejectsEndBeforeStart(t *testing.T) {
	start := time.Date(2026, 1, 1, 9, 31, 0, 0, time.UTC)
	b := Bar{
		Type:    BarType{Instrument: testBarInstrument(t), PeriodValue: 1, PeriodUnit: PeriodMinute, PriceType: PriceLast},
		StartDt: start,
		EndDt:   start,
		Open:    decimal.NewFromInt(1), High: decimal.NewFromInt(1), Low: decimal.NewFromInt(1), Close: decimal.NewFromInt(1),
	}
	if err := b.Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("want ErrValidation for non-increasing interval, got %v", err)
	}
}

func TestBar_Validate_RejectsNonUTCTimestamps(t *testing.T) {
	loc := time.FixedZone("EST", -5*3600)
	start := time.Date(2026, 1, 1, 9, 30, 0, 0, loc)
	b := Bar{
		Type:    BarType{Instrument: testBarInstrument(t), PeriodValue: 1, PeriodUnit: PeriodMinute, PriceType: PriceLast},
		StartDt: start,
		EndDt:   start.Add(time.Minute),
		Open:    decimal.NewFromInt(1), High: decimal.NewFromInt(1), Low: decimal.NewFromInt(1), Close: decimal.NewFromInt(1),
	}
	if err := b.Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("want ErrValidation for non-UTC timestamps, got %v", err)
	}
}

func TestBar_Validate_RejectsHighLowViolation(t *testing.T) {
	start := time.Date(2026, 1, 1, 9, 30, 0, 0, time.UTC)
	b := Bar{
		Type:    BarType{Instrument: testBarInstrument(t), PeriodValue: 1, PeriodUnit: PeriodMinute, PriceType: PriceLast},
		StartDt: start,
		EndDt:   start.Add(time.Minute),
		Open:    decimal.NewFromInt(10), High: decimal.NewFromInt(5), Low: decimal.NewFromInt(1), Close: decimal.NewFromInt(2),
	}
	if err := b.Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("want ErrValidation for open>high, got %v", err)
	}
}

func TestBar_Validate_RejectsNegativeVolume(t *testing.T) {
	start := time.Date(2026, 1, 1, 9, 30, 0, 0, time.UTC)
	b := Bar{
		Type:    BarType{Instrument: testBarInstrument(t), PeriodValue: 1, PeriodUnit: PeriodMinute, PriceType: PriceLast},
		StartDt: start,
		EndDt:   start.Add(time.Minute),
		Open:    decimal.NewFromInt(1), High: decimal.NewFromInt(2), Low: decimal.NewFromInt(1), Close: decimal.NewFromInt(1),
		Volume: decimal.NewFromInt(-1),
	}
	if err := b.Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("want ErrValidation for negative volume, got %v", err)
	}
}

func TestBar_Validate_AcceptsWellFormedBar(t *testing.T) {
	start := time.Date(2026, 1, 1, 9, 30, 0, 0, time.UTC)
	b := Bar{
		Type:    BarType{Instrument: testBarInstrument(t), PeriodValue: 1, PeriodUnit: PeriodMinute, PriceType: PriceLast},
		StartDt: start,
		EndDt:   start.Add(time.Minute),
		Open:    decimal.NewFromInt(5), High: decimal.NewFromInt(10), Low: decimal.NewFromInt(1), Close: decimal.NewFromInt(7),
		Volume: decimal.NewFromInt(100),
	}
	if err := b.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBar_Duration(t *testing.T) {
	start := time.Date(2026, 1, 1, 9, 30, 0, 0, time.UTC)
	b := Bar{StartDt: start, EndDt: start.Add(5 * time.Minute)}
	if b.Duration() != 5*time.Minute {
		t.Fatalf("Duration() = %v, want 5m", b.Duration())
	}
}

func TestBarType_Key_IsStable(t *testing.T) {
	bt := BarType{Instrument: testBarInstrument(t), PeriodValue: 1, PeriodUnit: PeriodMinute, PriceType: PriceLast}
	want := "aapl@xnas::1-minute::last"
	if got := bt.Key(); got != want {
		t.Fatalf("Key() = %q, want %q", got, want)
	}
}
