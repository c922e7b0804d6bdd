package aggregation

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"jax-eventengine/internal/domain"
)

func testInstrument(t *testing.T) domain.Instrument {
	t.Helper()
	inst, err := domain.NewInstrument("AAPL", "XNAS", domain.AssetEquity,
		decimal.NewFromFloat(0.01), decimal.NewFromInt(1), decimal.NewFromInt(1), "share", domain.MustCurrency("USD"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return inst
}

func testOneMinuteBar(t *testing.T, start time.Time, o, h, l, c, v float64) domain.Bar {
	t.Helper()
	return domain.Bar{
		Type: domain.BarType{
			Instrument: testInstrument(t), PeriodValue: 1, PeriodUnit: domain.PeriodMinute, PriceType: domain.PriceLast,
		},
		StartDt: start,
		EndDt:   start.Add(time.Minute),
		Open:    decimal.NewFromFloat(o),
		High:    decimal.NewFromFloat(h),
		Low:     decimal.NewFromFloat(l),
		Close:   decimal.NewFromFloat(c),
		Volume:  decimal.NewFromFloat(v),
	}
}

func TestAccumulator_FirstAddSeedsOHLC(t *testing.T) {
	var a Accumulator
	if a.Started() {
		t.Fatal("fresh accumulator should not be started")
	}
	bar := testOneMinuteBar(t, time.Unix(0, 0).UTC(), 10, 12, 9, 11, 100)
	a.Add(bar)

	if !a.Started() {
		t.Fatal("Add should mark the accumulator started")
	}
	built := a.Build(bar.Type, bar.StartDt, bar.EndDt, false)
	if !built.Open.Equal(decimal.NewFromFloat(10)) || !built.Close.Equal(decimal.NewFromFloat(11)) {
		t.Fatalf("unexpected built bar: %+v", built)
	}
}

func TestAccumulator_TracksRunningHighLowCloseVolume(t *testing.T) {
	var a Accumulator
	start := time.Unix(0, 0).UTC()
	a.Add(testOneMinuteBar(t, start, 10, 12, 9, 11, 100))
	a.Add(testOneMinuteBar(t, start.Add(time.Minute), 11, 15, 8, 13, 50))
	a.Add(testOneMinuteBar(t, start.Add(2*time.Minute), 13, 14, 12, 12, 25))

	built := a.Build(domain.BarType{}, start, start.Add(3*time.Minute), false)
	if !built.Open.Equal(decimal.NewFromFloat(10)) {
		t.Fatalf("Open = %s, want first bar's open 10", built.Open)
	}
	if !built.High.Equal(decimal.NewFromFloat(15)) {
		t.Fatalf("High = %s, want running max 15", built.High)
	}
	if !built.Low.Equal(decimal.NewFromFloat(8)) {
		t.Fatalf("Low = %s, want running min 8", built.Low)
	}
	if !built.Close.Equal(decimal.NewFromFloat(12)) {
		t.Fatalf("Close = %s, want last bar's close 12", built.Close)
	}
	if !built.Volume.Equal(decimal.NewFromFloat(175)) {
		t.Fatalf("Volume = %s, want sum 175", built.Volume)
	}
}

func TestAccumulator_Reset_ClearsState(t *testing.T) {
	var a Accumulator
	a.Add(testOneMinuteBar(t, time.Unix(0, 0).UTC(), 10, 12, 9, 11, 100))
	a.Reset()
	if a.Started() {
		t.Fatal("Reset should clear the started flag")
	}
}
