package scenario

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"jax-eventengine/internal/domain"
)

func testBarType(t *testing.T) domain.BarType {
	t.Helper()
	inst, err := domain.NewInstrument("AAPL", "XNAS", domain.AssetEquity,
		decimal.NewFromFloat(0.01), decimal.NewFromInt(1), decimal.NewFromInt(1), "share",
		domain.MustCurrency("USD"))
	if err != nil {
		t.Fatalf("instrument: %v", err)
	}
	return domain.BarType{Instrument: inst, PeriodValue: 1, PeriodUnit: domain.PeriodMinute, PriceType: domain.PriceLast}
}

func TestParseBarCSV_ParsesRows(t *testing.T) {
	csv := "start_dt,end_dt,open,high,low,close,volume\n" +
		"2024-01-05T09:30:00Z,2024-01-05T09:31:00Z,100,101,99,100.5,1000\n" +
		"2024-01-05T09:31:00Z,2024-01-05T09:32:00Z,100.5,102,100,101.5,1500\n"

	bars, err := ParseBarCSV(strings.NewReader(csv), testBarType(t))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("want 2 bars, got %d", len(bars))
	}
	if !bars[0].Close.Equal(decimal.RequireFromString("100.5")) {
		t.Fatalf("want close 100.5, got %s", bars[0].Close)
	}
	if bars[1].StartDt.Before(bars[0].EndDt) {
		t.Fatal("bars should be in file order")
	}
}

func TestParseBarCSV_MissingColumnFails(t *testing.T) {
	csv := "start_dt,end_dt,open,high,low,close\n2024-01-05T09:30:00Z,2024-01-05T09:31:00Z,100,101,99,100.5\n"
	if _, err := ParseBarCSV(strings.NewReader(csv), testBarType(t)); err == nil {
		t.Fatal("expected an error for a missing volume column")
	}
}

func TestParseBarCSV_InvalidBarRejected(t *testing.T) {
	csv := "start_dt,end_dt,open,high,low,close,volume\n" +
		"2024-01-05T09:30:00Z,2024-01-05T09:31:00Z,100,99,101,100.5,1000\n"
	if _, err := ParseBarCSV(strings.NewReader(csv), testBarType(t)); err == nil {
		t.Fatal("expected a validation error for high < low")
	}
}

func TestLoadFixtures_PreservesOrderAcrossConcurrentLoads(t *testing.T) {
	dir := t.TempDir()
	barType := testBarType(t)

	write := func(name, row string) string {
		path := filepath.Join(dir, name)
		content := "start_dt,end_dt,open,high,low,close,volume\n" + row
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write fixture: %v", err)
		}
		return path
	}

	pathA := write("a.csv", "2024-01-05T09:30:00Z,2024-01-05T09:31:00Z,1,1,1,1,1\n")
	pathB := write("b.csv", "2024-01-05T09:30:00Z,2024-01-05T09:31:00Z,2,2,2,2,2\n")

	results, err := LoadFixtures(context.Background(), []Fixture{
		{Path: pathA, BarType: barType},
		{Path: pathB, BarType: barType},
	})
	if err != nil {
		t.Fatalf("load fixtures: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("want 2 result sets, got %d", len(results))
	}
	if !results[0][0].Open.Equal(decimal.RequireFromString("1")) {
		t.Fatalf("fixture order should be preserved: want a.csv first, got open=%s", results[0][0].Open)
	}
	if !results[1][0].Open.Equal(decimal.RequireFromString("2")) {
		t.Fatalf("fixture order should be preserved: want b.csv second, got open=%s", results[1][0].Open)
	}
}
