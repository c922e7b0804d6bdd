// Package scenario implements the optional bar CSV import described in
// spec.md §6 "Bar CSV import (optional, used by tests)", grounded on
// libs/calendar.CSVSource's header-driven column lookup, adapted from
// economic-event rows to OHLCV bar rows.
package scenario

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"jax-eventengine/internal/domain"
)

// requiredColumns are the header columns spec.md §6 mandates, in no
// particular order; the file may carry others, which are ignored.
var requiredColumns = []string{"start_dt", "end_dt", "open", "high", "low", "close", "volume"}

// LoadBarFile parses one CSV file of bars for barType, whose instrument and
// period/price-type are supplied by the caller rather than embedded in the
// file (spec.md §6: "The BarType is provided externally").
func LoadBarFile(path string, barType domain.BarType) ([]domain.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("scenario: open %q: %w", path, err)
	}
	defer f.Close()
	return ParseBarCSV(f, barType)
}

// ParseBarCSV reads UTF-8 CSV bar rows from r: header `start_dt,end_dt,
// open,high,low,close,volume` with ISO-8601 UTC timestamps.
func ParseBarCSV(r io.Reader, barType domain.BarType) ([]domain.Bar, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("scenario: read header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("%w: bar CSV missing required column %q", domain.ErrValidation, name)
		}
	}

	var bars []domain.Bar
	for rowNum := 2; ; rowNum++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("scenario: row %d: %w", rowNum, err)
		}
		bar, err := parseBarRow(row, col, barType)
		if err != nil {
			return nil, fmt.Errorf("scenario: row %d: %w", rowNum, err)
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

func parseBarRow(row []string, col map[string]int, barType domain.BarType) (domain.Bar, error) {
	get := func(name string) string {
		i := col[name]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	startDt, err := time.Parse(time.RFC3339, get("start_dt"))
	if err != nil {
		return domain.Bar{}, fmt.Errorf("start_dt: %w", err)
	}
	endDt, err := time.Parse(time.RFC3339, get("end_dt"))
	if err != nil {
		return domain.Bar{}, fmt.Errorf("end_dt: %w", err)
	}

	decimals := make(map[string]decimal.Decimal, 5)
	for _, field := range []string{"open", "high", "low", "close", "volume"} {
		d, err := decimal.NewFromString(get(field))
		if err != nil {
			return domain.Bar{}, fmt.Errorf("%s: %w", field, err)
		}
		decimals[field] = d
	}

	bar := domain.Bar{
		Type:    barType,
		StartDt: startDt.UTC(),
		EndDt:   endDt.UTC(),
		Open:    decimals["open"],
		High:    decimals["high"],
		Low:     decimals["low"],
		Close:   decimals["close"],
		Volume:  decimals["volume"],
	}
	if err := bar.Validate(); err != nil {
		return domain.Bar{}, err
	}
	return bar, nil
}

// Fixture names one instrument's CSV file plus the BarType it should be
// parsed as.
type Fixture struct {
	Path    string
	BarType domain.BarType
}

// LoadFixtures loads every Fixture's CSV file concurrently — multiple
// instrument files commonly need loading before a single deterministic
// engine run starts — then returns the parsed bars in the same order as
// fixtures, preserving determinism regardless of which goroutine finishes
// first (spec.md §5 forbids concurrency inside the engine loop itself;
// this loading happens strictly before any Engine.Run call).
func LoadFixtures(ctx context.Context, fixtures []Fixture) ([][]domain.Bar, error) {
	results := make([][]domain.Bar, len(fixtures))
	g, _ := errgroup.WithContext(ctx)
	for i, fx := range fixtures {
		i, fx := i, fx
		g.Go(func() error {
			bars, err := LoadBarFile(fx.Path, fx.BarType)
			if err != nil {
				return err
			}
			results[i] = bars
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
