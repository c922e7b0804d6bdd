package sim

import (
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"jax-eventengine/internal/domain"
)

func testInstrument(t *testing.T) domain.Instrument {
	t.Helper()
	inst, err := domain.NewInstrument("AAPL", "XNAS", domain.AssetEquity,
		decimal.NewFromFloat(0.01), decimal.NewFromInt(1), decimal.NewFromInt(1), "share",
		domain.MustCurrency("USD"))
	if err != nil {
		t.Fatal(err)
	}
	return inst
}

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatal(err)
	}
	return parsed.UTC()
}

func testBar(t *testing.T, open, high, low, close, volume string) domain.Bar {
	t.Helper()
	inst := testInstrument(t)
	bt := domain.BarType{Instrument: inst, PeriodValue: 1, PeriodUnit: domain.PeriodMinute, PriceType: domain.PriceLast}
	return domain.Bar{
		Type:    bt,
		StartDt: mustTime(t, "2024-01-05T09:30:00Z"),
		EndDt:   mustTime(t, "2024-01-05T09:31:00Z"),
		Open:    decimal.RequireFromString(open),
		High:    decimal.RequireFromString(high),
		Low:     decimal.RequireFromString(low),
		Close:   decimal.RequireFromString(close),
		Volume:  decimal.RequireFromString(volume),
	}
}

// Each of a bar's 4 decomposed order books carries the bar's full volume,
// not a 4-way split (spec.md §4.E, DESIGN.md Open Question decisions).
func TestBarToOrderBooks_EachBookCarriesFullVolume(t *testing.T) {
	bar := testBar(t, "100", "102", "99", "101", "1000")
	books := barToOrderBooks(bar, rand.New(rand.NewSource(1)))
	if len(books) != 4 {
		t.Fatalf("want 4 books, got %d", len(books))
	}
	for i, book := range books {
		bid, ok := book.BestBid()
		if !ok {
			t.Fatalf("book %d: missing bid level", i)
		}
		if !bid.Volume.Equal(bar.Volume) {
			t.Fatalf("book %d: volume %s, want bar volume %s", i, bid.Volume, bar.Volume)
		}
	}
}

func TestBarToOrderBooks_OrderingHighFirstWhenCloser(t *testing.T) {
	// |high-open|=2, |open-low|=10: high is closer, emitted before low.
	bar := testBar(t, "100", "102", "90", "101", "10")
	books := barToOrderBooks(bar, nil)
	ask1, _ := books[1].BestAsk()
	ask2, _ := books[2].BestAsk()
	if !ask1.Price.Equal(bar.High) || !ask2.Price.Equal(bar.Low) {
		t.Fatalf("want high then low, got %s then %s", ask1.Price, ask2.Price)
	}
}

func TestBarToOrderBooks_OrderingLowFirstWhenCloser(t *testing.T) {
	bar := testBar(t, "100", "110", "98", "101", "10")
	books := barToOrderBooks(bar, nil)
	ask1, _ := books[1].BestAsk()
	ask2, _ := books[2].BestAsk()
	if !ask1.Price.Equal(bar.Low) || !ask2.Price.Equal(bar.High) {
		t.Fatalf("want low then high, got %s then %s", ask1.Price, ask2.Price)
	}
}

func TestBarToOrderBooks_TieBrokenByRNG(t *testing.T) {
	// |high-open| == |open-low| == 5: exact tie.
	bar := testBar(t, "100", "105", "95", "101", "10")
	seen := map[bool]bool{}
	for seed := int64(0); seed < 20; seed++ {
		books := barToOrderBooks(bar, rand.New(rand.NewSource(seed)))
		ask1, _ := books[1].BestAsk()
		seen[ask1.Price.Equal(bar.High)] = true
	}
	if len(seen) != 2 {
		t.Fatalf("want both tie-break outcomes across seeds, got %v", seen)
	}
}

func TestBarToOrderBooks_Timestamps(t *testing.T) {
	bar := testBar(t, "100", "102", "99", "101", "10")
	books := barToOrderBooks(bar, nil)
	if !books[0].Timestamp.Equal(bar.StartDt) {
		t.Fatalf("first book should be stamped at StartDt")
	}
	if !books[3].Timestamp.Equal(bar.EndDt) {
		t.Fatalf("last book should be stamped at EndDt")
	}
	if !books[1].Timestamp.After(books[0].Timestamp) || !books[2].Timestamp.After(books[1].Timestamp) || !books[3].Timestamp.After(books[2].Timestamp) {
		t.Fatalf("books must be strictly increasing in time: %v", books)
	}
}

func TestZeroSpreadBook_ZeroVolumeIsEmpty(t *testing.T) {
	inst := testInstrument(t)
	book := zeroSpreadBook(inst, mustTime(t, "2024-01-05T09:30:00Z"), decimal.NewFromInt(100), decimal.Zero)
	if len(book.Bids) != 0 || len(book.Asks) != 0 {
		t.Fatalf("zero-volume event should produce an empty-sided book, got %+v", book)
	}
}

func TestConvertEvent_TradeTick(t *testing.T) {
	inst := testInstrument(t)
	tick := domain.TradeTick{Instrument: inst, Timestamp: mustTime(t, "2024-01-05T09:30:00Z"),
		Price: decimal.NewFromInt(100), Volume: decimal.NewFromInt(5)}
	evt := domain.NewTradeTickEvent(tick, tick.Timestamp)
	books := ConvertEvent(evt, nil)
	if len(books) != 1 {
		t.Fatalf("want 1 book from a trade tick, got %d", len(books))
	}
	bid, _ := books[0].BestBid()
	ask, _ := books[0].BestAsk()
	if !bid.Price.Equal(ask.Price) {
		t.Fatalf("trade tick should produce a zero-spread book, got bid=%s ask=%s", bid.Price, ask.Price)
	}
}

func TestConvertEvent_QuoteTick(t *testing.T) {
	inst := testInstrument(t)
	tick := domain.QuoteTick{Instrument: inst, Timestamp: mustTime(t, "2024-01-05T09:30:00Z"),
		BidPrice: decimal.NewFromInt(99), AskPrice: decimal.NewFromInt(101),
		BidVolume: decimal.NewFromInt(10), AskVolume: decimal.NewFromInt(10)}
	evt := domain.NewQuoteTickEvent(tick, tick.Timestamp)
	books := ConvertEvent(evt, nil)
	if len(books) != 1 {
		t.Fatalf("want 1 book from a quote tick, got %d", len(books))
	}
	bid, _ := books[0].BestBid()
	ask, _ := books[0].BestAsk()
	if !bid.Price.Equal(tick.BidPrice) || !ask.Price.Equal(tick.AskPrice) {
		t.Fatalf("quote tick should preserve bid/ask, got %s/%s", bid.Price, ask.Price)
	}
}
