package cache

import (
	"testing"

	"github.com/shopspring/decimal"

	"jax-eventengine/internal/domain"
)

func TestKey_UsesInstrumentIdentity(t *testing.T) {
	inst, err := domain.NewInstrument("AAPL", "XNAS", domain.AssetEquity,
		decimal.NewFromFloat(0.01), decimal.NewFromInt(1), decimal.NewFromInt(1), "share",
		domain.MustCurrency("USD"))
	if err != nil {
		t.Fatalf("instrument: %v", err)
	}
	want := "price_sample:aapl@xnas"
	if got := key(inst); got != want {
		t.Fatalf("want key %q, got %q", want, got)
	}
}
