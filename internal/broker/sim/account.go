package sim

import (
	"github.com/shopspring/decimal"

	"jax-eventengine/internal/domain"
)

// Account tracks the SimBroker's funds, blocked margin, net positions, and
// fee log (spec.md §4.H state).
type Account struct {
	Cash              map[string]domain.Money // keyed by currency code
	BlockedMargin     map[string]domain.Money // keyed by instrument key
	MaintenanceMargin map[string]domain.Money // keyed by instrument key
	Positions         map[string]decimal.Decimal
	PaidFees          []domain.Money
}

// NewAccount creates an Account funded with startingCash in currency.
func NewAccount(startingCash decimal.Decimal, currency domain.Currency) *Account {
	return &Account{
		Cash:              map[string]domain.Money{currency.Code: domain.NewMoney(startingCash, currency)},
		BlockedMargin:     make(map[string]domain.Money),
		MaintenanceMargin: make(map[string]domain.Money),
		Positions:         make(map[string]decimal.Decimal),
		PaidFees:          nil,
	}
}

func (a *Account) cashBalance(currency domain.Currency) domain.Money {
	if m, ok := a.Cash[currency.Code]; ok {
		return m
	}
	return domain.ZeroMoney(currency)
}

func (a *Account) credit(m domain.Money) {
	cur := a.cashBalance(m.Currency)
	sum, err := cur.Add(m)
	if err != nil {
		// Same-currency addition into a registry-known currency never
		// fails; a mismatch here indicates a programming error upstream.
		panic(err)
	}
	a.Cash[m.Currency.Code] = sum
}

func (a *Account) debit(m domain.Money) {
	a.credit(m.Neg())
}

func (a *Account) hasFunds(m domain.Money) bool {
	return a.cashBalance(m.Currency).Amount.GreaterThanOrEqual(m.Amount)
}

func (a *Account) blockMargin(instrumentKey string, m domain.Money) {
	existing, ok := a.BlockedMargin[instrumentKey]
	if !ok {
		a.BlockedMargin[instrumentKey] = m
		return
	}
	sum, err := existing.Add(m)
	if err != nil {
		panic(err)
	}
	a.BlockedMargin[instrumentKey] = sum
}

func (a *Account) releaseMargin(instrumentKey string, m domain.Money) {
	existing, ok := a.BlockedMargin[instrumentKey]
	if !ok {
		return
	}
	diff, err := existing.Sub(m)
	if err != nil {
		panic(err)
	}
	if diff.Amount.IsNegative() {
		diff.Amount = decimal.Zero
	}
	a.BlockedMargin[instrumentKey] = diff
}

func (a *Account) netPosition(instrumentKey string) decimal.Decimal {
	return a.Positions[instrumentKey]
}

func (a *Account) addPosition(instrumentKey string, signedQty decimal.Decimal) {
	a.Positions[instrumentKey] = a.Positions[instrumentKey].Add(signedQty)
}

func (a *Account) recordFee(m domain.Money) {
	a.PaidFees = append(a.PaidFees, m)
	a.debit(m)
}
