/*
Package fx provides currency conversion for cross-currency transfers.

PURPOSE:
  The ledger core converts exactly once, at entry construction time
  (Amount -> TargetAmount); it never recomputes per projection. This
  package supplies the Converter implementations the Store is wired
  with.

IMPLEMENTATIONS:
  Identity:    same-currency only, rejects everything else. The default
               when no rate source is configured.
  StaticRates: a fixed rate table, suitable for tests and offline use.

SEE ALSO:
  - ledger/store.go: Converter port and the Transfer path
*/
package fx

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTITY - Same-currency only
// =============================================================================

type Identity struct{}

func (Identity) Convert(amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	if from != to {
		return decimal.Zero, fmt.Errorf("no conversion rate for %s -> %s", from, to)
	}
	return amount, nil
}

// =============================================================================
// STATIC RATES - Fixed rate table
// =============================================================================

type ratePair struct {
	From string
	To   string
}

type StaticRates struct {
	rates map[ratePair]decimal.Decimal
}

func NewStaticRates() *StaticRates {
	return &StaticRates{rates: make(map[ratePair]decimal.Decimal)}
}

// SetRate registers from->to and the implied inverse.
func (s *StaticRates) SetRate(from, to string, rate decimal.Decimal) *StaticRates {
	s.rates[ratePair{From: from, To: to}] = rate
	if !rate.IsZero() {
		s.rates[ratePair{From: to, To: from}] = decimal.NewFromInt(1).Div(rate)
	}
	return s
}

func (s *StaticRates) Convert(amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	if from == to {
		return amount, nil
	}
	rate, ok := s.rates[ratePair{From: from, To: to}]
	if !ok {
		return decimal.Zero, fmt.Errorf("no conversion rate for %s -> %s", from, to)
	}
	return amount.Mul(rate), nil
}
