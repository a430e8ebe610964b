package ledger_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/ledger-engine/ledger"
)

// =============================================================================
// DIRECTIONAL DELTA TESTS
// =============================================================================

func entryOf(typ ledger.EntryType, amount float64) ledger.Entry {
	return ledger.Entry{
		Date:        ledger.NewDate(2025, time.March, 1),
		Description: "t",
		Amount:      ledger.NewMoney(amount, "USD"),
		Type:        typ,
		AccountID:   "a",
	}
}

func TestDelta_SourceSide(t *testing.T) {
	cases := []struct {
		typ  ledger.EntryType
		want int64
	}{
		{ledger.TypeIncome, 100},
		{ledger.TypeDepositInterest, 100},
		{ledger.TypeExpense, -100},
		{ledger.TypeInternalTransfer, -100},
		{ledger.TypeDepositTopUp, -100},
		{ledger.TypeDepositWithdrawal, -100},
	}
	for _, c := range cases {
		got := ledger.Delta(entryOf(c.typ, 100), true)
		if !got.Equal(decimal.NewFromInt(c.want)) {
			t.Errorf("%s source delta: expected %d, got %v", c.typ, c.want, got)
		}
	}
}

func TestDelta_TargetSide_CreditsConvertedAmount(t *testing.T) {
	// Destination of a cross-currency transfer is credited with the
	// converted TargetAmount, never the source amount.
	e := entryOf(ledger.TypeInternalTransfer, 100)
	e.TargetAccountID = "b"
	e.TargetAmount = ledger.NewMoney(90, "EUR")

	got := ledger.Delta(e, false)
	if !got.Equal(decimal.NewFromInt(90)) {
		t.Errorf("expected target credit of 90, got %v", got)
	}
}

func TestDelta_TargetSide_SameCurrencyFallsBackToAmount(t *testing.T) {
	e := entryOf(ledger.TypeInternalTransfer, 100)
	e.TargetAccountID = "b"

	got := ledger.Delta(e, false)
	if !got.Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected target credit of 100, got %v", got)
	}
}

// =============================================================================
// ROUND-TRIP LAW - Reverse(Apply(e, b, r), r) == b
// =============================================================================

func TestApplyReverse_RoundTrip(t *testing.T) {
	types := []ledger.EntryType{
		ledger.TypeExpense, ledger.TypeIncome, ledger.TypeInternalTransfer,
		ledger.TypeDepositTopUp, ledger.TypeDepositWithdrawal, ledger.TypeDepositInterest,
	}
	amounts := []float64{0.01, 1, 99.99, 123456.78}
	balances := []decimal.Decimal{
		decimal.Zero,
		decimal.NewFromInt(1000),
		decimal.NewFromInt(-50),
		decimal.RequireFromString("0.004"),
	}

	for _, typ := range types {
		for _, amt := range amounts {
			for _, role := range []bool{true, false} {
				e := entryOf(typ, amt)
				for _, b := range balances {
					back := ledger.Reverse(e, ledger.Apply(e, b, role), role)
					if !back.Equal(b) {
						t.Errorf("%s amount=%v isSource=%v: round trip %v, want %v",
							typ, amt, role, back, b)
					}
				}
			}
		}
	}
}

func TestTransfer_SourceAndTargetDeltasConserve(t *testing.T) {
	// Same-currency transfer: the two sides cancel exactly.
	e := entryOf(ledger.TypeInternalTransfer, 250)
	e.TargetAccountID = "b"

	net := ledger.Delta(e, true).Add(ledger.Delta(e, false))
	if !net.IsZero() {
		t.Errorf("same-currency transfer must conserve value, net %v", net)
	}
}
