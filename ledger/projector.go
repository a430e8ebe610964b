/*
projector.go - Direction-aware balance projection

PURPOSE:
  Computes the signed effect of one entry on one account's balance.
  This is the ONLY place that knows how an entry type moves money, and
  the isSource flag is the critical correctness lever: applying
  source-side debit logic to a transfer's destination account is exactly
  the bug class that loses money on transfers.

ROLES:
  isSource=true:  the account is the primary/debited party.
                  expense debits, income credits, outgoing transfer debits.
  isSource=false: the account is a transfer's destination.
                  It is credited with the (possibly converted) amount and
                  NOTHING else - no re-application of source-side logic.

ROUND-TRIP LAW:
  Reverse(Apply(e, b, isSource), isSource) == b for all valid inputs.
  Reverse is implemented as applying the negated delta, so the law holds
  by construction.

CURRENCY:
  Cross-currency conversion happens once, at entry construction
  (Amount -> TargetAmount). The projector never converts.

SEE ALSO:
  - store.go: The only caller on the mutation path
*/
package ledger

import "github.com/shopspring/decimal"

// =============================================================================
// PROJECTOR
// =============================================================================

// Delta returns the signed balance change the entry causes for one
// account role. The entry's Amount is always positive; the sign comes
// from the type and the role.
func Delta(e Entry, isSource bool) decimal.Decimal {
	if !isSource {
		// Destination side of a transfer-shaped entry: credited with the
		// converted amount, full stop.
		return e.CreditAmount().Value
	}

	switch e.Type {
	case TypeIncome, TypeDepositInterest:
		return e.Amount.Value
	case TypeExpense, TypeInternalTransfer, TypeDepositTopUp, TypeDepositWithdrawal:
		return e.Amount.Value.Neg()
	default:
		return decimal.Zero
	}
}

// Apply projects the entry onto a balance for the given role.
func Apply(e Entry, balance decimal.Decimal, isSource bool) decimal.Decimal {
	return balance.Add(Delta(e, isSource))
}

// Reverse is the exact inverse of Apply, used by update and delete.
func Reverse(e Entry, balance decimal.Decimal, isSource bool) decimal.Decimal {
	return balance.Sub(Delta(e, isSource))
}
