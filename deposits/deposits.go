/*
Package deposits provides deposit-account operations over the ledger store.

PURPOSE:
  Deposits are savings accounts fed from regular accounts. Three
  movements exist, and all of them flow through the core store's single
  mutation funnel - no deposit code ever touches a balance directly:

    TopUp:          funding account -> deposit (transfer-shaped)
    Withdraw:       deposit -> funding account (transfer-shaped)
    AccrueInterest: system-generated credit on the deposit

IMMUTABILITY:
  Interest accruals are system-generated. The core store rejects
  update/delete on them; this package is the only producer.

SEE ALSO:
  - ledger/projector.go: Directional deltas both transfer shapes rely on
  - ledger/types.go: The deposit entry types
*/
package deposits

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/ledger-engine/ledger"
)

// InterestCategory is the category interest accruals are filed under.
// Register it with the store before accruing.
const InterestCategory = "Interest"

// =============================================================================
// DEPOSIT LEDGER
// =============================================================================

type DepositLedger struct {
	store *ledger.Store
}

func NewDepositLedger(store *ledger.Store) *DepositLedger {
	return &DepositLedger{store: store}
}

// TopUp moves money from a funding account into a deposit.
func (dl *DepositLedger) TopUp(ctx context.Context, fundingID, depositID ledger.AccountID, amount decimal.Decimal, currency string, date ledger.Date) (ledger.Entry, error) {
	return dl.store.Add(ctx, ledger.Entry{
		Date:            date,
		Description:     fmt.Sprintf("Top-up %s", depositID),
		Amount:          ledger.Money{Value: amount, Currency: currency},
		Type:            ledger.TypeDepositTopUp,
		Category:        ledger.TransferCategory,
		AccountID:       fundingID,
		TargetAccountID: depositID,
	})
}

// Withdraw moves money from a deposit back to a funding account.
func (dl *DepositLedger) Withdraw(ctx context.Context, depositID, fundingID ledger.AccountID, amount decimal.Decimal, currency string, date ledger.Date) (ledger.Entry, error) {
	return dl.store.Add(ctx, ledger.Entry{
		Date:            date,
		Description:     fmt.Sprintf("Withdrawal from %s", depositID),
		Amount:          ledger.Money{Value: amount, Currency: currency},
		Type:            ledger.TypeDepositWithdrawal,
		Category:        ledger.TransferCategory,
		AccountID:       depositID,
		TargetAccountID: fundingID,
	})
}

// AccrueInterest credits earned interest to the deposit. The created
// entry is immutable: user-facing update/delete will be rejected by the
// store from then on.
func (dl *DepositLedger) AccrueInterest(ctx context.Context, depositID ledger.AccountID, amount decimal.Decimal, currency string, date ledger.Date) (ledger.Entry, error) {
	return dl.store.Add(ctx, ledger.Entry{
		Date:        date,
		Description: fmt.Sprintf("Interest accrual %s", date),
		Amount:      ledger.Money{Value: amount, Currency: currency},
		Type:        ledger.TypeDepositInterest,
		Category:    InterestCategory,
		AccountID:   depositID,
	})
}
