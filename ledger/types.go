/*
Package ledger provides the transactional ledger core.

PURPOSE:
  This package contains the domain types and algorithms for mutating
  financial state (entries, account balances, category aggregates) while
  preserving consistency, supporting time-windowed queries, and surviving
  process restarts without duplication.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: A decimal amount with a currency code
  - Entry: An immutable-by-replacement record of one financial movement
  - Account: Identity + currency + a balance PROJECTED from entries
  - EntryType/Flow: Direction is encoded by type, never by a negative amount

DESIGN PRINCIPLES:
  1. Single funnel: only the Store mutates the entry set and balances
  2. Precision: decimal.Decimal everywhere, no floating point money
  3. Determinism: entry IDs derive from content, so re-import is idempotent
  4. Derived state: balances and aggregates are always reconstructible

SEE ALSO:
  - store.go: The single mutation/query surface
  - projector.go: Signed, direction-aware balance deltas
  - index.go: Per-category, per-time-bucket running totals
*/
package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Decimal amount with currency
// =============================================================================

type Money struct {
	Value    decimal.Decimal
	Currency string
}

func NewMoney(value float64, currency string) Money {
	return Money{Value: decimal.NewFromFloat(value), Currency: currency}
}

func NewMoneyFromInt(value int, currency string) Money {
	return Money{Value: decimal.NewFromInt(int64(value)), Currency: currency}
}

func (m Money) Zero() Money { return Money{Value: decimal.Zero, Currency: m.Currency} }
func (m Money) Add(b Money) Money {
	return Money{Value: m.Value.Add(b.Value), Currency: m.Currency}
}
func (m Money) Sub(b Money) Money {
	return Money{Value: m.Value.Sub(b.Value), Currency: m.Currency}
}
func (m Money) Neg() Money               { return Money{Value: m.Value.Neg(), Currency: m.Currency} }
func (m Money) IsNegative() bool         { return m.Value.IsNegative() }
func (m Money) IsZero() bool             { return m.Value.IsZero() }
func (m Money) IsPositive() bool         { return m.Value.IsPositive() }
func (m Money) Equal(b Money) bool       { return m.Currency == b.Currency && m.Value.Equal(b.Value) }
func (m Money) GreaterThan(b Money) bool { return m.Value.GreaterThan(b.Value) }
func (m Money) String() string           { return m.Value.String() + " " + m.Currency }

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EntryID string
type AccountID string

// =============================================================================
// ENTRY TYPE - Direction and business meaning of a movement
// =============================================================================

type EntryType string

const (
	TypeExpense           EntryType = "expense"
	TypeIncome            EntryType = "income"
	TypeInternalTransfer  EntryType = "internal_transfer"
	TypeDepositTopUp      EntryType = "deposit_topup"
	TypeDepositWithdrawal EntryType = "deposit_withdrawal"
	TypeDepositInterest   EntryType = "deposit_interest"
)

func (t EntryType) Valid() bool {
	switch t {
	case TypeExpense, TypeIncome, TypeInternalTransfer,
		TypeDepositTopUp, TypeDepositWithdrawal, TypeDepositInterest:
		return true
	}
	return false
}

// IsTransferShaped reports whether the type moves value between two
// accounts (source debited, target credited).
func (t EntryType) IsTransferShaped() bool {
	switch t {
	case TypeInternalTransfer, TypeDepositTopUp, TypeDepositWithdrawal:
		return true
	}
	return false
}

// IsSystemGenerated reports whether entries of this type are created by
// the system and therefore immutable: update and delete are rejected.
func (t EntryType) IsSystemGenerated() bool {
	return t == TypeDepositInterest
}

// Flow classifies an entry type for income/expense aggregation.
// Transfer-shaped movements are neutral: they move value between owned
// accounts and must not show up as income or spending.
type Flow string

const (
	FlowIncome  Flow = "income"
	FlowExpense Flow = "expense"
	FlowNeutral Flow = "neutral"
)

func (t EntryType) Flow() Flow {
	switch t {
	case TypeIncome, TypeDepositInterest:
		return FlowIncome
	case TypeExpense:
		return FlowExpense
	default:
		return FlowNeutral
	}
}

// TransferCategory is the fixed label transfer-shaped entries carry.
// It bypasses category validation and is excluded from category totals.
const TransferCategory = "Transfers"

// =============================================================================
// ENTRY - One financial movement
// =============================================================================

// Entry is immutable by replacement: Update fully reverses the old entry
// and applies the new one, never a field-level patch.
//
// INVARIANTS:
//   - Amount.Value > 0 always; direction comes from Type and account roles
//   - transfer-shaped entries have exactly one source and one target account
//   - ID is deterministic over content, so re-import does not duplicate
type Entry struct {
	ID          EntryID
	Date        Date
	Description string
	Amount      Money // positive, in the source account's currency
	Type        EntryType
	Category    string
	Subcategory string // optional

	AccountID AccountID // source account

	// Transfer-shaped entries only.
	TargetAccountID AccountID
	TargetAmount    Money // converted once at construction for cross-currency

	// Links to the external recurrence generator, empty otherwise.
	RecurringSeriesID     string
	RecurringOccurrenceID string

	// Tie-breaking and sort stability; also part of the ID derivation.
	CreatedAt time.Time
}

// CreditAmount is what the target account receives for a transfer-shaped
// entry: the converted amount when currencies differ, the face amount
// otherwise.
func (e Entry) CreditAmount() Money {
	if e.TargetAmount.Value.IsPositive() {
		return e.TargetAmount
	}
	return e.Amount
}

// IndexCategory is the category the aggregate index files this entry
// under. Transfer-shaped entries collapse onto the fixed transfer label.
func (e Entry) IndexCategory() string {
	if e.Type.IsTransferShaped() {
		return TransferCategory
	}
	return e.Category
}

// =============================================================================
// ENTRY ID - Deterministic derivation
// =============================================================================

// NewEntryID derives a stable ID from entry content. Two logically
// identical entries created at the same instant collide on purpose: that
// collision is the de-duplication signal for bulk import.
//
// Scheme: hex(sha256(date|description|amount|type|currency|createdAt-ns)[:16]).
func NewEntryID(date Date, description string, amount Money, typ EntryType, createdAt time.Time) EntryID {
	payload := fmt.Sprintf("%s|%s|%s|%s|%s|%d",
		date.String(), description, amount.Value.String(), typ, amount.Currency, createdAt.UnixNano())
	sum := sha256.Sum256([]byte(payload))
	return EntryID(hex.EncodeToString(sum[:16]))
}

// =============================================================================
// ACCOUNT - Balance is a projection, never a stored fact
// =============================================================================

// Account is consumed by the core, not owned by it. Balance is derived:
// OpeningBalance (the anchor) plus every entry delta replayed through the
// projector. No code path other than the Store's apply pipeline may write
// Balance.
type Account struct {
	ID       AccountID
	Name     string
	Currency string

	// OpeningBalance anchors the projection.
	OpeningBalance decimal.Decimal

	// Balance is the projected value. Valid only inside a Store.
	Balance decimal.Decimal
}
