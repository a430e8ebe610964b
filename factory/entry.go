/*
Package factory converts raw entry input into validated ledger entries.

PURPOSE:
  The single point where loosely-typed input (JSON bodies, import rows,
  recurrence batches) becomes a ledger.Entry. Reference resolution,
  cross-currency conversion and ID derivation happen here, once, at
  construction time - never scattered through the query path.

WHY A FACTORY?
  String-matched category and account references were a documented bug
  source. The factory resolves them against the store exactly once and
  fails fast with the same validation errors the store itself raises.

USAGE:
  f := factory.New(converter)

  entry, err := f.Build(factory.EntryInput{
      Date:        "2025-03-10",
      Description: "Groceries",
      Amount:      42.50,
      Currency:    "EUR",
      Type:        "expense",
      Category:    "Food",
      AccountID:   "acc-1",
  })

SEE ALSO:
  - ledger/types.go: Entry shape and deterministic ID derivation
  - fx: Converter implementations
*/
package factory

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/ledger-engine/ledger"
)

// EntryInput is the raw, loosely-typed shape of one entry.
type EntryInput struct {
	Date        string  `json:"date"` // "2006-01-02"
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	Type        string  `json:"type"`
	Category    string  `json:"category"`
	Subcategory string  `json:"subcategory,omitempty"`

	AccountID       string `json:"accountId"`
	TargetAccountID string `json:"targetAccountId,omitempty"`
	TargetCurrency  string `json:"targetCurrency,omitempty"`

	RecurringSeriesID     string `json:"recurringSeriesId,omitempty"`
	RecurringOccurrenceID string `json:"recurringOccurrenceId,omitempty"`

	// CreatedAt pins the deterministic ID for re-imports. Zero = now.
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

type Factory struct {
	conv ledger.Converter
}

func New(conv ledger.Converter) *Factory {
	return &Factory{conv: conv}
}

// Build resolves references and constructs a validated Entry. The store
// still re-validates inside the mutation funnel; this front-loads the
// caller-facing errors.
func (f *Factory) Build(in EntryInput) (ledger.Entry, error) {
	date, err := ledger.ParseDate(in.Date)
	if err != nil {
		return ledger.Entry{}, &ledger.ValidationError{Field: "date", Value: in.Date, Err: err}
	}

	typ := ledger.EntryType(in.Type)
	if !typ.Valid() {
		return ledger.Entry{}, &ledger.ValidationError{Field: "type", Value: in.Type, Err: ledger.ErrInvalidEntryType}
	}

	amount := decimal.NewFromFloat(in.Amount)
	if !amount.IsPositive() {
		return ledger.Entry{}, &ledger.ValidationError{Field: "amount", Value: amount.String(), Err: ledger.ErrInvalidAmount}
	}

	e := ledger.Entry{
		Date:                  date,
		Description:           in.Description,
		Amount:                ledger.Money{Value: amount, Currency: in.Currency},
		Type:                  typ,
		Category:              in.Category,
		Subcategory:           in.Subcategory,
		AccountID:             ledger.AccountID(in.AccountID),
		TargetAccountID:       ledger.AccountID(in.TargetAccountID),
		RecurringSeriesID:     in.RecurringSeriesID,
		RecurringOccurrenceID: in.RecurringOccurrenceID,
		CreatedAt:             in.CreatedAt,
	}

	if typ.IsTransferShaped() {
		e.Category = ledger.TransferCategory
		if in.TargetAccountID == "" {
			return ledger.Entry{}, &ledger.ValidationError{Field: "targetAccountId", Value: "", Err: ledger.ErrMissingTarget}
		}
		// Convert once, here. The projector never converts.
		if in.TargetCurrency != "" && in.TargetCurrency != in.Currency {
			if f.conv == nil {
				return ledger.Entry{}, &ledger.ValidationError{Field: "targetCurrency", Value: in.TargetCurrency, Err: ledger.ErrNoConverter}
			}
			converted, err := f.conv.Convert(amount, in.Currency, in.TargetCurrency)
			if err != nil {
				return ledger.Entry{}, &ledger.ValidationError{Field: "targetCurrency", Value: in.TargetCurrency, Err: err}
			}
			e.TargetAmount = ledger.Money{Value: converted, Currency: in.TargetCurrency}
		}
	}

	return e, nil
}

// BuildBatch converts a whole import batch, failing on the first bad row.
func (f *Factory) BuildBatch(ins []EntryInput) ([]ledger.Entry, error) {
	out := make([]ledger.Entry, 0, len(ins))
	for _, in := range ins {
		e, err := f.Build(in)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}
