/*
Package recurring provides series-level operations over the ledger store.

PURPOSE:
  Wraps the core store with recurring-subscription semantics. The
  recurrence date math lives in an external generator; this package
  consumes the batches it produces and keeps series membership
  consistent.

IDEMPOTENCY:
  Occurrence entries carry deterministic IDs, so re-applying the same
  generated batch (double notification, re-import after restore) adds
  nothing: duplicates are skipped, not duplicated.

WHY A WRAPPER?
  The core store doesn't know what a subscription is. It handles entries
  with a seriesID tag without understanding that cancelling a
  subscription means every tagged occurrence must go - memory and
  durable store together, or the cancelled charges reappear on restart.

SEE ALSO:
  - ledger/store.go: BulkAdd and DeleteSeries, the single mutation funnel
*/
package recurring

import (
	"context"

	"github.com/warp/ledger-engine/ledger"
)

// =============================================================================
// SERIES LEDGER - Wrapper with recurring-series invariants
// =============================================================================

type SeriesLedger struct {
	store *ledger.Store
}

func NewSeriesLedger(store *ledger.Store) *SeriesLedger {
	return &SeriesLedger{store: store}
}

// ApplyBatch adds a generator-produced batch of occurrences. Every entry
// must carry the same series ID. Returns how many entries were actually
// added; previously-applied occurrences are skipped.
func (sl *SeriesLedger) ApplyBatch(ctx context.Context, seriesID string, batch []ledger.Entry) (int, error) {
	if seriesID == "" {
		return 0, &ledger.ValidationError{Field: "seriesId", Value: "", Err: ledger.ErrIDMismatch}
	}
	for _, e := range batch {
		if e.RecurringSeriesID != seriesID {
			return 0, &ledger.ValidationError{
				Field: "recurringSeriesId",
				Value: e.RecurringSeriesID,
				Err:   ledger.ErrIDMismatch,
			}
		}
	}

	addedEntries, _, err := sl.store.BulkAdd(ctx, batch)
	return len(addedEntries), err
}

// Occurrences returns all applied occurrences of a series, oldest first.
func (sl *SeriesLedger) Occurrences(seriesID string) []ledger.Entry {
	return sl.store.SeriesEntries(seriesID)
}

// Cancel removes every occurrence of a series from memory and durable
// storage. Returns how many entries were deleted.
func (sl *SeriesLedger) Cancel(ctx context.Context, seriesID string) (int, error) {
	return sl.store.DeleteSeries(ctx, seriesID)
}

// Total sums the face amounts of a series' occurrences in one currency.
func (sl *SeriesLedger) Total(seriesID, currency string) ledger.Money {
	total := ledger.Money{Currency: currency}
	for _, e := range sl.store.SeriesEntries(seriesID) {
		if e.Amount.Currency == currency {
			total = total.Add(e.Amount)
		}
	}
	return total
}
