package recurring_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/ledger-engine/ledger"
	"github.com/warp/ledger-engine/ledger/repo"
	"github.com/warp/ledger-engine/recurring"
)

func newSeriesLedger(t *testing.T) (*recurring.SeriesLedger, *ledger.Store) {
	t.Helper()
	accounts := []ledger.Account{
		{ID: "checking", Name: "Checking", Currency: "USD", OpeningBalance: decimal.NewFromInt(10000)},
	}
	s, err := ledger.Open(context.Background(), repo.NewMemory(), accounts, []string{"Rent"}, ledger.Config{
		Now: func() time.Time { return time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	return recurring.NewSeriesLedger(s), s
}

func monthlyRent(month time.Month, seriesID string) ledger.Entry {
	return ledger.Entry{
		Date:              ledger.NewDate(2025, month, 1),
		Description:       "rent",
		Amount:            ledger.NewMoney(1500, "USD"),
		Type:              ledger.TypeExpense,
		Category:          "Rent",
		AccountID:         "checking",
		RecurringSeriesID: seriesID,
	}
}

func TestApplyBatch_AllOccurrencesLand(t *testing.T) {
	sl, s := newSeriesLedger(t)
	ctx := context.Background()

	batch := []ledger.Entry{
		monthlyRent(time.January, "rent-2025"),
		monthlyRent(time.February, "rent-2025"),
		monthlyRent(time.March, "rent-2025"),
	}
	added, err := sl.ApplyBatch(ctx, "rent-2025", batch)
	require.NoError(t, err)
	assert.Equal(t, 3, added)

	occ := sl.Occurrences("rent-2025")
	require.Len(t, occ, 3)
	for _, e := range occ {
		assert.Equal(t, "rent-2025", e.RecurringSeriesID)
	}

	total := sl.Total("rent-2025", "USD")
	assert.True(t, total.Value.Equal(decimal.NewFromInt(4500)))

	a, ok := s.Account("checking")
	require.True(t, ok)
	assert.True(t, a.Balance.Equal(decimal.NewFromInt(5500)))
}

func TestApplyBatch_RejectsForeignSeriesID(t *testing.T) {
	sl, s := newSeriesLedger(t)

	batch := []ledger.Entry{
		monthlyRent(time.January, "rent-2025"),
		monthlyRent(time.February, "other-series"),
	}
	_, err := sl.ApplyBatch(context.Background(), "rent-2025", batch)
	require.Error(t, err)
	assert.True(t, ledger.IsClientError(err))
	assert.Empty(t, s.Entries(), "a bad batch must not partially apply")
}

func TestApplyBatch_ReapplyIsIdempotent(t *testing.T) {
	sl, _ := newSeriesLedger(t)
	ctx := context.Background()

	batch := []ledger.Entry{
		monthlyRent(time.January, "rent-2025"),
		monthlyRent(time.February, "rent-2025"),
	}
	added, err := sl.ApplyBatch(ctx, "rent-2025", batch)
	require.NoError(t, err)
	require.Equal(t, 2, added)

	added, err = sl.ApplyBatch(ctx, "rent-2025", batch)
	require.NoError(t, err)
	assert.Zero(t, added, "re-applying the same occurrences must not duplicate")
	assert.Len(t, sl.Occurrences("rent-2025"), 2)
}

func TestCancel_RemovesWholeSeries(t *testing.T) {
	sl, s := newSeriesLedger(t)
	ctx := context.Background()

	_, err := sl.ApplyBatch(ctx, "rent-2025", []ledger.Entry{
		monthlyRent(time.January, "rent-2025"),
		monthlyRent(time.February, "rent-2025"),
		monthlyRent(time.March, "rent-2025"),
	})
	require.NoError(t, err)

	// An unrelated entry must survive the cancellation.
	_, err = s.Add(ctx, ledger.Entry{
		Date: ledger.NewDate(2025, time.April, 10), Description: "one-off",
		Amount: ledger.NewMoney(100, "USD"), Type: ledger.TypeExpense,
		Category: "Rent", AccountID: "checking",
	})
	require.NoError(t, err)

	n, err := sl.Cancel(ctx, "rent-2025")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Empty(t, sl.Occurrences("rent-2025"))
	assert.Len(t, s.Entries(), 1)

	a, ok := s.Account("checking")
	require.True(t, ok)
	assert.True(t, a.Balance.Equal(decimal.NewFromInt(9900)))
}

func TestCancel_UnknownSeries(t *testing.T) {
	sl, _ := newSeriesLedger(t)
	n, err := sl.Cancel(context.Background(), "never-created")
	require.NoError(t, err)
	assert.Zero(t, n)
}
