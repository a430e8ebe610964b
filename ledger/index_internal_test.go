/*
index_internal_test.go - Daily tier floor advancement

White-box coverage for the rolling recency window: a long-lived index
must shed daily buckets as wall time moves on, without disturbing the
monthly, yearly and all-time tiers.
*/
package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndex_DailyFloorAdvancesWithClock(t *testing.T) {
	// GIVEN: an index with a 30-day daily tier, clock at Feb 15
	cur := time.Date(2025, time.February, 15, 12, 0, 0, 0, time.UTC)
	ix := NewIndex(30, func() time.Time { return cur })

	e := Entry{
		ID: "e1", Date: NewDate(2025, time.February, 10), Description: "lunch",
		Amount: NewMoney(20, "USD"), Type: TypeExpense, Category: "Food", AccountID: "a",
	}
	ix.Add(e)

	day := NewDate(2025, time.February, 10)
	got, ok := ix.DailyTotal(day, "USD")
	require.True(t, ok)
	require.True(t, got.Equal(decimal.NewFromInt(20)))

	// WHEN: 120 days pass and the floor advances
	cur = cur.AddDate(0, 0, 120)
	ix.advanceDailyFloor()

	// THEN: the stale daily bucket is pruned and the tier declines
	// to answer for that day
	_, ok = ix.DailyTotal(day, "USD")
	assert.False(t, ok, "a day below the floor must fall back to a scan")
	for k := range ix.buckets {
		if k.Day == 0 {
			continue
		}
		assert.False(t, NewDate(k.Year, k.Month, k.Day).Before(ix.dailyFloor),
			"bucket %+v survived below the floor", k)
	}

	// AND: coarser tiers still hold the entry, and replay still agrees
	totals, ok := ix.CategoryTotals(AllTime(), "USD")
	require.True(t, ok)
	assert.True(t, totals[CategoryKey{Category: "Food"}].Equal(decimal.NewFromInt(20)))
	assert.NoError(t, ix.Verify([]Entry{e}))
}

func TestIndex_DailyFloorNeverMovesBackward(t *testing.T) {
	cur := time.Date(2025, time.February, 15, 12, 0, 0, 0, time.UTC)
	ix := NewIndex(30, func() time.Time { return cur })
	floor := ix.dailyFloor

	// A clock that jumps backward must not resurrect pruned ground.
	cur = cur.AddDate(0, 0, -10)
	ix.advanceDailyFloor()
	assert.True(t, ix.dailyFloor.Equal(floor), "floor must be monotonic")
}
