/*
index.go - Aggregate index: per-category running totals at four tiers

PURPOSE:
  Maintains pre-computed (category, time-bucket, currency) totals so
  aligned queries cost O(buckets) instead of O(entries). Four granularity
  tiers share one bucket shape, disambiguated by zero month/day:

    year=Y, month=0, day=0  -> yearly bucket
    year=Y, month=M, day=0  -> monthly bucket
    year=Y, month=M, day=D  -> daily bucket (recent window only)
    year=0, month=0, day=0  -> all-time bucket

  Daily buckets are kept only for a rolling recency window (default 90
  days) to bound storage; older day ranges fall back to an entry scan in
  the Store.

INVARIANT:
  A bucket's total always equals the sum of Amount over all entries
  matching its (category, subcategory, tier, currency) - after every
  mutation and after rebuild. Verify() checks this; Rebuild() restores it.

DERIVED STATE:
  The index is always reconstructible from the entry set. It is never
  the source of truth.

SEE ALSO:
  - window.go: Maps query windows onto tiers
  - store.go: Calls Add/Remove inside the mutation funnel
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// BUCKET
// =============================================================================

type bucketKey struct {
	Category    string
	Subcategory string
	Flow        Flow
	Currency    string
	Year        int
	Month       time.Month // 0 = whole year
	Day         int        // 0 = whole month
}

type Bucket struct {
	Total         decimal.Decimal
	Count         int
	UpdatedAt     time.Time
	LastEntryDate Date
}

// =============================================================================
// INDEX
// =============================================================================

type Index struct {
	buckets map[bucketKey]*Bucket

	// dailyFloor bounds the daily tier: buckets exist only for dates on
	// or after it. Set at construction/rebuild time and rolled forward
	// by advanceDailyFloor; it never moves backward.
	dailyFloor  Date
	recencyDays int

	now func() time.Time
}

// NewIndex creates an index whose daily tier covers [today-recencyDays,
// today]. The now func is injectable for tests.
func NewIndex(recencyDays int, now func() time.Time) *Index {
	if now == nil {
		now = time.Now
	}
	return &Index{
		buckets:     make(map[bucketKey]*Bucket),
		dailyFloor:  DateOf(now().UTC()).AddDays(-recencyDays),
		recencyDays: recencyDays,
		now:         now,
	}
}

// keysFor returns every bucket the entry belongs to: all-time, yearly,
// monthly, and - inside the recency window - daily.
func (ix *Index) keysFor(e Entry) []bucketKey {
	base := bucketKey{
		Category:    e.IndexCategory(),
		Subcategory: e.Subcategory,
		Flow:        e.Type.Flow(),
		Currency:    e.Amount.Currency,
	}
	keys := []bucketKey{
		base, // all-time: year=0, month=0, day=0
		{Category: base.Category, Subcategory: base.Subcategory, Flow: base.Flow, Currency: base.Currency,
			Year: e.Date.Year()},
		{Category: base.Category, Subcategory: base.Subcategory, Flow: base.Flow, Currency: base.Currency,
			Year: e.Date.Year(), Month: e.Date.Month()},
	}
	if e.Date.AfterOrEqual(ix.dailyFloor) {
		keys = append(keys, bucketKey{Category: base.Category, Subcategory: base.Subcategory,
			Flow: base.Flow, Currency: base.Currency,
			Year: e.Date.Year(), Month: e.Date.Month(), Day: e.Date.Day()})
	}
	return keys
}

// Add increments every applicable bucket. O(1) amortized per tier.
func (ix *Index) Add(e Entry) {
	for _, k := range ix.keysFor(e) {
		b := ix.buckets[k]
		if b == nil {
			b = &Bucket{Total: decimal.Zero}
			ix.buckets[k] = b
		}
		b.Total = b.Total.Add(e.Amount.Value)
		b.Count++
		b.UpdatedAt = ix.now().UTC()
		if e.Date.After(b.LastEntryDate) {
			b.LastEntryDate = e.Date
		}
	}
}

// Remove decrements symmetrically. Empty buckets are dropped so Verify
// compares clean maps.
func (ix *Index) Remove(e Entry) {
	for _, k := range ix.keysFor(e) {
		b := ix.buckets[k]
		if b == nil {
			continue
		}
		b.Total = b.Total.Sub(e.Amount.Value)
		b.Count--
		b.UpdatedAt = ix.now().UTC()
		if b.Count <= 0 {
			delete(ix.buckets, k)
		}
	}
}

// advanceDailyFloor rolls the daily tier forward as wall time advances,
// pruning daily buckets that fell out of the recency window. Without
// this a long-lived process accumulates daily buckets without bound.
// Called from the mutation funnel; queries only read the floor.
func (ix *Index) advanceDailyFloor() {
	floor := DateOf(ix.now().UTC()).AddDays(-ix.recencyDays)
	if !floor.After(ix.dailyFloor) {
		return
	}
	for k := range ix.buckets {
		if k.Day == 0 {
			continue
		}
		if NewDate(k.Year, k.Month, k.Day).Before(floor) {
			delete(ix.buckets, k)
		}
	}
	ix.dailyFloor = floor
}

// Rebuild recomputes every bucket from scratch. O(entries), invoked
// after bulk import or whenever incremental maintenance is suspect.
func (ix *Index) Rebuild(entries []Entry) {
	ix.buckets = make(map[bucketKey]*Bucket)
	ix.dailyFloor = DateOf(ix.now().UTC()).AddDays(-ix.recencyDays)
	for _, e := range entries {
		ix.Add(e)
	}
}

// CoversDaily reports whether the daily tier can answer the window
// exactly.
func (ix *Index) CoversDaily(w Window) bool {
	return !w.IsAllTime() && w.Start.AfterOrEqual(ix.dailyFloor)
}

// =============================================================================
// QUERIES - Resolve a window to the smallest covering bucket set
// =============================================================================

// CategoryKey identifies one line of a category totals result.
type CategoryKey struct {
	Category    string
	Subcategory string
}

// CategoryTotals sums income/expense buckets per category for an
// aligned window. Neutral flows (transfers, deposit movements) are
// excluded: they are not spending or earning.
//
// Returns ok=false when the window is a day range the daily tier cannot
// cover; the caller scans entries instead.
func (ix *Index) CategoryTotals(w Window, currency string) (map[CategoryKey]decimal.Decimal, bool) {
	cov, ok := ix.covering(w)
	if !ok {
		return nil, false
	}
	totals := make(map[CategoryKey]decimal.Decimal)
	for k, b := range ix.buckets {
		if k.Currency != currency || k.Flow == FlowNeutral || !cov.matches(k) {
			continue
		}
		ck := CategoryKey{Category: k.Category, Subcategory: k.Subcategory}
		totals[ck] = totals[ck].Add(b.Total)
	}
	return totals, true
}

// FlowTotals sums income and expense for an aligned window.
func (ix *Index) FlowTotals(w Window, currency string) (income, expense decimal.Decimal, ok bool) {
	cov, covered := ix.covering(w)
	if !covered {
		return decimal.Zero, decimal.Zero, false
	}
	for k, b := range ix.buckets {
		if k.Currency != currency || !cov.matches(k) {
			continue
		}
		switch k.Flow {
		case FlowIncome:
			income = income.Add(b.Total)
		case FlowExpense:
			expense = expense.Add(b.Total)
		}
	}
	return income, expense, true
}

// ymd addresses one daily bucket slot.
type ymd struct {
	Year  int
	Month time.Month
	Day   int
}

// cover is the precomputed exact bucket cover for one window: the tier
// plus the set of covered tuples. Matching a key is O(1), so any aligned
// query is one pass over the bucket map instead of one pass per covered
// year/month/day.
type cover struct {
	kind   WindowKind
	years  map[int]bool
	months map[YearMonth]bool
	days   map[ymd]bool
}

func (c cover) matches(k bucketKey) bool {
	switch c.kind {
	case KindAllTime:
		return k.Year == 0 && k.Month == 0 && k.Day == 0
	case KindWholeYears:
		return k.Month == 0 && k.Day == 0 && c.years[k.Year]
	case KindWholeMonths:
		return k.Day == 0 && k.Month != 0 && c.months[YearMonth{Year: k.Year, Month: k.Month}]
	default: // KindDayRange
		return k.Day != 0 && c.days[ymd{Year: k.Year, Month: k.Month, Day: k.Day}]
	}
}

// covering maps the window onto the smallest exact bucket cover:
// the all-time bucket, one yearly bucket per year, one monthly bucket
// per month, or one daily bucket per day.
func (ix *Index) covering(w Window) (cover, bool) {
	switch w.Kind() {
	case KindAllTime:
		return cover{kind: KindAllTime}, true

	case KindWholeYears:
		years := make(map[int]bool)
		for _, y := range w.Years() {
			years[y] = true
		}
		return cover{kind: KindWholeYears, years: years}, true

	case KindWholeMonths:
		months := make(map[YearMonth]bool)
		for _, m := range w.Months() {
			months[m] = true
		}
		return cover{kind: KindWholeMonths, months: months}, true

	default: // KindDayRange
		if !ix.CoversDaily(w) {
			return cover{}, false
		}
		days := make(map[ymd]bool)
		for _, d := range w.Days() {
			days[ymd{Year: d.Year(), Month: d.Month(), Day: d.Day()}] = true
		}
		return cover{kind: KindDayRange, days: days}, true
	}
}

// DailyTotal returns the total for one day across income and expense
// flows, ok=false when the day predates the daily tier.
func (ix *Index) DailyTotal(d Date, currency string) (decimal.Decimal, bool) {
	if d.Before(ix.dailyFloor) {
		return decimal.Zero, false
	}
	total := decimal.Zero
	for k, b := range ix.buckets {
		if k.Currency != currency || k.Flow == FlowNeutral {
			continue
		}
		if k.Year == d.Year() && k.Month == d.Month() && k.Day == d.Day() {
			total = total.Add(b.Total)
		}
	}
	return total, true
}

// =============================================================================
// INTEGRITY
// =============================================================================

// Verify recomputes buckets from the entry set and compares against the
// live map. Divergence is an IntegrityError, resolved by Rebuild, never
// tolerated silently.
func (ix *Index) Verify(entries []Entry) error {
	fresh := &Index{
		buckets:    make(map[bucketKey]*Bucket),
		dailyFloor: ix.dailyFloor,
		now:        ix.now,
	}
	for _, e := range entries {
		fresh.Add(e)
	}

	for k, want := range fresh.buckets {
		got := ix.buckets[k]
		if got == nil || !got.Total.Equal(want.Total) || got.Count != want.Count {
			actual := "missing"
			if got != nil {
				actual = got.Total.String()
			}
			return &IntegrityError{
				Category: k.Category,
				Tier:     tierName(k),
				Expected: want.Total.String(),
				Actual:   actual,
			}
		}
	}
	for k := range ix.buckets {
		if fresh.buckets[k] == nil {
			return &IntegrityError{
				Category: k.Category,
				Tier:     tierName(k),
				Expected: "absent",
				Actual:   ix.buckets[k].Total.String(),
			}
		}
	}
	return nil
}

func tierName(k bucketKey) string {
	switch {
	case k.Year == 0:
		return "all-time"
	case k.Month == 0:
		return "yearly"
	case k.Day == 0:
		return "monthly"
	default:
		return "daily"
	}
}
