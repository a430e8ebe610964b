/*
window.go - Time windows and the dual query-path policy

PURPOSE:
  Classifies a query window so the Store can pick the cheapest correct
  read path. Whole months, whole years and all-time resolve against the
  aggregate index in O(buckets). Arbitrary day ranges ("last 7 days",
  "this week") cannot be answered by month buckets without lying across
  month boundaries, so they resolve against daily buckets when the range
  is recent enough, and fall back to an exact entry scan otherwise.

KEY INSIGHT:
  Pre-aggregating at month granularity cannot answer "last 30 days" when
  the window spans a month boundary. Classification has to happen per
  query, never globally.

SEE ALSO:
  - index.go: Bucket tiers the aligned kinds map onto
  - store.go: Chooses index vs scan based on Kind()
*/
package ledger

import "time"

// =============================================================================
// WINDOW - Inclusive [Start, End] day range, or all-time
// =============================================================================

type Window struct {
	Start Date
	End   Date

	allTime bool
}

// AllTime covers the entire entry history.
func AllTime() Window { return Window{allTime: true} }

// Range is an arbitrary inclusive day range.
func Range(start, end Date) Window { return Window{Start: start, End: end} }

// MonthWindow covers one whole calendar month.
func MonthWindow(year int, month time.Month) Window {
	return Window{Start: StartOfMonth(year, month), End: EndOfMonth(year, month)}
}

// YearWindow covers one whole calendar year.
func YearWindow(year int) Window {
	return Window{Start: StartOfYear(year), End: EndOfYear(year)}
}

// LastNDays covers the n days ending at 'end', inclusive.
func LastNDays(end Date, n int) Window {
	return Window{Start: end.AddDays(-(n - 1)), End: end}
}

func (w Window) IsAllTime() bool { return w.allTime }

func (w Window) IsValid() bool {
	return w.allTime || w.Start.BeforeOrEqual(w.End)
}

func (w Window) Contains(d Date) bool {
	if w.allTime {
		return true
	}
	return d.AfterOrEqual(w.Start) && d.BeforeOrEqual(w.End)
}

func (w Window) String() string {
	if w.allTime {
		return "[all-time]"
	}
	return "[" + w.Start.String() + ", " + w.End.String() + "]"
}

// =============================================================================
// CLASSIFICATION - Which buckets can answer this window exactly
// =============================================================================

type WindowKind int

const (
	// KindAllTime resolves to the single all-time bucket per category.
	KindAllTime WindowKind = iota

	// KindWholeYears resolves to one yearly bucket per covered year.
	KindWholeYears

	// KindWholeMonths resolves to one monthly bucket per covered month.
	KindWholeMonths

	// KindDayRange needs daily buckets or an exact entry scan.
	KindDayRange
)

// Kind classifies the window by the coarsest bucket tier that covers it
// exactly. A window that starts on Jan 1 and ends on Dec 31 is whole
// years; one aligned to month boundaries is whole months; anything else
// is a day range.
func (w Window) Kind() WindowKind {
	if w.allTime {
		return KindAllTime
	}
	if w.Start.Month() == time.January && w.Start.Day() == 1 &&
		w.End.Month() == time.December && w.End.Day() == 31 {
		return KindWholeYears
	}
	if w.Start.Day() == 1 && w.End.Equal(EndOfMonth(w.End.Year(), w.End.Month())) {
		return KindWholeMonths
	}
	return KindDayRange
}

// Years returns the covered years for a KindWholeYears window.
func (w Window) Years() []int {
	var years []int
	for y := w.Start.Year(); y <= w.End.Year(); y++ {
		years = append(years, y)
	}
	return years
}

// YearMonth identifies one calendar month.
type YearMonth struct {
	Year  int
	Month time.Month
}

// Months returns the covered months for a KindWholeMonths window.
func (w Window) Months() []YearMonth {
	var months []YearMonth
	cur := StartOfMonth(w.Start.Year(), w.Start.Month())
	for cur.BeforeOrEqual(w.End) {
		months = append(months, YearMonth{Year: cur.Year(), Month: cur.Month()})
		cur = cur.AddMonths(1)
	}
	return months
}

// Days returns every day in the window, oldest first.
func (w Window) Days() []Date {
	var days []Date
	for cur := w.Start; cur.BeforeOrEqual(w.End); cur = cur.AddDays(1) {
		days = append(days, cur)
	}
	return days
}
