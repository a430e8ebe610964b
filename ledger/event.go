/*
event.go - In-process mutation events

PURPOSE:
  The Event is the unit of mutation dispatch. The Store builds one per
  mutation, applies it atomically (state, balances, index, cache), then
  hands it to observers. Events are NOT a durable log: persistence writes
  the resulting entry set, not the event.

WHY EVENTS AT ALL?
  Each event knows which accounts and categories it touched, so
  incremental work (balance deltas, bucket updates, observer refresh) is
  scoped without diffing snapshots.

SEE ALSO:
  - store.go: Builds and applies events
*/
package ledger

// =============================================================================
// EVENT - One completed mutation
// =============================================================================

type EventKind string

const (
	EventAdded     EventKind = "added"
	EventUpdated   EventKind = "updated"
	EventDeleted   EventKind = "deleted"
	EventBulkAdded EventKind = "bulk_added"
)

type Event struct {
	Kind EventKind

	// Added / Deleted carry the single entry here.
	Entry Entry

	// Updated carries both sides: Old is fully reversed before New is
	// applied.
	Old Entry
	New Entry

	// BulkAdded carries the whole batch.
	Entries []Entry
}

func added(e Entry) Event          { return Event{Kind: EventAdded, Entry: e} }
func updated(old, new Entry) Event { return Event{Kind: EventUpdated, Old: old, New: new} }
func deleted(e Entry) Event        { return Event{Kind: EventDeleted, Entry: e} }
func bulkAdded(es []Entry) Event   { return Event{Kind: EventBulkAdded, Entries: es} }

// entries returns every entry the event names, regardless of kind.
func (ev Event) entries() []Entry {
	switch ev.Kind {
	case EventAdded, EventDeleted:
		return []Entry{ev.Entry}
	case EventUpdated:
		return []Entry{ev.Old, ev.New}
	case EventBulkAdded:
		return ev.Entries
	}
	return nil
}

// AffectedAccounts returns the distinct account IDs the event touches,
// so observers can selectively refresh.
func (ev Event) AffectedAccounts() []AccountID {
	seen := make(map[AccountID]bool)
	var out []AccountID
	for _, e := range ev.entries() {
		for _, id := range []AccountID{e.AccountID, e.TargetAccountID} {
			if id != "" && !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out
}

// AffectedCategories returns the distinct index categories the event
// touches.
func (ev Event) AffectedCategories() []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range ev.entries() {
		c := e.IndexCategory()
		if c != "" && !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}
