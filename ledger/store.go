/*
store.go - The single mutation funnel and primary query surface

PURPOSE:
  The Store is the ONLY component that may change the entry set, account
  balances, or category aggregates. Every mutation flows through one
  pipeline:

    validate -> build Event -> apply (state, balances, index, cache) ->
    persist -> notify observers

  Validation happens entirely before any mutation (never partially apply
  then fail). Persistence is part of the awaited critical path: a
  mutation that returns success is durable before the next one begins.

WHY ONE FUNNEL?
  Dual mutation paths (in-memory array vs durable store drifting apart)
  are the documented root cause of deleted entries reappearing after
  restart, and of transfer balance drift when callers wrote balances
  directly. There is exactly one code path, and it always touches memory
  and durable storage together.

PERSISTENCE FAILURE POLICY:
  If the durable write fails after memory was updated, the error is
  surfaced as a PersistenceError and in-memory state is NOT rolled back.
  Read-your-writes holds for the rest of the session; the next
  successful mutation or an explicit Reload reconciles. No automatic
  retry.

CONCURRENCY:
  Single-writer. Mutations serialize on one mutex; queries take a read
  lock and observe a consistent snapshot as of the last completed
  mutation.

SEE ALSO:
  - projector.go: Balance deltas (the only balance writer, via here)
  - index.go: Aggregate maintenance
  - cache.go: Wholesale invalidation on every mutation
*/
package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// =============================================================================
// COLLABORATOR PORTS
// =============================================================================

// Repository is the durable storage port. The Store is its only caller.
type Repository interface {
	// Load returns the full entry set.
	Load(ctx context.Context) ([]Entry, error)

	// Save replaces the full entry set atomically.
	Save(ctx context.Context, entries []Entry) error
}

// Converter resolves cross-currency transfer amounts once, at entry
// construction time. Implementations live in the fx package.
type Converter interface {
	Convert(amount decimal.Decimal, from, to string) (decimal.Decimal, error)
}

// Observer receives exactly one Event per completed mutation. Observers
// run synchronously after the apply pipeline; they must not mutate the
// store from within the callback.
type Observer func(Event)

// =============================================================================
// CONFIG
// =============================================================================

const DefaultRecencyDays = 90

type Config struct {
	// CacheCapacity bounds the query cache. 0 = DefaultCacheCapacity.
	CacheCapacity int

	// RecencyDays bounds the daily aggregate tier. 0 = DefaultRecencyDays.
	RecencyDays int

	// Converter for cross-currency transfers. nil = same-currency only.
	Converter Converter

	// Logger for structured logging. nil = no-op.
	Logger *zap.Logger

	// Now is injectable for tests. nil = time.Now.
	Now func() time.Time
}

// =============================================================================
// STORE
// =============================================================================

type Store struct {
	mu   sync.RWMutex
	repo Repository
	conv Converter
	log  *zap.Logger
	now  func() time.Time

	entries map[EntryID]Entry
	ordered []Entry // sorted by (Date, CreatedAt) for scans

	accounts   map[AccountID]*Account
	categories map[string]bool

	index *Index
	cache *Cache

	observers []Observer
}

// Open loads the entry set from the repository, projects every account
// balance from its opening anchor, and builds the aggregate index.
func Open(ctx context.Context, repo Repository, accounts []Account, categories []string, cfg Config) (*Store, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.RecencyDays <= 0 {
		cfg.RecencyDays = DefaultRecencyDays
	}

	s := &Store{
		repo:       repo,
		conv:       cfg.Converter,
		log:        cfg.Logger,
		now:        cfg.Now,
		entries:    make(map[EntryID]Entry),
		accounts:   make(map[AccountID]*Account),
		categories: make(map[string]bool),
		index:      NewIndex(cfg.RecencyDays, cfg.Now),
		cache:      NewCache(cfg.CacheCapacity),
	}
	for _, a := range accounts {
		a := a
		a.Balance = a.OpeningBalance
		s.accounts[a.ID] = &a
	}
	for _, c := range categories {
		s.categories[c] = true
	}

	entries, err := repo.Load(ctx)
	if err != nil {
		return nil, &PersistenceError{Op: "load", Err: err}
	}
	s.resetState(entries)

	s.log.Info("ledger store opened",
		zap.Int("entries", len(entries)),
		zap.Int("accounts", len(accounts)))
	return s, nil
}

// resetState rebuilds every piece of derived state from an entry set.
func (s *Store) resetState(entries []Entry) {
	s.entries = make(map[EntryID]Entry, len(entries))
	s.ordered = s.ordered[:0]
	for _, a := range s.accounts {
		a.Balance = a.OpeningBalance
	}
	for _, e := range entries {
		s.entries[e.ID] = e
		s.insertOrdered(e)
		s.projectApply(e)
	}
	s.index.Rebuild(s.ordered)
	s.cache.InvalidateAll()
}

// Reload re-reads the durable store and rebuilds all derived state.
// The explicit reconciliation path after a persistence failure.
func (s *Store) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.repo.Load(ctx)
	if err != nil {
		return &PersistenceError{Op: "reload", Err: err}
	}
	s.resetState(entries)
	s.log.Info("ledger store reloaded", zap.Int("entries", len(entries)))
	return nil
}

// Subscribe registers an observer for completed mutations.
func (s *Store) Subscribe(obs Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, obs)
}

// =============================================================================
// ACCOUNT AND CATEGORY REGISTRATION (consumed, not owned)
// =============================================================================

// RegisterAccount makes an account known to the core. Its balance is
// reset to the opening anchor; call only before entries reference it.
func (s *Store) RegisterAccount(a Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.Balance = a.OpeningBalance
	s.accounts[a.ID] = &a
}

// RegisterCategory makes a category name valid for entry validation.
func (s *Store) RegisterCategory(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories[name] = true
}

// Account returns a copy of the account with its projected balance.
func (s *Store) Account(id AccountID) (Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return Account{}, false
	}
	return *a, true
}

// Accounts returns copies of all accounts, sorted by ID.
func (s *Store) Accounts() []Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// =============================================================================
// MUTATIONS
// =============================================================================

// Add validates and applies one new entry, returning it with its
// assigned deterministic ID.
func (s *Store) Add(ctx context.Context, e Entry) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addLocked(ctx, e)
}

func (s *Store) addLocked(ctx context.Context, e Entry) (Entry, error) {
	e = s.stamp(e)
	if err := s.validateNew(e); err != nil {
		return Entry{}, err
	}
	if _, exists := s.entries[e.ID]; exists {
		return Entry{}, invalidField("id", string(e.ID), ErrDuplicateEntry)
	}

	ev := added(e)
	s.applyEvent(ev)
	err := s.persist(ctx, "add")
	s.notify(ev)
	return e, err
}

// Update replaces an entry wholesale: the old entry's effect is fully
// reversed before the new entry's effect is applied. Never a diff-patch;
// partial reversal is the double-subtraction bug class.
func (s *Store) Update(ctx context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.ID == "" {
		return invalidField("id", "", ErrIDMismatch)
	}
	old, ok := s.entries[e.ID]
	if !ok {
		return invalidField("id", string(e.ID), ErrEntryNotFound)
	}
	if old.Type.IsSystemGenerated() || e.Type.IsSystemGenerated() {
		return invalidField("type", string(old.Type), ErrImmutableEntry)
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = old.CreatedAt
	}
	if err := s.validateNew(e); err != nil {
		return err
	}

	ev := updated(old, e)
	s.applyEvent(ev)
	err := s.persist(ctx, "update")
	s.notify(ev)
	return err
}

// Delete removes an entry from memory AND the durable store in one
// call. Deleting only in memory is how deleted entries come back after
// restart.
func (s *Store) Delete(ctx context.Context, id EntryID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.entries[id]
	if !ok {
		return invalidField("id", string(id), ErrEntryNotFound)
	}
	if old.Type.IsSystemGenerated() {
		return invalidField("type", string(old.Type), ErrImmutableEntry)
	}

	ev := deleted(old)
	s.applyEvent(ev)
	err := s.persist(ctx, "delete")
	s.notify(ev)
	return err
}

// TransferInput describes a movement between two owned accounts.
type TransferInput struct {
	SourceID    AccountID
	TargetID    AccountID
	Amount      decimal.Decimal
	Currency    string
	Date        Date
	Description string
}

// Transfer builds one internal-transfer entry and delegates to the add
// path, so source and target both get correct directional projector
// calls. It never touches balances itself.
func (s *Store) Transfer(ctx context.Context, in TransferInput) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !in.Amount.IsPositive() {
		return Entry{}, invalidField("amount", in.Amount.String(), ErrInvalidAmount)
	}
	if _, ok := s.accounts[in.SourceID]; !ok {
		return Entry{}, invalidField("sourceId", string(in.SourceID), ErrAccountNotFound)
	}
	target, ok := s.accounts[in.TargetID]
	if !ok {
		return Entry{}, invalidField("targetId", string(in.TargetID), ErrTargetAccountNotFound)
	}

	e := Entry{
		Date:            in.Date,
		Description:     in.Description,
		Amount:          Money{Value: in.Amount, Currency: in.Currency},
		Type:            TypeInternalTransfer,
		Category:        TransferCategory,
		AccountID:       in.SourceID,
		TargetAccountID: in.TargetID,
	}
	if target.Currency != in.Currency {
		if s.conv == nil {
			return Entry{}, invalidField("currency", in.Currency, ErrNoConverter)
		}
		converted, err := s.conv.Convert(in.Amount, in.Currency, target.Currency)
		if err != nil {
			return Entry{}, invalidField("currency", in.Currency, err)
		}
		e.TargetAmount = Money{Value: converted, Currency: target.Currency}
	}

	return s.addLocked(ctx, e)
}

// BulkAdd applies a batch of entries (import, recurrence generator).
// Entries whose deterministic ID already exists are skipped: that is the
// de-duplication contract for re-import. The whole batch is validated
// before anything is applied.
func (s *Store) BulkAdd(ctx context.Context, batch []Entry) (addedEntries []Entry, skipped int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var fresh []Entry
	seen := make(map[EntryID]bool, len(batch))
	for _, e := range batch {
		e = s.stamp(e)
		// Duplicates against the stored set AND within the batch itself:
		// a batch repeating one deterministic ID must apply it once.
		if _, exists := s.entries[e.ID]; exists || seen[e.ID] {
			skipped++
			continue
		}
		if err := s.validateNew(e); err != nil {
			return nil, 0, err
		}
		seen[e.ID] = true
		fresh = append(fresh, e)
	}
	if len(fresh) == 0 {
		return nil, skipped, nil
	}

	ev := bulkAdded(fresh)
	s.applyEvent(ev)
	err = s.persist(ctx, "bulk_add")
	s.notify(ev)
	return fresh, skipped, err
}

// DeleteSeries removes every entry of a recurring series, returning how
// many were deleted. One persist covers the whole series; observers get
// one Deleted event per entry.
func (s *Store) DeleteSeries(ctx context.Context, seriesID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var victims []Entry
	for _, e := range s.ordered {
		if e.RecurringSeriesID == seriesID {
			if e.Type.IsSystemGenerated() {
				return 0, invalidField("type", string(e.Type), ErrImmutableEntry)
			}
			victims = append(victims, e)
		}
	}
	if len(victims) == 0 {
		return 0, nil
	}

	events := make([]Event, 0, len(victims))
	for _, e := range victims {
		ev := deleted(e)
		s.applyEvent(ev)
		events = append(events, ev)
	}
	err := s.persist(ctx, "delete_series")
	for _, ev := range events {
		s.notify(ev)
	}
	return len(victims), err
}

// =============================================================================
// MUTATION PIPELINE INTERNALS
// =============================================================================

// stamp fills CreatedAt and the deterministic ID if absent.
func (s *Store) stamp(e Entry) Entry {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now().UTC()
	}
	if e.ID == "" {
		e.ID = NewEntryID(e.Date, e.Description, e.Amount, e.Type, e.CreatedAt)
	}
	return e
}

// validateNew checks an entry before ANY state is touched.
func (s *Store) validateNew(e Entry) error {
	if !e.Type.Valid() {
		return invalidField("type", string(e.Type), ErrInvalidEntryType)
	}
	if !e.Amount.IsPositive() {
		return invalidField("amount", e.Amount.Value.String(), ErrInvalidAmount)
	}
	if _, ok := s.accounts[e.AccountID]; !ok {
		return invalidField("accountId", string(e.AccountID), ErrAccountNotFound)
	}
	if e.Type.IsTransferShaped() {
		if e.TargetAccountID == "" {
			return invalidField("targetAccountId", "", ErrMissingTarget)
		}
		target, ok := s.accounts[e.TargetAccountID]
		if !ok {
			return invalidField("targetAccountId", string(e.TargetAccountID), ErrTargetAccountNotFound)
		}
		// What the target would be credited (converted TargetAmount, or
		// the face amount) must already be in its currency. Crediting an
		// unconverted face amount onto a foreign-currency balance is
		// silent corruption.
		if credit := e.CreditAmount(); credit.Currency != target.Currency {
			return invalidField("targetAmount", credit.Currency, ErrCurrencyMismatch)
		}
		return nil
	}
	// Transfer-shaped entries carry the fixed transfer label and skip
	// the category check.
	if !s.categories[e.Category] {
		return invalidField("category", e.Category, ErrCategoryNotFound)
	}
	return nil
}

// applyEvent mutates in-memory state, projects balances, maintains the
// index, and invalidates the cache. By the time it returns, every read
// surface agrees with the entry set.
func (s *Store) applyEvent(ev Event) {
	s.index.advanceDailyFloor()
	switch ev.Kind {
	case EventAdded:
		s.applyEntry(ev.Entry)
	case EventDeleted:
		s.reverseEntry(ev.Entry)
	case EventUpdated:
		// Full reverse of the old, then full apply of the new. Never a
		// field diff: amount, type, account and date may all change at
		// once.
		s.reverseEntry(ev.Old)
		s.applyEntry(ev.New)
	case EventBulkAdded:
		for _, e := range ev.Entries {
			s.applyEntry(e)
		}
	}
	s.cache.InvalidateAll()
}

func (s *Store) applyEntry(e Entry) {
	s.entries[e.ID] = e
	s.insertOrdered(e)
	s.projectApply(e)
	s.index.Add(e)
}

func (s *Store) reverseEntry(e Entry) {
	delete(s.entries, e.ID)
	s.removeOrdered(e.ID)
	s.projectReverse(e)
	s.index.Remove(e)
}

func (s *Store) projectApply(e Entry) {
	if a, ok := s.accounts[e.AccountID]; ok {
		a.Balance = Apply(e, a.Balance, true)
	}
	if e.Type.IsTransferShaped() {
		if t, ok := s.accounts[e.TargetAccountID]; ok {
			t.Balance = Apply(e, t.Balance, false)
		}
	}
}

func (s *Store) projectReverse(e Entry) {
	if a, ok := s.accounts[e.AccountID]; ok {
		a.Balance = Reverse(e, a.Balance, true)
	}
	if e.Type.IsTransferShaped() {
		if t, ok := s.accounts[e.TargetAccountID]; ok {
			t.Balance = Reverse(e, t.Balance, false)
		}
	}
}

// insertOrdered keeps the scan slice sorted by (Date, CreatedAt).
// Binary search for the insertion point, O(log n) compare + O(n) copy.
func (s *Store) insertOrdered(e Entry) {
	i := sort.Search(len(s.ordered), func(i int) bool {
		o := s.ordered[i]
		if !o.Date.Equal(e.Date) {
			return o.Date.After(e.Date)
		}
		return o.CreatedAt.After(e.CreatedAt)
	})
	s.ordered = append(s.ordered, Entry{})
	copy(s.ordered[i+1:], s.ordered[i:])
	s.ordered[i] = e
}

func (s *Store) removeOrdered(id EntryID) {
	for i, e := range s.ordered {
		if e.ID == id {
			s.ordered = append(s.ordered[:i], s.ordered[i+1:]...)
			return
		}
	}
}

// persist writes the full entry set. In-memory state is already updated
// and stays authoritative for the session even if this fails.
func (s *Store) persist(ctx context.Context, op string) error {
	snapshot := make([]Entry, len(s.ordered))
	copy(snapshot, s.ordered)
	if err := s.repo.Save(ctx, snapshot); err != nil {
		s.log.Error("persist failed, in-memory state retained",
			zap.String("op", op), zap.Error(err))
		return &PersistenceError{Op: op, Err: err}
	}
	return nil
}

func (s *Store) notify(ev Event) {
	for _, obs := range s.observers {
		obs(ev)
	}
}

// =============================================================================
// QUERIES - cache -> index -> scan
// =============================================================================

// Summary aggregates income, expense and net flow for a window.
type Summary struct {
	TotalIncome  decimal.Decimal
	TotalExpense decimal.Decimal
	NetFlow      decimal.Decimal
}

func (s *Store) Summary(w Window, currency string) (Summary, error) {
	if !w.IsValid() {
		return Summary{}, ErrInvalidWindow
	}
	// Cache access stays inside the read lock: a Set must never race a
	// mutation's InvalidateAll, or staleness would outlive the mutation.
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := "summary|" + currency + "|" + w.String()
	if v, ok := s.cache.Get(key); ok {
		return v.(Summary), nil
	}

	income, expense, ok := s.index.FlowTotals(w, currency)
	if !ok {
		income, expense = s.scanFlowTotals(w, currency)
	}

	out := Summary{TotalIncome: income, TotalExpense: expense, NetFlow: income.Sub(expense)}
	s.cache.Set(key, out)
	return out, nil
}

// CategoryTotals returns per-category totals for a window. An empty
// category filters nothing.
func (s *Store) CategoryTotals(w Window, currency, category string) (map[CategoryKey]decimal.Decimal, error) {
	if !w.IsValid() {
		return nil, ErrInvalidWindow
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := "cattotals|" + currency + "|" + w.String() + "|" + category
	if v, ok := s.cache.Get(key); ok {
		return copyTotals(v.(map[CategoryKey]decimal.Decimal)), nil
	}

	totals, ok := s.index.CategoryTotals(w, currency)
	if !ok {
		totals = s.scanCategoryTotals(w, currency)
	}

	if category != "" {
		filtered := make(map[CategoryKey]decimal.Decimal)
		for k, v := range totals {
			if k.Category == category {
				filtered[k] = v
			}
		}
		totals = filtered
	}
	s.cache.Set(key, totals)
	// Callers own their copy; the cached map must never be reachable
	// from outside the lock.
	return copyTotals(totals), nil
}

func copyTotals(in map[CategoryKey]decimal.Decimal) map[CategoryKey]decimal.Decimal {
	out := make(map[CategoryKey]decimal.Decimal, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// DailyTotal returns the income+expense total for one calendar day.
func (s *Store) DailyTotal(d Date, currency string) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := "daily|" + currency + "|" + d.String()
	if v, ok := s.cache.Get(key); ok {
		return v.(decimal.Decimal), nil
	}

	total, ok := s.index.DailyTotal(d, currency)
	if !ok {
		inc, exp := s.scanFlowTotals(Range(d, d), currency)
		total = inc.Add(exp)
	}

	s.cache.Set(key, total)
	return total, nil
}

// scanFlowTotals is the exact fallback for day ranges the daily tier
// cannot cover: a linear pass over entries filtered by date.
func (s *Store) scanFlowTotals(w Window, currency string) (income, expense decimal.Decimal) {
	for _, e := range s.ordered {
		if !w.Contains(e.Date) || e.Amount.Currency != currency {
			continue
		}
		switch e.Type.Flow() {
		case FlowIncome:
			income = income.Add(e.Amount.Value)
		case FlowExpense:
			expense = expense.Add(e.Amount.Value)
		}
	}
	return income, expense
}

func (s *Store) scanCategoryTotals(w Window, currency string) map[CategoryKey]decimal.Decimal {
	totals := make(map[CategoryKey]decimal.Decimal)
	for _, e := range s.ordered {
		if !w.Contains(e.Date) || e.Amount.Currency != currency {
			continue
		}
		if e.Type.Flow() == FlowNeutral {
			continue
		}
		ck := CategoryKey{Category: e.Category, Subcategory: e.Subcategory}
		totals[ck] = totals[ck].Add(e.Amount.Value)
	}
	return totals
}

// =============================================================================
// READ ACCESS TO ENTRIES
// =============================================================================

// Entry returns one entry by ID.
func (s *Store) Entry(id EntryID) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	return e, ok
}

// Entries returns a copy of all entries sorted by (Date, CreatedAt).
func (s *Store) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, len(s.ordered))
	copy(out, s.ordered)
	return out
}

// EntriesInWindow returns entries whose date falls in the window.
func (s *Store) EntriesInWindow(w Window) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Entry
	for _, e := range s.ordered {
		if w.Contains(e.Date) {
			out = append(out, e)
		}
	}
	return out
}

// SeriesEntries returns all entries of a recurring series.
func (s *Store) SeriesEntries(seriesID string) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Entry
	for _, e := range s.ordered {
		if e.RecurringSeriesID == seriesID {
			out = append(out, e)
		}
	}
	return out
}

// =============================================================================
// INTEGRITY
// =============================================================================

// CheckIntegrity compares aggregate buckets against the entry-set truth.
func (s *Store) CheckIntegrity() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Verify(s.ordered)
}

// RebuildIndex recomputes all buckets from scratch and drops the cache.
func (s *Store) RebuildIndex() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index.Rebuild(s.ordered)
	s.cache.InvalidateAll()
	s.log.Info("aggregate index rebuilt", zap.Int("entries", len(s.ordered)))
}
