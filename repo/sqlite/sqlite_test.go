package sqlite_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/ledger-engine/ledger"
	"github.com/warp/ledger-engine/repo/sqlite"
)

func openTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.New(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	createdAt := time.Date(2025, time.February, 1, 9, 30, 0, 123456789, time.UTC)

	transfer := ledger.Entry{
		ID:              "t1",
		Date:            ledger.NewDate(2025, time.February, 2),
		Description:     "to euros",
		Amount:          ledger.NewMoney(100, "USD"),
		Type:            ledger.TypeInternalTransfer,
		Category:        ledger.TransferCategory,
		AccountID:       "checking",
		TargetAccountID: "euros",
		TargetAmount:    ledger.NewMoney(90, "EUR"),
		CreatedAt:       createdAt,
	}
	expense := ledger.Entry{
		ID:                    "e1",
		Date:                  ledger.NewDate(2025, time.February, 1),
		Description:           "lunch",
		Amount:                ledger.Money{Value: decimal.RequireFromString("12.34"), Currency: "USD"},
		Type:                  ledger.TypeExpense,
		Category:              "Food",
		Subcategory:           "Restaurants",
		AccountID:             "checking",
		RecurringSeriesID:     "lunch-club",
		RecurringOccurrenceID: "occ-7",
		CreatedAt:             createdAt,
	}

	require.NoError(t, db.Save(ctx, []ledger.Entry{transfer, expense}))

	loaded, err := db.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	// Ordered by date, so the Feb 1 expense comes first.
	got := loaded[0]
	assert.Equal(t, expense.ID, got.ID)
	assert.True(t, got.Amount.Value.Equal(decimal.RequireFromString("12.34")),
		"decimal amounts must survive the round trip exactly")
	assert.Equal(t, "Restaurants", got.Subcategory)
	assert.Equal(t, "lunch-club", got.RecurringSeriesID)
	assert.Equal(t, "occ-7", got.RecurringOccurrenceID)
	assert.True(t, got.CreatedAt.Equal(createdAt), "nanosecond precision must survive")

	tr := loaded[1]
	assert.Equal(t, transfer.TargetAccountID, tr.TargetAccountID)
	assert.True(t, tr.TargetAmount.Value.Equal(decimal.NewFromInt(90)))
	assert.Equal(t, "EUR", tr.TargetAmount.Currency)
}

func TestSave_ReplacesWholeSet(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	mk := func(id string, day int) ledger.Entry {
		return ledger.Entry{
			ID: ledger.EntryID(id), Date: ledger.NewDate(2025, time.March, day),
			Description: id, Amount: ledger.NewMoney(10, "USD"),
			Type: ledger.TypeExpense, Category: "Food", AccountID: "a",
			CreatedAt: time.Now().UTC(),
		}
	}

	require.NoError(t, db.Save(ctx, []ledger.Entry{mk("a", 1), mk("b", 2), mk("c", 3)}))
	require.NoError(t, db.Save(ctx, []ledger.Entry{mk("b", 2)}))

	loaded, err := db.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1, "save is wholesale replacement, not append")
	assert.Equal(t, ledger.EntryID("b"), loaded[0].ID)
}

func TestSaveLoad_EmptyOptionalFieldsStayEmpty(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	e := ledger.Entry{
		ID: "plain", Date: ledger.NewDate(2025, time.March, 1),
		Description: "plain", Amount: ledger.NewMoney(5, "USD"),
		Type: ledger.TypeExpense, Category: "Food", AccountID: "a",
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, db.Save(ctx, []ledger.Entry{e}))

	loaded, err := db.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	got := loaded[0]
	assert.Empty(t, got.Subcategory)
	assert.Empty(t, got.TargetAccountID)
	assert.Empty(t, got.TargetAmount.Currency)
	assert.True(t, got.TargetAmount.Value.IsZero())
	assert.Empty(t, got.RecurringSeriesID)
}

func TestLoad_CorruptAmountFailsLoudly(t *testing.T) {
	// An unparseable amount on disk must fail the load, not come back
	// as a silent zero.
	path := filepath.Join(t.TempDir(), "ledger.db")
	db, err := sqlite.New(path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	ctx := context.Background()

	e := ledger.Entry{
		ID: "e1", Date: ledger.NewDate(2025, time.March, 1),
		Description: "lunch", Amount: ledger.NewMoney(12, "USD"),
		Type: ledger.TypeExpense, Category: "Food", AccountID: "a",
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, db.Save(ctx, []ledger.Entry{e}))

	// The driver is already registered by the package under test.
	raw, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = raw.Exec(`UPDATE entries SET amount = 'not-a-number' WHERE id = 'e1'`)
	require.NoError(t, err)
	require.NoError(t, raw.Close())

	_, err = db.Load(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "amount")
	assert.Contains(t, err.Error(), "e1")
}

func TestAccountsAndCategories_Persist(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	acct := ledger.Account{
		ID: "checking", Name: "Checking", Currency: "USD",
		OpeningBalance: decimal.RequireFromString("1000.50"),
	}
	require.NoError(t, db.SaveAccount(ctx, acct))

	// Upsert: renaming keeps one row.
	acct.Name = "Main Checking"
	require.NoError(t, db.SaveAccount(ctx, acct))

	accounts, err := db.LoadAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "Main Checking", accounts[0].Name)
	assert.True(t, accounts[0].OpeningBalance.Equal(decimal.RequireFromString("1000.50")))

	require.NoError(t, db.SaveCategory(ctx, "Food"))
	require.NoError(t, db.SaveCategory(ctx, "Food")) // idempotent
	require.NoError(t, db.SaveCategory(ctx, "Music"))

	cats, err := db.LoadCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Food", "Music"}, cats)
}
