package factory_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/ledger-engine/factory"
	"github.com/warp/ledger-engine/fx"
	"github.com/warp/ledger-engine/ledger"
)

func validInput() factory.EntryInput {
	return factory.EntryInput{
		Date:        "2025-03-10",
		Description: "Groceries",
		Amount:      42.50,
		Currency:    "EUR",
		Type:        "expense",
		Category:    "Food",
		AccountID:   "acc-1",
	}
}

func TestBuild_Expense(t *testing.T) {
	f := factory.New(fx.Identity{})

	e, err := f.Build(validInput())
	require.NoError(t, err)
	assert.Equal(t, ledger.TypeExpense, e.Type)
	assert.Equal(t, "Food", e.Category)
	assert.True(t, e.Amount.Value.Equal(decimal.RequireFromString("42.5")))
	assert.Equal(t, "EUR", e.Amount.Currency)
	assert.Empty(t, e.ID, "identity is stamped by the store, not the factory")
}

func TestBuild_RejectsBadInput(t *testing.T) {
	f := factory.New(fx.Identity{})

	in := validInput()
	in.Date = "10/03/2025"
	_, err := f.Build(in)
	assert.True(t, ledger.IsClientError(err))

	in = validInput()
	in.Type = "donation"
	_, err = f.Build(in)
	assert.ErrorIs(t, err, ledger.ErrInvalidEntryType)

	in = validInput()
	in.Amount = -5
	_, err = f.Build(in)
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)
}

func TestBuild_TransferGetsFixedCategoryAndConversion(t *testing.T) {
	rates := fx.NewStaticRates().SetRate("USD", "EUR", decimal.RequireFromString("0.9"))
	f := factory.New(rates)

	in := factory.EntryInput{
		Date:            "2025-03-10",
		Description:     "to savings",
		Amount:          100,
		Currency:        "USD",
		Type:            "internal_transfer",
		Category:        "ignored",
		AccountID:       "acc-1",
		TargetAccountID: "acc-2",
		TargetCurrency:  "EUR",
	}
	e, err := f.Build(in)
	require.NoError(t, err)

	assert.Equal(t, ledger.TransferCategory, e.Category, "caller categories never apply to transfers")
	assert.True(t, e.TargetAmount.Value.Equal(decimal.NewFromInt(90)))
	assert.Equal(t, "EUR", e.TargetAmount.Currency)
}

func TestBuild_TransferRequiresTarget(t *testing.T) {
	f := factory.New(fx.Identity{})

	in := validInput()
	in.Type = "internal_transfer"
	_, err := f.Build(in)
	assert.ErrorIs(t, err, ledger.ErrMissingTarget)
}

func TestBuild_CrossCurrencyNeedsConverter(t *testing.T) {
	f := factory.New(nil)

	in := validInput()
	in.Type = "internal_transfer"
	in.TargetAccountID = "acc-2"
	in.TargetCurrency = "USD" // differs from EUR face currency
	_, err := f.Build(in)
	assert.ErrorIs(t, err, ledger.ErrNoConverter)
}

func TestBuildBatch_FailsFast(t *testing.T) {
	f := factory.New(fx.Identity{})

	bad := validInput()
	bad.Amount = 0
	_, err := f.BuildBatch([]factory.EntryInput{validInput(), bad, validInput()})
	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)
}
