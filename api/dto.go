/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON structures for API communication, decoupling the domain model
  from the external contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done by the entry factory and the ledger store, not in
  DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/entry.go: EntryInput, the raw mutation payload
*/
package api

import (
	"time"

	"github.com/warp/ledger-engine/ledger"
)

// =============================================================================
// ENTRIES
// =============================================================================

type EntryDTO struct {
	ID          string `json:"id"`
	Date        string `json:"date"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	Type        string `json:"type"`
	Category    string `json:"category"`
	Subcategory string `json:"subcategory,omitempty"`

	AccountID       string `json:"accountId"`
	TargetAccountID string `json:"targetAccountId,omitempty"`
	TargetAmount    string `json:"targetAmount,omitempty"`
	TargetCurrency  string `json:"targetCurrency,omitempty"`

	RecurringSeriesID     string `json:"recurringSeriesId,omitempty"`
	RecurringOccurrenceID string `json:"recurringOccurrenceId,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

func toEntryDTO(e ledger.Entry) EntryDTO {
	dto := EntryDTO{
		ID:                    string(e.ID),
		Date:                  e.Date.String(),
		Description:           e.Description,
		Amount:                e.Amount.Value.String(),
		Currency:              e.Amount.Currency,
		Type:                  string(e.Type),
		Category:              e.Category,
		Subcategory:           e.Subcategory,
		AccountID:             string(e.AccountID),
		TargetAccountID:       string(e.TargetAccountID),
		RecurringSeriesID:     e.RecurringSeriesID,
		RecurringOccurrenceID: e.RecurringOccurrenceID,
		CreatedAt:             e.CreatedAt,
	}
	if e.TargetAmount.Currency != "" {
		dto.TargetAmount = e.TargetAmount.Value.String()
		dto.TargetCurrency = e.TargetAmount.Currency
	}
	return dto
}

// =============================================================================
// TRANSFERS
// =============================================================================

type TransferRequest struct {
	SourceAccountID string  `json:"sourceAccountId"`
	TargetAccountID string  `json:"targetAccountId"`
	Amount          float64 `json:"amount"`
	Currency        string  `json:"currency"`
	Date            string  `json:"date"`
	Description     string  `json:"description"`
}

// =============================================================================
// ACCOUNTS AND CATEGORIES
// =============================================================================

type AccountDTO struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Currency       string `json:"currency"`
	OpeningBalance string `json:"openingBalance"`
	Balance        string `json:"balance"`
}

func toAccountDTO(a ledger.Account) AccountDTO {
	return AccountDTO{
		ID:             string(a.ID),
		Name:           a.Name,
		Currency:       a.Currency,
		OpeningBalance: a.OpeningBalance.String(),
		Balance:        a.Balance.String(),
	}
}

type CreateAccountRequest struct {
	Name           string  `json:"name"`
	Currency       string  `json:"currency"`
	OpeningBalance float64 `json:"openingBalance"`
}

type CreateCategoryRequest struct {
	Name string `json:"name"`
}

// =============================================================================
// QUERIES
// =============================================================================

type SummaryDTO struct {
	TotalIncome  string `json:"totalIncome"`
	TotalExpense string `json:"totalExpense"`
	NetFlow      string `json:"netFlow"`
}

type CategoryTotalDTO struct {
	Category    string `json:"category"`
	Subcategory string `json:"subcategory,omitempty"`
	Total       string `json:"total"`
}

type DailyTotalDTO struct {
	Date  string `json:"date"`
	Total string `json:"total"`
}

type BulkAddResponse struct {
	Added   []EntryDTO `json:"added"`
	Skipped int        `json:"skipped"`
}

type DeleteSeriesResponse struct {
	Deleted int `json:"deleted"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
