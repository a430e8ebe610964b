/*
errors.go - Centralized error types for the ledger core

PURPOSE:
  All error types in one place. Three kinds per the error taxonomy:
  1. Validation errors - Caller-correctable, raised before any mutation
  2. Persistence errors - Durable write failed after memory was updated
  3. Integrity errors - Derived state diverged from entry-set truth

USAGE:
  Callers classify with errors.Is, or the IsClientError / IsNotFound
  helpers when mapping to transport status codes:

    if errors.Is(err, ledger.ErrImmutableEntry) { ... }

SEE ALSO:
  - store.go: Raises these from the mutation funnel
  - api/handlers.go: Maps them to HTTP status codes
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidAmount is returned when an entry amount is zero or negative.
	// Direction is encoded by type, never by sign.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrAccountNotFound is returned when the source account is unknown.
	ErrAccountNotFound = errors.New("account not found")

	// ErrTargetAccountNotFound is returned when a transfer's destination
	// account is unknown.
	ErrTargetAccountNotFound = errors.New("target account not found")

	// ErrCategoryNotFound is returned when the category is unknown.
	// Transfer-shaped entries skip this check (fixed transfer label).
	ErrCategoryNotFound = errors.New("category not found")

	// ErrEntryNotFound is returned by update/delete when no entry with the
	// given ID exists.
	ErrEntryNotFound = errors.New("entry not found")

	// ErrIDMismatch is returned when an update carries an ID that does not
	// match any stored entry's identity fields.
	ErrIDMismatch = errors.New("entry id mismatch")

	// ErrImmutableEntry is returned when update/delete targets a
	// system-generated entry (interest accrual). Business rule: not
	// user-editable.
	ErrImmutableEntry = errors.New("entry is system-generated and immutable")

	// ErrMissingTarget is returned when a transfer-shaped entry has no
	// target account.
	ErrMissingTarget = errors.New("transfer requires a target account")

	// ErrInvalidEntryType is returned for an unknown entry type.
	ErrInvalidEntryType = errors.New("invalid entry type")

	// ErrDuplicateEntry is returned by Add when the deterministic ID
	// already exists. Bulk import skips duplicates instead.
	ErrDuplicateEntry = errors.New("entry already exists")

	// ErrNoConverter is returned when a cross-currency transfer is
	// requested and no currency converter is configured.
	ErrNoConverter = errors.New("no currency converter configured")

	// ErrCurrencyMismatch is returned when the amount a transfer-shaped
	// entry would credit is not in the target account's currency. The
	// conversion must happen at construction; it is never implied.
	ErrCurrencyMismatch = errors.New("credited amount currency does not match target account")

	// ErrInvalidWindow is returned when a query window ends before it starts.
	ErrInvalidWindow = errors.New("invalid window: end before start")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError wraps a sentinel with the offending field and value.
// Always raised before any state mutation (validate-before-apply).
type ValidationError struct {
	Field string
	Value string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s=%q: %v", e.Field, e.Value, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalidField(field, value string, err error) *ValidationError {
	return &ValidationError{Field: field, Value: value, Err: err}
}

// PersistenceError reports a durable-store write failure. By the time it
// is raised, in-memory state is already updated and is NOT rolled back:
// the next successful mutation or an explicit reload reconciles. The
// caller decides whether to retry the whole operation.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failed during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// IntegrityError reports that an aggregate bucket diverged from the
// entry-set truth. Resolved by rebuilding the index, never tolerated.
type IntegrityError struct {
	Category string
	Tier     string
	Expected string
	Actual   string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity violation: %s bucket for %q expected %s, got %s",
		e.Tier, e.Category, e.Expected, e.Actual)
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsNotFound returns true if the error indicates a missing entry/account.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEntryNotFound) ||
		errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrTargetAccountNotFound)
}

// IsPersistence returns true if in-memory state was updated but the
// durable write failed.
func IsPersistence(err error) bool {
	var p *PersistenceError
	return errors.As(err, &p)
}
