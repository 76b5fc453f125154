/*
errors.go - Centralized error types for the envelope engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  The engine's failure modes are deterministic data-validation errors:
  there is no I/O inside the core, so nothing here is transient.

ERROR POSTURE:
  Malformed transaction rows are NOT errors - the normalizer excludes
  them and counts the exclusion in NormalizeReport so a caller can
  audit what was dropped. Structural problems (months out of order,
  negative transfer amounts) are hard errors.

SEE ALSO:
  - normalize.go: Produces NormalizeReport
  - engine.go: Returns structural errors from Reconcile
*/
package envelope

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidAmount is returned when a monetary value cannot be parsed.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidDate is returned when a date field cannot be parsed.
	ErrInvalidDate = errors.New("invalid date")

	// ErrNegativeTransfer is returned for a transfer row with a negative
	// amount. Direction is encoded by from/to, never by sign.
	ErrNegativeTransfer = errors.New("transfer amount must be non-negative")

	// ErrNoMonths is returned when reconciliation is asked to run over an
	// empty month index.
	ErrNoMonths = errors.New("no months to reconcile")

	// ErrUnknownMonth is returned when a caller asks for a month outside
	// the reconciled index.
	ErrUnknownMonth = errors.New("month not in reconciled index")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// TransferError reports an invalid transfer row with its position.
type TransferError struct {
	Month Month
	From  Category
	To    Category
	Err   error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("transfer %s -> %s in %s: %v", e.From, e.To, e.Month, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

// =============================================================================
// NORMALIZATION AUDIT
// =============================================================================

// SkipReason classifies why a raw transaction was excluded.
type SkipReason string

const (
	SkipUnposted      SkipReason = "unposted"       // status was not "posted"
	SkipBadDate       SkipReason = "malformed_date" // neither date field parsed
	SkipBadAmount     SkipReason = "malformed_amount"
	SkipMissingAmount SkipReason = "missing_amount"
)

// SkippedRecord is one excluded raw row, kept for auditability.
type SkippedRecord struct {
	Reason      SkipReason
	Description string
	Raw         RawTransaction
}

// NormalizeReport counts what the normalizer excluded. Every exclusion is
// loggable; none aborts the run.
type NormalizeReport struct {
	Total    int
	Kept     int
	Skipped  []SkippedRecord
	ByReason map[SkipReason]int
}

func (r NormalizeReport) SkippedCount() int { return len(r.Skipped) }
