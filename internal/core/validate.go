package core

import (
	"strings"
	"time"
)

// RejectReason names a non-fatal pipeline rejection. The user sees the
// reason together with the transcript so they can re-record or enter the
// expense manually.
type RejectReason string

const (
	RejectNone               RejectReason = ""
	RejectNoExpenseExtracted RejectReason = "no_expense_extracted"
	RejectInvalidAmount      RejectReason = "invalid_amount"
	RejectUnknownCategory    RejectReason = "unknown_category"
	RejectEmptyDescription   RejectReason = "empty_description"
	RejectExtractionParse    RejectReason = "extraction_parse"
)

// ValidateCandidate applies the domain rules to an extracted candidate.
// Rules run in order and the first failure wins:
//
//  1. absent candidate           -> RejectNoExpenseExtracted
//  2. amount <= 0                -> RejectInvalidAmount (zero is invalid)
//  3. category outside the enum  -> RejectUnknownCategory (no coercion to
//     "other"; surfacing bad data beats silently bucketing it)
//  4. blank description          -> RejectEmptyDescription
//
// An accepted candidate is returned unchanged except that a zero date is
// defaulted to now.
func ValidateCandidate(c *ExpenseCandidate, now time.Time) (ExpenseCandidate, RejectReason) {
	if c == nil {
		return ExpenseCandidate{}, RejectNoExpenseExtracted
	}
	if c.Amount.Cents <= 0 {
		return ExpenseCandidate{}, RejectInvalidAmount
	}
	if !c.Category.Valid() {
		return ExpenseCandidate{}, RejectUnknownCategory
	}
	if strings.TrimSpace(c.Description) == "" {
		return ExpenseCandidate{}, RejectEmptyDescription
	}
	out := *c
	if out.Date.IsZero() {
		out.Date = now
	}
	return out, RejectNone
}
