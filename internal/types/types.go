// Package types defines the core ledger record model shared by the local
// store, the remote document service, and the sync engine.
package types

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RecordKind identifies the ledger entity a record belongs to.
type RecordKind string

const (
	KindExpense RecordKind = "expense"
	KindIncome  RecordKind = "income"
)

// Valid reports whether k is a known record kind.
func (k RecordKind) Valid() bool {
	return k == KindExpense || k == KindIncome
}

// Date layouts. Records carry their occurrence date in display format;
// range filters accept ISO dates and convert at the query boundary.
const (
	DisplayDateLayout = "02/01/2006"
	ISODateLayout     = "2006-01-02"
)

// Record is a single ledger entry (expense or income).
//
// LocalID is assigned by the local store on insert and is zero before first
// persistence. Description distinguishes nil (absent) from the empty string;
// the two never compare equal for deduplication purposes.
type Record struct {
	LocalID      int64
	Kind         RecordKind
	OwnerID      string
	OccurredDate string // DisplayDateLayout
	Amount       decimal.Decimal
	Category     string // source of income for income records
	Description  *string
	StartTime    *string
	EndTime      *string
	PhotoURI     *string
	CreatedAt    time.Time
}

// Validate checks the fields a record needs before it can be persisted.
func (r Record) Validate() error {
	if !r.Kind.Valid() {
		return fmt.Errorf("invalid record kind %q", r.Kind)
	}
	if r.OwnerID == "" {
		return errors.New("owner id is required")
	}
	if r.Category == "" {
		return errors.New("category is required")
	}
	if r.Amount.IsNegative() {
		return errors.New("amount must not be negative")
	}
	if _, err := ParseDisplayDate(r.OccurredDate); err != nil {
		return fmt.Errorf("invalid occurred date: %w", err)
	}
	return nil
}

// DisplayCategory returns the case-folded category used for display
// grouping. Storage preserves the original casing.
func (r Record) DisplayCategory() string {
	return strings.ToLower(strings.TrimSpace(r.Category))
}

// ParseDisplayDate parses a dd/mm/yyyy date string.
func ParseDisplayDate(s string) (time.Time, error) {
	t, err := time.Parse(DisplayDateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// ParseISODate parses a yyyy-mm-dd date string.
func ParseISODate(s string) (time.Time, error) {
	t, err := time.Parse(ISODateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// DisplayToISO converts a dd/mm/yyyy date to yyyy-mm-dd.
func DisplayToISO(s string) (string, error) {
	t, err := ParseDisplayDate(s)
	if err != nil {
		return "", err
	}
	return t.Format(ISODateLayout), nil
}

// ISOToDisplay converts a yyyy-mm-dd date to dd/mm/yyyy.
func ISOToDisplay(s string) (string, error) {
	t, err := ParseISODate(s)
	if err != nil {
		return "", err
	}
	return t.Format(DisplayDateLayout), nil
}

// StringPtr returns a pointer to s. Convenience for optional fields.
func StringPtr(s string) *string {
	return &s
}
