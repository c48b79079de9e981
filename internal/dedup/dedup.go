// Package dedup computes content-equality keys over the mutable business
// fields of a ledger record. The key is the sole criterion for "is this the
// same logical entry" on both the local and the remote store; storage-assigned
// identifiers never participate. The same rule on both sides is what makes the
// push/pull cycle idempotent.
package dedup

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/teamvault/budgetvault/internal/types"
)

// ContentKey is the derived identity of a ledger record. It is never
// persisted.
//
// Amount is canonicalized to a fixed two-decimal string so that "50",
// "50.0" and "50.00" compare equal, while equality stays exact (no epsilon).
// HasDescription separates an absent description from an empty one: a record
// with description "" and a record with no description are distinct entries.
type ContentKey struct {
	OwnerID        string
	Kind           types.RecordKind
	Amount         string
	OccurredDate   string
	Category       string
	Description    string
	HasDescription bool
}

// KeyOf derives the content key for a record.
func KeyOf(r types.Record) ContentKey {
	k := ContentKey{
		OwnerID:      r.OwnerID,
		Kind:         r.Kind,
		Amount:       CanonicalAmount(r.Amount.String()),
		OccurredDate: r.OccurredDate,
		Category:     r.Category,
	}
	if r.Description != nil {
		k.HasDescription = true
		k.Description = *r.Description
	}
	return k
}

// CanonicalAmount normalizes a decimal amount string to two fractional
// digits. Invalid input is returned unchanged; it will simply never match.
func CanonicalAmount(s string) string {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return s
	}
	return d.StringFixed(2)
}

// Checker is implemented by stores that can answer content-key existence.
type Checker interface {
	ExistsByContent(ctx context.Context, key ContentKey) (bool, error)
}

// Exists reports whether a record with the given content key is already
// present in the store.
func Exists(ctx context.Context, store Checker, key ContentKey) (bool, error) {
	return store.ExistsByContent(ctx, key)
}
