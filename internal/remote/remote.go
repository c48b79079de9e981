// Package remote defines the remote ledger document store contract and its
// HTTP client implementation. The remote store is advisory: the engine
// treats it as reachable on a best-effort basis and reconstructs all
// correctness client-side from content keys and creation timestamps.
package remote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/teamvault/budgetvault/internal/dedup"
	"github.com/teamvault/budgetvault/internal/types"
)

// ErrUnavailable marks failures the engine treats as connectivity problems:
// network errors, timeouts, auth rejections, rate limits and server errors.
var ErrUnavailable = errors.New("remote store unavailable")

// Document is a remote ledger record. The server assigns ID and CreatedAt
// (epoch milliseconds) on append; LocalID is informational only and never
// used for lookups.
type Document struct {
	ID           string           `json:"id"`
	OwnerID      string           `json:"owner_id"`
	Kind         types.RecordKind `json:"kind"`
	OccurredDate string           `json:"occurred_date"`
	Amount       string           `json:"amount"`
	Category     string           `json:"category"`
	Description  *string          `json:"description"`
	StartTime    *string          `json:"start_time,omitempty"`
	EndTime      *string          `json:"end_time,omitempty"`
	PhotoURI     *string          `json:"photo_uri,omitempty"`
	LocalID      int64            `json:"local_id"`
	CreatedAt    int64            `json:"created_at"`
}

// Store is the remote document collection contract.
type Store interface {
	// FindByContentKey returns documents matching the content key, at most
	// two. More than one match is an anomaly the caller logs and collapses.
	FindByContentKey(ctx context.Context, key dedup.ContentKey) ([]Document, error)

	// Append stores a new document and returns it with server-assigned
	// ID and CreatedAt.
	Append(ctx context.Context, doc Document) (Document, error)

	// QueryCreatedAfter returns the owner's documents of one kind created
	// strictly after sinceMillis, newest first.
	QueryCreatedAfter(ctx context.Context, ownerID string, kind types.RecordKind, sinceMillis int64) ([]Document, error)
}

// DocumentFromRecord builds the remote representation of a local record.
func DocumentFromRecord(r types.Record) Document {
	return Document{
		OwnerID:      r.OwnerID,
		Kind:         r.Kind,
		OccurredDate: r.OccurredDate,
		Amount:       r.Amount.StringFixed(2),
		Category:     r.Category,
		Description:  r.Description,
		StartTime:    r.StartTime,
		EndTime:      r.EndTime,
		PhotoURI:     r.PhotoURI,
		LocalID:      r.LocalID,
	}
}

// ToRecord maps a pulled document to a local record. LocalID is left
// unassigned and OwnerID is forced to the calling user's id; a remote-stored
// owner is never trusted beyond this.
func (d Document) ToRecord(ownerID string) (types.Record, error) {
	amount, err := decimal.NewFromString(d.Amount)
	if err != nil {
		return types.Record{}, fmt.Errorf("parse document amount %q: %w", d.Amount, err)
	}

	return types.Record{
		LocalID:      0,
		Kind:         d.Kind,
		OwnerID:      ownerID,
		OccurredDate: d.OccurredDate,
		Amount:       amount,
		Category:     d.Category,
		Description:  d.Description,
		StartTime:    d.StartTime,
		EndTime:      d.EndTime,
		PhotoURI:     d.PhotoURI,
		CreatedAt:    time.UnixMilli(d.CreatedAt).UTC(),
	}, nil
}

// ContentKey derives the content key of a document as seen by ownerID.
func (d Document) ContentKey(ownerID string) dedup.ContentKey {
	key := dedup.ContentKey{
		OwnerID:      ownerID,
		Kind:         d.Kind,
		Amount:       dedup.CanonicalAmount(d.Amount),
		OccurredDate: d.OccurredDate,
		Category:     d.Category,
	}
	if d.Description != nil {
		key.HasDescription = true
		key.Description = *d.Description
	}
	return key
}
