// Package engine implements the offline-first sync and reconciliation core.
//
// Writes land in the local store first and unconditionally; mirroring them
// to the remote store is best effort. Pulls are throttled per (owner,
// entity kind) and deduplicated by content key, so the same logical entry
// pushed from this or another device never produces a second local row.
// All correctness is reconstructed client-side from content equality and
// creation timestamps; there is no server-side coordination.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/teamvault/budgetvault/internal/dedup"
	"github.com/teamvault/budgetvault/internal/remote"
	"github.com/teamvault/budgetvault/internal/store"
	"github.com/teamvault/budgetvault/internal/throttle"
	"github.com/teamvault/budgetvault/internal/types"
)

// ErrNotSignedIn is returned by PullIncremental when no authenticated
// remote identity is available. Add does not return it: local-only
// persistence is a valid terminal state for writes.
var ErrNotSignedIn = errors.New("not signed in")

// Outcome is the result of pushing one record to the remote store.
type Outcome string

const (
	OutcomeCreated       Outcome = "created"
	OutcomeAlreadyExists Outcome = "already_exists"
)

// Engine orchestrates the local store, the remote store, the throttle and
// the event bus. It is the only component touching both stores.
//
// All dependencies are injected at construction; substituting fakes in
// tests needs no global state. A nil remote store means no authenticated
// identity is available.
type Engine struct {
	local    store.LocalStore
	remote   remote.Store
	throttle *throttle.Throttle
	events   *Bus

	cooldown time.Duration
	now      func() time.Time

	// group coalesces concurrent pulls for the same (owner, kind) into a
	// single in-flight cycle, so near-simultaneous lifecycle callbacks do
	// not issue duplicate remote queries.
	group singleflight.Group
}

// New creates an Engine with the default reconciliation cooldown.
func New(local store.LocalStore, remoteStore remote.Store, th *throttle.Throttle, events *Bus) *Engine {
	return &Engine{
		local:    local,
		remote:   remoteStore,
		throttle: th,
		events:   events,
		cooldown: throttle.DefaultSyncCooldown,
		now:      time.Now,
	}
}

// Add stores the record locally and mirrors it to the remote store on a
// best-effort basis.
//
// The local insert is the success criterion: if it fails the whole call
// fails, and if it succeeds the call succeeds even when the remote push
// does not. A connectivity problem must never make the user's action
// appear to fail.
func (e *Engine) Add(ctx context.Context, record types.Record) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("add %s: %w", record.Kind, err)
	}

	id, err := e.local.Insert(ctx, record)
	if err != nil {
		return fmt.Errorf("add %s: local insert: %w", record.Kind, err)
	}
	record.LocalID = id

	slog.Debug("record stored locally",
		"kind", record.Kind,
		"owner_id", record.OwnerID,
		"local_id", id,
	)

	if e.events != nil {
		e.events.Publish(ctx, RecordAdded{
			Kind:    record.Kind,
			OwnerID: record.OwnerID,
			Amount:  record.Amount,
			At:      e.now(),
		})
	}

	if e.remote == nil {
		slog.Debug("no remote identity, record kept local only",
			"kind", record.Kind,
			"owner_id", record.OwnerID,
		)
		return nil
	}

	if _, err := e.PushOne(ctx, record); err != nil {
		// Remote mirroring is advisory. The record is durable locally and
		// will reach the remote store from a later push or another device.
		slog.Warn("push failed, record kept locally",
			"kind", record.Kind,
			"owner_id", record.OwnerID,
			"local_id", id,
			"error", err,
		)
	}

	return nil
}

// PushOne mirrors a single record to the remote store. Pushing the same
// logical record twice yields exactly one remote document: the push is a
// no-op whenever a document with the same content key already exists.
func (e *Engine) PushOne(ctx context.Context, record types.Record) (Outcome, error) {
	if e.remote == nil {
		return "", fmt.Errorf("%s push: %w", record.Kind, ErrNotSignedIn)
	}

	key := dedup.KeyOf(record)
	matches, err := e.remote.FindByContentKey(ctx, key)
	if err != nil {
		return "", fmt.Errorf("%s push: lookup: %w", record.Kind, err)
	}

	if len(matches) > 1 {
		// Anomaly: the content key should identify at most one document.
		// Duplicate suppression outranks precision here, so take the first
		// match and record the inconsistency for offline investigation.
		slog.Warn("multiple remote documents share one content key",
			"kind", record.Kind,
			"owner_id", record.OwnerID,
			"matches", len(matches),
		)
	}
	if len(matches) > 0 {
		return OutcomeAlreadyExists, nil
	}

	if _, err := e.remote.Append(ctx, remote.DocumentFromRecord(record)); err != nil {
		return "", fmt.Errorf("%s push: append: %w", record.Kind, err)
	}

	slog.Debug("record pushed",
		"kind", record.Kind,
		"owner_id", record.OwnerID,
		"local_id", record.LocalID,
	)
	return OutcomeCreated, nil
}

// PullIncremental fetches remote documents created since the last
// successful pull and inserts the ones not yet present locally. It returns
// the newly inserted records.
//
// A throttled call returns an empty result and no error; callers cannot
// (and must not) distinguish "nothing new" from "throttled". The cooldown
// and the watermark advance only after a fully successful cycle, so a
// failed fetch retries from the same watermark once the cooldown permits.
func (e *Engine) PullIncremental(ctx context.Context, ownerID string, kind types.RecordKind) ([]types.Record, error) {
	if e.remote == nil {
		return nil, fmt.Errorf("%s pull: %w", kind, ErrNotSignedIn)
	}

	allowed, err := e.throttle.CanSync(ctx, ownerID, kind, e.cooldown)
	if err != nil {
		return nil, fmt.Errorf("%s pull: throttle: %w", kind, err)
	}
	if !allowed {
		slog.Debug("pull skipped, cooldown active", "kind", kind, "owner_id", ownerID)
		return nil, nil
	}

	result, err, shared := e.group.Do(string(kind)+"/"+ownerID, func() (any, error) {
		return e.pullCycle(ctx, ownerID, kind)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		slog.Debug("pull coalesced with concurrent caller", "kind", kind, "owner_id", ownerID)
	}
	return result.([]types.Record), nil
}

func (e *Engine) pullCycle(ctx context.Context, ownerID string, kind types.RecordKind) ([]types.Record, error) {
	watermark, _, err := e.local.GetSyncMark(ctx, watermarkKey(ownerID, kind))
	if err != nil {
		return nil, fmt.Errorf("%s pull: read watermark: %w", kind, err)
	}

	docs, err := e.remote.QueryCreatedAfter(ctx, ownerID, kind, watermark)
	if err != nil {
		// Abort before marking anything, so the next attempt retries from
		// the same watermark.
		return nil, fmt.Errorf("%s pull: fetch: %w", kind, err)
	}

	var pulled []types.Record
	for _, doc := range docs {
		record, err := doc.ToRecord(ownerID)
		if err != nil {
			slog.Warn("skipping malformed remote document",
				"kind", kind,
				"owner_id", ownerID,
				"document_id", doc.ID,
				"error", err,
			)
			continue
		}

		exists, err := dedup.Exists(ctx, e.local, dedup.KeyOf(record))
		if err != nil {
			return nil, fmt.Errorf("%s pull: content check: %w", kind, err)
		}
		if exists {
			// Already present by content. Typically a record this device
			// pushed earlier, now coming back around.
			continue
		}

		id, err := e.local.Insert(ctx, record)
		if err != nil {
			return nil, fmt.Errorf("%s pull: local insert: %w", kind, err)
		}
		record.LocalID = id
		pulled = append(pulled, record)
	}

	now := e.now()
	if err := e.local.SetSyncMark(ctx, watermarkKey(ownerID, kind), now.UnixMilli()); err != nil {
		return nil, fmt.Errorf("%s pull: advance watermark: %w", kind, err)
	}
	if err := e.throttle.MarkSynced(ctx, ownerID, kind, now); err != nil {
		return nil, fmt.Errorf("%s pull: mark synced: %w", kind, err)
	}

	slog.Info("pull completed",
		"kind", kind,
		"owner_id", ownerID,
		"fetched", len(docs),
		"inserted", len(pulled),
	)
	return pulled, nil
}

func watermarkKey(ownerID string, kind types.RecordKind) string {
	return fmt.Sprintf("watermark/%s/%s", kind, ownerID)
}
