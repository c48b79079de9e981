// Package throttle gates repeated sync and notification attempts behind
// minimum-interval cooldowns. State is persisted per namespaced key so a
// process restart does not reopen the gate, and unrelated trigger types
// never share or reset each other's cooldowns.
package throttle

import (
	"context"
	"fmt"
	"time"

	"github.com/teamvault/budgetvault/internal/types"
)

// DefaultSyncCooldown is the minimum interval between reconciliation pull
// cycles for one (owner, entity kind).
const DefaultSyncCooldown = 5 * time.Minute

// Notification cooldown periods. These gate the notification collaborator,
// not the reconciliation engine.
const (
	CooldownHourly  = time.Hour
	CooldownDaily   = 24 * time.Hour
	CooldownWeekly  = 7 * 24 * time.Hour
	CooldownMonthly = 30 * 24 * time.Hour
)

// Notification types with their own namespaced cooldown keys.
const (
	NotifyBudgetExceeded  = "budget_exceeded"
	NotifyBudgetWarning   = "budget_warning"
	NotifyLowSpending     = "low_spending"
	NotifyDailyReminder   = "daily_reminder"
	NotifyWeeklySummary   = "weekly_summary"
	NotifyMonthlyReminder = "monthly_reminder"
	NotifyLargeExpense    = "large_expense"
)

// CooldownStore persists last-attempt timestamps in epoch milliseconds.
// Implemented by the local ledger store's sync_state table.
type CooldownStore interface {
	GetSyncMark(ctx context.Context, key string) (int64, bool, error)
	SetSyncMark(ctx context.Context, key string, epochMillis int64) error
	ClearSyncMark(ctx context.Context, key string) error
}

// Throttle answers "is this attempt allowed right now" per logical key.
type Throttle struct {
	store CooldownStore
	now   func() time.Time
}

// New creates a Throttle backed by the given store.
func New(store CooldownStore) *Throttle {
	return &Throttle{store: store, now: time.Now}
}

// NewWithClock creates a Throttle with an injected clock for tests.
func NewWithClock(store CooldownStore, now func() time.Time) *Throttle {
	return &Throttle{store: store, now: now}
}

// CanSync reports whether a reconciliation cycle for (owner, kind) is
// allowed. It is true unconditionally when no prior attempt is recorded.
func (t *Throttle) CanSync(ctx context.Context, ownerID string, kind types.RecordKind, cooldown time.Duration) (bool, error) {
	return t.allowed(ctx, syncKey(ownerID, kind), cooldown)
}

// MarkSynced records a completed cycle for (owner, kind) at the given time.
// Callers must only invoke this after the cycle actually completed; a
// failed attempt leaves the previous mark in place so the next attempt is
// not suppressed longer than it should be.
func (t *Throttle) MarkSynced(ctx context.Context, ownerID string, kind types.RecordKind, now time.Time) error {
	return t.store.SetSyncMark(ctx, syncKey(ownerID, kind), now.UnixMilli())
}

// Reset clears the sync cooldown for (owner, kind). Test and debug only.
func (t *Throttle) Reset(ctx context.Context, ownerID string, kind types.RecordKind) error {
	return t.store.ClearSyncMark(ctx, syncKey(ownerID, kind))
}

// CanNotify reports whether a notification of the given type may be shown.
func (t *Throttle) CanNotify(ctx context.Context, ownerID, notificationType string, cooldown time.Duration) (bool, error) {
	return t.allowed(ctx, notifyKey(ownerID, notificationType), cooldown)
}

// MarkNotified records that a notification of the given type was shown.
func (t *Throttle) MarkNotified(ctx context.Context, ownerID, notificationType string, now time.Time) error {
	return t.store.SetSyncMark(ctx, notifyKey(ownerID, notificationType), now.UnixMilli())
}

func (t *Throttle) allowed(ctx context.Context, key string, cooldown time.Duration) (bool, error) {
	last, ok, err := t.store.GetSyncMark(ctx, key)
	if err != nil {
		return false, err
	}
	if !ok {
		return true, nil
	}
	elapsed := t.now().UnixMilli() - last
	return elapsed >= cooldown.Milliseconds(), nil
}

func syncKey(ownerID string, kind types.RecordKind) string {
	return fmt.Sprintf("cooldown/%s/%s", kind, ownerID)
}

func notifyKey(ownerID, notificationType string) string {
	return fmt.Sprintf("notify/%s/%s", notificationType, ownerID)
}
