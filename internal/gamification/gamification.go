// Package gamification turns recorded entries into progress: experience
// points, levels and badges. It consumes RecordAdded events from the engine
// bus and persists progress through the local store, so tracking never
// touches the sync path and can never fail a write.
package gamification

import (
	"context"
	"log/slog"

	"github.com/teamvault/budgetvault/internal/engine"
	"github.com/teamvault/budgetvault/internal/store"
	"github.com/teamvault/budgetvault/internal/types"
)

// XP awarded per recorded entry. Income pays slightly more to nudge users
// into recording both sides of their ledger.
const (
	XPPerExpense = 10
	XPPerIncome  = 15
)

// levelThresholds holds the cumulative XP required to reach each level.
// Level 1 starts at zero; the last threshold is the cap.
var levelThresholds = []int{0, 100, 250, 500, 1000, 2000}

// Badge identifiers.
const (
	BadgeFirstExpense = "first_expense"
	BadgeFirstIncome  = "first_income"
	BadgeMaxLevel     = "max_level"
)

// LevelForXP returns the 1-based level for a cumulative XP total.
func LevelForXP(xp int) int {
	level := 1
	for i, threshold := range levelThresholds {
		if xp >= threshold {
			level = i + 1
		}
	}
	return level
}

// NextLevelAt returns the XP total needed for the next level, and false
// when the player is at the cap.
func NextLevelAt(xp int) (int, bool) {
	for _, threshold := range levelThresholds {
		if xp < threshold {
			return threshold, true
		}
	}
	return 0, false
}

// ProgressStore is the persistence the tracker needs from the local store.
type ProgressStore interface {
	AddXP(ctx context.Context, ownerID string, points int) (int, error)
	Progress(ctx context.Context, ownerID string) (store.PlayerProgress, error)
	AwardBadge(ctx context.Context, ownerID, badgeID string) (bool, error)
	Badges(ctx context.Context, ownerID string) ([]string, error)
}

// Compile-time check: the tracker plugs into the engine bus.
var _ engine.Subscriber = (*Tracker)(nil)

// Tracker accumulates XP and awards badges in response to record events.
type Tracker struct {
	store ProgressStore
}

// NewTracker creates a Tracker backed by the given store.
func NewTracker(progressStore ProgressStore) *Tracker {
	return &Tracker{store: progressStore}
}

// HandleRecordAdded awards XP and badges for a newly recorded entry.
// Failures are logged and swallowed: progress tracking is decoration, the
// user's record is already durable.
func (t *Tracker) HandleRecordAdded(ctx context.Context, event engine.RecordAdded) {
	points := XPPerExpense
	badge := BadgeFirstExpense
	if event.Kind == types.KindIncome {
		points = XPPerIncome
		badge = BadgeFirstIncome
	}

	total, err := t.store.AddXP(ctx, event.OwnerID, points)
	if err != nil {
		slog.Warn("failed to award xp", "owner_id", event.OwnerID, "error", err)
		return
	}

	if before, after := LevelForXP(total-points), LevelForXP(total); after > before {
		slog.Info("level up",
			"owner_id", event.OwnerID,
			"level", after,
			"xp", total,
		)
		if _, hasNext := NextLevelAt(total); !hasNext {
			t.award(ctx, event.OwnerID, BadgeMaxLevel)
		}
	}

	t.award(ctx, event.OwnerID, badge)
}

func (t *Tracker) award(ctx context.Context, ownerID, badgeID string) {
	awarded, err := t.store.AwardBadge(ctx, ownerID, badgeID)
	if err != nil {
		slog.Warn("failed to award badge", "owner_id", ownerID, "badge", badgeID, "error", err)
		return
	}
	if awarded {
		slog.Info("badge awarded", "owner_id", ownerID, "badge", badgeID)
	}
}

// Summary is the owner's current progress, derived from stored XP.
type Summary struct {
	XP          int
	Level       int
	NextLevelAt int
	AtCap       bool
	Badges      []string
}

// Summarize reads the owner's stored progress and derives level state.
func (t *Tracker) Summarize(ctx context.Context, ownerID string) (Summary, error) {
	progress, err := t.store.Progress(ctx, ownerID)
	if err != nil {
		return Summary{}, err
	}
	badges, err := t.store.Badges(ctx, ownerID)
	if err != nil {
		return Summary{}, err
	}

	next, hasNext := NextLevelAt(progress.XP)
	return Summary{
		XP:          progress.XP,
		Level:       LevelForXP(progress.XP),
		NextLevelAt: next,
		AtCap:       !hasNext,
		Badges:      badges,
	}, nil
}
