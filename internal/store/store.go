package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/teamvault/budgetvault/internal/dedup"
	"github.com/teamvault/budgetvault/internal/types"
)

// Filter narrows record queries and aggregates. Date bounds are ISO
// (yyyy-mm-dd) and inclusive; conversion to the stored display format
// happens inside the store, never in callers.
type Filter struct {
	StartDate string
	EndDate   string
	Category  string // case-folded exact match for display grouping
	Search    string // substring match on description and category
	Limit     int
}

// PlayerProgress is the gamification state for one user.
type PlayerProgress struct {
	OwnerID   string
	XP        int
	UpdatedAt time.Time
}

// LocalStore defines the interface contract for all local ledger storage.
// The local store is the durability boundary: a record inserted here is
// considered saved regardless of remote connectivity.
type LocalStore interface {
	Insert(ctx context.Context, record types.Record) (int64, error)
	InsertIfAbsent(ctx context.Context, record types.Record) (int64, bool, error)
	ExistsByContent(ctx context.Context, key dedup.ContentKey) (bool, error)
	Query(ctx context.Context, ownerID string, kind types.RecordKind, filter Filter) ([]types.Record, error)
	Delete(ctx context.Context, ownerID string, localID int64) error
	TotalAmount(ctx context.Context, ownerID string, kind types.RecordKind, filter Filter) (decimal.Decimal, error)
	SumByCategory(ctx context.Context, ownerID string, kind types.RecordKind, filter Filter) (map[string]decimal.Decimal, error)

	// Sync bookkeeping (cooldowns and watermarks), epoch milliseconds.
	GetSyncMark(ctx context.Context, key string) (int64, bool, error)
	SetSyncMark(ctx context.Context, key string, epochMillis int64) error
	ClearSyncMark(ctx context.Context, key string) error

	// Gamification progress.
	AddXP(ctx context.Context, ownerID string, points int) (int, error)
	Progress(ctx context.Context, ownerID string) (PlayerProgress, error)
	AwardBadge(ctx context.Context, ownerID, badgeID string) (bool, error)
	Badges(ctx context.Context, ownerID string) ([]string, error)

	Close() error
}
