package engine

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/teamvault/budgetvault/internal/types"
)

// RecordAdded is emitted after a record has been durably stored by Add.
// Collaborators (gamification, budget notifications) subscribe to this
// event instead of being called by the engine directly, so the sync core
// carries no dependency on presentation concerns.
type RecordAdded struct {
	Kind    types.RecordKind
	OwnerID string
	Amount  decimal.Decimal
	At      time.Time
}

// Subscriber consumes RecordAdded events. Handlers run synchronously on
// the adding goroutine and must not fail the add path; anything that can
// error should log and move on.
type Subscriber interface {
	HandleRecordAdded(ctx context.Context, event RecordAdded)
}

// Bus fans RecordAdded events out to subscribers.
type Bus struct {
	mu          sync.RWMutex
	subscribers []Subscriber
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a subscriber for future events.
func (b *Bus) Subscribe(s Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, s)
}

// Publish delivers the event to all current subscribers.
func (b *Bus) Publish(ctx context.Context, event RecordAdded) {
	b.mu.RLock()
	subscribers := make([]Subscriber, len(b.subscribers))
	copy(subscribers, b.subscribers)
	b.mu.RUnlock()

	for _, s := range subscribers {
		s.HandleRecordAdded(ctx, event)
	}
}
