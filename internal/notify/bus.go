package notify

import (
	"context"
	"sync"

	"github.com/anonto42/bizgram/backend/internal/models"
)

const (
	EventHello = "hello"
	EventNew   = "new"
)

// Event is what live subscribers receive.
type Event struct {
	Kind         string               `json:"kind"`
	Notification *models.Notification `json:"row,omitempty"`
}

// Bus fans events out to the subscribers of one user.
type Bus interface {
	Publish(ctx context.Context, userID uint, ev Event) error
	// Subscribe returns a channel of events and a cancel func that closes it.
	Subscribe(ctx context.Context, userID uint) (<-chan Event, func())
}

const subscriberBuffer = 16

// MemoryBus is an in-process Bus. Slow subscribers lose events instead of
// blocking publishers.
type MemoryBus struct {
	mu   sync.Mutex
	subs map[uint]map[chan Event]struct{}
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: make(map[uint]map[chan Event]struct{})}
}

func (b *MemoryBus) Publish(_ context.Context, userID uint, ev Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs[userID] {
		select {
		case ch <- ev:
		default:
		}
	}
	return nil
}

func (b *MemoryBus) Subscribe(_ context.Context, userID uint) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)
	b.mu.Lock()
	if b.subs[userID] == nil {
		b.subs[userID] = make(map[chan Event]struct{})
	}
	b.subs[userID][ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs[userID], ch)
			if len(b.subs[userID]) == 0 {
				delete(b.subs, userID)
			}
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Subscribers reports the live subscriber count for a user.
func (b *MemoryBus) Subscribers(userID uint) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[userID])
}
