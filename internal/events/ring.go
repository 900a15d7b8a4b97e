package events

import (
	"sync"

	"github.com/google/uuid"

	"github.com/hostwatchhq/agent/pkg/types"
)

const defaultRingCapacity = 128

// Ring keeps the most recent events in memory so the HTTP API can report the
// recent trend. Nothing is persisted; history is an explicit non-goal.
type Ring struct {
	mu       sync.Mutex
	capacity int
	items    []types.Event
}

func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = defaultRingCapacity
	}
	return &Ring{
		capacity: capacity,
		items:    make([]types.Event, 0, capacity),
	}
}

// Record stores the event, stamping an ID if the caller did not.
func (r *Ring) Record(event types.Event) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, event)
	if len(r.items) > r.capacity {
		r.items = r.items[len(r.items)-r.capacity:]
	}
}

// Recent returns up to max events, newest last. max <= 0 returns everything
// retained.
func (r *Ring) Recent(max int) []types.Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.items)
	if max > 0 && max < n {
		n = max
	}
	out := make([]types.Event, n)
	copy(out, r.items[len(r.items)-n:])
	return out
}
