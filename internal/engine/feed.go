package engine

import "sync"

// OrderUpdate is the event published on every order status transition.
type OrderUpdate struct {
	ID     uint64
	Status Status
	Hash   []byte
}

// Feed is a fan-out hub distributing order updates to any number of
// subscribers (pollers, the Redis mirror). Sends are non-blocking: a slow
// subscriber gets updates dropped, never stalls the engine.
type Feed struct {
	mu   sync.RWMutex
	subs []chan OrderUpdate
}

// NewFeed creates an empty feed.
func NewFeed() *Feed {
	return &Feed{}
}

// Subscribe returns a buffered channel receiving every order update. The
// caller must drain it to avoid dropped messages.
func (f *Feed) Subscribe() <-chan OrderUpdate {
	ch := make(chan OrderUpdate, 256)
	f.mu.Lock()
	f.subs = append(f.subs, ch)
	f.mu.Unlock()
	return ch
}

// Publish distributes an update to all subscribers.
func (f *Feed) Publish(u OrderUpdate) {
	f.mu.RLock()
	for _, ch := range f.subs {
		select {
		case ch <- u:
		default:
			// Slow subscriber — drop.
		}
	}
	f.mu.RUnlock()
}
