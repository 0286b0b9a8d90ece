package client

import "sync"

// BusySet tracks which entities have an action in flight.
type BusySet struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

func NewBusySet() *BusySet {
	return &BusySet{keys: make(map[string]struct{})}
}

// TryAcquire marks key busy and reports whether it was free.
func (b *BusySet) TryAcquire(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, taken := b.keys[key]; taken {
		return false
	}
	b.keys[key] = struct{}{}
	return true
}

func (b *BusySet) Release(key string) {
	b.mu.Lock()
	delete(b.keys, key)
	b.mu.Unlock()
}

func (b *BusySet) Busy(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, taken := b.keys[key]
	return taken
}
