package state

import (
	"context"
	"sync"
)

const memoryShards = 32

type memoryShard[T any] struct {
	mu       sync.RWMutex
	sessions map[int64]T
}

// MemoryStore keeps sessions in process memory. Ids are spread over shards so
// that unrelated conversations rarely share a lock.
type MemoryStore[T any] struct {
	shards [memoryShards]*memoryShard[T]
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore[T any]() *MemoryStore[T] {
	m := &MemoryStore[T]{}
	for i := range m.shards {
		m.shards[i] = &memoryShard[T]{sessions: make(map[int64]T)}
	}
	return m
}

func (m *MemoryStore[T]) shard(id int64) *memoryShard[T] {
	return m.shards[uint64(id)%memoryShards]
}

// Get implements Store.
func (m *MemoryStore[T]) Get(_ context.Context, id int64) (T, bool, error) {
	sh := m.shard(id)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	v, ok := sh.sessions[id]
	return v, ok, nil
}

// Set implements Store.
func (m *MemoryStore[T]) Set(_ context.Context, id int64, v T) error {
	sh := m.shard(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sh.sessions[id] = v
	return nil
}

// size reports the number of tracked sessions.
func (m *MemoryStore[T]) size() int {
	n := 0
	for _, sh := range m.shards {
		sh.mu.RLock()
		n += len(sh.sessions)
		sh.mu.RUnlock()
	}
	return n
}

// Close implements Store.
func (m *MemoryStore[T]) Close() error {
	return nil
}
