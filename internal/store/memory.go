// internal/store/memory.go
//
// In-memory Provider.
// Characteristics:
//   - One map per owner, all behind a single RWMutex.
//   - State is lost when the process restarts.

package store

import (
	"context"
	"sync"
)

type memory struct {
	mu   sync.RWMutex
	data map[string]map[string]string // owner → key → value
}

// NewMemory constructs an empty in-memory Provider.
func NewMemory() Provider {
	return &memory{data: make(map[string]map[string]string)}
}

func (m *memory) For(owner string) KV {
	return &memoryKV{m: m, owner: owner}
}

type memoryKV struct {
	m     *memory
	owner string
}

func (kv *memoryKV) Get(ctx context.Context, key string) (string, bool, error) {
	kv.m.mu.RLock()
	defer kv.m.mu.RUnlock()
	v, ok := kv.m.data[kv.owner][key]
	return v, ok, nil
}

func (kv *memoryKV) Set(ctx context.Context, key, value string) error {
	kv.m.mu.Lock()
	defer kv.m.mu.Unlock()
	if kv.m.data[kv.owner] == nil {
		kv.m.data[kv.owner] = make(map[string]string)
	}
	kv.m.data[kv.owner][key] = value
	return nil
}

func (kv *memoryKV) Remove(ctx context.Context, key string) error {
	kv.m.mu.Lock()
	defer kv.m.mu.Unlock()
	delete(kv.m.data[kv.owner], key)
	return nil
}

// Claim has the same semantics as SQLite.Claim.
func (m *memory) Claim(ctx context.Context, from, to string) error {
	if from == "" || to == "" || from == to {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.data[to]) == 0 && len(m.data[from]) > 0 {
		m.data[to] = m.data[from]
	}
	delete(m.data, from)
	return nil
}
