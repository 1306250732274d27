package statestore

import (
	"context"
	"sort"
	"sync"
)

// Memory is an in-process Backend keeping keys in sorted order. It backs
// tests and single-node development; durable deployments use the GORM or
// Redis backends.
type Memory struct {
	mu   sync.RWMutex
	keys []string
	data map[string][]byte
}

// NewMemory returns an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{data: map[string][]byte{}}
}

func (m *Memory) Get(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, true, nil
}

func (m *Memory) Put(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putLocked(key, value)
	return nil
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteLocked(key)
	return nil
}

// ApplyBatch applies the whole write-set under one lock acquisition, so
// readers never observe a partially applied transaction.
func (m *Memory) ApplyBatch(ctx context.Context, deletes []string, puts []KV) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range deletes {
		m.deleteLocked(key)
	}
	for _, kv := range puts {
		m.putLocked(kv.Key, kv.Value)
	}
	return nil
}

func (m *Memory) putLocked(key string, value []byte) {
	if _, ok := m.data[key]; !ok {
		pos := sort.SearchStrings(m.keys, key)
		m.keys = append(m.keys, "")
		copy(m.keys[pos+1:], m.keys[pos:])
		m.keys[pos] = key
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	m.data[key] = stored
}

func (m *Memory) deleteLocked(key string) {
	if _, ok := m.data[key]; !ok {
		return
	}
	delete(m.data, key)
	pos := sort.SearchStrings(m.keys, key)
	m.keys = append(m.keys[:pos], m.keys[pos+1:]...)
}

func (m *Memory) Range(ctx context.Context, start, end string) (Iterator, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pairs := make([]KV, 0, len(m.keys))
	for _, key := range m.keys {
		if !inRange(key, start, end) {
			continue
		}
		value := m.data[key]
		out := make([]byte, len(value))
		copy(out, value)
		pairs = append(pairs, KV{Key: key, Value: out})
	}
	return &sliceIterator{pairs: pairs}, nil
}

// Len reports the number of committed keys.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.keys)
}
