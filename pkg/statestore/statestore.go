// Package statestore provides the ordered key-value world state that ledger
// transactions read and write.
//
// A Backend holds committed state. A Transaction overlays a staged write-set
// on a backend: reads observe staged writes immediately (read-your-writes)
// while the backend only changes on Commit, which flushes the full write-set
// atomically in sorted key order. Iteration order everywhere is lexicographic
// by key bytes, never map order.
package statestore

import "context"

// KV is a single pair yielded by a range scan.
type KV struct {
	Key   string
	Value []byte
}

// Iterator lazily yields pairs in lexicographic key order. It is finite and
// not restartable; callers must Close it when done.
type Iterator interface {
	Next() (KV, bool, error)
	Close() error
}

// Backend is a raw ordered keyspace. Get reports found=false for absent keys,
// Put upserts, Delete of an absent key is a no-op; NotFound semantics live on
// Transaction. Range bounds are start-inclusive, end-exclusive, with the
// empty string meaning unbounded.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Range(ctx context.Context, start, end string) (Iterator, error)
}

// BatchBackend is implemented by backends that can apply a whole write-set in
// one atomic step. Commit prefers it over per-key writes, so a multi-key
// transaction is never left half-applied when a write fails mid-flush.
// Deletes and puts arrive in sorted key order, deletes first.
type BatchBackend interface {
	ApplyBatch(ctx context.Context, deletes []string, puts []KV) error
}

type sliceIterator struct {
	pairs []KV
	pos   int
}

func (it *sliceIterator) Next() (KV, bool, error) {
	if it.pos >= len(it.pairs) {
		return KV{}, false, nil
	}
	kv := it.pairs[it.pos]
	it.pos++
	return kv, true, nil
}

func (it *sliceIterator) Close() error { return nil }

func inRange(key, start, end string) bool {
	if start != "" && key < start {
		return false
	}
	if end != "" && key >= end {
		return false
	}
	return true
}
