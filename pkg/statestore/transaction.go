package statestore

import (
	"context"
	"sort"

	pkgerrors "github.com/digitalcampus/ijazah-ledger/pkg/errors"
)

// Transaction overlays a staged write-set on a Backend. All reads observe
// staged writes immediately; the backend is only mutated by Commit, which
// applies the full write-set in sorted key order. A finished transaction
// (committed or discarded) rejects further use.
type Transaction struct {
	backend  Backend
	writes   map[string][]byte
	deletes  map[string]struct{}
	finished bool
}

// NewTransaction opens a transaction over the given backend.
func NewTransaction(backend Backend) *Transaction {
	return &Transaction{
		backend: backend,
		writes:  map[string][]byte{},
		deletes: map[string]struct{}{},
	}
}

func (t *Transaction) guard() error {
	if t.finished {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction already finished")
	}
	return nil
}

// Get returns the value at key and whether it exists, staged writes first.
func (t *Transaction) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := t.guard(); err != nil {
		return nil, false, err
	}
	if _, ok := t.deletes[key]; ok {
		return nil, false, nil
	}
	if value, ok := t.writes[key]; ok {
		out := make([]byte, len(value))
		copy(out, value)
		return out, true, nil
	}
	return t.backend.Get(ctx, key)
}

// Exists reports whether key is present.
func (t *Transaction) Exists(ctx context.Context, key string) (bool, error) {
	_, found, err := t.Get(ctx, key)
	return found, err
}

// Put stages a write at key.
func (t *Transaction) Put(ctx context.Context, key string, value []byte) error {
	if err := t.guard(); err != nil {
		return err
	}
	delete(t.deletes, key)
	stored := make([]byte, len(value))
	copy(stored, value)
	t.writes[key] = stored
	return nil
}

// Delete stages removal of key, failing if it does not exist.
func (t *Transaction) Delete(ctx context.Context, key string) error {
	found, err := t.Exists(ctx, key)
	if err != nil {
		return err
	}
	if !found {
		return pkgerrors.Newf(pkgerrors.CodeNotFound, "key %q not found", key)
	}
	delete(t.writes, key)
	t.deletes[key] = struct{}{}
	return nil
}

// RangeScan yields pairs in lexicographic key order with staged writes
// overlaid and staged deletes elided. Bounds follow Backend.Range.
func (t *Transaction) RangeScan(ctx context.Context, start, end string) (Iterator, error) {
	if err := t.guard(); err != nil {
		return nil, err
	}
	base, err := t.backend.Range(ctx, start, end)
	if err != nil {
		return nil, err
	}

	staged := make([]string, 0, len(t.writes))
	for key := range t.writes {
		if inRange(key, start, end) {
			staged = append(staged, key)
		}
	}
	sort.Strings(staged)

	return &overlayIterator{tx: t, base: base, staged: staged}, nil
}

// Commit flushes the staged write-set to the backend, deletes first, then
// puts, each in sorted key order. When the backend implements BatchBackend
// the whole write-set goes down in one atomic apply; the per-key fallback
// exists only for backends without batch support.
func (t *Transaction) Commit(ctx context.Context) error {
	if err := t.guard(); err != nil {
		return err
	}
	t.finished = true

	deletes := make([]string, 0, len(t.deletes))
	for key := range t.deletes {
		deletes = append(deletes, key)
	}
	sort.Strings(deletes)

	keys := make([]string, 0, len(t.writes))
	for key := range t.writes {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	puts := make([]KV, 0, len(keys))
	for _, key := range keys {
		puts = append(puts, KV{Key: key, Value: t.writes[key]})
	}

	if batch, ok := t.backend.(BatchBackend); ok {
		return batch.ApplyBatch(ctx, deletes, puts)
	}

	for _, key := range deletes {
		if err := t.backend.Delete(ctx, key); err != nil {
			return err
		}
	}
	for _, kv := range puts {
		if err := t.backend.Put(ctx, kv.Key, kv.Value); err != nil {
			return err
		}
	}
	return nil
}

// Discard drops the staged write-set without touching the backend. Safe to
// call after Commit.
func (t *Transaction) Discard() {
	t.finished = true
	t.writes = nil
	t.deletes = nil
}

// overlayIterator merges the backend iterator with staged writes, preferring
// staged values on key collision and skipping staged deletes.
type overlayIterator struct {
	tx     *Transaction
	base   Iterator
	staged []string

	pending   *KV
	exhausted bool
}

func (it *overlayIterator) Next() (KV, bool, error) {
	for {
		baseKV, baseOK, err := it.peekBase()
		if err != nil {
			return KV{}, false, err
		}

		switch {
		case !baseOK && len(it.staged) == 0:
			return KV{}, false, nil

		case !baseOK, len(it.staged) > 0 && it.staged[0] < baseKV.Key:
			key := it.staged[0]
			it.staged = it.staged[1:]
			return KV{Key: key, Value: it.tx.writes[key]}, true, nil

		case len(it.staged) > 0 && it.staged[0] == baseKV.Key:
			it.pending = nil
			key := it.staged[0]
			it.staged = it.staged[1:]
			return KV{Key: key, Value: it.tx.writes[key]}, true, nil

		default:
			it.pending = nil
			if _, deleted := it.tx.deletes[baseKV.Key]; deleted {
				continue
			}
			return baseKV, true, nil
		}
	}
}

func (it *overlayIterator) peekBase() (KV, bool, error) {
	if it.pending != nil {
		return *it.pending, true, nil
	}
	if it.exhausted {
		return KV{}, false, nil
	}
	kv, ok, err := it.base.Next()
	if err != nil {
		return KV{}, false, err
	}
	if !ok {
		it.exhausted = true
		return KV{}, false, nil
	}
	it.pending = &kv
	return kv, true, nil
}

func (it *overlayIterator) Close() error {
	return it.base.Close()
}
