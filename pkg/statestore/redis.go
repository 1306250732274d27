package statestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	redisclient "github.com/digitalcampus/ijazah-ledger/pkg/redis"
)

const redisScanPage = 256

// redisCommands is the slice of the redis client surface the backend uses,
// narrowed so tests can stand in for a live server.
type redisCommands interface {
	GetBytes(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	ZAddMember(ctx context.Context, key, member string) error
	ZRemMember(ctx context.Context, key, member string) error
	ZRangeByLex(ctx context.Context, key, min, max string, offset, count int64) ([]string, error)
	ApplyWorldStateBatch(ctx context.Context, deletes []string, puts []redisclient.BatchEntry) error
	WorldStateValueKey(key string) string
	WorldStateIndexKey() string
}

// Redis is a Backend keeping world state in Redis: values live under
// namespaced string keys and a score-zero sorted set indexes every key so
// range scans run as ZRANGEBYLEX.
type Redis struct {
	client redisCommands
}

// NewRedis returns a backend over the provided redis client.
func NewRedis(client *redisclient.Client) (*Redis, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client required")
	}
	return &Redis{client: client}, nil
}

// ApplyBatch applies the whole write-set in one MULTI/EXEC pipeline.
func (r *Redis) ApplyBatch(ctx context.Context, deletes []string, puts []KV) error {
	entries := make([]redisclient.BatchEntry, 0, len(puts))
	for _, kv := range puts {
		entries = append(entries, redisclient.BatchEntry{Key: kv.Key, Value: kv.Value})
	}
	if err := r.client.ApplyWorldStateBatch(ctx, deletes, entries); err != nil {
		return fmt.Errorf("world state batch: %w", err)
	}
	return nil
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := r.client.GetBytes(ctx, r.client.WorldStateValueKey(key))
	if errors.Is(err, redisclient.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("world state get: %w", err)
	}
	return value, true, nil
}

func (r *Redis) Put(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, r.client.WorldStateValueKey(key), value, 0); err != nil {
		return fmt.Errorf("world state put: %w", err)
	}
	if err := r.client.ZAddMember(ctx, r.client.WorldStateIndexKey(), key); err != nil {
		return fmt.Errorf("world state index put: %w", err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.client.ZRemMember(ctx, r.client.WorldStateIndexKey(), key); err != nil {
		return fmt.Errorf("world state index delete: %w", err)
	}
	if err := r.client.Del(ctx, r.client.WorldStateValueKey(key)); err != nil {
		return fmt.Errorf("world state delete: %w", err)
	}
	return nil
}

func (r *Redis) Range(ctx context.Context, start, end string) (Iterator, error) {
	min := "-"
	if start != "" {
		min = "[" + start
	}
	max := "+"
	if end != "" {
		max = "(" + end
	}
	return &redisIterator{
		ctx:     ctx,
		backend: r,
		min:     min,
		max:     max,
	}, nil
}

// redisIterator pages key names from the index and fetches each value
// lazily on Next.
type redisIterator struct {
	ctx     context.Context
	backend *Redis
	min     string
	max     string

	page      []string
	pos       int
	offset    int64
	exhausted bool
}

func (it *redisIterator) Next() (KV, bool, error) {
	for {
		if it.pos >= len(it.page) {
			if it.exhausted {
				return KV{}, false, nil
			}
			page, err := it.backend.client.ZRangeByLex(
				it.ctx,
				it.backend.client.WorldStateIndexKey(),
				it.min, it.max, it.offset, redisScanPage,
			)
			if err != nil {
				return KV{}, false, fmt.Errorf("world state range: %w", err)
			}
			if len(page) < redisScanPage {
				it.exhausted = true
			}
			if len(page) == 0 {
				return KV{}, false, nil
			}
			it.page = page
			it.pos = 0
			it.offset += int64(len(page))
		}

		key := it.page[it.pos]
		it.pos++
		value, found, err := it.backend.Get(it.ctx, key)
		if err != nil {
			return KV{}, false, err
		}
		if !found {
			// Index entry without a value; treat as absent.
			continue
		}
		return KV{Key: key, Value: value}, true, nil
	}
}

func (it *redisIterator) Close() error { return nil }
