package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/digitalcampus/ijazah-ledger/pkg/config"
	"github.com/digitalcampus/ijazah-ledger/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const keyNamespace = "ijazah"

// Nil is returned by Get when a key is absent.
var Nil = redis.Nil

// Client wraps the redis connection helpers needed by the platform.
type Client struct {
	raw *redis.Client
}

// Pinger exposes the health-check surface.
type Pinger interface {
	Ping(context.Context) error
}

// New bootstraps a Redis client with pooling/timeouts and verifies connectivity.
func New(ctx context.Context, cfg config.RedisConfig, logg *logger.Logger) (*Client, error) {
	opts, err := optionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	raw := redis.NewClient(opts)
	if err := raw.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	if logg != nil {
		logg.Info(ctx, "redis connection established")
	}
	return &Client{raw: raw}, nil
}

func optionsFromConfig(cfg config.RedisConfig) (*redis.Options, error) {
	if cfg.URL == "" && cfg.Address == "" {
		return nil, errors.New("redis url or address is required")
	}
	var opts *redis.Options
	if cfg.URL != "" {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{
			Addr:     cfg.Address,
			Password: cfg.Password,
			DB:       cfg.DB,
		}
	}
	if opts.DB == 0 {
		opts.DB = cfg.DB
	}
	if opts.PoolSize == 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if opts.MinIdleConns == 0 {
		opts.MinIdleConns = cfg.MinIdleConns
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}
	return opts, nil
}

// GetBytes returns the raw value stored at key, or redis.Nil when absent.
func (c *Client) GetBytes(ctx context.Context, key string) ([]byte, error) {
	if c.raw == nil {
		return nil, errors.New("redis client not initialized")
	}
	return c.raw.Get(ctx, key).Bytes()
}

// Set stores a value with an optional TTL.
func (c *Client) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if c.raw == nil {
		return errors.New("redis client not initialized")
	}
	return c.raw.Set(ctx, key, value, ttl).Err()
}

// Del removes the provided keys.
func (c *Client) Del(ctx context.Context, keys ...string) error {
	if c.raw == nil {
		return errors.New("redis client not initialized")
	}
	return c.raw.Del(ctx, keys...).Err()
}

// ZAddMember inserts member with score zero into the sorted set at key, so
// set order is purely lexicographic.
func (c *Client) ZAddMember(ctx context.Context, key, member string) error {
	if c.raw == nil {
		return errors.New("redis client not initialized")
	}
	return c.raw.ZAdd(ctx, key, redis.Z{Score: 0, Member: member}).Err()
}

// ZRemMember removes member from the sorted set at key.
func (c *Client) ZRemMember(ctx context.Context, key, member string) error {
	if c.raw == nil {
		return errors.New("redis client not initialized")
	}
	return c.raw.ZRem(ctx, key, member).Err()
}

// ZRangeByLex pages through the sorted set at key using the given ZRANGEBYLEX
// min/max bounds.
func (c *Client) ZRangeByLex(ctx context.Context, key, min, max string, offset, count int64) ([]string, error) {
	if c.raw == nil {
		return nil, errors.New("redis client not initialized")
	}
	return c.raw.ZRangeByLex(ctx, key, &redis.ZRangeBy{
		Min:    min,
		Max:    max,
		Offset: offset,
		Count:  count,
	}).Result()
}

// BatchEntry is one write in a world state batch.
type BatchEntry struct {
	Key   string
	Value []byte
}

// ApplyWorldStateBatch applies deletes then puts to the world state keyspace
// and its index inside one MULTI/EXEC pipeline, so the server applies the
// whole batch or none of it.
func (c *Client) ApplyWorldStateBatch(ctx context.Context, deletes []string, puts []BatchEntry) error {
	if c.raw == nil {
		return errors.New("redis client not initialized")
	}
	_, err := c.raw.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, key := range deletes {
			pipe.ZRem(ctx, c.WorldStateIndexKey(), key)
			pipe.Del(ctx, c.WorldStateValueKey(key))
		}
		for _, entry := range puts {
			pipe.Set(ctx, c.WorldStateValueKey(entry.Key), entry.Value, 0)
			pipe.ZAdd(ctx, c.WorldStateIndexKey(), redis.Z{Score: 0, Member: entry.Key})
		}
		return nil
	})
	return err
}

// WorldStateValueKey returns the namespaced key holding a world state value.
func (c *Client) WorldStateValueKey(key string) string {
	return buildKey("ws", "val", key)
}

// WorldStateIndexKey returns the namespaced sorted set indexing world state keys.
func (c *Client) WorldStateIndexKey() string {
	return buildKey("ws", "index")
}

// Ping verifies the connection.
func (c *Client) Ping(ctx context.Context) error {
	if c.raw == nil {
		return errors.New("redis client not initialized")
	}
	return c.raw.Ping(ctx).Err()
}

// Close shuts down the underlying client if available.
func (c *Client) Close() error {
	if c.raw == nil {
		return nil
	}
	return c.raw.Close()
}

func buildKey(parts ...string) string {
	if len(parts) == 0 {
		return keyNamespace
	}
	clean := []string{keyNamespace}
	for _, part := range parts {
		if part == "" {
			continue
		}
		clean = append(clean, strings.TrimSpace(part))
	}
	return strings.Join(clean, ":")
}
