// Package cache keeps generated datasets in Redis so restarts and replicas
// skip regeneration.
package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/pavemap/backend/internal/domain"
	"github.com/pavemap/backend/internal/metrics"
)

const keyPrefix = "pavemap:dataset:"

// OpenRedis opens a client for addr. An empty addr disables the cache.
func OpenRedis(addr, pass string, db int) *redis.Client {
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db})
}

// RedisCache implements domain.DatasetCache
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisCache creates a cache. A nil client makes every call a miss.
func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

// Get returns the cached dataset for a year
func (c *RedisCache) Get(ctx context.Context, year int) (domain.YearDataset, bool, error) {
	if c.rdb == nil {
		return domain.YearDataset{}, false, nil
	}
	raw, err := c.rdb.Get(ctx, key(year)).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.CacheMissesTotal.Inc()
		return domain.YearDataset{}, false, nil
	}
	if err != nil {
		return domain.YearDataset{}, false, fmt.Errorf("cache: failed to get dataset %d: %w", year, err)
	}

	ds, err := Decode(raw)
	if err != nil {
		return domain.YearDataset{}, false, err
	}
	metrics.CacheHitsTotal.Inc()
	return ds, true, nil
}

// Set stores a dataset
func (c *RedisCache) Set(ctx context.Context, ds domain.YearDataset) error {
	if c.rdb == nil {
		return nil
	}
	raw, err := Encode(ds)
	if err != nil {
		return err
	}
	if err := c.rdb.Set(ctx, key(ds.Year), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache: failed to set dataset %d: %w", ds.Year, err)
	}
	return nil
}

// Ping checks the connection
func (c *RedisCache) Ping(ctx context.Context) error {
	if c.rdb == nil {
		return nil
	}
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("cache: ping failed: %w", err)
	}
	return nil
}

// Close releases the client
func (c *RedisCache) Close() error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

// Encode serializes a dataset as MessagePack using its json field names
func Encode(ds domain.YearDataset) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(ds); err != nil {
		return nil, fmt.Errorf("cache: failed to encode dataset %d: %w", ds.Year, err)
	}
	return buf.Bytes(), nil
}

// Decode is the inverse of Encode
func Decode(raw []byte) (domain.YearDataset, error) {
	var ds domain.YearDataset
	dec := msgpack.NewDecoder(bytes.NewReader(raw))
	dec.SetCustomStructTag("json")
	if err := dec.Decode(&ds); err != nil {
		return ds, fmt.Errorf("cache: failed to decode dataset: %w", err)
	}
	return ds, nil
}

func key(year int) string {
	return keyPrefix + strconv.Itoa(year)
}
