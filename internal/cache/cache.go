// Package cache provides an expiring key-value cache for stream resolutions.
// Entries are immutable once written; expired entries are evicted lazily on
// read, never served past their expiry. The backing store and clock are both
// injectable so tests control time and persistence.
package cache

import (
	"encoding/json"
	"fmt"
	"time"

	"cinestream/internal/log"
)

// Clock abstracts time for expiry checks.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by the wall clock.
func SystemClock() Clock { return systemClock{} }

// Store is the string key-value persistence layer beneath the cache.
type Store interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
	Keys() ([]string, error)
	Close() error
}

// entry is the stored envelope: payload plus expiry in epoch milliseconds.
type entry struct {
	Data   json.RawMessage `json:"data"`
	Expiry int64           `json:"expiry"`
}

// Cache is an expiring KV cache over a Store.
type Cache struct {
	store Store
	clock Clock
	ttl   time.Duration
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock substitutes the clock used for expiry decisions.
func WithClock(clock Clock) Option {
	return func(c *Cache) { c.clock = clock }
}

// New creates a Cache writing entries with the given time-to-live.
func New(store Store, ttl time.Duration, opts ...Option) *Cache {
	c := &Cache{
		store: store,
		clock: systemClock{},
		ttl:   ttl,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get loads a non-expired entry into out. A corrupt or expired entry is
// deleted and treated as a miss.
func (c *Cache) Get(key string, out any) bool {
	raw, ok, err := c.store.Get(key)
	if err != nil || !ok {
		return false
	}

	var e entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		logger := log.WithComponent("cache")
		logger.Warn().Str("key", key).Err(err).Msg("discarding corrupt cache entry")
		_ = c.store.Delete(key)
		return false
	}

	if c.clock.Now().UnixMilli() >= e.Expiry {
		_ = c.store.Delete(key)
		return false
	}

	if err := json.Unmarshal(e.Data, out); err != nil {
		_ = c.store.Delete(key)
		return false
	}
	return true
}

// Set stores a value under key with the cache's TTL.
func (c *Cache) Set(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding cache value: %w", err)
	}

	e := entry{
		Data:   data,
		Expiry: c.clock.Now().Add(c.ttl).UnixMilli(),
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}

	return c.store.Set(key, string(raw))
}

// Evict removes an entry regardless of expiry.
func (c *Cache) Evict(key string) {
	_ = c.store.Delete(key)
}

// Keys lists all stored keys, expired or not.
func (c *Cache) Keys() ([]string, error) {
	return c.store.Keys()
}

// Clear removes every stored entry.
func (c *Cache) Clear() error {
	keys, err := c.store.Keys()
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := c.store.Delete(k); err != nil {
			return err
		}
	}
	return nil
}
