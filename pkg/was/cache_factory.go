package was

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/webscan-io/was/v2/internal/constants"
)

// CacheType selects the cache backend.
type CacheType string

const (
	// CacheTypeMemory stores entries in process memory.
	CacheTypeMemory CacheType = "memory"

	// CacheTypeNATS stores entries in a NATS JetStream key-value bucket,
	// shared across processes.
	CacheTypeNATS CacheType = "nats"

	// CacheTypeNone disables caching. Every read misses.
	CacheTypeNone CacheType = "none"
)

// Static errors for err113 compliance.
var (
	ErrNATSConfigRequired    = errors.New("NATS configuration required for NATS cache")
	ErrUnsupportedCacheType  = errors.New("unsupported cache type")
	ErrCacheDisabled         = errors.New("cache disabled")
	ErrKeyNotFoundInAnyCache = errors.New("key not found in any cache")
	ErrBadCleanupInterval    = errors.New("invalid cleanup interval")
)

// CacheConfig configures a cache backend.
type CacheConfig struct {
	// Type is the cache backend type
	Type CacheType

	// Memory configures the in-memory backend. For the NATS type a non-nil
	// Memory additionally puts a local tier in front of the bucket, so
	// repeated reads in one process skip the NATS round trip.
	Memory *MemoryCacheConfig

	// NATS KV cache configuration
	NATS *NATSKVConfig

	// Common options applied to any backend. If nil, DefaultCacheOptions() is used.
	Options *CacheOptions
}

// MemoryCacheConfig configures memory cache.
type MemoryCacheConfig struct {
	// MaxSize is the maximum number of items in the cache
	MaxSize int

	// CleanupInterval is how often expired entries are swept out, as a
	// duration string like "1m". Empty disables the sweeper; expired
	// entries are then dropped lazily on access.
	CleanupInterval string
}

// DefaultCacheConfig returns default cache configuration.
func DefaultCacheConfig() *CacheConfig {
	return &CacheConfig{
		Type: CacheTypeMemory,
		Memory: &MemoryCacheConfig{
			MaxSize:         constants.DefaultCacheSize,
			CleanupInterval: "1m",
		},
		Options: DefaultCacheOptions(),
	}
}

// NewCacheFromConfig creates a cache backend from configuration. A nil config
// gets the defaults.
func NewCacheFromConfig(config *CacheConfig) (Cache, error) {
	if config == nil {
		config = DefaultCacheConfig()
	}

	switch config.Type {
	case CacheTypeMemory:
		return NewMemoryCacheFromConfig(config.Memory)

	case CacheTypeNATS:
		if config.NATS == nil {
			return nil, ErrNATSConfigRequired
		}

		kv, err := NewNATSKVCache(config.NATS)
		if err != nil {
			return nil, err
		}

		if config.Memory == nil {
			return kv, nil
		}

		front, err := NewMemoryCacheFromConfig(config.Memory)
		if err != nil {
			_ = kv.Close()

			return nil, err
		}

		return NewCacheChain(front, kv), nil

	case CacheTypeNone:
		return NewNoOpCache(), nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCacheType, config.Type)
	}
}

// NewMemoryCacheFromConfig creates a memory cache from configuration and
// starts its expiry sweeper when an interval is set.
func NewMemoryCacheFromConfig(config *MemoryCacheConfig) (Cache, error) {
	if config == nil {
		config = &MemoryCacheConfig{
			MaxSize:         constants.DefaultCacheSize,
			CleanupInterval: "1m",
		}
	}

	cache := NewMemoryCache(config.MaxSize)

	if config.CleanupInterval != "" {
		interval, err := time.ParseDuration(config.CleanupInterval)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrBadCleanupInterval, config.CleanupInterval)
		}

		cache.startSweeper(interval)
	}

	return cache, nil
}

// NoOpCache is the backend behind CacheTypeNone. Reads miss, writes vanish.
type NoOpCache struct{}

// NewNoOpCache creates a new no-op cache.
func NewNoOpCache() *NoOpCache {
	return &NoOpCache{}
}

// Get always misses.
func (c *NoOpCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	return nil, ErrCacheDisabled
}

// Set discards the entry.
func (c *NoOpCache) Set(ctx context.Context, key string, entry *CacheEntry) error {
	return nil
}

// Delete does nothing.
func (c *NoOpCache) Delete(ctx context.Context, key string) error {
	return nil
}

// Clear does nothing.
func (c *NoOpCache) Clear(ctx context.Context) error {
	return nil
}

// Has always returns false.
func (c *NoOpCache) Has(ctx context.Context, key string) bool {
	return false
}

// Keys always returns an empty list.
func (c *NoOpCache) Keys(ctx context.Context) ([]string, error) {
	return nil, nil
}

// CacheChain layers cache tiers, nearest first. Reads stop at the first tier
// that has the key and the hit is copied into the tiers in front of it;
// writes go to every tier.
type CacheChain struct {
	tiers []Cache
}

// NewCacheChain creates a chain over the given tiers, nearest first.
func NewCacheChain(tiers ...Cache) *CacheChain {
	return &CacheChain{
		tiers: tiers,
	}
}

// Get retrieves an entry from the nearest tier holding it, promoting the hit
// forward so the next read stops earlier.
func (c *CacheChain) Get(ctx context.Context, key string) (*CacheEntry, error) {
	for i, tier := range c.tiers {
		entry, err := tier.Get(ctx, key)
		if err != nil {
			continue
		}

		for _, nearer := range c.tiers[:i] {
			_ = nearer.Set(ctx, key, entry)
		}

		return entry, nil
	}

	return nil, ErrKeyNotFoundInAnyCache
}

// fanOut applies op to every tier and returns the last error.
func (c *CacheChain) fanOut(op func(Cache) error) error {
	var lastErr error

	for _, tier := range c.tiers {
		if err := op(tier); err != nil {
			lastErr = err
		}
	}

	return lastErr
}

// Set stores the entry in every tier.
func (c *CacheChain) Set(ctx context.Context, key string, entry *CacheEntry) error {
	return c.fanOut(func(tier Cache) error {
		return tier.Set(ctx, key, entry)
	})
}

// Delete removes the entry from every tier.
func (c *CacheChain) Delete(ctx context.Context, key string) error {
	return c.fanOut(func(tier Cache) error {
		return tier.Delete(ctx, key)
	})
}

// Clear empties every tier.
func (c *CacheChain) Clear(ctx context.Context) error {
	return c.fanOut(func(tier Cache) error {
		return tier.Clear(ctx)
	})
}

// Has reports whether any tier holds a live entry for the key.
func (c *CacheChain) Has(ctx context.Context, key string) bool {
	for _, tier := range c.tiers {
		if tier.Has(ctx, key) {
			return true
		}
	}

	return false
}

// Keys lists the union of keys across all tiers.
func (c *CacheChain) Keys(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})

	var keys []string

	for _, tier := range c.tiers {
		tierKeys, err := tier.Keys(ctx)
		if err != nil {
			continue
		}

		for _, key := range tierKeys {
			if _, ok := seen[key]; ok {
				continue
			}

			seen[key] = struct{}{}

			keys = append(keys, key)
		}
	}

	return keys, nil
}

// Close releases every tier that holds resources, so closing the chain stops
// memory sweepers and drops NATS connections alike.
func (c *CacheChain) Close() error {
	return c.fanOut(func(tier Cache) error {
		if closer, ok := tier.(io.Closer); ok {
			return closer.Close()
		}

		return nil
	})
}

// CacheBuilder assembles a CacheConfig fluently and builds the backend.
type CacheBuilder struct {
	config *CacheConfig
}

// NewCacheBuilder starts a builder for a memory cache with default options.
func NewCacheBuilder() *CacheBuilder {
	return &CacheBuilder{
		config: &CacheConfig{
			Type:    CacheTypeMemory,
			Options: DefaultCacheOptions(),
		},
	}
}

// WithType sets the cache type.
func (b *CacheBuilder) WithType(cacheType CacheType) *CacheBuilder {
	b.config.Type = cacheType

	return b
}

// WithMemoryConfig sets memory cache configuration.
func (b *CacheBuilder) WithMemoryConfig(maxSize int, cleanupInterval string) *CacheBuilder {
	b.config.Memory = &MemoryCacheConfig{
		MaxSize:         maxSize,
		CleanupInterval: cleanupInterval,
	}

	return b
}

// WithNATSConfig sets NATS cache configuration.
func (b *CacheBuilder) WithNATSConfig(config *NATSKVConfig) *CacheBuilder {
	b.config.NATS = config

	return b
}

// WithOptions sets cache options.
func (b *CacheBuilder) WithOptions(options *CacheOptions) *CacheBuilder {
	b.config.Options = options

	return b
}

// Build creates the cache from the configuration.
func (b *CacheBuilder) Build() (Cache, error) {
	return NewCacheFromConfig(b.config)
}
