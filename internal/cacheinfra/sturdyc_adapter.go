package cacheinfra

import (
	"time"

	"github.com/viccon/sturdyc"
)

// Config holds the configuration for the sturdyc-backed stores.
type Config struct {
	// Capacity defines the maximum number of entries that the store can hold.
	// Must be greater than 0.
	Capacity int

	// NumShards determines the number of shards for concurrent access.
	// Must be greater than 0 and not larger than Capacity.
	NumShards int

	// TTL is the time-to-live for stored entries.
	// Must be greater than 0.
	TTL time.Duration

	// EvictionPercentage specifies what percentage of entries to evict
	// when a shard reaches its capacity. Must be between 1-100.
	EvictionPercentage int

	// EvictionInterval sets how often expired entries are swept.
	// Zero value uses the sturdyc default.
	EvictionInterval time.Duration

	// Clock overrides the wall clock. Tests pass a sturdyc.TestClock.
	Clock sturdyc.Clock
}

// DefaultConfig returns a Config sized for a handful of hot keys with a 60 second TTL.
func DefaultConfig() Config {
	return Config{
		Capacity:           16,
		NumShards:          1,
		TTL:                60 * time.Second,
		EvictionPercentage: 10,
	}
}

// ToSturdycOptions converts the optional Config fields to sturdyc options.
// Capacity, NumShards, TTL, and EvictionPercentage are passed directly
// to sturdyc.New() and are not included.
func (c Config) ToSturdycOptions() []sturdyc.Option {
	var options []sturdyc.Option

	if c.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}

	if c.Clock != nil {
		options = append(options, sturdyc.WithClock(c.Clock))
	}

	return options
}

// Now returns the configured clock's time, or the wall clock when none is set.
func (c Config) Now() time.Time {
	if c.Clock != nil {
		return c.Clock.Now()
	}
	return time.Now()
}

// Validate checks if the configuration values are valid.
func (c Config) Validate() error {
	if c.Capacity <= 0 {
		return &ConfigError{Field: "Capacity", Message: "must be greater than 0"}
	}

	if c.NumShards <= 0 {
		return &ConfigError{Field: "NumShards", Message: "must be greater than 0"}
	}

	if c.NumShards > c.Capacity {
		return &ConfigError{Field: "NumShards", Message: "must not exceed Capacity"}
	}

	if c.TTL <= 0 {
		return &ConfigError{Field: "TTL", Message: "must be greater than 0"}
	}

	if c.EvictionPercentage < 1 || c.EvictionPercentage > 100 {
		return &ConfigError{Field: "EvictionPercentage", Message: "must be between 1 and 100"}
	}

	if c.EvictionInterval < 0 {
		return &ConfigError{Field: "EvictionInterval", Message: "must be non-negative"}
	}

	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}

// Store is a typed key/value store over a sturdyc client. Entries older than the
// configured TTL are reported as missing.
type Store[T any] struct {
	client *sturdyc.Client[T]
	ttl    time.Duration
}

// NewStore validates cfg and creates a sturdyc-backed Store.
func NewStore[T any](cfg Config) (*Store[T], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := sturdyc.New[T](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
		cfg.ToSturdycOptions()...,
	)

	return &Store[T]{client: client, ttl: cfg.TTL}, nil
}

// TTL returns the configured time-to-live.
func (s *Store[T]) TTL() time.Duration {
	return s.ttl
}

// Get returns the value stored under key.
func (s *Store[T]) Get(key string) (T, bool) {
	return s.client.Get(key)
}

// Set stores value under key, replacing any previous value and restarting its TTL.
func (s *Store[T]) Set(key string, value T) {
	s.client.Set(key, value)
}

// Delete removes a single entry.
func (s *Store[T]) Delete(key string) {
	s.client.Delete(key)
}
