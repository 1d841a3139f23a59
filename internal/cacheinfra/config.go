package cacheinfra

import (
	"time"

	"github.com/viccon/sturdyc"
)

// Config sizes the sturdyc store. Early refreshes are not supported: the
// backend is only reached from the caller's goroutine.
type Config struct {
	// Capacity is the maximum number of entries held. Must be > 0.
	Capacity int
	// NumShards splits the store to reduce lock contention. Must be > 0.
	NumShards int
	// TTL bounds how long an entry is served before the next read refetches
	// it. Must be > 0.
	TTL time.Duration
	// EvictionPercentage is the share of entries dropped when Capacity is
	// reached, in [1, 100].
	EvictionPercentage int
	// EvictionInterval is how often expired entries are swept. Zero keeps the
	// sturdyc default.
	EvictionInterval time.Duration
}

// DefaultConfig returns a Config sized for one service instance.
func DefaultConfig() Config {
	return Config{
		Capacity:           1000,
		NumShards:          16,
		TTL:                time.Minute,
		EvictionPercentage: 10,
	}
}

// ToSturdycOptions returns the optional sturdyc settings. The sizing fields
// are positional arguments of sturdyc.New and are not included.
func (c Config) ToSturdycOptions() []sturdyc.Option {
	var opts []sturdyc.Option
	if c.EvictionInterval > 0 {
		opts = append(opts, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}
	return opts
}

// Validate reports the first invalid field as a *ConfigError.
func (c Config) Validate() error {
	rules := []struct {
		field   string
		invalid bool
		message string
	}{
		{"Capacity", c.Capacity <= 0, "must be greater than 0"},
		{"NumShards", c.NumShards <= 0, "must be greater than 0"},
		{"TTL", c.TTL <= 0, "must be greater than 0"},
		{"EvictionPercentage", c.EvictionPercentage < 1 || c.EvictionPercentage > 100, "must be between 1 and 100"},
		{"EvictionInterval", c.EvictionInterval < 0, "must be non-negative"},
	}
	for _, r := range rules {
		if r.invalid {
			return &ConfigError{Field: r.field, Message: r.message}
		}
	}
	return nil
}

// ConfigError names the field of an invalid configuration or call.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}

var errNilFetch = &ConfigError{Field: "fetchFn", Message: "cannot be nil"}
