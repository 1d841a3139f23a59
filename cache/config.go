package cache

import (
	"fmt"
	"time"

	"github.com/goliatone/go-servicelayer/internal/cacheinfra"
)

// Backend names accepted in Config.Backend.
const (
	// BackendMemory keeps the index in a plain map owned by one service
	// instance. It never expires entries.
	BackendMemory = "memory"
	// BackendSturdyc keeps the index in a bounded sturdyc client with a TTL,
	// for service instances that outlive a single request.
	BackendSturdyc = "sturdyc"
)

// DefaultMaxKeyLength keeps keys within the limits of common cache backends.
const DefaultMaxKeyLength = 250

// Config exposes cache configuration options for consumers of the cache package.
type Config struct {
	Backend            string        `yaml:"backend" envconfig:"BACKEND"`
	Capacity           int           `yaml:"capacity" envconfig:"CAPACITY"`
	NumShards          int           `yaml:"num_shards" envconfig:"NUM_SHARDS"`
	TTL                time.Duration `yaml:"ttl" envconfig:"TTL"`
	EvictionPercentage int           `yaml:"eviction_percentage" envconfig:"EVICTION_PERCENTAGE"`
	EvictionInterval   time.Duration `yaml:"eviction_interval" envconfig:"EVICTION_INTERVAL"`
	MaxKeyLength       int           `yaml:"max_key_length" envconfig:"MAX_KEY_LENGTH"`
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() Config {
	cfg := convertFromInternal(cacheinfra.DefaultConfig())
	cfg.Backend = BackendMemory
	cfg.MaxKeyLength = DefaultMaxKeyLength
	return cfg
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	switch c.Backend {
	case "", BackendMemory:
		return nil
	case BackendSturdyc:
		return c.toInternal().Validate()
	default:
		return &cacheinfra.ConfigError{Field: "Backend", Message: fmt.Sprintf("unknown backend %q", c.Backend)}
	}
}

// NewCacheService constructs the cache service selected by cfg.Backend.
// Every call returns a fresh, unshared store.
func NewCacheService(cfg Config) (CacheService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Backend == BackendSturdyc {
		return cacheinfra.NewSturdycService(cfg.toInternal())
	}
	return cacheinfra.NewMemoryService(), nil
}

// NewKeySerializer returns the default serializer honoring cfg.MaxKeyLength.
func NewKeySerializer(cfg Config) KeySerializer {
	return NewDefaultKeySerializer(WithMaxKeyLength(cfg.MaxKeyLength))
}

func (c Config) toInternal() cacheinfra.Config {
	return cacheinfra.Config{
		Capacity:           c.Capacity,
		NumShards:          c.NumShards,
		TTL:                c.TTL,
		EvictionPercentage: c.EvictionPercentage,
		EvictionInterval:   c.EvictionInterval,
	}
}

func convertFromInternal(cfg cacheinfra.Config) Config {
	return Config{
		Capacity:           cfg.Capacity,
		NumShards:          cfg.NumShards,
		TTL:                cfg.TTL,
		EvictionPercentage: cfg.EvictionPercentage,
		EvictionInterval:   cfg.EvictionInterval,
	}
}
