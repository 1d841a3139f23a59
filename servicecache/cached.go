package servicecache

import (
	"context"
	"fmt"

	"github.com/goliatone/go-servicelayer/cache"
	"github.com/goliatone/go-servicelayer/service"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Interface assertion to ensure Cached implements Service
var _ service.Service[string, any] = (*Cached[string, any])(nil)

const (
	methodAll  = "all"
	methodGet  = "get"
	methodFind = "find"
)

// lookup wraps a Get result so absence can be cached next to hits.
type lookup[T any] struct {
	Value T
	Found bool
}

// Option configures a Cached service.
type Option func(*options)

type options struct {
	store      cache.CacheService
	serializer cache.KeySerializer
	namespace  string
	logger     zerolog.Logger
}

// WithCacheService sets the store backing the index. The store must not be
// shared with another Cached instance.
func WithCacheService(store cache.CacheService) Option {
	return func(o *options) {
		if store != nil {
			o.store = store
		}
	}
}

// WithKeySerializer sets the serializer used to build index keys.
func WithKeySerializer(serializer cache.KeySerializer) Option {
	return func(o *options) {
		if serializer != nil {
			o.serializer = serializer
		}
	}
}

// WithNamespace overrides the key namespace derived from the entity type.
func WithNamespace(namespace string) Option {
	return func(o *options) {
		if namespace != "" {
			o.namespace = namespace
		}
	}
}

// WithLogger sets the logger used for hit, miss and invalidation events.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Cached decorates a Service with a per-instance cache index.
type Cached[K comparable, T any] struct {
	inner      service.Service[K, T]
	store      cache.CacheService
	serializer cache.KeySerializer
	namespace  string
	logger     zerolog.Logger
}

// New wraps inner. Without WithCacheService the index lives in a fresh
// unbounded in-memory store.
func New[K comparable, T any](inner service.Service[K, T], opts ...Option) (*Cached[K, T], error) {
	o := options{
		serializer: cache.NewKeySerializer(cache.DefaultConfig()),
		namespace:  namespaceFor[T](),
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.store == nil {
		store, err := cache.NewCacheService(cache.DefaultConfig())
		if err != nil {
			return nil, err
		}
		o.store = store
	}

	return &Cached[K, T]{
		inner:      inner,
		store:      o.store,
		serializer: o.serializer,
		namespace:  o.namespace,
		logger: o.logger.With().
			Str("cache_namespace", o.namespace).
			Str("cache_instance", uuid.NewString()).
			Logger(),
	}, nil
}

// NewFromConfig wraps inner with a store and serializer built from cfg.
func NewFromConfig[K comparable, T any](inner service.Service[K, T], cfg cache.Config, opts ...Option) (*Cached[K, T], error) {
	store, err := cache.NewCacheService(cfg)
	if err != nil {
		return nil, fmt.Errorf("servicecache: %w", err)
	}
	base := []Option{WithCacheService(store), WithKeySerializer(cache.NewKeySerializer(cfg))}
	return New(inner, append(base, opts...)...)
}

// Inner returns the decorated service.
func (c *Cached[K, T]) Inner() service.Service[K, T] {
	return c.inner
}

// All returns the full collection, reading the backend only on a miss. A
// miss also seeds the by-identifier entries of every returned entity.
func (c *Cached[K, T]) All(ctx context.Context) ([]T, error) {
	key := c.key(methodAll)
	fetched := false
	records, err := cache.GetOrFetch(ctx, c.store, key, func(ctx context.Context) ([]T, error) {
		fetched = true
		return c.inner.All(ctx)
	})
	if err != nil {
		return nil, err
	}
	c.trace(key, fetched)

	if fetched {
		for _, record := range records {
			record := record
			getKey := c.key(methodGet, c.identify(record))
			if _, err := c.store.GetOrFetch(ctx, getKey, func(context.Context) (any, error) {
				return lookup[T]{Value: record, Found: true}, nil
			}); err != nil {
				c.logger.Warn().Err(err).Str("key", getKey).Msg("seed failed")
			}
		}
	}
	return records, nil
}

// Get resolves id through the index. Absence is cached like a hit.
func (c *Cached[K, T]) Get(ctx context.Context, id K) (T, bool, error) {
	id = c.inner.NormalizeID(id)
	key := c.key(methodGet, id)
	fetched := false
	res, err := cache.GetOrFetch(ctx, c.store, key, func(ctx context.Context) (lookup[T], error) {
		fetched = true
		value, found, err := c.inner.Get(ctx, id)
		return lookup[T]{Value: value, Found: found}, err
	})
	if err != nil {
		var zero T
		return zero, false, err
	}
	c.trace(key, fetched)
	return res.Value, res.Found, nil
}

func (c *Cached[K, T]) GetOrFail(ctx context.Context, id K) (T, error) {
	record, found, err := c.Get(ctx, id)
	if err != nil {
		return record, err
	}
	if !found {
		return record, service.NewNotFoundError(id, nil)
	}
	return record, nil
}

// Find returns the entities matching criteria. Criteria built in any key
// order share one index entry.
func (c *Cached[K, T]) Find(ctx context.Context, criteria service.Criteria) ([]T, error) {
	if criteria == nil {
		criteria = service.Criteria{}
	}
	key := c.key(methodFind, map[string]any(criteria))
	fetched := false
	records, err := cache.GetOrFetch(ctx, c.store, key, func(ctx context.Context) ([]T, error) {
		fetched = true
		return c.inner.Find(ctx, criteria)
	})
	if err != nil {
		return nil, err
	}
	c.trace(key, fetched)
	return records, nil
}

func (c *Cached[K, T]) Create(ctx context.Context, fields service.Fields) (T, error) {
	record, err := c.inner.Create(ctx, fields)
	if err != nil {
		return record, err
	}
	c.invalidate(ctx, c.identify(record))
	return record, nil
}

func (c *Cached[K, T]) Update(ctx context.Context, entity T, fields service.Fields) (T, error) {
	id := c.identify(entity)
	record, err := c.inner.Update(ctx, entity, fields)
	if err != nil {
		return record, err
	}
	c.invalidate(ctx, id)
	if updated := c.identify(record); updated != id {
		c.invalidate(ctx, updated)
	}
	return record, nil
}

func (c *Cached[K, T]) Delete(ctx context.Context, entity T) error {
	id := c.identify(entity)
	if err := c.inner.Delete(ctx, entity); err != nil {
		return err
	}
	c.invalidate(ctx, id)
	return nil
}

func (c *Cached[K, T]) IdentifierOf(entity T) K {
	return c.inner.IdentifierOf(entity)
}

func (c *Cached[K, T]) NormalizeID(id K) K {
	return c.inner.NormalizeID(id)
}

// Invalidate drops every entry of the index. Use it after writing to the
// backend through something other than this instance.
func (c *Cached[K, T]) Invalidate(ctx context.Context) error {
	if err := c.store.DeleteByPrefix(ctx, c.namespace+cache.KeySeparator); err != nil {
		return fmt.Errorf("servicecache: invalidate %s: %w", c.namespace, err)
	}
	c.logger.Debug().Msg("index dropped")
	return nil
}

// identify returns the identifier of entity in the form Get keys use.
func (c *Cached[K, T]) identify(entity T) K {
	return c.inner.NormalizeID(c.inner.IdentifierOf(entity))
}

func (c *Cached[K, T]) key(method string, args ...any) string {
	return c.namespace + cache.KeySeparator + c.serializer.SerializeKey(method, args...)
}

// invalidate removes the collection entry, every predicate entry and the
// entry of id. The write already happened, so store failures are logged
// and the whole index is dropped instead.
func (c *Cached[K, T]) invalidate(ctx context.Context, id K) {
	errs := []error{
		c.store.Delete(ctx, c.key(methodAll)),
		c.store.DeleteByPrefix(ctx, c.key(methodFind)+cache.KeySeparator),
		c.store.Delete(ctx, c.key(methodGet, id)),
	}
	for _, err := range errs {
		if err == nil {
			continue
		}
		c.logger.Error().Err(err).Interface("id", id).Msg("invalidation failed")
		if err := c.Invalidate(ctx); err != nil {
			c.logger.Error().Err(err).Msg("index drop failed")
		}
		return
	}
	c.logger.Debug().Interface("id", id).Msg("index invalidated")
}

func (c *Cached[K, T]) trace(key string, fetched bool) {
	if fetched {
		c.logger.Debug().Str("key", key).Msg("cache miss")
		return
	}
	c.logger.Debug().Str("key", key).Msg("cache hit")
}
