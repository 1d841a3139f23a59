package di

import (
	"context"
	"errors"
	"fmt"
	"sync"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-servicelayer/cache"
	"github.com/goliatone/go-servicelayer/config"
	"github.com/goliatone/go-servicelayer/directory"
	"github.com/goliatone/go-servicelayer/relational"
	"github.com/goliatone/go-servicelayer/service"
	"github.com/goliatone/go-servicelayer/servicecache"
	"github.com/rs/zerolog"
	"github.com/uptrace/bun"
)

var (
	// ErrNoDatabase is returned when a relational service is requested but no
	// database is configured or injected.
	ErrNoDatabase = errors.New("di: no default database configured")
	// ErrNoDirectory is returned when a directory service is requested but no
	// directory is configured or injected.
	ErrNoDirectory = errors.New("di: no default directory configured")
)

// Option configures a Container.
type Option func(*Container)

// WithDB injects the default database. The container does not close it.
func WithDB(db *bun.DB) Option {
	return func(c *Container) {
		c.db = db
	}
}

// WithDirectoryConn injects the default directory connection. The container
// does not close it.
func WithDirectoryConn(conn directory.Conn) Option {
	return func(c *Container) {
		c.ldap = conn
	}
}

// WithLogger sets the logger handed to every service the container builds.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Container) {
		c.logger = logger
	}
}

// Container resolves the ambient default backends from configuration and
// builds services bound to them. Connections are opened on first use and
// shared; cache stores are created per service so no two services share an
// index.
type Container struct {
	config        config.Config
	keySerializer cache.KeySerializer
	logger        zerolog.Logger

	mu      sync.Mutex
	db      *bun.DB
	ldap    directory.Conn
	closers []func() error
}

// NewContainer validates cfg and creates a container. No connection is
// opened until a service needs it.
func NewContainer(cfg config.Config, opts ...Option) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Container{
		config:        cfg,
		keySerializer: cache.NewKeySerializer(cfg.Cache),
		logger:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NewContainerWithDefaults creates a container from config.DefaultConfig.
func NewContainerWithDefaults(opts ...Option) (*Container, error) {
	return NewContainer(config.DefaultConfig(), opts...)
}

// Config returns a copy of the configuration used by this container.
func (c *Container) Config() config.Config {
	return c.config
}

// KeySerializer returns the shared key serializer.
func (c *Container) KeySerializer() cache.KeySerializer {
	return c.keySerializer
}

// Logger returns the logger handed to services.
func (c *Container) Logger() zerolog.Logger {
	return c.logger
}

// NewCacheService returns a fresh store configured from the cache section.
func (c *Container) NewCacheService() (cache.CacheService, error) {
	return cache.NewCacheService(c.config.Cache)
}

// DB returns the default database, opening it on first use.
func (c *Container) DB(ctx context.Context) (*bun.DB, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db != nil {
		return c.db, nil
	}
	if c.config.Database.Driver == "" {
		return nil, ErrNoDatabase
	}

	db, err := relational.Open(ctx, c.config.Database)
	if err != nil {
		return nil, err
	}
	c.db = db
	c.closers = append(c.closers, db.Close)
	c.logger.Info().Str("driver", c.config.Database.Driver).Msg("database opened")
	return db, nil
}

// DirectoryConn returns the default directory connection, dialing it on
// first use.
func (c *Container) DirectoryConn(ctx context.Context) (directory.Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ldap != nil {
		return c.ldap, nil
	}
	if c.config.Directory.URL == "" {
		return nil, ErrNoDirectory
	}

	conn, err := directory.Dial(ctx, c.config.Directory)
	if err != nil {
		return nil, err
	}
	c.ldap = conn
	c.closers = append(c.closers, func() error {
		conn.Close()
		return nil
	})
	c.logger.Info().Str("url", c.config.Directory.URL).Msg("directory connected")
	return conn, nil
}

// Close releases the connections the container opened itself.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	c.db = nil
	c.ldap = nil
	return errors.Join(errs...)
}

// Since Go methods cannot have type parameters, the service factories below
// are package-level functions taking the container.

// RelationalService binds an uncached service for bun model M to the default
// database.
func RelationalService[M any](ctx context.Context, c *Container) (*service.Base[int64, *M], error) {
	db, err := c.DB(ctx)
	if err != nil {
		return nil, err
	}
	accessor := relational.NewBunAccessor[M](db, relational.WithLogger(c.logger))
	return relational.NewService[M](accessor, service.WithLogger[int64, *M](c.logger)), nil
}

// RepositoryService binds an uncached service to a go-repository-bun repository.
func RepositoryService[M any](c *Container, repo repository.Repository[*M]) *service.Base[int64, *M] {
	accessor := relational.NewRepositoryAccessor[M](repo, relational.WithLogger(c.logger))
	return relational.NewService[M](accessor, service.WithLogger[int64, *M](c.logger))
}

// DirectoryService binds an uncached service to the default directory. An
// empty schema BaseDN falls back to the configured one.
func DirectoryService(ctx context.Context, c *Container, schema directory.Schema) (*service.Base[string, *directory.Entry], error) {
	conn, err := c.DirectoryConn(ctx)
	if err != nil {
		return nil, err
	}
	if schema.BaseDN == "" {
		schema.BaseDN = c.config.Directory.BaseDN
	}
	if schema.BaseDN == "" {
		return nil, fmt.Errorf("di: directory schema has no base DN")
	}
	accessor := directory.NewAccessor(conn, schema, directory.WithLogger(c.logger))
	return directory.NewService(accessor, service.WithLogger[string, *directory.Entry](c.logger)), nil
}

// Cached wraps inner with a cache index backed by a new store from the
// container configuration.
func Cached[K comparable, T any](c *Container, inner service.Service[K, T]) (*servicecache.Cached[K, T], error) {
	store, err := c.NewCacheService()
	if err != nil {
		return nil, err
	}
	return servicecache.New(inner,
		servicecache.WithCacheService(store),
		servicecache.WithKeySerializer(c.keySerializer),
		servicecache.WithLogger(c.logger),
	)
}

// CachedRelationalService is RelationalService wrapped by Cached.
func CachedRelationalService[M any](ctx context.Context, c *Container) (*servicecache.Cached[int64, *M], error) {
	inner, err := RelationalService[M](ctx, c)
	if err != nil {
		return nil, err
	}
	return Cached[int64, *M](c, inner)
}

// CachedRepositoryService is RepositoryService wrapped by Cached.
func CachedRepositoryService[M any](c *Container, repo repository.Repository[*M]) (*servicecache.Cached[int64, *M], error) {
	return Cached[int64, *M](c, RepositoryService[M](c, repo))
}

// CachedDirectoryService is DirectoryService wrapped by Cached.
func CachedDirectoryService(ctx context.Context, c *Container, schema directory.Schema) (*servicecache.Cached[string, *directory.Entry], error) {
	inner, err := DirectoryService(ctx, c, schema)
	if err != nil {
		return nil, err
	}
	return Cached[string, *directory.Entry](c, inner)
}
