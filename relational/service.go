package relational

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/goliatone/go-servicelayer/service"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

// Supported values for Config.Driver.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Config describes the default database connection.
type Config struct {
	Driver       string `yaml:"driver" envconfig:"DRIVER"`
	DSN          string `yaml:"dsn" envconfig:"DSN"`
	MaxOpenConns int    `yaml:"max_open_conns" envconfig:"MAX_OPEN_CONNS"`
}

// NewService binds a Base service for *M to accessor with relational error
// translation.
func NewService[M any](accessor service.Accessor[int64, *M], opts ...service.Option[int64, *M]) *service.Base[int64, *M] {
	opts = append([]service.Option[int64, *M]{service.WithTranslator[int64, *M](Translate)}, opts...)
	return service.NewBase[int64, *M](accessor, opts...)
}

// Open connects to the database described by cfg and wraps it with the
// matching bun dialect. The connection is verified with a ping.
func Open(ctx context.Context, cfg Config) (*bun.DB, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("relational: empty DSN")
	}

	var db *bun.DB
	switch cfg.Driver {
	case DriverSQLite, "sqlite":
		sqldb, err := sql.Open(DriverSQLite, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("relational: open sqlite: %w", err)
		}
		db = bun.NewDB(sqldb, sqlitedialect.New())
	case DriverPostgres:
		sqldb, err := sql.Open(DriverPostgres, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("relational: open postgres: %w", err)
		}
		db = bun.NewDB(sqldb, pgdialect.New())
	default:
		return nil, fmt.Errorf("relational: unsupported driver %q", cfg.Driver)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("relational: ping %s: %w", cfg.Driver, err)
	}
	return db, nil
}
