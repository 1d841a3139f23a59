package config

import (
	"fmt"
	"os"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-servicelayer/cache"
	"github.com/goliatone/go-servicelayer/directory"
	"github.com/goliatone/go-servicelayer/relational"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. SERVICELAYER_DATABASE_DSN.
const EnvPrefix = "SERVICELAYER"

var ldapURL = regexp.MustCompile(`^ldaps?://`)

// Config is the process wide configuration: the ambient default backends,
// the cache index settings and logging.
type Config struct {
	Database  relational.Config `yaml:"database" envconfig:"DATABASE"`
	Directory directory.Config  `yaml:"directory" envconfig:"DIRECTORY"`
	Cache     cache.Config      `yaml:"cache" envconfig:"CACHE"`
	Log       LogConfig         `yaml:"log" envconfig:"LOG"`
}

// DefaultConfig returns a Config with no default backends, the in-memory
// cache store and info level JSON logs.
func DefaultConfig() Config {
	return Config{
		Cache: cache.DefaultConfig(),
		Log: LogConfig{
			Level:  "info",
			Format: FormatJSON,
		},
	}
}

// Load reads the YAML file at path, if path is not empty, on top of
// DefaultConfig, applies SERVICELAYER_* environment overrides and validates
// the result.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return cfg, fmt.Errorf("config: environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Validate checks every section and reports failures keyed by section.
func (c Config) Validate() error {
	db := c.Database
	dir := c.Directory
	return validation.Errors{
		"database": validation.ValidateStruct(&db,
			validation.Field(&db.Driver, validation.In(
				"", relational.DriverSQLite, "sqlite", relational.DriverPostgres,
			).Error("must be sqlite3 or postgres")),
			validation.Field(&db.DSN, validation.When(db.Driver != "", validation.Required)),
			validation.Field(&db.MaxOpenConns, validation.Min(0)),
		),
		"directory": validation.ValidateStruct(&dir,
			validation.Field(&dir.URL, validation.Match(ldapURL).Error("must start with ldap:// or ldaps://")),
			validation.Field(&dir.BaseDN, validation.When(dir.URL != "", validation.Required)),
			validation.Field(&dir.BindPassword, validation.When(dir.BindDN != "", validation.Required)),
		),
		"cache": c.Cache.Validate(),
		"log":   c.Log.Validate(),
	}.Filter()
}
