package directory

import (
	"context"
	"fmt"

	"github.com/go-ldap/ldap/v3"
	"github.com/goliatone/go-servicelayer/service"
)

// Config describes the default directory connection.
type Config struct {
	URL          string `yaml:"url" envconfig:"URL"`
	BindDN       string `yaml:"bind_dn" envconfig:"BIND_DN"`
	BindPassword string `yaml:"bind_password" envconfig:"BIND_PASSWORD"`
	BaseDN       string `yaml:"base_dn" envconfig:"BASE_DN"`
}

// NewService binds a Base service for entries to accessor with directory
// error translation.
func NewService(accessor service.Accessor[string, *Entry], opts ...service.Option[string, *Entry]) *service.Base[string, *Entry] {
	opts = append([]service.Option[string, *Entry]{service.WithTranslator[string, *Entry](Translate)}, opts...)
	return service.NewBase[string, *Entry](accessor, opts...)
}

// Dial connects to cfg.URL and binds with the configured credentials. An
// empty BindDN leaves the connection anonymous.
func Dial(ctx context.Context, cfg Config) (*ldap.Conn, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("directory: empty URL")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	conn, err := ldap.DialURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("directory: dial %s: %w", cfg.URL, err)
	}
	if cfg.BindDN != "" {
		if err := conn.Bind(cfg.BindDN, cfg.BindPassword); err != nil {
			conn.Close()
			return nil, fmt.Errorf("directory: bind %s: %w", cfg.BindDN, err)
		}
	}
	return conn, nil
}
