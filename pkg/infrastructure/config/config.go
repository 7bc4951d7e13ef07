package config

import (
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

// Config is read from the environment with the "storefront" prefix, e.g.
// STOREFRONT_SUPER_ADMIN_ID.
type Config struct {
	ServeRESTAddress string `envconfig:"serve_rest_address" default:":8080"`

	// CatalogDriver picks the catalog store backend: "json" or "mysql".
	CatalogDriver string `envconfig:"catalog_driver" default:"json"`
	CatalogPath   string `envconfig:"catalog_path" default:"catalog.json"`
	DatabaseDSN   string `envconfig:"database_dsn"`

	SuperAdminID string `envconfig:"super_admin_id" required:"true"`

	// OutboundURL is the chat transport bridge that delivers messages.
	OutboundURL string `envconfig:"outbound_url" default:"http://localhost:8081"`
}

func Parse(prefix string) (*Config, error) {
	c := new(Config)
	if err := envconfig.Process(prefix, c); err != nil {
		return nil, errors.Wrap(err, "parse environment config")
	}
	return c, nil
}
