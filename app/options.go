package app

import (
	"context"
	"database/sql"

	"github.com/gaborage/tenantguard/config"
	"github.com/gaborage/tenantguard/logger"
	"github.com/gaborage/tenantguard/multitenant"
)

// DatabaseConnector opens the configured database.
type DatabaseConnector func(ctx context.Context, cfg *config.DatabaseConfig, log logger.Logger) (*sql.DB, error)

// Options contains optional dependencies for creating an App instance.
type Options struct {
	// DatabaseConnector replaces the built-in PostgreSQL connector.
	DatabaseConnector DatabaseConnector
	// Directory replaces the SQL tenant directory, e.g. with a multitenant.StaticDirectory.
	Directory multitenant.Directory
}
