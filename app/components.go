package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/gaborage/tenantguard/config"
	"github.com/gaborage/tenantguard/database"
	"github.com/gaborage/tenantguard/database/oracle"
	"github.com/gaborage/tenantguard/database/postgresql"
	"github.com/gaborage/tenantguard/executor"
	"github.com/gaborage/tenantguard/logger"
	"github.com/gaborage/tenantguard/multitenant"
)

func newTenantFilter(cfg *config.TenancyConfig, log logger.Logger) *database.TenantFilter {
	return database.NewTenantFilter(
		database.WithTenantColumn(cfg.Column),
		database.WithSentinel(cfg.Sentinel),
		database.WithIgnoreRules(database.NewIgnoreRules(cfg.Ignore.Tables, cfg.Ignore.Prefixes)),
		database.WithFilterLogger(log),
	)
}

// vendorOf returns the SQL dialect of the configured database, PostgreSQL when none is.
func vendorOf(cfg *config.DatabaseConfig) string {
	if cfg.Type == config.Oracle {
		return database.Oracle
	}
	return database.PostgreSQL
}

func newDirectory(cfg *config.DirectoryConfig, provider multitenant.Directory) *multitenant.CachedDirectory {
	return multitenant.NewCachedDirectory(provider,
		multitenant.WithTTL(cfg.TTL),
		multitenant.WithMaxSize(cfg.MaxSize),
		multitenant.WithStaleGracePeriod(cfg.StaleGrace),
	)
}

func newResolver(cfg *config.HeaderConfig, dir multitenant.Directory) *multitenant.HeaderResolver {
	return &multitenant.HeaderResolver{
		TenantHeader: cfg.Tenant,
		UserHeader:   cfg.User,
		Directory:    dir,
	}
}

// poolOptions sizes the worker pool. With session mirroring, every worker pins its own
// connection and mirrors the identity it runs under into that session.
func poolOptions(cfg *config.Config, db *sql.DB) []executor.Option {
	opts := []executor.Option{
		executor.WithName(cfg.App.Name),
		executor.WithWorkers(cfg.Executor.Workers),
		executor.WithQueueSize(cfg.Executor.Queue),
		executor.WithRejectWhenFull(cfg.Executor.RejectWhenFull),
	}
	if db != nil && cfg.Database.Session.Mirror {
		settings := database.SessionSettingsWithPrefix(cfg.Database.Session.Prefix)
		opts = append(opts, executor.WithCarrierFactory(database.SessionCarrierFactory(db, settings)))
	}
	return opts
}

// connectDatabase returns nil without error when no database is configured.
func connectDatabase(ctx context.Context, cfg *config.Config, log logger.Logger, connect DatabaseConnector) (*sql.DB, error) {
	dbCfg, err := cfg.DatabaseSettings()
	if config.IsNotConfigured(err) {
		log.Debug().Msg("No database configured, tenant directory and session mirroring disabled")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if connect == nil {
		switch dbCfg.Type {
		case config.PostgreSQL:
			connect = postgresql.Open
		case config.Oracle:
			connect = oracle.Open
		default:
			return nil, fmt.Errorf("no built-in connector for database type %q", dbCfg.Type)
		}
	}
	return connect(ctx, dbCfg, log)
}
