// Package app assembles the tenancy components from configuration and runs them behind
// the HTTP server.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gaborage/tenantguard/config"
	"github.com/gaborage/tenantguard/database"
	"github.com/gaborage/tenantguard/executor"
	"github.com/gaborage/tenantguard/logger"
	"github.com/gaborage/tenantguard/multitenant"
	"github.com/gaborage/tenantguard/server"
)

// App represents the main application instance.
type App struct {
	cfg      *config.Config
	logger   logger.Logger
	server   *server.Server
	db       *sql.DB
	pool     *executor.WorkerPool
	deps     *ModuleDeps
	registry *ModuleRegistry
}

// New loads configuration from the environment and creates the application.
func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)
	return NewWithConfig(context.Background(), cfg, log, nil)
}

// NewWithConfig creates the application from an already loaded configuration.
func NewWithConfig(ctx context.Context, cfg *config.Config, log logger.Logger, opts *Options) (*App, error) {
	if opts == nil {
		opts = &Options{}
	}

	log.Info().
		Str("app", cfg.App.Name).
		Str("env", cfg.App.Env).
		Str("version", cfg.App.Version).
		Msg("Starting application")

	db, err := connectDatabase(ctx, cfg, log, opts.DatabaseConnector)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	queries := database.NewQueryBuilder(vendorOf(&cfg.Database), newTenantFilter(&cfg.Tenancy, log))

	var dir multitenant.Directory
	switch {
	case opts.Directory != nil:
		dir = newDirectory(&cfg.Directory, opts.Directory)
	case db != nil:
		dir = newDirectory(&cfg.Directory, database.NewSQLDirectory(db, queries))
	}

	pool := executor.NewWorkerPool(log, poolOptions(cfg, db)...)
	srv := server.New(cfg, log, newResolver(&cfg.Tenancy.Header, dir))
	if db != nil {
		srv.SetReadyCheck(db.PingContext)
	}

	deps := &ModuleDeps{
		Logger:    log,
		Config:    cfg,
		DB:        db,
		Queries:   queries,
		Executor:  executor.Wrap(pool, multitenant.NewPropagator(log)),
		Directory: dir,
	}

	return &App{
		cfg:      cfg,
		logger:   log,
		server:   srv,
		db:       db,
		pool:     pool,
		deps:     deps,
		registry: NewModuleRegistry(deps),
	}, nil
}

// Deps returns the dependencies handed to modules.
func (a *App) Deps() *ModuleDeps {
	return a.deps
}

// Server returns the HTTP server.
func (a *App) Server() *server.Server {
	return a.server
}

// RegisterModule initializes a module and registers it with the application.
func (a *App) RegisterModule(module Module) error {
	return a.registry.Register(module)
}

// Run starts the application and blocks until a shutdown signal is received or the
// server fails.
func (a *App) Run() error {
	a.registry.RegisterRoutes(a.server.Echo())

	serverErr := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	var runErr error
	select {
	case <-quit:
		a.logger.Info().Msg("Shutting down application")
	case runErr = <-serverErr:
		a.logger.Error().Err(runErr).Msg("Failed to start server")
	}

	ctx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
	defer cancel()

	return errors.Join(runErr, a.Shutdown(ctx))
}

// Shutdown stops accepting requests, drains the worker pool and closes the database.
func (a *App) Shutdown(ctx context.Context) error {
	if err := a.registry.Shutdown(); err != nil {
		a.logger.Error().Err(err).Msg("Failed to shutdown modules")
	}

	if err := a.server.Shutdown(ctx); err != nil {
		a.logger.Error().Err(err).Msg("Failed to shutdown server")
	}

	var poolErr error
	if err := a.pool.Shutdown(ctx); err != nil {
		a.logger.Error().Err(err).Msg("Failed to drain worker pool")
		poolErr = fmt.Errorf("worker pool shutdown: %w", err)
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error().Err(err).Msg("Failed to close database connection")
		}
	}

	a.logger.Info().Msg("Application shutdown complete")
	return poolErr
}
