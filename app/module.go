package app

import (
	"database/sql"

	"github.com/labstack/echo/v4"

	"github.com/gaborage/tenantguard/config"
	"github.com/gaborage/tenantguard/database"
	"github.com/gaborage/tenantguard/executor"
	"github.com/gaborage/tenantguard/logger"
	"github.com/gaborage/tenantguard/multitenant"
)

// Module defines the interface that all application modules must implement.
type Module interface {
	Name() string
	Init(deps *ModuleDeps) error
	RegisterRoutes(e *echo.Echo)
	Shutdown() error
}

// ModuleDeps contains the dependencies that are injected into each module.
type ModuleDeps struct {
	Logger logger.Logger
	Config *config.Config

	// DB is nil when no database is configured.
	DB *sql.DB
	// Queries builds tenant-filtered statements for the configured vendor.
	Queries *database.QueryBuilder
	// Executor runs background work under the submitting request's identity.
	Executor executor.Executor
	// Directory resolves tenant kind and ancestors. Nil without a database.
	Directory multitenant.Directory
}

// ModuleRegistry manages the registration and lifecycle of application modules.
type ModuleRegistry struct {
	modules []Module
	deps    *ModuleDeps
	logger  logger.Logger
}

// NewModuleRegistry creates a new module registry with the given dependencies.
func NewModuleRegistry(deps *ModuleDeps) *ModuleRegistry {
	return &ModuleRegistry{
		modules: make([]Module, 0),
		deps:    deps,
		logger:  deps.Logger,
	}
}

// Register initializes a module with the injected dependencies and adds it to the registry.
func (r *ModuleRegistry) Register(module Module) error {
	r.logger.Info().
		Str("module", module.Name()).
		Msg("Registering module")

	if err := module.Init(r.deps); err != nil {
		return err
	}
	r.modules = append(r.modules, module)
	return nil
}

// RegisterRoutes calls RegisterRoutes on all registered modules.
func (r *ModuleRegistry) RegisterRoutes(e *echo.Echo) {
	for _, module := range r.modules {
		r.logger.Info().
			Str("module", module.Name()).
			Msg("Registering module routes")

		module.RegisterRoutes(e)
	}
}

// Shutdown calls each module's Shutdown method and logs any errors.
func (r *ModuleRegistry) Shutdown() error {
	for _, module := range r.modules {
		r.logger.Info().
			Str("module", module.Name()).
			Msg("Shutting down module")

		if err := module.Shutdown(); err != nil {
			r.logger.Error().
				Err(err).
				Str("module", module.Name()).
				Msg("Failed to shutdown module")
		}
	}
	return nil
}
