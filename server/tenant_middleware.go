package server

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/gaborage/tenantguard/multitenant"
)

// IdentityContextKey holds the resolved multitenant.Identity on the echo context so that
// outer middleware can still report it after the request store is unbound.
const IdentityContextKey = "tenant_identity"

// TenantConfig configures TenantMiddlewareWithConfig.
type TenantConfig struct {
	Resolver multitenant.IdentityResolver
	// Skipper bypasses identity resolution, typically for probes.
	Skipper middleware.Skipper
}

// TenantMiddleware resolves the caller's identity and binds it for the duration of the request.
func TenantMiddleware(resolver multitenant.IdentityResolver) echo.MiddlewareFunc {
	return TenantMiddlewareWithConfig(TenantConfig{Resolver: resolver})
}

// TenantMiddlewareWithConfig binds a fresh per-request store holding the resolved identity.
// The store is unbound when the handler returns, whether it succeeded, failed or panicked.
func TenantMiddlewareWithConfig(cfg TenantConfig) echo.MiddlewareFunc {
	if cfg.Skipper == nil {
		cfg.Skipper = middleware.DefaultSkipper
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper(c) {
				return next(c)
			}
			if cfg.Resolver == nil {
				return NewInternalServerError("tenant resolver not configured")
			}

			req := c.Request()
			id, err := cfg.Resolver.ResolveIdentity(req.Context(), req)
			if err != nil || id.IsZero() {
				apiErr := NewBadRequestError("Invalid tenant")
				if err != nil {
					_ = apiErr.WithDetails("error", err.Error())
				}
				return apiErr
			}

			store := multitenant.NewStore()
			store.BindIdentity(id)
			defer store.Unbind()

			ctx := multitenant.WithIdentity(req.Context(), id)
			ctx = multitenant.WithStore(ctx, store)
			c.SetRequest(req.WithContext(ctx))
			c.Set(IdentityContextKey, id)

			return next(c)
		}
	}
}

// probeSkipper skips identity resolution for health and readiness probes.
func probeSkipper(c echo.Context) bool {
	path := c.Path()
	if path == "" {
		path = c.Request().URL.Path
	}
	return path == healthPath || path == readyPath
}
