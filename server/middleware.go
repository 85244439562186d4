package server

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/gaborage/tenantguard/logger"
	"github.com/gaborage/tenantguard/multitenant"
)

// SetupMiddlewares registers the request pipeline: request id, logging, recovery and
// tenant binding. Probes bypass tenant binding.
func SetupMiddlewares(e *echo.Echo, log logger.Logger, resolver multitenant.IdentityResolver) {
	e.Use(middleware.RequestID())

	e.Use(Logger(log))

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			log.Error().
				Err(err).
				Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
				Str("stack", string(stack)).
				Msg("Panic recovered")
			return err
		},
	}))

	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "SAMEORIGIN",
		HSTSMaxAge:            3600,
		ContentSecurityPolicy: "default-src 'self'",
	}))

	e.Use(middleware.BodyLimit("10M"))

	e.Use(TenantMiddlewareWithConfig(TenantConfig{
		Resolver: resolver,
		Skipper:  probeSkipper,
	}))
}
