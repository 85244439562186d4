package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/tenantguard/config"
	"github.com/gaborage/tenantguard/logger"
	"github.com/gaborage/tenantguard/multitenant"
)

const ordersPath = "/orders"

func newTestServer(t *testing.T, env string) (*Server, *bytes.Buffer) {
	t.Helper()
	cfg, err := config.LoadBytes(nil)
	require.NoError(t, err)
	cfg.App.Env = env

	var buf bytes.Buffer
	log := logger.NewWithWriter("debug", &buf)
	resolver := &multitenant.HeaderResolver{
		Directory: multitenant.StaticDirectory{
			1: {Kind: multitenant.KindSystem},
			7: {Kind: 2, Ancestors: ",0,1,"},
		},
	}
	return New(cfg, log, resolver), &buf
}

func serve(s *Server, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, http.NoBody)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	return rec
}

func tenantHeaders(tenant, user string) map[string]string {
	return map[string]string{
		multitenant.DefaultTenantHeader: tenant,
		multitenant.DefaultUserHeader:   user,
	}
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func actionLog(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	scanner := bufio.NewScanner(bytes.NewReader(buf.Bytes()))
	for scanner.Scan() {
		var line map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &line))
		if line["log.type"] == "action" {
			return line
		}
	}
	t.Fatalf("no action log in %q", buf.String())
	return nil
}

func TestHandlerRunsWithBoundIdentity(t *testing.T) {
	s, buf := newTestServer(t, config.EnvProduction)

	var seen multitenant.Identity
	s.Echo().GET(ordersPath, func(c echo.Context) error {
		seen = multitenant.Current(c.Request().Context())
		return JSON(c, http.StatusOK, map[string]string{"status": "ok"})
	})

	rec := serve(s, http.MethodGet, ordersPath, tenantHeaders("7", "3"))
	require.Equal(t, http.StatusOK, rec.Code)

	tenant, _ := seen.Tenant()
	user, _ := seen.User()
	kind, _ := seen.Kind()
	ancestors, _ := seen.Ancestors()
	assert.Equal(t, int64(7), tenant)
	assert.Equal(t, int64(3), user)
	assert.Equal(t, 2, kind)
	assert.Equal(t, ",0,1,", ancestors)

	resp := decodeResponse(t, rec)
	assert.NotEmpty(t, resp.Meta["traceId"])

	line := actionLog(t, buf)
	assert.Equal(t, "info", line["level"])
	assert.EqualValues(t, 7, line["tenant_id"])
	assert.EqualValues(t, 3, line["user_id"])
	assert.EqualValues(t, http.StatusOK, line["http.response.status_code"])
}

func TestUnresolvableIdentityIsRejected(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
	}{
		{name: "missing_tenant", headers: nil},
		{name: "malformed_tenant", headers: tenantHeaders("abc", "3")},
		{name: "negative_tenant", headers: tenantHeaders("-4", "3")},
		{name: "unknown_tenant", headers: tenantHeaders("404", "3")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestServer(t, config.EnvProduction)
			called := false
			s.Echo().GET(ordersPath, func(c echo.Context) error {
				called = true
				return c.NoContent(http.StatusOK)
			})

			rec := serve(s, http.MethodGet, ordersPath, tt.headers)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.False(t, called)

			resp := decodeResponse(t, rec)
			require.NotNil(t, resp.Error)
			assert.Equal(t, "BAD_REQUEST", resp.Error.Code)
			assert.Nil(t, resp.Error.Details)
		})
	}
}

func TestStoreIsUnboundAfterRequest(t *testing.T) {
	tests := []struct {
		name    string
		handler func(c echo.Context) error
		status  int
	}{
		{
			name:    "success",
			handler: func(c echo.Context) error { return c.NoContent(http.StatusNoContent) },
			status:  http.StatusNoContent,
		},
		{
			name:    "error",
			handler: func(_ echo.Context) error { return errors.New("downstream failed") },
			status:  http.StatusInternalServerError,
		},
		{
			name:    "panic",
			handler: func(_ echo.Context) error { panic("handler exploded") },
			status:  http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestServer(t, config.EnvProduction)

			var store *multitenant.Store
			s.Echo().GET(ordersPath, func(c echo.Context) error {
				var ok bool
				store, ok = multitenant.StoreFrom(c.Request().Context())
				require.True(t, ok)
				tenant, _ := store.Tenant()
				assert.Equal(t, int64(7), tenant)
				return tt.handler(c)
			})

			rec := serve(s, http.MethodGet, ordersPath, tenantHeaders("7", "3"))
			assert.Equal(t, tt.status, rec.Code)
			require.NotNil(t, store)
			assert.True(t, store.Identity().IsZero())
		})
	}
}

func TestRequestsDoNotShareStores(t *testing.T) {
	s, _ := newTestServer(t, config.EnvProduction)

	var stores []*multitenant.Store
	s.Echo().GET(ordersPath, func(c echo.Context) error {
		store, _ := multitenant.StoreFrom(c.Request().Context())
		stores = append(stores, store)
		return c.NoContent(http.StatusNoContent)
	})

	serve(s, http.MethodGet, ordersPath, tenantHeaders("7", "3"))
	serve(s, http.MethodGet, ordersPath, tenantHeaders("1", "1"))
	require.Len(t, stores, 2)
	assert.NotSame(t, stores[0], stores[1])
}

func TestTenancyErrorsAreMapped(t *testing.T) {
	s, buf := newTestServer(t, config.EnvProduction)
	s.Echo().POST(ordersPath, func(_ echo.Context) error {
		return &multitenant.ContextMissingError{Op: "insert charging_order"}
	})

	rec := serve(s, http.MethodPost, ordersPath, tenantHeaders("7", "3"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "FORBIDDEN", resp.Error.Code)

	line := actionLog(t, buf)
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, "WARN", line["result_code"])
}

func TestProbesSkipTenantBinding(t *testing.T) {
	s, buf := newTestServer(t, config.EnvProduction)

	rec := serve(s, http.MethodGet, healthPath, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(s, http.MethodGet, readyPath, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, buf.String(), `"log.type":"action"`)
}

func TestReadyCheckFailure(t *testing.T) {
	s, _ := newTestServer(t, config.EnvProduction)
	s.SetReadyCheck(func(context.Context) error { return errors.New("database down") })

	rec := serve(s, http.MethodGet, readyPath, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "SERVICE_UNAVAILABLE", resp.Error.Code)
}

func TestErrorHandlerHidesInternalDetailsOutsideDevelopment(t *testing.T) {
	handler := func(_ echo.Context) error { return errors.New("pq: relation missing") }

	prod, _ := newTestServer(t, config.EnvProduction)
	prod.Echo().GET(ordersPath, handler)
	resp := decodeResponse(t, serve(prod, http.MethodGet, ordersPath, tenantHeaders("7", "3")))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INTERNAL_ERROR", resp.Error.Code)
	assert.Equal(t, "An error occurred while processing your request", resp.Error.Message)
	assert.Nil(t, resp.Error.Details)

	dev, _ := newTestServer(t, config.EnvDevelopment)
	dev.Echo().GET(ordersPath, handler)
	resp = decodeResponse(t, serve(dev, http.MethodGet, ordersPath, tenantHeaders("7", "3")))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "pq: relation missing", resp.Error.Details["error"])
}

func TestEchoHTTPErrorIsWrapped(t *testing.T) {
	s, _ := newTestServer(t, config.EnvProduction)
	s.Echo().GET(ordersPath, func(_ echo.Context) error {
		return echo.NewHTTPError(http.StatusConflict, "order already paid")
	})

	rec := serve(s, http.MethodGet, ordersPath, tenantHeaders("7", "3"))
	assert.Equal(t, http.StatusConflict, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "CONFLICT", resp.Error.Code)
	assert.Equal(t, "order already paid", resp.Error.Message)
}
