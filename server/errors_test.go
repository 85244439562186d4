package server

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/tenantguard/multitenant"
)

func TestBaseAPIError(t *testing.T) {
	t.Run("new_base_api_error", func(t *testing.T) {
		err := NewBaseAPIError("TEST_ERROR", "Test error message", http.StatusBadRequest)

		assert.Equal(t, "TEST_ERROR", err.ErrorCode())
		assert.Equal(t, "Test error message", err.Message())
		assert.Equal(t, http.StatusBadRequest, err.HTTPStatus())
		assert.Empty(t, err.Details())
		assert.Equal(t, "TEST_ERROR: Test error message", err.Error())
	})

	t.Run("details_are_copied", func(t *testing.T) {
		err := NewBaseAPIError("TEST_ERROR", "Test error message", http.StatusBadRequest)
		err.WithDetails("key1", "value1")

		details := err.Details()
		details["key2"] = "value2"
		assert.Len(t, err.Details(), 1)
	})

	t.Run("nil_error_string", func(t *testing.T) {
		var err *BaseAPIError
		assert.Equal(t, "", err.Error())
	})

	t.Run("empty_code_error_string", func(t *testing.T) {
		err := NewBaseAPIError("", "Test message", http.StatusBadRequest)
		assert.Equal(t, "Test message", err.Error())
	})
}

func TestMapTenancyError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{
			name:   "context_missing",
			err:    &multitenant.ContextMissingError{Op: "update"},
			code:   "FORBIDDEN",
			status: http.StatusForbidden,
		},
		{
			name:   "wrapped_context_missing",
			err:    fmt.Errorf("save order: %w", multitenant.ErrContextMissing),
			code:   "FORBIDDEN",
			status: http.StatusForbidden,
		},
		{
			name:   "resolution_failed",
			err:    multitenant.ErrTenantResolutionFailed,
			code:   "BAD_REQUEST",
			status: http.StatusBadRequest,
		},
		{
			name:   "tenant_not_found",
			err:    multitenant.ErrTenantNotFound,
			code:   "NOT_FOUND",
			status: http.StatusNotFound,
		},
		{
			name:   "propagation_failed",
			err:    fmt.Errorf("%w: connection reset", multitenant.ErrPropagationFailed),
			code:   "SERVICE_UNAVAILABLE",
			status: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiErr := MapTenancyError(tt.err)
			require.NotNil(t, apiErr)
			assert.Equal(t, tt.code, apiErr.ErrorCode())
			assert.Equal(t, tt.status, apiErr.HTTPStatus())
		})
	}

	assert.Nil(t, MapTenancyError(nil))
	assert.Nil(t, MapTenancyError(errors.New("unrelated")))
}
