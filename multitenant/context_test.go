package multitenant

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithIdentity(t *testing.T) {
	ctx := context.Background()

	newCtx := WithIdentity(ctx, NewIdentity(7, 3))
	assert.NotEqual(t, ctx, newCtx)

	tenantID, ok := GetTenant(newCtx)
	assert.True(t, ok)
	assert.Equal(t, int64(7), tenantID)
}

func TestGetTenant(t *testing.T) {
	ctx := context.Background()

	t.Run("no_tenant_in_context", func(t *testing.T) {
		tenantID, ok := GetTenant(ctx)
		assert.False(t, ok)
		assert.Zero(t, tenantID)
	})

	t.Run("nil_context", func(t *testing.T) {
		//nolint:staticcheck // nil context is exercised on purpose
		_, ok := GetTenant(nil)
		assert.False(t, ok)
	})

	t.Run("derived_identity_keeps_other_fields", func(t *testing.T) {
		ctx1 := WithIdentity(ctx, NewIdentity(1, 42))
		id, _ := IdentityFrom(ctx1)
		ctx2 := WithIdentity(ctx1, id.WithTenant(2))

		tenantID, ok := GetTenant(ctx2)
		assert.True(t, ok)
		assert.Equal(t, int64(2), tenantID)
		user, ok := Current(ctx2).User()
		assert.True(t, ok)
		assert.Equal(t, int64(42), user)

		tenantID1, ok1 := GetTenant(ctx1)
		assert.True(t, ok1)
		assert.Equal(t, int64(1), tenantID1)
	})

	t.Run("bound_store_wins_over_identity_value", func(t *testing.T) {
		store := NewStore()
		store.SetTenant(1)
		bound := WithIdentity(WithStore(ctx, store), NewIdentity(2, 0))

		tenantID, ok := GetTenant(bound)
		assert.True(t, ok)
		assert.Equal(t, int64(1), tenantID)

		store.SetTenant(2)
		tenantID, _ = GetTenant(bound)
		assert.Equal(t, int64(2), tenantID)
	})
}

func TestStoreAndCarrierFromContext(t *testing.T) {
	ctx := context.Background()

	_, ok := StoreFrom(ctx)
	assert.False(t, ok)
	_, ok = CarrierFrom(ctx)
	assert.False(t, ok)

	assert.Equal(t, ctx, WithStore(ctx, nil))
	assert.Equal(t, ctx, WithCarrier(ctx, nil))

	store := NewStore()
	ctx = WithStore(ctx, store)
	got, ok := StoreFrom(ctx)
	require.True(t, ok)
	assert.Same(t, store, got)

	carrier, ok := CarrierFrom(ctx)
	require.True(t, ok)
	assert.Same(t, store, carrier)

	other := NewStore()
	ctx = WithCarrier(ctx, other)
	carrier, ok = CarrierFrom(ctx)
	require.True(t, ok)
	assert.Same(t, other, carrier)
}

func TestLogFields(t *testing.T) {
	store := NewStore()
	store.Bind(7, 3)
	ctx := WithStore(context.Background(), store)

	assert.Equal(t, map[string]any{"tenant_id": int64(7), "user_id": int64(3)}, LogFields(ctx))
	assert.Empty(t, LogFields(context.Background()))
}
