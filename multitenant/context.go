package multitenant

import "context"

// ctxKey ensures tenant context keys do not collide with external packages.
type ctxKey string

const (
	identityKey ctxKey = "tenant_identity"
	storeKey    ctxKey = "tenant_store"
	carrierKey  ctxKey = "tenant_carrier"
)

// WithIdentity stores an immutable identity in the provided context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFrom extracts the identity value from the context.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

// WithStore attaches the slot owned by the current unit of work.
func WithStore(ctx context.Context, store *Store) context.Context {
	if store == nil {
		return ctx
	}
	return context.WithValue(ctx, storeKey, store)
}

// StoreFrom returns the slot owned by the current unit of work, if any.
func StoreFrom(ctx context.Context) (*Store, bool) {
	if ctx == nil {
		return nil, false
	}
	store, ok := ctx.Value(storeKey).(*Store)
	return store, ok && store != nil
}

// WithCarrier attaches the carrier that propagated tasks apply identity to.
// Without one, the store attached with WithStore is used.
func WithCarrier(ctx context.Context, carrier Carrier) context.Context {
	if carrier == nil {
		return ctx
	}
	return context.WithValue(ctx, carrierKey, carrier)
}

// CarrierFrom returns the carrier for the current unit of work, falling back to its store.
func CarrierFrom(ctx context.Context) (Carrier, bool) {
	if ctx == nil {
		return nil, false
	}
	if carrier, ok := ctx.Value(carrierKey).(Carrier); ok && carrier != nil {
		return carrier, true
	}
	if store, ok := StoreFrom(ctx); ok {
		return store, true
	}
	return nil, false
}

// Current resolves the caller's identity: the bound store first, then the identity value.
func Current(ctx context.Context) Identity {
	if store, ok := StoreFrom(ctx); ok {
		return store.Identity()
	}
	id, _ := IdentityFrom(ctx)
	return id
}

// GetTenant extracts the caller's tenant from the context. A bound store wins over
// an identity value, so re-scoping inside a unit of work goes through the store.
func GetTenant(ctx context.Context) (int64, bool) {
	return Current(ctx).Tenant()
}

// LogFields returns tenant_id and user_id for the caller, for use with logger.WithFields.
func LogFields(ctx context.Context) map[string]any {
	return Current(ctx).LogFields()
}
