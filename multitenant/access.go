package multitenant

import "context"

// IsSystemAdmin reports whether the caller on ctx belongs to the platform tenant.
func IsSystemAdmin(ctx context.Context) bool {
	return Current(ctx).IsSystemAdmin()
}

// HasAccessToTenant reports whether the caller on ctx may act on target.
// See Identity.HasAccessToTenant for the rules.
func HasAccessToTenant(ctx context.Context, target *int64) bool {
	return Current(ctx).HasAccessToTenant(target)
}

// RequireTenant returns the caller's tenant, or a *ContextMissingError when none is
// bound. Mutating operations call it before writing.
func RequireTenant(ctx context.Context) (int64, error) {
	if tenantID, ok := Current(ctx).Tenant(); ok {
		return tenantID, nil
	}
	return 0, &ContextMissingError{Op: "require tenant"}
}
