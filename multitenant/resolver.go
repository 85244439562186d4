package multitenant

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

const (
	// DefaultTenantHeader carries the authenticated tenant id.
	DefaultTenantHeader = "X-Tenant-ID"
	// DefaultUserHeader carries the authenticated user id.
	DefaultUserHeader = "X-User-ID"
)

// IdentityResolver resolves the caller's identity from an already authenticated request.
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, req *http.Request) (Identity, error)
}

// HeaderResolver reads tenant and user ids from request headers set by the
// authenticating gateway. When Directory is set, kind and ancestors are filled from it.
type HeaderResolver struct {
	TenantHeader string
	UserHeader   string
	Directory    Directory
}

// ResolveIdentity implements IdentityResolver.
func (r *HeaderResolver) ResolveIdentity(ctx context.Context, req *http.Request) (Identity, error) {
	if r == nil || req == nil {
		return Identity{}, ErrTenantResolutionFailed
	}

	tenantHeader := r.TenantHeader
	if tenantHeader == "" {
		tenantHeader = DefaultTenantHeader
	}
	userHeader := r.UserHeader
	if userHeader == "" {
		userHeader = DefaultUserHeader
	}

	tenantID, ok, err := parseID(req.Header.Get(tenantHeader))
	if err != nil || !ok {
		return Identity{}, ErrTenantResolutionFailed
	}
	id := Identity{}.WithTenant(tenantID)

	userID, ok, err := parseID(req.Header.Get(userHeader))
	if err != nil {
		return Identity{}, ErrTenantResolutionFailed
	}
	if ok {
		id = id.WithUser(userID)
	}

	if r.Directory == nil {
		return id, nil
	}
	info, err := r.Directory.Lookup(ctx, tenantID)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrTenantResolutionFailed, err)
	}
	id = id.WithKind(info.Kind)
	if info.Ancestors != "" {
		id = id.WithAncestors(info.Ancestors)
	}
	return id, nil
}

// CompositeResolver tries multiple resolvers until one succeeds.
type CompositeResolver struct {
	Resolvers []IdentityResolver
}

// ResolveIdentity implements IdentityResolver.
func (r *CompositeResolver) ResolveIdentity(ctx context.Context, req *http.Request) (Identity, error) {
	if r == nil {
		return Identity{}, ErrTenantResolutionFailed
	}
	for _, resolver := range r.Resolvers {
		if resolver == nil {
			continue
		}
		id, err := resolver.ResolveIdentity(ctx, req)
		if err == nil && !id.IsZero() {
			return id, nil
		}
	}
	return Identity{}, ErrTenantResolutionFailed
}

// parseID parses a positive decimal id. An empty value is reported as absent.
func parseID(raw string) (int64, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, err
	}
	if id <= 0 {
		return 0, false, fmt.Errorf("id must be positive: %d", id)
	}
	return id, true, nil
}
