// Package multitenant carries the caller's tenant identity through a request and across
// asynchronous task boundaries, and answers tenant access questions from it.
//
// The identity is an immutable Identity value attached to a context.Context. Code that
// needs a mutable, per-unit-of-work slot (request binders, worker pools, integrations
// that keep ambient state) uses a Store, and moves identity between slots with
// Snapshot and Propagator.
package multitenant

import (
	"strconv"
	"strings"
)

// KindSystem is the tenant kind of the platform tenant. Its members administer every tenant.
const KindSystem = 1

type field uint8

const (
	fieldTenant field = 1 << iota
	fieldUser
	fieldKind
	fieldAncestors
)

// Identity is an immutable identity tuple. Every field is optional; the zero value has
// no fields set. The With* methods return modified copies.
type Identity struct {
	tenantID  int64
	userID    int64
	kind      int
	ancestors string
	set       field
}

// NewIdentity returns an identity with tenant and user bound.
func NewIdentity(tenantID, userID int64) Identity {
	return Identity{}.WithTenant(tenantID).WithUser(userID)
}

// WithTenant returns a copy with the tenant set.
func (id Identity) WithTenant(tenantID int64) Identity {
	id.tenantID = tenantID
	id.set |= fieldTenant
	return id
}

// WithUser returns a copy with the acting user set.
func (id Identity) WithUser(userID int64) Identity {
	id.userID = userID
	id.set |= fieldUser
	return id
}

// WithKind returns a copy with the tenant kind set.
func (id Identity) WithKind(kind int) Identity {
	id.kind = kind
	id.set |= fieldKind
	return id
}

// WithAncestors returns a copy with the ancestor path set.
func (id Identity) WithAncestors(ancestors string) Identity {
	id.ancestors = ancestors
	id.set |= fieldAncestors
	return id
}

// Tenant returns the tenant id and whether one is bound.
func (id Identity) Tenant() (int64, bool) {
	return id.tenantID, id.set&fieldTenant != 0
}

// User returns the acting user id and whether one is bound.
func (id Identity) User() (int64, bool) {
	return id.userID, id.set&fieldUser != 0
}

// Kind returns the tenant kind and whether one is bound.
func (id Identity) Kind() (int, bool) {
	return id.kind, id.set&fieldKind != 0
}

// Ancestors returns the comma-delimited ancestor path and whether one is bound.
func (id Identity) Ancestors() (string, bool) {
	return id.ancestors, id.set&fieldAncestors != 0
}

// IsZero reports whether no field is set.
func (id Identity) IsZero() bool {
	return id.set == 0
}

// IsSystemAdmin reports whether the identity belongs to the platform tenant.
func (id Identity) IsSystemAdmin() bool {
	kind, ok := id.Kind()
	return ok && kind == KindSystem
}

// HasAccessToTenant reports whether the identity may act on target.
//
// A nil target is never accessible, not even to a system admin. A system admin reaches
// every other tenant. Otherwise access is granted to the bound tenant itself and to
// every tenant whose id appears as ",<id>," in the bound ancestor path.
func (id Identity) HasAccessToTenant(target *int64) bool {
	if target == nil {
		return false
	}
	if id.IsSystemAdmin() {
		return true
	}
	current, ok := id.Tenant()
	if !ok {
		return false
	}
	if *target == current {
		return true
	}
	ancestors, ok := id.Ancestors()
	if !ok {
		return false
	}
	return strings.Contains(ancestors, ","+strconv.FormatInt(*target, 10)+",")
}

// LogFields returns the bound tenant and user as structured log fields.
func (id Identity) LogFields() map[string]any {
	fields := make(map[string]any, 2)
	if tenantID, ok := id.Tenant(); ok {
		fields["tenant_id"] = tenantID
	}
	if userID, ok := id.User(); ok {
		fields["user_id"] = userID
	}
	return fields
}
