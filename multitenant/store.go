package multitenant

import (
	"context"
	"sync"
)

// Store is the mutable identity slot owned by one unit of work: a request, or a worker
// goroutine of a pool for as long as it lives. All getters are total and return
// "absent" when nothing is bound.
//
// A Store is safe for concurrent use, but only its owner should mutate it. Other
// goroutines move identity into and out of it through Snapshot.
type Store struct {
	mu sync.RWMutex
	id Identity
}

// Compile-time check that *Store is a Carrier.
var _ Carrier = (*Store)(nil)

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

// Bind sets tenant and user at the start of a unit of work.
func (s *Store) Bind(tenantID, userID int64) {
	s.BindIdentity(NewIdentity(tenantID, userID))
}

// BindIdentity replaces the whole tuple with id.
func (s *Store) BindIdentity(id Identity) {
	s.mu.Lock()
	s.id = id
	s.mu.Unlock()
}

// Unbind clears the store at the end of a unit of work.
func (s *Store) Unbind() {
	s.reset()
}

// SetTenant binds the tenant.
func (s *Store) SetTenant(tenantID int64) {
	s.mu.Lock()
	s.id = s.id.WithTenant(tenantID)
	s.mu.Unlock()
}

// Tenant returns the bound tenant.
func (s *Store) Tenant() (int64, bool) {
	return s.Identity().Tenant()
}

// SetUser binds the acting user.
func (s *Store) SetUser(userID int64) {
	s.mu.Lock()
	s.id = s.id.WithUser(userID)
	s.mu.Unlock()
}

// User returns the bound user.
func (s *Store) User() (int64, bool) {
	return s.Identity().User()
}

// SetKind binds the tenant kind.
func (s *Store) SetKind(kind int) {
	s.mu.Lock()
	s.id = s.id.WithKind(kind)
	s.mu.Unlock()
}

// Kind returns the bound tenant kind.
func (s *Store) Kind() (int, bool) {
	return s.Identity().Kind()
}

// SetAncestors binds the ancestor path.
func (s *Store) SetAncestors(ancestors string) {
	s.mu.Lock()
	s.id = s.id.WithAncestors(ancestors)
	s.mu.Unlock()
}

// Ancestors returns the bound ancestor path.
func (s *Store) Ancestors() (string, bool) {
	return s.Identity().Ancestors()
}

// Identity returns the current tuple as an immutable value.
func (s *Store) Identity() Identity {
	if s == nil {
		return Identity{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id
}

// IsSystemAdmin reports whether the bound tenant is the platform tenant.
func (s *Store) IsSystemAdmin() bool {
	return s.Identity().IsSystemAdmin()
}

// HasAccessToTenant applies Identity.HasAccessToTenant to the bound tuple.
func (s *Store) HasAccessToTenant(target *int64) bool {
	return s.Identity().HasAccessToTenant(target)
}

// RequireTenant returns the bound tenant or ErrContextMissing.
func (s *Store) RequireTenant() (int64, error) {
	if tenantID, ok := s.Tenant(); ok {
		return tenantID, nil
	}
	return 0, &ContextMissingError{Op: "require tenant"}
}

// Capture implements Carrier.
func (s *Store) Capture() Snapshot {
	return Snapshot{id: s.Identity()}
}

// Clear implements Carrier. All four fields are removed at once.
func (s *Store) Clear(_ context.Context) error {
	s.reset()
	return nil
}

// Apply implements Carrier: the store ends up holding exactly the fields present in snap.
func (s *Store) Apply(_ context.Context, snap Snapshot) error {
	s.BindIdentity(snap.id)
	return nil
}

func (s *Store) reset() {
	s.mu.Lock()
	s.id = Identity{}
	s.mu.Unlock()
}
