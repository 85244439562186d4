package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/Masterminds/squirrel"

	"github.com/gaborage/tenantguard/multitenant"
)

// Execer runs a statement. *sql.Conn, *sql.DB and *sql.Tx satisfy it.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// ConnPool hands out dedicated connections. *sql.DB satisfies it.
type ConnPool interface {
	Conn(ctx context.Context) (*sql.Conn, error)
}

const defaultSessionPrefix = "app"

// SessionSettings names the session variables that mirror each identity field.
type SessionSettings struct {
	Tenant    string
	User      string
	Kind      string
	Ancestors string
}

// DefaultSessionSettings returns the app.* names read by row-level security policies.
func DefaultSessionSettings() SessionSettings {
	return SessionSettingsWithPrefix(defaultSessionPrefix)
}

// SessionSettingsWithPrefix names the settings "<prefix>.tenant_id" and so on. Postgres
// requires custom settings to carry a prefix, so an empty prefix falls back to "app".
func SessionSettingsWithPrefix(prefix string) SessionSettings {
	prefix = strings.TrimSuffix(strings.TrimSpace(prefix), ".")
	if prefix == "" {
		prefix = defaultSessionPrefix
	}
	return SessionSettings{
		Tenant:    prefix + ".tenant_id",
		User:      prefix + ".user_id",
		Kind:      prefix + ".tenant_kind",
		Ancestors: prefix + ".tenant_ancestors",
	}
}

func (s SessionSettings) names() []string {
	return []string{s.Tenant, s.User, s.Kind, s.Ancestors}
}

var errNoSession = errors.New("session carrier has no connection")

// SessionCarrier is a multitenant.Carrier that keeps a Store and mirrors it into
// PostgreSQL session settings on one dedicated connection. Settings are session scoped
// (set_config with is_local false), so they survive between transactions and must be
// reset before the connection serves another tenant.
type SessionCarrier struct {
	store    *multitenant.Store
	settings SessionSettings

	mu     sync.Mutex
	exec   Execer
	pool   ConnPool
	pinned *sql.Conn
}

var _ multitenant.Carrier = (*SessionCarrier)(nil)

// NewSessionCarrier mirrors store onto exec, which should be a connection the caller has
// already pinned.
func NewSessionCarrier(store *multitenant.Store, exec Execer, settings SessionSettings) *SessionCarrier {
	if store == nil {
		store = multitenant.NewStore()
	}
	return &SessionCarrier{store: store, exec: exec, settings: settings}
}

// NewPooledSessionCarrier pins a connection from pool on first use and keeps it until
// Close.
func NewPooledSessionCarrier(store *multitenant.Store, pool ConnPool, settings SessionSettings) *SessionCarrier {
	if store == nil {
		store = multitenant.NewStore()
	}
	return &SessionCarrier{store: store, pool: pool, settings: settings}
}

// SessionCarrierFactory returns a per-worker factory for executor.WithCarrierFactory:
// every worker gets its own pinned connection from pool.
func SessionCarrierFactory(pool ConnPool, settings SessionSettings) func(*multitenant.Store) multitenant.Carrier {
	return func(store *multitenant.Store) multitenant.Carrier {
		return NewPooledSessionCarrier(store, pool, settings)
	}
}

// Store returns the mirrored store.
func (c *SessionCarrier) Store() *multitenant.Store {
	return c.store
}

// Session returns the connection holding the mirrored settings, pinning one if needed.
// Statements that rely on row-level security must run on it.
func (c *SessionCarrier) Session(ctx context.Context) (Execer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionLocked(ctx)
}

func (c *SessionCarrier) sessionLocked(ctx context.Context) (Execer, error) {
	if c.exec != nil {
		return c.exec, nil
	}
	if c.pool == nil {
		return nil, errNoSession
	}
	conn, err := c.pool.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("pin session connection: %w", err)
	}
	c.pinned = conn
	c.exec = conn
	return conn, nil
}

// Capture implements multitenant.Carrier.
func (c *SessionCarrier) Capture() multitenant.Snapshot {
	return c.store.Capture()
}

// Clear implements multitenant.Carrier. The store is always cleared and every setting is
// reset even after a failure; the returned error joins the settings that could not be.
func (c *SessionCarrier) Clear(ctx context.Context) error {
	if err := c.store.Clear(ctx); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	exec, err := c.sessionLocked(ctx)
	if err != nil {
		return err
	}
	var errs []error
	for _, name := range c.settings.names() {
		if name == "" {
			continue
		}
		if _, err := exec.ExecContext(ctx, "RESET "+name); err != nil {
			errs = append(errs, fmt.Errorf("reset %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// Apply implements multitenant.Carrier: the store takes snap and every present field is
// written to its session setting in one statement.
func (c *SessionCarrier) Apply(ctx context.Context, snap multitenant.Snapshot) error {
	if err := c.store.Apply(ctx, snap); err != nil {
		return err
	}

	query, args, err := c.setConfigStatement(snap.Identity())
	if err != nil || query == "" {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	exec, err := c.sessionLocked(ctx)
	if err != nil {
		return err
	}
	if _, err := exec.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("set session identity: %w", err)
	}
	return nil
}

// Close releases a pinned connection. Carriers built with NewSessionCarrier leave the
// caller's connection open.
func (c *SessionCarrier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pinned == nil {
		return nil
	}
	err := c.pinned.Close()
	c.pinned = nil
	c.exec = nil
	return err
}

func (c *SessionCarrier) setConfigStatement(id multitenant.Identity) (string, []any, error) {
	sb := squirrel.Select().PlaceholderFormat(squirrel.Dollar)
	n := 0
	add := func(name, value string) {
		if name == "" {
			return
		}
		sb = sb.Column(squirrel.Expr("set_config(?, ?, false)", name, value))
		n++
	}

	if tenant, ok := id.Tenant(); ok {
		add(c.settings.Tenant, strconv.FormatInt(tenant, 10))
	}
	if user, ok := id.User(); ok {
		add(c.settings.User, strconv.FormatInt(user, 10))
	}
	if kind, ok := id.Kind(); ok {
		add(c.settings.Kind, strconv.Itoa(kind))
	}
	if ancestors, ok := id.Ancestors(); ok {
		add(c.settings.Ancestors, ancestors)
	}
	if n == 0 {
		return "", nil, nil
	}
	return sb.ToSql()
}

// SessionFrom returns the session connection of the worker running ctx when the worker
// mirrors identity through a SessionCarrier.
func SessionFrom(ctx context.Context) (Execer, bool) {
	carrier, ok := multitenant.CarrierFrom(ctx)
	if !ok {
		return nil, false
	}
	sc, ok := carrier.(*SessionCarrier)
	if !ok {
		return nil, false
	}
	exec, err := sc.Session(ctx)
	if err != nil {
		return nil, false
	}
	return exec, true
}
