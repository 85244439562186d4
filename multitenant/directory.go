package multitenant

import (
	"context"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// TenantInfo holds the directory attributes of a tenant that identity carries.
type TenantInfo struct {
	Kind      int
	Ancestors string
}

// Directory looks up tenant attributes by id.
type Directory interface {
	Lookup(ctx context.Context, tenantID int64) (TenantInfo, error)
}

// StaticDirectory is a fixed in-memory Directory.
type StaticDirectory map[int64]TenantInfo

// Lookup implements Directory.
func (d StaticDirectory) Lookup(_ context.Context, tenantID int64) (TenantInfo, error) {
	if info, ok := d[tenantID]; ok {
		return info, nil
	}
	return TenantInfo{}, ErrTenantNotFound
}

// CacheOption configures the directory cache.
type CacheOption func(*cacheConfig)

type cacheConfig struct {
	ttl              time.Duration
	maxSize          int
	staleGracePeriod time.Duration // How long to serve stale data on provider errors
}

// cacheEntry holds cached data with expiration and staleness tracking
type cacheEntry struct {
	info         TenantInfo
	fetchedAt    time.Time
	lastAccessAt time.Time
}

func (e *cacheEntry) isExpired(ttl time.Duration) bool {
	return time.Since(e.fetchedAt) > ttl
}

func (e *cacheEntry) isStale(gracePeriod time.Duration) bool {
	return time.Since(e.fetchedAt) > gracePeriod
}

// CachedDirectory caches lookups of another Directory. Concurrent misses for the same
// tenant share one provider call, and entries past their TTL are still served for a
// grace period when the provider fails.
type CachedDirectory struct {
	provider Directory
	cfg      cacheConfig

	mu      sync.RWMutex
	entries map[int64]*cacheEntry
	sf      singleflight.Group
}

// Compile-time check that *CachedDirectory is a Directory.
var _ Directory = (*CachedDirectory)(nil)

// NewCachedDirectory creates a new cache using the provided options.
func NewCachedDirectory(provider Directory, opts ...CacheOption) *CachedDirectory {
	cfg := cacheConfig{
		ttl:              5 * time.Minute,
		maxSize:          1000,
		staleGracePeriod: 30 * time.Minute,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &CachedDirectory{
		provider: provider,
		cfg:      cfg,
		entries:  make(map[int64]*cacheEntry),
	}
}

// Lookup returns the cached or freshly fetched tenant attributes.
func (c *CachedDirectory) Lookup(ctx context.Context, tenantID int64) (TenantInfo, error) {
	if c == nil || c.provider == nil {
		return TenantInfo{}, ErrTenantNotFound
	}

	c.mu.RLock()
	entry, exists := c.entries[tenantID]
	var cached TenantInfo
	var fresh, servable bool
	if exists {
		cached = entry.info
		fresh = !entry.isExpired(c.cfg.ttl)
		servable = !entry.isStale(c.cfg.staleGracePeriod)
	}
	c.mu.RUnlock()

	if fresh {
		c.touchEntry(tenantID)
		return cached, nil
	}

	result, err, _ := c.sf.Do(strconv.FormatInt(tenantID, 10), func() (any, error) {
		return c.fetchAndCache(context.WithoutCancel(ctx), tenantID)
	})
	if err != nil {
		if servable {
			return cached, nil
		}
		return TenantInfo{}, err
	}

	return result.(TenantInfo), nil
}

// Invalidate drops the cached entry for tenantID.
func (c *CachedDirectory) Invalidate(tenantID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, tenantID)
}

func (c *CachedDirectory) fetchAndCache(ctx context.Context, tenantID int64) (TenantInfo, error) {
	info, err := c.provider.Lookup(ctx, tenantID)
	if err != nil {
		return TenantInfo{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[tenantID]; !exists && len(c.entries) >= c.cfg.maxSize {
		c.evictOldest()
	}

	now := time.Now()
	c.entries[tenantID] = &cacheEntry{
		info:         info,
		fetchedAt:    now,
		lastAccessAt: now,
	}
	return info, nil
}

func (c *CachedDirectory) touchEntry(tenantID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, exists := c.entries[tenantID]; exists {
		entry.lastAccessAt = time.Now()
	}
}

// evictOldest removes the least recently accessed entry (must be called with lock held)
func (c *CachedDirectory) evictOldest() {
	var oldestKey int64
	var oldestTime time.Time
	found := false

	for key, entry := range c.entries {
		if !found || entry.lastAccessAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.lastAccessAt
			found = true
		}
	}

	if found {
		delete(c.entries, oldestKey)
	}
}

// WithTTL sets the cache TTL.
func WithTTL(ttl time.Duration) CacheOption {
	return func(cfg *cacheConfig) {
		if ttl > 0 {
			cfg.ttl = ttl
		}
	}
}

// WithMaxSize sets the maximum number of cached tenants.
func WithMaxSize(maxSize int) CacheOption {
	return func(cfg *cacheConfig) {
		if maxSize > 0 {
			cfg.maxSize = maxSize
		}
	}
}

// WithStaleGracePeriod sets how long stale data can be served on provider errors.
func WithStaleGracePeriod(period time.Duration) CacheOption {
	return func(cfg *cacheConfig) {
		if period > 0 {
			cfg.staleGracePeriod = period
		}
	}
}
