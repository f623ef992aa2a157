package query

import (
	"strings"
	"sync"
	"time"

	evbus "github.com/asaskevich/EventBus"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// TopicUpdated is published on the event bus with the key string whenever a
// fetch completes and the entry turns fresh. Use Cache.Subscribe for
// per-key filtering.
const TopicUpdated = "query.updated"

// Status is the lifecycle state of a cache entry.
type Status int

const (
	StatusIdle Status = iota
	StatusFetching
	StatusFresh
	StatusStale
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusFetching:
		return "fetching"
	case StatusFresh:
		return "fresh"
	case StatusStale:
		return "stale"
	case StatusError:
		return "error"
	}
	return "unknown"
}

const (
	defaultFreshFor   = 5 * time.Minute
	defaultRetainFor  = 10 * time.Minute
	defaultGCInterval = 30 * time.Second
)

// entry is one cached server resource. Invalidation flips status to stale
// but keeps the value, so observers keep rendering the previous data while
// the background refetch runs.
//
// gen increments on every invalidation. A fetch that started under an older
// generation must not mark the entry fresh: its result predates the write
// that invalidated the key.
type entry struct {
	value     any
	err       error
	fetchedAt time.Time
	status    Status
	gen       uint64
	observers int
	refetch   func()
}

// Cache is the keyed synchronization layer between resource clients and the
// backend. It deduplicates concurrent reads per key, tracks freshness,
// reacts to invalidation, and garbage-collects unobserved entries after the
// retention window. UI code never writes into it directly.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
	closed  bool
	pollers []*Poller

	group      singleflight.Group
	bus        evbus.Bus
	freshFor   time.Duration
	retainFor  time.Duration
	gcInterval time.Duration
	logger     zerolog.Logger
	nowTime    func() time.Time
	stopCh     chan struct{}
	closeOnce  sync.Once
}

// CacheOption defines a function type to modify the Cache instance.
type CacheOption func(*Cache)

// WithFreshFor sets the freshness window: entries younger than this are
// served without a network call.
func WithFreshFor(d time.Duration) CacheOption {
	return func(c *Cache) {
		c.freshFor = d
	}
}

// WithRetainFor sets the retention window for unobserved entries.
func WithRetainFor(d time.Duration) CacheOption {
	return func(c *Cache) {
		c.retainFor = d
	}
}

// WithGCInterval sets the cleanup cadence (primarily for testing).
func WithGCInterval(d time.Duration) CacheOption {
	return func(c *Cache) {
		c.gcInterval = d
	}
}

// WithCacheBus sets the event bus used for update notifications, so the
// session store and cache can share one bus.
func WithCacheBus(bus evbus.Bus) CacheOption {
	return func(c *Cache) {
		c.bus = bus
	}
}

// WithCacheLogger sets the cache logger.
func WithCacheLogger(logger zerolog.Logger) CacheOption {
	return func(c *Cache) {
		c.logger = logger
	}
}

// WithCacheNowTime sets the now time function (primarily for testing)
func WithCacheNowTime(nowFunc func() time.Time) CacheOption {
	return func(c *Cache) {
		c.nowTime = nowFunc
	}
}

// NewCache creates the cache and starts its background cleanup goroutine.
// Call Close when done to stop cleanup and any running pollers.
func NewCache(options ...CacheOption) *Cache {
	cache := &Cache{
		entries:    make(map[string]*entry),
		bus:        evbus.New(),
		freshFor:   defaultFreshFor,
		retainFor:  defaultRetainFor,
		gcInterval: defaultGCInterval,
		logger:     zerolog.Nop(),
		nowTime:    time.Now,
		stopCh:     make(chan struct{}),
	}

	for _, opt := range options {
		opt(cache)
	}

	go cache.gcLoop()

	return cache
}

// Close stops the cleanup goroutine and all pollers started through this
// cache. Further fetches fail with ErrCacheClosed.
func (c *Cache) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		pollers := c.pollers
		c.pollers = nil
		c.mu.Unlock()

		close(c.stopCh)
		for _, p := range pollers {
			p.Stop()
		}
	})
}

// Invalidate marks the entries for the given keys stale and triggers their
// background refetch. Entries are never deleted by invalidation; the stale
// value keeps serving observers until the refetch lands.
func (c *Cache) Invalidate(keys ...Key) {
	var refetchers []func()

	c.mu.Lock()
	for _, key := range keys {
		if e, ok := c.entries[key.String()]; ok {
			c.invalidateLocked(key.String(), e)
			if e.refetch != nil {
				refetchers = append(refetchers, e.refetch)
			}
		}
	}
	c.mu.Unlock()

	for _, refetch := range refetchers {
		refetch()
	}
}

// InvalidatePrefix invalidates every cached key of one resource type,
// regardless of parameters. Used by mutations whose effect spans unknown
// pagination/filter combinations.
func (c *Cache) InvalidatePrefix(resource string) {
	var refetchers []func()

	c.mu.Lock()
	for ks, e := range c.entries {
		if ks == resource || strings.HasPrefix(ks, resource+keySeparator) {
			c.invalidateLocked(ks, e)
			if e.refetch != nil {
				refetchers = append(refetchers, e.refetch)
			}
		}
	}
	c.mu.Unlock()

	for _, refetch := range refetchers {
		refetch()
	}
}

// Status reports the entry status for a key, StatusIdle when never fetched.
func (c *Cache) Status(key Key) Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key.String()]; ok {
		return e.status
	}
	return StatusIdle
}

// Subscribe registers a handler invoked whenever the key's entry turns
// fresh. The subscription counts as an observer, keeping the entry from
// being garbage-collected. The returned function unsubscribes.
func (c *Cache) Subscribe(key Key, handler func()) (func(), error) {
	ks := key.String()
	wrapped := func(updated string) {
		if updated == ks {
			handler()
		}
	}
	if err := c.bus.Subscribe(TopicUpdated, wrapped); err != nil {
		return nil, err
	}
	c.addObserver(key)

	return func() {
		_ = c.bus.Unsubscribe(TopicUpdated, wrapped)
		c.removeObserver(key)
	}, nil
}

// Peek returns the cached value for a key without triggering a fetch. ok is
// false when nothing is cached or the cached value has a different type.
func Peek[T any](c *Cache, key Key) (value T, status Status, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, found := c.entries[key.String()]
	if !found {
		return value, StatusIdle, false
	}
	value, ok = e.value.(T)
	return value, e.status, ok
}

func (c *Cache) addObserver(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureLocked(key.String()).observers++
}

func (c *Cache) removeObserver(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key.String()]; ok && e.observers > 0 {
		e.observers--
	}
}

func (c *Cache) trackPoller(p *Poller) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pollers = append(c.pollers, p)
}

// invalidateLocked marks an entry stale, bumps its generation, and evicts
// any in-flight fetch from the dedup group so the scheduled refetch issues
// its own request instead of joining a pre-invalidation one. Callers hold
// c.mu.
func (c *Cache) invalidateLocked(ks string, e *entry) {
	e.status = StatusStale
	e.gen++
	c.group.Forget(ks)
}

// ensureLocked returns the entry for ks, creating an idle one if absent.
// Callers hold c.mu.
func (c *Cache) ensureLocked(ks string) *entry {
	e, ok := c.entries[ks]
	if !ok {
		e = &entry{status: StatusIdle}
		c.entries[ks] = e
	}
	return e
}

func (c *Cache) freshLocked(e *entry) bool {
	return e.status == StatusFresh && c.nowTime().Sub(e.fetchedAt) < c.freshFor
}

func (c *Cache) gcLoop() {
	ticker := time.NewTicker(c.gcInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.evictExpired()
		}
	}
}

// evictExpired removes entries past the retention window with no observers.
func (c *Cache) evictExpired() {
	now := c.nowTime()

	c.mu.Lock()
	defer c.mu.Unlock()

	for ks, e := range c.entries {
		if e.observers > 0 || e.fetchedAt.IsZero() {
			continue
		}
		if now.Sub(e.fetchedAt) > c.retainFor {
			delete(c.entries, ks)
			c.logger.Debug().Str("key", ks).Msg("evicted unobserved cache entry")
		}
	}
}
