// Package cache provides a TTL store for decisions and predictions keyed by
// canonical game-state fingerprints. All timing goes through an injected
// quartz clock so expiry is testable without sleeping.
package cache

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
)

const (
	// DecisionTTL is how long a cached decision stays valid
	DecisionTTL = 30 * time.Second

	// PredictionTTL is how long a cached ML prediction stays valid
	PredictionTTL = 2 * time.Minute

	// DefaultTTL applies when no explicit TTL is given
	DefaultTTL = 5 * time.Minute

	// DefaultMaxEntries triggers oldest-first eviction
	DefaultMaxEntries = 1000

	// SweepInterval is how often the background sweep purges expired entries
	SweepInterval = 60 * time.Second
)

type entry[T any] struct {
	value     T
	createdAt time.Time
	expiresAt time.Time
}

// Options configures a cache
type Options struct {
	MaxEntries int
	DefaultTTL time.Duration
}

// Cache is a TTL-keyed store. Eviction is TTL-based plus a capacity-triggered
// oldest-first eviction in insertion order. Safe for concurrent use.
type Cache[T any] struct {
	mu      sync.Mutex
	clock   quartz.Clock
	logger  *log.Logger
	entries map[string]entry[T]
	order   []string // insertion order for capacity eviction

	maxEntries int
	defaultTTL time.Duration

	stop     chan struct{}
	stopOnce sync.Once
}

// New creates a cache on the given clock
func New[T any](clock quartz.Clock, logger *log.Logger, opts Options) *Cache[T] {
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = DefaultMaxEntries
	}
	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = DefaultTTL
	}
	return &Cache[T]{
		clock:      clock,
		logger:     logger.WithPrefix("cache"),
		entries:    make(map[string]entry[T]),
		maxEntries: opts.MaxEntries,
		defaultTTL: opts.DefaultTTL,
		stop:       make(chan struct{}),
	}
}

// Get returns the value for key if present and unexpired
func (c *Cache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	e, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	if !c.clock.Now().Before(e.expiresAt) {
		c.deleteLocked(key)
		return zero, false
	}
	return e.value, true
}

// Set stores value under key with the default TTL
func (c *Cache[T]) Set(key string, value T) {
	c.SetTTL(key, value, c.defaultTTL)
}

// SetTTL stores value under key with an explicit TTL
func (c *Cache[T]) SetTTL(key string, value T, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists {
		if len(c.entries) >= c.maxEntries {
			c.evictOldestLocked()
		}
		c.order = append(c.order, key)
	}

	now := c.clock.Now()
	c.entries[key] = entry[T]{
		value:     value,
		createdAt: now,
		expiresAt: now.Add(ttl),
	}
}

// Delete removes key from the cache
func (c *Cache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleteLocked(key)
}

// Len returns the number of stored entries, expired or not
func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache[T]) deleteLocked(key string) {
	if _, ok := c.entries[key]; !ok {
		return
	}
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// evictOldestLocked drops the oldest entry by insertion order
func (c *Cache[T]) evictOldestLocked() {
	for len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		if _, ok := c.entries[oldest]; ok {
			delete(c.entries, oldest)
			return
		}
	}
}

// sweep purges every expired entry
func (c *Cache[T]) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	removed := 0
	for key, e := range c.entries {
		if !now.Before(e.expiresAt) {
			c.deleteLocked(key)
			removed++
		}
	}
	if removed > 0 {
		c.logger.Debug("swept expired entries", "removed", removed, "remaining", len(c.entries))
	}
}

// StartSweep launches the background purge loop. Stop halts it; in-flight
// Get/Set calls are never blocked by the sweep beyond normal lock hold.
func (c *Cache[T]) StartSweep(interval time.Duration) {
	if interval <= 0 {
		interval = SweepInterval
	}
	ticker := c.clock.NewTicker(interval, "cache", "sweep")
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.sweep()
			case <-c.stop:
				return
			}
		}
	}()
}

// Stop halts the background sweep. Safe to call more than once.
func (c *Cache[T]) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}
