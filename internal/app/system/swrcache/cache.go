// Package swrcache is a keyed stale-while-revalidate cache.
//
// A read returns the cached value at once when it is fresh. When it is
// stale the previous value is returned immediately and a background load
// replaces it; when there is no value the read waits for the load.
//
// A key has at most one load in flight; concurrent readers share it.
// Every invalidation starts a new generation, so a load that began before
// an invalidation lands stale and the next read starts the follow-up.
//
// A failed load is remembered for its generation. Until RetryAfter passes
// or the key is invalidated, reads report the failure instead of starting
// another load, so callers never see a load that is always running.
package swrcache

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/onepager/internal/app/system/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Mask selects the parts of a cached value an invalidation applies to. The
// meaning of individual bits belongs to the caller.
type Mask uint32

// All marks every part of the value stale.
const All Mask = ^Mask(0)

// Previous is what a LoadFunc knows about the value it replaces.
type Previous[V any] struct {
	Value V
	Found bool
	// Pending holds the scopes invalidated since Value was loaded. It is All
	// when there is no value or the freshness window has elapsed.
	Pending Mask
}

// LoadFunc fetches a fresh value for key.
type LoadFunc[V any] func(ctx context.Context, key string, prev Previous[V]) (V, error)

// Result is the outcome of a read.
type Result[V any] struct {
	Value   V
	Found   bool  // Value holds a loaded or seeded value
	Loading bool  // a load is in flight for this key
	Err     error // the newest load for this key failed
}

// Options configures a Cache. Zero values take the defaults.
type Options struct {
	Name        string
	FreshFor    time.Duration // default 30s
	IdleTTL     time.Duration // default 5m
	LoadTimeout time.Duration // default 10s
	RetryAfter  time.Duration // default 5s; back-off after a failed load
	Metrics     *metrics.CacheMetrics
	Logger      *zap.Logger
	Clock       func() time.Time
}

type entry[V any] struct {
	value     V
	found     bool
	fetchedAt time.Time
	lastUsed  time.Time

	gen      uint64 // bumped by every invalidation or seed
	valueGen uint64 // generation value was loaded under
	pending  Mask
	inflight int

	err      error // last load failure, cleared by a successful load
	errGen   uint64
	failedAt time.Time
}

// Cache is safe for concurrent use.
type Cache[V any] struct {
	name        string
	load        LoadFunc[V]
	freshFor    time.Duration
	idleTTL     time.Duration
	loadTimeout time.Duration
	retryAfter  time.Duration
	metrics     *metrics.CacheMetrics
	log         *zap.Logger
	clock       func() time.Time

	mu      sync.Mutex
	seq     uint64
	entries map[string]*entry[V]
	group   singleflight.Group
}

// New returns a Cache that fills itself with load.
func New[V any](load LoadFunc[V], opts Options) *Cache[V] {
	c := &Cache[V]{
		name:        opts.Name,
		load:        load,
		freshFor:    opts.FreshFor,
		idleTTL:     opts.IdleTTL,
		loadTimeout: opts.LoadTimeout,
		retryAfter:  opts.RetryAfter,
		metrics:     opts.Metrics,
		log:         opts.Logger,
		clock:       opts.Clock,
		entries:     make(map[string]*entry[V]),
	}
	if c.name == "" {
		c.name = "cache"
	}
	if c.freshFor <= 0 {
		c.freshFor = 30 * time.Second
	}
	if c.idleTTL <= 0 {
		c.idleTTL = 5 * time.Minute
	}
	if c.loadTimeout <= 0 {
		c.loadTimeout = 10 * time.Second
	}
	if c.retryAfter <= 0 {
		c.retryAfter = 5 * time.Second
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	if c.clock == nil {
		c.clock = time.Now
	}
	return c
}

// Name returns the cache name used in logs and metrics.
func (c *Cache[V]) Name() string { return c.name }

// Get returns the value for key, loading it when needed. It blocks only
// when nothing is cached.
func (c *Cache[V]) Get(ctx context.Context, key string) Result[V] {
	return c.read(ctx, key, true)
}

// Peek is Get without blocking: with nothing cached it starts the load and
// returns a zero Result with Loading set. After a failed load it returns
// the failure with Loading clear until the retry back-off passes.
func (c *Cache[V]) Peek(ctx context.Context, key string) Result[V] {
	return c.read(ctx, key, false)
}

func (c *Cache[V]) read(ctx context.Context, key string, wait bool) Result[V] {
	c.mu.Lock()
	e := c.entryLocked(key)
	now := c.clock()
	e.lastUsed = now

	if e.found && e.pending == 0 && now.Sub(e.fetchedAt) < c.freshFor {
		v := e.value
		c.mu.Unlock()
		c.metrics.Observe(c.name, metrics.OutcomeHit)
		return Result[V]{Value: v, Found: true}
	}

	if c.failedLocked(e, now) {
		res := Result[V]{Value: e.value, Found: e.found, Err: e.err}
		c.mu.Unlock()
		return res
	}

	if e.found {
		v := e.value
		c.mu.Unlock()
		c.metrics.Observe(c.name, metrics.OutcomeStale)
		c.revalidate(ctx, key)
		return Result[V]{Value: v, Found: true, Loading: true}
	}
	c.mu.Unlock()

	c.metrics.Observe(c.name, metrics.OutcomeMiss)
	ch := c.revalidate(ctx, key)
	if !wait {
		return Result[V]{Loading: true}
	}
	return c.await(ctx, ch, Result[V]{})
}

// Refresh marks key fully stale and waits for a load that started after
// the invalidation. A load already in flight is awaited first rather than
// duplicated. On failure the previous value, if any, is returned alongside
// the error.
func (c *Cache[V]) Refresh(ctx context.Context, key string) Result[V] {
	c.mu.Lock()
	e := c.entryLocked(key)
	e.lastUsed = c.clock()
	c.bumpLocked(e, All)
	target := e.gen
	prev := Result[V]{Value: e.value, Found: e.found}
	c.mu.Unlock()

	for {
		res := c.await(ctx, c.revalidate(ctx, key), prev)
		if res.Err != nil {
			return res
		}
		c.mu.Lock()
		cur := c.entryLocked(key)
		landed := cur.found && cur.valueGen >= target
		c.mu.Unlock()
		if landed {
			return res
		}
		// The flight we joined began before the invalidation.
		prev = Result[V]{Value: res.Value, Found: true}
	}
}

// Invalidate marks the masked scopes of key stale. The next read reloads.
// A zero mask is treated as All. Keys with no entry are ignored.
func (c *Cache[V]) Invalidate(key string, mask Mask) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		c.bumpLocked(e, mask)
	}
}

// InvalidateWhere applies Invalidate to every entry whose cached value
// matches pred and reports how many entries were marked.
func (c *Cache[V]) InvalidateWhere(pred func(key string, v V) bool, mask Mask) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k, e := range c.entries {
		if e.found && pred(k, e.value) {
			c.bumpLocked(e, mask)
			n++
		}
	}
	return n
}

// Seed stores v for key when nothing is cached yet. Seeded values are fresh
// for one window and win over any load already in flight. It reports
// whether v was stored.
func (c *Cache[V]) Seed(key string, v V) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entryLocked(key)
	if e.found {
		return false
	}
	now := c.clock()
	c.seq++
	e.gen = c.seq
	e.valueGen = c.seq
	e.value = v
	e.found = true
	e.fetchedAt = now
	e.lastUsed = now
	e.pending = 0
	e.err = nil
	return true
}

// Sweep evicts entries unused for longer than the idle TTL. Entries with a
// load in flight are kept. It returns the number evicted.
func (c *Cache[V]) Sweep() int {
	c.mu.Lock()
	cutoff := c.clock().Add(-c.idleTTL)
	n := 0
	for k, e := range c.entries {
		if e.inflight == 0 && e.lastUsed.Before(cutoff) {
			delete(c.entries, k)
			n++
		}
	}
	size := len(c.entries)
	c.mu.Unlock()

	for i := 0; i < n; i++ {
		c.metrics.Observe(c.name, metrics.OutcomeEvicted)
	}
	c.metrics.SetEntries(c.name, size)
	return n
}

// Len returns the number of entries.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear drops every entry.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]*entry[V])
	c.mu.Unlock()
	c.metrics.SetEntries(c.name, 0)
}

func (c *Cache[V]) entryLocked(key string) *entry[V] {
	e, ok := c.entries[key]
	if !ok {
		e = &entry[V]{gen: c.seq, lastUsed: c.clock()}
		c.entries[key] = e
	}
	return e
}

// failedLocked reports whether the newest outcome for e's generation is a
// failure still inside the retry back-off.
func (c *Cache[V]) failedLocked(e *entry[V], now time.Time) bool {
	return e.err != nil && e.errGen == e.gen && now.Sub(e.failedAt) < c.retryAfter
}

func (c *Cache[V]) bumpLocked(e *entry[V], mask Mask) {
	if mask == 0 {
		mask = All
	}
	c.seq++
	e.gen = c.seq
	e.pending |= mask
}

// revalidate joins the load in flight for key or starts one.
func (c *Cache[V]) revalidate(ctx context.Context, key string) <-chan singleflight.Result {
	return c.group.DoChan(key, func() (any, error) {
		return c.run(ctx, key)
	})
}

// run loads key under the generation current when the flight starts.
func (c *Cache[V]) run(ctx context.Context, key string) (any, error) {
	c.mu.Lock()
	e := c.entryLocked(key)
	now := c.clock()
	if e.found && e.pending == 0 && now.Sub(e.fetchedAt) < c.freshFor {
		// The previous flight already landed; late joiners reuse it.
		v := e.value
		c.mu.Unlock()
		return v, nil
	}
	gen := e.gen
	prev := Previous[V]{Value: e.value, Found: e.found, Pending: e.pending}
	if !e.found || now.Sub(e.fetchedAt) >= c.freshFor {
		prev.Pending = All
	}
	e.inflight++
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		if e, ok := c.entries[key]; ok && e.inflight > 0 {
			e.inflight--
		}
		c.mu.Unlock()
	}()

	// The load outlives the caller that started it; other readers share it.
	lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.loadTimeout)
	defer cancel()

	c.metrics.Observe(c.name, metrics.OutcomeLoad)
	v, err := c.load(lctx, key, prev)
	if err != nil {
		c.metrics.Observe(c.name, metrics.OutcomeLoadError)
		c.log.Debug("cache load failed",
			zap.String("cache", c.name),
			zap.String("key", key),
			zap.Error(err))
		c.fail(key, gen, err)
		return nil, err
	}
	return c.store(key, gen, v), nil
}

// fail records err as the outcome of the load for gen.
func (c *Cache[V]) fail(key string, gen uint64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entryLocked(key)
	if gen < e.errGen {
		return
	}
	e.err = err
	e.errGen = gen
	e.failedAt = c.clock()
}

// store writes v unless a newer generation already landed, and returns the
// value now held for key.
func (c *Cache[V]) store(key string, gen uint64, v V) V {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.entryLocked(key)
	if e.found && gen < e.valueGen {
		c.metrics.Observe(c.name, metrics.OutcomeDiscarded)
		return e.value
	}
	e.value = v
	e.found = true
	e.fetchedAt = c.clock()
	e.valueGen = gen
	if gen >= e.errGen {
		e.err = nil
	}
	if gen == e.gen {
		e.pending = 0
	}
	c.metrics.SetEntries(c.name, len(c.entries))
	return v
}

func (c *Cache[V]) await(ctx context.Context, ch <-chan singleflight.Result, fallback Result[V]) Result[V] {
	select {
	case res := <-ch:
		if res.Err != nil {
			fallback.Err = res.Err
			return fallback
		}
		return Result[V]{Value: res.Val.(V), Found: true}
	case <-ctx.Done():
		fallback.Loading = true
		fallback.Err = ctx.Err()
		return fallback
	}
}
