package swrcache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dalemusser/onepager/internal/app/system/metrics"
	"github.com/dalemusser/onepager/internal/app/system/swrcache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

// countingLoader returns "<key>-<n>" where n is the call number.
type countingLoader struct {
	calls   atomic.Int32
	pending []swrcache.Mask
	mu      sync.Mutex
	gate    chan struct{} // when non-nil, each load waits for a receive
	started chan struct{} // when non-nil, signalled as each load begins
	err     error

	active atomic.Int32
	peak   atomic.Int32 // most loads ever running at once
}

func (l *countingLoader) load(ctx context.Context, key string, prev swrcache.Previous[string]) (string, error) {
	l.mu.Lock()
	l.pending = append(l.pending, prev.Pending)
	err := l.err
	l.mu.Unlock()
	n := l.calls.Add(1)
	running := l.active.Add(1)
	defer l.active.Add(-1)
	for {
		p := l.peak.Load()
		if running <= p || l.peak.CompareAndSwap(p, running) {
			break
		}
	}
	if l.started != nil {
		l.started <- struct{}{}
	}
	if l.gate != nil {
		<-l.gate
	}
	if err != nil {
		return "", err
	}
	return key + "-" + string(rune('0'+n)), nil
}

func (l *countingLoader) setErr(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.err = err
}

func (l *countingLoader) lastPending() swrcache.Mask {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pending[len(l.pending)-1]
}

func newCache(l *countingLoader, clock *fakeClock) *swrcache.Cache[string] {
	return swrcache.New(l.load, swrcache.Options{
		Name:     "test",
		FreshFor: 30 * time.Second,
		IdleTTL:  5 * time.Minute,
		Clock:    clock.Now,
		Metrics:  metrics.NewCacheMetrics(prometheus.NewRegistry()),
	})
}

func TestGet_MissThenHit(t *testing.T) {
	l := &countingLoader{}
	c := newCache(l, newFakeClock())
	ctx := context.Background()

	first := c.Get(ctx, "u1")
	require.NoError(t, first.Err)
	assert.True(t, first.Found)
	assert.False(t, first.Loading)
	assert.Equal(t, "u1-1", first.Value)

	second := c.Get(ctx, "u1")
	assert.Equal(t, "u1-1", second.Value)
	assert.False(t, second.Loading)
	assert.Equal(t, int32(1), l.calls.Load(), "second read inside the window must not reach the backend")
}

func TestGet_ConcurrentReadsShareOneLoad(t *testing.T) {
	l := &countingLoader{gate: make(chan struct{}), started: make(chan struct{}, 1)}
	c := newCache(l, newFakeClock())
	ctx := context.Background()

	const readers = 8
	results := make([]swrcache.Result[string], readers)
	var wg sync.WaitGroup
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = c.Get(ctx, "u1")
		}(i)
	}

	<-l.started
	close(l.gate)
	wg.Wait()

	assert.Equal(t, int32(1), l.calls.Load())
	for _, r := range results {
		require.NoError(t, r.Err)
		assert.Equal(t, "u1-1", r.Value)
	}
}

func TestGet_StaleReturnsPreviousAndRevalidates(t *testing.T) {
	l := &countingLoader{}
	clock := newFakeClock()
	c := newCache(l, clock)
	ctx := context.Background()

	c.Get(ctx, "u1")
	clock.Advance(31 * time.Second)

	stale := c.Get(ctx, "u1")
	assert.Equal(t, "u1-1", stale.Value, "stale read serves the previous value")
	assert.True(t, stale.Loading)

	require.Eventually(t, func() bool {
		return c.Get(ctx, "u1").Value == "u1-2"
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(2), l.calls.Load())
	assert.Equal(t, swrcache.All, l.lastPending(), "an expired window reloads every scope")
}

func TestInvalidate_DuringFlightKeepsEntryStale(t *testing.T) {
	l := &countingLoader{gate: make(chan struct{}), started: make(chan struct{}, 2)}
	c := newCache(l, newFakeClock())
	ctx := context.Background()

	done := make(chan swrcache.Result[string])
	go func() { done <- c.Get(ctx, "u1") }()

	<-l.started
	c.Invalidate("u1", swrcache.All)
	l.gate <- struct{}{}
	first := <-done
	assert.Equal(t, "u1-1", first.Value)

	// The result of the pre-invalidation load must not count as fresh.
	next := c.Get(ctx, "u1")
	assert.True(t, next.Loading)
	<-l.started
	l.gate <- struct{}{}

	require.Eventually(t, func() bool {
		r := c.Get(ctx, "u1")
		return r.Value == "u1-2" && !r.Loading
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(2), l.calls.Load())
}

func TestInvalidate_ScopeIsPassedToLoader(t *testing.T) {
	l := &countingLoader{}
	c := newCache(l, newFakeClock())
	ctx := context.Background()

	c.Get(ctx, "u1")
	c.Invalidate("u1", 1)
	c.Invalidate("u1", 4)

	r := c.Refresh(ctx, "u1")
	require.NoError(t, r.Err)
	assert.Equal(t, swrcache.All, l.lastPending(), "refresh reloads every scope")

	c.Invalidate("u1", 2)
	c.Get(ctx, "u1")
	require.Eventually(t, func() bool { return l.calls.Load() == 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, swrcache.Mask(2), l.lastPending())
}

func TestInvalidate_UnknownKeyIsIgnored(t *testing.T) {
	c := newCache(&countingLoader{}, newFakeClock())
	c.Invalidate("nobody", swrcache.All)
	assert.Equal(t, 0, c.Len())
}

func TestSeed_FreshForOneWindow(t *testing.T) {
	l := &countingLoader{}
	clock := newFakeClock()
	c := newCache(l, clock)
	ctx := context.Background()

	require.True(t, c.Seed("u1", "seeded"))
	assert.False(t, c.Seed("u1", "again"), "seed never overwrites a cached value")

	r := c.Get(ctx, "u1")
	assert.Equal(t, "seeded", r.Value)
	assert.False(t, r.Loading)
	assert.Equal(t, int32(0), l.calls.Load())

	clock.Advance(31 * time.Second)
	assert.True(t, c.Get(ctx, "u1").Loading)
}

func TestSeed_WinsOverOlderInFlightLoad(t *testing.T) {
	l := &countingLoader{gate: make(chan struct{}), started: make(chan struct{}, 1)}
	c := newCache(l, newFakeClock())
	ctx := context.Background()

	done := make(chan swrcache.Result[string])
	go func() { done <- c.Get(ctx, "u1") }()
	<-l.started

	require.True(t, c.Seed("u1", "server-rendered"))
	close(l.gate)

	r := <-done
	assert.Equal(t, "server-rendered", r.Value)
	assert.Equal(t, "server-rendered", c.Get(ctx, "u1").Value)
}

func TestGet_LoadErrorWithoutValue(t *testing.T) {
	l := &countingLoader{err: errors.New("backend down")}
	c := newCache(l, newFakeClock())

	r := c.Get(context.Background(), "u1")
	require.Error(t, r.Err)
	assert.False(t, r.Found)
	assert.False(t, r.Loading)
}

func TestRefresh_ErrorKeepsPreviousValue(t *testing.T) {
	l := &countingLoader{}
	clock := newFakeClock()
	c := newCache(l, clock)
	ctx := context.Background()

	c.Get(ctx, "u1")
	l.setErr(errors.New("backend down"))

	r := c.Refresh(ctx, "u1")
	require.Error(t, r.Err)
	assert.True(t, r.Found)
	assert.Equal(t, "u1-1", r.Value)

	// The failure is reported until the back-off passes, then retried.
	again := c.Get(ctx, "u1")
	assert.False(t, again.Loading)
	assert.Error(t, again.Err)
	assert.Equal(t, "u1-1", again.Value)
	assert.Equal(t, int32(2), l.calls.Load())

	clock.Advance(6 * time.Second)
	assert.True(t, c.Get(ctx, "u1").Loading)
	require.Eventually(t, func() bool { return l.calls.Load() == 3 }, time.Second, 5*time.Millisecond)
}

func TestPeek_FailedLoadStopsLoading(t *testing.T) {
	l := &countingLoader{err: errors.New("backend down")}
	clock := newFakeClock()
	c := newCache(l, clock)
	ctx := context.Background()

	assert.True(t, c.Peek(ctx, "u1").Loading)
	require.Eventually(t, func() bool {
		r := c.Peek(ctx, "u1")
		return !r.Loading && r.Err != nil
	}, time.Second, 5*time.Millisecond)

	for i := 0; i < 5; i++ {
		r := c.Peek(ctx, "u1")
		assert.False(t, r.Found)
		assert.False(t, r.Loading)
		assert.Error(t, r.Err)
	}
	assert.Equal(t, int32(1), l.calls.Load(), "reads inside the back-off must not retry")

	clock.Advance(6 * time.Second)
	assert.True(t, c.Peek(ctx, "u1").Loading)
	require.Eventually(t, func() bool { return l.calls.Load() == 2 }, time.Second, 5*time.Millisecond)
}

func TestGet_FailedRevalidationServesStaleWithoutLoading(t *testing.T) {
	l := &countingLoader{}
	clock := newFakeClock()
	c := newCache(l, clock)
	ctx := context.Background()

	c.Get(ctx, "u1")
	clock.Advance(31 * time.Second)
	l.setErr(errors.New("backend down"))

	stale := c.Get(ctx, "u1")
	assert.Equal(t, "u1-1", stale.Value)
	assert.True(t, stale.Loading)

	require.Eventually(t, func() bool {
		r := c.Get(ctx, "u1")
		return !r.Loading && r.Err != nil
	}, time.Second, 5*time.Millisecond)

	for i := 0; i < 5; i++ {
		r := c.Get(ctx, "u1")
		assert.Equal(t, "u1-1", r.Value)
		assert.False(t, r.Loading)
	}
	assert.Equal(t, int32(2), l.calls.Load())
}

func TestInvalidate_AfterFailureRetriesAtOnce(t *testing.T) {
	l := &countingLoader{err: errors.New("backend down")}
	c := newCache(l, newFakeClock())
	ctx := context.Background()

	require.Error(t, c.Get(ctx, "u1").Err)
	l.setErr(nil)
	c.Invalidate("u1", swrcache.All)

	r := c.Get(ctx, "u1")
	require.NoError(t, r.Err)
	assert.Equal(t, "u1-2", r.Value)
}

func TestInvalidate_DuringFlightDoesNotStartSecondLoad(t *testing.T) {
	l := &countingLoader{gate: make(chan struct{}), started: make(chan struct{}, 4)}
	c := newCache(l, newFakeClock())
	ctx := context.Background()

	c.Peek(ctx, "u1")
	<-l.started
	c.Invalidate("u1", swrcache.All)
	c.Peek(ctx, "u1")
	c.Invalidate("u1", swrcache.All)
	c.Peek(ctx, "u1")
	assert.Equal(t, int32(1), l.calls.Load(), "one load per key at a time")

	l.gate <- struct{}{}
	// The first load lands stale; the next read starts the single follow-up.
	require.Eventually(t, func() bool {
		c.Peek(ctx, "u1")
		return l.calls.Load() == 2
	}, time.Second, 5*time.Millisecond)
	<-l.started
	close(l.gate)

	require.Eventually(t, func() bool {
		r := c.Peek(ctx, "u1")
		return r.Value == "u1-2" && !r.Loading
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(2), l.calls.Load())
	assert.Equal(t, int32(1), l.peak.Load())
}

func TestRefresh_WaitsForLoadAfterInvalidation(t *testing.T) {
	l := &countingLoader{gate: make(chan struct{}), started: make(chan struct{}, 4)}
	c := newCache(l, newFakeClock())
	ctx := context.Background()

	go c.Get(ctx, "u1")
	<-l.started

	done := make(chan swrcache.Result[string], 1)
	go func() { done <- c.Refresh(ctx, "u1") }()

	l.gate <- struct{}{}
	<-l.started
	l.gate <- struct{}{}

	r := <-done
	require.NoError(t, r.Err)
	assert.Equal(t, "u1-2", r.Value, "refresh returns a load that began after it")
	assert.Equal(t, int32(2), l.calls.Load())
	assert.Equal(t, int32(1), l.peak.Load())
}

func TestPeek_DoesNotBlock(t *testing.T) {
	l := &countingLoader{gate: make(chan struct{})}
	c := newCache(l, newFakeClock())
	ctx := context.Background()

	r := c.Peek(ctx, "u1")
	assert.False(t, r.Found)
	assert.True(t, r.Loading)

	close(l.gate)
	require.Eventually(t, func() bool {
		return c.Peek(ctx, "u1").Value == "u1-1"
	}, time.Second, 5*time.Millisecond)
}

func TestInvalidateWhere(t *testing.T) {
	c := newCache(&countingLoader{}, newFakeClock())
	ctx := context.Background()

	c.Get(ctx, "a")
	c.Get(ctx, "b")

	n := c.InvalidateWhere(func(key, v string) bool { return key == "b" }, swrcache.All)
	assert.Equal(t, 1, n)
	assert.False(t, c.Get(ctx, "a").Loading)
	assert.True(t, c.Get(ctx, "b").Loading)
}

func TestSweep_EvictsIdleEntries(t *testing.T) {
	l := &countingLoader{}
	clock := newFakeClock()
	c := newCache(l, clock)
	ctx := context.Background()

	c.Get(ctx, "idle")
	clock.Advance(4 * time.Minute)
	c.Get(ctx, "busy")
	clock.Advance(2 * time.Minute)

	assert.Equal(t, 1, c.Sweep())
	assert.Equal(t, 1, c.Len())

	c.Get(ctx, "idle")
	assert.Equal(t, int32(3), l.calls.Load(), "an evicted key loads again")
}
