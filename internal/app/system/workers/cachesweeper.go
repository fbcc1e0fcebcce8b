// internal/app/system/workers/cachesweeper.go
package workers

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Sweeper evicts idle cache entries. session.Service satisfies it.
type Sweeper interface {
	Sweep() int
}

// CacheSweeper is a background worker that bounds cache memory by evicting
// entries nobody has read for a while.
type CacheSweeper struct {
	caches   Sweeper
	log      *zap.Logger
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewCacheSweeper creates a new sweeper.
//
// Parameters:
//   - caches: what to sweep
//   - logger: zap logger for logging
//   - interval: how often to sweep (e.g., 1 minute)
func NewCacheSweeper(caches Sweeper, logger *zap.Logger, interval time.Duration) *CacheSweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &CacheSweeper{
		caches:   caches,
		log:      logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background sweep loop.
func (w *CacheSweeper) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("cache sweeper started", zap.Duration("interval", w.interval))
}

// Stop signals the worker to stop and waits for it to finish. It is safe to
// call more than once.
func (w *CacheSweeper) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.wg.Wait()
		w.log.Info("cache sweeper stopped")
	})
}

func (w *CacheSweeper) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.sweep()
		}
	}
}

func (w *CacheSweeper) sweep() {
	if n := w.caches.Sweep(); n > 0 {
		w.log.Debug("evicted idle cache entries", zap.Int("count", n))
	}
}
