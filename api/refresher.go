/*
refresher.go - Periodic reconciliation refresher

PURPOSE:
  Re-runs reconciliation on a timer. The engine classifies months
  against the wall clock (current vs. future, elapsed fraction for
  coverage pace), so a result computed at startup goes stale as days
  pass even when the store never changes.

DESIGN:
  - One background goroutine driven by a ticker
  - Each tick re-runs the full fold; the engine is deterministic and
    cheap at household scale, so no staleness detection is needed

CONFIGURATION:
  - Interval: How often to refresh (default: 1 hour)
  - Enabled:  Whether the refresher is active (default: true)

USAGE:
  refresher := NewRefresher(handler)
  refresher.Start()
  // ... later
  refresher.Stop()

SEE ALSO:
  - handlers.go: Reconcile(), the cache being refreshed
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"
)

// Refresher re-runs reconciliation on a fixed interval.
type Refresher struct {
	Handler  *Handler
	Interval time.Duration
	Enabled  bool

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewRefresher creates a refresher with the default interval.
func NewRefresher(handler *Handler) *Refresher {
	return &Refresher{
		Handler:  handler,
		Interval: 1 * time.Hour,
		Enabled:  true,
		stop:     make(chan struct{}),
	}
}

// Start begins the refresher.
func (rf *Refresher) Start() {
	rf.mu.Lock()
	defer rf.mu.Unlock()

	if !rf.Enabled {
		log.Println("[Refresher] Disabled, not starting")
		return
	}

	rf.ticker = time.NewTicker(rf.Interval)
	rf.wg.Add(1)
	go rf.run()

	log.Printf("[Refresher] Started with interval: %v", rf.Interval)
}

// Stop stops the refresher.
func (rf *Refresher) Stop() {
	rf.mu.Lock()
	defer rf.mu.Unlock()

	if rf.ticker != nil {
		rf.ticker.Stop()
		close(rf.stop)
		rf.wg.Wait()
		log.Println("[Refresher] Stopped")
	}
}

func (rf *Refresher) run() {
	defer rf.wg.Done()

	for {
		select {
		case <-rf.ticker.C:
			if err := rf.Handler.Reconcile(context.Background()); err != nil {
				log.Printf("[Refresher] Reconciliation failed: %v", err)
			}
		case <-rf.stop:
			return
		}
	}
}
