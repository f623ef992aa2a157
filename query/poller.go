package query

import (
	"context"
	"sync"
	"time"
)

// Poller re-runs one keyed read on a fixed cadence. It approximates push
// updates for the near-real-time views; the interval is a staleness
// ceiling, not a delivery guarantee.
type Poller struct {
	stopOnce sync.Once
	stopCh   chan struct{}
}

// Stop halts the poller. Stopping twice is safe. Pollers also stop when
// their context is cancelled or the cache closes, so an unmounting view
// never leaves an orphaned timer behind.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopCh)
	})
}

// Poll starts polling the keyed read at the given interval. The first fetch
// runs immediately so consumers are not blank for a full interval; each
// subsequent tick forces a re-fetch regardless of freshness. The poller
// counts as an observer of the key, keeping the entry cached while active.
func Poll[T any](ctx context.Context, c *Cache, key Key, interval time.Duration, fn func(context.Context) (T, error)) *Poller {
	poller := &Poller{stopCh: make(chan struct{})}
	c.addObserver(key)
	c.trackPoller(poller)

	go func() {
		defer c.removeObserver(key)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		if _, err := Fetch(ctx, c, key, fn); err != nil {
			c.logger.Debug().Str("key", key.String()).Err(err).Msg("initial poll fetch failed")
		}

		for {
			select {
			case <-ctx.Done():
				return
			case <-poller.stopCh:
				return
			case <-c.stopCh:
				return
			case <-ticker.C:
				if _, err := Fetch(ctx, c, key, fn, WithForce()); err != nil {
					c.logger.Debug().Str("key", key.String()).Err(err).Msg("poll fetch failed")
				}
			}
		}
	}()

	return poller
}
