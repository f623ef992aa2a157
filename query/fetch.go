package query

import (
	"context"

	interrors "github.com/dialdesk/go-console/internal/errors"
)

type fetchConfig struct {
	force bool
}

// FetchOption defines a function type to modify one Fetch call.
type FetchOption func(*fetchConfig)

// WithForce bypasses the freshness check so the fetcher always runs.
// Pollers use it: a poll re-reads on cadence regardless of staleness.
func WithForce() FetchOption {
	return func(cfg *fetchConfig) {
		cfg.force = true
	}
}

// Fetch reads the keyed resource through the cache. A fresh entry is served
// without a network call. Otherwise fn runs through the pipeline; identical
// keys requested while a fetch is in flight join that fetch instead of
// issuing a duplicate request (at most one concurrent fetch per key).
//
// A completed fetch marks the entry fresh, stores fn so invalidation can
// re-run the read in the background, and publishes TopicUpdated. On fetch
// failure the previous value is kept (still visible via Peek) and the entry
// is marked StatusError. A fetch overtaken by an invalidation returns its
// result to the caller but leaves the entry alone: the value predates the
// write, and the invalidation's refetch supplies the current one.
func Fetch[T any](ctx context.Context, c *Cache, key Key, fn func(context.Context) (T, error), options ...FetchOption) (T, error) {
	var zero T

	cfg := fetchConfig{}
	for _, opt := range options {
		opt(&cfg)
	}

	ks := key.String()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return zero, interrors.ErrCacheClosed
	}
	e := c.ensureLocked(ks)
	e.refetch = func() {
		go func() {
			if _, err := Fetch(context.Background(), c, key, fn, WithForce()); err != nil {
				c.logger.Debug().Str("key", ks).Err(err).Msg("background refetch failed")
			}
		}()
	}
	if !cfg.force && c.freshLocked(e) {
		if value, ok := e.value.(T); ok {
			c.mu.Unlock()
			return value, nil
		}
	}
	c.mu.Unlock()

	result, err, _ := c.group.Do(ks, func() (any, error) {
		c.mu.Lock()
		e := c.ensureLocked(ks)
		e.status = StatusFetching
		gen := e.gen
		c.mu.Unlock()

		value, fetchErr := fn(ctx)

		c.mu.Lock()
		e = c.ensureLocked(ks)
		if e.gen != gen {
			// Invalidated while in flight: this result predates the write.
			// The entry belongs to the refetch the invalidation scheduled.
			c.mu.Unlock()
			return value, fetchErr
		}
		if fetchErr != nil {
			e.status = StatusError
			e.err = fetchErr
			c.mu.Unlock()
			return nil, fetchErr
		}
		e.value = value
		e.err = nil
		e.fetchedAt = c.nowTime()
		e.status = StatusFresh
		c.mu.Unlock()

		c.bus.Publish(TopicUpdated, ks)
		return value, nil
	})
	if err != nil {
		return zero, err
	}
	return result.(T), nil
}
