package query

import (
	"context"
)

// MutationOptions declares the cache effect of a write and the caller's
// feedback hooks. Invalidation happens before OnSuccess runs, but the
// resulting refetches are asynchronous: callers must not assume immediate
// post-mutation consistency and should re-render from the eventual refetch.
type MutationOptions struct {
	// Invalidates lists the exact keys to mark stale on success.
	Invalidates []Key

	// InvalidatesPrefixes lists resource types whose cached keys are all
	// marked stale on success, used when a write affects unknown
	// pagination/filter combinations.
	InvalidatesPrefixes []string

	// OnSuccess runs after invalidation has been issued.
	OnSuccess func()

	// OnError owns user feedback for the failure; the cache is untouched.
	OnError func(error)
}

// Mutate executes a write through the pipeline. On success it invalidates
// the declared keys; on failure it touches no cache entry. Mutations are
// never retried automatically: the user re-invokes the action.
//
// Concurrent mutations against overlapping keys are not serialized; the
// last write to complete wins at the backend. This is an accepted race, the
// platform carries no compare-and-swap or version token.
func Mutate[T any](ctx context.Context, c *Cache, fn func(context.Context) (T, error), opts MutationOptions) (T, error) {
	value, err := fn(ctx)
	if err != nil {
		if opts.OnError != nil {
			opts.OnError(err)
		}
		var zero T
		return zero, err
	}

	c.Invalidate(opts.Invalidates...)
	for _, resource := range opts.InvalidatesPrefixes {
		c.InvalidatePrefix(resource)
	}
	if opts.OnSuccess != nil {
		opts.OnSuccess()
	}
	return value, nil
}
