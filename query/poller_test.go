package query_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dialdesk/go-console/query"
)

func TestPollerRefetchesOnCadence(t *testing.T) {
	cache := newCache(t)
	fetcher := &countingFetcher{}
	key := query.NewKey("liveCalls", "team-1")

	poller := query.Poll(context.Background(), cache, key, 10*time.Millisecond, fetcher.fetch)
	defer poller.Stop()

	// polling re-reads on cadence regardless of freshness
	require.Eventually(t, func() bool {
		return fetcher.calls.Load() >= 3
	}, time.Second, 5*time.Millisecond)
}

func TestPollerStops(t *testing.T) {
	cache := newCache(t)
	fetcher := &countingFetcher{}
	key := query.NewKey("liveCalls", "team-1")

	poller := query.Poll(context.Background(), cache, key, 10*time.Millisecond, fetcher.fetch)
	require.Eventually(t, func() bool {
		return fetcher.calls.Load() >= 2
	}, time.Second, 5*time.Millisecond)

	poller.Stop()
	poller.Stop() // stopping twice is safe

	stopped := fetcher.calls.Load()
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, stopped, fetcher.calls.Load())
}

func TestPollerStopsOnContextCancel(t *testing.T) {
	cache := newCache(t)
	fetcher := &countingFetcher{}
	key := query.NewKey("agentQueue", "team-1")

	ctx, cancel := context.WithCancel(context.Background())
	query.Poll(ctx, cache, key, 10*time.Millisecond, fetcher.fetch)

	require.Eventually(t, func() bool {
		return fetcher.calls.Load() >= 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	time.Sleep(20 * time.Millisecond)
	stopped := fetcher.calls.Load()
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, stopped, fetcher.calls.Load())
}

func TestCacheCloseStopsPollers(t *testing.T) {
	cache := query.NewCache()
	fetcher := &countingFetcher{}
	key := query.NewKey("callAlerts", "team-1")

	query.Poll(context.Background(), cache, key, 10*time.Millisecond, fetcher.fetch)
	require.Eventually(t, func() bool {
		return fetcher.calls.Load() >= 2
	}, time.Second, 5*time.Millisecond)

	cache.Close()
	time.Sleep(20 * time.Millisecond)
	stopped := fetcher.calls.Load()
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, stopped, fetcher.calls.Load())
}
