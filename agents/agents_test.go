package agents_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/dialdesk/go-console/agents"
	"github.com/dialdesk/go-console/query"
	"github.com/dialdesk/go-console/session"
	"github.com/dialdesk/go-console/session/repofakes"
	"github.com/dialdesk/go-console/transport"
)

const testTeamID = "team-1"

// fakeBackend is an httptest platform API serving the agent endpoints, with
// per-path hit counters.
type fakeBackend struct {
	mu      sync.Mutex
	hits    map[string]int
	block   chan struct{} // when set, list requests wait on it
	fail401 atomic.Bool
	server  *httptest.Server
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()

	backend := &fakeBackend{hits: map[string]int{}}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /agents", func(w http.ResponseWriter, r *http.Request) {
		block := backend.count(r)
		if backend.fail401.Load() {
			writeJSON(w, http.StatusUnauthorized, `{"message":"token expired"}`)
			return
		}
		if block != nil {
			<-block
		}
		writeJSON(w, http.StatusOK, `{"agents":[{"id":"agent-1","teamId":"team-1","name":"Jo","status":"online"}],"total":1}`)
	})
	mux.HandleFunc("GET /agents/agent-1/status", func(w http.ResponseWriter, r *http.Request) {
		backend.count(r)
		writeJSON(w, http.StatusOK, `{"status":"online"}`)
	})
	mux.HandleFunc("PATCH /agents/agent-1/status", func(w http.ResponseWriter, r *http.Request) {
		backend.count(r)
		writeJSON(w, http.StatusOK, `{"id":"agent-1","teamId":"team-1","name":"Jo","status":"paused"}`)
	})
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		backend.count(r)
		writeJSON(w, http.StatusUnauthorized, `{"message":"Invalid credentials"}`)
	})
	backend.server = httptest.NewServer(mux)
	t.Cleanup(backend.server.Close)
	return backend
}

func (b *fakeBackend) count(r *http.Request) chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hits[r.Method+" "+r.URL.Path]++
	return b.block
}

func (b *fakeBackend) hitCount(route string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hits[route]
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

type testFixture struct {
	backend *fakeBackend
	store   *session.Store
	cache   *query.Cache
	client  *agents.Client
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	backend := newFakeBackend(t)

	repo := repofakes.NewFakeSessionRepo()
	require.NoError(t, repo.Save(session.Session{
		User:  &session.User{ID: "user-1", Email: "a@b.com"},
		Token: &oauth2.Token{AccessToken: "valid-token"},
	}))
	store, err := session.NewStore(repo)
	require.NoError(t, err)

	pipeline, err := transport.NewPipeline(backend.server.URL, store,
		transport.WithRetryCount(0),
		transport.WithUnauthorizedHandler(func() {
			store.ForceLogout("session expired")
		}),
	)
	require.NoError(t, err)
	store.SetTransport(pipeline)

	cache := query.NewCache()
	t.Cleanup(cache.Close)

	client, err := agents.New(pipeline, cache)
	require.NoError(t, err)

	return &testFixture{backend: backend, store: store, cache: cache, client: client}
}

func TestConcurrentIdenticalListsIssueOneRequest(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.block = make(chan struct{})

	var wg sync.WaitGroup
	var errCount atomic.Int32
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.client.List(context.Background(), testTeamID, 10, 0, map[string]string{}); err != nil {
				errCount.Add(1)
			}
		}()
	}

	require.Eventually(t, func() bool {
		return f.backend.hitCount("GET /agents") == 1
	}, time.Second, 5*time.Millisecond)
	close(f.backend.block)
	wg.Wait()

	require.Zero(t, errCount.Load())
	require.Equal(t, 1, f.backend.hitCount("GET /agents"))
}

func TestListServesFromCacheWhileFresh(t *testing.T) {
	f := setupTestFixture(t)

	first, err := f.client.List(context.Background(), testTeamID, 10, 0, nil)
	require.NoError(t, err)
	require.Len(t, first, 1)

	_, err = f.client.List(context.Background(), testTeamID, 10, 0, nil)
	require.NoError(t, err)
	require.Equal(t, 1, f.backend.hitCount("GET /agents"))

	// different pagination is a different read
	_, err = f.client.List(context.Background(), testTeamID, 10, 10, nil)
	require.NoError(t, err)
	require.Equal(t, 2, f.backend.hitCount("GET /agents"))
}

func TestUpdateStatusInvalidatesStatusAndRoster(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.client.List(context.Background(), testTeamID, 10, 0, nil)
	require.NoError(t, err)
	status, err := f.client.LiveStatus(context.Background(), "agent-1")
	require.NoError(t, err)
	require.Equal(t, agents.StatusOnline, status)

	updated, err := f.client.UpdateStatus(context.Background(), "agent-1", agents.StatusPaused)
	require.NoError(t, err)
	require.Equal(t, agents.StatusPaused, updated.Status)

	// both invalidated keys refetch in the background
	require.Eventually(t, func() bool {
		return f.backend.hitCount("GET /agents") == 2 &&
			f.backend.hitCount("GET /agents/agent-1/status") == 2
	}, time.Second, 5*time.Millisecond)
}

func TestRejectedReloginKeepsCredentialErrorLocal(t *testing.T) {
	// Re-logging-in while the old token is still held sends the stale bearer
	// on the login call; its 401 must not be mistaken for session expiry.
	f := setupTestFixture(t)

	err := f.store.Login(context.Background(), session.Credentials{Email: "a@b.com", Password: "wrong"})
	require.Error(t, err)

	current := f.store.Current()
	require.Equal(t, "Invalid credentials", current.Err)
	require.True(t, current.IsAuthenticated())
}

func TestUnauthorizedReadClearsSession(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.fail401.Store(true)

	_, err := f.client.List(context.Background(), testTeamID, 10, 0, nil)
	require.Error(t, err)
	require.False(t, f.store.Current().IsAuthenticated())
	require.Equal(t, "session expired", f.store.Current().Err)
}
