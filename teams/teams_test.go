package teams_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dialdesk/go-console/query"
	"github.com/dialdesk/go-console/teams"
	"github.com/dialdesk/go-console/transport"
)

type staticTokens struct{}

func (staticTokens) Token() string { return "test-token" }

func newTestClient(t *testing.T, handler http.Handler) *teams.Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	pipeline, err := transport.NewPipeline(server.URL, staticTokens{}, transport.WithRetryCount(0))
	require.NoError(t, err)

	cache := query.NewCache()
	t.Cleanup(cache.Close)

	client, err := teams.New(pipeline, cache)
	require.NoError(t, err)
	return client
}

func TestInviteRefreshesPendingInvitations(t *testing.T) {
	var invitationHits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /teams/team-1/invitations", func(w http.ResponseWriter, _ *http.Request) {
		invitationHits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"invitations":[]}`))
	})
	mux.HandleFunc("POST /teams/team-1/invitations", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"inv-1","teamId":"team-1","email":"new@agent.com","role":"agent","status":"pending"}`))
	})
	client := newTestClient(t, mux)

	_, err := client.Invitations(context.Background(), "team-1")
	require.NoError(t, err)

	invitation, err := client.Invite(context.Background(), "team-1", "new@agent.com", teams.RoleAgent)
	require.NoError(t, err)
	require.Equal(t, "pending", invitation.Status)

	require.Eventually(t, func() bool {
		return invitationHits.Load() == 2
	}, time.Second, 5*time.Millisecond)
}

func TestMembershipMutationsLeaveOtherTeamsCached(t *testing.T) {
	var team1Hits, team2Hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /teams/team-1/members", func(w http.ResponseWriter, _ *http.Request) {
		team1Hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"members":[{"userId":"user-1","teamId":"team-1","role":"agent"}]}`))
	})
	mux.HandleFunc("GET /teams/team-2/members", func(w http.ResponseWriter, _ *http.Request) {
		team2Hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"members":[]}`))
	})
	mux.HandleFunc("DELETE /teams/team-1/members/user-1", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	client := newTestClient(t, mux)

	_, err := client.Members(context.Background(), "team-1")
	require.NoError(t, err)
	_, err = client.Members(context.Background(), "team-2")
	require.NoError(t, err)

	require.NoError(t, client.RemoveMember(context.Background(), "team-1", "user-1"))

	require.Eventually(t, func() bool {
		return team1Hits.Load() == 2
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, int32(1), team2Hits.Load())
}
