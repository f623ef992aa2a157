// Package calls provides the live-call monitoring reads and the supervisor
// actions against in-progress calls.
package calls

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/dialdesk/go-console/query"
	"github.com/dialdesk/go-console/transport"
)

const (
	resourceLive   = "liveCalls"
	resourceAlerts = "callAlerts"

	// Contract polling cadences for the live views.
	LivePollInterval   = 3 * time.Second
	AlertsPollInterval = 5 * time.Second
)

// LiveCall is a backend-owned snapshot of one in-progress call.
type LiveCall struct {
	ID           string    `json:"id"`
	TeamID       string    `json:"teamId"`
	AgentID      string    `json:"agentId"`
	CallerNumber string    `json:"callerNumber"`
	Direction    string    `json:"direction"`
	State        string    `json:"state"`
	StartedAt    time.Time `json:"startedAt"`
}

// Alert is a monitoring notification (long queue, abandoned call spike...).
type Alert struct {
	ID       string    `json:"id"`
	TeamID   string    `json:"teamId"`
	Kind     string    `json:"kind"`
	Message  string    `json:"message"`
	RaisedAt time.Time `json:"raisedAt"`
}

type liveListResponse struct {
	Calls []LiveCall `json:"calls"`
}

type alertListResponse struct {
	Alerts []Alert `json:"alerts"`
}

// Client reads live-call resources through the shared pipeline and cache.
type Client struct {
	pipeline *transport.Pipeline
	cache    *query.Cache
}

// New creates a calls client over the shared pipeline and cache.
func New(pipeline *transport.Pipeline, cache *query.Cache) (*Client, error) {
	if pipeline == nil {
		return nil, errors.New("[calls.New] pipeline is required")
	}
	if cache == nil {
		return nil, errors.New("[calls.New] cache is required")
	}
	return &Client{pipeline: pipeline, cache: cache}, nil
}

// Live returns the in-progress calls for a team.
func (c *Client) Live(ctx context.Context, teamID string) ([]LiveCall, error) {
	key := query.NewKey(resourceLive, teamID)
	return query.Fetch(ctx, c.cache, key, c.liveFetcher(teamID))
}

// Alerts returns the open monitoring alerts for a team.
func (c *Client) Alerts(ctx context.Context, teamID string) ([]Alert, error) {
	key := query.NewKey(resourceAlerts, teamID)
	return query.Fetch(ctx, c.cache, key, c.alertsFetcher(teamID))
}

// Hangup ends an in-progress call (supervisor action).
func (c *Client) Hangup(ctx context.Context, teamID, callID string) error {
	_, err := query.Mutate(ctx, c.cache, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.pipeline.Post(ctx, "/calls/"+callID+"/hangup", nil, nil)
	}, query.MutationOptions{
		Invalidates: []query.Key{query.NewKey(resourceLive, teamID)},
	})
	return err
}

// PollLive keeps a team's live-call list warm at the given cadence.
func (c *Client) PollLive(ctx context.Context, teamID string, interval time.Duration) *query.Poller {
	key := query.NewKey(resourceLive, teamID)
	return query.Poll(ctx, c.cache, key, interval, c.liveFetcher(teamID))
}

// PollAlerts keeps a team's alert list warm at the given cadence.
func (c *Client) PollAlerts(ctx context.Context, teamID string, interval time.Duration) *query.Poller {
	key := query.NewKey(resourceAlerts, teamID)
	return query.Poll(ctx, c.cache, key, interval, c.alertsFetcher(teamID))
}

func (c *Client) liveFetcher(teamID string) func(context.Context) ([]LiveCall, error) {
	return func(ctx context.Context) ([]LiveCall, error) {
		var resp liveListResponse
		if err := c.pipeline.Get(ctx, "/teams/"+teamID+"/calls/live", nil, &resp); err != nil {
			return nil, err
		}
		return resp.Calls, nil
	}
}

func (c *Client) alertsFetcher(teamID string) func(context.Context) ([]Alert, error) {
	return func(ctx context.Context) ([]Alert, error) {
		var resp alertListResponse
		if err := c.pipeline.Get(ctx, "/teams/"+teamID+"/alerts", nil, &resp); err != nil {
			return nil, err
		}
		return resp.Alerts, nil
	}
}
