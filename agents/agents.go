// Package agents provides the console's view of call-center agents: roster
// management plus the near-real-time status and queue reads the live
// monitoring board polls.
package agents

import (
	"context"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/dialdesk/go-console/query"
	"github.com/dialdesk/go-console/transport"
)

const (
	resourceAgents = "agents"
	resourceStatus = "agentStatus"
	resourceQueue  = "agentQueue"

	// Contract polling cadences for the live views.
	StatusPollInterval = 5 * time.Second
	QueuePollInterval  = 3 * time.Second
)

// Status values mirror the backend's agent presence states.
type Status string

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
	StatusPaused  Status = "paused"
	StatusOnCall  Status = "on_call"
	StatusWrapUp  Status = "wrap_up"
)

// Agent is a backend-owned record; only the rendered fields are declared.
type Agent struct {
	ID        string    `json:"id"`
	TeamID    string    `json:"teamId"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Extension string    `json:"extension"`
	Status    Status    `json:"status"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// QueueSnapshot is the waiting-call picture for one team.
type QueueSnapshot struct {
	TeamID          string `json:"teamId"`
	Waiting         int    `json:"waiting"`
	LongestWaitSecs int    `json:"longestWaitSecs"`
	AvailableAgents int    `json:"availableAgents"`
}

// CreateParams carries a new agent record.
type CreateParams struct {
	TeamID    string `json:"teamId"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Extension string `json:"extension"`
}

type listResponse struct {
	Agents []Agent `json:"agents"`
	Total  int     `json:"total"`
}

type statusResponse struct {
	Status Status `json:"status"`
}

// Client reads and writes agent resources through the shared pipeline and
// cache.
type Client struct {
	pipeline *transport.Pipeline
	cache    *query.Cache
}

// New creates an agents client over the shared pipeline and cache.
func New(pipeline *transport.Pipeline, cache *query.Cache) (*Client, error) {
	if pipeline == nil {
		return nil, errors.New("[agents.New] pipeline is required")
	}
	if cache == nil {
		return nil, errors.New("[agents.New] cache is required")
	}
	return &Client{pipeline: pipeline, cache: cache}, nil
}

// List returns the agent roster for a team. Every parameter that affects
// the result is part of the cache key.
func (c *Client) List(ctx context.Context, teamID string, limit, offset int, filters map[string]string) ([]Agent, error) {
	key := query.NewKey(resourceAgents, teamID, limit, offset, filters)
	return query.Fetch(ctx, c.cache, key, func(ctx context.Context) ([]Agent, error) {
		params := map[string]string{
			"teamId": teamID,
			"limit":  strconv.Itoa(limit),
			"offset": strconv.Itoa(offset),
		}
		for k, v := range filters {
			params[k] = v
		}
		var resp listResponse
		if err := c.pipeline.Get(ctx, "/agents", params, &resp); err != nil {
			return nil, err
		}
		return resp.Agents, nil
	})
}

// Get returns one agent.
func (c *Client) Get(ctx context.Context, agentID string) (*Agent, error) {
	key := query.NewKey(resourceAgents, agentID)
	return query.Fetch(ctx, c.cache, key, func(ctx context.Context) (*Agent, error) {
		var agent Agent
		if err := c.pipeline.Get(ctx, "/agents/"+agentID, nil, &agent); err != nil {
			return nil, err
		}
		return &agent, nil
	})
}

// LiveStatus returns the agent's current presence state.
func (c *Client) LiveStatus(ctx context.Context, agentID string) (Status, error) {
	key := query.NewKey(resourceStatus, agentID)
	return query.Fetch(ctx, c.cache, key, func(ctx context.Context) (Status, error) {
		var resp statusResponse
		if err := c.pipeline.Get(ctx, "/agents/"+agentID+"/status", nil, &resp); err != nil {
			return "", err
		}
		return resp.Status, nil
	})
}

// Queue returns the waiting-call snapshot for a team.
func (c *Client) Queue(ctx context.Context, teamID string) (*QueueSnapshot, error) {
	key := query.NewKey(resourceQueue, teamID)
	return query.Fetch(ctx, c.cache, key, func(ctx context.Context) (*QueueSnapshot, error) {
		var snapshot QueueSnapshot
		if err := c.pipeline.Get(ctx, "/teams/"+teamID+"/queue", nil, &snapshot); err != nil {
			return nil, err
		}
		return &snapshot, nil
	})
}

// UpdateStatus changes an agent's presence state. On success the agent's
// status key and every cached roster read are invalidated; the monitoring
// views converge from the resulting background refetches.
func (c *Client) UpdateStatus(ctx context.Context, agentID string, status Status) (*Agent, error) {
	return query.Mutate(ctx, c.cache, func(ctx context.Context) (*Agent, error) {
		var agent Agent
		body := statusResponse{Status: status}
		if err := c.pipeline.Patch(ctx, "/agents/"+agentID+"/status", body, &agent); err != nil {
			return nil, err
		}
		return &agent, nil
	}, query.MutationOptions{
		Invalidates:         []query.Key{query.NewKey(resourceStatus, agentID)},
		InvalidatesPrefixes: []string{resourceAgents},
	})
}

// Create adds an agent to the roster.
func (c *Client) Create(ctx context.Context, params CreateParams) (*Agent, error) {
	return query.Mutate(ctx, c.cache, func(ctx context.Context) (*Agent, error) {
		var agent Agent
		if err := c.pipeline.Post(ctx, "/agents", params, &agent); err != nil {
			return nil, err
		}
		return &agent, nil
	}, query.MutationOptions{
		InvalidatesPrefixes: []string{resourceAgents},
	})
}

// Delete removes an agent from the roster.
func (c *Client) Delete(ctx context.Context, agentID string) error {
	_, err := query.Mutate(ctx, c.cache, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.pipeline.Delete(ctx, "/agents/"+agentID, nil)
	}, query.MutationOptions{
		InvalidatesPrefixes: []string{resourceAgents, resourceStatus},
	})
	return err
}

// PollStatus keeps one agent's presence state warm at the given cadence.
func (c *Client) PollStatus(ctx context.Context, agentID string, interval time.Duration) *query.Poller {
	key := query.NewKey(resourceStatus, agentID)
	return query.Poll(ctx, c.cache, key, interval, func(ctx context.Context) (Status, error) {
		var resp statusResponse
		if err := c.pipeline.Get(ctx, "/agents/"+agentID+"/status", nil, &resp); err != nil {
			return "", err
		}
		return resp.Status, nil
	})
}

// PollQueue keeps a team's queue snapshot warm at the given cadence.
func (c *Client) PollQueue(ctx context.Context, teamID string, interval time.Duration) *query.Poller {
	key := query.NewKey(resourceQueue, teamID)
	return query.Poll(ctx, c.cache, key, interval, func(ctx context.Context) (*QueueSnapshot, error) {
		var snapshot QueueSnapshot
		if err := c.pipeline.Get(ctx, "/teams/"+teamID+"/queue", nil, &snapshot); err != nil {
			return nil, err
		}
		return &snapshot, nil
	})
}
