// Package campaigns manages outbound campaign configuration.
package campaigns

import (
	"context"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/dialdesk/go-console/query"
	"github.com/dialdesk/go-console/transport"
)

const resourceCampaigns = "campaigns"

// State values mirror the backend's campaign lifecycle.
type State string

const (
	StateDraft   State = "draft"
	StateActive  State = "active"
	StatePaused  State = "paused"
	StateStopped State = "stopped"
)

// Campaign is a backend-owned record; only the rendered fields are declared.
type Campaign struct {
	ID        string    `json:"id"`
	TeamID    string    `json:"teamId"`
	Name      string    `json:"name"`
	State     State     `json:"state"`
	DialMode  string    `json:"dialMode"`
	StartsAt  time.Time `json:"startsAt"`
	EndsAt    time.Time `json:"endsAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Params carries campaign creation and update fields.
type Params struct {
	TeamID   string    `json:"teamId"`
	Name     string    `json:"name"`
	DialMode string    `json:"dialMode"`
	StartsAt time.Time `json:"startsAt"`
	EndsAt   time.Time `json:"endsAt"`
}

type listResponse struct {
	Campaigns []Campaign `json:"campaigns"`
	Total     int        `json:"total"`
}

// Client reads and writes campaign resources through the shared pipeline
// and cache.
type Client struct {
	pipeline *transport.Pipeline
	cache    *query.Cache
}

// New creates a campaigns client over the shared pipeline and cache.
func New(pipeline *transport.Pipeline, cache *query.Cache) (*Client, error) {
	if pipeline == nil {
		return nil, errors.New("[campaigns.New] pipeline is required")
	}
	if cache == nil {
		return nil, errors.New("[campaigns.New] cache is required")
	}
	return &Client{pipeline: pipeline, cache: cache}, nil
}

// List returns a team's campaigns.
func (c *Client) List(ctx context.Context, teamID string, limit, offset int) ([]Campaign, error) {
	key := query.NewKey(resourceCampaigns, teamID, limit, offset)
	return query.Fetch(ctx, c.cache, key, func(ctx context.Context) ([]Campaign, error) {
		params := map[string]string{
			"teamId": teamID,
			"limit":  strconv.Itoa(limit),
			"offset": strconv.Itoa(offset),
		}
		var resp listResponse
		if err := c.pipeline.Get(ctx, "/campaigns", params, &resp); err != nil {
			return nil, err
		}
		return resp.Campaigns, nil
	})
}

// Get returns one campaign.
func (c *Client) Get(ctx context.Context, campaignID string) (*Campaign, error) {
	key := query.NewKey(resourceCampaigns, campaignID)
	return query.Fetch(ctx, c.cache, key, func(ctx context.Context) (*Campaign, error) {
		var campaign Campaign
		if err := c.pipeline.Get(ctx, "/campaigns/"+campaignID, nil, &campaign); err != nil {
			return nil, err
		}
		return &campaign, nil
	})
}

// Create adds a campaign in the draft state.
func (c *Client) Create(ctx context.Context, params Params) (*Campaign, error) {
	return query.Mutate(ctx, c.cache, func(ctx context.Context) (*Campaign, error) {
		var campaign Campaign
		if err := c.pipeline.Post(ctx, "/campaigns", params, &campaign); err != nil {
			return nil, err
		}
		return &campaign, nil
	}, query.MutationOptions{
		InvalidatesPrefixes: []string{resourceCampaigns},
	})
}

// Update replaces a campaign's configuration.
func (c *Client) Update(ctx context.Context, campaignID string, params Params) (*Campaign, error) {
	return query.Mutate(ctx, c.cache, func(ctx context.Context) (*Campaign, error) {
		var campaign Campaign
		if err := c.pipeline.Put(ctx, "/campaigns/"+campaignID, params, &campaign); err != nil {
			return nil, err
		}
		return &campaign, nil
	}, query.MutationOptions{
		Invalidates:         []query.Key{query.NewKey(resourceCampaigns, campaignID)},
		InvalidatesPrefixes: []string{resourceCampaigns},
	})
}

// SetState transitions a campaign between lifecycle states.
func (c *Client) SetState(ctx context.Context, campaignID string, state State) (*Campaign, error) {
	return query.Mutate(ctx, c.cache, func(ctx context.Context) (*Campaign, error) {
		var campaign Campaign
		body := struct {
			State State `json:"state"`
		}{State: state}
		if err := c.pipeline.Patch(ctx, "/campaigns/"+campaignID+"/state", body, &campaign); err != nil {
			return nil, err
		}
		return &campaign, nil
	}, query.MutationOptions{
		Invalidates:         []query.Key{query.NewKey(resourceCampaigns, campaignID)},
		InvalidatesPrefixes: []string{resourceCampaigns},
	})
}

// Delete removes a campaign.
func (c *Client) Delete(ctx context.Context, campaignID string) error {
	_, err := query.Mutate(ctx, c.cache, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.pipeline.Delete(ctx, "/campaigns/"+campaignID, nil)
	}, query.MutationOptions{
		InvalidatesPrefixes: []string{resourceCampaigns},
	})
	return err
}
