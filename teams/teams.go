// Package teams covers team and role administration: membership, role
// changes, and the invitation workflow.
package teams

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/dialdesk/go-console/query"
	"github.com/dialdesk/go-console/transport"
)

const (
	resourceTeams       = "teams"
	resourceMembers     = "teamMembers"
	resourceInvitations = "invitations"
)

// Role values mirror the backend's team roles.
type Role string

const (
	RoleAgent      Role = "agent"
	RoleSupervisor Role = "supervisor"
	RoleAdmin      Role = "admin"
)

// Team is a backend-owned record.
type Team struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Member is one user's membership in a team.
type Member struct {
	UserID string `json:"userId"`
	TeamID string `json:"teamId"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
}

// Invitation is a pending offer to join a team.
type Invitation struct {
	ID        string    `json:"id"`
	TeamID    string    `json:"teamId"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

type teamListResponse struct {
	Teams []Team `json:"teams"`
}

type memberListResponse struct {
	Members []Member `json:"members"`
}

type invitationListResponse struct {
	Invitations []Invitation `json:"invitations"`
}

// Client reads and writes team resources through the shared pipeline and
// cache.
type Client struct {
	pipeline *transport.Pipeline
	cache    *query.Cache
}

// New creates a teams client over the shared pipeline and cache.
func New(pipeline *transport.Pipeline, cache *query.Cache) (*Client, error) {
	if pipeline == nil {
		return nil, errors.New("[teams.New] pipeline is required")
	}
	if cache == nil {
		return nil, errors.New("[teams.New] cache is required")
	}
	return &Client{pipeline: pipeline, cache: cache}, nil
}

// List returns the teams visible to the current user.
func (c *Client) List(ctx context.Context) ([]Team, error) {
	key := query.NewKey(resourceTeams)
	return query.Fetch(ctx, c.cache, key, func(ctx context.Context) ([]Team, error) {
		var resp teamListResponse
		if err := c.pipeline.Get(ctx, "/teams", nil, &resp); err != nil {
			return nil, err
		}
		return resp.Teams, nil
	})
}

// Members returns a team's membership.
func (c *Client) Members(ctx context.Context, teamID string) ([]Member, error) {
	key := query.NewKey(resourceMembers, teamID)
	return query.Fetch(ctx, c.cache, key, func(ctx context.Context) ([]Member, error) {
		var resp memberListResponse
		if err := c.pipeline.Get(ctx, "/teams/"+teamID+"/members", nil, &resp); err != nil {
			return nil, err
		}
		return resp.Members, nil
	})
}

// Invitations returns a team's pending invitations.
func (c *Client) Invitations(ctx context.Context, teamID string) ([]Invitation, error) {
	key := query.NewKey(resourceInvitations, teamID)
	return query.Fetch(ctx, c.cache, key, func(ctx context.Context) ([]Invitation, error) {
		var resp invitationListResponse
		if err := c.pipeline.Get(ctx, "/teams/"+teamID+"/invitations", nil, &resp); err != nil {
			return nil, err
		}
		return resp.Invitations, nil
	})
}

// Invite offers team membership to an email address.
func (c *Client) Invite(ctx context.Context, teamID, email string, role Role) (*Invitation, error) {
	return query.Mutate(ctx, c.cache, func(ctx context.Context) (*Invitation, error) {
		body := struct {
			Email string `json:"email"`
			Role  Role   `json:"role"`
		}{Email: email, Role: role}
		var invitation Invitation
		if err := c.pipeline.Post(ctx, "/teams/"+teamID+"/invitations", body, &invitation); err != nil {
			return nil, err
		}
		return &invitation, nil
	}, query.MutationOptions{
		Invalidates: []query.Key{query.NewKey(resourceInvitations, teamID)},
	})
}

// RevokeInvitation withdraws a pending invitation.
func (c *Client) RevokeInvitation(ctx context.Context, teamID, invitationID string) error {
	_, err := query.Mutate(ctx, c.cache, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.pipeline.Delete(ctx, "/invitations/"+invitationID, nil)
	}, query.MutationOptions{
		Invalidates: []query.Key{query.NewKey(resourceInvitations, teamID)},
	})
	return err
}

// UpdateMemberRole changes a member's role within a team.
func (c *Client) UpdateMemberRole(ctx context.Context, teamID, userID string, role Role) (*Member, error) {
	return query.Mutate(ctx, c.cache, func(ctx context.Context) (*Member, error) {
		body := struct {
			Role Role `json:"role"`
		}{Role: role}
		var member Member
		if err := c.pipeline.Patch(ctx, "/teams/"+teamID+"/members/"+userID, body, &member); err != nil {
			return nil, err
		}
		return &member, nil
	}, query.MutationOptions{
		Invalidates: []query.Key{query.NewKey(resourceMembers, teamID)},
	})
}

// RemoveMember takes a user out of a team.
func (c *Client) RemoveMember(ctx context.Context, teamID, userID string) error {
	_, err := query.Mutate(ctx, c.cache, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.pipeline.Delete(ctx, "/teams/"+teamID+"/members/"+userID, nil)
	}, query.MutationOptions{
		Invalidates: []query.Key{query.NewKey(resourceMembers, teamID)},
	})
	return err
}
