package toggl

import (
	"context"
	"fmt"
)

type Workspace struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type ClientInfo struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Project struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	ClientID *int64 `json:"client_id"`
	Active   bool   `json:"active"`
}

type Tag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func (c *Client) Workspaces(ctx context.Context, token string) ([]Workspace, error) {
	var out []Workspace
	if err := c.get(ctx, token, "/workspaces", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Clients(ctx context.Context, token string, workspaceID int64) ([]ClientInfo, error) {
	var out []ClientInfo
	if err := c.get(ctx, token, fmt.Sprintf("/workspaces/%d/clients", workspaceID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Projects(ctx context.Context, token string, workspaceID int64) ([]Project, error) {
	var out []Project
	if err := c.get(ctx, token, fmt.Sprintf("/workspaces/%d/projects", workspaceID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Tags(ctx context.Context, token string, workspaceID int64) ([]Tag, error) {
	var out []Tag
	if err := c.get(ctx, token, fmt.Sprintf("/workspaces/%d/tags", workspaceID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
