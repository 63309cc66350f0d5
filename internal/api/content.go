package api

import (
	"context"
	"fmt"
	"net/url"
)

// ListPosts returns the tenant's published posts.
func (c *Client) ListPosts(ctx context.Context) ([]Post, error) {
	var resp listResponse[Post]
	if err := c.getJSON(ctx, "/posts", &resp); err != nil {
		return nil, err
	}

	return resp.Items, nil
}

// GetPost returns a single post by ID.
func (c *Client) GetPost(ctx context.Context, id string) (*Post, error) {
	var post Post
	if err := c.getJSON(ctx, "/posts/"+url.PathEscape(id), &post); err != nil {
		return nil, err
	}

	return &post, nil
}

// ListAnnouncements returns the tenant's active announcements.
func (c *Client) ListAnnouncements(ctx context.Context) ([]Announcement, error) {
	var resp listResponse[Announcement]
	if err := c.getJSON(ctx, "/announcements", &resp); err != nil {
		return nil, err
	}

	return resp.Items, nil
}

// ListSchemes returns the tenant's scheme entries.
func (c *Client) ListSchemes(ctx context.Context) ([]Scheme, error) {
	var resp listResponse[Scheme]
	if err := c.getJSON(ctx, "/schemes", &resp); err != nil {
		return nil, err
	}

	return resp.Items, nil
}

// GetDocument returns stored-file metadata by document ID.
func (c *Client) GetDocument(ctx context.Context, id string) (*Document, error) {
	var doc Document
	if err := c.getJSON(ctx, "/documents/"+url.PathEscape(id), &doc); err != nil {
		return nil, err
	}

	return &doc, nil
}

// Whoami returns the signed-in user's identity as reported by the backend.
func (c *Client) Whoami(ctx context.Context) (userID, role string, err error) {
	var me struct {
		UserID string `json:"user_id"`
		Role   string `json:"role"`
	}

	if err := c.getJSON(ctx, "/auth/me", &me); err != nil {
		return "", "", fmt.Errorf("fetching identity: %w", err)
	}

	return me.UserID, me.Role, nil
}
