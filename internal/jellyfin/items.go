package jellyfin

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// GetItem fetches a single item's metadata for the authenticated user.
func (c *Client) GetItem(ctx context.Context, itemID string) (*Item, error) {
	cred, err := c.EnsureAuthenticated(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	var item Item
	path := fmt.Sprintf("/Users/%s/Items/%s", cred.UserID, url.PathEscape(itemID))
	if err := c.getJSON(ctx, path, nil, &item); err != nil {
		return nil, err
	}
	if item.ID == "" {
		return nil, ErrItemNotFound
	}
	return &item, nil
}

// ListLibraries returns the user's media views.
func (c *Client) ListLibraries(ctx context.Context) ([]Library, error) {
	cred, err := c.EnsureAuthenticated(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	var resp struct {
		Items []Library `json:"Items"`
	}
	if err := c.getJSON(ctx, fmt.Sprintf("/Users/%s/Views", cred.UserID), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// ItemsQuery narrows a library item listing.
type ItemsQuery struct {
	ParentID   string
	SearchTerm string
	Genre      string
	StartIndex int
	Limit      int
}

// ListItems returns items under a library, newest first when no search term
// is given. TotalRecordCount is returned alongside the page.
func (c *Client) ListItems(ctx context.Context, q ItemsQuery) ([]Item, int, error) {
	cred, err := c.EnsureAuthenticated(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	query := url.Values{
		"Recursive":        {"true"},
		"IncludeItemTypes": {"Movie,Episode,Series"},
		"Fields":           {"Overview,Genres,MediaSources"},
	}
	if q.ParentID != "" {
		query.Set("ParentId", q.ParentID)
	}
	if q.SearchTerm != "" {
		query.Set("SearchTerm", q.SearchTerm)
	}
	if q.Genre != "" {
		query.Set("Genres", q.Genre)
	}
	if q.StartIndex > 0 {
		query.Set("StartIndex", strconv.Itoa(q.StartIndex))
	}
	if q.Limit > 0 {
		query.Set("Limit", strconv.Itoa(q.Limit))
	}
	var resp itemsResponse
	if err := c.getJSON(ctx, fmt.Sprintf("/Users/%s/Items", cred.UserID), query, &resp); err != nil {
		return nil, 0, err
	}
	return resp.Items, resp.TotalRecordCount, nil
}

// ListGenres returns the genres present in the library.
func (c *Client) ListGenres(ctx context.Context) ([]Genre, error) {
	query := url.Values{"Recursive": {"true"}}
	var resp genresResponse
	if err := c.getJSON(ctx, "/Genres", query, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}
