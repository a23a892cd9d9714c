package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/scottschatz/software-capitalization-sub001/internal/api"
)

// Client talks to the evidence store over HTTP with a bearer credential and
// a client-version marker.
type Client struct {
	baseURL    string
	token      string
	version    string
	httpClient *http.Client
}

// NewClient returns a store client for baseURL.
func NewClient(baseURL, token, version string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		version: version,
		httpClient: &http.Client{
			Timeout: 2 * time.Minute, // one blocking call covers the whole batch
		},
	}
}

// KnownProjects fetches the registered project->path mappings.
func (c *Client) KnownProjects(ctx context.Context, developer string) ([]api.ProjectRecord, error) {
	path := "/api/v1/projects?developer=" + url.QueryEscape(developer)
	var projects []api.ProjectRecord
	if err := c.do(ctx, http.MethodGet, path, nil, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// RegisterProjects proposes discovered candidates to the store.
func (c *Client) RegisterProjects(ctx context.Context, req api.DiscoverRequest) (*api.DiscoverResponse, error) {
	var resp api.DiscoverResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/projects/discover", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SubmitBatch transmits one collected batch.
func (c *Client) SubmitBatch(ctx context.Context, req api.SyncRequest) (*api.SyncResponse, error) {
	var resp api.SyncResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/sync", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("agent: marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("agent: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(api.ClientVersionHeader, c.version)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("agent: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr api.ErrorResponse
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("agent: %s %s: store returned %d: %s", method, path, resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("agent: %s %s: store returned %d", method, path, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("agent: decode response: %w", err)
		}
	}
	return nil
}
