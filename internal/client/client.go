// Package client is the HTTP client for the variantgate API, used by the
// CLI and integration tooling.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/anatolev-dev/variantgate/internal/evaluation"
	"github.com/anatolev-dev/variantgate/internal/experiments"
	"github.com/anatolev-dev/variantgate/internal/snapshot"
	"github.com/anatolev-dev/variantgate/internal/store"
	"github.com/anatolev-dev/variantgate/internal/targeting"
)

// Client is an HTTP client for the variantgate API.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewClient creates a new API client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Snapshot fetches the full config snapshot.
func (c *Client) Snapshot(ctx context.Context) (*snapshot.Snapshot, error) {
	var snap snapshot.Snapshot
	if err := c.do(ctx, "GET", "/v1/configs/snapshot", nil, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// GetFlag retrieves a single flag by key from the snapshot.
func (c *Client) GetFlag(ctx context.Context, key string) (*store.Flag, error) {
	snap, err := c.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if flag, ok := snap.Flags[key]; ok {
		return &flag, nil
	}
	return nil, fmt.Errorf("flag not found: %s", key)
}

// GetExperiment retrieves a single experiment by key from the snapshot.
func (c *Client) GetExperiment(ctx context.Context, key string) (*store.Experiment, error) {
	snap, err := c.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if exp, ok := snap.Experiments[key]; ok {
		return &exp, nil
	}
	return nil, fmt.Errorf("experiment not found: %s", key)
}

// UpsertFlag creates or updates a flag.
func (c *Client) UpsertFlag(ctx context.Context, flag store.Flag) error {
	return c.do(ctx, "POST", "/v1/flags", flag, nil)
}

// DeleteFlag deletes a flag.
func (c *Client) DeleteFlag(ctx context.Context, key, env string) error {
	path := "/v1/flags/" + url.PathEscape(key)
	if env != "" {
		path += "?env=" + url.QueryEscape(env)
	}
	return c.do(ctx, "DELETE", path, nil, nil)
}

// UpsertExperiment creates or updates an experiment.
func (c *Client) UpsertExperiment(ctx context.Context, exp store.Experiment) error {
	return c.do(ctx, "POST", "/v1/experiments", exp, nil)
}

// DeleteExperiment deletes an experiment.
func (c *Client) DeleteExperiment(ctx context.Context, key, env string) error {
	path := "/v1/experiments/" + url.PathEscape(key)
	if env != "" {
		path += "?env=" + url.QueryEscape(env)
	}
	return c.do(ctx, "DELETE", path, nil, nil)
}

type evaluateUser struct {
	ID         string `json:"id"`
	Country    string `json:"country,omitempty"`
	Language   string `json:"language,omitempty"`
	AppVersion string `json:"appVersion,omitempty"`
}

type evaluatePayload struct {
	User evaluateUser `json:"user"`
	Keys []string     `json:"keys,omitempty"`
}

// EvaluateResponse mirrors the /v1/flags/evaluate response body.
type EvaluateResponse struct {
	Flags       []evaluation.Result `json:"flags"`
	ETag        string              `json:"etag"`
	EvaluatedAt string              `json:"evaluatedAt"`
}

// AssignResponse mirrors the /v1/experiments/assign response body.
type AssignResponse struct {
	Assignments map[string]*experiments.Assignment `json:"assignments"`
	ETag        string                             `json:"etag"`
	EvaluatedAt string                             `json:"evaluatedAt"`
}

// EvaluateFlags evaluates flags for a user context.
func (c *Client) EvaluateFlags(ctx context.Context, user targeting.Context, keys []string) (*EvaluateResponse, error) {
	var resp EvaluateResponse
	err := c.do(ctx, "POST", "/v1/flags/evaluate", payload(user, keys), &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// AssignExperiments assigns experiment variations for a user context.
func (c *Client) AssignExperiments(ctx context.Context, user targeting.Context, keys []string) (*AssignResponse, error) {
	var resp AssignResponse
	err := c.do(ctx, "POST", "/v1/experiments/assign", payload(user, keys), &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// PreviewExperiments previews experiment assignments for a user context
// without recording an exposure.
func (c *Client) PreviewExperiments(ctx context.Context, user targeting.Context, keys []string) (*AssignResponse, error) {
	var resp AssignResponse
	err := c.do(ctx, "POST", "/v1/experiments/preview", payload(user, keys), &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func payload(user targeting.Context, keys []string) evaluatePayload {
	return evaluatePayload{
		User: evaluateUser{
			ID:         user.UserID,
			Country:    user.Country,
			Language:   user.Language,
			AppVersion: user.AppVersion,
		},
		Keys: keys,
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
