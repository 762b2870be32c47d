// Package client implements the HTTP client CLI commands use to talk to a
// running packscan server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/licenselab/packscan/metrics"
	"github.com/licenselab/packscan/store"
	"github.com/licenselab/packscan/types"
)

// DefaultTimeout bounds a single API call.
const DefaultTimeout = 30 * time.Second

// StatusError is a non-2xx response from the server.
type StatusError struct {
	Status  int
	Message string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned status %d", e.Status)
	}
	return fmt.Sprintf("server returned status %d: %s", e.Status, e.Message)
}

// Client talks to the packscan HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the given server base URL (e.g. http://localhost:8080).
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
	}
}

// do issues one request and decodes the JSON response into out (if non-nil).
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return &StatusError{Status: resp.StatusCode, Message: apiErr.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Packs lists pack archives waiting on the remote drop.
func (c *Client) Packs(ctx context.Context) ([]string, error) {
	var body struct {
		Packs []string `json:"packs"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/packs", nil, &body); err != nil {
		return nil, err
	}
	return body.Packs, nil
}

// Licenses lists the selectable licenses known to the server.
func (c *Client) Licenses(ctx context.Context) ([]store.License, error) {
	var body struct {
		Licenses []store.License `json:"licenses"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/licenses", nil, &body); err != nil {
		return nil, err
	}
	return body.Licenses, nil
}

// Metrics fetches the service counters.
func (c *Client) Metrics(ctx context.Context) (*metrics.Snapshot, error) {
	var snap metrics.Snapshot
	if err := c.do(ctx, http.MethodGet, "/api/metrics", nil, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// StartExtraction submits a pack for extraction and returns the task token.
func (c *Client) StartExtraction(ctx context.Context, username, pack string) (string, error) {
	var body struct {
		Token string `json:"token"`
	}
	req := map[string]string{"username": username, "pack": pack}
	if err := c.do(ctx, http.MethodPost, "/api/tasks", req, &body); err != nil {
		return "", err
	}
	return body.Token, nil
}

// Task fetches the current snapshot of a tracked task.
func (c *Client) Task(ctx context.Context, pack string) (*types.TaskSnapshot, error) {
	var snap types.TaskSnapshot
	if err := c.do(ctx, http.MethodGet, "/api/tasks/"+pack, nil, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// DeleteTask cancels and forgets a tracked task.
func (c *Client) DeleteTask(ctx context.Context, pack string) error {
	return c.do(ctx, http.MethodDelete, "/api/tasks/"+pack, nil, nil)
}

// Snapshot fetches the spooled extraction result for a pack.
func (c *Client) Snapshot(ctx context.Context, pack string) (*types.PackDetails, error) {
	var details types.PackDetails
	if err := c.do(ctx, http.MethodGet, "/api/snapshots/"+pack, nil, &details); err != nil {
		return nil, err
	}
	return &details, nil
}
