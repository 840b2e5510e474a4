// Package apiclient is the HTTP client the CLI uses to talk to the
// spyglass daemon API. It decodes the daemon's transport DTOs and maps
// error envelopes to typed errors.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"spyglass/internal/api"
	"spyglass/internal/taskstore"
)

// ErrDaemonUnavailable marks failures to reach the daemon at all.
var ErrDaemonUnavailable = errors.New("spyglass daemon unavailable")

const defaultRequestTimeout = 30 * time.Second

// APIError is a non-2xx daemon response decoded from the error envelope.
type APIError struct {
	HTTPStatus int
	Code       string
	Message    string
	TaskStatus string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("daemon returned status %d", e.HTTPStatus)
}

// Client talks to a running spyglass daemon over HTTP.
type Client struct {
	base *url.URL
	http *http.Client
}

// New builds a client for the daemon bound at bind, either host:port or
// a full URL.
func New(bind string) (*Client, error) {
	bind = strings.TrimSpace(bind)
	if bind == "" {
		return nil, errors.New("api address is empty")
	}
	if !strings.Contains(bind, "://") {
		bind = "http://" + bind
	}
	base, err := url.Parse(bind)
	if err != nil {
		return nil, fmt.Errorf("parse api address: %w", err)
	}
	base.Path = ""
	base.RawQuery = ""
	base.Fragment = ""

	return &Client{
		base: base,
		http: &http.Client{Timeout: defaultRequestTimeout},
	}, nil
}

type submitRequest struct {
	Platform   string `json:"platform"`
	Identifier string `json:"identifier"`
	Depth      string `json:"depth,omitempty"`
}

// SubmitTask registers a new analysis task and returns the accepted row.
func (c *Client) SubmitTask(ctx context.Context, platform, identifier, depth string) (api.Task, error) {
	var resp api.TaskResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/tasks", nil, submitRequest{
		Platform:   platform,
		Identifier: identifier,
		Depth:      depth,
	}, &resp)
	if err != nil {
		return api.Task{}, err
	}
	return resp.Task, nil
}

// Task fetches a single task by id.
func (c *Client) Task(ctx context.Context, id int64) (api.Task, error) {
	var resp api.TaskResponse
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/tasks/%d", id), nil, nil, &resp); err != nil {
		return api.Task{}, err
	}
	return resp.Task, nil
}

// TaskResult fetches the stored analysis payload for a completed task.
// The payload is returned verbatim.
func (c *Client) TaskResult(ctx context.Context, id int64) (json.RawMessage, error) {
	var payload json.RawMessage
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/tasks/%d/result", id), nil, nil, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// Cancel requests cancellation of a task. Cancelled reports whether this
// call performed the cancellation; false means it already was.
func (c *Client) Cancel(ctx context.Context, id int64) (api.CancelResponse, error) {
	var resp api.CancelResponse
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/v1/tasks/%d/cancel", id), nil, nil, &resp); err != nil {
		return api.CancelResponse{}, err
	}
	return resp, nil
}

// Retry re-queues a failed task and returns the reset row.
func (c *Client) Retry(ctx context.Context, id int64) (api.Task, error) {
	var resp api.TaskResponse
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/v1/tasks/%d/retry", id), nil, nil, &resp); err != nil {
		return api.Task{}, err
	}
	return resp.Task, nil
}

// ListOptions filter the task listing.
type ListOptions struct {
	Statuses []string
	Platform string
	Limit    int
	Offset   int
}

// List fetches tasks newest-first, filtered by opts.
func (c *Client) List(ctx context.Context, opts ListOptions) (api.TaskListResponse, error) {
	values := url.Values{}
	if len(opts.Statuses) > 0 {
		values.Set("status", strings.Join(opts.Statuses, ","))
	}
	if strings.TrimSpace(opts.Platform) != "" {
		values.Set("platform", opts.Platform)
	}
	if opts.Limit > 0 {
		values.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		values.Set("offset", strconv.Itoa(opts.Offset))
	}

	var resp api.TaskListResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/tasks", values, nil, &resp); err != nil {
		return api.TaskListResponse{}, err
	}
	return resp, nil
}

// Platforms fetches the platform names the daemon accepts tasks for.
func (c *Client) Platforms(ctx context.Context) ([]string, error) {
	var resp api.PlatformsResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/platforms", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Platforms, nil
}

// Status fetches the daemon runtime snapshot.
func (c *Client) Status(ctx context.Context) (api.StatusResponse, error) {
	var resp api.StatusResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/status", nil, nil, &resp); err != nil {
		return api.StatusResponse{}, err
	}
	return resp, nil
}

// Health probes the daemon liveness endpoint.
func (c *Client) Health(ctx context.Context) (api.HealthResponse, error) {
	var resp api.HealthResponse
	if err := c.do(ctx, http.MethodGet, "/healthz", nil, nil, &resp); err != nil {
		return api.HealthResponse{}, err
	}
	return resp, nil
}

// WaitForTask polls until the task reaches a terminal status or ctx is
// cancelled.
func (c *Client) WaitForTask(ctx context.Context, id int64, interval time.Duration) (api.Task, error) {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		task, err := c.Task(ctx, id)
		if err != nil {
			return api.Task{}, err
		}
		if status, ok := taskstore.ParseStatus(task.Status); ok && status.IsTerminal() {
			return task, nil
		}
		select {
		case <-ctx.Done():
			return api.Task{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	endpoint := c.base.ResolveReference(&url.URL{Path: path})
	if len(query) > 0 {
		endpoint.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{HTTPStatus: resp.StatusCode}
	var envelope api.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil && envelope.Error.Code != "" {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
		apiErr.TaskStatus = envelope.Error.Status
	}
	return apiErr
}

// IsDaemonUnavailable reports whether err means the daemon could not be
// reached, as opposed to the daemon rejecting the request.
func IsDaemonUnavailable(err error) bool {
	if err == nil {
		return false
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		err = urlErr.Err
	}
	var opErr *net.OpError
	return errors.Is(err, ErrDaemonUnavailable) || errors.As(err, &opErr)
}
