// Package client talks to the task API served by internal/server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/josephgoksu/concierge/internal/task"
	"github.com/sethvargo/go-retry"
)

const (
	DefaultTimeout     = 10 * time.Second
	DefaultListRetries = 2
)

// APIError is a non-2xx reply from the task API.
type APIError struct {
	Status  int
	Message string
	Fields  []string
}

func (e *APIError) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("task API %d: %s (%s)", e.Status, e.Message, strings.Join(e.Fields, ", "))
	}
	return fmt.Sprintf("task API %d: %s", e.Status, e.Message)
}

// Temporary reports whether retrying the same request may succeed.
func (e *APIError) Temporary() bool {
	return e.Status >= 500 || e.Status == http.StatusTooManyRequests
}

// Options tune a Client. Zero values take defaults.
type Options struct {
	HTTPClient  *http.Client
	Timeout     time.Duration
	ListRetries uint64
	// ListBackoff is the first retry delay of ListTasks; it doubles per retry.
	ListBackoff time.Duration
}

// Client creates and lists tasks over HTTP. It satisfies both the request
// orchestrator's creator and the task feed's lister.
type Client struct {
	baseURL     string
	http        *http.Client
	listRetries uint64
	listBackoff time.Duration
}

func New(baseURL string, opts Options) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("client: base URL is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	if opts.ListRetries == 0 {
		opts.ListRetries = DefaultListRetries
	}
	if opts.ListBackoff <= 0 {
		opts.ListBackoff = 200 * time.Millisecond
	}
	return &Client{
		baseURL:     baseURL,
		http:        opts.HTTPClient,
		listRetries: opts.ListRetries,
		listBackoff: opts.ListBackoff,
	}, nil
}

type createRequest struct {
	CategoryID string       `json:"categoryId"`
	Payload    task.Payload `json:"payload,omitempty"`
}

type createResponse struct {
	TaskID int64 `json:"taskId"`
}

type listResponse struct {
	Tasks []task.Task `json:"tasks"`
}

type errorResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields"`
}

// CreateTask is sent exactly once. A lost reply may still have created the
// task, so it is never retried here.
func (c *Client) CreateTask(ctx context.Context, categoryID string, payload task.Payload) (int64, error) {
	body, err := json.Marshal(createRequest{CategoryID: categoryID, Payload: payload})
	if err != nil {
		return 0, fmt.Errorf("encode create request: %w", err)
	}
	var out createResponse
	if err := c.do(ctx, http.MethodPost, "/api/tasks", body, &out); err != nil {
		return 0, err
	}
	if out.TaskID <= 0 {
		return 0, fmt.Errorf("task API returned invalid task id %d", out.TaskID)
	}
	return out.TaskID, nil
}

// ListTasks retries temporary failures with exponential backoff.
func (c *Client) ListTasks(ctx context.Context) ([]task.Task, error) {
	b := retry.WithMaxRetries(c.listRetries, retry.NewExponential(c.listBackoff))
	return retry.DoValue(ctx, b, func(ctx context.Context) ([]task.Task, error) {
		var out listResponse
		err := c.do(ctx, http.MethodGet, "/api/tasks", nil, &out)
		if err != nil {
			var apiErr *APIError
			if !errors.As(err, &apiErr) || apiErr.Temporary() {
				if ctx.Err() != nil {
					return nil, err
				}
				return nil, retry.RetryableError(err)
			}
			return nil, err
		}
		return out.Tasks, nil
	})
}

// GetTask fetches one task by id.
func (c *Client) GetTask(ctx context.Context, id int64) (task.Task, error) {
	var out task.Task
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/tasks/%d", id), nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var er errorResponse
		if json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&er) == nil && er.Error != "" {
			apiErr.Message = er.Error
			apiErr.Fields = er.Fields
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}
