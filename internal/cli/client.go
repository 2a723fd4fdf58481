package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// --- Response types (mirrored from the HTTP API; the CLI does not import
// the server packages) ---

// WorkerResponse is one worker state snapshot from the API.
type WorkerResponse struct {
	WorkerID       string  `json:"worker_id"`
	State          string  `json:"state"`
	ActiveTasks    int     `json:"active_tasks"`
	CompletedTasks int64   `json:"completed_tasks"`
	AvgResponseMs  float64 `json:"avg_response_ms"`
	HealthScore    float64 `json:"health_score"`
}

// ExecuteResponse is a coordinated execution result from the API.
type ExecuteResponse struct {
	TaskID       string   `json:"task_id"`
	Pattern      string   `json:"pattern"`
	Success      bool     `json:"success"`
	Workers      []string `json:"workers"`
	Output       string   `json:"output,omitempty"`
	SuccessRatio float64  `json:"success_ratio"`
	Elapsed      int64    `json:"elapsed"`
}

// RouteResponse is a routing decision from the API.
type RouteResponse struct {
	Workers []string `json:"workers"`
}

// MessageResponse is one bus message from the API.
type MessageResponse struct {
	ID        string         `json:"id"`
	Sender    string         `json:"sender"`
	Channel   string         `json:"channel"`
	Type      string         `json:"type"`
	Payload   map[string]any `json:"payload,omitempty"`
	Timestamp string         `json:"timestamp"`
}

// StatsResponse is the runtime and channel statistics snapshot.
type StatsResponse struct {
	Runtime struct {
		TasksExecuted int64            `json:"tasks_executed"`
		TasksFailed   int64            `json:"tasks_failed"`
		ByPattern     map[string]int64 `json:"by_pattern"`
		AvgTaskMs     float64          `json:"avg_task_ms"`
	} `json:"runtime"`
	Channels []struct {
		Name        string `json:"name"`
		Persistent  bool   `json:"persistent"`
		Subscribers int    `json:"subscribers"`
		Messages    uint64 `json:"messages"`
		HistoryLen  int    `json:"history_len"`
	} `json:"channels"`
}

// --- Request types ---

// TaskSpec is the task portion of an execute or route request.
type TaskSpec struct {
	ID                   string   `json:"id"`
	Type                 string   `json:"type"`
	Priority             string   `json:"priority"`
	Payload              string   `json:"payload"`
	RequiredCapabilities []string `json:"required_capabilities,omitempty"`
	InputSize            int      `json:"input_size,omitempty"`
	Subtasks             int      `json:"subtasks,omitempty"`
	Complexity           string   `json:"complexity,omitempty"`
	Workflow             string   `json:"workflow,omitempty"`
}

type taskRequest struct {
	Task    TaskSpec `json:"task"`
	Workers int      `json:"workers,omitempty"`
}

type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Client is a thin HTTP client for the TaskMesh API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client against the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 5 * time.Minute},
	}
}

// SubmitTask runs a task through the coordinator.
func (c *Client) SubmitTask(task TaskSpec) (*ExecuteResponse, error) {
	var out ExecuteResponse
	if err := c.do(http.MethodPost, "/api/v1/tasks", taskRequest{Task: task}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RouteTask asks the router for worker selection without executing.
func (c *Client) RouteTask(task TaskSpec, workers int) (*RouteResponse, error) {
	var out RouteResponse
	if err := c.do(http.MethodPost, "/api/v1/tasks/route", taskRequest{Task: task, Workers: workers}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListWorkers returns state snapshots for all registered workers.
func (c *Client) ListWorkers() ([]WorkerResponse, error) {
	var out struct {
		Workers []WorkerResponse `json:"workers"`
	}
	if err := c.do(http.MethodGet, "/api/v1/workers", nil, &out); err != nil {
		return nil, err
	}
	return out.Workers, nil
}

// RegisterWorker activates a catalog worker.
func (c *Client) RegisterWorker(id string) error {
	return c.do(http.MethodPost, "/api/v1/workers/"+url.PathEscape(id)+"/register", nil, nil)
}

// UnregisterWorker deactivates a worker.
func (c *Client) UnregisterWorker(id string) error {
	return c.do(http.MethodDelete, "/api/v1/workers/"+url.PathEscape(id), nil, nil)
}

// ChannelHistory returns up to limit retained messages from a channel.
func (c *Client) ChannelHistory(name string, limit int) ([]MessageResponse, error) {
	path := "/api/v1/channels/" + url.PathEscape(name) + "/history"
	if limit > 0 {
		path += fmt.Sprintf("?limit=%d", limit)
	}

	var out struct {
		Messages []MessageResponse `json:"messages"`
	}
	if err := c.do(http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

// Stats returns the runtime and channel statistics snapshot.
func (c *Client) Stats() (*StatsResponse, error) {
	var out StatsResponse
	if err := c.do(http.MethodGet, "/api/v1/stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("%s (%s)", apiErr.Error.Message, apiErr.Error.Code)
		}
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, path)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
