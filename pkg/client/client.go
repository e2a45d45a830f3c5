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
)

// CreateTaskRequest is the payload for Client.CreateTask.
type CreateTaskRequest struct {
	JobID         string            `json:"job_id"`
	LevelSequence string            `json:"level_sequence"`
	MapPath       string            `json:"map_path,omitempty"`
	MovieQuality  int               `json:"movie_quality"`
	MovieFormat   string            `json:"movie_format"`
	ExtraParams   map[string]string `json:"extra_params,omitempty"`
}

// Task mirrors the worker pool's task object as returned by GET /tasks/{id}.
type Task struct {
	TaskID          string            `json:"task_id"`
	JobID           string            `json:"job_id"`
	LevelSequence   string            `json:"level_sequence"`
	MapPath         string            `json:"map_path"`
	MovieQuality    int               `json:"movie_quality"`
	MovieFormat     string            `json:"movie_format"`
	ExtraParams     map[string]string `json:"extra_params"`
	Status          string            `json:"status"`
	AssignedWorker  string            `json:"assigned_worker_id,omitempty"`
	ProgressPercent float64           `json:"progress_percent"`
	ProgressETA     int               `json:"progress_eta_seconds"`
	Success         bool              `json:"success"`
	ErrorMessage    string            `json:"error_message,omitempty"`
	VideoDirectory  string            `json:"video_directory,omitempty"`
}

// Status is the worker pool's GET /status response.
type Status struct {
	HostIP  string `json:"host_ip"`
	Workers struct {
		Total    int `json:"total"`
		Idle     int `json:"idle"`
		Busy     int `json:"busy"`
		Starting int `json:"starting"`
		Dead     int `json:"dead"`
	} `json:"workers"`
	Tasks struct {
		Total     int `json:"total"`
		Pending   int `json:"pending"`
		Assigned  int `json:"assigned"`
		Running   int `json:"running"`
		Completed int `json:"completed"`
		Failed    int `json:"failed"`
	} `json:"tasks"`
}

// Client is a thin HTTP client for the worker pool's task API, used by the
// run-task subcommand to submit a task and poll it to completion.
type Client struct {
	baseURL string
	opts    *options
}

// New builds a Client bound to the pool's base URL (e.g. http://127.0.0.1:9100/).
func New(baseURL string, opts ...Option) *Client {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		opts:    o,
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) (int, error) {
	var reqBody io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.opts.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.opts.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent || out == nil {
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode response: %w", err)
	}
	return resp.StatusCode, nil
}

// CreateTask submits a task and returns its assigned id.
func (c *Client) CreateTask(ctx context.Context, req CreateTaskRequest) (string, error) {
	var out struct {
		TaskID string `json:"task_id"`
		Status string `json:"status"`
	}
	status, err := c.do(ctx, http.MethodPost, "/tasks", req, &out)
	if err != nil {
		return "", err
	}
	if status != http.StatusCreated {
		return "", fmt.Errorf("create task: unexpected status %d", status)
	}
	return out.TaskID, nil
}

// GetTask fetches the current state of a task.
func (c *Client) GetTask(ctx context.Context, taskID string) (*Task, error) {
	var t Task
	status, err := c.do(ctx, http.MethodGet, "/tasks/"+taskID, nil, &t)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, fmt.Errorf("task %s not found", taskID)
	}
	return &t, nil
}

// CancelTask requests cancellation; returns false if the pool rejected it
// (e.g. the task is already RUNNING).
func (c *Client) CancelTask(ctx context.Context, taskID string) (bool, error) {
	status, err := c.do(ctx, http.MethodPost, "/tasks/"+taskID+"/cancel", nil, nil)
	if err != nil {
		return false, err
	}
	return status == http.StatusOK, nil
}

// GetStatus fetches the pool's worker/task summary.
func (c *Client) GetStatus(ctx context.Context) (*Status, error) {
	var s Status
	if _, err := c.do(ctx, http.MethodGet, "/status", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// ErrTaskTimeout is returned by WaitForCompletion when the task does not
// reach a terminal state within the given timeout.
type ErrTaskTimeout struct {
	TaskID  string
	Timeout time.Duration
}

func (e *ErrTaskTimeout) Error() string {
	return fmt.Sprintf("task %s did not complete within %s", e.TaskID, e.Timeout)
}

// ProgressFunc is invoked on each poll where progress has changed.
type ProgressFunc func(t *Task)

// WaitForCompletion polls GetTask at pollInterval until the task reaches
// completed/failed/canceled, or returns *ErrTaskTimeout past timeout.
// Transient poll errors are ignored (onProgress is not called) and the poll
// is retried on the next tick rather than aborting the wait, matching the
// polling loop's tolerance for momentary connection drops.
func (c *Client) WaitForCompletion(ctx context.Context, taskID string, pollInterval, timeout time.Duration, onProgress ProgressFunc) (*Task, error) {
	deadline := time.Now().Add(timeout)
	lastProgress := -1.0

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		if time.Now().After(deadline) {
			return nil, &ErrTaskTimeout{TaskID: taskID, Timeout: timeout}
		}

		t, err := c.GetTask(ctx, taskID)
		if err == nil {
			if t.ProgressPercent != lastProgress && onProgress != nil {
				onProgress(t)
				lastProgress = t.ProgressPercent
			}

			switch t.Status {
			case "completed", "failed", "canceled":
				return t, nil
			}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
