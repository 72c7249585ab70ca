// Package client provides read and trigger access to a running
// salespipe server for CLI commands and the TUI.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sbs27/salespipe/metrics"
	"github.com/sbs27/salespipe/sched"
)

// defaultTimeout bounds each control API request.
const defaultTimeout = 10 * time.Second

// HealthInfo is the /health response body.
type HealthInfo struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Time    string `json:"time"`
}

// ScheduleInfo is the /schedule response body.
type ScheduleInfo struct {
	Interval        string     `json:"interval"`
	IntervalSeconds float64    `json:"interval_seconds"`
	LastRunAt       *time.Time `json:"last_run_at"`
	NextRunAt       *time.Time `json:"next_run_at"`
	IsRunning       bool       `json:"is_running"`
}

// TriggerResult is the /run-now response body. A refused trigger is a
// result, not an error: Triggered false with the server's reason.
type TriggerResult struct {
	Triggered bool   `json:"triggered"`
	Reason    string `json:"reason,omitempty"`
	Message   string `json:"message,omitempty"`
}

// Client is the read/trigger surface of a running server.
type Client interface {
	Health(ctx context.Context) (*HealthInfo, error)
	Status(ctx context.Context) (*sched.Status, error)
	Schedule(ctx context.Context) (*ScheduleInfo, error)
	Metrics(ctx context.Context) (*metrics.Snapshot, error)
	RunNow(ctx context.Context) (*TriggerResult, error)
}

// HTTP talks to a salespipe control API over HTTP.
type HTTP struct {
	baseURL string
	client  *http.Client
}

// New creates an HTTP client for the server at baseURL
// (e.g. "http://localhost:8080").
func New(baseURL string) *HTTP {
	return &HTTP{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: defaultTimeout},
	}
}

// Health fetches the server's liveness document.
func (h *HTTP) Health(ctx context.Context) (*HealthInfo, error) {
	var info HealthInfo
	if err := h.get(ctx, "/health", &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Status fetches scheduler state and the last run's report.
func (h *HTTP) Status(ctx context.Context) (*sched.Status, error) {
	var status sched.Status
	if err := h.get(ctx, "/status", &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Schedule fetches interval and next-fire info.
func (h *HTTP) Schedule(ctx context.Context) (*ScheduleInfo, error) {
	var info ScheduleInfo
	if err := h.get(ctx, "/schedule", &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Metrics fetches the server's counters snapshot.
func (h *HTTP) Metrics(ctx context.Context) (*metrics.Snapshot, error) {
	var snap metrics.Snapshot
	if err := h.get(ctx, "/metrics", &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// RunNow asks the server to start a run. A 409 (run already in
// flight) decodes into a TriggerResult, not an error.
func (h *HTTP) RunNow(ctx context.Context) (*TriggerResult, error) {
	resp, err := h.do(ctx, "/run-now")
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusConflict {
		return nil, statusError(resp, "/run-now")
	}

	var result TriggerResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode /run-now response: %w", err)
	}
	return &result, nil
}

func (h *HTTP) get(ctx context.Context, path string, v any) error {
	resp, err := h.do(ctx, path)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp, path)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func (h *HTTP) do(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("server unreachable at %s: %w", h.baseURL, err)
	}
	return resp, nil
}

// statusError drains enough of the body to surface the server's JSON
// error message alongside the status code.
func statusError(resp *http.Response, path string) error {
	var body struct {
		Error string `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if json.Unmarshal(data, &body) == nil && body.Error != "" {
		return fmt.Errorf("%s returned status %d: %s", path, resp.StatusCode, body.Error)
	}
	return fmt.Errorf("%s returned status %d", path, resp.StatusCode)
}

// Verify HTTP implements Client.
var _ Client = (*HTTP)(nil)
