// Package client is the HTTP client for a running livecap daemon.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Client talks to the daemon API.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// Config holds client configuration.
type Config struct {
	BaseURL string
	Timeout time.Duration
	Logger  *slog.Logger
}

// DefaultConfig returns default client configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL: "http://127.0.0.1:9080",
		Timeout: 30 * time.Second,
	}
}

// New creates a new livecap API client.
func New(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultConfig().BaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Client{
		baseURL: config.BaseURL,
		logger:  config.Logger,
		client:  &http.Client{Timeout: config.Timeout},
	}
}

// IsReachable checks if the daemon is running and reachable.
func (c *Client) IsReachable(ctx context.Context) bool {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil) == nil
}

// StartRecording starts a capture. With an empty StreamURL the daemon
// resolves the channel and picks a stream itself.
func (c *Client) StartRecording(ctx context.Context, req StartRequest) (string, error) {
	var out statusData
	if err := c.do(ctx, http.MethodPost, "/record/start", req, &out); err != nil {
		return "", err
	}
	return out.Status, nil
}

// StopRecording stops the capture for url.
func (c *Client) StopRecording(ctx context.Context, channelURL string) (string, error) {
	var out statusData
	if err := c.do(ctx, http.MethodPost, "/record/stop?url="+url.QueryEscape(channelURL), nil, &out); err != nil {
		return "", err
	}
	return out.Status, nil
}

// RecordingStatus returns the recording state of url.
func (c *Client) RecordingStatus(ctx context.Context, channelURL string) (string, error) {
	var out statusData
	if err := c.do(ctx, http.MethodGet, "/record/status?url="+url.QueryEscape(channelURL), nil, &out); err != nil {
		return "", err
	}
	return out.Status, nil
}

// StopAll stops every active capture.
func (c *Client) StopAll(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/record/stop-all", nil, nil)
}

// Plans lists all recording plans.
func (c *Client) Plans(ctx context.Context) ([]Plan, error) {
	var out []Plan
	if err := c.do(ctx, http.MethodGet, "/plans", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SavePlan upserts a plan.
func (c *Client) SavePlan(ctx context.Context, plan Plan) error {
	return c.do(ctx, http.MethodPost, "/plans", plan, nil)
}

// DeletePlan removes the plan for url.
func (c *Client) DeletePlan(ctx context.Context, channelURL string) error {
	return c.do(ctx, http.MethodDelete, "/plans?url="+url.QueryEscape(channelURL), nil, nil)
}

// SetPlanEnabled toggles the plan for url.
func (c *Client) SetPlanEnabled(ctx context.Context, channelURL string, enabled bool) error {
	q := "/plans/enabled?url=" + url.QueryEscape(channelURL) + "&enabled=" + strconv.FormatBool(enabled)
	return c.do(ctx, http.MethodPost, q, nil, nil)
}

// LastPollingTime returns the last poller cycle time in unix milliseconds.
func (c *Client) LastPollingTime(ctx context.Context) (int64, error) {
	var out struct {
		LastPollingTime int64 `json:"lastPollingTime"`
	}
	if err := c.do(ctx, http.MethodGet, "/plans/polling-time", nil, &out); err != nil {
		return 0, err
	}
	return out.LastPollingTime, nil
}

// ResolveLive resolves the current live state of a channel.
func (c *Client) ResolveLive(ctx context.Context, channelURL string) (*LiveInfo, error) {
	var out LiveInfo
	if err := c.do(ctx, http.MethodGet, "/live?url="+url.QueryEscape(channelURL), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Histories lists all recording history rows.
func (c *Client) Histories(ctx context.Context) ([]History, error) {
	var out []History
	if err := c.do(ctx, http.MethodGet, "/histories", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteHistory removes one history row, optionally with its file.
func (c *Client) DeleteHistory(ctx context.Context, channelURL string, startTime int64, deleteFile bool) error {
	q := fmt.Sprintf("/histories?url=%s&start=%d&delete_file=%t", url.QueryEscape(channelURL), startTime, deleteFile)
	return c.do(ctx, http.MethodDelete, q, nil, nil)
}

// GetConfig reads the stored daemon config.
func (c *Client) GetConfig(ctx context.Context) (AppConfig, error) {
	var out AppConfig
	err := c.do(ctx, http.MethodGet, "/config", nil, &out)
	return out, err
}

// SetConfig replaces the stored daemon config.
func (c *Client) SetConfig(ctx context.Context, cfg AppConfig) error {
	return c.do(ctx, http.MethodPut, "/config", cfg, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("request failed", "method", method, "path", path, "error", err)
		return fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("HTTP %d: decode response: %w", resp.StatusCode, err)
	}
	if env.Code != 0 {
		return fmt.Errorf("daemon error: %s", env.Message)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode data: %w", err)
		}
	}
	return nil
}
