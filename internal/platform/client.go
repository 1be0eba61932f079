package platform

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	requestTimeout = 15 * time.Second
	maxBodyBytes   = 8 << 20
)

// Client is a shared HTTP client for all resolvers. Requests are rate
// limited so polling many plans does not hammer the platforms.
type Client struct {
	hc      *http.Client
	limiter *rate.Limiter
}

func NewClient() *Client {
	return &Client{
		hc:      &http.Client{Timeout: requestTimeout},
		limiter: rate.NewLimiter(rate.Every(time.Second), 3),
	}
}

// fetch GETs url with headers and returns the response body as a string.
func (c *Client) fetch(ctx context.Context, url string, headers map[string]string) (string, error) {
	resp, err := c.get(ctx, url, headers)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("get %s: %s", url, resp.Status)
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", url, err)
	}
	return string(b), nil
}

// probe GETs url and returns only the status code. Non-2xx codes are
// not errors here, callers use them to decide liveness.
func (c *Client) probe(ctx context.Context, url string, headers map[string]string) (int, error) {
	resp, err := c.get(ctx, url, headers)
	if err != nil {
		return 0, err
	}
	_ = resp.Body.Close()
	return resp.StatusCode, nil
}

func (c *Client) get(ctx context.Context, url string, headers map[string]string) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return c.hc.Do(req)
}
