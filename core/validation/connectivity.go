package validation

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// ConnectivityResult is the outcome of one endpoint reachability check.
type ConnectivityResult struct {
	Reachable  bool
	StatusCode int
	Message    string
	Latency    time.Duration
	Error      error
}

// ConnectivityChecker probes the external services the pipeline depends
// on. Any HTTP response counts as reachable; a 4xx from an API root just
// means the service is up and talking.
type ConnectivityChecker struct {
	timeout time.Duration
	client  *http.Client
}

// NewConnectivityChecker creates a checker with a 10 second timeout.
func NewConnectivityChecker() *ConnectivityChecker {
	c := &ConnectivityChecker{timeout: 10 * time.Second}
	c.client = &http.Client{Timeout: c.timeout}
	return c
}

// WithTimeout sets the per-probe timeout.
func (c *ConnectivityChecker) WithTimeout(timeout time.Duration) *ConnectivityChecker {
	c.timeout = timeout
	c.client.Timeout = timeout
	return c
}

// CheckEndpoint sends a GET to endpointURL and reports whether anything
// answered.
func (c *ConnectivityChecker) CheckEndpoint(ctx context.Context, endpointURL string) ConnectivityResult {
	if err := ValidateEndpointURL(endpointURL); err != nil {
		return ConnectivityResult{Message: "Invalid URL", Error: err}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpointURL, nil)
	if err != nil {
		return ConnectivityResult{Message: "Failed to build request", Error: err}
	}

	started := time.Now()
	resp, err := c.client.Do(req)
	latency := time.Since(started)
	if err != nil {
		message := "Connection failed"
		if ctx.Err() == context.DeadlineExceeded {
			message = fmt.Sprintf("Timed out after %v", c.timeout)
		}
		return ConnectivityResult{Message: message, Latency: latency, Error: err}
	}
	defer resp.Body.Close()

	return ConnectivityResult{
		Reachable:  true,
		StatusCode: resp.StatusCode,
		Message:    fmt.Sprintf("reachable (status %d)", resp.StatusCode),
		Latency:    latency,
	}
}

// IsReachable reports whether the endpoint answered at all.
func (c *ConnectivityChecker) IsReachable(ctx context.Context, endpointURL string) bool {
	return c.CheckEndpoint(ctx, endpointURL).Reachable
}
