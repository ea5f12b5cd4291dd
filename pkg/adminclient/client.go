// Package adminclient is a client for a running server's admin interface.
package adminclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/marmos91/srvkit/pkg/admin/handlers"
	"github.com/marmos91/srvkit/pkg/flags"
	"github.com/marmos91/srvkit/pkg/stats"
)

// Client talks to one admin server.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

// New creates a client for baseURL. A bare "host:port" or ":port" gets an
// http:// scheme, so the value of the admin.port flag can be passed directly.
func New(baseURL string) *Client {
	if !strings.Contains(baseURL, "://") {
		if strings.HasPrefix(baseURL, ":") {
			baseURL = "localhost" + baseURL
		}
		baseURL = "http://" + baseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// WithToken returns a new client that sends token as a bearer credential.
func (c *Client) WithToken(token string) *Client {
	return &Client{
		baseURL:    c.baseURL,
		httpClient: c.httpClient,
		token:      token,
	}
}

// BaseURL returns the normalized server URL.
func (c *Client) BaseURL() string { return c.baseURL }

// do performs an HTTP request and decodes the JSON response into result.
func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	// Health answers 503 with a regular payload; callers inspect it.
	if resp.StatusCode >= 400 && !(resp.StatusCode == http.StatusServiceUnavailable && path == "/admin/health") {
		return newAPIError(resp.StatusCode, respBody)
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// envelope decodes the standard admin response wrapper around T.
type envelope[T any] struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Data      T         `json:"data"`
	Error     string    `json:"error"`
}

func getData[T any](ctx context.Context, c *Client, path string) (T, error) {
	var env envelope[T]
	err := c.do(ctx, http.MethodGet, path, nil, &env)
	return env.Data, err
}

// Ping checks that the admin server answers.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/admin/ping", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return newAPIError(resp.StatusCode, body)
	}
	return nil
}

// Health returns the lifecycle state. A failed or shutting-down server is
// reported through the returned status, not as an error.
func (c *Client) Health(ctx context.Context) (handlers.HealthStatus, error) {
	return getData[handlers.HealthStatus](ctx, c, "/admin/health")
}

// Flags lists the server's flags.
func (c *Client) Flags(ctx context.Context) ([]flags.Info, error) {
	return getData[[]flags.Info](ctx, c, "/admin/flags")
}

// Metrics returns sorted metrics, restricted to names when given.
func (c *Client) Metrics(ctx context.Context, names ...string) (handlers.MetricsReport, error) {
	path := "/admin/metrics"
	if len(names) > 0 {
		q := url.Values{"m": names}
		path += "?" + q.Encode()
	}
	return getData[handlers.MetricsReport](ctx, c, path)
}

// MetricsJSON returns the flat metric map.
func (c *Client) MetricsJSON(ctx context.Context) (map[string]float64, error) {
	var out map[string]float64
	err := c.do(ctx, http.MethodGet, "/admin/metrics.json", nil, &out)
	return out, err
}

// Histograms returns histogram summaries, restricted to names when given.
func (c *Client) Histograms(ctx context.Context, names ...string) (map[string]stats.HistogramSummary, error) {
	path := "/admin/histograms.json"
	if len(names) > 0 {
		q := url.Values{"h": names}
		path += "?" + q.Encode()
	}
	var out map[string]stats.HistogramSummary
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

// Distribution returns the bucket distribution of the named histograms, or
// of every histogram when names is empty. cumulative selects cdf over pdf.
func (c *Client) Distribution(ctx context.Context, cumulative bool, names ...string) (map[string][]handlers.BucketShare, error) {
	format := handlers.FormatPDF
	if cumulative {
		format = handlers.FormatCDF
	}
	q := url.Values{"fmt": {format}}
	if len(names) > 0 {
		q["h"] = names
	}
	var out map[string][]handlers.BucketShare
	err := c.do(ctx, http.MethodGet, "/admin/histograms.json?"+q.Encode(), nil, &out)
	return out, err
}

// ServerInfo describes the remote process.
func (c *Client) ServerInfo(ctx context.Context) (handlers.ServerInfo, error) {
	return getData[handlers.ServerInfo](ctx, c, "/admin/server_info")
}

// Routes lists the admin route table.
func (c *Client) Routes(ctx context.Context) ([]handlers.Route, error) {
	return getData[[]handlers.Route](ctx, c, "/admin/")
}

// Shutdown asks the server to shut down with reason.
func (c *Client) Shutdown(ctx context.Context, reason string) (handlers.ShutdownResult, error) {
	var env envelope[handlers.ShutdownResult]
	err := c.do(ctx, http.MethodPost, "/admin/shutdown", handlers.ShutdownBody{Reason: reason}, &env)
	return env.Data, err
}
