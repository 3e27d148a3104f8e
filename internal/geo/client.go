// Package geo talks to a GeoServer instance: the REST layer listing and the
// WFS feature and schema endpoints.
package geo

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Config locates a GeoServer workspace.
type Config struct {
	BaseURL     string
	Workspace   string
	Username    string
	Password    string
	MaxFeatures int
	Timeout     time.Duration
}

// Client is a GeoServer HTTP client bound to one workspace.
type Client struct {
	httpClient  *http.Client
	base        string
	workspace   string
	user, pass  string
	maxFeatures int
}

// NewClient applies defaults for unset fields.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:9090/geoserver"
	}
	if cfg.Workspace == "" {
		cfg.Workspace = "ne"
	}
	if cfg.MaxFeatures <= 0 {
		cfg.MaxFeatures = 10
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		base:        strings.TrimRight(cfg.BaseURL, "/"),
		workspace:   cfg.Workspace,
		user:        cfg.Username,
		pass:        cfg.Password,
		maxFeatures: cfg.MaxFeatures,
	}
}

// Workspace returns the workspace the client is bound to.
func (c *Client) Workspace() string { return c.workspace }

// BaseURL returns the GeoServer root URL.
func (c *Client) BaseURL() string { return c.base }

// WMSURL is the workspace WMS endpoint used by map viewers.
func (c *Client) WMSURL() string { return c.base + "/" + url.PathEscape(c.workspace) + "/wms" }

// QualifiedName returns "workspace:layer".
func (c *Client) QualifiedName(layer string) string { return c.workspace + ":" + layer }

func (c *Client) wfsURL(params url.Values) string {
	return c.base + "/" + url.PathEscape(c.workspace) + "/wfs?" + params.Encode()
}

// get performs an authenticated GET and returns the body of a 2xx response.
func (c *Client) get(ctx context.Context, op, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.user != "" {
		req.SetBasicAuth(c.user, c.pass)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &UpstreamError{Op: op, URL: endpoint, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, &UpstreamError{Op: op, URL: endpoint, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, &UpstreamError{Op: op, URL: endpoint, Err: err}
	}
	return body, nil
}

// UpstreamError reports an unreachable GeoServer or a non-2xx reply.
type UpstreamError struct {
	Op         string
	URL        string
	StatusCode int
	Body       string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("geoserver %s: %v", e.Op, e.Err)
	}
	if e.Body != "" {
		return fmt.Sprintf("geoserver %s: status=%d body=%s", e.Op, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("geoserver %s: status=%d", e.Op, e.StatusCode)
}

func (e *UpstreamError) Unwrap() error { return e.Err }
