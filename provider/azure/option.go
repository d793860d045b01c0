package azure

import (
	"log/slog"
	"net/http"
	"time"
)

// Option configures a Client.
type Option func(*Client)

// WithModel sets the analysis model (default "prebuilt-layout").
func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// WithAPIVersion sets the api-version query parameter (default "2024-11-30").
func WithAPIVersion(v string) Option {
	return func(c *Client) { c.apiVersion = v }
}

// WithPollInterval sets how long to wait between operation polls when the
// service sends no Retry-After header (default 2s).
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) { c.pollInterval = d }
}

// WithTimeout bounds a whole Analyze call, submit and polling included
// (default 5m). Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithHTTPClient sets a custom HTTP client (e.g. for proxies).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// WithLogger sets the logger for poll progress.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}
