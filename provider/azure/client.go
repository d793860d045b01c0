// Package azure implements kitabi.CloudAnalyzer on the Azure AI Document
// Intelligence layout model.
package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/nevindra/kitabi"
)

const (
	defaultModel        = "prebuilt-layout"
	defaultAPIVersion   = "2024-11-30"
	defaultPollInterval = 2 * time.Second
	defaultTimeout      = 5 * time.Minute
	maxErrorBody        = 64 << 10
)

// Client calls the Document Intelligence analyze endpoint.
type Client struct {
	client       *http.Client
	endpoint     string
	key          string
	model        string
	apiVersion   string
	pollInterval time.Duration
	timeout      time.Duration
	logger       *slog.Logger
}

var _ kitabi.CloudAnalyzer = (*Client)(nil)

// New creates a client for the resource at endpoint, authenticating with key.
func New(endpoint, key string, opts ...Option) (*Client, error) {
	if endpoint == "" {
		return nil, errors.New("azure: endpoint is required")
	}
	if _, err := url.Parse(endpoint); err != nil {
		return nil, fmt.Errorf("azure: invalid endpoint: %w", err)
	}
	if key == "" {
		return nil, errors.New("azure: key is required")
	}
	c := &Client{
		client:       http.DefaultClient,
		endpoint:     strings.TrimRight(endpoint, "/"),
		key:          key,
		model:        defaultModel,
		apiVersion:   defaultAPIVersion,
		pollInterval: defaultPollInterval,
		timeout:      defaultTimeout,
		logger:       slog.New(slog.DiscardHandler),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Name implements kitabi.CloudAnalyzer.
func (c *Client) Name() string { return "azure" }

// Model returns the analysis model the client submits to.
func (c *Client) Model() string { return c.model }

// Analyze submits pdf for layout analysis and polls until the operation
// finishes. Non-success responses are returned as *kitabi.ErrHTTP.
func (c *Client) Analyze(ctx context.Context, pdf []byte, r kitabi.PageRange) (kitabi.Analysis, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	opURL, err := c.submit(ctx, pdf, r)
	if err != nil {
		return kitabi.Analysis{}, err
	}
	c.logger.Debug("azure analyze submitted", "model", c.model, "pages", pagesParam(r))

	op, err := c.poll(ctx, opURL)
	if err != nil {
		return kitabi.Analysis{}, err
	}
	return convert(op.Result, c.model), nil
}

func (c *Client) analyzeURL(r kitabi.PageRange) string {
	u := c.endpoint + "/documentintelligence/documentModels/" + url.PathEscape(c.model) + ":analyze"
	q := url.Values{}
	q.Set("api-version", c.apiVersion)
	if p := pagesParam(r); p != "" {
		q.Set("pages", p)
	}
	return u + "?" + q.Encode()
}

// pagesParam renders a 0-based half-open range as the service's 1-based
// inclusive "a-b" form. The zero range yields "".
func pagesParam(r kitabi.PageRange) string {
	if r.All() || r.Len() == 0 {
		return ""
	}
	if r.Len() == 1 {
		return strconv.Itoa(r.Start + 1)
	}
	return strconv.Itoa(r.Start+1) + "-" + strconv.Itoa(r.End)
}

func (c *Client) submit(ctx context.Context, pdf []byte, r kitabi.PageRange) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.analyzeURL(r), bytes.NewReader(pdf))
	if err != nil {
		return "", fmt.Errorf("azure: %w", err)
	}
	req.Header.Set("Content-Type", "application/pdf")
	req.Header.Set("Ocp-Apim-Subscription-Key", c.key)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("azure: submit: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		return "", httpErr(resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	loc := resp.Header.Get("Operation-Location")
	if loc == "" {
		return "", fmt.Errorf("%w: azure: missing Operation-Location header", kitabi.ErrCloudUnavailable)
	}
	return loc, nil
}

func (c *Client) poll(ctx context.Context, opURL string) (analyzeOperation, error) {
	for attempt := 1; ; attempt++ {
		op, wait, err := c.fetch(ctx, opURL)
		if err != nil {
			return analyzeOperation{}, err
		}
		switch op.Status {
		case statusSucceeded:
			return op, nil
		case statusRunning, statusNotStarted:
		default:
			msg := string(op.Status)
			if op.Error != nil {
				msg = op.Error.Code + ": " + op.Error.Message
			}
			return analyzeOperation{}, fmt.Errorf("%w: azure operation %s", kitabi.ErrCloudUnavailable, msg)
		}

		if wait <= 0 {
			wait = c.pollInterval
		}
		c.logger.Debug("azure operation pending", "status", op.Status, "attempt", attempt, "wait", wait)
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return analyzeOperation{}, ctx.Err()
		case <-t.C:
		}
	}
}

func (c *Client) fetch(ctx context.Context, opURL string) (analyzeOperation, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, opURL, nil)
	if err != nil {
		return analyzeOperation{}, 0, fmt.Errorf("azure: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.key)

	resp, err := c.client.Do(req)
	if err != nil {
		return analyzeOperation{}, 0, fmt.Errorf("azure: poll: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return analyzeOperation{}, 0, httpErr(resp)
	}
	var op analyzeOperation
	if err := json.NewDecoder(resp.Body).Decode(&op); err != nil {
		return analyzeOperation{}, 0, fmt.Errorf("azure: decode operation: %w", err)
	}
	return op, kitabi.ParseRetryAfter(resp.Header.Get("Retry-After")), nil
}

// httpErr reads the response body and returns an ErrHTTP for retry middleware.
func httpErr(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &kitabi.ErrHTTP{
		Status:     resp.StatusCode,
		Body:       msg,
		RetryAfter: kitabi.ParseRetryAfter(resp.Header.Get("Retry-After")),
	}
}
