// Package tracker is the client-side agent share pages use to report
// analytics. It fires one visit event per page view and one click event
// per activated template, against the authorized set the resolver already
// handed down — it never re-derives authorization.
//
// Sends are best-effort by contract, not by accident: each event goes out
// on its own goroutine with a short-timeout client, is never retried, and
// never surfaces a transport failure to the caller. A lost event is an
// accepted outcome.
package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

const defaultTimeout = 3 * time.Second

type eventPayload struct {
	Type         string `json:"type"`
	Token        string `json:"token"`
	TemplateSlug string `json:"template_slug,omitempty"`
}

// Client posts tracking events to the ingest endpoint.
type Client struct {
	endpoint string
	httpc    *http.Client
	logger   *slog.Logger
	wg       sync.WaitGroup
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client. The default has a 3s timeout.
func WithHTTPClient(c *http.Client) Option {
	return func(t *Client) {
		if c != nil {
			t.httpc = c
		}
	}
}

// WithLogger sets a logger for debug-level send failures. Failures are
// never returned regardless.
func WithLogger(l *slog.Logger) Option {
	return func(t *Client) {
		if l != nil {
			t.logger = l
		}
	}
}

// New creates a Client posting to baseURL's event ingest endpoint.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		endpoint: strings.TrimRight(baseURL, "/") + "/api/events",
		httpc:    &http.Client{Timeout: defaultTimeout},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Visit reports one page view for the given token. Returns immediately.
func (c *Client) Visit(token string) {
	c.send(eventPayload{Type: "visit", Token: token})
}

// Click reports one activation of an authorized template. Returns
// immediately.
func (c *Client) Click(token, slug string) {
	c.send(eventPayload{Type: "click", Token: token, TemplateSlug: slug})
}

// Flush blocks until in-flight sends have finished. For shutdown and
// tests only; page-serving code never calls it.
func (c *Client) Flush() {
	c.wg.Wait()
}

func (c *Client) send(payload eventPayload) {
	body, err := json.Marshal(payload)
	if err != nil {
		// Only unmarshalable types reach here, which eventPayload isn't.
		c.logger.Debug("tracker: marshal failed", "error", err)
		return
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		req, err := http.NewRequestWithContext(context.Background(),
			http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			c.logger.Debug("tracker: build request failed", "error", err)
			return
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpc.Do(req)
		if err != nil {
			c.logger.Debug("tracker: send failed", "type", payload.Type, "error", err)
			return
		}
		// Status is ignored: no response, success or failure, triggers a
		// retry here.
		_ = resp.Body.Close()
	}()
}
