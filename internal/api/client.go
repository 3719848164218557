package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"vigil/internal/health"
	"vigil/internal/services"
)

// ErrAPIUnavailable is returned when no daemon address is configured.
var ErrAPIUnavailable = errors.New("daemon API unavailable")

// Client talks to the daemon HTTP API.
type Client struct {
	base  *url.URL
	http  *http.Client
	token string
}

// NewClient builds a client for bind (host:port or URL). timeout bounds each
// request and should exceed the daemon invocation timeout for run endpoints.
func NewClient(bind, token string, timeout time.Duration) (*Client, error) {
	bind = strings.TrimSpace(bind)
	if bind == "" {
		return nil, ErrAPIUnavailable
	}
	if !strings.Contains(bind, "://") {
		bind = "http://" + bind
	}
	base, err := url.Parse(bind)
	if err != nil {
		return nil, err
	}
	base.Path = ""
	base.RawQuery = ""
	base.Fragment = ""

	return &Client{
		base:  base,
		http:  &http.Client{Timeout: timeout},
		token: strings.TrimSpace(token),
	}, nil
}

// RunSummary triggers the summary job and returns the stored summary.
func (c *Client) RunSummary(ctx context.Context) (health.WindowSummary, error) {
	var out health.WindowSummary
	err := c.do(ctx, http.MethodPost, "/api/summary/run", nil, nil, &out)
	return out, err
}

// RunSLO triggers the release check and returns its verdict.
func (c *Client) RunSLO(ctx context.Context) (health.SLOCheckResult, error) {
	var out health.SLOCheckResult
	err := c.do(ctx, http.MethodPost, "/api/slo/run", nil, nil, &out)
	return out, err
}

// Summary fetches the stored summary at key (empty means the default).
func (c *Client) Summary(ctx context.Context, key string) (health.WindowSummary, error) {
	values := url.Values{}
	if key = strings.TrimSpace(key); key != "" {
		values.Set("key", key)
	}
	var out health.WindowSummary
	err := c.do(ctx, http.MethodGet, "/api/summary", values, nil, &out)
	return out, err
}

// SLO fetches the latest SLO check.
func (c *Client) SLO(ctx context.Context) (health.SLOCheckResult, error) {
	var out health.SLOCheckResult
	err := c.do(ctx, http.MethodGet, "/api/slo", nil, nil, &out)
	return out, err
}

// Events lists events with since <= timestamp <= until. A zero until means
// open-ended.
func (c *Client) Events(ctx context.Context, since, until time.Time) (EventListResponse, error) {
	values := url.Values{}
	if !since.IsZero() {
		values.Set("since", since.UTC().Format(time.RFC3339Nano))
	}
	if !until.IsZero() {
		values.Set("until", until.UTC().Format(time.RFC3339Nano))
	}
	var out EventListResponse
	err := c.do(ctx, http.MethodGet, "/api/events", values, nil, &out)
	return out, err
}

// RecordEvent appends an event and returns its id.
func (c *Client) RecordEvent(ctx context.Context, req RecordEventRequest) (string, error) {
	var out RecordEventResponse
	if err := c.do(ctx, http.MethodPost, "/api/events", nil, req, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// Status fetches daemon runtime information.
func (c *Client) Status(ctx context.Context) (DaemonStatus, error) {
	var out DaemonStatus
	err := c.do(ctx, http.MethodGet, "/api/status", nil, nil, &out)
	return out, err
}

// TestNotification asks the daemon to send a test alert.
func (c *Client) TestNotification(ctx context.Context) (TestNotifyResponse, error) {
	var out TestNotifyResponse
	err := c.do(ctx, http.MethodPost, "/api/notifications/test", nil, nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if c == nil {
		return ErrAPIUnavailable
	}
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	endpoint := c.base.ResolveReference(&url.URL{Path: path, RawQuery: query.Encode()})
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var envelope Envelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, 8<<20)).Decode(&envelope); err != nil {
		if resp.StatusCode >= 400 {
			return statusError(resp.StatusCode, "")
		}
		return fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode >= 400 || !envelope.OK {
		return statusError(resp.StatusCode, envelope.Error)
	}
	if out == nil || len(envelope.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("decode %s payload: %w", path, err)
	}
	return nil
}

func statusError(code int, message string) error {
	if message == "" {
		message = http.StatusText(code)
	}
	marker := services.ErrTransient
	switch code {
	case http.StatusBadRequest:
		marker = services.ErrValidation
	case http.StatusUnauthorized, http.StatusForbidden:
		marker = services.ErrConfiguration
	case http.StatusNotFound:
		marker = services.ErrNotFound
	case http.StatusGatewayTimeout:
		marker = services.ErrTimeout
	case http.StatusServiceUnavailable:
		marker = services.ErrUnavailable
	}
	return fmt.Errorf("%w: daemon returned %d: %s", marker, code, message)
}

// IsAPIUnavailable reports whether err means the daemon could not be reached.
func IsAPIUnavailable(err error) bool {
	if err == nil {
		return false
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		err = urlErr.Err
	}
	var opErr *net.OpError
	return errors.Is(err, ErrAPIUnavailable) || errors.As(err, &opErr)
}
