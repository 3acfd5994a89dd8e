package transport

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

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/goliatone/go-productoptions/pkg/coordinator"
	"github.com/goliatone/go-productoptions/pkg/model"
	"github.com/goliatone/go-productoptions/pkg/pricing"
)

// ClientOption customises a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout bounds each round-trip.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.http.Timeout = timeout
		}
	}
}

// Client talks to a Server. It implements coordinator.Authority and
// coordinator.Committer so a presentation-side Coordinator can defer to a
// remote authoritative context.
type Client struct {
	base string
	http *http.Client
}

var (
	_ coordinator.Authority = (*Client)(nil)
	_ coordinator.Committer = (*Client)(nil)
)

// NewClient returns a client for the server at baseURL.
func NewClient(baseURL string, options ...ClientOption) (*Client, error) {
	parsed, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("transport: invalid base url %q", baseURL)
	}
	c := &Client{
		base: strings.TrimRight(parsed.String(), "/"),
		http: &http.Client{Timeout: 5 * time.Second},
	}
	for _, opt := range options {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// Evaluate implements coordinator.Authority.
func (c *Client) Evaluate(ctx context.Context, req coordinator.Request) (coordinator.Response, error) {
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	var out coordinator.Response
	if err := c.post(ctx, "evaluate", c.itemPath(req.ItemID, "formulas"), req, &out); err != nil {
		return coordinator.Response{}, err
	}
	return out, nil
}

// Commit implements coordinator.Committer.
func (c *Client) Commit(ctx context.Context, itemID string, sub model.Submission) (pricing.Breakdown, error) {
	var out pricing.Breakdown
	if err := c.post(ctx, "commit", c.itemPath(itemID, "commit"), SubmissionRequest{Submission: sub}, &out); err != nil {
		return pricing.Breakdown{}, err
	}
	return out, nil
}

// Visibility asks the server for the visibility of every option.
func (c *Client) Visibility(ctx context.Context, itemID string, sub model.Submission) (map[string]bool, error) {
	var out VisibilityResponse
	if err := c.post(ctx, "visibility", c.itemPath(itemID, "visibility"), SubmissionRequest{Submission: sub}, &out); err != nil {
		return nil, err
	}
	return out.Visibility, nil
}

func (c *Client) itemPath(itemID, action string) string {
	return c.base + "/v1/items/" + url.PathEscape(itemID) + "/" + action
}

func (c *Client) post(ctx context.Context, op, endpoint string, body, out any) error {
	ctx, span := tracer.Start(ctx, "client."+op)
	defer span.End()
	span.SetAttributes(attribute.String("http.url", endpoint))

	fail := func(err error) error {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return &coordinator.TransportError{Op: op, Err: err}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fail(fmt.Errorf("encode request: %w", err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fail(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fail(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fail(fmt.Errorf("read response: %w", err))
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode != http.StatusOK {
		var payload struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(data, &payload)
		if payload.Error == "" {
			payload.Error = http.StatusText(resp.StatusCode)
		}
		statusErr := &StatusError{Code: resp.StatusCode, Message: payload.Error}
		return fail(statusErr)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fail(fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// StatusError is a non-200 answer from the server.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Code, e.Message)
}

// Unwrap maps a 404 to coordinator.ErrUnknownItem.
func (e *StatusError) Unwrap() error {
	if e.Code == http.StatusNotFound {
		return coordinator.ErrUnknownItem
	}
	return nil
}
