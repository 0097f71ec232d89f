// Package client is a Go client for the status relay HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sapliy/status-relay/internal/notification"
)

const (
	DefaultBaseURL = "http://localhost:8080"

	processRequestPath = "/ai-process-request"
	healthPath         = "/health"
)

// StatusNotification is the request body accepted by the relay.
type StatusNotification = notification.StatusNotification

// Client submits status notifications to a relay.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// New creates a client for the relay at baseURL (DefaultBaseURL when empty).
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// Ack is the relay's response to an accepted notification.
type Ack struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	TaskID  string `json:"task_id,omitempty"`
}

// Health is the relay's liveness report.
type Health struct {
	Status        string `json:"status"`
	Service       string `json:"service"`
	QueueDepth    int    `json:"queue_depth"`
	AMQPConnected string `json:"amqp_connected"`
}

// APIError is returned for any non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
	Details    json.RawMessage
}

func (e *APIError) Error() string {
	return fmt.Sprintf("relay api error: status=%d message=%s", e.StatusCode, e.Message)
}

// SubmitStatus posts n to the relay. A nil error means the notification was
// accepted for background delivery, not that the email was sent.
func (c *Client) SubmitStatus(ctx context.Context, n *StatusNotification) (*Ack, error) {
	var ack Ack
	if err := c.do(ctx, http.MethodPost, processRequestPath, n, &ack); err != nil {
		return nil, err
	}
	return &ack, nil
}

// Health fetches the relay's health report.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var h Health
	if err := c.do(ctx, http.MethodGet, healthPath, nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}

	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil || len(data) == 0 {
		return apiErr
	}

	var envelope struct {
		Error   string          `json:"error"`
		Details json.RawMessage `json:"details"`
	}
	if json.Unmarshal(data, &envelope) == nil && envelope.Error != "" {
		apiErr.Message = envelope.Error
		apiErr.Details = envelope.Details
		return apiErr
	}

	apiErr.Message = strings.TrimSpace(string(data))
	return apiErr
}
