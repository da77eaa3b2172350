// Package api is the client for the test generation service.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sdlcpilot/internal/logging"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultBaseURL is used when no base URL is configured.
const DefaultBaseURL = "http://localhost:8000/api/v1"

// Service endpoints, relative to the base URL.
const (
	EndpointStatus              = "/status"
	EndpointGenerateTestCases   = "/testcases/generate"
	EndpointGeneratePyTest      = "/pytest/generate"
	EndpointGenerateFromRequest = "/pytest/generate-from-requirement"
)

// SlowRequestThreshold is the duration above which a request is logged as slow.
const SlowRequestThreshold = 30 * time.Second

// RequestIDHeader carries a per-request id the service can log.
const RequestIDHeader = "X-Request-ID"

// Client talks JSON to the generation service. It is safe for concurrent use.
// No retries are attempted and no timeout is imposed beyond what the
// supplied http.Client or context carries.
type Client struct {
	baseURL    string
	httpClient *http.Client
	headers    map[string]string
	logger     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithHeader adds a header sent with every request.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.headers[key] = value
	}
}

// WithLogger sets the logger used to report failed requests.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a client for baseURL (DefaultBaseURL when empty).
func New(baseURL string, opts ...Option) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{},
		headers:    make(map[string]string),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the base path requests are sent to.
func (c *Client) BaseURL() string { return c.baseURL }

// Request sends body (when non-nil) as JSON to endpoint and decodes a 2xx
// response into out (when non-nil). Every failure is a *TransportError.
func (c *Client) Request(ctx context.Context, method, endpoint string, body, out any) error {
	status, data, err := c.do(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return c.fail(method, endpoint, &TransportError{
			StatusCode: status,
			Message:    fmt.Sprintf("invalid JSON response: %v", err),
			Err:        err,
		})
	}
	return nil
}

// do performs the round trip and returns the raw body of a 2xx response.
func (c *Client) do(ctx context.Context, method, endpoint string, body any) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, nil, c.fail(method, endpoint, &TransportError{
				Message: fmt.Sprintf("failed to encode request: %v", err),
				Err:     err,
			})
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return 0, nil, c.fail(method, endpoint, &TransportError{
			Message: fmt.Sprintf("failed to create request: %v", err),
			Err:     err,
		})
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	requestID := uuid.NewString()
	req.Header.Set(RequestIDHeader, requestID)

	timer := logging.StartTimer(logging.CategoryAPI, method+" "+endpoint)
	defer timer.StopWithThreshold(SlowRequestThreshold)
	logging.APIDebug("%s %s request_id=%s", method, endpoint, requestID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, c.fail(method, endpoint, &TransportError{
			Message: fmt.Sprintf("request failed: %v", err),
			Err:     err,
		})
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, c.fail(method, endpoint, &TransportError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("failed to read response: %v", err),
			Err:        err,
		})
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, nil, c.fail(method, endpoint, &TransportError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(resp.StatusCode, data),
		})
	}
	return resp.StatusCode, data, nil
}

// errorMessage extracts {"detail": "..."} from an error body, falling back
// to a generic message carrying the status code.
func errorMessage(status int, data []byte) string {
	var body struct {
		Detail any `json:"detail"`
	}
	if err := json.Unmarshal(data, &body); err == nil {
		if detail, ok := body.Detail.(string); ok && strings.TrimSpace(detail) != "" {
			return detail
		}
	}
	return httpStatusMessage(status)
}

func (c *Client) fail(method, endpoint string, err *TransportError) error {
	logging.API("%s %s failed: %s", method, endpoint, err.Message)
	c.logger.Warn("generation service request failed",
		zap.String("method", method),
		zap.String("endpoint", endpoint),
		zap.Int("status", err.StatusCode),
		zap.String("error", err.Message),
	)
	return err
}
