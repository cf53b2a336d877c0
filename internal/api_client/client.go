package api_client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"portal/internal/metrics"
)

// maxErrorBody bounds how much of a failed response is read for its message.
const maxErrorBody = 1 << 20

// Options configures a Client.
type Options struct {
	// BaseURL is the backend origin, e.g. http://localhost:3000.
	BaseURL string
	// PathPrefix is prepended to every endpoint path.
	PathPrefix string
	// Timeout bounds one call end to end. Zero means no limit beyond the
	// caller's context.
	Timeout time.Duration
	// Transport defaults to http.DefaultTransport. It is always wrapped
	// for tracing.
	Transport http.RoundTripper
}

// Client for the training REST backend. Every call takes the caller's
// session token; an empty token sends the request unauthenticated.
// Failed calls are not retried.
type Client struct {
	baseURL    string
	prefix     string
	httpClient *http.Client
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

// NewClient creates a new backend API client. m may be nil.
func NewClient(opts Options, logger *zap.Logger, m *metrics.Metrics) *Client {
	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		prefix:  strings.TrimRight(opts.PathPrefix, "/"),
		httpClient: &http.Client{
			Timeout:   opts.Timeout,
			Transport: otelhttp.NewTransport(transport),
		},
		logger:  logger,
		metrics: m,
	}
}

// endpoint returns the absolute URL of path under the configured prefix.
func (c *Client) endpoint(path string) string {
	return c.baseURL + c.prefix + path
}

// do performs one call. body, when non-nil, is sent as JSON; out, when
// non-nil, receives the decoded 2xx response.
func (c *Client) do(ctx context.Context, op Op, method, path, token string, body, out any) error {
	start := time.Now()
	err := c.roundTrip(ctx, op, method, path, token, body, out)

	outcome := "ok"
	if err != nil {
		outcome = "error"
		var apiErr *Error
		if errors.As(err, &apiErr) {
			outcome = apiErr.Kind.String()
		}
	}
	c.metrics.BackendRequest(string(op), outcome, time.Since(start))
	return err
}

func (c *Client) roundTrip(ctx context.Context, op Op, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: failed to marshal request: %w", op, err)
		}
		reader = bytes.NewReader(jsonData)
	}

	url := c.endpoint(path)
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("%s: failed to create request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			// The page that asked for this is gone; nobody will see the result.
			c.logger.Debug("Backend request abandoned", zap.String("op", string(op)), zap.Error(err))
		} else {
			c.logger.Error("Failed to make request to backend", zap.String("op", string(op)), zap.String("url", url), zap.Error(err))
		}
		return &Error{Op: op, Kind: NetworkFailure, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{Op: op, Kind: BackendError, Status: resp.StatusCode, Message: readErrorMessage(resp.Body)}
		c.logger.Warn("Backend returned non-OK status",
			zap.String("op", string(op)),
			zap.Int("status", resp.StatusCode),
			zap.String("message", apiErr.Message))
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		c.logger.Error("Failed to decode backend response", zap.String("op", string(op)), zap.Error(err))
		return &Error{Op: op, Kind: BackendError, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// readErrorMessage returns the "error" field of a JSON error body, or "".
func readErrorMessage(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil || len(body) == 0 {
		return ""
	}
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return strings.TrimSpace(payload.Error)
}
