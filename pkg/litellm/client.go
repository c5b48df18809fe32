// Package litellm is the only code that talks to the LiteLLM proxy. It
// sends authenticated requests to the customer and budget endpoints and
// reshapes their responses into the model types.
package litellm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ogulcanaydogan/liteclient/internal/metrics"
	"github.com/ogulcanaydogan/liteclient/pkg/apierr"
	"github.com/ogulcanaydogan/liteclient/pkg/contract"
)

// DefaultTimeout bounds every upstream request when Config.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// maxErrorBody caps how much of a failed response is read for its message.
const maxErrorBody = 1 << 20

// Config is the connection configuration shared by every upstream call.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client calls the LiteLLM proxy REST API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *zap.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger used for upstream call diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a client for the proxy at cfg.BaseURL.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("litellm: base URL required")
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("litellm: invalid base URL %q", cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
		logger:  zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// errorBody is the error envelope LiteLLM uses for failed requests.
type errorBody struct {
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// do performs one request for op and decodes a 2xx JSON body into out.
// Transport failures and non-2xx answers become UpstreamErrors; bodies that
// do not decode become IntegrationErrors.
func (c *Client) do(ctx context.Context, op contract.Operation, query url.Values, payload, out any) error {
	endpoint := c.baseURL + op.Path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return apierr.Upstream(op.Name, op.UpstreamFailure, fmt.Errorf("marshal request: %w", err))
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, op.Method, endpoint, body)
	if err != nil {
		return apierr.Upstream(op.Name, op.UpstreamFailure, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ObserveUpstream(op.Name, 0)
		c.logger.Warn("upstream request failed",
			zap.String("operation", op.Name),
			zap.Duration("latency", time.Since(start)),
			zap.Error(err),
		)
		return apierr.Upstream(op.Name, op.UpstreamFailure, fmt.Errorf("send request: %w", err))
	}
	defer resp.Body.Close()

	metrics.ObserveUpstream(op.Name, resp.StatusCode)
	c.logger.Debug("upstream request",
		zap.String("operation", op.Name),
		zap.String("method", op.Method),
		zap.String("path", op.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &apierr.UpstreamError{
			Op:         op.Name,
			StatusCode: resp.StatusCode,
			Message:    upstreamMessage(raw, op.UpstreamFailure),
			Cause:      fmt.Errorf("upstream returned status %d", resp.StatusCode),
		}
	}

	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(out); err != nil {
		return apierr.Integration(op.Name, op.IntegrationFailure, fmt.Errorf("decode response: %w", err))
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return apierr.Integration(op.Name, op.IntegrationFailure, errors.New("decode response: trailing data after JSON value"))
	}
	return nil
}

// upstreamMessage extracts error.message from a failed response body.
func upstreamMessage(raw []byte, fallback string) string {
	var eb errorBody
	if len(raw) == 0 || json.Unmarshal(raw, &eb) != nil || eb.Error == nil {
		return fallback
	}
	if msg := strings.TrimSpace(eb.Error.Message); msg != "" {
		return msg
	}
	return fallback
}
