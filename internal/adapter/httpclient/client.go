// Package httpclient is the shared outbound HTTP transport for the embedding,
// LLM and profile-source adapters.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"golang.org/x/time/rate"

	"xcreator/internal/domain"
)

const maxErrorBody = 200

// Client sends requests for one upstream service and maps failures to
// *domain.UpstreamError.
type Client struct {
	service  string
	http     *http.Client
	attempts uint
	delay    time.Duration
	limiter  *rate.Limiter
	logger   *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		if d > 0 {
			cl.http.Timeout = d
		}
	}
}

// WithRetry enables retries of transient failures (429, 5xx, network).
// attempts counts the first try, so 1 disables retrying.
func WithRetry(attempts uint, delay time.Duration) Option {
	return func(cl *Client) {
		if attempts > 0 {
			cl.attempts = attempts
		}
		cl.delay = delay
	}
}

// WithLimiter paces every attempt through l.
func WithLimiter(l *rate.Limiter) Option {
	return func(cl *Client) { cl.limiter = l }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(cl *Client) { cl.logger = logger }
}

// New creates a client for the named service.
func New(service string, opts ...Option) *Client {
	c := &Client{
		service:  service,
		http:     &http.Client{Timeout: 60 * time.Second},
		attempts: 1,
		delay:    500 * time.Millisecond,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Service returns the upstream name used in errors.
func (c *Client) Service() string {
	return c.service
}

// Fetch sends one request and returns the response body on 2xx.
func (c *Client) Fetch(ctx context.Context, method, url string, header http.Header, body []byte) ([]byte, error) {
	opts := []retry.Option{
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.RetryIf(isRetryable),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Debug("retrying request", "service", c.service, "attempt", n+1, "error", err)
		}),
	}
	if c.delay > 0 {
		opts = append(opts, retry.Delay(c.delay), retry.MaxJitter(max(c.delay/2, time.Millisecond)))
	}

	var last error
	data, err := retry.DoWithData(
		func() ([]byte, error) {
			data, err := c.once(ctx, method, url, header, body)
			last = err
			return data, err
		},
		opts...,
	)
	if err != nil {
		if last != nil {
			return nil, last
		}
		return nil, c.unavailable(err)
	}
	return data, nil
}

// DoJSON marshals in (when non-nil), sends the request and decodes the
// response into out (when non-nil).
func (c *Client) DoJSON(ctx context.Context, method, url string, header http.Header, in, out any) error {
	var body []byte
	if in != nil {
		var err error
		body, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal %s request: %w", c.service, err)
		}
	}

	data, err := c.Fetch(ctx, method, url, header, body)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &domain.UpstreamError{
			Service: c.service,
			Message: fmt.Sprintf("malformed response (body: %s): %v", preview(data), err),
		}
	}
	return nil
}

func (c *Client) once(ctx context.Context, method, url string, header http.Header, body []byte) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, c.unavailable(err)
		}
	}

	var reader io.Reader = http.NoBody
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", c.service, err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.unavailable(err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.unavailable(fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &domain.UpstreamError{
			Service:    c.service,
			StatusCode: resp.StatusCode,
			Message:    preview(data),
		}
	}
	return data, nil
}

func (c *Client) unavailable(err error) error {
	return &domain.UpstreamError{Service: c.service, Message: err.Error()}
}

func isRetryable(err error) bool {
	var upstream *domain.UpstreamError
	if !errors.As(err, &upstream) {
		return false
	}
	switch upstream.StatusCode {
	case 0,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// StatusCode extracts the upstream HTTP status from err, or 0.
func StatusCode(err error) int {
	var upstream *domain.UpstreamError
	if errors.As(err, &upstream) {
		return upstream.StatusCode
	}
	return 0
}

func preview(data []byte) string {
	if len(data) > maxErrorBody {
		return string(data[:maxErrorBody])
	}
	return string(data)
}

// BearerHeader builds an Authorization header.
func BearerHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}
