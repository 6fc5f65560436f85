package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/fjod/hebec-shop/internal/logger"
	"github.com/fjod/hebec-shop/internal/metrics"
)

var (
	// ErrTransport wraps failures to reach the Hebec API at all.
	ErrTransport = errors.New("hebec api unreachable")
	// ErrUnavailable is returned while the circuit breaker is open.
	ErrUnavailable = errors.New("hebec api temporarily unavailable")
)

const maxResponseBody = 4 << 20

// APIError is a non-2xx answer from the Hebec API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("hebec api returned status %d", e.Status)
	}
	return fmt.Sprintf("hebec api returned status %d: %s", e.Status, e.Message)
}

type response struct {
	status int
	body   []byte
}

// Client talks to the Hebec REST API.
type Client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[*response]
	metrics *metrics.Collector
	log     *zap.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithMetrics(m *metrics.Collector) Option {
	return func(c *Client) { c.metrics = m }
}

func NewClient(baseURL string, timeout time.Duration, log *zap.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		log: log,
	}
	c.breaker = gobreaker.NewCircuitBreaker[*response](gobreaker.Settings{
		Name:        "hebec-api",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type call struct {
	method   string
	path     string
	endpoint string
	token    string
	query    url.Values
	body     any
	header   http.Header
}

// do performs one request. Transport failures and 5xx answers count against the breaker, 4xx do not.
func (c *Client) do(ctx context.Context, in call) ([]byte, error) {
	var reqBody io.Reader
	if in.body != nil {
		buf, err := json.Marshal(in.body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(buf)
	}

	target := c.baseURL + in.path
	if len(in.query) > 0 {
		target += "?" + in.query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, in.method, target, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if in.token != "" {
		req.Header.Set("Authorization", "Bearer "+in.token)
	}
	for k, vs := range in.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.breaker.Execute(func() (*response, error) {
		r, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTransport, err)
		}
		defer r.Body.Close()

		body, err := io.ReadAll(io.LimitReader(r.Body, maxResponseBody))
		if err != nil {
			return nil, fmt.Errorf("%w: reading body: %v", ErrTransport, err)
		}
		out := &response{status: r.StatusCode, body: body}
		if r.StatusCode >= http.StatusInternalServerError {
			return out, &APIError{Status: r.StatusCode, Message: errorMessage(body)}
		}
		return out, nil
	})

	status := 0
	if resp != nil {
		status = resp.status
	}
	c.observe(in.endpoint, status)

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, ErrUnavailable
		}
		logger.FromContext(ctx).Warn("hebec api call failed",
			zap.String("endpoint", in.endpoint),
			zap.Int("status", status),
			zap.Error(err))
		return nil, err
	}
	if resp.status >= http.StatusBadRequest {
		return nil, &APIError{Status: resp.status, Message: errorMessage(resp.body)}
	}
	return resp.body, nil
}

func (c *Client) observe(endpoint string, status int) {
	if c.metrics == nil {
		return
	}
	c.metrics.UpstreamRequests.WithLabelValues(endpoint, metrics.StatusClass(status)).Inc()
}

// errorMessage pulls a human-readable message out of an error body, or returns "".
func errorMessage(body []byte) string {
	var payload struct {
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	if len(payload.Error) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(payload.Error, &s); err == nil {
		return s
	}
	var nested struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(payload.Error, &nested); err == nil {
		return nested.Message
	}
	return ""
}

// HasMessage reports whether err is a remote rejection carrying a human-readable message.
func HasMessage(err error) (string, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message, true
	}
	return "", false
}
