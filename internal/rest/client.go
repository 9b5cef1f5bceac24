// Package rest is the single HTTP boundary between the client and the
// profile backend. Every store, the auth flows and the code search all go
// through one Client so the bearer token, the locale header, the request
// timeout and the global 401 rule are applied in exactly one place.
package rest

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

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultTimeout bounds every request so a dead backend surfaces as an error
// instead of an indefinitely loading UI.
const DefaultTimeout = 15 * time.Second

var tracer = otel.Tracer("github.com/medvault-health/profile-client/rest")

// TokenSource yields the current access token, read at call time so a logout
// immediately invalidates subsequent requests. An empty string means the
// request is sent unauthenticated.
type TokenSource interface {
	Token() string
}

// LocaleSource yields the current UI locale for the Accept-Language header.
type LocaleSource interface {
	Locale() string
}

// MetricsRecorder receives per-request telemetry. Optional.
type MetricsRecorder interface {
	RecordRequest(ctx context.Context, method, path string, status int, elapsedMs float64)
}

// Config configures a Client.
type Config struct {
	BaseURL string
	Timeout time.Duration // zero means DefaultTimeout
	Tokens  TokenSource
	Locale  LocaleSource
	Metrics MetricsRecorder
	Logger  zerolog.Logger
}

type httpResult struct {
	status int
	body   []byte
}

// Client talks JSON to the profile backend. Policy at this boundary is
// deliberate and fixed: bounded timeout, no retries, and a circuit breaker
// that trips after a run of transport failures so a dead backend fails fast.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	locale  LocaleSource
	metrics MetricsRecorder
	breaker *gobreaker.CircuitBreaker[httpResult]
	logger  zerolog.Logger

	onUnauthorized func()
}

// NewClient creates a Client for the given backend.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	breaker := gobreaker.NewCircuitBreaker[httpResult](gobreaker.Settings{
		Name:    "profile-backend",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		tokens:  cfg.Tokens,
		locale:  cfg.Locale,
		metrics: cfg.Metrics,
		breaker: breaker,
		logger:  cfg.Logger,
	}
}

// SetTokenSource installs the token source after construction. The session
// gate needs the client to reach the backend and the client needs the gate's
// token, so one of the two is wired late.
func (c *Client) SetTokenSource(tokens TokenSource) {
	c.tokens = tokens
}

// SetUnauthorizedHook registers the function invoked whenever any request
// receives a 401. The session gate registers itself here so a rejected token
// logs the whole application out regardless of which store made the call.
func (c *Client) SetUnauthorizedHook(fn func()) {
	c.onUnauthorized = fn
}

// Get issues a GET and decodes the JSON response into out.
func (c *Client) Get(ctx context.Context, path string, out interface{}) error {
	return c.doJSON(ctx, http.MethodGet, path, nil, out)
}

// Post issues a POST with a JSON body and decodes the response into out.
// out may be nil when the response body is irrelevant.
func (c *Client) Post(ctx context.Context, path string, body, out interface{}) error {
	return c.doJSON(ctx, http.MethodPost, path, body, out)
}

// Put issues a PUT with a JSON body and decodes the response into out.
func (c *Client) Put(ctx context.Context, path string, body, out interface{}) error {
	return c.doJSON(ctx, http.MethodPut, path, body, out)
}

// Delete issues a DELETE. A 204 (or any 2xx) is success.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.doJSON(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.do(ctx, req, method, path)
	if err != nil {
		return err
	}
	if out != nil && len(res.body) > 0 {
		if err := unmarshalBody(res.body, out); err != nil {
			return err
		}
	}
	return nil
}

func unmarshalBody(data []byte, out interface{}) error {
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// do executes the request through the circuit breaker and classifies the
// outcome. Only transport failures count against the breaker; a structured
// 4xx/5xx is a healthy backend and must not trip it.
func (c *Client) do(ctx context.Context, req *http.Request, method, path string) (httpResult, error) {
	ctx, span := tracer.Start(ctx, "rest."+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.route", path),
		),
	)
	defer span.End()
	req = req.WithContext(ctx)

	c.applyHeaders(req)

	start := time.Now()
	res, err := c.breaker.Execute(func() (httpResult, error) {
		resp, err := c.http.Do(req)
		if err != nil {
			return httpResult{}, err
		}
		defer resp.Body.Close()
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return httpResult{}, err
		}
		return httpResult{status: resp.StatusCode, body: data}, nil
	})
	elapsed := float64(time.Since(start).Milliseconds())

	if err != nil {
		span.SetStatus(codes.Error, "transport failure")
		span.SetAttributes(attribute.String("error.type", "transport"))
		if c.metrics != nil {
			c.metrics.RecordRequest(ctx, method, path, 0, elapsed)
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			c.logger.Warn().Str("path", path).Msg("circuit breaker open, request rejected")
			return httpResult{}, fmt.Errorf("%w: backend unavailable", ErrConnection)
		}
		c.logger.Error().Err(err).Str("method", method).Str("path", path).Msg("request transport failure")
		return httpResult{}, fmt.Errorf("%w: %v", ErrConnection, err)
	}

	span.SetAttributes(attribute.Int("http.status_code", res.status))
	if c.metrics != nil {
		c.metrics.RecordRequest(ctx, method, path, res.status, elapsed)
	}

	if res.status == http.StatusUnauthorized && c.onUnauthorized != nil {
		c.onUnauthorized()
	}

	if res.status >= 400 {
		span.SetStatus(codes.Error, "server error")
		return httpResult{}, c.apiError(res)
	}
	return res, nil
}

func (c *Client) applyHeaders(req *http.Request) {
	if c.tokens != nil {
		if tok := c.tokens.Token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}
	if c.locale != nil {
		if lang := c.locale.Locale(); lang != "" {
			req.Header.Set("Accept-Language", lang)
		}
	}
}

// apiError decodes the backend's {"error": ..., "message": ...} body. A body
// that is not in that shape still yields a usable APIError with a fallback
// message per status.
func (c *Client) apiError(res httpResult) error {
	apiErr := &APIError{Status: res.status}

	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(res.body, &payload); err == nil {
		apiErr.Code = payload.Error
		apiErr.Message = payload.Message
	}
	if apiErr.Message == "" {
		switch res.status {
		case http.StatusUnauthorized:
			apiErr.Message = "Your session has expired. Please sign in again."
		case http.StatusNotFound:
			apiErr.Message = "The requested record was not found."
		default:
			apiErr.Message = fmt.Sprintf("The server returned an error (status %d).", res.status)
		}
	}
	return apiErr
}
