package store

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

	"github.com/rs/zerolog"

	"github.com/rcliao/firerecord/internal/metrics"
)

// HTTPClient talks to the store's REST API: every path is addressed as
// <base>/<path>.json.
type HTTPClient struct {
	baseURL    *url.URL
	httpClient *http.Client
	timeout    time.Duration
	auth       string
	logger     zerolog.Logger
	metrics    *metrics.Collector
}

// HTTPOption configures an HTTPClient.
type HTTPOption func(*HTTPClient)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) HTTPOption {
	return func(c *HTTPClient) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithAuth sends token as the "auth" query parameter.
func WithAuth(token string) HTTPOption {
	return func(c *HTTPClient) {
		c.auth = strings.TrimSpace(token)
	}
}

// WithLogger sets the request logger.
func WithLogger(l zerolog.Logger) HTTPOption {
	return func(c *HTTPClient) {
		c.logger = l
	}
}

// WithMetrics records every request on m.
func WithMetrics(m *metrics.Collector) HTTPOption {
	return func(c *HTTPClient) {
		c.metrics = m
	}
}

// NewHTTPClient creates a client for the store rooted at baseURL.
func NewHTTPClient(baseURL string, opts ...HTTPOption) (*HTTPClient, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, ErrConfiguration
	}
	parsed, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base URL: %v", ErrConfiguration, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("%w: base URL %q must be absolute", ErrConfiguration, baseURL)
	}
	if !strings.HasSuffix(parsed.Path, "/") {
		parsed.Path += "/"
	}

	c := &HTTPClient{
		baseURL: parsed,
		timeout: 10 * time.Second,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.httpClient = &http.Client{Timeout: c.timeout}
	return c, nil
}

// DatabaseURL returns the base URL of a hosted database by name.
func DatabaseURL(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrConfiguration
	}
	return fmt.Sprintf("https://%s.firebaseio.com/", name), nil
}

// NewFirebaseClient creates a client for the hosted database called name.
func NewFirebaseClient(name string, opts ...HTTPOption) (*HTTPClient, error) {
	u, err := DatabaseURL(name)
	if err != nil {
		return nil, err
	}
	return NewHTTPClient(u, opts...)
}

// HTTPError is a non-2xx response that did not carry an error payload.
type HTTPError struct {
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http error: status=%d body=%s", e.StatusCode, string(e.Body))
}

// Is reports server-side and throttling failures as ErrUnavailable.
func (e *HTTPError) Is(target error) bool {
	if target != ErrUnavailable {
		return false
	}
	return e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode == http.StatusRequestTimeout ||
		e.StatusCode >= 500
}

// Request implements Client.
func (c *HTTPClient) Request(ctx context.Context, verb Verb, path string, q *Query, body any) (any, error) {
	started := time.Now()
	resp, err := c.do(ctx, verb, path, q, body)
	c.metrics.Observe(string(verb), outcome(resp, err), started)
	return resp, err
}

func (c *HTTPClient) do(ctx context.Context, verb Verb, path string, q *Query, body any) (any, error) {
	fullURL, err := c.buildURL(path, q)
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil && verb != Get && verb != Delete {
		data, err := marshalJSON(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, verb.Method(), fullURL, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn().Err(err).Str("verb", string(verb)).Str("path", path).Msg("store request failed")
		return nil, fmt.Errorf("%w: %s %s: %v", ErrUnavailable, verb.Method(), path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}
	c.logger.Debug().
		Str("verb", string(verb)).
		Str("path", path).
		Int("status", resp.StatusCode).
		Int("bytes", len(data)).
		Msg("store request")

	payload, decodeErr := decodeBody(data)
	if resp.StatusCode >= 400 {
		if _, ok := ErrorMessage(payload); ok {
			return payload, nil
		}
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: data}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decode response: %w", decodeErr)
	}
	return payload, nil
}

func (c *HTTPClient) buildURL(path string, q *Query) (string, error) {
	values, err := q.Values()
	if err != nil {
		return "", err
	}
	if c.auth != "" {
		values.Set("auth", c.auth)
	}
	segments := splitPath(path)
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	ref, err := url.Parse("./" + strings.Join(segments, "/") + ".json")
	if err != nil {
		return "", fmt.Errorf("invalid path %q: %w", path, err)
	}
	if len(values) > 0 {
		ref.RawQuery = values.Encode()
	}
	return c.baseURL.ResolveReference(ref).String(), nil
}

func decodeBody(data []byte) (any, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}
	var payload any
	if err := json.Unmarshal(trimmed, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func outcome(resp any, err error) string {
	switch {
	case err != nil && errors.Is(err, ErrUnavailable):
		return metrics.OutcomeUnavailable
	case err != nil:
		return metrics.OutcomeStoreError
	case resp == nil:
		return metrics.OutcomeEmpty
	}
	if m, ok := resp.(map[string]any); ok && len(m) == 0 {
		return metrics.OutcomeEmpty
	}
	if _, ok := ErrorMessage(resp); ok {
		return metrics.OutcomeStoreError
	}
	return metrics.OutcomeOK
}
