package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
)

// TokenSource yields the bearer token for the active session, or "" when no
// session exists. Absence of a token is not an error: the request goes out
// unauthenticated and the backend answers 401.
type TokenSource interface {
	Token(ctx context.Context) string
}

// RequestInterceptor runs before dispatch, in registration order.
type RequestInterceptor func(ctx context.Context, req *http.Request, cfg *RequestConfig) error

// ResponseInterceptor runs after a 2xx response has been parsed. It is for
// side effects only and cannot change the outcome of the call.
type ResponseInterceptor func(ctx context.Context, resp *http.Response)

// RequestConfig describes one outbound call.
type RequestConfig struct {
	Method      string
	Endpoint    string
	Body        interface{}
	Headers     map[string]string
	Params      map[string]string
	Timeout     time.Duration
	RequireAuth bool
}

// RetryPolicy bounds the sequential retry loop for transient failures.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Factor      float64
}

// Options configures a Client.
type Options struct {
	BaseURL         string
	APIPrefix       string
	RequestTimeout  time.Duration
	TransferTimeout time.Duration
	Retry           RetryPolicy
	HTTPClient      *http.Client
}

// Client is the single chokepoint for calls to the NusantaraEdu backend.
type Client struct {
	baseURL         string
	apiPrefix       string
	requestTimeout  time.Duration
	transferTimeout time.Duration
	retry           RetryPolicy
	httpClient      *http.Client
	tokens          TokenSource
	onUnauthorized  func(ctx context.Context)
	requestICs      []RequestInterceptor
	responseICs     []ResponseInterceptor
}

func NewClient(opts Options) *Client {
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	if opts.TransferTimeout <= 0 {
		opts.TransferTimeout = 2 * time.Minute
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry.MaxAttempts = 3
	}
	if opts.Retry.BaseDelay <= 0 {
		opts.Retry.BaseDelay = time.Second
	}
	if opts.Retry.Factor <= 0 {
		opts.Retry.Factor = 2
	}

	c := &Client{
		baseURL:         strings.TrimRight(opts.BaseURL, "/"),
		apiPrefix:       opts.APIPrefix,
		requestTimeout:  opts.RequestTimeout,
		transferTimeout: opts.TransferTimeout,
		retry:           opts.Retry,
		httpClient:      opts.HTTPClient,
	}
	c.requestICs = []RequestInterceptor{requestIDInterceptor, c.defaultHeaderInterceptor, c.authInterceptor}
	return c
}

// WithCredentials returns a shallow copy bound to a session's token source
// and unauthorized hook. The copy shares the transport, retry policy and
// interceptor chains.
func (c *Client) WithCredentials(tokens TokenSource, onUnauthorized func(ctx context.Context)) *Client {
	bound := *c
	bound.tokens = tokens
	bound.onUnauthorized = onUnauthorized
	return &bound
}

// UseRequestInterceptor appends to the request pipeline.
func (c *Client) UseRequestInterceptor(ic RequestInterceptor) {
	c.requestICs = append(c.requestICs, ic)
}

// UseResponseInterceptor appends to the response pipeline.
func (c *Client) UseResponseInterceptor(ic ResponseInterceptor) {
	c.responseICs = append(c.responseICs, ic)
}

// buildURL resolves an endpoint against the configured base and prefix.
// Absolute URLs pass through untouched. Only params with a non-empty value
// are appended.
func (c *Client) buildURL(endpoint string, params map[string]string) string {
	full := endpoint
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		full = c.baseURL + c.apiPrefix + endpoint
	}
	query := url.Values{}
	for key, value := range params {
		if key == "" || value == "" {
			continue
		}
		query.Set(key, value)
	}
	if len(query) == 0 {
		return full
	}
	sep := "?"
	if strings.Contains(full, "?") {
		sep = "&"
	}
	return full + sep + query.Encode()
}

func requestIDInterceptor(_ context.Context, req *http.Request, _ *RequestConfig) error {
	req.Header.Set("X-Request-ID", uuid.NewString())
	return nil
}

func (c *Client) defaultHeaderInterceptor(_ context.Context, req *http.Request, cfg *RequestConfig) error {
	req.Header.Set("Accept", "application/json")
	if cfg.Body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range cfg.Headers {
		req.Header.Set(key, value)
	}
	return nil
}

func (c *Client) authInterceptor(ctx context.Context, req *http.Request, cfg *RequestConfig) error {
	if !cfg.RequireAuth || c.tokens == nil {
		return nil
	}
	if token := c.tokens.Token(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return nil
}

// Do dispatches one call, retrying transient failures per the retry policy,
// and decodes the response envelope's data into out when out is non-nil.
func (c *Client) Do(ctx context.Context, cfg RequestConfig, out interface{}) error {
	var payload []byte
	if cfg.Body != nil {
		data, err := json.Marshal(cfg.Body)
		if err != nil {
			return err
		}
		payload = data
	}
	return c.retryLoop(ctx, func() error {
		return c.attempt(ctx, cfg, payload, out)
	})
}

// retryLoop runs op sequentially with exponential backoff. Non-retryable
// failures stop the loop immediately; the last error is propagated.
func (c *Client) retryLoop(ctx context.Context, op func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.retry.BaseDelay
	bo.Multiplier = c.retry.Factor
	bo.RandomizationFactor = 0
	bo.MaxInterval = time.Hour
	bo.MaxElapsedTime = 0
	bo.Reset()

	schedule := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(c.retry.MaxAttempts-1)), ctx)
	return backoff.RetryNotify(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if apiErr := AsError(err); apiErr != nil && !apiErr.Retryable() {
			return backoff.Permanent(err)
		}
		return err
	}, schedule, func(err error, delay time.Duration) {
		observeRetry(delay)
	})
}

// attempt performs exactly one network round trip.
func (c *Client) attempt(ctx context.Context, cfg RequestConfig, payload []byte, out interface{}) error {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = c.requestTimeout
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(attemptCtx, cfg.Method, c.buildURL(cfg.Endpoint, cfg.Params), body)
	if err != nil {
		return err
	}
	for _, ic := range c.requestICs {
		if err := ic(ctx, req, &cfg); err != nil {
			return err
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		observeRequest(cfg.Method, 0, time.Since(start))
		if errors.Is(err, context.DeadlineExceeded) || attemptCtx.Err() == context.DeadlineExceeded {
			return timeoutError(err)
		}
		return networkError(err)
	}
	defer resp.Body.Close()
	observeRequest(cfg.Method, resp.StatusCode, time.Since(start))

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return networkError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := classify(resp.StatusCode, raw)
		if apiErr.Code == CodeUnauthorized && c.onUnauthorized != nil {
			c.onUnauthorized(ctx)
		}
		return apiErr
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return err
		}
	}
	for _, ic := range c.responseICs {
		ic(ctx, resp)
	}
	return nil
}

// Get issues an authenticated GET.
func (c *Client) Get(ctx context.Context, endpoint string, params map[string]string, out interface{}) error {
	return c.Do(ctx, RequestConfig{Method: http.MethodGet, Endpoint: endpoint, Params: params, RequireAuth: true}, out)
}

// Post issues an authenticated POST.
func (c *Client) Post(ctx context.Context, endpoint string, body, out interface{}) error {
	return c.Do(ctx, RequestConfig{Method: http.MethodPost, Endpoint: endpoint, Body: body, RequireAuth: true}, out)
}

// Put issues an authenticated PUT.
func (c *Client) Put(ctx context.Context, endpoint string, body, out interface{}) error {
	return c.Do(ctx, RequestConfig{Method: http.MethodPut, Endpoint: endpoint, Body: body, RequireAuth: true}, out)
}

// Patch issues an authenticated PATCH.
func (c *Client) Patch(ctx context.Context, endpoint string, body, out interface{}) error {
	return c.Do(ctx, RequestConfig{Method: http.MethodPatch, Endpoint: endpoint, Body: body, RequireAuth: true}, out)
}

// Delete issues an authenticated DELETE.
func (c *Client) Delete(ctx context.Context, endpoint string, out interface{}) error {
	return c.Do(ctx, RequestConfig{Method: http.MethodDelete, Endpoint: endpoint, RequireAuth: true}, out)
}
