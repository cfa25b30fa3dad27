// Package http implements the resilient transport every resource client is
// built on: API key authentication, retry with backoff, proxy routing, and
// error normalization.
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	nethttp "net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/webscan-io/was/v2/internal/auth"
	"github.com/webscan-io/was/v2/internal/constants"
	"github.com/webscan-io/was/v2/pkg/was"
)

// Logger is the logging interface the transport accepts. It mirrors
// was.Logger so the aggregate client can adapt one to the other without an
// import cycle.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// Request describes one API call before it is put on the wire.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Body    interface{}
	Headers map[string]string
}

// Response is the raw result of one API call. Body is fully read and the
// network connection released before the response is returned.
type Response struct {
	StatusCode int
	Headers    nethttp.Header
	Body       []byte
}

// Client issues authenticated requests against the scanning service. All
// retry decisions are delegated to the was retry state machine; the client
// only owns the clock.
type Client struct {
	baseURL      string
	credentials  auth.CredentialSource
	httpClient   *nethttp.Client
	retryPolicy  was.RetryPolicy
	interceptors *was.InterceptorChain
	logger       Logger
	userAgent    string
	debug        bool
	proxyErr     error
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the structured logger.
func WithLogger(logger Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithDebug enables request/response logging through the configured logger.
func WithDebug(debug bool) Option {
	return func(c *Client) {
		c.debug = debug
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithRetryPolicy replaces the default retry policy.
func WithRetryPolicy(policy was.RetryPolicy) Option {
	return func(c *Client) {
		c.retryPolicy = policy
	}
}

// WithTimeout bounds each individual attempt. Callers needing an overall
// deadline should use the request context.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithProxy routes all requests through the given forward proxy. A malformed
// proxy URL is not reported here; every subsequent call fails with a
// proxy-kind error so the misconfiguration is visible where it matters.
func WithProxy(proxyURL string) Option {
	return func(c *Client) {
		if proxyURL == "" {
			return
		}

		if !strings.HasPrefix(proxyURL, "http://") && !strings.HasPrefix(proxyURL, "https://") {
			c.proxyErr = constants.ErrInvalidProxyURL

			return
		}

		parsed, err := url.Parse(proxyURL)
		if err != nil {
			c.proxyErr = fmt.Errorf("parsing proxy URL: %w", err)

			return
		}

		c.httpClient.Transport = &nethttp.Transport{Proxy: nethttp.ProxyURL(parsed)}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *nethttp.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithInterceptors attaches an interceptor chain. Request interceptors run
// once per call before the first attempt; response interceptors run once
// with the final outcome.
func WithInterceptors(chain *was.InterceptorChain) Option {
	return func(c *Client) {
		c.interceptors = chain
	}
}

// NewClient creates a transport client for the given endpoint. A nil
// credential source sends unauthenticated requests, which is only useful in
// tests.
func NewClient(baseURL string, credentials auth.CredentialSource, opts ...Option) *Client {
	client := &Client{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		credentials: credentials,
		httpClient:  &nethttp.Client{Timeout: constants.DefaultHTTPTimeout},
		retryPolicy: was.DefaultRetryPolicy(),
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// Do executes the request, retrying throttled and transient failures per
// the retry policy. Whenever an HTTP response was received, it is returned
// alongside any error so callers keep access to the status and raw body.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	fullURL := c.baseURL + req.Path
	if len(req.Query) > 0 {
		fullURL += "?" + req.Query.Encode()
	}

	if c.proxyErr != nil {
		return nil, &was.APIError{
			Kind:    was.ErrorKindProxy,
			Message: c.proxyErr.Error(),
			URL:     fullURL,
			Err:     c.proxyErr,
		}
	}

	var bodyBytes []byte

	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}

		bodyBytes = data
	}

	intercepted := &was.Request{
		Method:   req.Method,
		Path:     req.Path,
		Headers:  make(nethttp.Header),
		Body:     bodyBytes,
		Metadata: make(map[string]interface{}),
	}

	if c.interceptors != nil {
		err := c.interceptors.ExecuteRequestInterceptors(ctx, intercepted)
		if err != nil {
			return nil, err
		}

		// A cache interceptor answers reads without touching the wire.
		if cached, ok := intercepted.Metadata[was.MetadataKeyCachedBody].([]byte); ok {
			return &Response{
				StatusCode: nethttp.StatusOK,
				Headers:    make(nethttp.Header),
				Body:       cached,
			}, nil
		}
	}

	state := was.NewRetryState()

	for {
		apiKeys, err := c.resolveAPIKeys(ctx)
		if err != nil {
			return nil, err
		}

		resp, attemptErr := c.attempt(ctx, req, intercepted.Headers, fullURL, intercepted.Body, apiKeys)
		outcome := classifyOutcome(resp, attemptErr)
		state = was.NextRetryState(c.retryPolicy, state, outcome)

		// A dead context ends the call regardless of remaining budget.
		if attemptErr != nil && ctx.Err() != nil {
			callErr := c.transportError(fullURL, attemptErr, state.Attempt)
			c.runResponseInterceptors(ctx, intercepted, resp, callErr)

			return nil, callErr
		}

		if state.Phase == was.PhaseBackoff {
			c.logRetry(req, fullURL, state, outcome)

			err := c.sleep(ctx, state.Delay)
			if err != nil {
				return nil, err
			}

			continue
		}

		if state.Phase == was.PhaseSucceeded {
			return c.finishSuccess(ctx, intercepted, resp, fullURL, state.Attempt)
		}

		callErr := c.terminalError(resp, attemptErr, fullURL, state)
		c.runResponseInterceptors(ctx, intercepted, resp, callErr)

		return resp, callErr
	}
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.Do(ctx, &Request{Method: nethttp.MethodGet, Path: path, Query: query})
}

// Post performs a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, &Request{Method: nethttp.MethodPost, Path: path, Body: body})
}

// Put performs a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, &Request{Method: nethttp.MethodPut, Path: path, Body: body})
}

// Patch performs a PATCH request with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, &Request{Method: nethttp.MethodPatch, Path: path, Body: body})
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, &Request{Method: nethttp.MethodDelete, Path: path})
}

// resolveAPIKeys asks the credential source for the current pair. Sources
// are consulted on every attempt so key rotation takes effect mid-retry.
func (c *Client) resolveAPIKeys(ctx context.Context) (string, error) {
	if c.credentials == nil {
		return "", nil
	}

	creds, err := c.credentials.Credentials(ctx)
	if err != nil {
		return "", fmt.Errorf("resolving credentials: %w", err)
	}

	return creds.HeaderValue(), nil
}

// attempt performs exactly one network round trip.
func (c *Client) attempt(ctx context.Context, req *Request, chainHeaders nethttp.Header, fullURL string, body []byte, apiKeys string) (*Response, error) {
	var reader io.Reader

	if body != nil {
		reader = bytes.NewReader(body)
	}

	httpReq, err := nethttp.NewRequestWithContext(ctx, req.Method, fullURL, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")

	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	if c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}

	for key, values := range chainHeaders {
		for _, value := range values {
			httpReq.Header.Add(key, value)
		}
	}

	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	if apiKeys != "" {
		httpReq.Header.Set("X-ApiKeys", apiKeys)
	}

	if c.debug && c.logger != nil {
		c.logger.Debug("HTTP Request", map[string]interface{}{
			"method": req.Method,
			"url":    fullURL,
		})
	}

	start := time.Now()

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}

	defer func() {
		_ = httpResp.Body.Close()
	}()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if c.debug && c.logger != nil {
		c.logger.Debug("HTTP Response", map[string]interface{}{
			"status_code": httpResp.StatusCode,
			"url":         fullURL,
			"duration_ms": time.Since(start).Milliseconds(),
		})
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
		Body:       respBody,
	}, nil
}

// finishSuccess validates the payload of a success response and runs the
// response interceptors with the final outcome.
func (c *Client) finishSuccess(ctx context.Context, intercepted *was.Request, resp *Response, fullURL string, attempts int) (*Response, error) {
	if len(resp.Body) > 0 && !json.Valid(resp.Body) {
		parseErr := &was.APIError{
			Kind:       was.ErrorKindResponseParse,
			StatusCode: resp.StatusCode,
			Message:    "response body is not valid JSON",
			URL:        fullURL,
			Attempts:   attempts,
			Body:       resp.Body,
		}
		c.runResponseInterceptors(ctx, intercepted, resp, parseErr)

		return resp, parseErr
	}

	c.runResponseInterceptors(ctx, intercepted, resp, nil)

	return resp, nil
}

// terminalError normalizes a terminal failure into an APIError.
func (c *Client) terminalError(resp *Response, attemptErr error, fullURL string, state was.RetryState) error {
	if attemptErr != nil {
		return c.transportError(fullURL, attemptErr, state.Attempt)
	}

	apiErr := was.ParseAPIError(resp.StatusCode, resp.Body, fullURL)
	apiErr.Attempts = state.Attempt

	if apiErr.Kind == was.ErrorKindThrottled && len(resp.Body) == 0 {
		apiErr.Message = "rate limit persisted after retries"
	}

	return apiErr
}

// transportError wraps a failure that produced no HTTP response. Failures
// reaching the configured proxy are classified separately so operators can
// tell a broken proxy from a broken service.
func (c *Client) transportError(fullURL string, err error, attempts int) error {
	kind := was.ErrorKindConnectivity
	if strings.Contains(err.Error(), "proxyconnect") {
		kind = was.ErrorKindProxy
	}

	return &was.APIError{
		Kind:     kind,
		Message:  err.Error(),
		URL:      fullURL,
		Attempts: attempts,
		Err:      err,
	}
}

// runResponseInterceptors feeds the final outcome to the chain. Interceptor
// failures are logged, never propagated: a full cache must not fail a
// request that already succeeded.
func (c *Client) runResponseInterceptors(ctx context.Context, req *was.Request, resp *Response, callErr error) {
	if c.interceptors == nil {
		return
	}

	intercepted := &was.Response{Error: callErr}
	if resp != nil {
		intercepted.StatusCode = resp.StatusCode
		intercepted.Headers = resp.Headers
		intercepted.Body = resp.Body
	}

	err := c.interceptors.ExecuteResponseInterceptors(ctx, req, intercepted)
	if err != nil && c.logger != nil {
		c.logger.Warn("Response interceptor failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// logRetry records one scheduled retry.
func (c *Client) logRetry(req *Request, fullURL string, state was.RetryState, outcome was.AttemptOutcome) {
	if c.logger == nil {
		return
	}

	c.logger.Warn("Retrying request", map[string]interface{}{
		"method":  req.Method,
		"url":     fullURL,
		"attempt": state.Attempt,
		"delay":   state.Delay.String(),
		"reason":  string(outcome.Class),
	})
}

// sleep waits out a backoff delay, honoring context cancellation.
func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("waiting to retry: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

// classifyOutcome maps one attempt's result onto the retry machine's input
// alphabet.
func classifyOutcome(resp *Response, err error) was.AttemptOutcome {
	if err != nil {
		return was.AttemptOutcome{Class: was.OutcomeTransient}
	}

	switch {
	case resp.StatusCode >= nethttp.StatusOK && resp.StatusCode < nethttp.StatusMultipleChoices:
		return was.AttemptOutcome{Class: was.OutcomeSuccess}
	case resp.StatusCode == constants.HTTPStatusTooManyRequests:
		return was.AttemptOutcome{
			Class:      was.OutcomeThrottled,
			RetryAfter: parseRetryAfter(resp.Headers.Get("Retry-After")),
		}
	case resp.StatusCode >= constants.HTTPStatusInternalServerError:
		return was.AttemptOutcome{Class: was.OutcomeTransient}
	default:
		return was.AttemptOutcome{Class: was.OutcomeFatal}
	}
}

// parseRetryAfter reads a Retry-After hint in seconds. Anything else,
// including the HTTP-date form, falls back to the backoff curve.
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}

	seconds, err := strconv.Atoi(strings.TrimSpace(header))
	if err != nil || seconds <= 0 {
		return 0
	}

	return time.Duration(seconds) * time.Second
}
