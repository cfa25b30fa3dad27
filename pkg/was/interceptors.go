package was

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/webscan-io/was/v2/internal/constants"
)

// Static errors for err113 compliance.
var (
	ErrCircuitBreakerOpen = errors.New("circuit breaker is open")
)

// metadataKeyStartTime carries the request start time from the request stage
// to the response stage for latency accounting.
const metadataKeyStartTime = "start_time"

// Request represents an outbound API request that can be intercepted before
// it reaches the wire.
type Request struct {
	Method   string
	Path     string
	Headers  http.Header
	Body     []byte
	Metadata map[string]interface{}
}

// Response represents an API response that can be intercepted after it is
// received.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	Error      error
}

// RequestInterceptor is called before a request is sent.
type RequestInterceptor func(ctx context.Context, req *Request) error

// ResponseInterceptor is called after a response is received.
type ResponseInterceptor func(ctx context.Context, req *Request, resp *Response) error

// InterceptorChain holds the interceptors the transport runs around every
// request, in registration order.
type InterceptorChain struct {
	requestInterceptors  []RequestInterceptor
	responseInterceptors []ResponseInterceptor
}

// NewInterceptorChain creates an empty chain.
func NewInterceptorChain() *InterceptorChain {
	return &InterceptorChain{}
}

// AddRequestInterceptor appends a request interceptor to the chain.
func (c *InterceptorChain) AddRequestInterceptor(interceptor RequestInterceptor) {
	c.requestInterceptors = append(c.requestInterceptors, interceptor)
}

// AddResponseInterceptor appends a response interceptor to the chain.
func (c *InterceptorChain) AddResponseInterceptor(interceptor ResponseInterceptor) {
	c.responseInterceptors = append(c.responseInterceptors, interceptor)
}

// ExecuteRequestInterceptors runs the request interceptors in order,
// stopping at the first failure.
func (c *InterceptorChain) ExecuteRequestInterceptors(ctx context.Context, req *Request) error {
	for _, interceptor := range c.requestInterceptors {
		err := interceptor(ctx, req)
		if err != nil {
			return fmt.Errorf("request interceptor failed: %w", err)
		}
	}

	return nil
}

// ExecuteResponseInterceptors runs the response interceptors in order,
// stopping at the first failure.
func (c *InterceptorChain) ExecuteResponseInterceptors(ctx context.Context, req *Request, resp *Response) error {
	for _, interceptor := range c.responseInterceptors {
		err := interceptor(ctx, req, resp)
		if err != nil {
			return fmt.Errorf("response interceptor failed: %w", err)
		}
	}

	return nil
}

// LoggingInterceptor logs each outbound request and stamps its start time so
// the response interceptor can report the call duration.
func LoggingInterceptor(logger Logger) RequestInterceptor {
	return func(ctx context.Context, req *Request) error {
		if req.Metadata == nil {
			req.Metadata = make(map[string]interface{})
		}

		req.Metadata[metadataKeyStartTime] = time.Now()

		logger.Debug("api request", map[string]interface{}{
			"method": req.Method,
			"path":   req.Path,
		})

		return nil
	}
}

// LoggingResponseInterceptor logs each response with its status and, when
// the request stage ran too, the call duration. Failed calls log at error
// level.
func LoggingResponseInterceptor(logger Logger) ResponseInterceptor {
	return func(ctx context.Context, req *Request, resp *Response) error {
		fields := map[string]interface{}{
			"method":      req.Method,
			"path":        req.Path,
			"status_code": resp.StatusCode,
		}

		if startTime, ok := req.Metadata[metadataKeyStartTime].(time.Time); ok {
			fields["duration_ms"] = time.Since(startTime).Milliseconds()
		}

		if resp.Error != nil {
			fields["error"] = resp.Error.Error()
			logger.Error("api call failed", fields)

			return nil
		}

		logger.Debug("api response", fields)

		return nil
	}
}

// requestPacer hands out send slots one interval apart.
type requestPacer struct {
	mu       sync.Mutex
	interval time.Duration
	next     time.Time
}

func newRequestPacer(requestsPerSecond int) *requestPacer {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1
	}

	return &requestPacer{
		interval: time.Second / time.Duration(requestsPerSecond),
	}
}

// wait blocks until the caller's slot arrives or the context ends.
func (p *requestPacer) wait(ctx context.Context, req *Request) error {
	p.mu.Lock()

	now := time.Now()

	at := p.next
	if at.Before(now) {
		at = now
	}

	p.next = at.Add(p.interval)

	p.mu.Unlock()

	delay := time.Until(at)
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RateLimitInterceptor spaces outbound requests so at most requestsPerSecond
// leave the client per second. Waiting callers respect their context.
// Requests already answered from cache are not paced.
func RateLimitInterceptor(requestsPerSecond int) RequestInterceptor {
	pacer := newRequestPacer(requestsPerSecond)

	return func(ctx context.Context, req *Request) error {
		if _, ok := req.Metadata[MetadataKeyCachedBody]; ok {
			return nil
		}

		return pacer.wait(ctx, req)
	}
}

// AuthenticationInterceptor stamps the X-ApiKeys header on every request.
// The provider is called per request so rotated keys take effect without
// rebuilding the client.
func AuthenticationInterceptor(credentialProvider func(context.Context) (string, error)) RequestInterceptor {
	return func(ctx context.Context, req *Request) error {
		header, err := credentialProvider(ctx)
		if err != nil {
			return fmt.Errorf("getting API credentials: %w", err)
		}

		if req.Headers == nil {
			req.Headers = make(http.Header)
		}

		req.Headers.Set("X-ApiKeys", header)

		return nil
	}
}

// HeaderInterceptor adds custom headers to requests.
func HeaderInterceptor(headers map[string]string) RequestInterceptor {
	return func(ctx context.Context, req *Request) error {
		if req.Headers == nil {
			req.Headers = make(http.Header)
		}

		for key, value := range headers {
			req.Headers.Set(key, value)
		}

		return nil
	}
}

// Metrics holds call statistics for one endpoint.
type Metrics struct {
	TotalRequests   int64
	TotalErrors     int64
	TotalLatency    time.Duration
	AverageLatency  time.Duration
	LastRequestTime time.Time
}

// MetricsCollector collects API metrics per endpoint.
type MetricsCollector struct {
	mu       sync.Mutex
	metrics  map[string]*Metrics
	onChange func(endpoint string, metrics *Metrics)
}

// NewMetricsCollector creates a new metrics collector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		metrics: make(map[string]*Metrics),
	}
}

// SetOnChange sets a callback for when metrics change.
func (m *MetricsCollector) SetOnChange(fn func(endpoint string, metrics *Metrics)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.onChange = fn
}

// GetMetrics returns a snapshot of the metrics for an endpoint, or nil when
// the endpoint has not been called.
func (m *MetricsCollector) GetMetrics(endpoint string) *Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	metrics, ok := m.metrics[endpoint]
	if !ok {
		return nil
	}

	snapshot := *metrics

	return &snapshot
}

// MetricsRequestInterceptor records the request start time.
func MetricsRequestInterceptor(collector *MetricsCollector) RequestInterceptor {
	return func(ctx context.Context, req *Request) error {
		if req.Metadata == nil {
			req.Metadata = make(map[string]interface{})
		}

		req.Metadata[metadataKeyStartTime] = time.Now()

		return nil
	}
}

// MetricsResponseInterceptor records response metrics.
func MetricsResponseInterceptor(collector *MetricsCollector) ResponseInterceptor {
	return func(ctx context.Context, req *Request, resp *Response) error {
		endpoint := fmt.Sprintf("%s %s", req.Method, req.Path)

		collector.mu.Lock()

		metrics, ok := collector.metrics[endpoint]
		if !ok {
			metrics = &Metrics{}
			collector.metrics[endpoint] = metrics
		}

		metrics.TotalRequests++
		metrics.LastRequestTime = time.Now()

		// Latency is only known when the request interceptor ran too
		if req.Metadata != nil {
			if startTime, ok := req.Metadata[metadataKeyStartTime].(time.Time); ok {
				latency := time.Since(startTime)
				metrics.TotalLatency += latency
				metrics.AverageLatency = metrics.TotalLatency / time.Duration(metrics.TotalRequests)
			}
		}

		if resp.Error != nil || resp.StatusCode >= constants.HTTPStatusBadRequest {
			metrics.TotalErrors++
		}

		onChange := collector.onChange
		snapshot := *metrics

		collector.mu.Unlock()

		if onChange != nil {
			onChange(endpoint, &snapshot)
		}

		return nil
	}
}

// CircuitState is the circuit breaker's position.
type CircuitState string

const (
	// CircuitClosed lets requests through and counts failures.
	CircuitClosed CircuitState = "closed"

	// CircuitOpen fails requests fast until the cooldown passes.
	CircuitOpen CircuitState = "open"

	// CircuitHalfOpen lets probes through until enough succeed to close
	// the circuit again.
	CircuitHalfOpen CircuitState = "half-open"
)

// CircuitBreakerConfig tunes the circuit breaker.
type CircuitBreakerConfig struct {
	// Threshold is the failure count that opens the circuit.
	Threshold int

	// Timeout is how long an open circuit rejects requests before probing.
	Timeout time.Duration

	// SuccessThreshold is the probe count that closes a half-open circuit.
	SuccessThreshold int
}

// CircuitBreaker fails calls fast while the service keeps returning server
// faults, giving it room to recover.
type CircuitBreaker struct {
	config      *CircuitBreakerConfig
	mu          sync.Mutex
	failures    int
	successes   int
	state       CircuitState
	lastFailure time.Time
}

// NewCircuitBreaker creates a circuit breaker. A nil config gets the
// defaults.
func NewCircuitBreaker(config *CircuitBreakerConfig) *CircuitBreaker {
	if config == nil {
		config = &CircuitBreakerConfig{
			Threshold:        constants.CircuitBreakerThreshold,
			Timeout:          constants.CircuitBreakerTimeout,
			SuccessThreshold: constants.CircuitBreakerSuccessThreshold,
		}
	}

	return &CircuitBreaker{
		config: config,
		state:  CircuitClosed,
	}
}

// State returns the current circuit state.
func (b *CircuitBreaker) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.state
}

// recordFailure counts a server fault, opening the circuit at the threshold.
// A half-open circuit reopens on any failure.
func (b *CircuitBreaker) recordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.lastFailure = time.Now()

	if b.state == CircuitHalfOpen || b.failures >= b.config.Threshold {
		b.state = CircuitOpen
	}
}

// recordSuccess closes a half-open circuit once enough probes pass and
// resets the failure count while closed.
func (b *CircuitBreaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case CircuitHalfOpen:
		b.successes++
		if b.successes >= b.config.SuccessThreshold {
			b.state = CircuitClosed
			b.failures = 0
		}
	case CircuitClosed:
		b.failures = 0
	case CircuitOpen:
	}
}

// CircuitBreakerRequestInterceptor rejects requests while the circuit is
// open, half-opening it once the cooldown has passed. Requests already
// answered from cache pass regardless of circuit state.
func CircuitBreakerRequestInterceptor(breaker *CircuitBreaker) RequestInterceptor {
	return func(ctx context.Context, req *Request) error {
		if _, ok := req.Metadata[MetadataKeyCachedBody]; ok {
			return nil
		}

		breaker.mu.Lock()
		defer breaker.mu.Unlock()

		if breaker.state == CircuitOpen {
			if time.Since(breaker.lastFailure) <= breaker.config.Timeout {
				return ErrCircuitBreakerOpen
			}

			breaker.state = CircuitHalfOpen
			breaker.successes = 0
		}

		return nil
	}
}

// CircuitBreakerResponseInterceptor feeds responses into the breaker.
// Server faults and transport errors count as failures; client errors do
// not trip the breaker.
func CircuitBreakerResponseInterceptor(breaker *CircuitBreaker) ResponseInterceptor {
	return func(ctx context.Context, req *Request, resp *Response) error {
		if resp.Error != nil || resp.StatusCode >= constants.HTTPStatusInternalServerError {
			breaker.recordFailure()
		} else {
			breaker.recordSuccess()
		}

		return nil
	}
}
