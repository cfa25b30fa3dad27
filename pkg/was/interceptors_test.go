package was_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webscan-io/was/v2/pkg/was"
)

var errInterceptorRejected = errors.New("interceptor rejected")

// testLogger records log calls for assertions.
type testLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

type logEntry struct {
	level   string
	message string
	fields  map[string]interface{}
}

func (l *testLogger) log(level, message string, fields map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, logEntry{level: level, message: message, fields: fields})
}

func (l *testLogger) Debug(message string, fields map[string]interface{}) {
	l.log("debug", message, fields)
}

func (l *testLogger) Info(message string, fields map[string]interface{}) {
	l.log("info", message, fields)
}

func (l *testLogger) Warn(message string, fields map[string]interface{}) {
	l.log("warn", message, fields)
}

func (l *testLogger) Error(message string, fields map[string]interface{}) {
	l.log("error", message, fields)
}

func (l *testLogger) snapshot() []logEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]logEntry(nil), l.entries...)
}

func TestInterceptorChain_RequestInterceptors(t *testing.T) {
	chain := was.NewInterceptorChain()
	ctx := context.Background()

	var executionOrder []string

	chain.AddRequestInterceptor(func(ctx context.Context, req *was.Request) error {
		executionOrder = append(executionOrder, "first")

		return nil
	})

	chain.AddRequestInterceptor(func(ctx context.Context, req *was.Request) error {
		executionOrder = append(executionOrder, "second")

		return nil
	})

	req := &was.Request{
		Method: "GET",
		Path:   "/was/v2/scans",
	}

	err := chain.ExecuteRequestInterceptors(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, []string{"first", "second"}, executionOrder)
}

func TestInterceptorChain_RequestInterceptorError(t *testing.T) {
	chain := was.NewInterceptorChain()
	ctx := context.Background()

	called := false

	chain.AddRequestInterceptor(func(ctx context.Context, req *was.Request) error {
		return errInterceptorRejected
	})

	chain.AddRequestInterceptor(func(ctx context.Context, req *was.Request) error {
		called = true

		return nil
	})

	err := chain.ExecuteRequestInterceptors(ctx, &was.Request{Method: "GET", Path: "/was/v2/scans"})
	require.ErrorIs(t, err, errInterceptorRejected)
	assert.Contains(t, err.Error(), "request interceptor failed")

	// The chain stops at the first failure.
	assert.False(t, called)
}

func TestInterceptorChain_ResponseInterceptors(t *testing.T) {
	chain := was.NewInterceptorChain()
	ctx := context.Background()

	var executionOrder []string

	chain.AddResponseInterceptor(func(ctx context.Context, req *was.Request, resp *was.Response) error {
		executionOrder = append(executionOrder, "first")

		return nil
	})

	chain.AddResponseInterceptor(func(ctx context.Context, req *was.Request, resp *was.Response) error {
		executionOrder = append(executionOrder, "second")

		return nil
	})

	req := &was.Request{
		Method: "GET",
		Path:   "/was/v2/scans",
	}
	resp := &was.Response{
		StatusCode: 200,
	}

	err := chain.ExecuteResponseInterceptors(ctx, req, resp)
	require.NoError(t, err)

	assert.Equal(t, []string{"first", "second"}, executionOrder)
}

func TestLoggingInterceptors(t *testing.T) {
	logger := &testLogger{}
	ctx := context.Background()

	req := &was.Request{Method: "GET", Path: "/was/v2/scans"}

	err := was.LoggingInterceptor(logger)(ctx, req)
	require.NoError(t, err)

	err = was.LoggingResponseInterceptor(logger)(ctx, req, &was.Response{StatusCode: 200})
	require.NoError(t, err)

	err = was.LoggingResponseInterceptor(logger)(ctx, req, &was.Response{StatusCode: 500, Error: errInterceptorRejected})
	require.NoError(t, err)

	entries := logger.snapshot()
	require.Len(t, entries, 3)

	assert.Equal(t, "debug", entries[0].level)
	assert.Equal(t, "api request", entries[0].message)
	assert.Equal(t, "GET", entries[0].fields["method"])
	assert.Equal(t, "/was/v2/scans", entries[0].fields["path"])

	assert.Equal(t, "debug", entries[1].level)
	assert.Equal(t, "api response", entries[1].message)
	assert.Equal(t, 200, entries[1].fields["status_code"])
	assert.Contains(t, entries[1].fields, "duration_ms")

	assert.Equal(t, "error", entries[2].level)
	assert.Equal(t, "api call failed", entries[2].message)
	assert.Equal(t, errInterceptorRejected.Error(), entries[2].fields["error"])
}

func TestAuthenticationInterceptor(t *testing.T) {
	credentialProvider := func(ctx context.Context) (string, error) {
		return "accessKey=ak; secretKey=sk", nil
	}

	interceptor := was.AuthenticationInterceptor(credentialProvider)
	ctx := context.Background()
	req := &was.Request{
		Method: "GET",
		Path:   "/was/v2/scans",
	}

	err := interceptor(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, "accessKey=ak; secretKey=sk", req.Headers.Get("X-ApiKeys"))
}

func TestAuthenticationInterceptor_ProviderError(t *testing.T) {
	credentialProvider := func(ctx context.Context) (string, error) {
		return "", errInterceptorRejected
	}

	interceptor := was.AuthenticationInterceptor(credentialProvider)
	ctx := context.Background()

	err := interceptor(ctx, &was.Request{Method: "GET", Path: "/was/v2/scans"})
	require.ErrorIs(t, err, errInterceptorRejected)
	assert.Contains(t, err.Error(), "getting API credentials")
}

func TestHeaderInterceptor(t *testing.T) {
	headers := map[string]string{
		"X-Custom-Header": "custom-value",
		"User-Agent":      "wasctl/1.0",
	}

	interceptor := was.HeaderInterceptor(headers)
	ctx := context.Background()
	req := &was.Request{
		Method: "GET",
		Path:   "/was/v2/scans",
	}

	err := interceptor(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, "custom-value", req.Headers.Get("X-Custom-Header"))
	assert.Equal(t, "wasctl/1.0", req.Headers.Get("User-Agent"))
}

func TestRateLimitInterceptor_CancelledContext(t *testing.T) {
	interceptor := was.RateLimitInterceptor(1)

	ctx := context.Background()
	req := &was.Request{Method: "GET", Path: "/was/v2/scans"}

	// First request consumes the only token.
	err := interceptor(ctx, req)
	require.NoError(t, err)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	err = interceptor(cancelled, req)
	require.ErrorIs(t, err, context.Canceled)
}

func TestMetricsCollector(t *testing.T) {
	collector := was.NewMetricsCollector()

	var notifiedEndpoint string

	var notifiedMetrics *was.Metrics

	collector.SetOnChange(func(endpoint string, metrics *was.Metrics) {
		notifiedEndpoint = endpoint
		notifiedMetrics = metrics
	})

	requestInterceptor := was.MetricsRequestInterceptor(collector)
	responseInterceptor := was.MetricsResponseInterceptor(collector)

	ctx := context.Background()
	req := &was.Request{
		Method: "GET",
		Path:   "/was/v2/scans",
	}

	err := requestInterceptor(ctx, req)
	require.NoError(t, err)

	// Simulate some delay
	time.Sleep(10 * time.Millisecond)

	resp := &was.Response{
		StatusCode: 200,
	}
	err = responseInterceptor(ctx, req, resp)
	require.NoError(t, err)

	assert.Equal(t, "GET /was/v2/scans", notifiedEndpoint)
	require.NotNil(t, notifiedMetrics)
	assert.Equal(t, int64(1), notifiedMetrics.TotalRequests)
	assert.Equal(t, int64(0), notifiedMetrics.TotalErrors)
	assert.Positive(t, notifiedMetrics.AverageLatency)

	// A server fault counts as an error.
	req2 := &was.Request{
		Method: "GET",
		Path:   "/was/v2/scans",
	}
	resp2 := &was.Response{
		StatusCode: 500,
	}
	err = responseInterceptor(ctx, req2, resp2)
	require.NoError(t, err)

	metrics := collector.GetMetrics("GET /was/v2/scans")
	require.NotNil(t, metrics)
	assert.Equal(t, int64(2), metrics.TotalRequests)
	assert.Equal(t, int64(1), metrics.TotalErrors)
}

func TestMetricsCollector_UnknownEndpoint(t *testing.T) {
	collector := was.NewMetricsCollector()

	assert.Nil(t, collector.GetMetrics("GET /was/v2/templates"))
}

func TestCircuitBreaker(t *testing.T) {
	config := &was.CircuitBreakerConfig{
		Threshold:        2,
		Timeout:          100 * time.Millisecond,
		SuccessThreshold: 1,
	}
	breaker := was.NewCircuitBreaker(config)

	requestInterceptor := was.CircuitBreakerRequestInterceptor(breaker)
	responseInterceptor := was.CircuitBreakerResponseInterceptor(breaker)

	ctx := context.Background()
	req := &was.Request{
		Method: "GET",
		Path:   "/was/v2/scans",
	}

	// Circuit starts closed.
	err := requestInterceptor(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, was.CircuitClosed, breaker.State())

	// Two server faults trip the breaker.
	for i := 0; i < 2; i++ {
		resp := &was.Response{StatusCode: 500}
		err = responseInterceptor(ctx, req, resp)
		require.NoError(t, err)
	}

	err = requestInterceptor(ctx, req)
	require.ErrorIs(t, err, was.ErrCircuitBreakerOpen)
	assert.Equal(t, was.CircuitOpen, breaker.State())

	// Wait for the cooldown, then the breaker half-opens.
	time.Sleep(150 * time.Millisecond)

	err = requestInterceptor(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, was.CircuitHalfOpen, breaker.State())

	// One success closes it again.
	resp := &was.Response{StatusCode: 200}
	err = responseInterceptor(ctx, req, resp)
	require.NoError(t, err)

	err = requestInterceptor(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, was.CircuitClosed, breaker.State())
}

func TestCircuitBreaker_ClientErrorsDoNotTrip(t *testing.T) {
	breaker := was.NewCircuitBreaker(&was.CircuitBreakerConfig{
		Threshold:        1,
		Timeout:          time.Minute,
		SuccessThreshold: 1,
	})

	requestInterceptor := was.CircuitBreakerRequestInterceptor(breaker)
	responseInterceptor := was.CircuitBreakerResponseInterceptor(breaker)

	ctx := context.Background()
	req := &was.Request{Method: "GET", Path: "/was/v2/scans/missing"}

	err := responseInterceptor(ctx, req, &was.Response{StatusCode: 404})
	require.NoError(t, err)

	err = requestInterceptor(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, was.CircuitClosed, breaker.State())
}
