package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webscan-io/was/v2/pkg/was"
)

// Test static errors.
var (
	ErrTestSomeError = errors.New("some error")
)

// NewTestClient creates a client against the given test server URL. Caching
// is disabled so every call reaches the server.
func NewTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()

	client, err := New(&was.Config{
		APIEndpoint: baseURL,
		AccessKey:   "test-access",
		SecretKey:   "test-secret",
		Cache:       &was.CacheConfig{Type: was.CacheTypeNone},
	})
	require.NoError(t, err)

	return client
}

// NewCachingTestClient creates a client with an in-memory cache for tests
// that exercise cache behavior.
func NewCachingTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()

	client, err := New(&was.Config{
		APIEndpoint: baseURL,
		AccessKey:   "test-access",
		SecretKey:   "test-secret",
	})
	require.NoError(t, err)

	return client
}

// writeJSON encodes a JSON response body with the given status.
func writeJSON(t *testing.T, writer http.ResponseWriter, status int, body interface{}) {
	t.Helper()

	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)

	err := json.NewEncoder(writer).Encode(body)
	require.NoError(t, err)
}

// decodeRequestJSON decodes a request body into target.
func decodeRequestJSON(request *http.Request, target interface{}) error {
	defer func() { _ = request.Body.Close() }()

	return json.NewDecoder(request.Body).Decode(target)
}

// errorBody builds the service's error payload shape.
func errorBody(message string) map[string]interface{} {
	return map[string]interface{}{
		"error": message,
	}
}

// listBody wraps items in the standard list envelope.
func listBody(items interface{}, total int) map[string]interface{} {
	return map[string]interface{}{
		"items": items,
		"total": total,
	}
}

// TestGetOperation represents a generic get operation test case.
type TestGetOperation[TResponse any] struct {
	Name         string
	ID           string
	ExpectedPath string
	StatusCode   int
	Response     *TResponse
	WantErr      bool
	ErrMessage   string
}

// RunGetTests runs a series of get operation tests.
func RunGetTests[TResponse any](
	t *testing.T,
	tests []TestGetOperation[TResponse],
	getFunc func(*Client) func(context.Context, string) (*TResponse, error),
) {
	t.Helper()

	for _, testCase := range tests {
		t.Run(testCase.Name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
				assert.Equal(t, testCase.ExpectedPath, request.URL.Path)
				assert.Equal(t, "GET", request.Method)

				if testCase.WantErr {
					writeJSON(t, writer, testCase.StatusCode, errorBody(testCase.ErrMessage))

					return
				}

				writeJSON(t, writer, testCase.StatusCode, testCase.Response)
			}))
			defer server.Close()

			client := NewTestClient(t, server.URL)

			getFn := getFunc(client)
			result, err := getFn(context.Background(), testCase.ID)

			if testCase.WantErr {
				require.Error(t, err)

				if testCase.ErrMessage != "" {
					assert.Contains(t, err.Error(), testCase.ErrMessage)
				}

				assert.Nil(t, result)
			} else {
				require.NoError(t, err)
				require.NotNil(t, result)
			}
		})
	}
}

// TestListOperation represents a generic list operation test case.
type TestListOperation[TResource any] struct {
	Name         string
	ExpectedPath string
	Params       *was.QueryParams
	Items        []TResource
	Total        int
	WantQuery    string
}

// RunListTests runs a series of list operation tests against the standard
// enveloped list endpoint shape.
func RunListTests[TResource any](
	t *testing.T,
	tests []TestListOperation[TResource],
	listFunc func(*Client) func(context.Context, *was.QueryParams) (*was.ListResponse[TResource], error),
) {
	t.Helper()

	for _, testCase := range tests {
		t.Run(testCase.Name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
				assert.Equal(t, testCase.ExpectedPath, request.URL.Path)
				assert.Equal(t, "GET", request.Method)

				if testCase.WantQuery != "" {
					assert.Equal(t, testCase.WantQuery, request.URL.RawQuery)
				}

				total := testCase.Total
				if total == 0 {
					total = len(testCase.Items)
				}

				writeJSON(t, writer, http.StatusOK, listBody(testCase.Items, total))
			}))
			defer server.Close()

			client := NewTestClient(t, server.URL)

			listFn := listFunc(client)
			result, err := listFn(context.Background(), testCase.Params)

			require.NoError(t, err)
			require.NotNil(t, result)
			assert.Len(t, result.Items, len(testCase.Items))
		})
	}
}

// RunDeleteTest runs a single delete operation test.
func RunDeleteTest(
	t *testing.T,
	testName string,
	id string,
	expectedPath string,
	deleteFunc func(*Client) func(context.Context, string) error,
) {
	t.Helper()

	t.Run(testName, func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, expectedPath, request.URL.Path)
			assert.Equal(t, "DELETE", request.Method)

			writer.WriteHeader(http.StatusNoContent)
		}))
		defer server.Close()

		client := NewTestClient(t, server.URL)

		deleteFn := deleteFunc(client)
		err := deleteFn(context.Background(), id)
		require.NoError(t, err)
	})
}

// StringPtr is a helper function that returns a pointer to the given string.
func StringPtr(s string) *string {
	return &s
}
