//go:build integration

package integration

import (
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/webscan-io/was/v2/pkg/was"
	"github.com/webscan-io/was/v2/pkg/wasclient"
)

// TestConfig holds configuration for integration tests
type TestConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Proxy     string

	// ScanID names an existing scan the read-only tests may inspect.
	ScanID string

	Verbose bool
}

// LoadTestConfig loads configuration from environment variables
func LoadTestConfig() *TestConfig {
	endpoint := os.Getenv("WAS_TEST_ENDPOINT")
	if endpoint == "" {
		endpoint = "https://cloud.tenable.com"
	}

	return &TestConfig{
		Endpoint:  endpoint,
		AccessKey: os.Getenv("TENABLE_ACCESS_KEY"),
		SecretKey: os.Getenv("TENABLE_SECRET_KEY"),
		Proxy:     os.Getenv("TENABLE_PROXY"),
		ScanID:    os.Getenv("WAS_TEST_SCAN_ID"),
		Verbose:   os.Getenv("WAS_TEST_VERBOSE") == "true",
	}
}

// SkipIfMissingConfig skips the test when no live credentials are configured
func (config *TestConfig) SkipIfMissingConfig(t *testing.T) {
	t.Helper()

	if config.AccessKey == "" || config.SecretKey == "" {
		t.Skip("TENABLE_ACCESS_KEY and TENABLE_SECRET_KEY not set, skipping integration test")
	}
}

// SkipIfNoScan skips the test when no pre-existing scan was named
func (config *TestConfig) SkipIfNoScan(t *testing.T) {
	t.Helper()

	if config.ScanID == "" {
		t.Skip("WAS_TEST_SCAN_ID not set, skipping integration test")
	}
}

// NewLiveClient builds a client against the configured live service
func NewLiveClient(t *testing.T, config *TestConfig) was.Client {
	t.Helper()

	client, err := wasclient.New(&was.Config{
		APIEndpoint: config.Endpoint,
		AccessKey:   config.AccessKey,
		SecretKey:   config.SecretKey,
		Proxy:       config.Proxy,
	})
	require.NoError(t, err, "failed to create live client")

	t.Cleanup(func() {
		_ = client.Close()
	})

	return client
}

// GenerateTestName creates a unique test resource name
func GenerateTestName(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().Unix())
}
