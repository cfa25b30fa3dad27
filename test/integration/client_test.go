//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webscan-io/was/v2/pkg/was"
)

// TestLive_ListScans verifies basic listing against the live service
func TestLive_ListScans(t *testing.T) {
	config := LoadTestConfig()
	config.SkipIfMissingConfig(t)

	client := NewLiveClient(t, config)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	scans, err := client.Scans().List(ctx, was.NewQueryParams().WithLimit(10))
	require.NoError(t, err)

	if config.Verbose {
		t.Logf("account reports %d scans", scans.Total)
	}

	for _, scan := range scans.Items {
		assert.NotEmpty(t, scan.ID, "every scan should carry an ID")
	}
}

// TestLive_TemplateCatalogIsCached verifies that repeated catalog reads are
// served from the client cache
func TestLive_TemplateCatalogIsCached(t *testing.T) {
	config := LoadTestConfig()
	config.SkipIfMissingConfig(t)

	client := NewLiveClient(t, config)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	first, err := client.Templates().List(ctx, nil)
	require.NoError(t, err)

	second, err := client.Templates().List(ctx, nil)
	require.NoError(t, err)

	assert.Equal(t, len(first.Items), len(second.Items))

	stats := client.Cache().GetStats()
	assert.GreaterOrEqual(t, stats.Hits, int64(1), "second catalog read should hit the cache")
}

// TestLive_VulnSearch verifies the search surface end to end
func TestLive_VulnSearch(t *testing.T) {
	config := LoadTestConfig()
	config.SkipIfMissingConfig(t)

	client := NewLiveClient(t, config)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	page, err := client.Vulns().Search(ctx, &was.SearchRequest{
		Filters: was.BuildVulnFilters(was.VulnFilterArgs{Severity: "high"}),
		Size:    10,
	})
	require.NoError(t, err)

	assert.LessOrEqual(t, len(page.Items), 10)

	for _, vuln := range page.Items {
		assert.NotEmpty(t, vuln.VulnID)
	}
}

// TestLive_UserDirectory verifies the owner map against the account directory
func TestLive_UserDirectory(t *testing.T) {
	config := LoadTestConfig()
	config.SkipIfMissingConfig(t)

	client := NewLiveClient(t, config)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	users, err := client.Users().List(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, users, "the account should have at least the API key's user")

	owners, err := client.Users().BuildOwnerMap(ctx)
	require.NoError(t, err)
	assert.Len(t, owners, len(users))
}

// TestLive_ScanInspection reads one pre-existing scan through every
// read-only surface
func TestLive_ScanInspection(t *testing.T) {
	config := LoadTestConfig()
	config.SkipIfMissingConfig(t)
	config.SkipIfNoScan(t)

	client := NewLiveClient(t, config)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	scan, err := client.Scans().Get(ctx, config.ScanID)
	require.NoError(t, err)
	assert.Equal(t, config.ScanID, scan.ID)

	status, err := client.Scans().GetStatus(ctx, config.ScanID)
	require.NoError(t, err)
	assert.NotEmpty(t, status)

	summary, err := client.Findings().Summary(ctx, config.ScanID)
	require.NoError(t, err)
	assert.Equal(t, config.ScanID, summary.ScanID)

	total := summary.Critical + summary.High + summary.Medium + summary.Low + summary.Info
	assert.LessOrEqual(t, total, summary.Total, "severity buckets never exceed the total")

	notes, err := client.Notes().List(ctx, config.ScanID, nil)
	require.NoError(t, err)

	if config.Verbose {
		t.Logf("scan %s: status=%s findings=%d notes=%d",
			scan.ID, status, summary.Total, len(notes.Items))
	}
}

// TestLive_NotFound verifies the error taxonomy against a real 404
func TestLive_NotFound(t *testing.T) {
	config := LoadTestConfig()
	config.SkipIfMissingConfig(t)

	client := NewLiveClient(t, config)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	_, err := client.Scans().Get(ctx, GenerateTestName("no-such-scan"))
	require.Error(t, err)
	assert.True(t, was.IsNotFound(err), "a missing scan should classify as not found, got: %v", err)
}
