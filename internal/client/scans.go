package client

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/webscan-io/was/v2/internal/constants"
	"github.com/webscan-io/was/v2/internal/http"
	"github.com/webscan-io/was/v2/pkg/was"
)

// ScansClient implements was.ScansClient.
type ScansClient struct {
	httpClient   *http.Client
	cache        *was.CacheManager
	pollInterval time.Duration
	pollTimeout  time.Duration
}

// NewScansClient creates a new scans client.
func NewScansClient(httpClient *http.Client, cache *was.CacheManager) *ScansClient {
	return &ScansClient{
		httpClient:   httpClient,
		cache:        cache,
		pollInterval: constants.DefaultScanPollInterval,
		pollTimeout:  constants.DefaultScanPollTimeout,
	}
}

// List implements was.ScansClient.List.
func (c *ScansClient) List(ctx context.Context, params *was.QueryParams) (*was.ScanList, error) {
	return listResource[was.Scan](ctx, c.httpClient, constants.APIBasePath+"/scans", params, "scans")
}

// ListAll implements was.ScansClient.ListAll. It walks every page of the
// listing.
func (c *ScansClient) ListAll(ctx context.Context, params *was.QueryParams) ([]was.Scan, error) {
	lister := pageLister[was.Scan]{httpClient: c.httpClient, kind: "scans"}

	return was.FetchAllPages(ctx, lister, constants.APIBasePath+"/scans", params, nil)
}

// Get implements was.ScansClient.Get. Reads go through the cache; Launch
// and ChangeOwner invalidate the entry.
func (c *ScansClient) Get(ctx context.Context, scanID string) (*was.Scan, error) {
	if scanID == "" {
		return nil, constants.ErrScanIDRequired
	}

	return c.fetchScan(ctx, scanID, true)
}

// GetStatus implements was.ScansClient.GetStatus. The read always bypasses
// the cache: a stale status would defeat polling.
func (c *ScansClient) GetStatus(ctx context.Context, scanID string) (string, error) {
	if scanID == "" {
		return "", constants.ErrScanIDRequired
	}

	scan, err := c.fetchScan(ctx, scanID, false)
	if err != nil {
		return "", err
	}

	return scan.Status, nil
}

// Launch implements was.ScansClient.Launch. A successful launch invalidates
// the scan's cached representation, which is about to go stale.
func (c *ScansClient) Launch(ctx context.Context, scanID string) error {
	if scanID == "" {
		return constants.ErrScanIDRequired
	}

	path := constants.APIBasePath + "/scans/" + scanID + "/launch"

	_, err := c.httpClient.Post(ctx, path, nil)
	if err != nil {
		return fmt.Errorf("launching scan: %w", err)
	}

	c.invalidate(ctx, scanID)

	return nil
}

// ChangeOwner implements was.ScansClient.ChangeOwner.
func (c *ScansClient) ChangeOwner(ctx context.Context, scanID, ownerID string) error {
	if scanID == "" {
		return constants.ErrScanIDRequired
	}

	if ownerID == "" {
		return constants.ErrOwnerIDRequired
	}

	path := constants.APIBasePath + "/scans/" + scanID + "/owner"

	_, err := c.httpClient.Put(ctx, path, &was.ScanOwnerUpdateRequest{OwnerID: ownerID})
	if err != nil {
		return fmt.Errorf("changing scan owner: %w", err)
	}

	c.invalidate(ctx, scanID)

	return nil
}

// ChangeOwnerBulk implements was.ScansClient.ChangeOwnerBulk. Items run
// strictly in order and one failure never stops the rest.
func (c *ScansClient) ChangeOwnerBulk(ctx context.Context, scanIDs []string, ownerID string, options *was.BulkOptions) ([]was.BulkResult, error) {
	if ownerID == "" {
		return nil, constants.ErrOwnerIDRequired
	}

	return was.RunBulk(ctx, scanIDs, func(ctx context.Context, id string) (interface{}, error) {
		err := c.ChangeOwner(ctx, id, ownerID)
		if err != nil {
			return nil, err
		}

		return id, nil
	}, options)
}

// WaitUntilComplete implements was.ScansClient.WaitUntilComplete. It polls
// with uncached reads until the scan reaches a terminal state. Zero
// interval or timeout use the defaults.
func (c *ScansClient) WaitUntilComplete(ctx context.Context, scanID string, interval, timeout time.Duration) (*was.Scan, error) {
	if scanID == "" {
		return nil, constants.ErrScanIDRequired
	}

	if interval <= 0 {
		interval = c.pollInterval
	}

	if timeout <= 0 {
		timeout = c.pollTimeout
	}

	pollCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// First check immediately
	scan, err := c.fetchScan(pollCtx, scanID, false)
	if err != nil {
		return nil, fmt.Errorf("getting scan status: %w", err)
	}

	if scan.IsTerminal() {
		return scan, nil
	}

	for {
		select {
		case <-pollCtx.Done():
			// Return the last known state alongside the error.
			if ctx.Err() != nil {
				return scan, fmt.Errorf("waiting for scan: %w", ctx.Err())
			}

			return scan, fmt.Errorf("%w: scan %s still %q after %s", constants.ErrScanTimedOut, scanID, scan.Status, timeout)
		case <-ticker.C:
			scan, err = c.fetchScan(pollCtx, scanID, false)
			if err != nil {
				return nil, fmt.Errorf("getting scan status: %w", err)
			}

			if scan.IsTerminal() {
				return scan, nil
			}
		}
	}
}

// LaunchAndWait implements was.ScansClient.LaunchAndWait.
func (c *ScansClient) LaunchAndWait(ctx context.Context, scanID string, interval, timeout time.Duration) (*was.Scan, error) {
	err := c.Launch(ctx, scanID)
	if err != nil {
		return nil, err
	}

	return c.WaitUntilComplete(ctx, scanID, interval, timeout)
}

// Summary implements was.ScansClient.Summary. It reads through the cache:
// summaries are a display surface and tolerate mildly stale data.
func (c *ScansClient) Summary(ctx context.Context, scanID string) (*was.ScanSummary, error) {
	scan, err := c.Get(ctx, scanID)
	if err != nil {
		return nil, err
	}

	summary := was.NewScanSummary(scan)

	return &summary, nil
}

// fetchScan retrieves one scan, optionally through the cache.
func (c *ScansClient) fetchScan(ctx context.Context, scanID string, useCache bool) (*was.Scan, error) {
	path := constants.APIBasePath + "/scans/" + scanID

	fetch := func(ctx context.Context) ([]byte, error) {
		resp, err := c.httpClient.Get(ctx, path, nil)
		if err != nil {
			return nil, fmt.Errorf("getting scan: %w", err)
		}

		return resp.Body, nil
	}

	var (
		body []byte
		err  error
	)

	if useCache && c.cache != nil {
		key := c.cache.GetCacheKey("GET", path, nil)
		body, err = c.cache.GetOrCompute(ctx, key, c.cache.TTLForPath(path), fetch)
	} else {
		body, err = fetch(ctx)
	}

	if err != nil {
		return nil, err
	}

	var scan was.Scan

	err = json.Unmarshal(body, &scan)
	if err != nil {
		return nil, fmt.Errorf("parsing scan response: %w", err)
	}

	return &scan, nil
}

// invalidate drops the cached representation of one scan.
func (c *ScansClient) invalidate(ctx context.Context, scanID string) {
	if c.cache == nil {
		return
	}

	key := c.cache.GetCacheKey("GET", constants.APIBasePath+"/scans/"+scanID, nil)
	_ = c.cache.Delete(ctx, key)
}
