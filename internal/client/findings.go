package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/webscan-io/was/v2/internal/constants"
	"github.com/webscan-io/was/v2/internal/http"
	"github.com/webscan-io/was/v2/pkg/was"
)

// FindingsClient implements was.FindingsClient.
type FindingsClient struct {
	httpClient *http.Client
}

// NewFindingsClient creates a new findings client.
func NewFindingsClient(httpClient *http.Client) *FindingsClient {
	return &FindingsClient{
		httpClient: httpClient,
	}
}

// List implements was.FindingsClient.List.
func (c *FindingsClient) List(ctx context.Context, scanID string, params *was.QueryParams) (*was.FindingList, error) {
	if scanID == "" {
		return nil, constants.ErrScanIDRequired
	}

	path := constants.APIBasePath + "/scans/" + scanID + "/findings"

	return listResource[was.Finding](ctx, c.httpClient, path, params, "findings")
}

// Summary implements was.FindingsClient.Summary. All pages are fetched so
// the severity tallies cover the complete finding set.
func (c *FindingsClient) Summary(ctx context.Context, scanID string) (*was.FindingsSummary, error) {
	if scanID == "" {
		return nil, constants.ErrScanIDRequired
	}

	path := constants.APIBasePath + "/scans/" + scanID + "/findings"
	lister := pageLister[was.Finding]{httpClient: c.httpClient, kind: "findings"}

	findings, err := was.FetchAllPages(ctx, lister, path, nil, nil)
	if err != nil {
		return nil, err
	}

	summary := was.SummarizeFindings(scanID, findings)

	return &summary, nil
}

// Export implements was.FindingsClient.Export.
func (c *FindingsClient) Export(ctx context.Context, scanID string) (*was.FindingsExport, error) {
	if scanID == "" {
		return nil, constants.ErrScanIDRequired
	}

	request := &was.FindingsExportRequest{ScanID: scanID}

	resp, err := c.httpClient.Post(ctx, constants.APIBasePath+"/export/findings", request)
	if err != nil {
		return nil, fmt.Errorf("exporting findings: %w", err)
	}

	export := &was.FindingsExport{ScanID: scanID}

	err = json.Unmarshal(resp.Body, export)
	if err != nil {
		return nil, fmt.Errorf("parsing findings export response: %w", err)
	}

	// The envelope may not echo the scan ID back.
	if export.ScanID == "" {
		export.ScanID = scanID
	}

	return export, nil
}

// ExportAll implements was.FindingsClient.ExportAll. Scans are exported
// strictly in order and one failure never stops the rest. Exports carry
// more data than other calls, so items without an explicit timeout get the
// extended one.
func (c *FindingsClient) ExportAll(ctx context.Context, scanIDs []string, options *was.BulkOptions) ([]was.BulkResult, error) {
	opts := was.BulkOptions{}
	if options != nil {
		opts = *options
	}

	if opts.ItemTimeout <= 0 {
		opts.ItemTimeout = constants.ExtendedHTTPTimeout
	}

	return was.RunBulk(ctx, scanIDs, func(ctx context.Context, id string) (interface{}, error) {
		return c.Export(ctx, id)
	}, &opts)
}
