package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/webscan-io/was/v2/internal/constants"
	"github.com/webscan-io/was/v2/internal/http"
	"github.com/webscan-io/was/v2/pkg/was"
)

// VulnsClient implements was.VulnsClient.
type VulnsClient struct {
	httpClient *http.Client
}

// NewVulnsClient creates a new vulnerabilities client.
func NewVulnsClient(httpClient *http.Client) *VulnsClient {
	return &VulnsClient{
		httpClient: httpClient,
	}
}

// Search implements was.VulnsClient.Search.
func (c *VulnsClient) Search(ctx context.Context, request *was.SearchRequest) (*was.SearchResponse, error) {
	if request == nil {
		request = &was.SearchRequest{}
	}

	resp, err := c.httpClient.Post(ctx, constants.APIBasePath+"/vulns/search", request)
	if err != nil {
		return nil, fmt.Errorf("searching vulnerabilities: %w", err)
	}

	var result was.SearchResponse

	err = json.Unmarshal(resp.Body, &result)
	if err != nil {
		return nil, fmt.Errorf("parsing search response: %w", err)
	}

	return &result, nil
}

// SearchAll implements was.VulnsClient.SearchAll. Pages are fetched lazily
// with the default search page size until the server-reported total is
// reached.
func (c *VulnsClient) SearchAll(ctx context.Context, filters []was.SearchFilter) ([]was.Vulnerability, error) {
	fetch := func(ctx context.Context, offset, size int) ([]was.Vulnerability, int, error) {
		page, err := c.Search(ctx, &was.SearchRequest{
			Filters: filters,
			Size:    size,
			Offset:  offset,
		})
		if err != nil {
			return nil, 0, err
		}

		return page.Items, page.Total, nil
	}

	iterator := was.NewSearchIterator(ctx, fetch, constants.DefaultSearchPageSize)

	return iterator.All()
}

// Get implements was.VulnsClient.Get.
func (c *VulnsClient) Get(ctx context.Context, vulnID string) (*was.Vulnerability, error) {
	if vulnID == "" {
		return nil, constants.ErrVulnIDRequired
	}

	path := constants.APIBasePath + "/vulns/" + vulnID

	return getResource[was.Vulnerability](ctx, c.httpClient, path, "vulnerability")
}

// GetMany implements was.VulnsClient.GetMany.
func (c *VulnsClient) GetMany(ctx context.Context, vulnIDs []string, options *was.BulkOptions) ([]was.BulkResult, error) {
	return was.RunBulk(ctx, vulnIDs, func(ctx context.Context, id string) (interface{}, error) {
		return c.Get(ctx, id)
	}, options)
}
