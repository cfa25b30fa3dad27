package client

import (
	"context"

	"github.com/webscan-io/was/v2/internal/constants"
	"github.com/webscan-io/was/v2/internal/http"
	"github.com/webscan-io/was/v2/pkg/was"
)

// FiltersClient implements was.FiltersClient.
type FiltersClient struct {
	httpClient *http.Client
}

// NewFiltersClient creates a new filter metadata client.
func NewFiltersClient(httpClient *http.Client) *FiltersClient {
	return &FiltersClient{
		httpClient: httpClient,
	}
}

// Scans implements was.FiltersClient.Scans.
func (c *FiltersClient) Scans(ctx context.Context) ([]was.FilterMetadata, error) {
	return c.list(ctx, "/scans/filters")
}

// Vulns implements was.FiltersClient.Vulns.
func (c *FiltersClient) Vulns(ctx context.Context) ([]was.FilterMetadata, error) {
	return c.list(ctx, "/vulns/filters")
}

// Applications implements was.FiltersClient.Applications.
func (c *FiltersClient) Applications(ctx context.Context) ([]was.FilterMetadata, error) {
	return c.list(ctx, "/applications/filters")
}

// Plugins implements was.FiltersClient.Plugins.
func (c *FiltersClient) Plugins(ctx context.Context) ([]was.FilterMetadata, error) {
	return c.list(ctx, "/plugins/filters")
}

// UserTemplates implements was.FiltersClient.UserTemplates.
func (c *FiltersClient) UserTemplates(ctx context.Context) ([]was.FilterMetadata, error) {
	return c.list(ctx, "/user-templates/filters")
}

func (c *FiltersClient) list(ctx context.Context, suffix string) ([]was.FilterMetadata, error) {
	list, err := listResource[was.FilterMetadata](ctx, c.httpClient, constants.APIBasePath+suffix, nil, "filter metadata")
	if err != nil {
		return nil, err
	}

	return list.Items, nil
}
