package client

import (
	"context"

	"github.com/webscan-io/was/v2/internal/constants"
	"github.com/webscan-io/was/v2/internal/http"
	"github.com/webscan-io/was/v2/pkg/was"
)

// PluginsClient implements was.PluginsClient.
type PluginsClient struct {
	httpClient *http.Client
}

// NewPluginsClient creates a new plugins client.
func NewPluginsClient(httpClient *http.Client) *PluginsClient {
	return &PluginsClient{
		httpClient: httpClient,
	}
}

// List implements was.PluginsClient.List.
func (c *PluginsClient) List(ctx context.Context, params *was.QueryParams) (*was.PluginList, error) {
	return listResource[was.Plugin](ctx, c.httpClient, constants.APIBasePath+"/plugins", params, "plugins")
}

// Get implements was.PluginsClient.Get.
func (c *PluginsClient) Get(ctx context.Context, pluginID string) (*was.Plugin, error) {
	if pluginID == "" {
		return nil, constants.ErrPluginIDRequired
	}

	path := constants.APIBasePath + "/plugins/" + pluginID

	return getResource[was.Plugin](ctx, c.httpClient, path, "plugin")
}

// GetMany implements was.PluginsClient.GetMany.
func (c *PluginsClient) GetMany(ctx context.Context, pluginIDs []string, options *was.BulkOptions) ([]was.BulkResult, error) {
	return was.RunBulk(ctx, pluginIDs, func(ctx context.Context, id string) (interface{}, error) {
		return c.Get(ctx, id)
	}, options)
}
