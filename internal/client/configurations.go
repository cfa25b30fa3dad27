package client

import (
	"context"
	"fmt"

	"github.com/webscan-io/was/v2/internal/constants"
	"github.com/webscan-io/was/v2/internal/http"
	"github.com/webscan-io/was/v2/pkg/was"
)

// ConfigurationsClient implements was.ConfigurationsClient.
type ConfigurationsClient struct {
	httpClient *http.Client
}

// NewConfigurationsClient creates a new configurations client.
func NewConfigurationsClient(httpClient *http.Client) *ConfigurationsClient {
	return &ConfigurationsClient{
		httpClient: httpClient,
	}
}

// List implements was.ConfigurationsClient.List. The configurations endpoint
// has shipped several envelope shapes over time; anything other than the
// documented "items" wrapper is rejected rather than silently returned
// empty.
func (c *ConfigurationsClient) List(ctx context.Context, params *was.QueryParams) (*was.ConfigurationList, error) {
	list, err := listResource[was.Configuration](ctx, c.httpClient, constants.APIBasePath+"/configurations", params, "configurations")
	if err != nil {
		return nil, err
	}

	if list.Key != "items" {
		return nil, fmt.Errorf("%w: configurations list wrapped in %q", constants.ErrMalformedListResult, list.Key)
	}

	return list, nil
}

// Get implements was.ConfigurationsClient.Get.
func (c *ConfigurationsClient) Get(ctx context.Context, configID string) (*was.Configuration, error) {
	if configID == "" {
		return nil, constants.ErrConfigurationIDRequired
	}

	path := constants.APIBasePath + "/configurations/" + configID

	return getResource[was.Configuration](ctx, c.httpClient, path, "configuration")
}
