package client

import (
	"context"

	"github.com/webscan-io/was/v2/internal/constants"
	"github.com/webscan-io/was/v2/internal/http"
	"github.com/webscan-io/was/v2/pkg/was"
)

// TemplatesClient implements was.TemplatesClient.
type TemplatesClient struct {
	httpClient *http.Client
}

// NewTemplatesClient creates a new templates client.
func NewTemplatesClient(httpClient *http.Client) *TemplatesClient {
	return &TemplatesClient{
		httpClient: httpClient,
	}
}

// List implements was.TemplatesClient.List.
func (c *TemplatesClient) List(ctx context.Context, params *was.QueryParams) (*was.TemplateList, error) {
	return listResource[was.Template](ctx, c.httpClient, constants.APIBasePath+"/templates", params, "templates")
}
