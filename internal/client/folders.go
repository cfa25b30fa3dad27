package client

import (
	"context"

	"github.com/webscan-io/was/v2/internal/constants"
	"github.com/webscan-io/was/v2/internal/http"
	"github.com/webscan-io/was/v2/pkg/was"
)

// FoldersClient implements was.FoldersClient.
type FoldersClient struct {
	httpClient *http.Client
}

// NewFoldersClient creates a new folders client.
func NewFoldersClient(httpClient *http.Client) *FoldersClient {
	return &FoldersClient{
		httpClient: httpClient,
	}
}

// List implements was.FoldersClient.List.
func (c *FoldersClient) List(ctx context.Context) ([]was.Folder, error) {
	list, err := listResource[was.Folder](ctx, c.httpClient, constants.APIBasePath+"/folders", nil, "folders")
	if err != nil {
		return nil, err
	}

	return list.Items, nil
}
