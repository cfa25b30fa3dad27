package client

import (
	"context"

	"github.com/webscan-io/was/v2/internal/constants"
	"github.com/webscan-io/was/v2/internal/http"
	"github.com/webscan-io/was/v2/pkg/was"
)

// NotesClient implements was.NotesClient.
type NotesClient struct {
	httpClient *http.Client
}

// NewNotesClient creates a new scan notes client.
func NewNotesClient(httpClient *http.Client) *NotesClient {
	return &NotesClient{
		httpClient: httpClient,
	}
}

// List implements was.NotesClient.List.
func (c *NotesClient) List(ctx context.Context, scanID string, params *was.QueryParams) (*was.ScanNoteList, error) {
	if scanID == "" {
		return nil, constants.ErrScanIDRequired
	}

	path := constants.APIBasePath + "/scans/" + scanID + "/notes"

	return listResource[was.ScanNote](ctx, c.httpClient, path, params, "scan notes")
}
