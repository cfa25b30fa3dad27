package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/webscan-io/was/v2/internal/http"
	"github.com/webscan-io/was/v2/pkg/was"
)

// listResource fetches one page of a listing and decodes its envelope. The
// kind label names the resource in error messages.
func listResource[T any](ctx context.Context, httpClient *http.Client, path string, params *was.QueryParams, kind string) (*was.ListResponse[T], error) {
	var query url.Values

	if params != nil {
		query = params.ToValues()
	}

	resp, err := httpClient.Get(ctx, path, query)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", kind, err)
	}

	var result was.ListResponse[T]

	err = json.Unmarshal(resp.Body, &result)
	if err != nil {
		return nil, fmt.Errorf("parsing %s list response: %w", kind, err)
	}

	return &result, nil
}

// getResource fetches a single object and decodes it.
func getResource[T any](ctx context.Context, httpClient *http.Client, path, kind string) (*T, error) {
	resp, err := httpClient.Get(ctx, path, nil)
	if err != nil {
		return nil, fmt.Errorf("getting %s: %w", kind, err)
	}

	var result T

	err = json.Unmarshal(resp.Body, &result)
	if err != nil {
		return nil, fmt.Errorf("parsing %s response: %w", kind, err)
	}

	return &result, nil
}

// pageLister adapts the transport to the pagination helpers' contract.
type pageLister[T any] struct {
	httpClient *http.Client
	kind       string
}

// ListWithPath implements was.PaginationClient.
func (l pageLister[T]) ListWithPath(ctx context.Context, path string, params *was.QueryParams) (*was.ListResponse[T], error) {
	return listResource[T](ctx, l.httpClient, path, params, l.kind)
}
