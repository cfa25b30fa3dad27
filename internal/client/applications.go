package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/webscan-io/was/v2/internal/constants"
	"github.com/webscan-io/was/v2/internal/http"
	"github.com/webscan-io/was/v2/pkg/was"
)

// ApplicationsClient implements was.ApplicationsClient.
type ApplicationsClient struct {
	httpClient *http.Client
}

// NewApplicationsClient creates a new applications client.
func NewApplicationsClient(httpClient *http.Client) *ApplicationsClient {
	return &ApplicationsClient{
		httpClient: httpClient,
	}
}

// List implements was.ApplicationsClient.List.
func (c *ApplicationsClient) List(ctx context.Context, params *was.QueryParams) (*was.ApplicationList, error) {
	return listResource[was.Application](ctx, c.httpClient, constants.APIBasePath+"/applications", params, "applications")
}

// Get implements was.ApplicationsClient.Get.
func (c *ApplicationsClient) Get(ctx context.Context, appID string) (*was.Application, error) {
	if appID == "" {
		return nil, constants.ErrApplicationIDRequired
	}

	path := constants.APIBasePath + "/applications/" + appID

	return getResource[was.Application](ctx, c.httpClient, path, "application")
}

// Create implements was.ApplicationsClient.Create.
func (c *ApplicationsClient) Create(ctx context.Context, request *was.ApplicationCreateRequest) (*was.Application, error) {
	resp, err := c.httpClient.Post(ctx, constants.APIBasePath+"/applications", request)
	if err != nil {
		return nil, fmt.Errorf("creating application: %w", err)
	}

	var app was.Application

	err = json.Unmarshal(resp.Body, &app)
	if err != nil {
		return nil, fmt.Errorf("parsing application response: %w", err)
	}

	return &app, nil
}

// Update implements was.ApplicationsClient.Update.
func (c *ApplicationsClient) Update(ctx context.Context, appID string, request *was.ApplicationUpdateRequest) (*was.Application, error) {
	if appID == "" {
		return nil, constants.ErrApplicationIDRequired
	}

	path := constants.APIBasePath + "/applications/" + appID

	resp, err := c.httpClient.Patch(ctx, path, request)
	if err != nil {
		return nil, fmt.Errorf("updating application: %w", err)
	}

	var app was.Application

	err = json.Unmarshal(resp.Body, &app)
	if err != nil {
		return nil, fmt.Errorf("parsing application response: %w", err)
	}

	return &app, nil
}

// Delete implements was.ApplicationsClient.Delete.
func (c *ApplicationsClient) Delete(ctx context.Context, appID string) error {
	if appID == "" {
		return constants.ErrApplicationIDRequired
	}

	path := constants.APIBasePath + "/applications/" + appID

	_, err := c.httpClient.Delete(ctx, path)
	if err != nil {
		return fmt.Errorf("deleting application: %w", err)
	}

	return nil
}

// ListURLs implements was.ApplicationsClient.ListURLs.
func (c *ApplicationsClient) ListURLs(ctx context.Context, appID string) ([]was.AppURL, error) {
	if appID == "" {
		return nil, constants.ErrApplicationIDRequired
	}

	path := constants.APIBasePath + "/applications/" + appID + "/urls"

	resp, err := c.httpClient.Get(ctx, path, nil)
	if err != nil {
		return nil, fmt.Errorf("listing application URLs: %w", err)
	}

	var result was.ApplicationURLsRequest

	err = json.Unmarshal(resp.Body, &result)
	if err != nil {
		return nil, fmt.Errorf("parsing application URLs response: %w", err)
	}

	return result.URLs, nil
}

// ReplaceURLs implements was.ApplicationsClient.ReplaceURLs. The given URLs
// replace the application's entire target set.
func (c *ApplicationsClient) ReplaceURLs(ctx context.Context, appID string, urls []string) ([]was.AppURL, error) {
	if appID == "" {
		return nil, constants.ErrApplicationIDRequired
	}

	request := &was.ApplicationURLsRequest{URLs: make([]was.AppURL, 0, len(urls))}
	for _, target := range urls {
		request.URLs = append(request.URLs, was.AppURL{URL: target})
	}

	path := constants.APIBasePath + "/applications/" + appID + "/urls"

	resp, err := c.httpClient.Post(ctx, path, request)
	if err != nil {
		return nil, fmt.Errorf("replacing application URLs: %w", err)
	}

	var result was.ApplicationURLsRequest

	err = json.Unmarshal(resp.Body, &result)
	if err != nil {
		return nil, fmt.Errorf("parsing application URLs response: %w", err)
	}

	return result.URLs, nil
}
