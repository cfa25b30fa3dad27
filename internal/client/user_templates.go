package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/webscan-io/was/v2/internal/constants"
	"github.com/webscan-io/was/v2/internal/http"
	"github.com/webscan-io/was/v2/pkg/was"
)

// UserTemplatesClient implements was.UserTemplatesClient.
type UserTemplatesClient struct {
	httpClient *http.Client
}

// NewUserTemplatesClient creates a new user templates client.
func NewUserTemplatesClient(httpClient *http.Client) *UserTemplatesClient {
	return &UserTemplatesClient{
		httpClient: httpClient,
	}
}

// List implements was.UserTemplatesClient.List.
func (c *UserTemplatesClient) List(ctx context.Context, params *was.QueryParams) (*was.UserTemplateList, error) {
	return listResource[was.UserTemplate](ctx, c.httpClient, constants.APIBasePath+"/user-templates", params, "user templates")
}

// Get implements was.UserTemplatesClient.Get.
func (c *UserTemplatesClient) Get(ctx context.Context, templateID string) (*was.UserTemplate, error) {
	if templateID == "" {
		return nil, constants.ErrTemplateIDRequired
	}

	path := constants.APIBasePath + "/user-templates/" + templateID

	return getResource[was.UserTemplate](ctx, c.httpClient, path, "user template")
}

// Create implements was.UserTemplatesClient.Create.
func (c *UserTemplatesClient) Create(ctx context.Context, request *was.UserTemplateCreateRequest) (*was.UserTemplate, error) {
	resp, err := c.httpClient.Post(ctx, constants.APIBasePath+"/user-templates", request)
	if err != nil {
		return nil, fmt.Errorf("creating user template: %w", err)
	}

	var template was.UserTemplate

	err = json.Unmarshal(resp.Body, &template)
	if err != nil {
		return nil, fmt.Errorf("parsing user template response: %w", err)
	}

	return &template, nil
}

// Update implements was.UserTemplatesClient.Update.
func (c *UserTemplatesClient) Update(ctx context.Context, templateID string, request *was.UserTemplateUpdateRequest) (*was.UserTemplate, error) {
	if templateID == "" {
		return nil, constants.ErrTemplateIDRequired
	}

	path := constants.APIBasePath + "/user-templates/" + templateID

	resp, err := c.httpClient.Patch(ctx, path, request)
	if err != nil {
		return nil, fmt.Errorf("updating user template: %w", err)
	}

	var template was.UserTemplate

	err = json.Unmarshal(resp.Body, &template)
	if err != nil {
		return nil, fmt.Errorf("parsing user template response: %w", err)
	}

	return &template, nil
}

// Delete implements was.UserTemplatesClient.Delete.
func (c *UserTemplatesClient) Delete(ctx context.Context, templateID string) error {
	if templateID == "" {
		return constants.ErrTemplateIDRequired
	}

	path := constants.APIBasePath + "/user-templates/" + templateID

	_, err := c.httpClient.Delete(ctx, path)
	if err != nil {
		return fmt.Errorf("deleting user template: %w", err)
	}

	return nil
}
