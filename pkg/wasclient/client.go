// Package wasclient provides the main entry point for creating WAS API clients
package wasclient

import (
	"fmt"
	"strings"

	"github.com/webscan-io/was/v2/internal/client"
	"github.com/webscan-io/was/v2/internal/constants"
	"github.com/webscan-io/was/v2/pkg/was"
)

// New creates a new WAS API client from the given configuration.
func New(config *was.Config) (was.Client, error) {
	if config == nil {
		return nil, was.ErrConfigRequired
	}

	if config.APIEndpoint == "" {
		return nil, was.ErrAPIEndpointRequired
	}

	// Normalize API endpoint
	apiEndpoint := strings.TrimSuffix(config.APIEndpoint, "/")
	if !strings.HasPrefix(apiEndpoint, "http://") && !strings.HasPrefix(apiEndpoint, "https://") {
		apiEndpoint = "https://" + apiEndpoint
	}

	config.APIEndpoint = apiEndpoint

	// Use the internal client implementation
	client, err := client.New(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create new client: %w", err)
	}

	return client, nil
}

// NewWithKeys creates a new client with an API endpoint and key pair.
func NewWithKeys(endpoint, accessKey, secretKey string) (was.Client, error) {
	return New(&was.Config{
		APIEndpoint: endpoint,
		AccessKey:   accessKey,
		SecretKey:   secretKey,
	})
}

// NewFromEnv creates a new client reading the key pair from the standard
// TENABLE_ACCESS_KEY and TENABLE_SECRET_KEY environment variables. An empty
// endpoint targets the hosted service.
func NewFromEnv(endpoint string) (was.Client, error) {
	if endpoint == "" {
		endpoint = constants.DefaultAPIEndpoint
	}

	return New(&was.Config{
		APIEndpoint: endpoint,
	})
}
