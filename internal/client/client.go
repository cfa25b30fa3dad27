// Package client implements the was.Client interface: the aggregate client,
// one file per resource family, and the cache wiring between them.
package client

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"

	"github.com/webscan-io/was/v2/internal/auth"
	"github.com/webscan-io/was/v2/internal/constants"
	"github.com/webscan-io/was/v2/internal/http"
	"github.com/webscan-io/was/v2/pkg/was"
)

// Client implements the was.Client interface.
type Client struct {
	httpClient   *http.Client
	credentials  auth.CredentialSource
	cache        was.Cache
	cacheManager *was.CacheManager
	baseURL      string
	logger       was.Logger

	// Resource clients
	scans          was.ScansClient
	applications   was.ApplicationsClient
	findings       was.FindingsClient
	vulns          was.VulnsClient
	plugins        was.PluginsClient
	templates      was.TemplatesClient
	userTemplates  was.UserTemplatesClient
	configurations was.ConfigurationsClient
	folders        was.FoldersClient
	users          was.UsersClient
	notes          was.NotesClient
	filters        was.FiltersClient
}

// createCredentialSource picks where API keys come from. Explicit config
// keys win, with the process environment as fallback so partial configs
// still resolve; without any config keys the environment must be complete.
func createCredentialSource(config *was.Config) (auth.CredentialSource, error) {
	if config.AccessKey != "" || config.SecretKey != "" {
		static := auth.NewStaticSource(&auth.Credentials{
			AccessKey: config.AccessKey,
			SecretKey: config.SecretKey,
			Proxy:     config.Proxy,
		})

		return auth.NewChainSource(static, auth.NewEnvSource()), nil
	}

	_, err := auth.FromEnv()
	if err != nil {
		return nil, constants.ErrNoCredentialsConfigured
	}

	return auth.NewEnvSource(), nil
}

// createRetryPolicy maps config overrides onto the default retry policy.
func createRetryPolicy(config *was.Config) was.RetryPolicy {
	policy := was.DefaultRetryPolicy()

	if config.ThrottleRetryMax > 0 {
		policy.ThrottleMax = config.ThrottleRetryMax
	}

	if config.TransientRetryMax > 0 {
		policy.TransientMax = config.TransientRetryMax
	}

	if config.RetryWaitMin > 0 {
		policy.WaitMin = config.RetryWaitMin
	}

	if config.RetryWaitMax > 0 {
		policy.WaitMax = config.RetryWaitMax
	}

	policy.IgnoreRetryAfter = config.IgnoreRetryAfter

	return policy
}

// createHTTPClientOptions builds HTTP client options from config.
func createHTTPClientOptions(config *was.Config) []http.Option {
	var httpOpts []http.Option

	if config.Logger != nil {
		httpOpts = append(httpOpts, http.WithLogger(config.Logger))
	}

	if config.Debug {
		httpOpts = append(httpOpts, http.WithDebug(true))
	}

	if config.UserAgent != "" {
		httpOpts = append(httpOpts, http.WithUserAgent(config.UserAgent))
	}

	if config.HTTPTimeout > 0 {
		httpOpts = append(httpOpts, http.WithTimeout(config.HTTPTimeout))
	}

	proxy := config.Proxy
	if proxy == "" {
		proxy = os.Getenv(auth.EnvProxy)
	}

	if proxy != "" {
		httpOpts = append(httpOpts, http.WithProxy(proxy))
	}

	httpOpts = append(httpOpts, http.WithRetryPolicy(createRetryPolicy(config)))

	return httpOpts
}

// createCacheManager builds the cache backend and its manager from config.
// With caching disabled the manager wraps a no-op backend, so callers never
// need a nil check.
func createCacheManager(config *was.Config) (was.Cache, *was.CacheManager, error) {
	cacheConfig := config.Cache
	if cacheConfig == nil {
		cacheConfig = was.DefaultCacheConfig()
	}

	cache, err := was.NewCacheFromConfig(cacheConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("building cache: %w", err)
	}

	manager := was.NewCacheManager(cache, config.Logger)
	manager.SetOptions(cacheConfig.Options)

	return cache, manager, nil
}

// createSmartCacheConfig derives the interceptor settings from the cache
// config.
func createSmartCacheConfig(cacheConfig *was.CacheConfig) *was.SmartCacheConfig {
	smart := was.DefaultSmartCacheConfig()
	if cacheConfig != nil && cacheConfig.Options != nil {
		smart.EnableConditionalRequests = cacheConfig.Options.EnableETags
	}

	return smart
}

// configureInterceptors wires the optional request-shaping interceptors:
// debug logging, extra headers, client-side pacing, and the circuit breaker.
func configureInterceptors(chain *was.InterceptorChain, config *was.Config) {
	if config.Debug && config.Logger != nil {
		chain.AddRequestInterceptor(was.LoggingInterceptor(config.Logger))
		chain.AddResponseInterceptor(was.LoggingResponseInterceptor(config.Logger))
	}

	if len(config.Headers) > 0 {
		chain.AddRequestInterceptor(was.HeaderInterceptor(config.Headers))
	}

	if config.RequestsPerSecond > 0 {
		chain.AddRequestInterceptor(was.RateLimitInterceptor(config.RequestsPerSecond))
	}

	if config.CircuitBreaker != nil {
		breaker := was.NewCircuitBreaker(config.CircuitBreaker)
		chain.AddRequestInterceptor(was.CircuitBreakerRequestInterceptor(breaker))
		chain.AddResponseInterceptor(was.CircuitBreakerResponseInterceptor(breaker))
	}
}

// New creates a WAS API client.
func New(config *was.Config) (*Client, error) {
	if config == nil {
		return nil, was.ErrConfigRequired
	}

	if config.APIEndpoint == "" {
		return nil, was.ErrAPIEndpointRequired
	}

	credentials, err := createCredentialSource(config)
	if err != nil {
		return nil, err
	}

	cache, manager, err := createCacheManager(config)
	if err != nil {
		return nil, err
	}

	chain := was.NewInterceptorChain()
	was.ConfigureSmartCache(chain, manager, createSmartCacheConfig(config.Cache))
	configureInterceptors(chain, config)

	httpOpts := createHTTPClientOptions(config)
	httpOpts = append(httpOpts, http.WithInterceptors(chain))

	client := &Client{
		httpClient:   http.NewClient(config.APIEndpoint, credentials, httpOpts...),
		credentials:  credentials,
		cache:        cache,
		cacheManager: manager,
		baseURL:      config.APIEndpoint,
		logger:       config.Logger,
	}

	// Initialize resource clients
	client.initializeResourceClients()

	return client, nil
}

// GetRaw implements was.RawClient. Parameters are sent as query values and
// the body is returned unparsed.
func (c *Client) GetRaw(ctx context.Context, path string, params map[string]string) ([]byte, error) {
	var query url.Values

	if len(params) > 0 {
		query = make(url.Values, len(params))
		for name, value := range params {
			query.Set(name, value)
		}
	}

	resp, err := c.httpClient.Get(ctx, path, query)
	if err != nil {
		return nil, fmt.Errorf("getting %s: %w", path, err)
	}

	return resp.Body, nil
}

// Cache implements was.Client.Cache.
func (c *Client) Cache() *was.CacheManager {
	return c.cacheManager
}

// Close implements was.Client.Close. It releases the cache backend's
// connection when the backend holds one.
func (c *Client) Close() error {
	if closer, ok := c.cache.(io.Closer); ok {
		err := closer.Close()
		if err != nil {
			return fmt.Errorf("closing cache: %w", err)
		}
	}

	return nil
}

// Resource client accessors

// Scans implements was.Client.Scans.
func (c *Client) Scans() was.ScansClient {
	return c.scans
}

// Applications implements was.Client.Applications.
func (c *Client) Applications() was.ApplicationsClient {
	return c.applications
}

// Findings implements was.Client.Findings.
func (c *Client) Findings() was.FindingsClient {
	return c.findings
}

// Vulns implements was.Client.Vulns.
func (c *Client) Vulns() was.VulnsClient {
	return c.vulns
}

// Plugins implements was.Client.Plugins.
func (c *Client) Plugins() was.PluginsClient {
	return c.plugins
}

// Templates implements was.Client.Templates.
func (c *Client) Templates() was.TemplatesClient {
	return c.templates
}

// UserTemplates implements was.Client.UserTemplates.
func (c *Client) UserTemplates() was.UserTemplatesClient {
	return c.userTemplates
}

// Configurations implements was.Client.Configurations.
func (c *Client) Configurations() was.ConfigurationsClient {
	return c.configurations
}

// Folders implements was.Client.Folders.
func (c *Client) Folders() was.FoldersClient {
	return c.folders
}

// Users implements was.Client.Users.
func (c *Client) Users() was.UsersClient {
	return c.users
}

// Notes implements was.Client.Notes.
func (c *Client) Notes() was.NotesClient {
	return c.notes
}

// Filters implements was.Client.Filters.
func (c *Client) Filters() was.FiltersClient {
	return c.filters
}

// initializeResourceClients initializes all resource-specific clients.
func (c *Client) initializeResourceClients() {
	c.scans = NewScansClient(c.httpClient, c.cacheManager)
	c.applications = NewApplicationsClient(c.httpClient)
	c.findings = NewFindingsClient(c.httpClient)
	c.vulns = NewVulnsClient(c.httpClient)
	c.plugins = NewPluginsClient(c.httpClient)
	c.templates = NewTemplatesClient(c.httpClient)
	c.userTemplates = NewUserTemplatesClient(c.httpClient)
	c.configurations = NewConfigurationsClient(c.httpClient)
	c.folders = NewFoldersClient(c.httpClient)
	c.users = NewUsersClient(c.httpClient, c.cacheManager)
	c.notes = NewNotesClient(c.httpClient)
	c.filters = NewFiltersClient(c.httpClient)
}
