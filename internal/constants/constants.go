package constants

import "time"

// File and directory permissions.
const (
	// ConfigDirPerm is the permission for configuration directories.
	ConfigDirPerm = 0750

	// ConfigFilePerm is the permission for configuration files.
	ConfigFilePerm = 0600
)

// Service endpoints.
const (
	// DefaultAPIEndpoint is the production scanning service endpoint.
	DefaultAPIEndpoint = "https://cloud.tenable.com"

	// APIBasePath is the path prefix for all v2 scanning endpoints.
	APIBasePath = "/was/v2"
)

// HTTP and network timeouts.
const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second

	// ExtendedHTTPTimeout is used for longer operations such as exports.
	ExtendedHTTPTimeout = 120 * time.Second

	// ShortHTTPTimeout is used for quick operations.
	ShortHTTPTimeout = 10 * time.Second
)

// Retry budgets and backoff.
const (
	// DefaultThrottleRetryMax is the total attempt budget for throttled requests.
	DefaultThrottleRetryMax = 5

	// DefaultTransientRetryMax is the total attempt budget for network and
	// server failures.
	DefaultTransientRetryMax = 3

	// DefaultRetryWaitMin is the initial wait between retries.
	DefaultRetryWaitMin = 2 * time.Second

	// DefaultRetryWaitMax is the maximum wait between retries, and the cap
	// applied to server-provided Retry-After hints.
	DefaultRetryWaitMax = 30 * time.Second
)

// Scan polling.
const (
	// DefaultScanPollInterval is the interval between scan status checks.
	DefaultScanPollInterval = 20 * time.Second

	// DefaultScanPollTimeout is the maximum time to wait for a scan to finish.
	DefaultScanPollTimeout = 2 * time.Hour
)

// Cache sizes and TTLs.
const (
	// DefaultCacheSize is the default cache size limit.
	DefaultCacheSize = 1000

	// DefaultCacheTTL is the default cache time-to-live.
	DefaultCacheTTL = 5 * time.Minute

	// CacheMinTTL is the minimum cache time-to-live.
	CacheMinTTL = 30 * time.Second

	// MaxCacheValueSize is the maximum size for cached values (1MB).
	MaxCacheValueSize = 1024 * 1024

	// TemplatesCacheTTL is the TTL for scan template lookups.
	TemplatesCacheTTL = 10 * time.Minute

	// PluginsCacheTTL is the TTL for plugin metadata lookups.
	PluginsCacheTTL = 30 * time.Minute

	// ApplicationsCacheTTL is the TTL for application lookups.
	ApplicationsCacheTTL = 10 * time.Minute

	// UsersCacheTTL is the TTL for user directory lookups.
	UsersCacheTTL = 10 * time.Minute
)

// Pagination and display limits.
const (
	// DefaultSearchPageSize is the page size for vulnerability searches.
	DefaultSearchPageSize = 1000

	// StandardPageSize is the common page size for CLI listings.
	StandardPageSize = 50

	// SmallPageSize is used for demonstrations or small lists.
	SmallPageSize = 5

	// MaxSearchPages bounds search pagination against runaway loops.
	MaxSearchPages = 500
)

// HTTP status codes commonly used.
const (
	// HTTPStatusOK represents a successful HTTP response.
	HTTPStatusOK = 200

	// HTTPStatusNoContent represents a successful response with no body.
	HTTPStatusNoContent = 204

	// HTTPStatusBadRequest represents a client error.
	HTTPStatusBadRequest = 400

	// HTTPStatusNotFound represents a missing resource.
	HTTPStatusNotFound = 404

	// HTTPStatusTooManyRequests represents a throttled request.
	HTTPStatusTooManyRequests = 429

	// HTTPStatusInternalServerError represents server errors.
	HTTPStatusInternalServerError = 500
)

// Mathematical and calculation constants.
const (
	// PercentageMultiplier converts decimals to percentages.
	PercentageMultiplier = 100

	// ExponentialBackoffBase is the base for exponential backoff.
	ExponentialBackoffBase = 2

	// JSONIndentSize is the number of spaces for JSON indentation.
	JSONIndentSize = 2
)

// UI and display constants.
const (
	// NotAvailable is used when information is not available.
	NotAvailable = "N/A"

	// MaskedSecret is used to hide sensitive information.
	MaskedSecret = "***"

	// KeySuffixVisible is how many trailing key characters stay visible
	// when a credential is masked for display.
	KeySuffixVisible = 4

	// UUIDLength is the standard UUID length.
	UUIDLength = 36
)

// Scan status constants.
const (
	// ScanStatusCompleted indicates a scan finished normally.
	ScanStatusCompleted = "completed"

	// ScanStatusFailed indicates a scan finished with an error.
	ScanStatusFailed = "failed"

	// ScanStatusCancelled indicates a scan was stopped by a user.
	ScanStatusCancelled = "cancelled"

	// ScanStatusRunning indicates a scan is in progress.
	ScanStatusRunning = "running"

	// ScanStatusQueued indicates a scan is waiting for a scanner slot.
	ScanStatusQueued = "queued"

	// ScanStatusProcessing indicates scan results are being processed.
	ScanStatusProcessing = "processing"
)

// Format constants.
const (
	// FormatJSON for JSON output format.
	FormatJSON = "json"

	// FormatYAML for YAML output format.
	FormatYAML = "yaml"

	// FormatCSV for CSV export format.
	FormatCSV = "csv"
)

// Circuit breaker settings.
const (
	// CircuitBreakerThreshold is the failure threshold for circuit breaker.
	CircuitBreakerThreshold = 5

	// CircuitBreakerSuccessThreshold is the success threshold for circuit breaker.
	CircuitBreakerSuccessThreshold = 2

	// CircuitBreakerTimeout is the timeout for circuit breaker.
	CircuitBreakerTimeout = 30 * time.Second
)

// Boolean string constants.
const (
	// BooleanTrue string representation.
	BooleanTrue = "true"

	// BooleanFalse string representation.
	BooleanFalse = "false"
)

// Command argument counts.
const (
	// TwoArgumentsMax indicates commands allowing up to 2 arguments.
	TwoArgumentsMax = 2

	// KeyValueSplitParts is the number of parts when splitting key=value strings.
	KeyValueSplitParts = 2
)
