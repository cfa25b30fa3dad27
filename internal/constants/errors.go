package constants

import "errors"

// Configuration errors.
var (
	ErrNoCredentialsConfigured = errors.New("no API keys configured, use 'wasctl config set-keys' or set TENABLE_ACCESS_KEY and TENABLE_SECRET_KEY")
	ErrConfigFileNotFound      = errors.New("configuration file not found")
	ErrInvalidProxyURL         = errors.New("proxy URL must start with http:// or https://")
)

// Required field errors.
var (
	ErrScanIDRequired          = errors.New("scan ID is required")
	ErrApplicationIDRequired   = errors.New("application ID is required")
	ErrVulnIDRequired          = errors.New("vulnerability ID is required")
	ErrPluginIDRequired        = errors.New("plugin ID is required")
	ErrTemplateIDRequired      = errors.New("template ID is required")
	ErrConfigurationIDRequired = errors.New("configuration ID is required")
	ErrUserIDRequired          = errors.New("user ID is required")
	ErrOwnerIDRequired         = errors.New("owner ID is required")
)

// Operation errors.
var (
	ErrResourceNotFound    = errors.New("resource not found")
	ErrClientNotWASClient  = errors.New("client is not a was.Client")
	ErrMalformedListResult = errors.New("malformed list payload")
	ErrScanTimedOut        = errors.New("timed out waiting for scan to finish")
)
