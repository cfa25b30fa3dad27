// Package wasclient provides the primary entry point for constructing a
// WAS v2 API client that implements the was.Client interface.
//
// It layers configuration, HTTP transport, API key authentication, retries,
// and response caching on top of the resource interfaces and types defined in
// the was package. Most applications should import wasclient to build a
// client, then use the returned was.Client to access resource-specific
// clients, for example Scans(), Applications(), Vulns(), etc.
//
// Quick start
//
//	import (
//	  "context"
//	  "log"
//
//	  "github.com/webscan-io/was/v2/pkg/was"
//	  "github.com/webscan-io/was/v2/pkg/wasclient"
//	)
//
//	func example() {
//	  ctx := context.Background()
//
//	  // With an explicit key pair:
//	  cli, err := wasclient.New(&was.Config{
//	    APIEndpoint: "https://cloud.tenable.com",
//	    AccessKey:   "f0adc...",
//	    SecretKey:   "a81cf...",
//	  })
//	  if err != nil { log.Fatal(err) }
//
//	  // Or from TENABLE_ACCESS_KEY / TENABLE_SECRET_KEY:
//	  cli, err = wasclient.NewFromEnv("https://cloud.tenable.com")
//	  if err != nil { log.Fatal(err) }
//
//	  // Use resource clients via the was.Client interface
//	  scans, err := cli.Scans().List(ctx, was.NewQueryParams().WithLimit(10))
//	  if err != nil { log.Fatal(err) }
//	  _ = scans
//	}
//
// # Retries and rate limits
//
// Requests that fail with 429 or transient server errors are retried with
// exponential backoff, honoring any Retry-After hint the service sends. The
// budgets and backoff window can be tuned via Config; see was.Config for the
// knobs and their defaults.
//
// # Caching
//
// Read responses for slow-moving resources (templates, plugins, users and
// the like) are cached in memory by default. Set Config.Cache to tune the
// backend, TTLs, or disable caching; scan reads always hit the service when
// polling for status.
//
// # Helpers
//
// The package also provides convenience constructors NewWithKeys and
// NewFromEnv that wrap New with the appropriate configuration.
package wasclient
