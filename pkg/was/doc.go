// Package was provides types, interfaces, and helpers for working with the
// Tenable Web Application Scanning v2 API.
//
// # Overview
//
// The was package defines the domain types (e.g., Scan, Finding, Vulnerability,
// Application, Plugin) and the interfaces for resource-oriented clients (e.g.,
// ScansClient, VulnsClient). A concrete implementation of these clients is
// provided by the wasclient package, which wires configuration, transport,
// authentication, retry, and caching. Most consumers should import wasclient
// to construct a client and then interact with the resource client interfaces
// exposed here.
//
// Getting a client
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
//	  cli, err := wasclient.NewWithKeys("https://cloud.tenable.com", "access-key", "secret-key")
//	  if err != nil { log.Fatal(err) }
//
//	  scans, err := cli.Scans().List(ctx, nil)
//	  if err != nil { log.Fatal(err) }
//	  _ = scans
//	}
//
// # Errors
//
// API failures are represented by APIError, which carries an ErrorKind
// classifying the failure (throttled, connectivity, server fault, client
// request, not found, response parse, proxy). Helpers such as IsThrottled,
// IsNotFound, and IsResponseParse make it easy to branch on common cases.
// Input problems detected before any network call are reported as
// ValidationError.
//
// # Retry
//
// Retry behavior is modeled as an explicit state machine: NextRetryState is a
// pure transition function over RetryState and AttemptOutcome, so the entire
// backoff schedule can be exercised in tests without timers or sockets. The
// transport in internal/http drives the machine against live responses.
//
// # Caching and bulk operations
//
// The package includes a pluggable Cache abstraction with in-memory and NATS
// JetStream KV backends, a CacheManager handling key derivation, statistics,
// and deduplicated GetOrCompute, and a sequential bulk driver (RunBulk) that
// reports an explicit per-item outcome for every input identifier.
package was
