// Package transport exposes the authoritative context over HTTP and provides
// the matching client.
//
// The server wraps a coordinator.LocalAuthority behind gin. Requests under
// /v1 are checked against the embedded OpenAPI document and rate limited per
// client address; /metrics serves Prometheus counters and /healthz a liveness
// probe. Client implements coordinator.Authority, so a presentation-side
// Coordinator can defer tax-sensitive formulas to a remote server.
package transport
