// Package server hosts the Fiber HTTP service and the thin handlers that
// expose the version cache: /health, /version and /check. It wires the
// request-ID/logging middleware chain, owns the shared upstream http.Client,
// and accepts the cache through a narrow interface so tests can inject fakes.
package server
