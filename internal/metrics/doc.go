// Package metrics exports Prometheus metrics for the relay and serves the
// ops HTTP router.
//
// Metrics live on their own registry so tests can build as many as they
// like. Metrics satisfies both telegram.Observer and
// conversation.Observer.
//
// The router serves:
//
//	GET  /health   liveness heartbeat
//	GET  /metrics  Prometheus exposition
//	     /mcp      MCP over streamable HTTP, when enabled
package metrics
