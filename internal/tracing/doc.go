// Package tracing configures OpenTelemetry for the gateway and provides
// span helpers used by the RPC handlers and the agent router.
package tracing
