// Package http provides the HTTP REST API implementation.
//
// The HTTP server exposes endpoints for:
//   - Task execution and routing
//   - Worker registration and listing
//   - Channel history and statistics
//   - Health checks
//   - Prometheus metrics
package http
