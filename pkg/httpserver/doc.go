// Package httpserver wraps http.Server with graceful shutdown on SIGINT and
// SIGTERM. The billing handlers are short request/response cycles, so a
// bounded shutdown window is enough to drain in-flight requests.
package httpserver
