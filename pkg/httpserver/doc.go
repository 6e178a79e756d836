// Package httpserver wraps net/http's Server with environment-driven
// configuration, graceful shutdown on context cancellation or OS signals,
// and probe handlers for container orchestration.
package httpserver
