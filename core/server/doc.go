// Package server holds the HTTP server configuration.
//
// The start command serves the sync trigger, host listing, integrity checks,
// Swagger documentation and Prometheus metrics from a single Fiber app.
// This package only defines the settings: listen port, API key, and whether
// the metrics endpoint is exposed.
package server
