// Package timeouts defines shared HTTP timeout constants.
package timeouts

import "time"

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Read caps the time allowed to read a full request, body included.
const Read = 15 * time.Second

// Write caps the time allowed to produce a response.
const Write = 15 * time.Second

// Idle bounds keep-alive connections between requests.
const Idle = 60 * time.Second

// Shutdown limits how long an HTTP server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second
