// Package api implements the HTTP REST API and WebSocket server for the
// distance daemon.
//
// This package provides:
//   - REST endpoints for sensor configuration and measurement
//   - WebSocket hub for real-time reading broadcasts
//   - Middleware stack (request ID, logging, recovery, CORS)
//
// # Architecture
//
// The API server is a thin shell over the sensor registry. Measurement
// requests block for up to the sensor's timeout; the registry serialises
// concurrent requests per sensor and the API maps its sentinel errors to
// HTTP status codes.
//
// # Wire Format
//
// Measurement responses are plain text: the echo pulse width in
// microseconds followed by a newline, matching the configuration-channel
// convention used on the MQTT side. Everything else is JSON.
//
// # Graceful Degradation
//
// The server has no hard dependency on MQTT; it serves reads and
// WebSocket connections standalone.
package api
