// Package middleware provides HTTP middleware for the tubegate server.
//
// It includes:
//   - Request ids propagated through the request context
//   - Request logging in W3C Extended Log Format
//   - Prometheus request metrics
//   - Response compression (gzip) for text responses
//
// Every wrapping ResponseWriter implements Unwrap so handlers can set write
// deadlines and flush through http.ResponseController.
package middleware
