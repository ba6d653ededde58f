// Package handlers provides the HTTP handlers for tubegate.
//
// It includes handlers for:
//   - Video info resolution (POST /info)
//   - Downloads, direct passthrough or ffmpeg remux (GET /download)
//   - The shared-secret session gate (POST /auth, POST /logout, SessionGate)
//   - Thumbnail proxying (GET /thumbnail)
//   - Health checks, version and Prometheus metrics
package handlers
