// Package main provides the entry point for tubegate.
//
// tubegate is a small, password-gated web front-end for downloading videos.
// A user pastes a video URL, picks a format from the resolved catalog and
// downloads it. Formats that already carry audio are streamed straight from
// the platform; video-only formats are merged with the best audio track by an
// ffmpeg subprocess and streamed as fragmented MP4.
//
// # Application Lifecycle
//
//  1. Memory Configuration: Sets GOMEMLIMIT from MEMORY_LIMIT when present
//  2. Configuration Loading: Reads .env files and environment variables
//  3. Component Initialization:
//     - Remuxer: Checks ffmpeg and sizes the concurrent job limit
//     - Downloader: Credential loader, upstream client factory, remuxer
//     - Thumbnail proxy: Resizes platform thumbnails to JPEG
//     - Remux Collector: Exports active remux jobs at scrape time
//  4. HTTP Server Setup: Routes, middleware chain, optional metrics server
//  5. Graceful Shutdown: Handles SIGINT/SIGTERM, kills running ffmpeg
//     processes and drains connections
//
// # HTTP Server
//
// The main server (default port 3000) serves:
//
//   - GET  /, /login          Embedded UI pages
//   - POST /info              Resolve a video URL into its format catalog
//   - GET  /download          Stream a format as an attachment
//   - GET  /thumbnail         Proxy a resized platform thumbnail
//   - POST /auth, /logout     Shared-secret session cookie
//   - GET  /healthz, /livez, /readyz, /version
//
// Every path except the login flow, static assets and health endpoints
// requires the auth cookie; anonymous requests are redirected to /login.
//
// The metrics server (default port 9090) serves /metrics when
// METRICS_ENABLED is true.
//
// # Environment Variables
//
//   - PORT: Main HTTP server port (default: 3000)
//   - METRICS_PORT, METRICS_ENABLED: Metrics server (default: 9090, true)
//   - ADMIN_PASSWORD: Shared secret (default: admin)
//   - ADMIN_PASSWORD_HASH: bcrypt hash of the secret, see cmd/hashpw
//   - APP_ENV: "production" marks the auth cookie Secure
//   - YOUTUBE_COOKIES: Inline JSON cookie array for the upstream client
//   - COOKIES_FILE: Cookie file, JSON or Netscape .txt (default: cookies.json)
//   - FFMPEG_PATH, REMUX_INPUT_MODE, MAX_REMUX_JOBS: Remuxer settings
//   - UPSTREAM_TIMEOUT, STREAM_WRITE_TIMEOUT, STREAM_IDLE_TIMEOUT
//   - MEMORY_LIMIT, MEMORY_RATIO, GOMEMLIMIT: Go heap limit
//   - LOG_LEVEL, LOG_FORMAT, LOG_STATIC_FILES, LOG_HEALTH_CHECKS
//
// # Related Packages
//
//   - [tubegate/internal/downloader]: Info resolution and download plans
//   - [tubegate/internal/handlers]: HTTP handlers and the session gate
//   - [tubegate/internal/remux]: ffmpeg subprocess management
//   - [tubegate/internal/startup]: Configuration and startup logging
package main
