// Package startup reads tubegate's configuration and writes the sectioned
// startup and shutdown log.
//
// # Configuration
//
// [LoadConfig] first loads .env.local and .env from the working directory when
// present (variables already set in the environment win), then reads:
//
//   - PORT: HTTP server port (default: 3000)
//   - METRICS_PORT: Prometheus metrics server port (default: 9090)
//   - METRICS_ENABLED: Enable or disable the metrics server (default: true)
//   - ADMIN_PASSWORD: Shared access secret (default: admin)
//   - ADMIN_PASSWORD_HASH: bcrypt hash of the secret; overrides ADMIN_PASSWORD
//   - APP_ENV: "production" marks the session cookie Secure
//   - YOUTUBE_COOKIES: Inline JSON cookie export for the upstream client
//   - COOKIES_FILE: Cookie file read when YOUTUBE_COOKIES is unset (default: cookies.json)
//   - FFMPEG_PATH: ffmpeg binary (default: ffmpeg on PATH)
//   - REMUX_INPUT_MODE: url or pipe (default: url)
//   - MAX_REMUX_JOBS: Concurrent ffmpeg processes (default: one per CPU, fewer when memory headroom is small)
//   - UPSTREAM_TIMEOUT: Metadata fetch timeout (default: 30s)
//   - STREAM_WRITE_TIMEOUT: Per-write timeout while streaming (default: 30s)
//   - STREAM_IDLE_TIMEOUT: Maximum gap between writes (default: 60s)
//   - LOG_LEVEL, LOG_FORMAT: Logging level and console/json output
//   - LOG_STATIC_FILES: Log static file requests (default: false)
//   - LOG_HEALTH_CHECKS: Log health check requests (default: true)
//
// Invalid durations, integers and booleans fall back to their defaults with a
// warning. An unknown REMUX_INPUT_MODE or a malformed ADMIN_PASSWORD_HASH is
// an error.
//
// # Version
//
// Version, Commit and BuildTime are set with -ldflags "-X" at build time;
// [GetBuildInfo] reports them with the Go version and platform for /version.
//
// # Log sections
//
// main calls the section loggers in order: [LoadConfig] prints the banner and
// configuration, then [LogMemoryConfig], [LogRemuxerInit], [LogHTTPRoutes]
// and [LogServerStarted]. On a signal, [LogShutdownInitiated] opens the
// shutdown section and each step reports through [LogShutdownStep] and
// [LogShutdownStepComplete].
package startup
