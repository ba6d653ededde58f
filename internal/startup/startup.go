package startup

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"tubegate/internal/logging"
	"tubegate/internal/memory"
	"tubegate/internal/remux"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// dotEnvFiles are loaded in order; values already present in the environment,
// including those from an earlier file, win.
var dotEnvFiles = []string{".env.local", ".env"}

const rule = "------------------------------------------------------------"

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo describes one method of a registered route.
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// section starts a titled block of the startup log.
func section(title string) {
	logging.Info("")
	logging.Info(rule)
	logging.Info("%s", title)
	logging.Info(rule)
}

// field logs one aligned "name: value" line.
func field(name string, value interface{}) {
	logging.Info("  %-21s %v", name+":", value)
}

// LoadConfig loads .env files, then builds and validates configuration from
// environment variables.
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()

	section("CONFIGURATION")
	for _, f := range loadDotEnv(dotEnvFiles...) {
		logging.Info("  Loaded environment from %s", f)
	}

	config, err := configFromEnv()
	if err != nil {
		return nil, err
	}

	field("PORT", config.Port)
	field("METRICS_PORT", config.MetricsPort)
	field("METRICS_ENABLED", config.MetricsEnabled)
	field("APP_ENV", config.Environment)
	field("ADMIN_PASSWORD", config.secretState())
	field("YOUTUBE_COOKIES", setString(config.CookiesInline != ""))
	field("COOKIES_FILE", config.CookiesFile)
	field("FFMPEG_PATH", config.FFmpegPath)
	field("REMUX_INPUT_MODE", config.RemuxInputMode)
	field("MAX_REMUX_JOBS", jobsString(config.MaxRemuxJobs))
	field("UPSTREAM_TIMEOUT", config.UpstreamTimeout)
	field("STREAM_WRITE_TIMEOUT", config.StreamWriteTimeout)
	field("STREAM_IDLE_TIMEOUT", config.StreamIdleTimeout)
	field("LOG_STATIC_FILES", config.LogStaticFiles)
	field("LOG_HEALTH_CHECKS", config.LogHealthChecks)
	field("LOG_LEVEL", logging.GetLevel())

	if config.AdminPasswordHash == "" && config.AdminPassword == DefaultAdminPassword {
		logging.Warn("  Using the default admin password; set ADMIN_PASSWORD or ADMIN_PASSWORD_HASH")
	}

	return config, nil
}

// loadDotEnv loads each file that exists and returns the ones loaded.
// godotenv never overrides variables that are already set.
func loadDotEnv(files ...string) []string {
	var loaded []string
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				logging.Warn("  Cannot read %s: %v", f, err)
			}
			continue
		}
		if err := godotenv.Load(f); err != nil {
			logging.Warn("  Failed to load %s: %v", f, err)
			continue
		}
		loaded = append(loaded, f)
	}
	return loaded
}

func setString(set bool) string {
	if set {
		return "set"
	}
	return "not set"
}

func jobsString(n int) string {
	if n <= 0 {
		return "auto"
	}
	return strconv.Itoa(n)
}

func onOff(on bool, envKey string) string {
	if on {
		return "ON"
	}
	return "OFF (set " + envKey + "=true to enable)"
}

// LogRemuxerInit checks that ffmpeg is runnable and records the result on
// the config. A missing ffmpeg only disables the remux branch.
func LogRemuxerInit(config *Config) {
	section("REMUXER INITIALIZATION")

	version, err := checkFFmpeg(config.FFmpegPath)
	config.FFmpegAvailable = err == nil
	if err != nil {
		logging.Warn("  FFmpeg check failed: %v", err)
		logging.Warn("  Video-only downloads (hasAudio=false) will fail")
	} else {
		logging.Info("  [OK] %s", version)
	}

	field("Input mode", config.RemuxInputMode)
	field("Concurrent jobs", config.MaxRemuxJobs)
	if config.FFmpegAvailable {
		field("Remuxing", "ENABLED")
	} else {
		field("Remuxing", "DISABLED")
	}
}

// LogMemoryConfig logs the Go memory limit chosen by memory.ConfigureFromEnv.
func LogMemoryConfig(result memory.ConfigResult) {
	section("MEMORY CONFIGURATION")

	if !result.Configured {
		field("GOMEMLIMIT", "not configured")
		logging.Info("  (set MEMORY_LIMIT or GOMEMLIMIT to bound the Go heap)")
		return
	}

	field("Source", result.Source)
	field("GOMEMLIMIT", humanize.IBytes(uint64(result.GoMemLimit)))
	if result.ContainerLimit > 0 {
		field("Container limit", humanize.IBytes(uint64(result.ContainerLimit)))
		field("Heap ratio", fmt.Sprintf("%.0f%%", result.Ratio*100))
		field("ffmpeg headroom", humanize.IBytes(uint64(result.Headroom())))
	}
}

// GetRoutes lists every method of every route registered on router, in
// registration order. Routes without a method matcher are reported as "*".
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		path, err := route.GetPathTemplate()
		if err != nil {
			return err
		}

		methods, err := route.GetMethods()
		if err != nil {
			methods = []string{"*"}
		}

		for _, method := range methods {
			routes = append(routes, RouteInfo{Method: method, Path: path, Name: route.GetName()})
		}
		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs the access log settings and, at debug level, the routes
// grouped by their first path segment.
func LogHTTPRoutes(router *mux.Router, logStaticFiles, logHealthChecks bool) {
	section("HTTP SERVER SETUP")

	if logging.IsDebugEnabled() {
		logRouteTable(router)
	}

	logging.Info("  HTTP logging enabled")
	logging.Info("    Static file logging: %s", onOff(logStaticFiles, "LOG_STATIC_FILES"))
	logging.Info("    Health check logging: %s", onOff(logHealthChecks, "LOG_HEALTH_CHECKS"))
}

func logRouteTable(router *mux.Router) {
	routes, err := GetRoutes(router)
	if err != nil {
		logging.Warn("error walking routes: %v", err)
	}
	logging.Debug("  Registered routes (%d total):", len(routes))

	groups := make(map[string][]RouteInfo)
	for _, route := range routes {
		group := getRouteGroup(route.Path)
		groups[group] = append(groups[group], route)
	}

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		label := name
		if label == "" {
			label = "root"
		}
		logging.Debug("  [%s]", label)
		for _, route := range groups[name] {
			logging.Debug("    %-6s %s", route.Method, route.Path)
		}
	}
}

// getRouteGroup names the log group of a route path.
func getRouteGroup(path string) string {
	first, _, _ := strings.Cut(strings.TrimPrefix(path, "/"), "/")

	switch first {
	case "healthz", "livez", "readyz", "version":
		return "ops"
	}
	return first
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	StartupDuration time.Duration
}

// LogServerStarted logs the listening endpoints.
func LogServerStarted(config ServerConfig) {
	section("SERVER STARTED")
	field("Startup time", config.StartupDuration)
	field("Application", "http://0.0.0.0:"+config.Port)
	if config.MetricsEnabled {
		field("Metrics", "http://0.0.0.0:"+config.MetricsPort+"/metrics")
	} else {
		field("Metrics", "DISABLED")
	}
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info(rule)
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	section("SHUTDOWN INITIATED (received " + signal + ")")
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

func printBanner() {
	fmt.Println(`
` + rule + `
  _         _
 | |_ _  _ | |__  ___  __ _  __ _ | |_  ___
 |  _| || || '_ \/ -_)/ _' |/ _' ||  _|/ -_)
  \__|\_,_||_.__/\___|\__, |\__,_| \__|\___|
                      |___/
` + rule)
	field("Version", Version)
	field("Commit", Commit)
	field("Build Time", BuildTime)
	field("Started", time.Now().Format(time.RFC1123))
}

func logSystemInfo() {
	section("SYSTEM INFORMATION")
	field("Go version", runtime.Version())
	field("OS/Arch", runtime.GOOS+"/"+runtime.GOARCH)
	field("CPUs available", runtime.NumCPU())
	field("GOMAXPROCS", runtime.GOMAXPROCS(0))

	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		logging.Info("  (Container CPU limit detected)")
	}

	if !logging.IsDebugEnabled() {
		return
	}
	if wd, err := os.Getwd(); err == nil {
		logging.Debug("  Working dir: %s", wd)
	}
	if hostname, err := os.Hostname(); err == nil {
		logging.Debug("  Hostname:    %s", hostname)
	}
}

// checkFFmpeg resolves path and returns the first line of `ffmpeg -version`.
func checkFFmpeg(path string) (string, error) {
	resolved, err := remux.CheckAvailable(path)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	output, err := exec.CommandContext(ctx, resolved, "-version").Output()
	if err != nil {
		return "", fmt.Errorf("failed to get ffmpeg version from %s: %w", resolved, err)
	}

	first, _, _ := strings.Cut(string(output), "\n")
	if first = strings.TrimSpace(first); first == "" {
		first = "ffmpeg at " + resolved
	}
	return first, nil
}
