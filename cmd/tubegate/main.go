package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"tubegate/internal/credentials"
	"tubegate/internal/downloader"
	"tubegate/internal/extractor"
	"tubegate/internal/handlers"
	"tubegate/internal/logging"
	"tubegate/internal/memory"
	"tubegate/internal/metrics"
	"tubegate/internal/middleware"
	"tubegate/internal/remux"
	"tubegate/internal/startup"
	"tubegate/internal/streaming"
	"tubegate/internal/thumbnail"
	"tubegate/internal/web"
)

const (
	shutdownTimeout         = 30 * time.Second
	thumbnailClientTimeout  = 15 * time.Second
	serverReadHeaderTimeout = 10 * time.Second
)

func main() {
	startTime := time.Now()

	// Must run before significant allocations
	memResult := memory.ConfigureFromEnv()

	// Load configuration
	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}
	startup.LogMemoryConfig(memResult)
	config.ResolveRemuxJobs(memResult)

	passwordHash, err := config.PasswordHash()
	if err != nil {
		startup.LogFatal("Failed to prepare admin password: %v", err)
	}

	metrics.InitializeMetrics()
	metrics.SetAppInfo(startup.Version, startup.Commit, startup.GoVersion)

	// Initialize remuxer
	startup.LogRemuxerInit(config)
	remuxer := remux.New(remux.Config{
		FFmpegPath: config.FFmpegPath,
		InputMode:  config.RemuxInputMode,
		Headers:    extractor.FFmpegHeaders(),
		MaxJobs:    config.MaxRemuxJobs,
	})

	service := downloader.New(downloader.Options{
		Credentials: credentials.NewLoader(config.CookiesInline, config.CookiesFile),
		Clients: extractor.NewFactory(extractor.Options{
			ResponseHeaderTimeout: config.UpstreamTimeout,
		}),
		Remuxer:         remuxer,
		UpstreamTimeout: config.UpstreamTimeout,
	})

	streamConfig := streaming.DefaultTimeoutWriterConfig()
	streamConfig.WriteTimeout = config.StreamWriteTimeout
	streamConfig.IdleTimeout = config.StreamIdleTimeout

	h := handlers.New(handlers.Options{
		Service: service,
		Remuxer: remuxer,
		Thumbnails: thumbnail.New(thumbnail.Options{
			Client: &http.Client{Timeout: thumbnailClientTimeout},
		}),
		PasswordHash:    passwordHash,
		SecureCookies:   config.Production,
		Stream:          streamConfig,
		FFmpegAvailable: config.FFmpegAvailable,
	})

	metrics.RegisterRemux(remuxer)

	// Setup router
	router := setupRouter(h)

	// Log routes dynamically
	startup.LogHTTPRoutes(router, config.LogStaticFiles, config.LogHealthChecks)

	srv := &http.Server{
		Addr:              ":" + config.Port,
		Handler:           buildHandler(router, config),
		ReadHeaderTimeout: serverReadHeaderTimeout,
		ReadTimeout:       15 * time.Second,
		// Downloads run for as long as the stream; the timeout writer bounds
		// each write instead.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsSrv = startMetricsServer(config.MetricsPort, h)
	}

	done := make(chan struct{})
	go handleShutdown(done, srv, metricsSrv, h, remuxer)

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})

	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		startup.LogFatal("Server error: %v", err)
	}
	<-done
}

func setupRouter(h *handlers.Handlers) *mux.Router {
	r := mux.NewRouter()

	// Health check and version routes (no auth required)
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET", "HEAD")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	// Session
	r.HandleFunc("/auth", h.Login).Methods("POST")
	r.HandleFunc("/logout", h.Logout).Methods("POST")

	// Video API
	r.HandleFunc("/info", h.GetInfo).Methods("POST")
	r.HandleFunc("/download", h.Download).Methods("GET")
	r.HandleFunc("/thumbnail", h.GetThumbnail).Methods("GET")

	// Pages and static assets
	r.HandleFunc("/", web.IndexHandler()).Methods("GET", "HEAD")
	r.HandleFunc("/login", web.LoginHandler()).Methods("GET", "HEAD")
	r.PathPrefix("/static/").Handler(web.StaticHandler())

	return r
}

// buildHandler wraps the router in the middleware chain. The session gate sits
// innermost so rejected requests are still logged and counted.
func buildHandler(router http.Handler, config *startup.Config) http.Handler {
	gated := handlers.SessionGate(router)

	compressed := middleware.Compression(middleware.DefaultCompressionConfig())(gated)
	measured := middleware.Metrics(middleware.DefaultMetricsConfig())(compressed)

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogStaticFiles = config.LogStaticFiles
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	logged := middleware.Logger(loggingConfig)(measured)

	return middleware.RequestID()(logged)
}

func startMetricsServer(port string, h *handlers.Handlers) *http.Server {
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", h.MetricsHandler())
	metricsMux.HandleFunc("/healthz", h.LivenessCheck)

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           metricsMux,
		ReadHeaderTimeout: serverReadHeaderTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Metrics server error: %v", err)
		}
	}()
	return srv
}

func handleShutdown(done chan<- struct{}, srv, metricsSrv *http.Server, h *handlers.Handlers, remuxer *remux.Remuxer) {
	defer close(done)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	h.SetReady(false)

	// In-flight remuxes would otherwise hold Shutdown open until the timeout.
	startup.LogShutdownStep("Stopping remux processes")
	remuxer.Cleanup()
	startup.LogShutdownStepComplete("Remux processes stopped")

	if metricsSrv != nil {
		startup.LogShutdownStep("Shutting down metrics server")
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
	}

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	startup.LogShutdownComplete()
}
