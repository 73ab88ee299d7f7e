package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"visionvault/internal/captioner"
	"visionvault/internal/filesystem"
	"visionvault/internal/handlers"
	"visionvault/internal/hidden"
	"visionvault/internal/indexer"
	"visionvault/internal/library"
	"visionvault/internal/logging"
	"visionvault/internal/media"
	"visionvault/internal/memory"
	"visionvault/internal/metrics"
	"visionvault/internal/middleware"
	"visionvault/internal/startup"
	"visionvault/internal/tagstore"
	"visionvault/internal/tagsync"
)

// statsInterval is how often the library gauges are refreshed.
const statsInterval = time.Minute

func main() {
	startTime := time.Now()

	configPath := flag.String("config", "", "path to a YAML or TOML config file")
	flag.Parse()

	// Set GOMEMLIMIT before anything allocates heavily
	memResult := memory.ConfigureFromEnv()

	config, err := startup.LoadConfig(*configPath)
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}
	startup.LogMemoryConfig(memResult)

	filesystem.SetDefaultVolumeResolver(filesystem.NewVolumeResolver(map[string]string{
		"media": config.MediaDir,
	}))
	filesystem.SetObserver(metrics.NewFilesystemObserver())

	// Stores and sync coordinator
	attr := hidden.OS()
	storeOpts := config.TagStoreOptions()
	storeOpts.Attribute = attr

	dirs, err := tagstore.NewDirStore(storeOpts)
	if err != nil {
		startup.LogFatal("Failed to initialize directory stores: %v", err)
	}
	roots, err := tagstore.NewRootStore(config.MediaDir, storeOpts)
	if err != nil {
		startup.LogFatal("Failed to initialize root store: %v", err)
	}
	coord := tagsync.New(roots, dirs, tagsync.Options{Attribute: attr})
	startup.LogStoresInit(roots.Path(), dirs.FileName(), len(coord.Pending()))

	scanner := media.NewScanner(config.MediaDir, dirs, attr)

	// Captioning, throttled by heap usage
	monitor := memory.NewMonitor(memory.DefaultConfig())
	monitor.Start()

	libOpts := library.Options{
		Throttle:       monitor,
		UploadMaxBytes: config.UploadMaxBytes,
	}
	capt := captioner.New(config.CaptionerClientConfig())
	if capt.Enabled() {
		libOpts.Captioner = capt
	}
	startup.LogCaptionerInit(capt.Enabled(), config.Captioner.Endpoint)
	lib := library.New(scanner, coord, libOpts)

	// Indexer
	startup.LogIndexerInit(config.SweepInterval, config.PollInterval, config.SweepOnStart, config.Watch)
	idx := indexer.New(scanner, coord, indexer.Options{
		SweepInterval: config.SweepInterval,
		PollInterval:  config.PollInterval,
		SweepOnStart:  config.SweepOnStart,
		Watch:         config.Watch,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := idx.Start(ctx); err != nil {
		startup.LogFatal("Failed to start indexer: %v", err)
	}
	startup.LogIndexerStarted()

	// Metrics
	var metricsServer *http.Server
	var collector *metrics.Collector
	if config.MetricsEnabled {
		metrics.InitializeMetrics()
		build := startup.GetBuildInfo()
		metrics.SetAppInfo(build.Version, build.Commit, build.GoVersion)

		collector = metrics.NewCollector(lib, statsInterval)
		collector.Start()

		metricsServer = startMetricsServer(config.MetricsPort)
	}

	// Router and middleware
	h := handlers.New(lib, idx, config.UploadMaxBytes)
	router := h.NewRouter()
	if config.MetricsEnabled {
		router.Use(mux.MiddlewareFunc(middleware.Metrics(middleware.DefaultMetricsConfig())))
	}
	startup.LogHTTPRoutes(router, config.LogStaticFiles, config.LogHealthChecks)

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogStaticFiles = config.LogStaticFiles
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	loggedHandler := middleware.Logger(loggingConfig)(router)
	handler := middleware.Compression(middleware.DefaultCompressionConfig())(loggedHandler)

	srv := &http.Server{
		Addr:              ":" + config.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      0,
		IdleTimeout:       60 * time.Second,
	}

	go handleShutdown(srv, metricsServer, idx, collector, monitor, coord, cancel)

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		startup.LogFatal("Server error: %v", err)
	}
	<-ctx.Done()
}

// startMetricsServer serves /metrics on its own port.
func startMetricsServer(port string) *http.Server {
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           metricsMux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Metrics server error: %v", err)
		}
	}()
	return srv
}

func handleShutdown(
	srv, metricsServer *http.Server,
	idx *indexer.Indexer,
	collector *metrics.Collector,
	monitor *memory.Monitor,
	coord *tagsync.Coordinator,
	cancel context.CancelFunc,
) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancelTimeout := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelTimeout()

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	startup.LogShutdownStep("Stopping indexer")
	idx.Stop()
	startup.LogShutdownStepComplete("Indexer stopped")

	if collector != nil {
		collector.Stop()
	}
	monitor.Stop()

	if pending := coord.Pending(); len(pending) > 0 {
		logging.Warn("%d root store updates were not propagated; the next sweep repairs them", len(pending))
	}
	startup.LogShutdownStep("Releasing root store lock")
	if err := coord.Close(); err != nil {
		logging.Warn("Failed to release root store lock: %v", err)
	} else {
		startup.LogShutdownStepComplete("Root store lock released")
	}

	if metricsServer != nil {
		if err := metricsServer.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		}
	}

	startup.LogShutdownComplete()
	cancel()
}
