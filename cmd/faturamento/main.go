package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"faturamento/internal/backend"
	"faturamento/internal/cache"
	"faturamento/internal/cli"
	"faturamento/internal/core"
	apphttp "faturamento/internal/http"
	"faturamento/internal/log"
	"faturamento/internal/services"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(nil)
	cfg := cli.LoadAndValidateConfig(logger, nil)
	logger = cli.SetupLogger(cfg)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	policy, err := cfg.Policy()
	if err != nil {
		logger.Error("Invalid malformed row policy", log.FieldError, err)
		os.Exit(1)
	}
	defaults := services.ReportDefaults{Columns: cfg.Columns, Policy: policy}

	reportCache := cache.NewLRUCache[core.Report](cfg.ReportCacheSize, cfg.ReportCacheTTL)
	caches := cache.NewManager(logger)
	caches.Register(reportCache)
	caches.StartCleanup(cfg.CacheCleanupInterval)

	reports := services.NewReportService(defaults, reportCache, logger, res.Sources...)

	var uploads *services.UploadService
	if res.Store != nil {
		var publisher services.JobPublisher
		if res.Publisher != nil {
			publisher = res.Publisher
		}
		uploads = services.NewUploadService(res.Store, publisher, reports, reportCache, logger)
	}

	ready := make([]apphttp.ReadinessCheck, 0, len(res.Ready))
	for _, check := range res.Ready {
		ready = append(ready, apphttp.ReadinessCheck(check))
	}

	srv := apphttp.NewServer(apphttp.Config{
		Addr:               ":" + cfg.Port,
		MaxUploadBytes:     cfg.MaxUploadBytes,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		RequestTimeout:     cfg.RequestTimeout,
	}, reports, uploads, logger, ready...)

	// Configure server timeouts and limits
	srv.ReadTimeout = cfg.RequestTimeout + 10*time.Second
	srv.WriteTimeout = cfg.RequestTimeout + 10*time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	_, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		caches.Stop()
		if res.Cleanup != nil {
			if err := res.Cleanup(); err != nil {
				logger.Error("Backend cleanup error", log.FieldError, err)
			}
		}
	})

	logger.Info("Starting faturamento server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-done
	logger.Info("Server stopped gracefully")
}
