package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"faturamento/internal/amqp"
	"faturamento/internal/cache"
	"faturamento/internal/cli"
	"faturamento/internal/config"
	"faturamento/internal/core"
	"faturamento/internal/log"
	"faturamento/internal/services"
	"faturamento/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(nil)
	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).ValidateWorker)
	logger = cli.SetupLogger(cfg).WithComponent(log.ComponentWorker)

	logger.Info("Starting report-worker")

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, cfg.AMQPResultQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

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
	defer caches.Stop()

	reports := services.NewReportService(defaults, reportCache, logger)
	// Workers only build reports; they never queue jobs of their own.
	uploads := services.NewUploadService(repo, nil, reports, reportCache, logger)
	reportWorker := worker.NewReportWorker(uploads, client, logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return client.ConsumeReportRequests(gctx, reportWorker.HandleReportRequest)
	})
	g.Go(func() error {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if err := client.Ping(); err != nil {
					logger.Warn("AMQP health check failed", log.FieldError, err)
				}
			}
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldError, err)
		os.Exit(1)
	}
	<-done
	logger.Info("Worker stopped gracefully")
}
