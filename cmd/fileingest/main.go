// Package main implements the entry point for the file ingestion service.
// It wires the source fetcher, mapping registry, record store, reporter, and
// pipeline orchestrator behind the HTTP surface.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/c360/fileingest/config"
	"github.com/c360/fileingest/errors"
	"github.com/c360/fileingest/mapping"
	"github.com/c360/fileingest/metric"
	"github.com/c360/fileingest/natsclient"
	"github.com/c360/fileingest/pipeline"
	"github.com/c360/fileingest/report"
	"github.com/c360/fileingest/service"
	"github.com/c360/fileingest/source"
	"github.com/c360/fileingest/store"
)

// Build information constants
const (
	Version = "0.1.0"
	appName = "fileingest"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cliCfg := parseFlags()

	if cliCfg.ShowVersion {
		fmt.Printf("%s %s\n", appName, Version)
		return nil
	}

	cfg, err := config.Load(cliCfg.ConfigPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	// CLI flags override file and environment
	if cliCfg.LogLevel != "" {
		cfg.Log.Level = cliCfg.LogLevel
	}
	if cliCfg.LogFormat != "" {
		cfg.Log.Format = cliCfg.LogFormat
	}

	if cliCfg.Validate {
		fmt.Println("configuration is valid")
		return nil
	}

	logger := setupLogger(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := metric.NewRegistry()

	fetcher, err := buildFetcher(cfg)
	if err != nil {
		return err
	}

	writer, err := store.NewSQLWriter(cfg.Storage.DSN, logger)
	if err != nil {
		return fmt.Errorf("open record store: %w", err)
	}
	defer func() {
		_ = writer.Close()
	}()

	registry, reporter, natsCleanup, err := buildMessaging(ctx, cfg, logger, metrics.CoreMetrics())
	if err != nil {
		return err
	}
	defer natsCleanup()

	orchestrator, err := pipeline.NewOrchestrator(pipeline.Deps{
		Fetcher:  fetcher,
		Registry: registry,
		Writer:   writer,
		Reporter: reporter,
		Logger:   logger,
		Metrics:  metrics.CoreMetrics(),
	}, cfg.Pipeline.StageTimeout.Std())
	if err != nil {
		return fmt.Errorf("create orchestrator: %w", err)
	}

	server, err := service.NewServer(cfg.HTTP.Addr, registry, orchestrator, metrics.Handler(), logger)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("start server: %w", err)
	}

	logger.Info("Service started",
		"addr", cfg.HTTP.Addr,
		"source_mode", cfg.Source.Mode,
		"nats_enabled", cfg.NATS.Enabled)

	<-ctx.Done()
	logger.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout.Std())
	defer cancel()

	if err := server.Stop(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", "error", err)
	}

	logger.Info("Service stopped")
	return nil
}

// buildFetcher selects the source fetcher for the configured mode
func buildFetcher(cfg *config.Config) (source.Fetcher, error) {
	switch cfg.Source.Mode {
	case config.SourceModeObject:
		fetcher, err := source.NewObjectFetcher(cfg.Source.ObjectStore)
		if err != nil {
			return nil, fmt.Errorf("create object fetcher: %w", err)
		}
		return fetcher, nil
	case config.SourceModeFile:
		return source.NewFileFetcher(cfg.Source.BaseDir), nil
	case config.SourceModeMemory:
		return source.NewMemoryFetcher(), nil
	default:
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "main", "buildFetcher",
			"unsupported source mode "+cfg.Source.Mode)
	}
}

// buildMessaging wires the mapping registry and reporter. With NATS enabled
// the registry lives in a JetStream KV bucket and reports are published;
// otherwise both degrade to in-process implementations.
func buildMessaging(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	metrics *metric.Metrics,
) (mapping.Registry, report.Reporter, func(), error) {
	if !cfg.NATS.Enabled {
		return mapping.NewMemoryRegistry(logger), report.NewLogReporter(logger), func() {}, nil
	}

	opts := []natsclient.ClientOption{
		natsclient.WithLogger(logger),
		natsclient.WithName(appName),
	}
	if cfg.NATS.Username != "" {
		opts = append(opts, natsclient.WithCredentials(cfg.NATS.Username, cfg.NATS.Password))
	}
	if cfg.NATS.Token != "" {
		opts = append(opts, natsclient.WithToken(cfg.NATS.Token))
	}

	client, err := natsclient.NewClient(cfg.NATS.URL, opts...)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create NATS client: %w", err)
	}

	if err := client.Connect(ctx); err != nil {
		return nil, nil, nil, fmt.Errorf("connect to NATS: %w", err)
	}
	metrics.RecordNATSHealth(true)

	cleanup := func() {
		metrics.RecordNATSHealth(false)
		if err := client.Close(context.Background()); err != nil {
			logger.Error("NATS close failed", "error", err)
		}
	}

	bucket, err := client.EnsureBucket(ctx, cfg.NATS.MappingBucket)
	if err != nil {
		cleanup()
		return nil, nil, nil, fmt.Errorf("ensure mapping bucket: %w", err)
	}

	registry := mapping.NewKVRegistry(client.KVStore(bucket), logger)
	reporter := report.NewNATSReporter(client, cfg.NATS.Report, logger)

	return registry, reporter, cleanup, nil
}
