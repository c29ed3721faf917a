// Package main wires together the placescout service binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	gcsclient "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/placescout/placescout/internal/api"
	"github.com/placescout/placescout/internal/clock/system"
	"github.com/placescout/placescout/internal/collector"
	"github.com/placescout/placescout/internal/config"
	"github.com/placescout/placescout/internal/enricher"
	"github.com/placescout/placescout/internal/extractor"
	"github.com/placescout/placescout/internal/id/uuid"
	"github.com/placescout/placescout/internal/logging"
	"github.com/placescout/placescout/internal/metrics"
	"github.com/placescout/placescout/internal/orchestrator"
	memorypublisher "github.com/placescout/placescout/internal/publisher/memory"
	pubsubpublisher "github.com/placescout/placescout/internal/publisher/pubsub"
	"github.com/placescout/placescout/internal/scout"
	"github.com/placescout/placescout/internal/session"
	memorystore "github.com/placescout/placescout/internal/store/memory"
	postgresstore "github.com/placescout/placescout/internal/store/postgres"
	"github.com/placescout/placescout/internal/storage/gcs"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)
	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := session.NewPool(session.Config{
		Capacity:       cfg.Pool.Capacity,
		AcquireTimeout: cfg.AcquireTimeout(),
		UserAgent:      cfg.Pool.UserAgent,
		Headless:       cfg.Pool.Headless,
	}, logger.Named("session"))
	if err != nil {
		logger.Fatal("session pool init failed", zap.Error(err))
	}
	defer pool.Close()

	coll := collector.New(collector.Config{
		BaseURL:        cfg.Search.BaseURL,
		MaxAttempts:    cfg.Search.MaxAttempts,
		SettleDelay:    time.Duration(cfg.Search.SettleDelayMs) * time.Millisecond,
		NavTimeout:     time.Duration(cfg.Search.NavTimeoutSec) * time.Second,
		FeedSelector:   cfg.Search.FeedSelector,
		ResultSelector: cfg.Search.ResultSelector,
	}, logger.Named("collector"))

	ext := extractor.New(extractor.Config{
		NavTimeout:  time.Duration(cfg.Extract.NavTimeoutSec) * time.Second,
		SettleDelay: time.Duration(cfg.Extract.SettleDelayMs) * time.Millisecond,
		DetailLevel: extractor.ParseDetailLevel(cfg.Extract.DetailLevel),
	}, logger.Named("extractor"))

	var enr orchestrator.Enricher
	if !cfg.Enrich.DisableEnrich {
		userAgent := cfg.Enrich.UserAgent
		if userAgent == "" {
			userAgent = cfg.Pool.UserAgent
		}
		enr = enricher.New(enricher.Config{
			Timeout:             time.Duration(cfg.Enrich.TimeoutSec) * time.Second,
			MaxEmails:           cfg.Enrich.MaxEmails,
			DeniedDomains:       cfg.Enrich.DeniedDomains,
			PerHostRPS:          cfg.Enrich.PerHostRPS,
			UserAgent:           userAgent,
			MaxStructuredBlocks: cfg.Enrich.MaxStructBlobs,
		}, logger.Named("enricher"))
	}

	runStore, closeStore, err := buildRunStore(ctx, cfg)
	if err != nil {
		logger.Fatal("run store init failed", zap.Error(err))
	}
	defer closeStore()

	publisher, err := buildPublisher(ctx, cfg)
	if err != nil {
		logger.Fatal("publisher init failed", zap.Error(err))
	}

	archive, err := buildArchive(ctx, cfg)
	if err != nil {
		logger.Fatal("archive init failed", zap.Error(err))
	}

	clock := system.New()
	idGen := uuid.New()

	orch := orchestrator.New(
		orchestrator.Config{
			BatchDelay:    cfg.BatchDelay(),
			BatchJitter:   cfg.BatchJitter(),
			ArchivePrefix: cfg.Archive.Prefix,
		},
		pool,
		coll,
		ext,
		enr,
		archive,
		clock,
		logger.Named("orchestrator"),
	)

	apiServer := api.NewServer(runStore, orch, publisher, idGen, clock, cfg, logger.Named("api"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

// buildRunStore picks Postgres when a DSN is configured, else memory.
func buildRunStore(ctx context.Context, cfg config.Config) (scout.RunStore, func(), error) {
	if cfg.DB.DSN == "" {
		return memorystore.NewRunStore(), func() {}, nil
	}
	store, err := postgresstore.NewRunStore(ctx, postgresstore.RunStoreConfig{
		DSN:      cfg.DB.DSN,
		MaxConns: cfg.DB.MaxConns,
		MinConns: cfg.DB.MinConns,
	})
	if err != nil {
		return nil, nil, err
	}
	return store, store.Close, nil
}

// buildPublisher picks Pub/Sub when a project is configured, else memory.
func buildPublisher(ctx context.Context, cfg config.Config) (scout.Publisher, error) {
	if cfg.PubSub.ProjectID == "" || cfg.PubSub.TopicName == "" {
		return memorypublisher.New(), nil
	}
	client, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("pubsub client: %w", err)
	}
	return pubsubpublisher.New(client.Publisher(cfg.PubSub.TopicName)), nil
}

// buildArchive returns a GCS blob store when archiving is enabled.
func buildArchive(ctx context.Context, cfg config.Config) (scout.BlobStore, error) {
	if !cfg.Archive.Enabled {
		return nil, nil
	}
	client, err := gcsclient.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcs client: %w", err)
	}
	return gcs.New(client, gcs.Config{Bucket: cfg.Archive.GCSBucket})
}
