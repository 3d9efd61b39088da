package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	catalogapi "github.com/aliskhannn/catalog-images/internal/api/handlers/catalog"
	uploadapi "github.com/aliskhannn/catalog-images/internal/api/handlers/upload"
	"github.com/aliskhannn/catalog-images/internal/api/router"
	"github.com/aliskhannn/catalog-images/internal/api/server"
	"github.com/aliskhannn/catalog-images/internal/asset"
	"github.com/aliskhannn/catalog-images/internal/cache"
	"github.com/aliskhannn/catalog-images/internal/config"
	"github.com/aliskhannn/catalog-images/internal/infra/kafka/consumer"
	"github.com/aliskhannn/catalog-images/internal/infra/kafka/producer"
	migrationmsg "github.com/aliskhannn/catalog-images/internal/kafka/handlers/migration"
	"github.com/aliskhannn/catalog-images/internal/metrics"
	"github.com/aliskhannn/catalog-images/internal/migration"
	"github.com/aliskhannn/catalog-images/internal/processor"
	"github.com/aliskhannn/catalog-images/internal/processor/webp"
	catalogrepo "github.com/aliskhannn/catalog-images/internal/repository/catalog"
	catalogsvc "github.com/aliskhannn/catalog-images/internal/service/catalog"
	uploadsvc "github.com/aliskhannn/catalog-images/internal/service/upload"
	"github.com/aliskhannn/catalog-images/internal/sniff"
	"github.com/aliskhannn/catalog-images/internal/storage/cas"
	"github.com/aliskhannn/catalog-images/internal/storage/file"
)

func main() {
	// Context & signals: used for graceful shutdown on system interrupts.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize logger and load application configuration.
	zlog.Init()
	cfg := config.MustLoad("./config/config.yml")

	// Connect to PostgreSQL (master and slaves).
	opts := &dbpg.Options{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}

	slaveDSNs := make([]string, 0, len(cfg.Database.Slaves))
	for _, s := range cfg.Database.Slaves {
		slaveDSNs = append(slaveDSNs, s.DSN())
	}

	db, err := dbpg.New(cfg.Database.Master.DSN(), slaveDSNs, opts)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	// Retry strategy for Kafka.
	strategy := retry.Strategy{
		Attempts: cfg.Retry.Attempts,
		Delay:    cfg.Retry.Delay,
		Backoff:  cfg.Retry.Backoff,
	}

	// Initialize rendition storage (MinIO) behind the content-addressed gateway.
	storage, err := file.NewStorage(ctx, file.Options{
		Endpoint:      cfg.Storage.Endpoint,
		AccessKey:     cfg.Storage.AccessKey,
		SecretKey:     cfg.Storage.SecretKey,
		BucketName:    cfg.Storage.BucketName,
		UseSSL:        cfg.Storage.UseSSL,
		PublicBaseURL: cfg.Storage.PublicBaseURL,
		CacheControl:  cfg.Storage.CacheControl,
	})
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to connect to storage")
	}

	// Document read cache.
	docCache, err := cache.New(ctx, cache.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		TTL:      cfg.Redis.TTL,
	})
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to connect to redis")
	}

	// Metrics registry exposed on /metrics.
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Initialize repository, producer, processor, and service layer.
	normalizer := asset.New(time.Now)
	repo := catalogrepo.NewRepository(db)
	p := producer.New(&cfg.Kafka, strategy)
	imageProcessor := processor.New(webp.NewEncoder(cfg.Upload.Quality))

	uploadService := uploadsvc.NewService(sniff.Sniffer{}, imageProcessor, cas.NewGateway(storage), p, m)
	catalogService := catalogsvc.NewService(repo, docCache, normalizer)

	// Maintenance commands run the bulk image migration.
	runner := migration.NewRunner(repo, migration.NewDriver(normalizer, m), false)
	c := consumer.New(&cfg.Kafka, strategy, migrationmsg.NewHandler(runner))

	var wg sync.WaitGroup
	wg.Add(1)
	go c.Consume(ctx, &wg)

	// Start HTTP server in a separate goroutine.
	r := router.Setup(
		uploadapi.NewHandler(uploadService, cfg.Upload.MaxFileSize, cfg.Upload.Timeout),
		catalogapi.NewHandler(catalogService),
		reg,
	)
	s := server.New(cfg.Server.HTTPPort, r, cfg.Upload.Timeout)
	go func() {
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	zlog.Logger.Info().Str("addr", cfg.Server.HTTPPort).Msg("catalog api started")

	// Block until context is canceled (SIGINT/SIGTERM).
	<-ctx.Done()
	zlog.Logger.Info().Msg("context done")

	// Graceful shutdown with timeout for HTTP server.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Upload.Timeout+5*time.Second)
	defer cancel()

	zlog.Logger.Info().Msg("shutting down server")
	if err := s.Shutdown(shutdownCtx); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to shutdown server")
	}
	if errors.Is(shutdownCtx.Err(), context.DeadlineExceeded) {
		zlog.Logger.Info().Msg("timeout exceeded, forcing shutdown")
	}

	// Wait for Kafka consumer goroutine to finish.
	wg.Wait()

	// Close master and slave databases.
	if err := db.Master.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to close master DB")
	}
	for i, s := range db.Slaves {
		if err := s.Close(); err != nil {
			zlog.Logger.Error().Err(err).Int("slave", i).Msg("failed to close slave DB")
		}
	}

	if err := docCache.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to close redis client")
	}

	// Close Kafka producer and consumer clients.
	if err = p.Client.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to close kafka producer client")
	}
	if err = c.Client.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to close kafka consumer client")
	}
}
