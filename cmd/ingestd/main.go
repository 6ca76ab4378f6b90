package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"linksignal/internal/api"
	"linksignal/internal/cache"
	"linksignal/internal/canonical"
	"linksignal/internal/config"
	"linksignal/internal/metadata"
	"linksignal/internal/publisher"
	"linksignal/internal/scoring"
	"linksignal/internal/service"
	"linksignal/internal/storage/postgres"
)

const shutdownTimeout = 15 * time.Second

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	logger := setupLogger("info")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = setupLogger(cfg.LogLevel)

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("connected to database")

	rabbitMQ, err := publisher.NewRabbitMQ(publisher.Config{
		URL:        cfg.RabbitMQ.URL,
		Exchange:   cfg.RabbitMQ.Exchange,
		RoutingKey: cfg.RabbitMQ.RoutingKey,
		QueueName:  cfg.RabbitMQ.QueueName,
	}, logger)
	if err != nil {
		logger.Error("failed to connect to rabbitmq", "error", err)
		os.Exit(1)
	}
	defer rabbitMQ.Close()

	var resolveCache canonical.ResolveCache
	if cfg.Redis.Addr != "" {
		redisCache, err := cache.NewResolveCache(cache.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.TTL,
		}, logger)
		if err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer redisCache.Close()
		resolveCache = redisCache
	}

	linkStore := postgres.NewLinkStore(db)
	mentionStore := postgres.NewMentionStore(db)
	sourceStore := postgres.NewSourceStore(db)
	blacklistStore := postgres.NewBlacklistStore(db)
	txManager := postgres.NewTransactionManager(db)

	resolver := canonical.NewResolver(canonical.ResolverConfig{
		Timeout:      cfg.Resolver.Timeout,
		UserAgent:    cfg.Resolver.UserAgent,
		MaxRedirects: cfg.Resolver.MaxRedirects,
	}, resolveCache, logger)
	canonicalizer := canonical.NewCanonicalizer(resolver, logger)

	metadataFetcher := metadata.New(metadata.Config{
		Timeout:   cfg.Resolver.Timeout,
		UserAgent: cfg.Resolver.UserAgent,
	}, logger)

	ingestor := service.NewIngestor(
		linkStore,
		mentionStore,
		blacklistStore,
		canonicalizer,
		txManager,
		rabbitMQ,
		metadataFetcher,
		logger,
		cfg.Ingest,
	)

	engine := scoring.NewEngine(scoring.Config{
		MinVelocity:         cfg.Scoring.MinVelocity,
		MinWeightedVelocity: cfg.Scoring.MinWeightedVelocity,
		Gravity:             cfg.Scoring.Gravity,
	})

	linkService := service.NewLinkService(
		linkStore,
		mentionStore,
		blacklistStore,
		canonicalizer,
		engine,
		logger,
		cfg.Scoring,
	)

	handler := api.NewHandler(ingestor, linkService, sourceStore, logger)
	server := api.NewServer(cfg.HTTP, handler, logger, cfg.LogLevel == "debug")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	go func() {
		logger.Info("starting ingestion api", "addr", cfg.HTTP.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}
