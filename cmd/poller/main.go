package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"linksignal/internal/cache"
	"linksignal/internal/canonical"
	"linksignal/internal/config"
	"linksignal/internal/metadata"
	"linksignal/internal/publisher"
	"linksignal/internal/scheduler"
	"linksignal/internal/scoring"
	"linksignal/internal/service"
	"linksignal/internal/source/rss"
	"linksignal/internal/storage/postgres"
)

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

	// The resolve cache is optional; no Redis address means every
	// resolution hits the network.
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

	feedFetcher := rss.New(rss.Config{
		Timeout:   cfg.Poller.FeedTimeout,
		UserAgent: cfg.Resolver.UserAgent,
	}, logger)

	pollService := service.NewPollService(sourceStore, feedFetcher, ingestor, logger, cfg.Poller)

	linkService := service.NewLinkService(
		linkStore,
		mentionStore,
		blacklistStore,
		canonicalizer,
		newScoringEngine(cfg),
		logger,
		cfg.Scoring,
	)

	sched := scheduler.New(cfg.Poller.JobTimeout, logger)
	err = sched.Add(cfg.Poller.Schedule, scheduler.JobFunc{
		JobName: "poll-feeds",
		Fn: func(ctx context.Context) error {
			_, err := pollService.PollAll(ctx)
			return err
		},
	})
	if err != nil {
		logger.Error("failed to schedule poll job", "error", err)
		os.Exit(1)
	}
	err = sched.Add(cfg.Poller.RecanonSchedule, scheduler.JobFunc{
		JobName: "recanonicalize",
		Fn: func(ctx context.Context) error {
			_, err := linkService.RetryFailed(ctx, cfg.Poller.RecanonBatchSize)
			return err
		},
	})
	if err != nil {
		logger.Error("failed to schedule recanonicalize job", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	logger.Info("starting feed poller",
		"schedule", cfg.Poller.Schedule,
		"recanon_schedule", cfg.Poller.RecanonSchedule,
		"concurrency", cfg.Poller.SourceConcurrency,
	)

	if err := sched.Start(ctx); err != nil && err != context.Canceled {
		logger.Error("scheduler error", "error", err)
		os.Exit(1)
	}
}

func newScoringEngine(cfg *config.Config) *scoring.Engine {
	return scoring.NewEngine(scoring.Config{
		MinVelocity:         cfg.Scoring.MinVelocity,
		MinWeightedVelocity: cfg.Scoring.MinWeightedVelocity,
		Gravity:             cfg.Scoring.Gravity,
	})
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
