/**
 * @description
 * This is the main entry point for the fraud-service. It is responsible for
 * initializing all components of the service: configuration, the database
 * connection pool, the scoring engine, the RabbitMQ producer and consumer, the
 * periodic sweeper, and the HTTP server. It wires everything together and
 * starts the service.
 *
 * @dependencies
 * - log/slog, net/http: Standard Go libraries for logging and HTTP.
 * - github.com/go-chi/chi/v5: For HTTP routing.
 * - github.com/jackc/pgx/v5: PostgreSQL driver.
 * - internal/api, internal/app, internal/config, internal/scoring, internal/store: Internal packages.
 * - pkg/rabbitmq: Client for RabbitMQ.
 */

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/paysentry/fraud-service/internal/api"
	"github.com/paysentry/fraud-service/internal/app"
	"github.com/paysentry/fraud-service/internal/config"
	"github.com/paysentry/fraud-service/internal/scoring"
	"github.com/paysentry/fraud-service/internal/store"
	"github.com/paysentry/fraud-service/pkg/rabbitmq"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load application configuration from environment variables.
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Error("config load failed", "error", err)
		os.Exit(1)
	}
	logger.Info("starting fraud-service", "port", cfg.ServerPort)

	// Establish a connection pool to the PostgreSQL database.
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Error("database url parse failed", "error", err)
		os.Exit(1)
	}
	poolConfig.MaxConns = 50
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute
	// Disable prepared statement caching to prevent conflicts behind pgbouncer.
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	dbpool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		logger.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer dbpool.Close()
	logger.Info("database connected")

	// Load the frozen scoring model once. A failed load degrades scoring to
	// the static rule; it does not prevent the service from booting.
	engine, err := scoring.Load(cfg.ModelPath)
	if err != nil {
		logger.Warn("scoring model unavailable; consumer will rely on the static rule", "path", cfg.ModelPath, "error", err)
	} else {
		logger.Info("scoring model loaded", "path", cfg.ModelPath)
	}
	defer engine.Close()

	// The producer is the ingestion gateway's only dependency; without it
	// every submission would fail, so a dead broker at startup is fatal.
	producer, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL)
	if err != nil {
		logger.Error("rabbitmq producer init failed", "error", err)
		os.Exit(1)
	}
	defer producer.Close()
	logger.Info("rabbitmq producer connected")

	// Initialize the data access layer and the ingestion service.
	repository := store.NewPostgresRepository(dbpool)
	ingestService := app.NewService(producer, cfg.TransactionExchange, cfg.TransactionRoutingKey, logger.With("component", "ingest"))

	// Optional redis-backed submission rate limiting; missing or unreachable
	// redis disables it rather than blocking startup.
	if cfg.IngestRateLimitPerMin > 0 {
		if cfg.RedisURL == "" {
			logger.Warn("redis url missing; submission rate limiting disabled", "env", "REDIS_URL")
		} else if redisOptions, parseErr := redis.ParseURL(cfg.RedisURL); parseErr != nil {
			logger.Warn("redis url parse failed; submission rate limiting disabled", "error", parseErr)
		} else {
			redisClient := redis.NewClient(redisOptions)
			pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
			pingErr := redisClient.Ping(pingCtx).Err()
			cancelPing()
			if pingErr != nil {
				logger.Warn("redis ping failed; submission rate limiting disabled", "error", pingErr)
				redisClient.Close()
			} else {
				defer redisClient.Close()
				ingestService.SetRateLimiter(app.NewRedisRateLimiter(redisClient, cfg.RedisRateLimitPrefix), cfg.IngestRateLimitPerMin)
				logger.Info("redis connected; submission rate limiting enabled", "per_minute", cfg.IngestRateLimitPerMin)
			}
		}
	}

	// Wire up the fraud consumer against the transaction queue.
	fraudConsumer := app.NewFraudConsumer(repository, engine, cfg.HighValueThresholdMinor, logger.With("component", "consumer"))

	rabbitConsumer, err := rabbitmq.NewConsumer(cfg.RabbitMQURL)
	if err != nil {
		logger.Error("rabbitmq consumer init failed", "error", err)
		os.Exit(1)
	}
	defer rabbitConsumer.Close()

	bindings := map[string]func([]byte) bool{
		cfg.TransactionRoutingKey: fraudConsumer.HandleMessage,
	}
	if err := rabbitConsumer.ConsumeWithBindings(cfg.TransactionExchange, cfg.TransactionQueue, bindings); err != nil {
		logger.Error("fraud consumer start failed", "error", err)
		os.Exit(1)
	}
	logger.Info("fraud consumer started", "queue", cfg.TransactionQueue, "routing_key", cfg.TransactionRoutingKey)

	// Start the periodic sweeper.
	sweeper := app.NewSweeper(
		repository,
		logger.With("component", "sweeper"),
		cfg.SweepSchedule,
		time.Duration(cfg.SweepWindowSeconds)*time.Second,
		cfg.HighValueThresholdMinor,
	)
	if err := sweeper.Start(); err != nil {
		logger.Error("sweeper start failed", "schedule", cfg.SweepSchedule, "error", err)
		os.Exit(1)
	}

	// Set up the HTTP router and start the server.
	handlers := api.NewTransactionHandlers(ingestService, repository, logger.With("component", "api"))
	router := chi.NewRouter()
	router.Mount("/transactions", api.TransactionRoutes(handlers))

	serverAddr := fmt.Sprintf(":%s", cfg.ServerPort)
	server := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	go func() {
		logger.Info("server listening", "addr", serverAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server stopped unexpectedly", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("shutdown started")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("http shutdown failed", "error", err)
	}

	// Wait for any in-flight sweep cycle to finish.
	select {
	case <-sweeper.Stop().Done():
	case <-ctx.Done():
	}

	logger.Info("shutdown complete")
}
