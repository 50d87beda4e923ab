package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/snake-arena/backend/internal/auth"
	"github.com/snake-arena/backend/internal/config"
	"github.com/snake-arena/backend/internal/handler"
	"github.com/snake-arena/backend/internal/kafka"
	"github.com/snake-arena/backend/internal/postgres"
	"github.com/snake-arena/backend/internal/redis"
	"github.com/snake-arena/backend/internal/service"
	"github.com/snake-arena/backend/internal/websocket"
	"github.com/snake-arena/backend/internal/worker"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Local secrets live in .env; missing file is fine
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Warn("failed to load config file, using defaults", "error", err)
		cfg = config.DefaultConfig()
	}
	if cfg.Auth.Secret == "" {
		cfg.Auth.Secret = os.Getenv("AUTH_SECRET")
	}
	if cfg.Auth.Secret == "" {
		logger.Error("auth secret not configured, set auth.secret or AUTH_SECRET")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize PostgreSQL
	logger.Info("connecting to PostgreSQL", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
	repo, err := postgres.NewRepository(&cfg.Postgres, logger)
	if err != nil {
		logger.Error("failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}
	defer repo.Close()

	if err := repo.RunMigrations(ctx); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Initialize Redis game store
	logger.Info("connecting to Redis", "addr", cfg.Redis.Addr)
	games, err := redis.NewGameStore(&cfg.Redis, logger)
	if err != nil {
		logger.Error("failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer games.Close()

	// Initialize WebSocket hub
	wsHub := websocket.NewHub(logger)
	go wsHub.Run()

	// Initialize services
	tokens := auth.NewTokenIssuer(cfg.Auth.Secret, cfg.Auth.TokenTTL)
	authService := auth.NewService(repo, tokens, cfg.Auth.BcryptCost, logger)
	leaderboard := service.NewLeaderboard(repo, &cfg.Leaderboard, logger)
	leaderboard.SetNotifier(wsHub)
	spectate := service.NewSpectate(games, cfg.Spectate.PollInterval, logger)
	ingest := service.NewIngest(games, repo, logger)

	// Initialize game reaper
	reaper := worker.NewGameReaper(games, &cfg.Reaper, logger)
	if cfg.Reaper.Enabled {
		if err := reaper.Start(ctx); err != nil {
			logger.Error("failed to start game reaper", "error", err)
			os.Exit(1)
		}
	}

	// Initialize Kafka consumer for game runner events
	var consumer *kafka.Consumer
	if cfg.Kafka.Enabled {
		logger.Info("initializing Kafka consumer",
			"brokers", cfg.Kafka.Brokers,
			"topic", cfg.Kafka.Topic,
		)
		consumer, err = kafka.NewConsumer(&cfg.Kafka, ingest, logger)
		if err != nil {
			logger.Warn("failed to create Kafka consumer, continuing without ingestion", "error", err)
		} else if err := consumer.Start(); err != nil {
			logger.Warn("failed to start Kafka consumer, continuing without ingestion", "error", err)
			consumer = nil
		}
	}

	// Initialize HTTP handler
	httpHandler := handler.NewHandler(authService, leaderboard, spectate, wsHub, logger)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      httpHandler.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("starting HTTP server", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	wsHub.Stop()

	if consumer != nil {
		if err := consumer.Stop(); err != nil {
			logger.Error("failed to stop Kafka consumer", "error", err)
		}
	}

	if cfg.Reaper.Enabled {
		if err := reaper.Stop(); err != nil {
			logger.Error("failed to stop game reaper", "error", err)
		}
	}

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown server", "error", err)
	}

	logger.Info("server stopped")
}
