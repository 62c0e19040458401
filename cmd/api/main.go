// Package main is the entry point for the Tripwise API server.
// Its sole responsibility is wiring dependencies together and starting the server.
// No business logic belongs here.
package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pkordes/tripwise/internal/auth"
	"github.com/pkordes/tripwise/internal/completion"
	"github.com/pkordes/tripwise/internal/config"
	"github.com/pkordes/tripwise/internal/feed"
	"github.com/pkordes/tripwise/internal/handler"
	"github.com/pkordes/tripwise/internal/infra/kafka"
	"github.com/pkordes/tripwise/internal/infra/redis"
	"github.com/pkordes/tripwise/internal/middleware"
	"github.com/pkordes/tripwise/internal/repo"
	"github.com/pkordes/tripwise/internal/service"
	"github.com/pkordes/tripwise/internal/store"
	"github.com/pkordes/tripwise/internal/tripsync"
	"github.com/pkordes/tripwise/migrations"
)

func main() {
	// --- Config -----------------------------------------------------------
	// A missing .env is normal outside local development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("could not read .env", "error", err)
	}
	cfg, err := config.Load()
	if err != nil {
		// Use plain stderr before the logger is configured.
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	// --- Logger -----------------------------------------------------------
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	ctx := context.Background()
	var closers []io.Closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].Close(); err != nil {
				logger.Warn("close failed", "error", err)
			}
		}
	}()

	// --- Document store ---------------------------------------------------
	// Without DATABASE_URL the server still runs: reads are empty and
	// writes fail with 503.
	db := store.New(cfg.Postgres.URL)
	defer db.Close()

	var (
		tripRepo repo.TripRepo
		userRepo repo.UserRepo
	)
	if db.Configured() {
		pool, err := db.Pool(ctx)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		logger.Info("database connection established")

		if cfg.Postgres.MigrateOnStart {
			sqlDB := stdlib.OpenDBFromPool(pool)
			applied, err := migrations.Up(ctx, sqlDB)
			_ = sqlDB.Close()
			if err != nil {
				logger.Error("failed to apply migrations", "error", err)
				os.Exit(1)
			}
			logger.Info("migrations applied", "count", applied)
		}

		tripRepo = repo.NewTripRepo(pool)
		userRepo = repo.NewUserRepo(pool)
	} else {
		logger.Warn("DATABASE_URL not set; document store unavailable")
	}

	// --- Change feed, caches, denylist ------------------------------------
	var (
		notifier    feed.Notifier = feed.NewLocal()
		denylist    auth.Denylist = auth.NewMemoryDenylist()
		cache       tripsync.Cache
		idempotency func(http.Handler) http.Handler
	)
	if cfg.Redis.Addr != "" {
		client, err := redis.NewClient(ctx, redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		closers = append(closers, client)
		logger.Info("redis connection established", "addr", cfg.Redis.Addr)

		notifier = redis.NewNotifier(client)
		denylist = redis.NewDenylist(client)
		cache = redis.NewSnapshotCache(client)
		idempotency = middleware.NewIdempotencyHandler(redis.NewIdempotencyStore(client), logger)
	}

	// --- Trip event stream ------------------------------------------------
	var events service.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		producer := kafka.NewProducer(kafka.Config{Brokers: cfg.Kafka.Brokers, Topic: cfg.Kafka.Topic, Log: logger})
		closers = append(closers, producer)
		events = producer
		logger.Info("trip events enabled", "topic", producer.Topic())
	}

	// --- Completion gateway -----------------------------------------------
	var completer service.Completer
	switch key := cfg.Completion.APIKey(); {
	case key == "":
		logger.Warn("no completion API key; itinerary generation unavailable",
			"provider", cfg.Completion.Provider)
	case cfg.Completion.Provider == config.ProviderGemini:
		g, err := completion.NewGemini(ctx, completion.GeminiConfig{APIKey: key, Model: cfg.Completion.GeminiModel})
		if err != nil {
			logger.Error("failed to create completion gateway", "error", err)
			os.Exit(1)
		}
		closers = append(closers, g)
		completer = g
		logger.Info("completion gateway ready", "provider", config.ProviderGemini, "model", g.Model())
	default:
		o := completion.NewOpenAI(completion.OpenAIConfig{
			APIKey:  key,
			BaseURL: cfg.Completion.OpenAIBaseURL,
			Model:   cfg.Completion.OpenAIModel,
		})
		completer = o
		logger.Info("completion gateway ready", "provider", config.ProviderOpenAI, "model", o.Model())
	}

	// --- Services ---------------------------------------------------------
	itinerarySvc := service.NewItineraryService(completer, cfg.Completion.Temperature)
	tripSvc := service.NewTripService(tripRepo, itinerarySvc, notifier, events, logger)
	authSvc := service.NewAuthService(userRepo, auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, denylist))

	syncers := func() *tripsync.Syncer {
		return tripsync.New(tripSvc, notifier, tripsync.WithCache(cache), tripsync.WithLogger(logger))
	}
	server := handler.NewServer(tripSvc, itinerarySvc, authSvc, syncers, logger)

	// --- Router -----------------------------------------------------------
	// Middleware is applied in order: RequestID → RealIP → Logger → Recoverer
	// → CORS → MaxBodySize.
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.HTTP.CORSOrigins))
	r.Use(middleware.NewMaxBodySizeHandler(cfg.HTTP.MaxBodyBytes))

	r.Handle("/metrics", promhttp.Handler())
	r.Mount("/", server.Routes(idempotency))

	// --- HTTP Server ------------------------------------------------------
	// Explicit timeouts prevent slowloris and resource exhaustion attacks.
	// Generation can take a while, and /trips/stream clears its own
	// write deadline.
	// Open streams hold their connection until the client leaves, so they
	// are cancelled through the base context when shutdown begins.
	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	srv := &http.Server{
		Addr:              ":" + cfg.HTTP.Port,
		Handler:           r,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	srv.RegisterOnShutdown(cancelBase)

	// Graceful shutdown: wait for OS signal, then give in-flight requests
	// up to 15 seconds to complete before forcefully closing.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-stop:
	case err := <-serveErr:
		logger.Error("server error", "error", err)
		return
	}
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		return
	}
	logger.Info("server stopped")
}
