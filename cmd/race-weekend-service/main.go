package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/itsmrval/willitbemax/internal/cache"
	"github.com/itsmrval/willitbemax/internal/config"
	"github.com/itsmrval/willitbemax/internal/handlers"
	"github.com/itsmrval/willitbemax/internal/hub"
	"github.com/itsmrval/willitbemax/internal/metrics"
	"github.com/itsmrval/willitbemax/internal/poller"
	"github.com/itsmrval/willitbemax/internal/providers/content"
	"github.com/itsmrval/willitbemax/internal/publisher"
	"github.com/itsmrval/willitbemax/internal/resolver"
	"github.com/itsmrval/willitbemax/internal/state"
	"github.com/itsmrval/willitbemax/pkg/contracts"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.LoadConfig(os.Getenv("CONFIG_FILE"))
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)
	logger = logger.With("service", "race-weekend-service")

	logger.Info("starting race weekend service",
		"addr", cfg.Server.Addr,
		"content_api", cfg.Content.BaseURL,
		"redis_enabled", cfg.RedisEnabled())

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New()
	clock := contracts.SystemClock{}
	store := state.NewStore(clock.Now)

	provider := content.New(cfg.Content.BaseURL, content.WithTimeout(cfg.Content.Timeout))
	res := resolver.New(provider, clock)

	polling := contracts.DefaultPollingConfig()
	polling.LiveInterval = cfg.Polling.LiveInterval
	polling.IdleInterval = cfg.Polling.IdleInterval
	polling.RequestTimeout = max(polling.RequestTimeout, cfg.Content.Timeout)

	opts := []poller.Option{poller.WithMetrics(m), poller.WithLogger(logger)}

	// Optional Redis mirror
	var redisClient *redis.Client
	if cfg.RedisEnabled() {
		redisClient, err = connectRedis(ctx, cfg.Redis.URL)
		if err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		logger.Info("connected to redis", "stream", cfg.Redis.Stream)

		opts = append(opts, poller.WithSinks(
			cache.NewRedisWriter(redisClient),
			publisher.NewStreamPublisher(redisClient, cfg.Redis.Stream),
		))
	}

	// Hub follows the store
	h := hub.NewHub(m, logger)
	updates, unsubscribe := store.Subscribe()
	go h.Run(ctx, updates)

	scheduler := poller.NewRefreshScheduler(res, store, clock, polling, opts...)
	schedulerDone := make(chan struct{})
	go func() {
		defer close(schedulerDone)
		scheduler.Run(ctx)
	}()

	// Pass context for websocket lifecycle
	handler := handlers.NewHandler(ctx, store, h, cfg.Server.CORSOrigins, logger)
	router := handlers.NewRouter(handler, handlers.RouterConfig{
		CORSOrigins:    cfg.Server.CORSOrigins,
		RateLimitRPS:   cfg.Server.RateLimitRPS,
		RateLimitBurst: cfg.Server.RateLimitBurst,
		Metrics:        m.Handler(),
	}, logger)

	server := &http.Server{
		Addr:        cfg.Server.Addr,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", cfg.Server.Addr)
		serverErrors <- server.ListenAndServe()
	}()

	// Wait for interrupt signal
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
		}
	case sig := <-shutdown:
		logger.Info("received signal", "signal", sig.String())
	}

	// Cancel context to stop the refresh loop, the hub and websocket pumps
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", "error", err)
		if err := server.Close(); err != nil {
			logger.Error("could not stop server", "error", err)
		}
	}

	<-schedulerDone
	unsubscribe()
	store.Close()

	if redisClient != nil {
		redisClient.Close()
	}

	logger.Info("shutdown complete")
}

// connectRedis parses url and pings the server
func connectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}
