package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"golang.org/x/sync/errgroup"

	"gatebook/internal/app"
	"gatebook/internal/config"
	"gatebook/internal/ratelimit"
	"gatebook/internal/server"
	"gatebook/internal/util"
	"gatebook/pkg/events"
	"gatebook/pkg/storage"
	"gatebook/pkg/store"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := util.InitLogger(cfg.LogLevel)

	sessionTTL, err := config.ParseSessionTTL(cfg.SessionTTL)
	if err != nil {
		util.Fatal("failed to parse session ttl", "err", err)
	}

	var sessions store.SessionStore
	switch cfg.SessionStrategy {
	case "redis":
		sessions = store.NewRedisSessionStore(cfg.RedisAddr, cfg.RedisPassword, sessionTTL)
	case "jwt":
		sessions, err = store.NewJWTSessionStore(cfg.JWTSecret, sessionTTL)
		if err != nil {
			util.Fatal("failed to init jwt sessions", "err", err)
		}
	default:
		sessions = store.NewMemorySessionStore()
	}

	var photos storage.ObjectStore
	if cfg.MinioEndpoint != "" {
		photos, err = storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			util.Fatal("failed to init photo storage", "err", err)
		}
	}

	var publisher events.Publisher
	var amqpPublisher *events.AMQPPublisher
	if cfg.AMQPURL != "" {
		amqpPublisher, err = events.NewAMQPPublisher(cfg.AMQPURL, "gatebook.events")
		if err != nil {
			util.Fatal("failed to init event publisher", "err", err)
		}
		publisher = amqpPublisher
	}

	appCfg := app.Config{
		Sessions:     sessions,
		Photos:       photos,
		Events:       publisher,
		GeminiAPIKey: cfg.GeminiAPIKey,
		ChatModel:    cfg.ChatModel,
	}
	if cfg.StorageMode == "memory" {
		slog.Warn("running with in-memory storage, data is lost on restart")
		appCfg.Store = store.NewMemoryStore()
	} else {
		appCfg.DatabaseURL = cfg.DatabaseURL
	}
	appCore, err := app.New(appCfg)
	if err != nil {
		util.Fatal("failed to init app", "err", err)
	}

	var loginLimiter *ratelimit.FixedWindowLimiter
	if cfg.LoginRateLimitPerMinute > 0 {
		if cfg.RedisAddr != "" {
			loginLimiter, err = ratelimit.NewRedisFixedWindowLimiter(cfg.RedisAddr, cfg.RedisPassword, "gatebook:ratelimit:login", cfg.LoginRateLimitPerMinute, time.Minute)
		} else {
			loginLimiter, err = ratelimit.NewFixedWindowLimiter(cfg.LoginRateLimitPerMinute, time.Minute)
		}
		if err != nil {
			util.Fatal("failed to init login rate limiter", "err", err)
		}
	}

	httpServer := server.New(server.Config{
		App:          appCore,
		LoginLimiter: loginLimiter,
	})

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		slog.Info("gatebook server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if amqpPublisher != nil {
			if err := amqpPublisher.Close(); err != nil {
				slog.Warn("close event publisher", "err", err)
			}
		}
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logger.Error("server error", "err", err)
	}
}
