package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/HiveCTF/cyberhive"
	"github.com/HiveCTF/cyberhive/api"
	"github.com/HiveCTF/cyberhive/base"
	"github.com/HiveCTF/cyberhive/db"
	"github.com/HiveCTF/cyberhive/internal/config"
	"github.com/HiveCTF/cyberhive/internal/ratelimit"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

var confPath = flag.String("config", "./config.toml", "Config path")

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "couldn't load .env: %v\n", err)
	}
	flag.Parse()

	if err := run(); err != nil {
		slog.Error("Fatal error", slog.Any("err", err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(*confPath)
	if err != nil {
		return err
	}

	slog.SetDefault(slog.New(cyberhive.GetSlogHandler(cfg.Common.Debug, os.Stdout)))
	slog.Info("Starting CyberHive", slog.String("version", cyberhive.Version))
	if cfg.Common.Debug {
		slog.Warn("Debug mode activated, expect worse performance")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// DB setup
	store, err := db.NewPSQL(ctx, cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("couldn't connect to DB: %w", err)
	}
	defer store.Close()
	slog.Info("Connected to DB")

	if err := store.RunMigrations(ctx); err != nil {
		return fmt.Errorf("couldn't run migrations: %w", err)
	}

	var limiter ratelimit.Limiter = ratelimit.NewMemory()
	if cfg.Redis.Enabled {
		limiter = ratelimit.NewRedis(redis.NewClient(cfg.Redis.GenOptions()))
		slog.Info("Using Redis rate limiter", slog.String("addr", cfg.Redis.Addr))
	}

	b, err := base.New(cfg, store, limiter)
	if err != nil {
		return err
	}
	defer b.Close()

	r := chi.NewRouter()
	corsConfig := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(corsConfig.Handler)

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	r.Use(middleware.Timeout(20 * time.Second))

	r.Mount("/api", api.New(b).Handler())
	r.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:    cfg.Common.Address,
		Handler: r,
	}

	go func() {
		slog.Info("Listening", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", slog.Any("err", err))
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down")
	shutCtx, shutCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutCancel()
	return server.Shutdown(shutCtx)
}
