// Command main is the entry point for the project showcase API server.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"showcase/internal/bootstrap"
	"showcase/internal/config"
	"showcase/internal/middleware"
	"showcase/internal/observability"
	"showcase/internal/scheduler"
	"showcase/internal/server"
)

// @title Project Showcase API
// @version 1.0
// @description Curated catalog of community projects with moderation, reviews and ratings
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email support@showcase.dev

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8375
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	middleware.InitLogger(cfg.Env, os.Getenv("LOG_LEVEL"))

	shutdownTracing, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:    "showcase-api",
		ServiceVersion: "1.0.0",
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   cfg.TracingSampleRatio,
	})
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}

	ctx := context.Background()
	db, rdb, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{SeedCatalog: cfg.SeedCatalogOnStart})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}

	srv, err := server.NewServerWithDeps(cfg, db, rdb)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	var sweeps *scheduler.Scheduler
	if cfg.SweepEnabled {
		// a run must not outlive its lease
		timeout := time.Duration(cfg.SweepLockTTLSeconds) * time.Second
		sweeps, err = scheduler.New(srv.Sweeper(), cfg.SweepSchedule, timeout)
		if err != nil {
			log.Fatalf("Failed to schedule deadline sweep: %v", err)
		}
		sweeps.Start()
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		slog.Info("shutting down server")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if sweeps != nil {
			if err := sweeps.Stop(ctx); err != nil {
				slog.Warn("deadline sweep did not stop in time", slog.String("error", err.Error()))
			}
		}
		if err := srv.Shutdown(ctx); err != nil {
			slog.Error("server shutdown error", slog.String("error", err.Error()))
		}
		if err := shutdownTracing(ctx); err != nil {
			slog.Warn("tracing shutdown error", slog.String("error", err.Error()))
		}
	}()

	if err := srv.Start(); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}
