package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	corecfg "github.com/aevon-lab/profile-relay/internal/core/config"
	"github.com/aevon-lab/profile-relay/internal/core/storage"
	"github.com/aevon-lab/profile-relay/internal/core/storage/postgres"
	"github.com/aevon-lab/profile-relay/internal/core/xdm"
	"github.com/aevon-lab/profile-relay/internal/errorlog"
	"github.com/aevon-lab/profile-relay/internal/ingestion"
	"github.com/aevon-lab/profile-relay/internal/migrations"
	"github.com/aevon-lab/profile-relay/internal/partner"
	"github.com/aevon-lab/profile-relay/internal/reconcile"
	"github.com/aevon-lab/profile-relay/internal/relay"
	"github.com/aevon-lab/profile-relay/internal/server"
)

func main() {
	configPath := flag.String("config", "relay.yaml", "Path to configuration file (optional, env overrides)")
	flag.Parse()

	// 0. Initialize Logger
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// 1. Load Configuration
	path := *configPath
	if _, err := os.Stat(path); err != nil {
		slog.Info("Config file not found, using defaults and environment", "path", path)
		path = ""
	}
	cfg, err := corecfg.Load(path)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	level.Set(parseLevel(cfg.Log.Level))

	// Token and write key are never logged.
	slog.Info("Loaded config",
		"payload_kind", cfg.Partner.PayloadKind,
		"partner_debug", cfg.Partner.Debug,
		"dataset_id", cfg.Partner.DatasetID,
		"dataflow_id", cfg.Partner.DataflowID,
		"database_enabled", cfg.Database.Enabled)

	// 2. Initialize Failure Store (optional PostgreSQL)
	var failures storage.FailureStore = storage.NopStore{}
	var health server.HealthChecker
	if cfg.Database.Enabled {
		db, err := postgres.OpenDB(cfg.Database.DSN, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)
		if err != nil {
			slog.Error("Failed to initialize database", "error", err)
			os.Exit(1)
		}

		// 2.1. Run Database Migrations
		if err := migrations.Run(db, cfg.Database.AutoMigrate); err != nil {
			db.Close()
			slog.Error("Failed to run database migrations", "error", err)
			os.Exit(1)
		}

		dbAdapter, err := postgres.NewAdapterFromDB(db)
		if err != nil {
			slog.Error("Failed to initialize failure store", "error", err)
			os.Exit(1)
		}
		defer dbAdapter.Close()

		failures = dbAdapter
		health = dbAdapter.DB()
	}

	// 3. Initialize Payload Builder
	builder, err := xdm.NewBuilder(xdm.NewRegistry(), xdm.Kind(cfg.Partner.PayloadKind), cfg.Partner.Target())
	if err != nil {
		slog.Error("Failed to initialize payload builder", "kind", cfg.Partner.PayloadKind, "error", err)
		os.Exit(1)
	}

	// 4. Initialize partner client and error reporter
	client := partner.NewClient(partner.Config{
		Endpoint: cfg.Partner.Endpoint,
		Token:    cfg.Partner.Token,
		Debug:    cfg.Partner.Debug,
		Timeout:  cfg.Partner.Timeout,
	})
	slog.Info("Partner endpoint resolved", "url", client.URL())

	reporter := errorlog.NewReporter(errorlog.Config{
		Endpoint:     cfg.ErrorLog.Endpoint,
		WriteKey:     cfg.ErrorLog.WriteKey,
		Timeout:      cfg.ErrorLog.Timeout,
		MaxRetries:   cfg.ErrorLog.MaxRetries,
		BackoffMs:    cfg.ErrorLog.BackoffMs,
		BackoffMaxMs: cfg.ErrorLog.BackoffMaxMs,
		Concurrency:  cfg.ErrorLog.Concurrency,
	})

	// 5. Initialize Relay and Ingestion
	relaySvc := relay.NewService(builder, client, reporter, failures, reconcile.Options{
		EventName:   cfg.ErrorLog.EventName,
		AnonymousID: cfg.ErrorLog.AnonymousID,
	})
	ingestionSvc := ingestion.NewService(relaySvc, failures, cfg.Server.MaxBodySizeMB)

	// 6. Initialize Server
	srv := server.New(fmtAddr(cfg.Server.Host, cfg.Server.Port), health, cfg.Server.Mode)
	ingestionSvc.RegisterRoutes(srv.Engine)

	// 7. Start
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Signal handler triggers the shutdown sequence below.
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		slog.Info("Signal received, shutting down...")
		cancel()
	}()

	// HTTP server blocks until ctx is cancelled.
	if err := srv.Run(ctx); err != nil {
		slog.Error("Server stopped with error", "error", err)
	}

	slog.Info("Shutdown complete")
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func fmtAddr(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}
