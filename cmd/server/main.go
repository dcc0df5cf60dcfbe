// Copyright 2026 The Attune Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package main provides the entry point for the attune server, the
// adaptive personalization engine: it learns per-user behavioral models
// from events and serves calibrated estimates and adapted suggestions
// and notifications over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/attunehq/attune/internal/api"
	"github.com/attunehq/attune/internal/calibrate"
	"github.com/attunehq/attune/internal/config"
	"github.com/attunehq/attune/internal/events"
	"github.com/attunehq/attune/internal/logging"
	"github.com/attunehq/attune/internal/model"
	"github.com/attunehq/attune/internal/notify"
	"github.com/attunehq/attune/internal/store"
	"github.com/attunehq/attune/internal/style"
	"github.com/attunehq/attune/internal/suggest"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// maintenanceInterval is how often retention cleanup and event-log
// rotation run.
const maintenanceInterval = 6 * time.Hour

func init() {
	logging.SetupBaseLogger()
}

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Configuration file path")
	flag.Parse()

	// Subcommands bypass the server entirely.
	if len(os.Args) > 1 && os.Args[1] == "model" {
		handleModelCommand(os.Args[2:])
		return
	}

	wd, err := os.Getwd()
	if err != nil {
		log.Fatalf("failed to get working directory: %v", err)
	}

	if errLoad := godotenv.Load(filepath.Join(wd, ".env")); errLoad != nil {
		if !errors.Is(errLoad, os.ErrNotExist) {
			log.WithError(errLoad).Warn("failed to load .env file")
		}
	}

	if configPath == "" {
		configPath = filepath.Join(wd, "config.yaml")
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	applyEnvOverrides(cfg)

	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}
	if err = logging.ConfigureLogOutput(cfg.LoggingToFile, filepath.Join(wd, "logs")); err != nil {
		log.Fatalf("failed to configure log output: %v", err)
	}

	log.Infof("attune Version: %s, Commit: %s, BuiltAt: %s", Version, Commit, BuildDate)

	if err := run(cfg); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

// applyEnvOverrides lets deployment environments supply the datastore
// settings without editing the config file.
func applyEnvOverrides(cfg *config.Config) {
	if dsn := os.Getenv("ATTUNE_STORE_DSN"); dsn != "" {
		cfg.Store.DSN = dsn
	}
	if driver := os.Getenv("ATTUNE_STORE_DRIVER"); driver != "" {
		cfg.Store.Driver = driver
	}
	if schema := os.Getenv("ATTUNE_STORE_SCHEMA"); schema != "" {
		cfg.Store.Schema = schema
	}
}

func run(cfg *config.Config) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	sqlStore, err := store.Open(ctx, cfg.Store)
	cancel()
	if err != nil {
		// The engine degrades to in-memory models rather than refusing to
		// start; estimation ingestion will report the store as missing.
		log.Warnf("SQL store unavailable, running without persistence: %v", err)
		sqlStore = nil
	} else {
		defer sqlStore.Close()
	}

	eventStore, err := events.NewStore(cfg.Events.BaseDir)
	if err != nil {
		return fmt.Errorf("failed to open event store: %w", err)
	}
	defer eventStore.Close()

	var registry *style.Registry
	if cfg.Templates != "" {
		registry, err = style.NewRegistry(cfg.Templates)
		if err != nil {
			log.Warnf("Template registry unavailable, using built-in phrasing: %v", err)
		} else {
			defer registry.Close()
		}
	}

	var persist model.Persistence
	var records model.RecordSource
	var pending notify.PendingSource
	if sqlStore != nil {
		persist = sqlStore
		records = sqlStore
		pending = sqlStore
	}

	models := model.NewStore(persist)
	builder, err := model.NewBuilder(&cfg.Model, eventStore, records, models)
	if err != nil {
		return fmt.Errorf("failed to create model builder: %w", err)
	}
	builder.Start()
	defer builder.Stop()

	calibrator := calibrate.NewCalibrator(&cfg.Calibration, cfg.Model.MinSamplesPerStat)
	suggestions := suggest.NewAdapter(registry)
	scheduler := notify.NewScheduler(cfg.Notifications, registry, pending, notify.NewRateLimiter())

	stopMaintenance := startMaintenance(cfg, eventStore, sqlStore)
	defer stopMaintenance()

	server := api.NewServer(cfg, eventStore, models, builder, calibrator, suggestions, scheduler, sqlStore)
	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler: server.Handler(),
	}

	errChan := make(chan error, 1)
	go func() {
		log.Infof("API server listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		log.Infof("Received signal %v, shutting down", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}

// startMaintenance runs periodic event-log rotation and retention cleanup.
// The returned function stops the loop.
func startMaintenance(cfg *config.Config, eventStore *events.Store, sqlStore *store.SQLStore) func() {
	stop := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(maintenanceInterval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if err := eventStore.Rotate(cfg.Events.MaxLogSizeMB, cfg.Events.Compression); err != nil {
					log.Warnf("Event log rotation failed: %v", err)
				}
				if err := eventStore.CleanupOldSegments(cfg.Events.RetentionDays); err != nil {
					log.Warnf("Event log cleanup failed: %v", err)
				}
				if sqlStore != nil {
					ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
					sqlStore.CleanupOldDeliveries(ctx, cfg.Events.RetentionDays)
					cancel()
				}
			}
		}
	}()

	return func() {
		close(stop)
		<-done
	}
}
