// Copyright 2026 The Attune Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/attunehq/attune/internal/config"
	"github.com/attunehq/attune/internal/events"
	"github.com/attunehq/attune/internal/model"
	"github.com/attunehq/attune/internal/store"
)

// ModelCommand represents the available model subcommands
type ModelCommand string

const (
	ModelStatus  ModelCommand = "status"
	ModelRebuild ModelCommand = "rebuild"
	ModelReset   ModelCommand = "reset"
)

// ModelOptions holds command-line options
type ModelOptions struct {
	Command ModelCommand
	UserID  string
}

func handleModelCommand(args []string) {
	if len(args) == 0 {
		printModelUsage()
		os.Exit(1)
	}

	command := ModelCommand(args[0])

	var userID string
	fs := flag.NewFlagSet("model", flag.ExitOnError)
	fs.StringVar(&userID, "user", "", "User ID to operate on")
	if len(args) > 1 {
		if err := fs.Parse(args[1:]); err != nil {
			_ = err // ExitOnError is set
		}
	}

	opts := &ModelOptions{
		Command: command,
		UserID:  userID,
	}

	cfg := loadMinimalConfig()
	DoModelCommand(cfg, opts)
}

func printModelUsage() {
	fmt.Println("Usage: attune model <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  status  [--user <id>]  Show builder settings, or one user's model")
	fmt.Println("  rebuild --user <id>    Rebuild the model from raw history")
	fmt.Println("  reset   --user <id>    Drop the model; history is untouched")
}

func DoModelCommand(cfg *config.Config, opts *ModelOptions) {
	switch opts.Command {
	case ModelStatus:
		doModelStatus(cfg, opts)
	case ModelRebuild:
		doModelRebuild(cfg, opts)
	case ModelReset:
		doModelReset(cfg, opts)
	default:
		printModelUsage()
		os.Exit(1)
	}
}

func doModelStatus(cfg *config.Config, opts *ModelOptions) {
	if opts.UserID == "" {
		fmt.Println("Model Builder Status")
		fmt.Println("====================")
		fmt.Printf("Rebuild Interval: %s\n", cfg.Model.RebuildInterval)
		fmt.Printf("Event Lookback: %d days\n", cfg.Model.EventLookbackDays)
		fmt.Printf("Estimation Lookback: %d days\n", cfg.Model.EstimationLookbackDays)
		fmt.Printf("Min Samples Per Stat: %d\n", cfg.Model.MinSamplesPerStat)
		fmt.Printf("Store: %s (%s)\n", cfg.Store.Driver, cfg.Store.DSN)
		return
	}

	sqlStore := openSQLStore(cfg)
	defer sqlStore.Close()

	m, err := sqlStore.LoadUserModel(context.Background(), opts.UserID)
	if err != nil {
		log.Fatalf("Failed to load model: %v", err)
	}
	if m == nil {
		fmt.Printf("No persisted model for user: %s\n", opts.UserID)
		return
	}

	fmt.Printf("Model for user: %s\n", m.UserID)
	fmt.Println("====================")
	fmt.Printf("Last Updated: %s\n", m.LastUpdated.Format(time.RFC3339))
	fmt.Printf("Samples Used: %d\n", m.SamplesUsed)
	fmt.Printf("Overall Confidence: %.2f\n", m.OverallConfidence)
	fmt.Printf("Global Estimation Accuracy: %.2f\n", m.Estimation.GlobalAccuracy)
	fmt.Printf("Optimal Focus: %d minutes\n", m.Productivity.OptimalFocusMinutes)
	if len(m.Estimation.ImprovementSuggestions) > 0 {
		fmt.Println("\nImprovement Suggestions:")
		for _, s := range m.Estimation.ImprovementSuggestions {
			fmt.Printf("- %s\n", s)
		}
	}
}

func doModelRebuild(cfg *config.Config, opts *ModelOptions) {
	if opts.UserID == "" {
		fmt.Println("Error: --user is required for rebuild")
		os.Exit(1)
	}

	sqlStore := openSQLStore(cfg)
	defer sqlStore.Close()

	eventStore, err := events.NewStore(cfg.Events.BaseDir)
	if err != nil {
		log.Fatalf("Failed to open event store: %v", err)
	}
	defer eventStore.Close()

	models := model.NewStore(sqlStore)
	builder, err := model.NewBuilder(&cfg.Model, eventStore, sqlStore, models)
	if err != nil {
		log.Fatalf("Failed to create builder: %v", err)
	}

	fmt.Printf("Rebuilding model for user: %s\n", opts.UserID)
	m, err := builder.Build(context.Background(), opts.UserID)
	if err != nil {
		log.Fatalf("Rebuild failed: %v", err)
	}
	fmt.Printf("✓ Rebuilt from %d samples (confidence %.2f)\n", m.SamplesUsed, m.OverallConfidence)
}

func doModelReset(cfg *config.Config, opts *ModelOptions) {
	if opts.UserID == "" {
		fmt.Println("Error: --user is required for reset")
		os.Exit(1)
	}

	sqlStore := openSQLStore(cfg)
	defer sqlStore.Close()

	fmt.Printf("Resetting model for user: %s\n", opts.UserID)
	if err := sqlStore.DeleteUserModel(context.Background(), opts.UserID); err != nil {
		log.Fatalf("Failed to reset model: %v", err)
	}
	fmt.Println("✓ Successfully reset model. Event history is untouched.")
}

func openSQLStore(cfg *config.Config) *store.SQLStore {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sqlStore, err := store.Open(ctx, cfg.Store)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	return sqlStore
}

func loadMinimalConfig() *config.Config {
	wd, _ := os.Getwd()
	cfg, err := config.LoadConfig(filepath.Join(wd, "config.yaml"))
	if err != nil || cfg == nil {
		cfg = config.DefaultConfig()
	}
	applyEnvOverrides(cfg)
	return cfg
}
