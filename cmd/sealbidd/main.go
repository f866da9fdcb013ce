// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/luxfi/sealbid/pkg/config"
	"github.com/luxfi/sealbid/pkg/log"
)

var (
	configPath = flag.String("config", "", "Path to a TOML config file")
	apiAddr    = flag.String("api-addr", "", "Override api.addr")
	adminAddr  = flag.String("admin-addr", "", "Override admin.addr")
	dataDir    = flag.String("data-dir", "", "Override storage.data_dir")
	db         = flag.String("db", "", "Override storage.db (memory, badger)")
	logLevel   = flag.String("log-level", "", "Override log.level")

	// Version info
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	flag.Parse()

	fmt.Printf("sealbid daemon (sealbidd) %s (commit: %s, built: %s)\n", Version, GitCommit, BuildTime)

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger, err := log.NewWithLevel(cfg.Log.Level, cfg.Log.Format, cfg.Log.Dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	node, err := NewNode(cfg, logger)
	if err != nil {
		logger.Fatal("failed to create node", log.Error(err))
		logger.Sync()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := node.Start(ctx); err != nil {
		logger.Fatal("failed to start node", log.Error(err))
		logger.Sync()
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := node.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", log.Error(err))
	}
	logger.Info("daemon stopped")
}

func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if *apiAddr != "" {
		cfg.API.Addr = *apiAddr
	}
	if *adminAddr != "" {
		cfg.Admin.Addr = *adminAddr
	}
	if *dataDir != "" {
		cfg.Storage.DataDir = *dataDir
	}
	if *db != "" {
		cfg.Storage.DB = *db
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	return cfg, cfg.Validate()
}
