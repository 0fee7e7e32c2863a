// Copyright (C) 2026 Arbiter AI (dev@arbiterai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// The arbiter gateway exposes the verdict core over HTTP. It owns the
// BadgerDB handle, the telemetry stack, and (optionally) a drop-folder
// import inbox whose directory comes from ARBITER_INBOX_DIR.
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/ArbiterAI/ArbiterCore/services/gateway/routes"
	"github.com/ArbiterAI/ArbiterCore/services/gateway/telemetry"
	"github.com/ArbiterAI/ArbiterCore/services/verdict/core"
	"github.com/ArbiterAI/ArbiterCore/services/verdict/porting"
	badgerstore "github.com/ArbiterAI/ArbiterCore/services/verdict/storage/badger"
)

func main() {
	port := os.Getenv("ARBITER_PORT")
	if port == "" {
		port = "12400"
	}

	dataDir := os.Getenv("ARBITER_DATA_DIR")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			log.Fatalf("cannot determine home directory: %v", err)
		}
		dataDir = filepath.Join(home, ".arbiter", "data")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx := context.Background()
	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.DefaultConfig())
	if err != nil {
		log.Fatalf("failed to setup telemetry: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			slog.Error("telemetry shutdown failed", "error", err)
		}
	}()

	storeCfg := badgerstore.DefaultConfig()
	storeCfg.Path = dataDir
	storeCfg.Logger = logger
	db, err := badgerstore.OpenDB(storeCfg)
	if err != nil {
		log.Fatalf("failed to open the verdict store at %s: %v", dataDir, err)
	}
	defer db.Close()

	verdictCore, err := core.New(db, core.Config{Logger: logger})
	if err != nil {
		log.Fatalf("failed to build the verdict core: %v", err)
	}
	defer verdictCore.Close()

	// Drop-folder imports: any *.json landing in the inbox directory is
	// merge-imported, then renamed .imported or .rejected.
	if inboxDir := os.Getenv("ARBITER_INBOX_DIR"); inboxDir != "" {
		inbox, err := porting.NewInbox(verdictCore, porting.InboxConfig{
			Dir:    inboxDir,
			Logger: logger,
		})
		if err != nil {
			log.Fatalf("failed to build the import inbox: %v", err)
		}
		if err := inbox.Start(ctx); err != nil {
			log.Fatalf("failed to start the import inbox: %v", err)
		}
		defer inbox.Stop()
		slog.Info("Import inbox watching", "dir", inboxDir)
	}

	router := gin.Default()
	router.Use(otelgin.Middleware("arbiter-gateway"))

	routes.SetupRoutes(router, verdictCore, routes.Options{
		APIToken: os.Getenv("ARBITER_API_TOKEN"),
	})

	server := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	go func() {
		slog.Info("Starting the arbiter gateway", "port", port, "data_dir", dataDir)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Block until interrupted, then drain in-flight requests before the
	// deferred store close runs.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down the arbiter gateway")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}
}
