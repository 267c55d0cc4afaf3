package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/rdhtml/internal/api"
	"github.com/dgallion1/rdhtml/internal/config"
	"github.com/dgallion1/rdhtml/internal/labelfile"
	"github.com/dgallion1/rdhtml/internal/labels"
	"github.com/dgallion1/rdhtml/internal/labelstore"
	"github.com/dgallion1/rdhtml/internal/pipeline"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Label sources are optional; leave the interfaces nil when unset.
	var store pipeline.LabelStore
	var client *labelstore.Client
	if cfg.LabelstoreURL != "" {
		client = labelstore.NewClient(cfg.LabelstoreURL, cfg.LabelstoreAPIKey)
		store = client
	}
	var local labels.External
	if cfg.LabelDir != "" {
		local = labelfile.NewDir(cfg.LabelDir, log)
	}

	orch := pipeline.NewOrchestrator(cfg, store, local, log)
	orch.Start(ctx)

	srv := api.NewServer(orch, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		orch.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		if client != nil {
			client.Close()
		}
	}()

	log.Info("starting rdhtml",
		"port", cfg.Port,
		"workers", cfg.WorkerCount,
		"labelstore", cfg.LabelstoreURL != "",
		"label_dir", cfg.LabelDir,
	)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
