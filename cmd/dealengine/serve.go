package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/travelintel/dealengine/internal/config"
	"github.com/travelintel/dealengine/internal/feed"
	"github.com/travelintel/dealengine/internal/obs"
	"github.com/travelintel/dealengine/internal/service"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the deal pipeline, background monitors, and HTTP/WS front door",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := obs.New(obs.NewConfigFromEnv())
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync()

	var opts []service.Option
	if cfg.Feed.ListingsDSN != "" {
		src, err := feed.NewSQLListingsSource(cfg.Feed.ListingsDSN, cfg.Feed.BatchLimit)
		if err != nil {
			return fmt.Errorf("open listings source: %w", err)
		}
		opts = append(opts, service.WithListingsSource(src))
	}

	svc, err := service.New(cfg, logger, opts...)
	if err != nil {
		return fmt.Errorf("build service: %w", err)
	}

	ctx, cancelBackground := context.WithCancel(context.Background())
	if err := svc.Start(ctx); err != nil {
		cancelBackground()
		return fmt.Errorf("start service: %w", err)
	}

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: svc.Router(),
	}
	go func() {
		logger.Info(fmt.Sprintf("dealengine: listening on :%d", cfg.HTTPPort))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("dealengine: shutting down")
	cancelBackground()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http server shutdown did not complete cleanly")
	}
	return svc.Shutdown(shutdownCtx)
}
