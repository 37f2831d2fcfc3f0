package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"certichain/internal/app"
	"certichain/internal/config"
	"certichain/internal/infra/logging"

	"golang.org/x/sync/errgroup"
)

func main() {
	cfg := config.FromEnv()

	logger, err := logging.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logging: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to init application")
	}
	defer application.Close()

	srv, err := application.Server(ctx)
	if err != nil {
		logger.WithError(err).Fatal("failed to init server")
	}

	g, gctx := errgroup.WithContext(ctx)
	if cfg.HistoryEnabled {
		g.Go(func() error { return application.Indexer.Run(gctx) })
	}
	g.Go(func() error { return srv.Run(gctx) })

	if err := g.Wait(); err != nil {
		logger.WithError(err).Error("server exited")
		application.Close()
		os.Exit(1)
	}
}
