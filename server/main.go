package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/meikuraledutech/canvas"
	"github.com/meikuraledutech/canvas/config"
	"github.com/meikuraledutech/canvas/memstore"
	"github.com/meikuraledutech/canvas/postgres"
	"github.com/meikuraledutech/canvas/workspace"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load(os.Getenv("CANVAS_CONFIG"))
	if err != nil {
		log.Fatal(err)
	}
	logger := cfg.Logger(os.Stderr)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	backend, closeBackend, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeBackend()

	store, err := workspace.Open(ctx, backend, cfg.WorkspaceOptions(logger))
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			logger.Warn("final persist failed", "error", err)
		}
	}()

	app := newApp(store, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return store.Run(gctx)
	})
	g.Go(func() error {
		logger.Info("listening", "addr", cfg.Server.Addr, "backend", cfg.Storage.Backend)
		return app.Listen(cfg.Server.Addr, fiber.ListenConfig{DisableStartupMessage: true})
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return app.ShutdownWithContext(shutdownCtx)
	})
	return g.Wait()
}

func openBackend(ctx context.Context, cfg *config.Config) (canvas.Store, func(), error) {
	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		pool, err := postgres.Connect(ctx, cfg.Storage.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		pg := postgres.New(pool)
		if err := pg.CreateSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("create schema: %w", err)
		}
		return pg, pool.Close, nil
	default:
		return memstore.New(), func() {}, nil
	}
}
