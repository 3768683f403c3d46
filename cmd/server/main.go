package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rpggio/kinboard/internal/bootstrap"
	"github.com/rpggio/kinboard/internal/config"
	"github.com/rpggio/kinboard/internal/logging"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := config.LoadDotEnv(".env.local", ".env"); err != nil {
		fmt.Fprintf(os.Stderr, "env file error: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger, closeLog, err := logging.New(os.Stdout, cfg.Log.Level, cfg.Log.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "log file error: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		closeLog()
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	app, err := bootstrap.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("starting: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if n, err := app.MigrateLegacy(ctx); err != nil {
		logger.Error("legacy notification import failed", "error", err)
	} else if n > 0 {
		logger.Info("legacy notifications imported", "entries", n)
	}

	handler, err := app.Handler()
	if err != nil {
		_ = app.Close(context.Background())
		return err
	}

	httpServer := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server listening",
			"addr", cfg.Addr(),
			"storage_root", cfg.Storage.Root,
			"notifications", cfg.Notifications.Backend,
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", "error", err)
		}
		return app.Close(shutdownCtx)
	})

	return g.Wait()
}
