package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/MJE43/onering-odds/internal/api"
	"github.com/MJE43/onering-odds/internal/config"
	"github.com/MJE43/onering-odds/internal/engine"
	"github.com/MJE43/onering-odds/internal/logging"
	"github.com/MJE43/onering-odds/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "oddsd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogDev)
	if err != nil {
		return err
	}
	defer logger.Sync()

	start := time.Now()
	batch, err := engine.GenerateBatch(cfg.SampleSize, cfg.Seed)
	if err != nil {
		return fmt.Errorf("generate batch: %w", err)
	}
	logger.Info("batch_generated",
		zap.Int("sample_size", batch.Len()),
		zap.Int64("seed", batch.Seed()),
		zap.Duration("duration", time.Since(start)),
	)

	// A nil *SQLiteDB must not reach the server as a non-nil store.DB.
	var db store.DB
	if cfg.PersistenceEnabled() {
		sqlite, err := store.NewSQLiteDB(cfg.DBPath)
		if err != nil {
			return err
		}
		defer sqlite.Close()
		if err := sqlite.Migrate(); err != nil {
			return err
		}
		db = sqlite
		logger.Info("database_ready", zap.String("path", cfg.DBPath))
	} else {
		logger.Warn("persistence_disabled")
	}

	server := api.NewServer(batch, db, logger, api.Options{
		Workers:        cfg.Workers,
		RequestTimeout: cfg.RequestTimeout,
	})
	if _, err := server.Start(cfg.HTTPAddr); err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.HTTPAddr, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Info("shutting_down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
