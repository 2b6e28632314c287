package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"tally/internal/amqp"
	"tally/internal/auth"
	"tally/internal/config"
	apphttp "tally/internal/http"
	"tally/internal/log"
	"tally/internal/services"
	"tally/internal/storage"
)

func main() {
	// .env is for local development; missing file is fine in production.
	_ = godotenv.Load()

	logger := log.New(log.ComponentApp)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", log.FieldError, err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	if cfg.UsingDefaultSecret() {
		logger.Warn("JWT_SECRET is not set, falling back to the built-in development secret; DO NOT run this in production")
	}

	repo, err := storage.NewRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("failed to open database", log.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// The event bus is optional: without it, rows still land in SQLite
	// and the worker's backup scan exports them.
	var publisher services.ExportPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("failed to connect to AMQP", log.FieldError, err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		publisher = amqpClient
		logger.Info("AMQP export events enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled, relying on the worker's pending scan")
	}

	tokens := auth.NewTokenService(cfg.JWTSecret)
	authSvc := services.NewAuthService(repo, tokens)
	ledgerSvc := services.NewLedgerService(repo, publisher)

	srv := apphttp.NewServer(":"+cfg.Port, authSvc, ledgerSvc, tokens)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", log.FieldError, err)
		}
		cancel()
	}()

	logger.Info("starting server", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("server stopped")
}
