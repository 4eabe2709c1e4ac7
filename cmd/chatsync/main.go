package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chatsync/internal/chatdebug"
	"chatsync/internal/config"
	"chatsync/internal/constants"
	"chatsync/internal/database"
	apperrors "chatsync/internal/errors"
	"chatsync/internal/registry"
	"chatsync/internal/retry"
	"chatsync/internal/service"
	"chatsync/internal/tracing"
	"chatsync/internal/version"

	"github.com/sirupsen/logrus"
)

var (
	// Version information (set at build time)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	// CLI flags
	verbose     = flag.Bool("verbose", false, "Enable verbose logging")
	configPath  = flag.String("config", "config.json", "Path to configuration file")
	showVersion = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	version.Set(Version, BuildTime, GitCommit)

	if *showVersion {
		info := version.Get()
		fmt.Printf("chatsync %s\nBuild Time: %s\nGit Commit: %s\n", info.Version, info.BuildTime, info.GitCommit)
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logrus.Fatalf("Application error: %v", err)
	}
}

func run(ctx context.Context) error {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	logger.WithFields(logrus.Fields{
		"version": Version,
		"build":   BuildTime,
		"commit":  GitCommit,
	}).Info("Starting chatsync")

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else if cfg.LogLevel != "" {
		level, err := logrus.ParseLevel(cfg.LogLevel)
		if err != nil {
			logger.Warnf("Invalid log level %q, defaulting to info", cfg.LogLevel)
			logger.SetLevel(logrus.InfoLevel)
		} else {
			logger.SetLevel(level)
		}
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	tracingManager := tracing.NewManager(cfg.Tracing, logger)
	if err := tracingManager.Initialize(ctx); err != nil {
		logger.Warnf("Failed to initialize tracing: %v", err)
	}
	defer func() {
		if err := tracingManager.Shutdown(context.Background()); err != nil {
			logger.Warnf("Failed to shutdown tracing: %v", err)
		}
	}()

	// Initialize database with exponential backoff retry
	var db *database.Database
	backoff := retry.NewBackoff(retry.BackoffConfig{
		InitialDelay: time.Duration(cfg.Retry.InitialBackoffMs) * time.Millisecond,
		MaxDelay:     time.Duration(cfg.Retry.MaxBackoffMs) * time.Millisecond,
		Multiplier:   2.0,
		MaxAttempts:  constants.DefaultDatabaseRetryAttempts,
		Jitter:       true,
	})

	errLogger := apperrors.WrapLogger(logger)
	err = backoff.Retry(ctx, func() error {
		var initErr error
		db, initErr = database.New(cfg.Database.Path)
		if initErr != nil {
			errLogger.LogRetryableError(
				apperrors.WrapRetryable(initErr, apperrors.ErrCodeDatabaseConnection, "database initialization failed"),
				"Retrying database initialization",
			)
		}
		return initErr
	})
	if err != nil {
		return fmt.Errorf("failed to initialize database after retries: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Warnf("Failed to close database: %v", err)
		}
	}()

	debugStore := chatdebug.NewStoreWithConfig(
		cfg.Chat.DebugEnabled,
		cfg.Chat.DebugEventCapacity,
		time.Duration(cfg.Chat.DebugEventMaxAgeMin)*time.Minute,
		time.Now,
	)
	if debugStore.Enabled() {
		logger.Info("Chat debug store enabled")
	}

	authorizer := newTenantAuthorizer()
	reg := registry.New(authorizer, debugStore, logger)
	msgService := service.NewMessageService(db, reg, authorizer, debugStore, logger)

	scheduler := service.NewScheduler(db, cfg.Chat.RetentionDays, 24, logger)
	go scheduler.Start(ctx)
	defer scheduler.Stop()

	server := NewServer(cfg, msgService, reg, debugStore, logger)
	serverErrCh := make(chan error, constants.ServerErrorChannelSize)
	go func() {
		if err := server.Start(); err != nil {
			serverErrCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	case err := <-serverErrCh:
		logger.Error(err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(constants.DefaultGracefulShutdownSec)*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server gracefully: %w", err)
	}

	// Drain in-flight broadcast fan-outs before exit.
	msgService.Flush()

	logger.Info("Server shutdown completed")
	return nil
}
