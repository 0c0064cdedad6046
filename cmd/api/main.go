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
	"time"

	"github.com/fcl-miniapp/internal/application/notification"
	"github.com/fcl-miniapp/internal/config"
	"github.com/fcl-miniapp/internal/infrastructure/dynamo"
	"github.com/fcl-miniapp/internal/infrastructure/metrics"
	"github.com/fcl-miniapp/internal/infrastructure/postgres"
	redisinfra "github.com/fcl-miniapp/internal/infrastructure/redis"
	"github.com/fcl-miniapp/internal/infrastructure/sns"
	"github.com/fcl-miniapp/internal/infrastructure/telegram"
	transporthttp "github.com/fcl-miniapp/internal/transport/http"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found, reading from environment")
	}

	if err := run(logger); err != nil {
		logger.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	ctx := context.Background()

	redisClient, err := redisinfra.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	ledger, closeLedger, err := newLedger(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeLedger()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	notifier := notification.NewNotifier(newSender(cfg, logger), cfg.NotifyTimeout, logger, m)

	router := transporthttp.NewRouter(cfg, &transporthttp.Deps{
		Drafts:   redisinfra.NewDraftStore(redisClient, logger),
		Ledger:   ledger,
		Verifier: telegram.NewVerifier(cfg.BotToken, cfg.MaxAuthAge),
		Notifier: notifier,
		Metrics:  m,
		Gatherer: reg,
		Logger:   logger,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.AppPort, "env", cfg.AppEnv,
			"ledger", cfg.LedgerBackend, "notify", cfg.NotifyTransport)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	// Pending confirmations are bounded by the notifier timeout.
	notifier.Wait()
	logger.Info("server stopped")
	return nil
}

// newLedger opens the configured ledger backend and creates its schema.
func newLedger(ctx context.Context, cfg *config.Config, logger *slog.Logger) (transporthttp.Ledger, func(), error) {
	switch cfg.LedgerBackend {
	case config.LedgerDynamo:
		client, err := dynamo.NewClient(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		dynamo.Bootstrap(ctx, client, cfg.DynamoTables)
		return dynamo.NewRegistrationRepo(client, cfg.DynamoTables.Registrations, cfg.DynamoTables.Counters), func() {}, nil
	default:
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := postgres.Bootstrap(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return postgres.NewRegistrationRepo(db), func() {
			if err := db.Close(); err != nil {
				logger.Warn("close database", "err", err)
			}
		}, nil
	}
}

// newSender picks the confirmation transport. A Telegram sender that cannot
// reach the Bot API at startup falls back to logging so submissions still work.
func newSender(cfg *config.Config, logger *slog.Logger) notification.Sender {
	switch cfg.NotifyTransport {
	case config.NotifySNS:
		s, err := sns.NewTopicSender(cfg)
		if err == nil {
			return s
		}
		logger.Warn("SNS sender not available, logging notifications instead", "err", err)
	case config.NotifyTelegram:
		s, err := telegram.NewSender(cfg.BotToken, cfg.NotifyTimeout)
		if err == nil {
			return s
		}
		logger.Warn("Telegram sender not available, logging notifications instead", "err", err)
	}
	return notification.NewLogSender(logger)
}
