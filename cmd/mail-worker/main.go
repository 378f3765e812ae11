// Command mail-worker delivers queued invitation emails through Postmark.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/dukerupert/fintrack/internal/config"
	"github.com/dukerupert/fintrack/internal/email"
	"github.com/dukerupert/fintrack/internal/logging"
	"github.com/dukerupert/fintrack/internal/mailqueue"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := logging.Setup(cfg.LogLevel)

	if cfg.AMQPURL == "" {
		logger.Error("FINTRACK_AMQP_URL is required")
		os.Exit(1)
	}
	sender := email.NewClient(cfg.PostmarkToken, cfg.FromEmail, cfg.BaseURL)
	if !sender.Configured() {
		logger.Error("FINTRACK_POSTMARK_TOKEN and FINTRACK_FROM_EMAIL are required")
		os.Exit(1)
	}

	queue, err := mailqueue.Dial(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logging.Component(logger, "mailqueue"))
	if err != nil {
		logger.Error("failed to connect to AMQP", "error", err)
		os.Exit(1)
	}
	defer queue.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := queue.Consume(ctx, sender); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("consumer stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("mail worker stopped")
}
