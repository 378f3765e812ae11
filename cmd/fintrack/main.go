package main

import (
	"context"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dukerupert/fintrack/internal/archive"
	"github.com/dukerupert/fintrack/internal/auth"
	"github.com/dukerupert/fintrack/internal/config"
	"github.com/dukerupert/fintrack/internal/database"
	"github.com/dukerupert/fintrack/internal/email"
	"github.com/dukerupert/fintrack/internal/housekeeping"
	"github.com/dukerupert/fintrack/internal/logging"
	"github.com/dukerupert/fintrack/internal/mailqueue"
	"github.com/dukerupert/fintrack/internal/push"
	"github.com/dukerupert/fintrack/internal/server"
	"github.com/dukerupert/fintrack/internal/store"
)

func main() {
	// .env is optional; real environment variables take precedence
	_ = godotenv.Load()

	cfg := config.Load()
	logger := logging.Setup(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	tokens, err := auth.NewTokens([]byte(cfg.JWTSecret), cfg.TokenTTL)
	if err != nil {
		logger.Error("failed to set up tokens", "error", err)
		os.Exit(1)
	}

	var opts server.Options

	switch {
	case cfg.AMQPURL != "":
		queue, err := mailqueue.Dial(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logging.Component(logger, "mailqueue"))
		if err != nil {
			logger.Error("failed to connect to AMQP", "error", err)
			os.Exit(1)
		}
		defer queue.Close()
		opts.Mailer = queue
		logger.Info("invitation mail is queued", "queue", cfg.AMQPQueue)
	case cfg.PostmarkToken != "":
		opts.Mailer = email.NewClient(cfg.PostmarkToken, cfg.FromEmail, cfg.BaseURL)
		logger.Info("invitation mail is sent directly through Postmark")
	default:
		logger.Warn("no mail transport configured; invitation emails are disabled")
	}

	if cfg.MirrorEnabled() {
		opts.Mirror = archive.NewMirror(archive.S3Config{
			Endpoint:  cfg.S3Endpoint,
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		}, cfg.ArchivePassphrase, logging.Component(logger, "archive"))
		logger.Info("snapshot mirror enabled", "bucket", cfg.S3Bucket)
	}

	if cfg.PushEnabled() {
		opts.Push = push.NewService(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey, cfg.VAPIDSubject,
			store.NewPushStore(db), logging.Component(logger, "push"))
	}
	opts.OriginPatterns = originPatterns(cfg.BaseURL)

	srv := server.New(db, tokens, opts, logger)

	sweeper := housekeeping.NewScheduler(srv.Invitations(), cfg.SweepInterval,
		logging.Component(logger, "housekeeping"), srv.RateLimiter())
	sweeper.Start(context.Background())

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("fintrack listening", "addr", httpServer.Addr, "base_url", cfg.BaseURL)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	sweeper.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	srv.Drain()
}

// originPatterns allows websocket upgrades from the configured base URL host.
func originPatterns(baseURL string) []string {
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return nil
	}
	return []string{u.Host}
}
