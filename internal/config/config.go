package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const minJWTSecret = 32

type Config struct {
	// HTTP server
	Port     string
	BaseURL  string
	LogLevel string

	// Database
	DBPath string

	// Auth
	JWTSecret string
	TokenTTL  time.Duration

	// Postmark
	PostmarkToken string
	FromEmail     string

	// AMQP (optional; invitation mail is queued when set)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Snapshot mirror (optional)
	S3Endpoint        string
	S3Bucket          string
	S3Region          string
	S3AccessKey       string
	S3SecretKey       string
	ArchivePassphrase string

	// Web Push (optional)
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	VAPIDSubject    string

	SweepInterval time.Duration
}

func Load() *Config {
	return &Config{
		Port:     getEnv("FINTRACK_PORT", "8080"),
		BaseURL:  strings.TrimRight(getEnv("FINTRACK_BASE_URL", "http://localhost:8080"), "/"),
		LogLevel: getEnv("FINTRACK_LOG_LEVEL", "info"),

		DBPath: getEnv("FINTRACK_DB_PATH", "fintrack.db"),

		JWTSecret: getEnv("FINTRACK_JWT_SECRET", ""),
		TokenTTL:  getEnvDuration("FINTRACK_TOKEN_TTL", 30*24*time.Hour),

		PostmarkToken: getEnv("FINTRACK_POSTMARK_TOKEN", ""),
		FromEmail:     getEnv("FINTRACK_FROM_EMAIL", ""),

		AMQPURL:      getEnv("FINTRACK_AMQP_URL", ""),
		AMQPExchange: getEnv("FINTRACK_AMQP_EXCHANGE", "fintrack"),
		AMQPQueue:    getEnv("FINTRACK_AMQP_QUEUE", "invitation_mail"),

		S3Endpoint:        getEnv("FINTRACK_S3_ENDPOINT", ""),
		S3Bucket:          getEnv("FINTRACK_S3_BUCKET", ""),
		S3Region:          getEnv("FINTRACK_S3_REGION", "auto"),
		S3AccessKey:       getEnv("FINTRACK_S3_ACCESS_KEY", ""),
		S3SecretKey:       getEnv("FINTRACK_S3_SECRET_KEY", ""),
		ArchivePassphrase: getEnv("FINTRACK_ARCHIVE_PASSPHRASE", ""),

		VAPIDPublicKey:  getEnv("FINTRACK_VAPID_PUBLIC_KEY", ""),
		VAPIDPrivateKey: getEnv("FINTRACK_VAPID_PRIVATE_KEY", ""),
		VAPIDSubject:    getEnv("FINTRACK_VAPID_SUBJECT", ""),

		SweepInterval: getEnvDuration("FINTRACK_SWEEP_INTERVAL", time.Hour),
	}
}

// MirrorEnabled reports whether snapshots should be mirrored to S3.
func (c *Config) MirrorEnabled() bool {
	return c.S3Bucket != "" && c.ArchivePassphrase != ""
}

func (c *Config) PushEnabled() bool {
	return c.VAPIDPublicKey != "" && c.VAPIDPrivateKey != ""
}

// Validate checks the whole configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if u, err := url.Parse(c.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Sprintf("invalid base URL '%s'", c.BaseURL))
	}

	if c.DBPath == "" {
		errs = append(errs, "database path cannot be empty")
	}

	if len(c.JWTSecret) < minJWTSecret {
		errs = append(errs, fmt.Sprintf("FINTRACK_JWT_SECRET must be at least %d bytes", minJWTSecret))
	}
	if c.TokenTTL < time.Minute {
		errs = append(errs, fmt.Sprintf("invalid token TTL %v: must be at least 1 minute", c.TokenTTL))
	}

	if c.PostmarkToken != "" && c.FromEmail == "" {
		errs = append(errs, "FINTRACK_FROM_EMAIL is required when a Postmark token is set")
	}

	if c.AMQPURL != "" {
		if u, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if u.Scheme != "amqp" && u.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", u.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errs = append(errs, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if (c.S3Bucket == "") != (c.ArchivePassphrase == "") {
		errs = append(errs, "FINTRACK_S3_BUCKET and FINTRACK_ARCHIVE_PASSPHRASE must be set together")
	}
	if c.S3Bucket != "" && (c.S3AccessKey == "" || c.S3SecretKey == "") {
		errs = append(errs, "S3 access key and secret key are required when a bucket is set")
	}

	if (c.VAPIDPublicKey == "") != (c.VAPIDPrivateKey == "") {
		errs = append(errs, "VAPID public and private keys must be set together")
	}

	if c.SweepInterval < time.Minute {
		errs = append(errs, fmt.Sprintf("invalid sweep interval %v: must be at least 1 minute", c.SweepInterval))
	} else if c.SweepInterval > 24*time.Hour {
		errs = append(errs, fmt.Sprintf("invalid sweep interval %v: must be at most 24 hours", c.SweepInterval))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
