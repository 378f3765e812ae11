package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "0123456789abcdef0123456789abcdef"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("FINTRACK_JWT_SECRET", secret)

	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "fintrack.db", cfg.DBPath)
	assert.Equal(t, "fintrack", cfg.AMQPExchange)
	assert.Equal(t, "invitation_mail", cfg.AMQPQueue)
	assert.Equal(t, time.Hour, cfg.SweepInterval)
	assert.False(t, cfg.MirrorEnabled())
	assert.False(t, cfg.PushEnabled())
	require.NoError(t, cfg.Validate())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("FINTRACK_JWT_SECRET", secret)
	t.Setenv("FINTRACK_PORT", "9090")
	t.Setenv("FINTRACK_BASE_URL", "https://fintrack.example.com/")
	t.Setenv("FINTRACK_SWEEP_INTERVAL", "15m")
	t.Setenv("FINTRACK_S3_BUCKET", "snapshots")
	t.Setenv("FINTRACK_S3_ACCESS_KEY", "ak")
	t.Setenv("FINTRACK_S3_SECRET_KEY", "sk")
	t.Setenv("FINTRACK_ARCHIVE_PASSPHRASE", "hunter2")

	cfg := Load()
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "https://fintrack.example.com", cfg.BaseURL)
	assert.Equal(t, 15*time.Minute, cfg.SweepInterval)
	assert.True(t, cfg.MirrorEnabled())
	require.NoError(t, cfg.Validate())
}

func TestLoadIgnoresBadDuration(t *testing.T) {
	t.Setenv("FINTRACK_SWEEP_INTERVAL", "soon")
	assert.Equal(t, time.Hour, Load().SweepInterval)
}

func TestValidateCollectsErrors(t *testing.T) {
	cfg := Load()
	cfg.Port = "http"
	cfg.JWTSecret = "short"
	cfg.AMQPURL = "http://broker"
	cfg.ArchivePassphrase = "only-half"
	cfg.VAPIDPublicKey = "pub"

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	for _, want := range []string{
		"invalid port",
		"FINTRACK_JWT_SECRET",
		"AMQP URL scheme",
		"must be set together",
		"VAPID",
	} {
		assert.True(t, strings.Contains(msg, want), "missing %q in %s", want, msg)
	}
}
