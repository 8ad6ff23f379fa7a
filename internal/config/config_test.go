package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.App.Port)
	assert.Equal(t, "rescuelink", cfg.Database.Database)
	assert.Equal(t, 16, cfg.SOS.FanOutConcurrency)
	assert.Equal(t, 5*time.Minute, cfg.SOS.ReminderInterval)
	assert.Equal(t, 3, cfg.SOS.ReminderMaxPerVolunteer)
	assert.Equal(t, "rescuelink.events", cfg.Events.Exchange)
	assert.False(t, cfg.Queue.Enabled())
	assert.False(t, cfg.Telemetry.TracingEnabled())
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("SOS_REMINDER_INTERVAL", "30s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("QUEUE_REDIS_URL", "redis://localhost:6379/2")
	t.Setenv("OTEL_SAMPLE_RATIO", "0.25")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.App.Port)
	assert.Equal(t, 30*time.Second, cfg.SOS.ReminderInterval)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Security.CORSAllowedOrigins)
	assert.True(t, cfg.Queue.Enabled())
	assert.Equal(t, 0.25, cfg.Telemetry.SampleRatio)
}

func TestValidateRejectsDefaultSecretInProduction(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	assert.ErrorContains(t, err, "JWT_SECRET")
}

func TestValidateRejectsBadPort(t *testing.T) {
	t.Setenv("APP_PORT", "70000")

	_, err := Load()
	assert.Error(t, err)
}

func TestInvalidNumbersFallBackToDefaults(t *testing.T) {
	t.Setenv("SOS_FANOUT_CONCURRENCY", "lots")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.SOS.FanOutConcurrency)
}
