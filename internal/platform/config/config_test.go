package config

import (
	"path/filepath"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noDotenv(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(noDotenv(t))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, civil.Time{Hour: 8}, cfg.Scheduling.DayStart)
	assert.Equal(t, civil.Time{Hour: 18}, cfg.Scheduling.DayEnd)
	assert.Equal(t, 15*time.Minute, cfg.Scheduling.DefaultDuration)
	assert.Equal(t, 50, cfg.Scheduling.MaxBatchSize)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Empty(t, cfg.Database.URL)
	assert.NotNil(t, cfg.Scheduling.Location)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 10, cfg.RateLimit.LoginRequests)
	assert.Equal(t, time.Minute, cfg.RateLimit.BoardWindow)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("EXAMSITE_SERVER_ADDR", ":9090")
	t.Setenv("EXAMSITE_SCHEDULING_TIMEZONE", "UTC")
	t.Setenv("EXAMSITE_SCHEDULING_DAY_START", "09:30")
	t.Setenv("EXAMSITE_SCHEDULING_BREAK_DURATION", "5m")
	t.Setenv("EXAMSITE_KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")

	cfg, err := Load(noDotenv(t))
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, time.UTC, cfg.Scheduling.Location)
	assert.Equal(t, civil.Time{Hour: 9, Minute: 30}, cfg.Scheduling.DayStart)
	assert.Equal(t, 5*time.Minute, cfg.Scheduling.BreakDuration)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	t.Run("inverted day window", func(t *testing.T) {
		t.Setenv("EXAMSITE_SCHEDULING_DAY_START", "19:00")
		_, err := Load(noDotenv(t))
		require.Error(t, err)
	})

	t.Run("unknown time zone", func(t *testing.T) {
		t.Setenv("EXAMSITE_SCHEDULING_TIMEZONE", "Mars/Olympus")
		_, err := Load(noDotenv(t))
		require.Error(t, err)
	})

	t.Run("zero login budget", func(t *testing.T) {
		t.Setenv("EXAMSITE_RATELIMIT_LOGIN_REQUESTS", "0")
		_, err := Load(noDotenv(t))
		require.Error(t, err)
	})

	t.Run("dev secrets in production", func(t *testing.T) {
		t.Setenv("EXAMSITE_ENVIRONMENT", "production")
		_, err := Load(noDotenv(t))
		require.Error(t, err)
	})
}
