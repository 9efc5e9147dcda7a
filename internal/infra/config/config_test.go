package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talentsync/internal/infra/config"
)

func TestLoad_DefaultsToMemoryMode(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.StorageMode)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 5*time.Second, cfg.TypingTTL)
	assert.Equal(t, 3*time.Second, cfg.TypingIdleWindow)
	assert.Equal(t, 5*time.Minute, cfg.ProfileCacheTTL)
	assert.Equal(t, []time.Duration{time.Second, 5 * time.Second, 30 * time.Second}, cfg.RetryBackoff)
}

func TestLoad_FullModeRequiresBackends(t *testing.T) {
	t.Setenv("STORAGE_MODE", "full")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MONGO_URI")

	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	_, err = config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SCYLLA_HOSTS")

	t.Setenv("SCYLLA_HOSTS", "127.0.0.1,127.0.0.2")
	t.Setenv("KAFKA_BROKERS", "localhost:9092")
	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"127.0.0.1", "127.0.0.2"}, cfg.ScyllaHosts)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("TYPING_TTL", "soon")
	_, err := config.Load()
	assert.Error(t, err)
}

func TestLoad_RetryBackoffList(t *testing.T) {
	t.Setenv("RETRY_BACKOFF", "250ms, 2s ,1m")
	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{250 * time.Millisecond, 2 * time.Second, time.Minute}, cfg.RetryBackoff)
}
