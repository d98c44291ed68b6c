package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, StoragePostgres, cfg.Storage)
	assert.Equal(t, 20, cfg.Cache.TestCapacity)
	assert.Equal(t, 100, cfg.Cache.AnswerCapacity)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "development-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, 8*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Events.GetKafkaBrokers())
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("STORAGE", "memory")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("CACHE_TTL", "30s")
	t.Setenv("EVENTS_PUBLISHER", "gochannel")
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092,")
	t.Setenv("RATE_LIMIT_BURST", "3")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, StorageMemory, cfg.Storage)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, 30*time.Second, cfg.ContentCache().TTL)
	assert.Equal(t, "gochannel", cfg.Events.Publisher)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Events.GetKafkaBrokers())
	assert.Equal(t, 3, cfg.RateLimit.Burst)
}

func TestLoadConfig_File(t *testing.T) {
	dir := t.TempDir()
	yaml := "storage: memory\ncache:\n  question_capacity: 7\nlogging:\n  level: debug\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, StorageMemory, cfg.Storage)
	assert.Equal(t, 7, cfg.Cache.QuestionCapacity)
	assert.Equal(t, "debug", cfg.LogConfig().Level)

	_, err = LoadConfig(t.TempDir())
	assert.NoError(t, err, "a missing config file is not an error")
}

func TestLoadConfig_Rejects(t *testing.T) {
	t.Run("unknown storage", func(t *testing.T) {
		t.Setenv("STORAGE", "mongo")
		_, err := LoadConfig()
		assert.Error(t, err)
	})

	t.Run("production without secret", func(t *testing.T) {
		t.Setenv("ENVIRONMENT", "production")
		_, err := LoadConfig()
		assert.ErrorIs(t, err, ErrMissingSecret)
	})
}

func TestEventConfig_Factories(t *testing.T) {
	logger := discardLogger()

	disabled := &EventConfig{Enabled: false}
	sub, err := disabled.CreateSubscriber(logger)
	require.NoError(t, err)
	assert.Nil(t, sub)

	local := &EventConfig{Enabled: true, Publisher: "gochannel", SessionTopic: "sessions"}
	pub, err := local.CreateEventPublisher(logger)
	require.NoError(t, err)
	sub, err = local.CreateSubscriber(logger)
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Same(t, local.channel, sub, "publisher and subscriber share one channel")
	require.NoError(t, pub.Close())

	mock := &EventConfig{Enabled: true, Publisher: "carrier-pigeon"}
	pub, err = mock.CreateEventPublisher(logger)
	require.NoError(t, err)
	assert.NotNil(t, pub)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
