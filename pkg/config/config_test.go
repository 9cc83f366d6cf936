package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("RATE_LIMIT_RPS", "")
	t.Setenv("MONGO_DB", "")

	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 10, cfg.RateLimitRPS)
	assert.Equal(t, "bizgram", cfg.MongoDB)
	assert.Equal(t, "@every 15m", cfg.RescoreCron)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("RATE_LIMIT_BURST", "3")
	t.Setenv("ENV", "production")

	cfg := Load()
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, 3, cfg.RateLimitBurst)
	assert.True(t, cfg.IsProduction())
}

func TestGetEnvIntRejectsGarbage(t *testing.T) {
	t.Setenv("RATE_LIMIT_RPS", "lots")
	assert.Equal(t, 7, getEnvInt("RATE_LIMIT_RPS", 7))
	t.Setenv("RATE_LIMIT_RPS", "-2")
	assert.Equal(t, 7, getEnvInt("RATE_LIMIT_RPS", 7))
}

func TestNewLogger(t *testing.T) {
	log, err := NewLogger("production", "debug")
	require.NoError(t, err)
	assert.NotNil(t, log)

	_, err = NewLogger("development", "loud")
	assert.Error(t, err)
}

func TestInitRedisDisabled(t *testing.T) {
	client, err := InitRedis("")
	require.NoError(t, err)
	assert.Nil(t, client)

	_, err = InitRedis("not a url")
	assert.Error(t, err)
}
