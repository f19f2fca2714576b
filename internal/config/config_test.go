package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("LOBBY_ADDR", "")
	t.Setenv("LOBBY_LOG_LEVEL", "")
	t.Setenv("LOBBY_TITLE", "")

	cfg := FromEnv()
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.Title)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("LOBBY_ADDR", ":9090")
	t.Setenv("LOBBY_LOG_LEVEL", "debug")
	t.Setenv("LOBBY_TITLE", "Welcome back")

	cfg := FromEnv()
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "Welcome back", cfg.Title)
}

func TestZapLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, Config{LogLevel: "debug"}.ZapLevel())
	assert.Equal(t, zapcore.WarnLevel, Config{LogLevel: "warn"}.ZapLevel())
	// Unknown names fall back to info instead of failing startup.
	assert.Equal(t, zapcore.InfoLevel, Config{LogLevel: "loud"}.ZapLevel())
}
