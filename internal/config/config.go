// Package config reads server settings from the environment. A .env file, if
// present, is loaded by main before this runs.
package config

import (
	"os"

	"go.uber.org/zap/zapcore"
)

type Config struct {
	// Addr is the HTTP listen address.
	Addr string
	// LogLevel is a zap level name: debug, info, warn, error.
	LogLevel string
	// Title overrides the main-menu banner served at /thmj4n/title.txt.
	Title string
}

func FromEnv() Config {
	cfg := Config{
		Addr:     ":8080",
		LogLevel: "info",
	}
	if v := os.Getenv("LOBBY_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("LOBBY_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("LOBBY_TITLE"); v != "" {
		cfg.Title = v
	}
	return cfg
}

// ZapLevel parses LogLevel, falling back to info on unknown names.
func (c Config) ZapLevel() zapcore.Level {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return zapcore.InfoLevel
	}
	return level
}
