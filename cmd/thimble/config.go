package main

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type config struct {
	LogLevel  slog.Level
	LogFormat string
}

// loadConfig reads .env files when present, then the process environment.
func loadConfig(envFiles ...string) config {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	_ = godotenv.Load(envFiles...)

	return config{
		LogLevel:  parseLevel(env("THIMBLE_LOG_LEVEL", "warn")),
		LogFormat: strings.ToLower(env("THIMBLE_LOG_FORMAT", "text")),
	}
}

func (c config) logger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(value string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(value)); err != nil {
		return slog.LevelWarn
	}
	return level
}

func env(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
