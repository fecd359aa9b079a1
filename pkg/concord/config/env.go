package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CONCORD_"

// ApplyEnv overrides fields from CONCORD_* environment variables. Unparseable
// numbers and durations are ignored.
func (c *Config) ApplyEnv() {
	c.Language = envOr("LANGUAGE", c.Language)
	c.Tool = envOr("TOOL", c.Tool)
	c.BodyLabels = envList("BODY_LABELS", c.BodyLabels)
	c.Layers = envList("LAYERS", c.Layers)
	c.Workers = envInt("WORKERS", c.Workers)
	c.Engine.URL = envOr("ENGINE_URL", c.Engine.URL)
	c.Engine.Timeout = envDuration("ENGINE_TIMEOUT", c.Engine.Timeout)
	c.Store.Path = envOr("STORE_PATH", c.Store.Path)
	c.Server.Addr = envOr("SERVER_ADDR", c.Server.Addr)
	c.Log.Level = envOr("LOG_LEVEL", c.Log.Level)
	c.Log.Format = envOr("LOG_FORMAT", c.Log.Format)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// envList splits a comma-separated value.
func envList(key string, fallback []string) []string {
	v := os.Getenv(EnvPrefix + key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
