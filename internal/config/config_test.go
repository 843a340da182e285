package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o644))
	return dir
}

func TestLoadConfigDefaults(t *testing.T) {
	dir := writeConfig(t, "server:\n  port: \"9090\"\n")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, 5*time.Second, cfg.Tracking.FlushInterval())
	assert.Equal(t, 2.0, cfg.Tracking.MaxAcceptedDeltaSeconds)
	assert.Equal(t, 95.0, cfg.Tracking.CompletionThresholdPercent)
	assert.Equal(t, 70.0, cfg.Evaluation.DefaultMinPassPercent)
	assert.Equal(t, 3, cfg.Evaluation.MaxNumberRetries)
	assert.Equal(t, "log", cfg.Events.Driver)
	assert.Equal(t, "module.completed", cfg.Events.Channel)
	assert.Equal(t, dir, cfg.Dir)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	dir := writeConfig(t, "events:\n  driver: log\n")
	t.Setenv("EVENTS_DRIVER", "redis")
	t.Setenv("JWT_SECRET", "from-env")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "redis", cfg.Events.Driver)
	assert.Equal(t, "from-env", cfg.JWT.Secret)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:     ServerConfig{Mode: "debug"},
			Tracking:   TrackingConfig{FlushIntervalSeconds: 5, CompletionThresholdPercent: 95},
			Evaluation: EvaluationConfig{MaxNumberRetries: 3},
			Events:     EventsConfig{Driver: "log"},
		}
	}
	require.NoError(t, valid().Validate())

	tests := map[string]func(c *Config){
		"short secret in release": func(c *Config) { c.Server.Mode = "release"; c.JWT.Secret = "short" },
		"zero flush interval":     func(c *Config) { c.Tracking.FlushIntervalSeconds = 0 },
		"threshold above 100":     func(c *Config) { c.Tracking.CompletionThresholdPercent = 101 },
		"no retries":              func(c *Config) { c.Evaluation.MaxNumberRetries = 0 },
		"unknown event driver":    func(c *Config) { c.Events.Driver = "kafka" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			c := valid()
			mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}
