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
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `{"username":"target"}`))
	require.NoError(t, err)
	require.NoError(t, Validate(cfg))

	assert.Equal(t, "target", cfg.Username)
	assert.Equal(t, 2, cfg.MaxDepth)
	assert.Equal(t, 3, cfg.Posts())
	assert.Equal(t, 120*time.Second, cfg.RequestTimeout())
	assert.Equal(t, "keys.env", cfg.KeysPath)
	assert.Equal(t, "fair.db", cfg.DBPath)
	assert.Equal(t, "graph.json", cfg.GraphPath)
	assert.Equal(t, "apify~instagram-scraper", cfg.ProfileActor)
	assert.Equal(t, DefaultEngagementThreshold, cfg.EngagementThreshold)
	assert.False(t, cfg.SuspiciousCalc)
	assert.Nil(t, cfg.WeightsWithSignal)
}

func TestLoadConfigKeepsExplicitZeroPosts(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `{"username":"target","posts_limit":0,"max_depth":4}`))
	require.NoError(t, err)
	require.NoError(t, Validate(cfg))

	assert.Equal(t, 0, cfg.Posts())
	assert.Equal(t, 4, cfg.MaxDepth)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, `{"username":`))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, `{"username":"x","unknown_field":1}`))
	assert.Error(t, err)
}

func TestLoadConfigOrDefault(t *testing.T) {
	cfg, err := LoadConfigOrDefault(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.MaxDepth)
	assert.Error(t, Validate(cfg), "username is still required")

	cfg.Username = "target"
	assert.NoError(t, Validate(cfg))
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{Username: "target"}
		ApplyDefaults(cfg)
		return cfg
	}
	negative := -1

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing username", func(c *Config) { c.Username = "" }},
		{"zero depth", func(c *Config) { c.MaxDepth = -1 }},
		{"negative posts", func(c *Config) { c.PostsLimit = &negative }},
		{"short timeout", func(c *Config) { c.RequestTimeoutMs = 10 }},
		{"bad threshold", func(c *Config) { c.EngagementThreshold = -0.1 }},
		{"weights not summing to one", func(c *Config) {
			c.WeightsWithSignal = &Weights{Burstiness: 0.5, Temporal: 0.6}
		}},
		{"negative weight", func(c *Config) {
			c.WeightsNoSignal = &Weights{Engagement: 1.2, Username: -0.2}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, Validate(cfg))
		})
	}

	cfg := valid()
	cfg.WeightsNoSignal = &Weights{Engagement: 0.5, Username: 0.25, Name: 0.25}
	assert.NoError(t, Validate(cfg))
}
