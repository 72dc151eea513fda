package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.DevMode)

	assert.InDelta(t, 0.05, cfg.Engine.Tau, 1e-12)
	assert.Equal(t, 10000, cfg.Engine.Trials)
	assert.Equal(t, 10, cfg.Engine.Horizon)
	assert.Equal(t, 20, cfg.Engine.FrontierPoints)
	assert.InDelta(t, 0.05, cfg.Engine.PercentileLow, 1e-12)
	assert.InDelta(t, 0.95, cfg.Engine.PercentileHigh, 1e-12)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("ENGINE_TRIALS", "500")
	t.Setenv("ENGINE_TAU", "0.1")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 500, cfg.Engine.Trials)
	assert.InDelta(t, 0.1, cfg.Engine.Tau, 1e-12)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("PORT", "not-a-number")
	t.Setenv("ENGINE_TAU", "also-not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	// Unparseable values fall back to defaults rather than failing
	assert.Equal(t, 8080, cfg.Port)
	assert.InDelta(t, 0.05, cfg.Engine.Tau, 1e-12)
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid defaults", func(c *Config) {}, false},
		{"zero port", func(c *Config) { c.Port = 0 }, true},
		{"negative tau", func(c *Config) { c.Engine.Tau = -0.1 }, true},
		{"zero trials", func(c *Config) { c.Engine.Trials = 0 }, true},
		{"zero horizon", func(c *Config) { c.Engine.Horizon = 0 }, true},
		{"inverted percentiles", func(c *Config) {
			c.Engine.PercentileLow = 0.95
			c.Engine.PercentileHigh = 0.05
		}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := Load()
			require.NoError(t, err)
			tc.mutate(cfg)

			err = cfg.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
