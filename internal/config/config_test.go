package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 9090
engine:
  tick_interval: 2s
  default_duration: 30m
instance:
  id: test-instance
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, 2*time.Second, cfg.Engine.TickInterval)
	require.Equal(t, 30*time.Minute, cfg.Engine.DefaultDuration)
	require.Equal(t, "test-instance", cfg.Instance.ID)

	// untouched keys keep their defaults
	require.Equal(t, "0.0.0.0", cfg.Server.Host)
	require.Equal(t, 10*time.Second, cfg.Engine.RetryInterval)
	require.Equal(t, "auction_events", cfg.Engine.EventsChannel)
	require.True(t, cfg.MySQL.Migrate)

	summary := cfg.GetConfigString()
	require.Contains(t, summary, "Server: 0.0.0.0:9090")
	require.Contains(t, summary, "Instance: test-instance")
	require.Contains(t, summary, "Tick: 2s")
	require.NotContains(t, summary, "password")
}

func TestLoadFromFile_RejectsSubSecondTick(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("engine:\n  tick_interval: 100ms\n"), 0o600))

	_, err := LoadFromFile(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "tick_interval")
}

func TestValidate(t *testing.T) {
	valid := Config{
		Server: ServerConfig{Port: 8080},
		Engine: EngineConfig{
			TickInterval:    time.Second,
			RetryInterval:   time.Second,
			DefaultDuration: time.Hour,
			EventsChannel:   "auction_events",
		},
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "bad_port", mutate: func(c *Config) { c.Server.Port = 0 }, wantErr: true},
		{name: "zero_duration", mutate: func(c *Config) { c.Engine.DefaultDuration = 0 }, wantErr: true},
		{name: "empty_channel", mutate: func(c *Config) { c.Engine.EventsChannel = "" }, wantErr: true},
		{name: "fast_retry", mutate: func(c *Config) { c.Engine.RetryInterval = time.Millisecond }, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}
