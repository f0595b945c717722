package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "roomhub.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.Equal(t, StorageMemory, cfg.Storage.Type)
	assert.Equal(t, 30*time.Second, cfg.Realtime.PingInterval)
	assert.Equal(t, 5*time.Second, cfg.Realtime.HostReassignDelay)
	assert.Equal(t, 8, cfg.Realtime.MaxActivePlayersPerRoom)
	assert.Equal(t, 86400, cfg.Realtime.MaxKickDurationSeconds)
	assert.Equal(t, NotifierLog, cfg.Notifier.Type)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
  shutdownTimeout: 3s
storage:
  type: redis
  redis:
    url: redis://cache:6379/1
    maxTxRetries: 4
realtime:
  maxActivePlayersPerRoom: 4
  hostReassignDelay: 2s
notifier:
  type: nats
  natsUrl: nats://bus:4222
log:
  level: debug
  format: text
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, StorageRedis, cfg.Storage.Type)
	assert.Equal(t, "redis://cache:6379/1", cfg.Storage.Redis.URL)
	assert.Equal(t, 4, cfg.Storage.Redis.MaxTxRetries)
	assert.Equal(t, 10, cfg.Storage.Redis.PoolSize, "unset keys keep defaults")
	assert.Equal(t, 4, cfg.Realtime.MaxActivePlayersPerRoom)
	assert.Equal(t, 2*time.Second, cfg.Realtime.HostReassignDelay)
	assert.Equal(t, "nats://bus:4222", cfg.Notifier.NATSURL)

	level, err := cfg.Log.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9000\n")
	t.Setenv("ROOMHUB_SERVER_PORT", "9100")
	t.Setenv("ROOMHUB_REALTIME_PINGINTERVAL", "10s")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Realtime.PingInterval)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := writeConfig(t, "storage:\n  type: postgres\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown storage.type "postgres"`)
}

func TestValidate(t *testing.T) {
	t.Chdir(t.TempDir())
	defaults, err := Load("")
	require.NoError(t, err)

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"pong wait too short", func(c *Config) { c.Realtime.PongWait = c.Realtime.PingInterval }, "realtime.pongwait"},
		{"no players allowed", func(c *Config) { c.Realtime.MaxActivePlayersPerRoom = 0 }, "maxactiveplayersperroom"},
		{"negative kick limit", func(c *Config) { c.Realtime.MaxKickDurationSeconds = -1 }, "maxkickdurationseconds"},
		{"redis without url", func(c *Config) { c.Storage.Type = StorageRedis; c.Storage.Redis.URL = "" }, "storage.redis.url"},
		{"unknown notifier", func(c *Config) { c.Notifier.Type = "kafka" }, "notifier.type"},
		{"unknown log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"unknown log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := *defaults
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
