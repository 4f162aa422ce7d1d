package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefault_IsValid(t *testing.T) {
	t.Parallel()

	cfg := Default()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "udp", cfg.Server.Channel)
	assert.Equal(t, "pool", cfg.Scheduler.Mode)
	assert.True(t, cfg.Queue.Enabled)
}

func TestLoad_EmptyPathYieldsDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  address: game.example.com
  port: 9999
  channel: kcp
  connect_timeout: 10s
heartbeat:
  interval: 500ms
  base_timeout: 2s
  max_timeout: 8s
queue:
  max_size: 64
messages:
  - prefix: Guild
    category: chat
    priority: high
    throttle_exempt: true
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "game.example.com", cfg.Server.Address)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "kcp", cfg.Server.Channel)
	assert.Equal(t, 10*time.Second, cfg.Server.ConnectTimeout.Std())
	assert.Equal(t, 500*time.Millisecond, cfg.Heartbeat.Interval.Std())
	assert.Equal(t, 64, cfg.Queue.MaxSize)
	// 未覆盖的字段保留默认值
	assert.Equal(t, Default().Bandwidth.GlobalRate, cfg.Bandwidth.GlobalRate)

	require.Len(t, cfg.Messages, 1)
	assert.Equal(t, "Guild", cfg.Messages[0].Prefix)
	assert.True(t, cfg.Messages[0].ThrottleExempt)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_MalformedYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not a map"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate_RejectsBadValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"empty address", func(c *Config) { c.Server.Address = "" }},
		{"port zero", func(c *Config) { c.Server.Port = 0 }},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }},
		{"bad channel", func(c *Config) { c.Server.Channel = "tcp" }},
		{"zero connect timeout", func(c *Config) { c.Server.ConnectTimeout = 0 }},
		{"zero reconnect attempts", func(c *Config) { c.Server.ReconnectAttempts = 0 }},
		{"bad scheduler mode", func(c *Config) { c.Scheduler.Mode = "async" }},
		{"pool without workers", func(c *Config) { c.Scheduler.Workers = 0 }},
		{"zero heartbeat interval", func(c *Config) { c.Heartbeat.Interval = 0 }},
		{"max timeout below base", func(c *Config) {
			c.Heartbeat.BaseTimeout = Duration(10 * time.Second)
			c.Heartbeat.MaxTimeout = Duration(5 * time.Second)
		}},
		{"zero max failures", func(c *Config) { c.Heartbeat.MaxFailures = 0 }},
		{"zero global rate", func(c *Config) { c.Bandwidth.GlobalRate = 0 }},
		{"negative global burst", func(c *Config) { c.Bandwidth.GlobalBurst = -1 }},
		{"queue enabled zero size", func(c *Config) { c.Queue.MaxSize = 0 }},
		{"queue enabled zero replay rate", func(c *Config) { c.Queue.ReplayRate = 0 }},
		{"rule without prefix", func(c *Config) { c.Messages = []MessageRule{{Category: "chat"}} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidate_QueueDisabledSkipsQueueChecks(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Queue.Enabled = false
	cfg.Queue.MaxSize = 0
	cfg.Queue.ReplayRate = 0
	assert.NoError(t, cfg.Validate())
}

func TestTimeoutMultiplierCap(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Heartbeat.BaseTimeout = Duration(5 * time.Second)
	cfg.Heartbeat.MaxTimeout = Duration(20 * time.Second)
	assert.Equal(t, 4, cfg.TimeoutMultiplierCap())

	// 不足一倍时夹到 1
	cfg.Heartbeat.MaxTimeout = Duration(5 * time.Second)
	assert.Equal(t, 1, cfg.TimeoutMultiplierCap())
}

func TestDuration_Unmarshal(t *testing.T) {
	t.Parallel()

	var cfg struct {
		Wait Duration `yaml:"wait"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("wait: 1500ms"), &cfg))
	assert.Equal(t, 1500*time.Millisecond, cfg.Wait.Std())

	assert.Error(t, yaml.Unmarshal([]byte("wait: soon"), &cfg))
}
