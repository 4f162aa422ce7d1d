// Package config provides YAML configuration loading for the client stack.
//
// Loading is two-phase: defaults first, then the optional config file
// overrides. Validation runs last and rejects the whole config on the
// first invalid value; invalid configuration is a programming error and
// callers are expected to treat it as fatal.
package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"gamenet-core/internal/constants"
	"gamenet-core/internal/core/log"
	"gamenet-core/internal/errors"
)

// Config 客户端网络栈的全部可配置项
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Heartbeat HeartbeatConfig `yaml:"heartbeat"`
	Bandwidth BandwidthConfig `yaml:"bandwidth"`
	Queue     QueueConfig     `yaml:"queue"`
	Messages  []MessageRule   `yaml:"messages"`
	Log       log.Config      `yaml:"log"`
}

// ServerConfig 服务端地址与连接参数
type ServerConfig struct {
	Address           string   `yaml:"address"`
	Port              int      `yaml:"port"`
	Channel           string   `yaml:"channel"` // udp | kcp
	ConnectTimeout    Duration `yaml:"connect_timeout"`
	DisconnectTimeout Duration `yaml:"disconnect_timeout"`
	ReconnectAttempts int      `yaml:"reconnect_attempts"`
}

// SchedulerConfig 调度器参数
type SchedulerConfig struct {
	Workers int    `yaml:"workers"`
	Mode    string `yaml:"mode"` // pool | immediate
}

// HeartbeatConfig 心跳与自适应超时参数
type HeartbeatConfig struct {
	Interval    Duration `yaml:"interval"`
	BaseTimeout Duration `yaml:"base_timeout"`
	MaxTimeout  Duration `yaml:"max_timeout"`
	MaxFailures int      `yaml:"max_failures"`
}

// BandwidthConfig 带宽整形参数
type BandwidthConfig struct {
	GlobalRate  float64 `yaml:"global_rate"`
	GlobalBurst float64 `yaml:"global_burst"`
}

// QueueConfig 出站队列参数
type QueueConfig struct {
	Enabled     bool     `yaml:"enabled"`
	MaxSize     int      `yaml:"max_size"`
	MaxAge      Duration `yaml:"max_age"`
	ReplayBatch int      `yaml:"replay_batch"`
	ReplayRate  float64  `yaml:"replay_rate"`
}

// MessageRule 按报文名前缀配置类别、优先级与限流豁免
type MessageRule struct {
	Prefix         string `yaml:"prefix"`
	Category       string `yaml:"category"`
	Priority       string `yaml:"priority"`
	ThrottleExempt bool   `yaml:"throttle_exempt"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Address:           "127.0.0.1",
			Port:              7777,
			Channel:           "udp",
			ConnectTimeout:    Duration(constants.DefaultConnectTimeout),
			DisconnectTimeout: Duration(constants.DefaultDisconnectTimeout),
			ReconnectAttempts: constants.DefaultReconnectAttempts,
		},
		Scheduler: SchedulerConfig{
			Workers: constants.DefaultWorkerCount,
			Mode:    "pool",
		},
		Heartbeat: HeartbeatConfig{
			Interval:    Duration(constants.DefaultHeartbeatInterval),
			BaseTimeout: Duration(constants.DefaultBaseTimeout),
			MaxTimeout:  Duration(constants.DefaultBaseTimeout * constants.DefaultTimeoutMultiplierCap),
			MaxFailures: constants.DefaultMaxPingFailures,
		},
		Bandwidth: BandwidthConfig{
			GlobalRate:  constants.DefaultGlobalRate,
			GlobalBurst: constants.DefaultGlobalBurst,
		},
		Queue: QueueConfig{
			Enabled:     true,
			MaxSize:     constants.DefaultQueueMaxSize,
			MaxAge:      Duration(constants.DefaultQueueMaxAge),
			ReplayBatch: constants.DefaultReplayBatch,
			ReplayRate:  constants.DefaultReplayRate,
		},
		Log: log.Config{Level: "info", Format: "text"},
	}
}

// Load reads the config file at path on top of the defaults.
// An empty path yields pure defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
		log.Debugf("config: loaded overrides from %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the stack cannot run with.
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return errors.NewConfigError("server.address", "must not be empty")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.NewConfigError("server.port", "must be in range 1-65535")
	}
	if c.Server.Channel != "udp" && c.Server.Channel != "kcp" {
		return errors.NewConfigError("server.channel", "must be udp or kcp")
	}
	if c.Server.ConnectTimeout.Std() <= 0 {
		return errors.NewConfigError("server.connect_timeout", "must be positive")
	}
	if c.Server.DisconnectTimeout.Std() <= 0 {
		return errors.NewConfigError("server.disconnect_timeout", "must be positive")
	}
	if c.Server.ReconnectAttempts <= 0 {
		return errors.NewConfigError("server.reconnect_attempts", "must be positive")
	}
	if c.Scheduler.Mode != "pool" && c.Scheduler.Mode != "immediate" {
		return errors.NewConfigError("scheduler.mode", "must be pool or immediate")
	}
	if c.Scheduler.Mode == "pool" && c.Scheduler.Workers <= 0 {
		return errors.NewConfigError("scheduler.workers", "must be positive")
	}
	if c.Heartbeat.Interval.Std() <= 0 {
		return errors.NewConfigError("heartbeat.interval", "must be positive")
	}
	if c.Heartbeat.BaseTimeout.Std() <= 0 {
		return errors.NewConfigError("heartbeat.base_timeout", "must be positive")
	}
	if c.Heartbeat.MaxTimeout.Std() < c.Heartbeat.BaseTimeout.Std() {
		return errors.NewConfigError("heartbeat.max_timeout", "must not be below base_timeout")
	}
	if c.Heartbeat.MaxFailures <= 0 {
		return errors.NewConfigError("heartbeat.max_failures", "must be positive")
	}
	if c.Bandwidth.GlobalRate <= 0 {
		return errors.NewConfigError("bandwidth.global_rate", "must be positive")
	}
	if c.Bandwidth.GlobalBurst <= 0 {
		return errors.NewConfigError("bandwidth.global_burst", "must be positive")
	}
	if c.Queue.Enabled {
		if c.Queue.MaxSize <= 0 {
			return errors.NewConfigError("queue.max_size", "must be positive")
		}
		if c.Queue.MaxAge.Std() <= 0 {
			return errors.NewConfigError("queue.max_age", "must be positive")
		}
		if c.Queue.ReplayBatch <= 0 {
			return errors.NewConfigError("queue.replay_batch", "must be positive")
		}
		if c.Queue.ReplayRate <= 0 {
			return errors.NewConfigError("queue.replay_rate", "must be positive")
		}
	}
	for _, rule := range c.Messages {
		if rule.Prefix == "" {
			return errors.NewConfigError("messages.prefix", "must not be empty")
		}
	}
	return nil
}

// TimeoutMultiplierCap 自适应超时的整数倍率上限
func (c *Config) TimeoutMultiplierCap() int {
	multiplier := int(c.Heartbeat.MaxTimeout.Std() / c.Heartbeat.BaseTimeout.Std())
	if multiplier < 1 {
		multiplier = 1
	}
	return multiplier
}
