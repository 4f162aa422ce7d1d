package constants

import "time"

// 协议相关常量
const (
	// ProtocolMagic 协议魔数，所有帧头以此开始
	ProtocolMagic uint32 = 0x474E5450

	// ProtocolVersion 当前协议版本
	ProtocolVersion uint16 = 2

	// HeaderSize 帧头字节数：magic(4) + version(2) + type(1) + length(4) + sequence(4)
	HeaderSize = 15

	// MaxPayloadSize 单个数据包负载上限
	MaxPayloadSize = 64 * 1024

	// MaxStringLength 字符串字段长度上限（u16 长度前缀）
	MaxStringLength = 65535
)

// 调度器相关常量
const (
	// DefaultWorkerCount 默认工作协程数量
	DefaultWorkerCount = 4

	// DefaultTaskQueueSize 任务队列默认容量
	DefaultTaskQueueSize = 256

	// TryLockPollInterval 有界锁获取的轮询间隔
	TryLockPollInterval = 2 * time.Millisecond
)

// 传输层相关常量
const (
	// DefaultConnectTimeout 连接握手的固定等待上限
	DefaultConnectTimeout = 5 * time.Second

	// DefaultDisconnectTimeout 断开确认的固定等待上限
	DefaultDisconnectTimeout = 3 * time.Second

	// DefaultHeartbeatInterval 心跳发送间隔
	DefaultHeartbeatInterval = 2 * time.Second

	// DefaultBaseTimeout 自适应超时的基准值
	DefaultBaseTimeout = 5 * time.Second

	// DefaultTimeoutMultiplierCap 自适应超时倍率上限
	DefaultTimeoutMultiplierCap = 4

	// DefaultMaxPingFailures 连续心跳失败阈值（达到后标记降级）
	DefaultMaxPingFailures = 3

	// MaxReconnectBackoff 重连退避的封顶值
	MaxReconnectBackoff = 30 * time.Second

	// DefaultReconnectAttempts 默认重连尝试次数上限
	DefaultReconnectAttempts = 5

	// DefaultPollBatch 单次轮询最多处理的入站事件数
	DefaultPollBatch = 32

	// RTTWindowSize 抖动计算使用的 RTT 环形缓冲区大小
	RTTWindowSize = 32

	// SequenceCacheSize 入站序列号去重缓存大小
	SequenceCacheSize = 1024

	// ZoneTransitionWindow 区域切换宽限窗口
	ZoneTransitionWindow = 20 * time.Second

	// ZoneTransitionTimeoutFactor 区域切换期间健康检查超时的放大倍数
	ZoneTransitionTimeoutFactor = 3
)

// 出站队列相关常量
const (
	// DefaultQueueMaxSize 出站队列默认容量
	DefaultQueueMaxSize = 512

	// DefaultQueueMaxAge 队列条目默认最大存活时间
	DefaultQueueMaxAge = 30 * time.Second

	// DefaultReplayBatch 重放时单批发送的条目数
	DefaultReplayBatch = 8

	// DefaultReplayRate 每秒允许的重放批次数
	DefaultReplayRate = 4
)

// 带宽整形相关常量
const (
	// DefaultGlobalRate 默认全局带宽速率（单位/秒）
	DefaultGlobalRate = 64 * 1024

	// DefaultGlobalBurst 默认全局突发容量
	DefaultGlobalBurst = 16 * 1024

	// MaxThrottleLevel 服务端限流级别上限
	MaxThrottleLevel = 5

	// MinThrottleFactor 最高限流级别下保留的全局速率比例
	MinThrottleFactor = 0.10
)
