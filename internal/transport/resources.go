package transport

import "gamenet-core/internal/scheduler"

// 传输层的命名资源
// 每个跨切面状态对应一个资源；任务声明的资源集必须覆盖其
// 触及的全部共享状态，不允许只声明一部分
var (
	// ResConnection 连接状态、会话标识、心跳计时与自适应超时
	ResConnection = scheduler.NewResourceID("network-state", "connection")

	// ResDiagnostics 统计聚合（RTT、抖动、丢包、断线计数）
	ResDiagnostics = scheduler.NewResourceID("network-diagnostics", "stats")

	// ResOutboundQueue 出站优先级队列
	ResOutboundQueue = scheduler.NewResourceID("outbound-queue", "queue")

	// ResBandwidth 带宽整形配置（模式、限流级别）
	ResBandwidth = scheduler.NewResourceID("bandwidth-config", "config")

	// ResMessageTable 报文分类规则表
	ResMessageTable = scheduler.NewResourceID("message-table", "config")
)
