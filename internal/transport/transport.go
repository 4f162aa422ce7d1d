// Package transport 实现自适应网络传输层
//
// 拥有连接状态机、心跳/RTT 估计、出站优先级队列与多类别带宽整形。
// 所有共享状态的变更都表达为调度器上的资源任务（读走共享锁、
// 写走独占锁），原始通道的 Poll/Send 由单一互斥锁串行化。
package transport

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"gamenet-core/internal/bandwidth"
	"gamenet-core/internal/config"
	"gamenet-core/internal/constants"
	"gamenet-core/internal/core/dispose"
	"gamenet-core/internal/core/log"
	"gamenet-core/internal/packet"
	"gamenet-core/internal/scheduler"
)

// Handler 入站报文回调，在调度器工作协程上执行
type Handler func(msg packet.Message)

// nowFunc 时钟注入点（测试可替换）
var nowFunc = time.Now

// connState 连接关联数据
// 仅允许在持有 ResConnection 资源锁的任务内访问
type connState struct {
	state         State
	sessionID     string
	pingSeq       uint32
	lastActivity  time.Time
	lastHeartbeat time.Time
	awaitingReply bool
	pingFailures  int
	degraded      bool
	timeout       timeoutController
	zoneRelief    bool
	reconnecting  bool
}

// Transport 自适应网络传输层
type Transport struct {
	cfg   *config.Config
	sched scheduler.Scheduler

	shaper *bandwidth.Shaper
	table  *MessageTable
	queue  *OutboundQueue
	diag   *Diagnostics

	// 原始通道不可并发使用，所有 Poll/Send/Connect 经由此锁
	channelMu sync.Mutex
	channel   Channel

	conn connState

	sendSeq  atomic.Uint32
	seqCache *lru.Cache[uint32, struct{}]

	handlersMu   sync.RWMutex
	handlers     map[packet.MessageType][]Handler
	rawHandler   func(data []byte)
	onDisconnect func(reason string)

	dispose.Dispose
}

// New 创建传输层
// channel 为 nil 时按配置的通道类型构建（udp 或 kcp）
func New(cfg *config.Config, sched scheduler.Scheduler, channel Channel, parentCtx context.Context) (*Transport, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	shaper, err := bandwidth.NewShaper(cfg.Bandwidth.GlobalRate, cfg.Bandwidth.GlobalBurst)
	if err != nil {
		return nil, err
	}

	seqCache, err := lru.New[uint32, struct{}](constants.SequenceCacheSize)
	if err != nil {
		return nil, err
	}

	t := &Transport{
		cfg:      cfg,
		sched:    sched,
		shaper:   shaper,
		table:    NewMessageTable(cfg.Messages),
		queue:    NewOutboundQueue(cfg.Queue.MaxSize, cfg.Queue.MaxAge.Std()),
		diag:     NewDiagnostics(),
		seqCache: seqCache,
		handlers: make(map[packet.MessageType][]Handler),
	}
	t.conn.state = StateDisconnected
	t.conn.timeout = newTimeoutController(cfg.Heartbeat.BaseTimeout.Std(), cfg.TimeoutMultiplierCap())

	t.SetCtx(parentCtx, t.onClose)

	if channel == nil {
		switch cfg.Server.Channel {
		case "kcp":
			channel = NewKCPChannel(t.Ctx())
		default:
			channel = NewUDPChannel(t.Ctx())
		}
	}
	t.channel = channel

	t.startHeartbeatLoop()
	t.startReplayLoop()
	return t, nil
}

func (t *Transport) onClose() {
	t.channelMu.Lock()
	defer t.channelMu.Unlock()
	t.channel.Close()
}

// OnMessage 注册某类报文的处理回调
func (t *Transport) OnMessage(msgType packet.MessageType, h Handler) {
	t.handlersMu.Lock()
	defer t.handlersMu.Unlock()
	t.handlers[msgType] = append(t.handlers[msgType], h)
}

// OnRaw 注册非协议帧数据的处理回调（旧协议/裸数据回落路径）
func (t *Transport) OnRaw(h func(data []byte)) {
	t.handlersMu.Lock()
	defer t.handlersMu.Unlock()
	t.rawHandler = h
}

// OnDisconnect 注册对端丢失回调
// 只在检测到对端丢失时触发，显式断开不触发
func (t *Transport) OnDisconnect(h func(reason string)) {
	t.handlersMu.Lock()
	defer t.handlersMu.Unlock()
	t.onDisconnect = h
}

// State 返回当前连接状态
// 重连期间（尝试之间）以 Reconnecting 覆盖呈现
func (t *Transport) State() State {
	result, err := t.sched.ScheduleRead([]scheduler.ResourceID{ResConnection}, func() (interface{}, error) {
		if t.conn.reconnecting && t.conn.state != StateConnected {
			return StateReconnecting, nil
		}
		return t.conn.state, nil
	}).Wait()
	if err != nil {
		return StateDisconnected
	}
	return result.(State)
}

// SessionID 返回当前连接的会话标识
func (t *Transport) SessionID() string {
	result, err := t.sched.ScheduleRead([]scheduler.ResourceID{ResConnection}, func() (interface{}, error) {
		return t.conn.sessionID, nil
	}).Wait()
	if err != nil {
		return ""
	}
	return result.(string)
}

// IsDegraded 返回连接是否被标记为降级
func (t *Transport) IsDegraded() bool {
	result, err := t.sched.ScheduleRead([]scheduler.ResourceID{ResConnection}, func() (interface{}, error) {
		return t.conn.degraded, nil
	}).Wait()
	if err != nil {
		return false
	}
	return result.(bool)
}

// DiagnosticsSnapshot 返回统计快照
func (t *Transport) DiagnosticsSnapshot() Snapshot {
	result, err := t.sched.ScheduleRead([]scheduler.ResourceID{ResDiagnostics}, func() (interface{}, error) {
		return t.diag.Snapshot(), nil
	}).Wait()
	if err != nil {
		return Snapshot{}
	}
	return result.(Snapshot)
}

// ResetDiagnostics 清零统计，只由用户显式触发
func (t *Transport) ResetDiagnostics() {
	t.sched.Schedule([]scheduler.ResourceID{ResDiagnostics}, func() (interface{}, error) {
		t.diag.Reset()
		return nil, nil
	}).Wait()
}

// QueueLen 返回出站队列当前长度
func (t *Transport) QueueLen() int {
	result, err := t.sched.ScheduleRead([]scheduler.ResourceID{ResOutboundQueue}, func() (interface{}, error) {
		return t.queue.Len(), nil
	}).Wait()
	if err != nil {
		return 0
	}
	return result.(int)
}

// SetPriorityMode 切换带宽分配模式（Normal/Combat/Crafting）
func (t *Transport) SetPriorityMode(mode bandwidth.Mode) {
	t.sched.Schedule([]scheduler.ResourceID{ResBandwidth}, func() (interface{}, error) {
		t.shaper.SetMode(mode)
		return nil, nil
	}).Wait()
}

// SetThrottleLevel 应用服务端请求的限流级别（0-5）
func (t *Transport) SetThrottleLevel(level int) error {
	_, err := t.sched.Schedule([]scheduler.ResourceID{ResBandwidth}, func() (interface{}, error) {
		return nil, t.shaper.SetThrottleLevel(level)
	}).Wait()
	return err
}

// Shaper 返回整形器（统计展示用）
func (t *Transport) Shaper() *bandwidth.Shaper {
	return t.shaper
}

// PrepareZoneTransition 区域切换减压
//
// 临时放大健康检查超时、把出站队列裁剪到 High/Critical，
// 固定窗口后自动恢复。用于提前已知会造成静默突发的操作（加载新区域）。
func (t *Transport) PrepareZoneTransition() {
	t.sched.Schedule([]scheduler.ResourceID{ResConnection, ResOutboundQueue}, func() (interface{}, error) {
		t.conn.zoneRelief = true
		trimmed := t.queue.TrimBelow(PriorityHigh)
		log.Infof("transport: zone transition relief engaged, trimmed %d queued packets", trimmed)
		return nil, nil
	}).Wait()

	time.AfterFunc(constants.ZoneTransitionWindow, func() {
		t.sched.Schedule([]scheduler.ResourceID{ResConnection}, func() (interface{}, error) {
			t.conn.zoneRelief = false
			log.Infof("transport: zone transition relief restored")
			return nil, nil
		})
	})
}

// effectiveHealthTimeout 当前有效健康检查超时（含区域切换放大）
// 必须在持有 ResConnection 的任务内调用
func (t *Transport) effectiveHealthTimeout() time.Duration {
	timeout := t.conn.timeout.Current()
	if t.conn.zoneRelief {
		timeout *= constants.ZoneTransitionTimeoutFactor
	}
	return timeout
}

// serverAddr 目标地址
func (t *Transport) serverAddr() string {
	return fmt.Sprintf("%s:%d", t.cfg.Server.Address, t.cfg.Server.Port)
}

// nextSeq 下一个出站序列号
func (t *Transport) nextSeq() uint32 {
	return t.sendSeq.Add(1)
}

// Close 关闭传输层
func (t *Transport) Close() {
	t.Dispose.Close()
}
