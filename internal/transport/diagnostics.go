package transport

import (
	"math"
	"time"

	"gamenet-core/internal/constants"
)

// Diagnostics 进程生命周期的网络统计聚合
//
// 非并发安全：所有访问必须通过调度器的 network-diagnostics 资源任务
// （读走共享任务，写走独占任务）。只有显式 Reset 会清零。
type Diagnostics struct {
	pingMin   time.Duration
	pingMax   time.Duration
	pingTotal time.Duration
	pingCount int64

	// RTT 环形缓冲区，抖动按该窗口的总体标准差计算
	window    [constants.RTTWindowSize]time.Duration
	windowLen int
	windowIdx int

	pingsSent int64
	pingsLost int64

	disconnections  int64
	reconnections   int64
	longestDowntime time.Duration
	downSince       time.Time
}

// Snapshot 统计快照（导出给调用方）
type Snapshot struct {
	PingMin         time.Duration
	PingMax         time.Duration
	PingAvg         time.Duration
	Jitter          time.Duration
	PacketLossPct   float64
	PingsSent       int64
	PingsLost       int64
	Disconnections  int64
	Reconnections   int64
	LongestDowntime time.Duration
}

// NewDiagnostics 创建统计聚合
func NewDiagnostics() *Diagnostics {
	return &Diagnostics{}
}

// RecordPingSent 记录一次心跳发出
func (d *Diagnostics) RecordPingSent() {
	d.pingsSent++
}

// RecordPingLost 记录一次心跳超时
func (d *Diagnostics) RecordPingLost() {
	d.pingsLost++
}

// RecordRTT 记录一次往返时延并更新窗口
func (d *Diagnostics) RecordRTT(rtt time.Duration) {
	if d.pingCount == 0 || rtt < d.pingMin {
		d.pingMin = rtt
	}
	if rtt > d.pingMax {
		d.pingMax = rtt
	}
	d.pingTotal += rtt
	d.pingCount++

	d.window[d.windowIdx] = rtt
	d.windowIdx = (d.windowIdx + 1) % constants.RTTWindowSize
	if d.windowLen < constants.RTTWindowSize {
		d.windowLen++
	}
}

// Jitter 返回 RTT 窗口的总体标准差
func (d *Diagnostics) Jitter() time.Duration {
	if d.windowLen < 2 {
		return 0
	}

	var sum float64
	for i := 0; i < d.windowLen; i++ {
		sum += float64(d.window[i])
	}
	mean := sum / float64(d.windowLen)

	var variance float64
	for i := 0; i < d.windowLen; i++ {
		diff := float64(d.window[i]) - mean
		variance += diff * diff
	}
	variance /= float64(d.windowLen)

	return time.Duration(math.Sqrt(variance))
}

// MarkDisconnected 记录断线时刻
func (d *Diagnostics) MarkDisconnected(now time.Time) {
	d.disconnections++
	if d.downSince.IsZero() {
		d.downSince = now
	}
}

// MarkReconnected 记录重连成功并结算停机时长
func (d *Diagnostics) MarkReconnected(now time.Time) {
	d.reconnections++
	if !d.downSince.IsZero() {
		downtime := now.Sub(d.downSince)
		if downtime > d.longestDowntime {
			d.longestDowntime = downtime
		}
		d.downSince = time.Time{}
	}
}

// Snapshot 生成当前快照
func (d *Diagnostics) Snapshot() Snapshot {
	snap := Snapshot{
		PingMin:         d.pingMin,
		PingMax:         d.pingMax,
		Jitter:          d.Jitter(),
		PingsSent:       d.pingsSent,
		PingsLost:       d.pingsLost,
		Disconnections:  d.disconnections,
		Reconnections:   d.reconnections,
		LongestDowntime: d.longestDowntime,
	}
	if d.pingCount > 0 {
		snap.PingAvg = d.pingTotal / time.Duration(d.pingCount)
	}
	if d.pingsSent > 0 {
		snap.PacketLossPct = float64(d.pingsLost) / float64(d.pingsSent) * 100.0
	}
	return snap
}

// Reset 清零全部统计，只由用户显式触发
func (d *Diagnostics) Reset() {
	*d = Diagnostics{}
}
