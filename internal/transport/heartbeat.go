package transport

import (
	"context"
	"time"

	"gamenet-core/internal/core/log"
	"gamenet-core/internal/core/safe"
	"gamenet-core/internal/packet"
	"gamenet-core/internal/scheduler"
)

// startHeartbeatLoop 启动心跳与健康检查循环
func (t *Transport) startHeartbeatLoop() {
	interval := t.cfg.Heartbeat.Interval.Std()
	safe.GoLoop(t.Ctx(), "transport-heartbeat", func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
		t.heartbeatTick()
		return nil
	})
}

// heartbeatTick 单次心跳周期
//
// 先结算上一个周期：等待中的回复超过当前自适应超时即记一次失败，
// 连续失败达到阈值标记降级（只记日志，不自动断开），达到两倍阈值
// 由健康检查触发强制断开。然后发出携带本地时钟的新心跳。
func (t *Transport) heartbeatTick() {
	type tickAction struct {
		send            bool
		clientTime      int64
		forceDisconnect bool
	}

	result, err := t.sched.Schedule([]scheduler.ResourceID{ResConnection, ResDiagnostics}, func() (interface{}, error) {
		if t.conn.state != StateConnected {
			return tickAction{}, nil
		}

		action := tickAction{}
		now := nowFunc()

		if t.conn.awaitingReply && now.Sub(t.conn.lastHeartbeat) > t.effectiveHealthTimeout() {
			t.conn.awaitingReply = false
			t.conn.pingFailures++
			t.conn.timeout.OnFailure()
			t.diag.RecordPingLost()
			log.Warnf("transport: heartbeat %d missed (%d consecutive, timeout now %v)",
				t.conn.pingSeq, t.conn.pingFailures, t.conn.timeout.Current())

			maxFailures := t.cfg.Heartbeat.MaxFailures
			if t.conn.pingFailures == maxFailures && !t.conn.degraded {
				t.conn.degraded = true
				log.Warnf("transport: connection flagged degraded after %d consecutive heartbeat failures", maxFailures)
			}
			if t.conn.pingFailures >= 2*maxFailures {
				action.forceDisconnect = true
				return action, nil
			}
		}

		if !t.conn.awaitingReply {
			t.conn.pingSeq++
			t.conn.lastHeartbeat = now
			t.conn.awaitingReply = true
			t.diag.RecordPingSent()
			action.send = true
			action.clientTime = now.UnixMilli()
		}
		return action, nil
	}).Wait()
	if err != nil {
		return
	}

	action := result.(tickAction)
	if action.forceDisconnect {
		t.handlePeerLoss("heartbeat health check")
		return
	}
	if !action.send {
		return
	}

	frame := packet.Encode(packet.Heartbeat{ClientTime: action.clientTime}, t.nextSeq())
	t.channelMu.Lock()
	sendErr := t.channel.Send(frame, false)
	t.channelMu.Unlock()
	if sendErr != nil {
		log.Debugf("transport: heartbeat send failed: %v", sendErr)
	}
}

// handleHeartbeatReply 对端回显心跳：结算 RTT 并更新自适应超时
func (t *Transport) handleHeartbeatReply(hb packet.Heartbeat) {
	rtt := nowFunc().Sub(time.UnixMilli(hb.ClientTime))
	if rtt < 0 {
		return
	}

	t.sched.Schedule([]scheduler.ResourceID{ResConnection, ResDiagnostics}, func() (interface{}, error) {
		t.conn.awaitingReply = false
		t.conn.pingFailures = 0
		if t.conn.degraded {
			t.conn.degraded = false
			log.Infof("transport: connection no longer degraded")
		}
		t.conn.timeout.OnSuccess(rtt)
		t.diag.RecordRTT(rtt)
		return nil, nil
	})
}
