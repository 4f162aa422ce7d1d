package transport

import (
	"time"

	"gamenet-core/internal/constants"
	"gamenet-core/internal/core/log"
	"gamenet-core/internal/packet"
	"gamenet-core/internal/scheduler"
)

// Poll 非阻塞轮询入站事件
//
// 单次最多取出并处理 max 个事件（max <= 0 使用默认批量），
// 返回处理的事件数。该方法是热路径：对原始通道的访问只持有
// 通道互斥锁，报文处理与状态更新走调度器任务。
func (t *Transport) Poll(max int) int {
	if max <= 0 {
		max = constants.DefaultPollBatch
	}

	t.channelMu.Lock()
	events := t.channel.Poll(max)
	t.channelMu.Unlock()

	for _, ev := range events {
		switch ev.Kind {
		case EventData:
			t.handleData(ev.Data)
		case EventDisconnected:
			t.handlePeerLoss("channel disconnect event")
		case EventConnected:
			// 连接确认由 Connect 的等待循环消费，迟到的重复事件忽略
		}
	}
	return len(events)
}

// handleData 处理一个入站数据单元
//
// 协议帧走解码分发；解码失败的输入不是硬错误——按旧协议/
// 裸数据回落处理，报文被丢弃但连接不受影响（协议级错误策略）。
func (t *Transport) handleData(data []byte) {
	msg, seq, ok := packet.Decode(data)
	if !ok {
		if packet.IsLegacyLine(data) {
			if legacyMsg, translated := packet.TranslateLegacy(string(data)); translated {
				t.dispatch(legacyMsg)
				return
			}
		}
		t.handlersMu.RLock()
		raw := t.rawHandler
		t.handlersMu.RUnlock()
		if raw != nil {
			t.sched.ScheduleDetached(scheduler.ClassNetwork, func() { raw(data) })
		} else {
			log.Debugf("transport: dropping %d bytes of non-protocol input", len(data))
		}
		return
	}

	// 不可靠通道上的重复数据报按序列号去重
	if _, dup := t.seqCache.Get(seq); dup {
		return
	}
	t.seqCache.Add(seq, struct{}{})

	t.touchActivity()

	if hb, isHeartbeat := msg.(packet.Heartbeat); isHeartbeat {
		t.handleHeartbeatReply(hb)
		return
	}
	t.dispatch(msg)
}

// dispatch 将报文投递给注册的回调，回调在调度器工作协程上执行
func (t *Transport) dispatch(msg packet.Message) {
	t.handlersMu.RLock()
	handlers := t.handlers[msg.Type()]
	t.handlersMu.RUnlock()

	for _, h := range handlers {
		handler := h
		t.sched.ScheduleDetached(scheduler.ClassNetwork, func() { handler(msg) })
	}
}

// handlePeerLoss 对端丢失：直接回到 Disconnected 并触发断开回调
func (t *Transport) handlePeerLoss(reason string) {
	result, err := t.sched.Schedule([]scheduler.ResourceID{ResConnection, ResDiagnostics}, func() (interface{}, error) {
		if t.conn.state != StateConnected {
			return false, nil
		}
		t.conn.state = StateDisconnected
		t.conn.awaitingReply = false
		t.diag.MarkDisconnected(time.Now())
		return true, nil
	}).Wait()
	if err != nil || result != true {
		return
	}

	log.Warnf("transport: peer lost (%s)", reason)

	t.handlersMu.RLock()
	callback := t.onDisconnect
	t.handlersMu.RUnlock()
	if callback != nil {
		t.sched.ScheduleDetached(scheduler.ClassNetwork, func() { callback(reason) })
	}
}
