package transport

import (
	"gamenet-core/internal/core/log"
	"gamenet-core/internal/errors"
	"gamenet-core/internal/packet"
	"gamenet-core/internal/scheduler"
)

// Send 发送一条报文
//
// 已连接时经带宽整形后直接发送；整形拒绝的非关键报文被计数丢弃，
// 不算错误。未连接且启用了排队时进入出站优先级队列，等待重连后
// 重放；队列满时静默丢弃（计数可查）。
func (t *Transport) Send(msg packet.Message, reliable bool) error {
	rule := t.classify(msg.Type().String())
	frame := packet.Encode(msg, t.nextSeq())

	if t.State() == StateConnected {
		return t.sendFrame(frame, rule, reliable)
	}
	return t.enqueue(QueuedPacket{
		Frame:    frame,
		Name:     msg.Type().String(),
		Reliable: reliable,
		Priority: rule.Priority,
	})
}

// SendLegacy 发送旧文本协议行
// 已连接时立即翻译为帧协议发送；未连接时以原始文本形式排队，
// 翻译推迟到重放边界
func (t *Transport) SendLegacy(line string) error {
	msg, ok := packet.TranslateLegacy(line)
	if !ok {
		return errors.NewPacketError("legacy", "untranslatable legacy line", nil)
	}

	if t.State() == StateConnected {
		return t.Send(msg, true)
	}
	rule := t.classify(msg.Type().String())
	return t.enqueue(QueuedPacket{
		Legacy:   line,
		Name:     msg.Type().String(),
		Reliable: true,
		Priority: rule.Priority,
	})
}

// sendFrame 整形准入后写入通道
func (t *Transport) sendFrame(frame []byte, rule Rule, reliable bool) error {
	if !rule.ThrottleExempt && !t.shaper.Admit(rule.Category, float64(len(frame))) {
		log.Debugf("transport: %s send denied by shaper (category %s)", rule.Prefix, rule.Category)
		return errors.ErrBandwidthDenied
	}

	t.channelMu.Lock()
	err := t.channel.Send(frame, reliable)
	t.channelMu.Unlock()
	if err != nil {
		return err
	}

	t.touchActivity()
	return nil
}

// enqueue 报文排队（断线或整形期间）
func (t *Transport) enqueue(pkt QueuedPacket) error {
	if !t.cfg.Queue.Enabled {
		return errors.ErrQueueDisabled
	}

	t.sched.Schedule([]scheduler.ResourceID{ResOutboundQueue}, func() (interface{}, error) {
		if !t.queue.Push(pkt) {
			log.Debugf("transport: outbound queue full, dropping %s", pkt.Name)
		}
		return nil, nil
	}).Wait()
	return nil
}

// classify 查询规则表（共享锁）
func (t *Transport) classify(name string) Rule {
	result, err := t.sched.ScheduleRead([]scheduler.ResourceID{ResMessageTable}, func() (interface{}, error) {
		return t.table.Classify(name), nil
	}).Wait()
	if err != nil {
		return defaultRule
	}
	return result.(Rule)
}

// touchActivity 刷新最近活动时间戳
func (t *Transport) touchActivity() {
	t.sched.Schedule([]scheduler.ResourceID{ResConnection}, func() (interface{}, error) {
		t.conn.lastActivity = nowFunc()
		return nil, nil
	})
}
