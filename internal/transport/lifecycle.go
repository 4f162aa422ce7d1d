package transport

import (
	"time"

	"github.com/google/uuid"

	"gamenet-core/internal/constants"
	"gamenet-core/internal/core/log"
	"gamenet-core/internal/core/safe"
	"gamenet-core/internal/errors"
	"gamenet-core/internal/packet"
	"gamenet-core/internal/scheduler"
)

// 连接期间等待通道事件的轮询步长
const connectPollStep = 10 * time.Millisecond

// Connect 同步建立连接
//
// 状态流转 Disconnected → Connecting → Connected；超时或失败回到
// Disconnected。调用会阻塞至多 connect_timeout，不应在应用主循环
// 上直接调用（用 ConnectAsync）。
func (t *Transport) Connect() error {
	_, err := t.sched.Schedule([]scheduler.ResourceID{ResConnection}, func() (interface{}, error) {
		if t.conn.state == StateConnected || t.conn.state == StateConnecting {
			return nil, errors.ErrAlreadyConnected
		}
		t.conn.state = StateConnecting
		t.conn.sessionID = uuid.NewString()
		return nil, nil
	}).Wait()
	if err != nil {
		return err
	}

	addr := t.serverAddr()
	sessionLog := log.WithField("session", t.SessionID()).WithField("addr", addr)
	sessionLog.Infof("transport: connecting")

	t.channelMu.Lock()
	err = t.channel.Connect(addr)
	t.channelMu.Unlock()
	if err != nil {
		t.resetToDisconnected()
		return err
	}

	// 有界轮询等待通道层连接确认
	if !t.waitForEvent(EventConnected, t.cfg.Server.ConnectTimeout.Std()) {
		t.channelMu.Lock()
		_ = t.channel.Disconnect()
		t.channelMu.Unlock()
		t.resetToDisconnected()
		sessionLog.Warnf("transport: connect timed out")
		return errors.ErrConnectTimeout
	}

	t.sched.Schedule([]scheduler.ResourceID{ResConnection}, func() (interface{}, error) {
		now := time.Now()
		t.conn.state = StateConnected
		t.conn.lastActivity = now
		t.conn.lastHeartbeat = now
		t.conn.awaitingReply = false
		t.conn.pingFailures = 0
		t.conn.degraded = false
		t.conn.timeout.Reset()
		return nil, nil
	}).Wait()
	t.seqCache.Purge()

	sessionLog.Infof("transport: connected")
	return nil
}

// ConnectAsync 在工作协程上执行 Connect，结果经通道返回
// 应用主循环使用该入口，卡住的连接不会冻结主循环
func (t *Transport) ConnectAsync() <-chan error {
	result := make(chan error, 1)
	safe.Go("transport-connect", func() {
		result <- t.Connect()
	})
	return result
}

// Disconnect 同步断开连接
// 发送 Disconnect 报文后有界等待通道层确认，超时则强制断开
// 并返回 ErrDisconnectTimeout（状态仍然回到 Disconnected）
func (t *Transport) Disconnect() error {
	_, err := t.sched.Schedule([]scheduler.ResourceID{ResConnection}, func() (interface{}, error) {
		if t.conn.state != StateConnected {
			return nil, errors.ErrNotConnected
		}
		t.conn.state = StateDisconnecting
		return nil, nil
	}).Wait()
	if err != nil {
		return err
	}

	// 尽力通知对端，失败不影响断开流程
	frame := packet.Encode(packet.Disconnect{Reason: "client disconnect"}, t.nextSeq())
	t.channelMu.Lock()
	if sendErr := t.channel.Send(frame, true); sendErr != nil {
		log.Debugf("transport: disconnect notify failed: %v", sendErr)
	}
	disconnectErr := t.channel.Disconnect()
	t.channelMu.Unlock()
	if disconnectErr != nil {
		log.Debugf("transport: channel disconnect: %v", disconnectErr)
	}

	acked := t.waitForEvent(EventDisconnected, t.cfg.Server.DisconnectTimeout.Std())
	if !acked {
		log.Warnf("transport: disconnect acknowledgment timed out, forcing")
	}

	t.sched.Schedule([]scheduler.ResourceID{ResConnection, ResDiagnostics}, func() (interface{}, error) {
		t.conn.state = StateDisconnected
		t.diag.MarkDisconnected(time.Now())
		return nil, nil
	}).Wait()

	log.Infof("transport: disconnected")
	if !acked {
		return errors.ErrDisconnectTimeout
	}
	return nil
}

// Reconnect 指数退避重连
//
// 第 n 次尝试前等待 min(30s, 2^(n-1) 秒)；每次尝试是一个完整的
// 同步 Connect；超过配置的尝试上限后永久放弃
func (t *Transport) Reconnect() error {
	t.sched.Schedule([]scheduler.ResourceID{ResConnection}, func() (interface{}, error) {
		t.conn.reconnecting = true
		return nil, nil
	}).Wait()
	defer func() {
		t.sched.Schedule([]scheduler.ResourceID{ResConnection}, func() (interface{}, error) {
			t.conn.reconnecting = false
			return nil, nil
		}).Wait()
	}()

	attempts := t.cfg.Server.ReconnectAttempts
	for attempt := 1; attempt <= attempts; attempt++ {
		delay := ReconnectBackoff(attempt)
		log.Infof("transport: reconnect attempt %d/%d in %v", attempt, attempts, delay)

		select {
		case <-time.After(delay):
		case <-t.Ctx().Done():
			return errors.ErrContextCancelled
		}

		err := t.Connect()
		if err == nil {
			t.sched.Schedule([]scheduler.ResourceID{ResDiagnostics}, func() (interface{}, error) {
				t.diag.MarkReconnected(time.Now())
				return nil, nil
			}).Wait()
			log.Infof("transport: reconnected after %d attempt(s)", attempt)
			return nil
		}
		log.Warnf("transport: reconnect attempt %d failed: %v", attempt, err)
	}

	log.Errorf("transport: giving up after %d reconnect attempts", attempts)
	return errors.ErrReconnectExhausted
}

// ReconnectBackoff 第 attempt 次尝试前的退避时长
// attempts 1..5 → 1s, 2s, 4s, 8s, 16s，封顶 30s
func ReconnectBackoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	// 2^6 = 64s 已超过封顶值，更大的指数直接返回封顶，
	// 避免纳秒乘法在大 attempt 下溢出
	if attempt > 6 {
		return constants.MaxReconnectBackoff
	}
	backoff := time.Duration(1<<uint(attempt-1)) * time.Second
	if backoff > constants.MaxReconnectBackoff {
		backoff = constants.MaxReconnectBackoff
	}
	return backoff
}

// ForceReset 无条件回到 Disconnected（不可恢复错误后的兜底）
func (t *Transport) ForceReset() {
	t.channelMu.Lock()
	_ = t.channel.Disconnect()
	t.channelMu.Unlock()
	t.resetToDisconnected()
	log.Warnf("transport: forced reset to disconnected")
}

func (t *Transport) resetToDisconnected() {
	t.sched.Schedule([]scheduler.ResourceID{ResConnection}, func() (interface{}, error) {
		t.conn.state = StateDisconnected
		t.conn.awaitingReply = false
		return nil, nil
	}).Wait()
}

// waitForEvent 有界轮询通道直至出现目标事件
// 等待期间收到的数据事件照常分发，不会丢失
func (t *Transport) waitForEvent(kind EventKind, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		t.channelMu.Lock()
		events := t.channel.Poll(constants.DefaultPollBatch)
		t.channelMu.Unlock()

		found := false
		for _, ev := range events {
			if ev.Kind == kind {
				found = true
				continue
			}
			if ev.Kind == EventData {
				t.handleData(ev.Data)
			}
		}
		if found {
			return true
		}

		select {
		case <-time.After(connectPollStep):
		case <-t.Ctx().Done():
			return false
		}
	}
	return false
}
