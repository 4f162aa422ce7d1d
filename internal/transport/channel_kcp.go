package transport

import (
	"context"
	"io"
	"sync"
	"time"

	kcp "github.com/xtaci/kcp-go/v5"

	"gamenet-core/internal/constants"
	"gamenet-core/internal/core/dispose"
	"gamenet-core/internal/core/log"
	"gamenet-core/internal/core/safe"
	"gamenet-core/internal/errors"
	"gamenet-core/internal/packet"
)

// KCPChannel 基于 KCP ARQ 的可靠数据报通道
// 所有数据可靠有序投递；KCP 会话是字节流，帧边界由帧头的
// length 字段恢复
type KCPChannel struct {
	mu       sync.Mutex
	session  *kcp.UDPSession
	loopDone chan struct{}
	events   chan Event
	dispose.Dispose
}

// NewKCPChannel 创建 KCP 通道
func NewKCPChannel(parentCtx context.Context) *KCPChannel {
	c := &KCPChannel{
		events: make(chan Event, channelEventBuffer),
	}
	c.SetCtx(parentCtx, c.onClose)
	return c
}

func (c *KCPChannel) onClose() {
	// 不等待读取协程：它由 context 取消自行退出
	c.mu.Lock()
	session := c.session
	c.session = nil
	c.mu.Unlock()
	if session != nil {
		_ = session.Close()
	}
}

// Connect 建立 KCP 会话并启动分帧读取协程
// 上一个会话的读取协程先行停止：同一字节流上绝不允许两个
// 并发的 ReadFull 交错拆帧
func (c *KCPChannel) Connect(addr string) error {
	c.stopReadLoop()

	session, err := kcp.DialWithOptions(addr, nil, 0, 0)
	if err != nil {
		return errors.NewTransportError("connect", "kcp dial failed", err)
	}
	session.SetNoDelay(1, 10, 2, 1)
	session.SetWindowSize(128, 128)

	done := make(chan struct{})
	c.mu.Lock()
	c.session = session
	c.loopDone = done
	c.mu.Unlock()

	safe.GoWithContext(c.Ctx(), "kcp-channel-read", func(ctx context.Context) {
		defer close(done)
		c.readLoop(ctx, session)
	})

	c.pushEvent(Event{Kind: EventConnected})
	return nil
}

// stopReadLoop 关闭当前会话并等待其读取协程退出
func (c *KCPChannel) stopReadLoop() {
	c.mu.Lock()
	session := c.session
	done := c.loopDone
	c.session = nil
	c.loopDone = nil
	c.mu.Unlock()

	if session != nil {
		_ = session.Close()
	}
	if done != nil {
		<-done
	}
}

func (c *KCPChannel) current() *kcp.UDPSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// readLoop 从字节流中恢复帧：先读定长帧头，再按声明长度读负载
func (c *KCPChannel) readLoop(ctx context.Context, session *kcp.UDPSession) {
	header := make([]byte, constants.HeaderSize)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_ = session.SetReadDeadline(time.Now().Add(channelReadStep))
		if _, err := io.ReadFull(session, header); err != nil {
			if isTimeout(err) {
				continue
			}
			// 会话已被新连接替换时静默退出，不上报断开
			if !c.IsClosed() && c.current() == session {
				log.Debugf("kcp channel: read loop terminated: %v", err)
				c.pushEvent(Event{Kind: EventDisconnected})
			}
			return
		}

		frame, ok := c.readFrame(session, header)
		if !ok {
			// 帧头非法意味着流失去同步，只能断开
			if !c.IsClosed() && c.current() == session {
				log.Warnf("kcp channel: stream desynchronized, disconnecting")
				c.pushEvent(Event{Kind: EventDisconnected})
			}
			return
		}
		c.pushEvent(Event{Kind: EventData, Data: frame})
	}
}

// readFrame 校验帧头并读完整帧
func (c *KCPChannel) readFrame(session *kcp.UDPSession, header []byte) ([]byte, bool) {
	if !packet.IsProtocolFrame(header) {
		return nil, false
	}
	length := int(packet.PayloadLength(header))
	if length > constants.MaxPayloadSize {
		return nil, false
	}

	frame := make([]byte, constants.HeaderSize+length)
	copy(frame, header)
	if length > 0 {
		// 负载可能跨多个读超时周期到达
		_ = session.SetReadDeadline(time.Now().Add(channelReadStep * 4))
		if _, err := io.ReadFull(session, frame[constants.HeaderSize:]); err != nil {
			return nil, false
		}
	}
	return frame, true
}

func isTimeout(err error) bool {
	type timeout interface{ Timeout() bool }
	te, ok := err.(timeout)
	return ok && te.Timeout()
}

// pushEvent 入站事件缓冲已满时丢弃最旧事件
func (c *KCPChannel) pushEvent(ev Event) {
	for {
		select {
		case c.events <- ev:
			return
		default:
			select {
			case <-c.events:
			default:
			}
		}
	}
}

// Disconnect 停止读取协程、关闭会话并上报断开事件
func (c *KCPChannel) Disconnect() error {
	c.stopReadLoop()
	c.pushEvent(Event{Kind: EventDisconnected})
	return nil
}

// Send 发送一帧；KCP 下所有数据都是可靠的，reliable 标志无额外语义
func (c *KCPChannel) Send(data []byte, reliable bool) error {
	if c.IsClosed() {
		return errors.ErrChannelClosed
	}
	session := c.current()
	if session == nil {
		return errors.ErrNotConnected
	}
	if _, err := session.Write(data); err != nil {
		return errors.NewTransportError("send", "kcp write failed", err)
	}
	return nil
}

// Poll 非阻塞取出至多 max 个事件
func (c *KCPChannel) Poll(max int) []Event {
	var out []Event
	for len(out) < max {
		select {
		case ev := <-c.events:
			out = append(out, ev)
		default:
			return out
		}
	}
	return out
}

// Close 释放通道
func (c *KCPChannel) Close() {
	c.Dispose.Close()
}
