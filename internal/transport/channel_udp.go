package transport

import (
	"context"
	"net"
	"sync"
	"time"

	"gamenet-core/internal/constants"
	"gamenet-core/internal/core/dispose"
	"gamenet-core/internal/core/log"
	"gamenet-core/internal/core/safe"
	"gamenet-core/internal/errors"
)

// 入站事件缓冲大小与读超时步长
const (
	channelEventBuffer = 256
	channelReadStep    = 500 * time.Millisecond
)

// UDPChannel 纯数据报通道：一个数据报对应一个帧
// 不可靠路径——reliable 标志被忽略，丢包由上层协议容忍
type UDPChannel struct {
	mu       sync.Mutex
	conn     *net.UDPConn
	loopDone chan struct{}
	events   chan Event
	dispose.Dispose
}

// NewUDPChannel 创建 UDP 通道
func NewUDPChannel(parentCtx context.Context) *UDPChannel {
	c := &UDPChannel{
		events: make(chan Event, channelEventBuffer),
	}
	c.SetCtx(parentCtx, c.onClose)
	return c
}

func (c *UDPChannel) onClose() {
	// 不等待读取协程：它由 context 取消自行退出
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
}

// Connect 建立数据报套接字并启动读取协程
// 上一个连接的读取协程先行停止，套接字字段绝不被两个协程共用
func (c *UDPChannel) Connect(addr string) error {
	c.stopReadLoop()

	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return errors.NewTransportError("connect", "resolve failed", err)
	}
	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return errors.NewTransportError("connect", "dial failed", err)
	}

	done := make(chan struct{})
	c.mu.Lock()
	c.conn = conn
	c.loopDone = done
	c.mu.Unlock()

	safe.GoWithContext(c.Ctx(), "udp-channel-read", func(ctx context.Context) {
		defer close(done)
		c.readLoop(ctx, conn)
	})

	c.pushEvent(Event{Kind: EventConnected})
	return nil
}

// stopReadLoop 关闭当前套接字并等待其读取协程退出
func (c *UDPChannel) stopReadLoop() {
	c.mu.Lock()
	conn := c.conn
	done := c.loopDone
	c.conn = nil
	c.loopDone = nil
	c.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	if done != nil {
		<-done
	}
}

func (c *UDPChannel) current() *net.UDPConn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

func (c *UDPChannel) readLoop(ctx context.Context, conn *net.UDPConn) {
	buf := make([]byte, constants.MaxPayloadSize+constants.HeaderSize)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_ = conn.SetReadDeadline(time.Now().Add(channelReadStep))
		n, err := conn.Read(buf)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			// 套接字已被新连接替换时静默退出，不上报断开
			if !c.IsClosed() && c.current() == conn {
				log.Debugf("udp channel: read loop terminated: %v", err)
				c.pushEvent(Event{Kind: EventDisconnected})
			}
			return
		}
		if n == 0 {
			continue
		}

		data := make([]byte, n)
		copy(data, buf[:n])
		c.pushEvent(Event{Kind: EventData, Data: data})
	}
}

// pushEvent 入站事件缓冲已满时丢弃最旧事件
func (c *UDPChannel) pushEvent(ev Event) {
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

// Disconnect 停止读取协程、关闭套接字并上报断开事件
func (c *UDPChannel) Disconnect() error {
	c.stopReadLoop()
	c.pushEvent(Event{Kind: EventDisconnected})
	return nil
}

// Send 发送单个数据报；reliable 标志被忽略
func (c *UDPChannel) Send(data []byte, reliable bool) error {
	if c.IsClosed() {
		return errors.ErrChannelClosed
	}
	conn := c.current()
	if conn == nil {
		return errors.ErrNotConnected
	}
	_, err := conn.Write(data)
	if err != nil {
		return errors.NewTransportError("send", "udp write failed", err)
	}
	return nil
}

// Poll 非阻塞取出至多 max 个事件
func (c *UDPChannel) Poll(max int) []Event {
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
func (c *UDPChannel) Close() {
	c.Dispose.Close()
}
