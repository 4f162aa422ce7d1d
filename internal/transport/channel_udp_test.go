package transport

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestUDPChannel_ReconnectReplacesReadLoop 断开后重连：
// 旧的读取协程必须先退出，新套接字上的收发照常工作
func TestUDPChannel_ReconnectReplacesReadLoop(t *testing.T) {
	t.Parallel()

	lis, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer lis.Close()
	addr := lis.LocalAddr().String()

	c := NewUDPChannel(context.Background())
	defer c.Close()

	require.NoError(t, c.Connect(addr))
	require.NoError(t, c.Disconnect())
	require.NoError(t, c.Connect(addr))

	require.NoError(t, c.Send([]byte("ping"), false))

	buf := make([]byte, 16)
	require.NoError(t, lis.SetReadDeadline(time.Now().Add(time.Second)))
	n, remote, err := lis.ReadFromUDP(buf)
	require.NoError(t, err)
	assert.Equal(t, "ping", string(buf[:n]))

	// 回包必须由新的读取协程投递到事件缓冲
	_, err = lis.WriteToUDP([]byte("pong"), remote)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		for _, ev := range c.Poll(8) {
			if ev.Kind == EventData && string(ev.Data) == "pong" {
				return true
			}
		}
		return false
	}, 2*time.Second, 20*time.Millisecond)
}

// TestUDPChannel_SendWithoutConnect 未连接时发送直接报错
func TestUDPChannel_SendWithoutConnect(t *testing.T) {
	t.Parallel()

	c := NewUDPChannel(context.Background())
	defer c.Close()

	assert.Error(t, c.Send([]byte("x"), false))
}
