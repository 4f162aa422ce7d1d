package transport

// EventKind 原始通道事件类型
type EventKind int

const (
	// EventConnected 通道层连接确认
	EventConnected EventKind = iota
	// EventDisconnected 通道层断开（对端或本端）
	EventDisconnected
	// EventData 收到一个入站数据单元
	EventData
)

// Event 原始通道事件
type Event struct {
	Kind EventKind
	Data []byte
}

// Channel 原始数据报通道
//
// 传输层唯一直接触碰网络的抽象。实现不要求并发安全：
// 传输层用单一互斥锁串行化全部 Poll/Send 调用（见 Transport）。
type Channel interface {
	// Connect 建立通道，阻塞至成功或超时（由实现内部的有界轮询保证）
	Connect(addr string) error

	// Disconnect 关闭通道
	Disconnect() error

	// Send 发送一个数据单元；reliable 指示是否要求可靠投递
	// （纯数据报实现可以忽略该标志）
	Send(data []byte, reliable bool) error

	// Poll 非阻塞地取出至多 max 个入站事件
	Poll(max int) []Event

	// Close 释放底层资源
	Close()
}
