package main

import (
	"context"
	"io"
	"net"
	"time"

	kcp "github.com/xtaci/kcp-go/v5"

	"gamenet-core/internal/constants"
	"gamenet-core/internal/core/log"
	"gamenet-core/internal/core/safe"
	"gamenet-core/internal/packet"
)

// serveUDP 数据报监听：每个数据报是一个完整帧或一行旧文本
func serveUDP(ctx context.Context, addr string, world *world) error {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return err
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return err
	}
	defer conn.Close()
	log.Infof("server: udp listening on %s", addr)

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	buf := make([]byte, constants.HeaderSize+constants.MaxPayloadSize)
	for {
		if err := conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond)); err != nil {
			return err
		}
		n, remote, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			return err
		}

		data := make([]byte, n)
		copy(data, buf[:n])
		target := remote
		sess := world.attach(target.String(), func(frame []byte) {
			if _, err := conn.WriteToUDP(frame, target); err != nil {
				log.Debugf("server: udp reply to %s failed: %v", target, err)
			}
		})
		world.handleInbound(sess, data)
	}
}

// serveKCP 可靠通道监听：流上按帧头长度切帧
func serveKCP(ctx context.Context, addr string, world *world) error {
	listener, err := kcp.ListenWithOptions(addr, nil, 0, 0)
	if err != nil {
		return err
	}
	defer listener.Close()
	log.Infof("server: kcp listening on %s", addr)

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	for {
		conn, err := listener.AcceptKCP()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		conn.SetNoDelay(1, 10, 2, 1)
		conn.SetWindowSize(128, 128)

		safe.Go("server-kcp-session", func() {
			serveKCPSession(ctx, conn, world)
		})
	}
}

// serveKCPSession 单个 KCP 会话的读循环
func serveKCPSession(ctx context.Context, conn *kcp.UDPSession, world *world) {
	defer conn.Close()

	key := conn.RemoteAddr().String()
	sess := world.attach(key, func(frame []byte) {
		if _, err := conn.Write(frame); err != nil {
			log.Debugf("server: kcp reply to %s failed: %v", key, err)
		}
	})
	defer world.detach(key)

	header := make([]byte, constants.HeaderSize)
	for ctx.Err() == nil {
		if err := conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond)); err != nil {
			return
		}
		if _, err := io.ReadFull(conn, header); err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			return
		}
		if !packet.IsProtocolFrame(header) {
			log.Warnf("server: kcp stream desync from %s, dropping session", key)
			return
		}

		length := packet.PayloadLength(header)
		frame := make([]byte, constants.HeaderSize+int(length))
		copy(frame, header)
		if length > 0 {
			if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
				return
			}
			if _, err := io.ReadFull(conn, frame[constants.HeaderSize:]); err != nil {
				return
			}
		}
		world.handleInbound(sess, frame)
	}
}
