package main

import (
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"gamenet-core/internal/core/log"
	"gamenet-core/internal/packet"
)

// session 一个已接入的客户端
type session struct {
	key      string
	username string
	authed   bool
	reply    func(frame []byte)
}

// world 开发服务器的共享状态：会话注册表与回复序列号
type world struct {
	motd string

	mu       sync.RWMutex
	sessions map[string]*session

	sendSeq atomic.Uint32
}

func newWorld(motd string) *world {
	return &world{
		motd:     motd,
		sessions: make(map[string]*session),
	}
}

// attach 注册或复用一个会话，reply 绑定到当前传输端点
func (w *world) attach(key string, reply func(frame []byte)) *session {
	w.mu.Lock()
	defer w.mu.Unlock()
	if s, ok := w.sessions[key]; ok {
		s.reply = reply
		return s
	}
	s := &session{key: key, username: "anonymous", reply: reply}
	w.sessions[key] = s
	log.Infof("server: session attached: %s", key)
	return s
}

// detach 移除会话
func (w *world) detach(key string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.sessions[key]; ok {
		delete(w.sessions, key)
		log.Infof("server: session detached: %s", key)
	}
}

func (w *world) nextSeq() uint32 {
	return w.sendSeq.Add(1)
}

// handleInbound 处理一个入站数据单元（帧或旧文本行）
func (w *world) handleInbound(s *session, data []byte) {
	msg, _, ok := packet.Decode(data)
	if !ok {
		if packet.IsLegacyLine(data) {
			if legacyMsg, translated := packet.TranslateLegacy(string(data)); translated {
				w.handleMessage(s, legacyMsg)
				return
			}
		}
		log.Debugf("server: dropping %d undecodable bytes from %s", len(data), s.key)
		return
	}
	w.handleMessage(s, msg)
}

// handleMessage 开发服务器的最小游戏语义
func (w *world) handleMessage(s *session, msg packet.Message) {
	switch m := msg.(type) {
	case packet.Heartbeat:
		// 原样回显客户端时钟，RTT 由客户端结算
		s.reply(packet.Encode(packet.Heartbeat{ClientTime: m.ClientTime}, w.nextSeq()))

	case packet.Disconnect:
		log.Infof("server: %s disconnecting: %s", s.key, m.Reason)
		w.detach(s.key)

	case packet.AuthRequest:
		success := m.Username != "" && m.Password != ""
		resp := packet.AuthResponse{Success: success}
		if success {
			s.username = m.Username
			s.authed = true
			resp.SessionID = uuid.NewString()
			resp.Motd = w.motd
			log.Infof("server: %s authenticated as %s", s.key, m.Username)
		}
		s.reply(packet.Encode(resp, w.nextSeq()))

	case packet.Registration:
		s.reply(packet.Encode(packet.SystemMessage{
			Severity: 0,
			Text:     "registration accepted for " + m.Username,
		}, w.nextSeq()))

	case packet.ChatMessage:
		w.broadcast(packet.ChatMessage{Channel: m.Channel, Sender: s.username, Text: m.Text})

	case packet.Whisper:
		if !w.routeWhisper(s, m) {
			s.reply(packet.Encode(packet.SystemMessage{
				Severity: 1,
				Text:     "player not found: " + m.To,
			}, w.nextSeq()))
		}

	case packet.Command:
		w.handleCommand(s, m)

	case packet.PositionUpdate, packet.DeltaPositionUpdate, packet.Teleport:
		// 移动类报文只接收不应答

	default:
		log.Debugf("server: ignoring %s from %s", msg.Type(), s.key)
	}
}

// broadcast 向全部会话投递一条报文
func (w *world) broadcast(msg packet.Message) {
	w.mu.RLock()
	targets := make([]*session, 0, len(w.sessions))
	for _, s := range w.sessions {
		targets = append(targets, s)
	}
	w.mu.RUnlock()

	for _, s := range targets {
		s.reply(packet.Encode(msg, w.nextSeq()))
	}
}

// routeWhisper 按用户名路由私聊
func (w *world) routeWhisper(from *session, m packet.Whisper) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, s := range w.sessions {
		if s.username == m.To {
			s.reply(packet.Encode(packet.Whisper{From: from.username, To: m.To, Text: m.Text}, w.nextSeq()))
			return true
		}
	}
	return false
}

func (w *world) handleCommand(s *session, m packet.Command) {
	switch m.Name {
	case "who":
		w.mu.RLock()
		names := make([]string, 0, len(w.sessions))
		for _, sess := range w.sessions {
			names = append(names, sess.username)
		}
		w.mu.RUnlock()
		s.reply(packet.Encode(packet.SystemMessage{
			Severity: 0,
			Text:     "online: " + strings.Join(names, ", "),
		}, w.nextSeq()))
	default:
		s.reply(packet.Encode(packet.SystemMessage{
			Severity: 1,
			Text:     "unknown command: " + m.Name,
		}, w.nextSeq()))
	}
}
