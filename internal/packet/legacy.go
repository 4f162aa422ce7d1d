package packet

import (
	"strconv"
	"strings"
)

// 旧文本子协议前缀
// 与早期纯文本客户端互通：冒号分隔字段，首段为操作名
const (
	legacyAuth     = "AUTH:"
	legacyPing     = "PING:"
	legacyPosition = "POSITION:"
	legacyDelta    = "MOVE_DELTA:"
	legacyChat     = "CHAT:"
	legacyCommand  = "COMMAND:"
)

var legacyPrefixes = []string{
	legacyAuth, legacyPing, legacyPosition, legacyDelta, legacyChat, legacyCommand,
}

// IsLegacyLine 判断字节流是否为旧文本协议行
func IsLegacyLine(data []byte) bool {
	s := string(data)
	for _, prefix := range legacyPrefixes {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}

// TranslateLegacy 将旧文本协议行翻译为等价的帧协议报文
//
// 出站队列允许存放旧文本形式；重放逻辑在发送边界调用本函数，
// 线上的规范表示始终是二进制帧。无法翻译的行返回 ok=false。
func TranslateLegacy(line string) (Message, bool) {
	switch {
	case strings.HasPrefix(line, legacyAuth):
		// AUTH:<user>:<pass>
		parts := strings.SplitN(line[len(legacyAuth):], ":", 2)
		if len(parts) != 2 {
			return nil, false
		}
		return AuthRequest{Username: parts[0], Password: parts[1]}, true

	case strings.HasPrefix(line, legacyPing):
		// PING:<millis>
		ms, err := strconv.ParseInt(line[len(legacyPing):], 10, 64)
		if err != nil {
			return nil, false
		}
		return Heartbeat{ClientTime: ms}, true

	case strings.HasPrefix(line, legacyPosition):
		// POSITION:<entity>:<x>:<y>:<z>[:<heading>]
		parts := strings.Split(line[len(legacyPosition):], ":")
		if len(parts) != 4 && len(parts) != 5 {
			return nil, false
		}
		entity, err := strconv.ParseUint(parts[0], 10, 32)
		if err != nil {
			return nil, false
		}
		coords, ok := parseFloats(parts[1:])
		if !ok {
			return nil, false
		}
		msg := PositionUpdate{EntityID: uint32(entity), X: coords[0], Y: coords[1], Z: coords[2]}
		if len(coords) == 4 {
			msg.Heading = coords[3]
		}
		return msg, true

	case strings.HasPrefix(line, legacyDelta):
		// MOVE_DELTA:<entity>:<dx>:<dy>:<dz>
		parts := strings.Split(line[len(legacyDelta):], ":")
		if len(parts) != 4 {
			return nil, false
		}
		entity, err := strconv.ParseUint(parts[0], 10, 32)
		if err != nil {
			return nil, false
		}
		deltas, ok := parseFloats(parts[1:])
		if !ok {
			return nil, false
		}
		return DeltaPositionUpdate{EntityID: uint32(entity), DX: deltas[0], DY: deltas[1], DZ: deltas[2]}, true

	case strings.HasPrefix(line, legacyChat):
		// CHAT:<text>（正文可以包含冒号）
		return ChatMessage{Text: line[len(legacyChat):]}, true

	case strings.HasPrefix(line, legacyCommand):
		// COMMAND:<name>[:<arg>...]
		parts := strings.Split(line[len(legacyCommand):], ":")
		if parts[0] == "" {
			return nil, false
		}
		var args []string
		if len(parts) > 1 {
			args = parts[1:]
		}
		return Command{Name: parts[0], Args: args}, true
	}
	return nil, false
}

func parseFloats(parts []string) ([]float32, bool) {
	out := make([]float32, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(p, 32)
		if err != nil {
			return nil, false
		}
		out[i] = float32(f)
	}
	return out, true
}
