// Package packet 定义二进制线协议：定长帧头 + 封闭的类型化报文集合
//
// 帧头 15 字节（大端）：magic u32 | version u16 | type u8 | length u32 | sequence u32
// 传输层只需窥视帧头即可得知负载长度与处理方式，无需握手或协商。
package packet

import (
	"gamenet-core/internal/constants"
)

// Encode 将报文编码为完整帧（帧头 + 负载）
func Encode(msg Message, sequence uint32) []byte {
	var w payloadWriter
	msg.encodePayload(&w)
	payload := w.bytes()

	header := encodeHeader(Header{
		Magic:    constants.ProtocolMagic,
		Version:  constants.ProtocolVersion,
		Type:     msg.Type(),
		Length:   uint32(len(payload)),
		Sequence: sequence,
	})
	return append(header, payload...)
}

// Decode 是所有调用方使用的唯一解码入口
//
// 对未知、非法或截断的输入返回 ok=false 而非错误：
// 调用方应将其视为"不是协议帧，尝试按旧协议/裸数据处理"，
// 而不是硬性失败。合法帧必须恰好消费 header 声明的负载长度。
func Decode(data []byte) (Message, uint32, bool) {
	header, ok := decodeHeader(data)
	if !ok || !header.Valid() {
		return nil, 0, false
	}
	if header.Length > constants.MaxPayloadSize {
		return nil, 0, false
	}
	// 负载必须与声明长度严格一致，多余或不足都拒绝
	payload := data[constants.HeaderSize:]
	if uint32(len(payload)) != header.Length {
		return nil, 0, false
	}

	r := newPayloadReader(payload)
	msg := decodePayload(header.Type, r)
	if msg == nil || !r.consumedExactly() {
		return nil, 0, false
	}
	return msg, header.Sequence, true
}

// IsProtocolFrame 快速判断字节流是否以合法帧头开始
// 供传输层在非阻塞轮询中窥视使用
func IsProtocolFrame(data []byte) bool {
	header, ok := decodeHeader(data)
	return ok && header.Valid()
}

// PayloadLength 读取帧头声明的负载长度
// 供流式通道按长度恢复帧边界，调用方须先用 IsProtocolFrame 校验
func PayloadLength(data []byte) uint32 {
	header, ok := decodeHeader(data)
	if !ok {
		return 0
	}
	return header.Length
}

// decodePayload 按类型标签分发到对应的解码函数
// 协议是封闭集合，此处穷举所有变体
func decodePayload(t MessageType, r *payloadReader) Message {
	switch t {
	case TypeHeartbeat:
		return decodeHeartbeat(r)
	case TypeDisconnect:
		return decodeDisconnect(r)
	case TypeAuthRequest:
		return decodeAuthRequest(r)
	case TypeAuthResponse:
		return decodeAuthResponse(r)
	case TypeRegistration:
		return decodeRegistration(r)
	case TypePositionUpdate:
		return decodePositionUpdate(r)
	case TypeDeltaPositionUpdate:
		return decodeDeltaPositionUpdate(r)
	case TypeTeleport:
		return decodeTeleport(r)
	case TypeChatMessage:
		return decodeChatMessage(r)
	case TypeSystemMessage:
		return decodeSystemMessage(r)
	case TypeWhisper:
		return decodeWhisper(r)
	case TypeCommand:
		return decodeCommand(r)
	case TypeWorldState:
		return decodeWorldState(r)
	default:
		return nil
	}
}
