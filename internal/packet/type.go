package packet

// MessageType 报文类型标签
// 字节值在线上保持稳定，重新编号必须提升协议版本
type MessageType byte

const (
	TypeHeartbeat           MessageType = 0x00
	TypeDisconnect          MessageType = 0x01
	TypeAuthRequest         MessageType = 0x10
	TypeAuthResponse        MessageType = 0x11
	TypeRegistration        MessageType = 0x12
	TypePositionUpdate      MessageType = 0x20
	TypeDeltaPositionUpdate MessageType = 0x21
	TypeTeleport            MessageType = 0x22
	TypeChatMessage         MessageType = 0x30
	TypeSystemMessage       MessageType = 0x31
	TypeWhisper             MessageType = 0x32
	TypeCommand             MessageType = 0x40
	TypeWorldState          MessageType = 0x50
)

// knownTypes 协议封闭集合：不在表中的类型标签导致整包被拒
var knownTypes = map[MessageType]string{
	TypeHeartbeat:           "Heartbeat",
	TypeDisconnect:          "Disconnect",
	TypeAuthRequest:         "AuthRequest",
	TypeAuthResponse:        "AuthResponse",
	TypeRegistration:        "Registration",
	TypePositionUpdate:      "PositionUpdate",
	TypeDeltaPositionUpdate: "DeltaPositionUpdate",
	TypeTeleport:            "Teleport",
	TypeChatMessage:         "ChatMessage",
	TypeSystemMessage:       "SystemMessage",
	TypeWhisper:             "Whisper",
	TypeCommand:             "Command",
	TypeWorldState:          "WorldState",
}

// IsKnown 判断类型标签是否在已知范围内
func (t MessageType) IsKnown() bool {
	_, ok := knownTypes[t]
	return ok
}

func (t MessageType) String() string {
	if name, ok := knownTypes[t]; ok {
		return name
	}
	return "Unknown"
}
