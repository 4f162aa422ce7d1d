package packet

// Message 线上报文变体
// 封闭集合：每种报文只拥有自己需要的字段，构造后不可变，
// 除内容外没有任何身份
type Message interface {
	// Type 返回类型标签常量
	Type() MessageType

	// encodePayload 写入类型专属负载
	encodePayload(w *payloadWriter)
}

// ============================================================================
// 连接维护类
// ============================================================================

// Heartbeat 心跳，携带发送方本地时钟（毫秒）
type Heartbeat struct {
	ClientTime int64
}

func (m Heartbeat) Type() MessageType { return TypeHeartbeat }

func (m Heartbeat) encodePayload(w *payloadWriter) {
	w.writeInt64(m.ClientTime)
}

func decodeHeartbeat(r *payloadReader) Message {
	return Heartbeat{ClientTime: r.readInt64()}
}

// Disconnect 主动断开通知
type Disconnect struct {
	Reason string
}

func (m Disconnect) Type() MessageType { return TypeDisconnect }

func (m Disconnect) encodePayload(w *payloadWriter) {
	w.writeString(m.Reason)
}

func decodeDisconnect(r *payloadReader) Message {
	return Disconnect{Reason: r.readString()}
}

// ============================================================================
// 账户类
// ============================================================================

// AuthRequest 登录请求
// 凭据明文传输是已知弱点，协议层不做加密（见设计文档）
type AuthRequest struct {
	Username string
	Password string
}

func (m AuthRequest) Type() MessageType { return TypeAuthRequest }

func (m AuthRequest) encodePayload(w *payloadWriter) {
	w.writeString(m.Username)
	w.writeString(m.Password)
}

func decodeAuthRequest(r *payloadReader) Message {
	return AuthRequest{Username: r.readString(), Password: r.readString()}
}

// AuthResponse 登录应答
type AuthResponse struct {
	Success   bool
	SessionID string
	Motd      string
}

func (m AuthResponse) Type() MessageType { return TypeAuthResponse }

func (m AuthResponse) encodePayload(w *payloadWriter) {
	var success uint8
	if m.Success {
		success = 1
	}
	w.writeUint8(success)
	w.writeString(m.SessionID)
	w.writeString(m.Motd)
}

func decodeAuthResponse(r *payloadReader) Message {
	return AuthResponse{
		Success:   r.readUint8() != 0,
		SessionID: r.readString(),
		Motd:      r.readString(),
	}
}

// Registration 注册新账户
type Registration struct {
	Username string
	Password string
	Email    string
}

func (m Registration) Type() MessageType { return TypeRegistration }

func (m Registration) encodePayload(w *payloadWriter) {
	w.writeString(m.Username)
	w.writeString(m.Password)
	w.writeString(m.Email)
}

func decodeRegistration(r *payloadReader) Message {
	return Registration{
		Username: r.readString(),
		Password: r.readString(),
		Email:    r.readString(),
	}
}

// ============================================================================
// 位置类
// ============================================================================

// PositionUpdate 绝对位置更新
type PositionUpdate struct {
	EntityID uint32
	X        float32
	Y        float32
	Z        float32
	Heading  float32
}

func (m PositionUpdate) Type() MessageType { return TypePositionUpdate }

func (m PositionUpdate) encodePayload(w *payloadWriter) {
	w.writeUint32(m.EntityID)
	w.writeFloat32(m.X)
	w.writeFloat32(m.Y)
	w.writeFloat32(m.Z)
	w.writeFloat32(m.Heading)
}

func decodePositionUpdate(r *payloadReader) Message {
	return PositionUpdate{
		EntityID: r.readUint32(),
		X:        r.readFloat32(),
		Y:        r.readFloat32(),
		Z:        r.readFloat32(),
		Heading:  r.readFloat32(),
	}
}

// DeltaPositionUpdate 相对位移更新
type DeltaPositionUpdate struct {
	EntityID uint32
	DX       float32
	DY       float32
	DZ       float32
}

func (m DeltaPositionUpdate) Type() MessageType { return TypeDeltaPositionUpdate }

func (m DeltaPositionUpdate) encodePayload(w *payloadWriter) {
	w.writeUint32(m.EntityID)
	w.writeFloat32(m.DX)
	w.writeFloat32(m.DY)
	w.writeFloat32(m.DZ)
}

func decodeDeltaPositionUpdate(r *payloadReader) Message {
	return DeltaPositionUpdate{
		EntityID: r.readUint32(),
		DX:       r.readFloat32(),
		DY:       r.readFloat32(),
		DZ:       r.readFloat32(),
	}
}

// Teleport 瞬移（服务端权威）
type Teleport struct {
	EntityID uint32
	X        float32
	Y        float32
	Z        float32
	Zone     string
}

func (m Teleport) Type() MessageType { return TypeTeleport }

func (m Teleport) encodePayload(w *payloadWriter) {
	w.writeUint32(m.EntityID)
	w.writeFloat32(m.X)
	w.writeFloat32(m.Y)
	w.writeFloat32(m.Z)
	w.writeString(m.Zone)
}

func decodeTeleport(r *payloadReader) Message {
	return Teleport{
		EntityID: r.readUint32(),
		X:        r.readFloat32(),
		Y:        r.readFloat32(),
		Z:        r.readFloat32(),
		Zone:     r.readString(),
	}
}

// ============================================================================
// 聊天类
// ============================================================================

// ChatMessage 频道聊天
type ChatMessage struct {
	Channel uint8
	Sender  string
	Text    string
}

func (m ChatMessage) Type() MessageType { return TypeChatMessage }

func (m ChatMessage) encodePayload(w *payloadWriter) {
	w.writeUint8(m.Channel)
	w.writeString(m.Sender)
	w.writeString(m.Text)
}

func decodeChatMessage(r *payloadReader) Message {
	return ChatMessage{
		Channel: r.readUint8(),
		Sender:  r.readString(),
		Text:    r.readString(),
	}
}

// SystemMessage 系统广播
type SystemMessage struct {
	Severity uint8
	Text     string
}

func (m SystemMessage) Type() MessageType { return TypeSystemMessage }

func (m SystemMessage) encodePayload(w *payloadWriter) {
	w.writeUint8(m.Severity)
	w.writeString(m.Text)
}

func decodeSystemMessage(r *payloadReader) Message {
	return SystemMessage{
		Severity: r.readUint8(),
		Text:     r.readString(),
	}
}

// Whisper 私聊
type Whisper struct {
	From string
	To   string
	Text string
}

func (m Whisper) Type() MessageType { return TypeWhisper }

func (m Whisper) encodePayload(w *payloadWriter) {
	w.writeString(m.From)
	w.writeString(m.To)
	w.writeString(m.Text)
}

func decodeWhisper(r *payloadReader) Message {
	return Whisper{
		From: r.readString(),
		To:   r.readString(),
		Text: r.readString(),
	}
}

// ============================================================================
// 指令与世界状态
// ============================================================================

// Command 客户端指令（斜杠命令等）
type Command struct {
	Name string
	Args []string
}

func (m Command) Type() MessageType { return TypeCommand }

func (m Command) encodePayload(w *payloadWriter) {
	w.writeString(m.Name)
	w.writeUint16(uint16(len(m.Args)))
	for _, arg := range m.Args {
		w.writeString(arg)
	}
}

func decodeCommand(r *payloadReader) Message {
	name := r.readString()
	count := int(r.readUint16())
	var args []string
	for i := 0; i < count; i++ {
		args = append(args, r.readString())
	}
	return Command{Name: name, Args: args}
}

// WorldState 世界状态快照，负载为不透明字节（上层解释）
type WorldState struct {
	Tick uint32
	Blob []byte
}

func (m WorldState) Type() MessageType { return TypeWorldState }

func (m WorldState) encodePayload(w *payloadWriter) {
	w.writeUint32(m.Tick)
	w.writeBlob(m.Blob)
}

func decodeWorldState(r *payloadReader) Message {
	return WorldState{
		Tick: r.readUint32(),
		Blob: r.readRest(),
	}
}
