package packet

import (
	"encoding/binary"

	"gamenet-core/internal/constants"
)

// Header 固定帧头
// 布局（大端）：magic u32 | version u16 | type u8 | length u32 | sequence u32
// length 只计负载字节数，不含帧头本身
type Header struct {
	Magic    uint32
	Version  uint16
	Type     MessageType
	Length   uint32
	Sequence uint32
}

// Valid 判断帧头是否合法
// 魔数必须精确匹配，版本不得高于当前实现，类型标签必须在已知范围内
func (h Header) Valid() bool {
	if h.Magic != constants.ProtocolMagic {
		return false
	}
	if h.Version > constants.ProtocolVersion {
		return false
	}
	return h.Type.IsKnown()
}

// encodeHeader 将帧头写入定长缓冲区
func encodeHeader(h Header) []byte {
	buf := make([]byte, constants.HeaderSize)
	binary.BigEndian.PutUint32(buf[0:4], h.Magic)
	binary.BigEndian.PutUint16(buf[4:6], h.Version)
	buf[6] = byte(h.Type)
	binary.BigEndian.PutUint32(buf[7:11], h.Length)
	binary.BigEndian.PutUint32(buf[11:15], h.Sequence)
	return buf
}

// decodeHeader 从原始字节解析帧头，长度不足返回 false
func decodeHeader(data []byte) (Header, bool) {
	if len(data) < constants.HeaderSize {
		return Header{}, false
	}
	return Header{
		Magic:    binary.BigEndian.Uint32(data[0:4]),
		Version:  binary.BigEndian.Uint16(data[4:6]),
		Type:     MessageType(data[6]),
		Length:   binary.BigEndian.Uint32(data[7:11]),
		Sequence: binary.BigEndian.Uint32(data[11:15]),
	}, true
}
