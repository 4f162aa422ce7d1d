package packet

import (
	"bytes"
	"encoding/binary"
	"math"

	"gamenet-core/internal/constants"
)

// payloadWriter 负载编码器
// 字符串采用 u16 长度前缀 + 原始字节，数值字段大端定长
type payloadWriter struct {
	buf bytes.Buffer
}

func (w *payloadWriter) writeUint8(v uint8) {
	w.buf.WriteByte(v)
}

func (w *payloadWriter) writeUint16(v uint16) {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], v)
	w.buf.Write(tmp[:])
}

func (w *payloadWriter) writeUint32(v uint32) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	w.buf.Write(tmp[:])
}

func (w *payloadWriter) writeInt64(v int64) {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], uint64(v))
	w.buf.Write(tmp[:])
}

func (w *payloadWriter) writeFloat32(v float32) {
	w.writeUint32(math.Float32bits(v))
}

func (w *payloadWriter) writeString(s string) {
	if len(s) > constants.MaxStringLength {
		s = s[:constants.MaxStringLength]
	}
	w.writeUint16(uint16(len(s)))
	w.buf.WriteString(s)
}

// writeBlob 写入裸字节，不带长度前缀（只允许作为负载最后一个字段）
func (w *payloadWriter) writeBlob(b []byte) {
	w.buf.Write(b)
}

func (w *payloadWriter) bytes() []byte {
	return w.buf.Bytes()
}

// payloadReader 负载解码器
// 任意一次越界读取置位 failed，后续读取返回零值；
// 解码完成后必须恰好消费完 header 声明的长度
type payloadReader struct {
	data   []byte
	off    int
	failed bool
}

func newPayloadReader(data []byte) *payloadReader {
	return &payloadReader{data: data}
}

func (r *payloadReader) take(n int) []byte {
	if r.failed || r.off+n > len(r.data) {
		r.failed = true
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

func (r *payloadReader) readUint8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *payloadReader) readUint16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint16(b)
}

func (r *payloadReader) readUint32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

func (r *payloadReader) readInt64() int64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return int64(binary.BigEndian.Uint64(b))
}

func (r *payloadReader) readFloat32() float32 {
	return math.Float32frombits(r.readUint32())
}

func (r *payloadReader) readString() string {
	n := int(r.readUint16())
	b := r.take(n)
	if b == nil {
		return ""
	}
	return string(b)
}

// readRest 消费剩余全部字节（只允许作为负载最后一个字段）
func (r *payloadReader) readRest() []byte {
	if r.failed {
		return nil
	}
	b := r.data[r.off:]
	r.off = len(r.data)
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// consumedExactly 判断是否恰好消费完整个负载
func (r *payloadReader) consumedExactly() bool {
	return !r.failed && r.off == len(r.data)
}
