package transport

import (
	"time"

	"gamenet-core/internal/packet"
)

// QueuedPacket 出站队列条目
// 帧协议报文与旧文本行两种表示择一：frame 为空时 legacy 有效。
// 翻译统一发生在重放边界，队列内保留提交时的原始表示。
type QueuedPacket struct {
	Frame    []byte // 完整二进制帧
	Legacy   string // 旧文本协议行
	Name     string // 报文名（分类用）
	Reliable bool
	Priority Priority
	Enqueued time.Time
}

// IsLegacy 判断条目是否为旧文本形式
func (p QueuedPacket) IsLegacy() bool {
	return len(p.Frame) == 0 && p.Legacy != ""
}

// Size 估算条目的线上字节数
func (p QueuedPacket) Size() int {
	if p.IsLegacy() {
		return len(p.Legacy)
	}
	return len(p.Frame)
}

// OutboundQueue 有界出站优先级队列
//
// 排序规则：优先级高者先出，同优先级按入队顺序（FIFO）。
// 队列满时丢弃新条目；超过最大存活时间的条目在重放前被静默剔除。
//
// 非并发安全：所有访问必须通过调度器的 outbound-queue 资源任务。
type OutboundQueue struct {
	buckets [4][]QueuedPacket // 按 Priority 索引
	size    int
	maxSize int
	maxAge  time.Duration
	dropped int64
	expired int64
}

// NewOutboundQueue 创建出站队列
func NewOutboundQueue(maxSize int, maxAge time.Duration) *OutboundQueue {
	return &OutboundQueue{
		maxSize: maxSize,
		maxAge:  maxAge,
	}
}

// Push 入队；队列已满返回 false 并丢弃该条目
func (q *OutboundQueue) Push(pkt QueuedPacket) bool {
	if q.size >= q.maxSize {
		q.dropped++
		return false
	}
	if pkt.Enqueued.IsZero() {
		pkt.Enqueued = time.Now()
	}
	q.buckets[pkt.Priority] = append(q.buckets[pkt.Priority], pkt)
	q.size++
	return true
}

// Pop 取出最高优先级的最早条目
func (q *OutboundQueue) Pop() (QueuedPacket, bool) {
	for p := PriorityCritical; p >= PriorityLow; p-- {
		bucket := q.buckets[p]
		if len(bucket) == 0 {
			continue
		}
		pkt := bucket[0]
		q.buckets[p] = bucket[1:]
		q.size--
		return pkt, true
	}
	return QueuedPacket{}, false
}

// PruneExpired 剔除超过最大存活时间的条目，返回剔除数量
func (q *OutboundQueue) PruneExpired(now time.Time) int {
	pruned := 0
	for p := range q.buckets {
		kept := q.buckets[p][:0]
		for _, pkt := range q.buckets[p] {
			if now.Sub(pkt.Enqueued) > q.maxAge {
				pruned++
				continue
			}
			kept = append(kept, pkt)
		}
		q.buckets[p] = kept
	}
	q.size -= pruned
	q.expired += int64(pruned)
	return pruned
}

// TrimBelow 丢弃低于指定优先级的全部条目（区域切换减压用）
func (q *OutboundQueue) TrimBelow(min Priority) int {
	trimmed := 0
	for p := PriorityLow; p < min; p++ {
		trimmed += len(q.buckets[p])
		q.buckets[p] = nil
	}
	q.size -= trimmed
	return trimmed
}

// Len 当前条目数
func (q *OutboundQueue) Len() int {
	return q.size
}

// Dropped 因容量被丢弃的累计条目数
func (q *OutboundQueue) Dropped() int64 {
	return q.dropped
}

// Expired 因超龄被剔除的累计条目数
func (q *OutboundQueue) Expired() int64 {
	return q.expired
}

// materialize 将队列条目转换为可发送的帧
// 旧文本行在此边界翻译为等价帧，线上规范表示始终是二进制帧
func materialize(pkt QueuedPacket, seq uint32) ([]byte, bool) {
	if !pkt.IsLegacy() {
		return pkt.Frame, true
	}
	msg, ok := packet.TranslateLegacy(pkt.Legacy)
	if !ok {
		return nil, false
	}
	return packet.Encode(msg, seq), true
}
