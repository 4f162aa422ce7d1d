package transport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gamenet-core/internal/packet"
)

func TestOutboundQueue_PriorityThenFIFO(t *testing.T) {
	t.Parallel()

	q := NewOutboundQueue(16, time.Minute)
	require.True(t, q.Push(QueuedPacket{Name: "low-1", Priority: PriorityLow}))
	require.True(t, q.Push(QueuedPacket{Name: "normal-1", Priority: PriorityNormal}))
	require.True(t, q.Push(QueuedPacket{Name: "critical-1", Priority: PriorityCritical}))
	require.True(t, q.Push(QueuedPacket{Name: "high-1", Priority: PriorityHigh}))
	require.True(t, q.Push(QueuedPacket{Name: "critical-2", Priority: PriorityCritical}))
	require.True(t, q.Push(QueuedPacket{Name: "normal-2", Priority: PriorityNormal}))

	var order []string
	for {
		pkt, ok := q.Pop()
		if !ok {
			break
		}
		order = append(order, pkt.Name)
	}
	assert.Equal(t, []string{"critical-1", "critical-2", "high-1", "normal-1", "normal-2", "low-1"}, order)
	assert.Zero(t, q.Len())
}

func TestOutboundQueue_CapacityDropsNewest(t *testing.T) {
	t.Parallel()

	q := NewOutboundQueue(2, time.Minute)
	require.True(t, q.Push(QueuedPacket{Name: "a"}))
	require.True(t, q.Push(QueuedPacket{Name: "b"}))
	assert.False(t, q.Push(QueuedPacket{Name: "c"}), "full queue rejects new entries")

	assert.Equal(t, 2, q.Len())
	assert.Equal(t, int64(1), q.Dropped())

	pkt, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, "a", pkt.Name, "existing entries are kept over new ones")
}

func TestOutboundQueue_PruneExpired(t *testing.T) {
	t.Parallel()

	q := NewOutboundQueue(16, 10*time.Second)
	now := time.Now()
	require.True(t, q.Push(QueuedPacket{Name: "stale", Enqueued: now.Add(-15 * time.Second)}))
	require.True(t, q.Push(QueuedPacket{Name: "fresh", Enqueued: now.Add(-5 * time.Second)}))
	require.True(t, q.Push(QueuedPacket{Name: "old-high", Priority: PriorityHigh, Enqueued: now.Add(-20 * time.Second)}))

	pruned := q.PruneExpired(now)
	assert.Equal(t, 2, pruned)
	assert.Equal(t, int64(2), q.Expired())
	assert.Equal(t, 1, q.Len())

	pkt, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, "fresh", pkt.Name)
}

func TestOutboundQueue_TrimBelow(t *testing.T) {
	t.Parallel()

	q := NewOutboundQueue(16, time.Minute)
	require.True(t, q.Push(QueuedPacket{Name: "low", Priority: PriorityLow}))
	require.True(t, q.Push(QueuedPacket{Name: "normal", Priority: PriorityNormal}))
	require.True(t, q.Push(QueuedPacket{Name: "high", Priority: PriorityHigh}))
	require.True(t, q.Push(QueuedPacket{Name: "critical", Priority: PriorityCritical}))

	trimmed := q.TrimBelow(PriorityHigh)
	assert.Equal(t, 2, trimmed)
	assert.Equal(t, 2, q.Len())

	var remaining []string
	for {
		pkt, ok := q.Pop()
		if !ok {
			break
		}
		remaining = append(remaining, pkt.Name)
	}
	assert.Equal(t, []string{"critical", "high"}, remaining)
}

func TestOutboundQueue_PushStampsEnqueueTime(t *testing.T) {
	t.Parallel()

	q := NewOutboundQueue(4, time.Minute)
	require.True(t, q.Push(QueuedPacket{Name: "x"}))

	pkt, ok := q.Pop()
	require.True(t, ok)
	assert.False(t, pkt.Enqueued.IsZero())
}

func TestQueuedPacket_Representation(t *testing.T) {
	t.Parallel()

	framed := QueuedPacket{Frame: []byte{1, 2, 3}}
	assert.False(t, framed.IsLegacy())
	assert.Equal(t, 3, framed.Size())

	legacy := QueuedPacket{Legacy: "CHAT:hi"}
	assert.True(t, legacy.IsLegacy())
	assert.Equal(t, 7, legacy.Size())
}

func TestMaterialize_FramePassesThrough(t *testing.T) {
	t.Parallel()

	frame := packet.Encode(packet.ChatMessage{Text: "hi"}, 7)
	out, ok := materialize(QueuedPacket{Frame: frame}, 99)
	require.True(t, ok)
	assert.Equal(t, frame, out, "already-framed packets keep their original sequence")
}

func TestMaterialize_LegacyTranslatedAtReplayBoundary(t *testing.T) {
	t.Parallel()

	out, ok := materialize(QueuedPacket{Legacy: "CHAT:hello"}, 42)
	require.True(t, ok)

	msg, seq, decoded := packet.Decode(out)
	require.True(t, decoded)
	assert.Equal(t, uint32(42), seq)
	assert.Equal(t, packet.ChatMessage{Text: "hello"}, msg)
}

func TestMaterialize_UntranslatableLegacyDropped(t *testing.T) {
	t.Parallel()

	_, ok := materialize(QueuedPacket{Legacy: "PING:not-a-number"}, 1)
	assert.False(t, ok)
}
