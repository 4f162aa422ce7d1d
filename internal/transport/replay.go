package transport

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"gamenet-core/internal/core/log"
	"gamenet-core/internal/core/safe"
	"gamenet-core/internal/scheduler"
)

// startReplayLoop 启动断线队列重放循环
//
// 连接恢复后按配置的速率把排队报文逐批送回发送路径，避免重连
// 瞬间的突发挤爆带宽预算。重放报文同样经过整形准入，被拒绝的
// 报文回队等待下一批。
func (t *Transport) startReplayLoop() {
	if !t.cfg.Queue.Enabled {
		return
	}

	limiter := rate.NewLimiter(rate.Limit(t.cfg.Queue.ReplayRate), t.cfg.Queue.ReplayBatch)

	safe.GoLoop(t.Ctx(), "transport-replay", func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(500 * time.Millisecond):
		}

		if t.State() != StateConnected {
			return nil
		}
		t.replayBatch(ctx, limiter)
		return nil
	})
}

// replayBatch 重放一批排队报文
func (t *Transport) replayBatch(ctx context.Context, limiter *rate.Limiter) {
	batch := t.cfg.Queue.ReplayBatch

	result, err := t.sched.Schedule([]scheduler.ResourceID{ResOutboundQueue}, func() (interface{}, error) {
		if expired := t.queue.PruneExpired(nowFunc()); expired > 0 {
			log.Debugf("transport: pruned %d expired queued packets", expired)
		}

		popped := make([]QueuedPacket, 0, batch)
		for len(popped) < batch {
			pkt, ok := t.queue.Pop()
			if !ok {
				break
			}
			popped = append(popped, pkt)
		}
		return popped, nil
	}).Wait()
	if err != nil {
		return
	}

	packets := result.([]QueuedPacket)
	if len(packets) == 0 {
		return
	}
	log.Debugf("transport: replaying %d queued packets", len(packets))

	for i, pkt := range packets {
		if err := limiter.Wait(ctx); err != nil {
			t.requeue(packets[i:])
			return
		}
		if t.State() != StateConnected {
			t.requeue(packets[i:])
			return
		}

		frame, ok := materialize(pkt, t.nextSeq())
		if !ok {
			log.Warnf("transport: dropping untranslatable queued packet %s", pkt.Name)
			continue
		}

		rule := t.classify(pkt.Name)
		if err := t.sendFrame(frame, rule, pkt.Reliable); err != nil {
			// 整形拒绝或通道故障：本报文连同剩余批次回队
			t.requeue(packets[i:])
			return
		}
	}
}

// requeue 把未能重放的报文送回队列头部所在的优先级桶
func (t *Transport) requeue(packets []QueuedPacket) {
	t.sched.Schedule([]scheduler.ResourceID{ResOutboundQueue}, func() (interface{}, error) {
		for _, pkt := range packets {
			if !t.queue.Push(pkt) {
				log.Debugf("transport: outbound queue full during requeue, dropping %s", pkt.Name)
			}
		}
		return nil, nil
	}).Wait()
}
