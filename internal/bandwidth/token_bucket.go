package bandwidth

import (
	"sync"
	"time"

	"gamenet-core/internal/errors"
)

// TokenBucket 非阻塞令牌桶
// 每次消费尝试时按流逝时间惰性补充令牌，封顶于容量；
// 令牌数永不为负、永不超过容量
type TokenBucket struct {
	mu         sync.Mutex
	rate       float64 // 令牌产生速率（单位/秒）
	capacity   float64 // 突发容量
	tokens     float64 // 当前令牌数
	lastRefill time.Time
}

// NewTokenBucket 创建令牌桶，初始为满
func NewTokenBucket(rate, capacity float64) (*TokenBucket, error) {
	if rate <= 0 {
		return nil, errors.ErrInvalidRate
	}
	if capacity <= 0 {
		return nil, errors.ErrInvalidCapacity
	}
	return &TokenBucket{
		rate:       rate,
		capacity:   capacity,
		tokens:     capacity,
		lastRefill: time.Now(),
	}, nil
}

// refillLocked 按流逝时间补充令牌，调用方必须持锁
func (tb *TokenBucket) refillLocked(now time.Time) {
	elapsed := now.Sub(tb.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}
	tb.tokens += tb.rate * elapsed
	if tb.tokens > tb.capacity {
		tb.tokens = tb.capacity
	}
	tb.lastRefill = now
}

// TryConsume 尝试一次性消费 amount 个令牌
// 令牌不足时不消费任何令牌并返回 false，绝不阻塞
func (tb *TokenBucket) TryConsume(amount float64) bool {
	if amount <= 0 {
		return true
	}

	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refillLocked(time.Now())
	if tb.tokens < amount {
		return false
	}
	tb.tokens -= amount
	return true
}

// Refund 归还令牌（用于两段式准入失败时回滚），封顶于容量
func (tb *TokenBucket) Refund(amount float64) {
	if amount <= 0 {
		return
	}

	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.tokens += amount
	if tb.tokens > tb.capacity {
		tb.tokens = tb.capacity
	}
}

// Available 返回当前可用令牌数（先补充再读取）
func (tb *TokenBucket) Available() float64 {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refillLocked(time.Now())
	return tb.tokens
}

// Reconfigure 调整速率与容量，当前令牌按新旧容量等比缩放
// 模式切换/限流重配后，立即可用的预算与新配额保持相同的填充比例
func (tb *TokenBucket) Reconfigure(rate, capacity float64) error {
	if rate <= 0 {
		return errors.ErrInvalidRate
	}
	if capacity <= 0 {
		return errors.ErrInvalidCapacity
	}

	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refillLocked(time.Now())
	tb.tokens = tb.tokens / tb.capacity * capacity
	tb.rate = rate
	tb.capacity = capacity
	return nil
}

// Rate 返回当前速率
func (tb *TokenBucket) Rate() float64 {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.rate
}

// Capacity 返回突发容量
func (tb *TokenBucket) Capacity() float64 {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.capacity
}
