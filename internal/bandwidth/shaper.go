// Package bandwidth 实现多类别带宽整形
//
// 一个全局令牌桶加每类别一个令牌桶。Critical 类别无条件放行；
// 其余类别必须先后通过类别桶与全局桶（类别桶失败不触碰全局桶，
// 全局桶失败回滚类别桶），保证两桶准入的原子性。
package bandwidth

import (
	"sync"

	"gamenet-core/internal/constants"
	"gamenet-core/internal/core/log"
	"gamenet-core/internal/errors"
)

// Mode 带宽分配模式
// 按固定百分比重新划分各类别的速率与突发，整形算法本身不变
type Mode int

const (
	ModeNormal Mode = iota
	ModeCombat
	ModeCrafting
)

func (m Mode) String() string {
	switch m {
	case ModeCombat:
		return "combat"
	case ModeCrafting:
		return "crafting"
	default:
		return "normal"
	}
}

// ParseMode 解析模式名
func ParseMode(name string) (Mode, bool) {
	switch name {
	case "normal":
		return ModeNormal, true
	case "combat":
		return ModeCombat, true
	case "crafting":
		return ModeCrafting, true
	}
	return ModeNormal, false
}

// partition 类别配额：占全局限额的百分比
type partition struct {
	RatePct  float64
	BurstPct float64
}

// 各模式的类别配额表
// Combat 向战斗相关流量倾斜，Crafting 放宽聊天
var modePartitions = map[Mode]map[Category]partition{
	ModeNormal: {
		CategoryCritical:  {RatePct: 0.20, BurstPct: 0.20},
		CategoryGameplay:  {RatePct: 0.30, BurstPct: 0.30},
		CategoryPosition:  {RatePct: 0.25, BurstPct: 0.25},
		CategoryChat:      {RatePct: 0.10, BurstPct: 0.10},
		CategoryTelemetry: {RatePct: 0.05, BurstPct: 0.05},
		CategoryMisc:      {RatePct: 0.10, BurstPct: 0.10},
	},
	ModeCombat: {
		CategoryCritical:  {RatePct: 0.25, BurstPct: 0.25},
		CategoryGameplay:  {RatePct: 0.45, BurstPct: 0.45},
		CategoryPosition:  {RatePct: 0.20, BurstPct: 0.20},
		CategoryChat:      {RatePct: 0.03, BurstPct: 0.03},
		CategoryTelemetry: {RatePct: 0.02, BurstPct: 0.02},
		CategoryMisc:      {RatePct: 0.05, BurstPct: 0.05},
	},
	ModeCrafting: {
		CategoryCritical:  {RatePct: 0.20, BurstPct: 0.20},
		CategoryGameplay:  {RatePct: 0.40, BurstPct: 0.40},
		CategoryPosition:  {RatePct: 0.10, BurstPct: 0.10},
		CategoryChat:      {RatePct: 0.15, BurstPct: 0.15},
		CategoryTelemetry: {RatePct: 0.05, BurstPct: 0.05},
		CategoryMisc:      {RatePct: 0.10, BurstPct: 0.10},
	},
}

// Shaper 多类别带宽整形器
type Shaper struct {
	mu            sync.Mutex
	nominalRate   float64
	nominalBurst  float64
	throttleLevel int
	mode          Mode
	global        *TokenBucket
	categories    map[Category]*TokenBucket
	denied        map[Category]int64
}

// NewShaper 创建整形器
// rate/burst 为全局名义限额，各类别桶按当前模式的配额派生
func NewShaper(rate, burst float64) (*Shaper, error) {
	if rate <= 0 {
		return nil, errors.ErrInvalidRate
	}
	if burst <= 0 {
		return nil, errors.ErrInvalidCapacity
	}

	global, err := NewTokenBucket(rate, burst)
	if err != nil {
		return nil, err
	}

	s := &Shaper{
		nominalRate:  rate,
		nominalBurst: burst,
		mode:         ModeNormal,
		global:       global,
		categories:   make(map[Category]*TokenBucket),
		denied:       make(map[Category]int64),
	}

	for cat, p := range modePartitions[ModeNormal] {
		bucket, err := NewTokenBucket(rate*p.RatePct, burst*p.BurstPct)
		if err != nil {
			return nil, err
		}
		s.categories[cat] = bucket
	}
	return s, nil
}

// Admit 判定指定类别、指定大小的报文能否立即发送
//
// Critical 类别无条件放行。其余类别先查类别桶：类别桶失败直接拒绝，
// 全局桶分毫不动，把令牌留给其他类别；类别桶通过后查全局桶，
// 全局桶失败则回滚类别桶，整体表现为原子准入。
func (s *Shaper) Admit(cat Category, size float64) bool {
	if cat == CategoryCritical {
		return true
	}

	bucket := s.bucketFor(cat)
	if !bucket.TryConsume(size) {
		s.recordDenied(cat)
		return false
	}
	if !s.global.TryConsume(size) {
		bucket.Refund(size)
		s.recordDenied(cat)
		return false
	}
	return true
}

func (s *Shaper) bucketFor(cat Category) *TokenBucket {
	s.mu.Lock()
	defer s.mu.Unlock()
	if bucket, ok := s.categories[cat]; ok {
		return bucket
	}
	return s.categories[CategoryMisc]
}

func (s *Shaper) recordDenied(cat Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.denied[cat]++
}

// DeniedCount 返回指定类别被拒绝的累计次数
func (s *Shaper) DeniedCount(cat Category) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.denied[cat]
}

// SetMode 切换带宽分配模式并重分各类别桶
func (s *Shaper) SetMode(mode Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode == mode {
		return
	}
	s.mode = mode
	s.repartitionLocked()
	log.Infof("bandwidth: mode switched to %s", mode)
}

// Mode 返回当前模式
func (s *Shaper) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// SetThrottleLevel 应用服务端请求的限流级别（0-5）
// 级别线性压缩有效全局速率，级别 5 仅保留名义值的 10%
func (s *Shaper) SetThrottleLevel(level int) error {
	if level < 0 || level > constants.MaxThrottleLevel {
		return errors.NewConfigError("throttle_level", "must be between 0 and 5")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.throttleLevel == level {
		return nil
	}
	s.throttleLevel = level
	s.repartitionLocked()
	log.Infof("bandwidth: server throttle level set to %d (factor %.2f)", level, throttleFactor(level))
	return nil
}

// ThrottleLevel 返回当前限流级别
func (s *Shaper) ThrottleLevel() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.throttleLevel
}

// EffectiveGlobalRate 返回限流后的有效全局速率
func (s *Shaper) EffectiveGlobalRate() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nominalRate * throttleFactor(s.throttleLevel)
}

// throttleFactor 级别 0 → 1.0，级别 5 → 0.10，线性插值
func throttleFactor(level int) float64 {
	return 1.0 - (1.0-constants.MinThrottleFactor)*float64(level)/float64(constants.MaxThrottleLevel)
}

// repartitionLocked 按当前模式与限流级别重配全部桶，调用方必须持锁
// Reconfigure 按填充比例缩放现有令牌：换到 Combat 后 Gameplay 的
// 新预算立即可用，而不是等旧令牌慢慢补到新容量
func (s *Shaper) repartitionLocked() {
	factor := throttleFactor(s.throttleLevel)
	effectiveRate := s.nominalRate * factor
	effectiveBurst := s.nominalBurst * factor

	if err := s.global.Reconfigure(effectiveRate, effectiveBurst); err != nil {
		log.Warnf("bandwidth: global bucket reconfigure failed: %v", err)
		return
	}
	for cat, p := range modePartitions[s.mode] {
		bucket := s.categories[cat]
		if bucket == nil {
			continue
		}
		if err := bucket.Reconfigure(effectiveRate*p.RatePct, effectiveBurst*p.BurstPct); err != nil {
			log.Warnf("bandwidth: %s bucket reconfigure failed: %v", cat, err)
		}
	}
}
