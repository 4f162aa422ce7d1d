package transport

import "time"

// timeoutController 自适应心跳超时
//
// 每次超时把倍率加一（封顶），每次明显快于当前阈值（RTT 低于
// 当前超时的三分之一）的成功把倍率减一。单次慢 RTT 不会引起
// 阈值抖动，网络恢复后阈值也能较快回落。
type timeoutController struct {
	base          time.Duration
	maxMultiplier int
	multiplier    int
}

func newTimeoutController(base time.Duration, maxMultiplier int) timeoutController {
	if maxMultiplier < 1 {
		maxMultiplier = 1
	}
	return timeoutController{
		base:          base,
		maxMultiplier: maxMultiplier,
		multiplier:    1,
	}
}

// Current 当前有效超时
func (tc *timeoutController) Current() time.Duration {
	return tc.base * time.Duration(tc.multiplier)
}

// OnFailure 一次心跳超时：倍率加一，封顶于上限
func (tc *timeoutController) OnFailure() {
	if tc.multiplier < tc.maxMultiplier {
		tc.multiplier++
	}
}

// OnSuccess 一次心跳成功：RTT 低于当前超时的三分之一时倍率减一
func (tc *timeoutController) OnSuccess(rtt time.Duration) {
	if tc.multiplier > 1 && rtt*3 < tc.Current() {
		tc.multiplier--
	}
}

// Reset 恢复到基准超时
func (tc *timeoutController) Reset() {
	tc.multiplier = 1
}
