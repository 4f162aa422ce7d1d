package bandwidth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gamenet-core/internal/errors"
)

// newTestShaper 慢速率大容量：测试期间补充可忽略，只看初始预算
func newTestShaper(t *testing.T) *Shaper {
	t.Helper()
	s, err := NewShaper(0.001, 10000)
	require.NoError(t, err)
	return s
}

func TestNewShaper_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewShaper(0, 100)
	assert.ErrorIs(t, err, errors.ErrInvalidRate)

	_, err = NewShaper(100, -1)
	assert.ErrorIs(t, err, errors.ErrInvalidCapacity)
}

func TestShaper_CriticalAlwaysAdmitted(t *testing.T) {
	t.Parallel()
	s := newTestShaper(t)

	// 远超任何预算的尺寸也必须放行
	for i := 0; i < 100; i++ {
		assert.True(t, s.Admit(CategoryCritical, 1e6))
	}
	assert.Zero(t, s.DeniedCount(CategoryCritical))
}

func TestShaper_CategoryBudgetDeniesWithoutTouchingGlobal(t *testing.T) {
	t.Parallel()
	s := newTestShaper(t)

	// Normal 模式下 Chat 占 10%（1000），超出即拒
	assert.True(t, s.Admit(CategoryChat, 900))
	assert.False(t, s.Admit(CategoryChat, 200))
	assert.Equal(t, int64(1), s.DeniedCount(CategoryChat))

	// 类别桶拒绝不得消耗全局桶：其余类别的预算完好无损
	assert.True(t, s.Admit(CategoryGameplay, 3000))
	assert.True(t, s.Admit(CategoryPosition, 2500))
}

func TestShaper_AggregateNeverExceedsGlobalCapacity(t *testing.T) {
	t.Parallel()
	s := newTestShaper(t)

	// 贪心消费每个非关键类别，放行总量不得超过全局容量
	admitted := 0.0
	for _, cat := range AllCategories() {
		if cat == CategoryCritical {
			continue
		}
		for s.Admit(cat, 100) {
			admitted += 100
		}
	}
	assert.LessOrEqual(t, admitted, 10000.0)
	assert.Positive(t, admitted)
}

func TestShaper_ExampleScenario(t *testing.T) {
	t.Parallel()

	// 全局容量 1000：非关键流量把全局预算耗到只剩小额后，
	// 大报文被拒，Critical 仍然无条件放行
	s, err := NewShaper(0.001, 1000)
	require.NoError(t, err)

	require.True(t, s.Admit(CategoryGameplay, 300))
	require.True(t, s.Admit(CategoryPosition, 250))
	require.True(t, s.Admit(CategoryMisc, 100))

	assert.False(t, s.Admit(CategoryGameplay, 400), "category budget exhausted")
	assert.True(t, s.Admit(CategoryCritical, 5000), "critical bypasses all buckets")
}

func TestShaper_ModeRepartitionsBudgets(t *testing.T) {
	t.Parallel()
	s := newTestShaper(t)

	assert.Equal(t, ModeNormal, s.Mode())

	// Combat 模式把 Chat 压到 3%（300），Gameplay 提到 45%（4500）
	s.SetMode(ModeCombat)
	assert.Equal(t, ModeCombat, s.Mode())

	assert.False(t, s.Admit(CategoryChat, 400))
	assert.True(t, s.Admit(CategoryGameplay, 4000))
}

func TestShaper_ModeSwitchPreservesFillFraction(t *testing.T) {
	t.Parallel()
	s := newTestShaper(t)

	// Chat 消耗到半满（1000 中用掉 500）
	require.True(t, s.Admit(CategoryChat, 500))

	// Combat 下 Chat 配额 300，半满即 150
	s.SetMode(ModeCombat)
	assert.False(t, s.Admit(CategoryChat, 200))
	assert.True(t, s.Admit(CategoryChat, 150))
}

func TestShaper_SetModeIdempotent(t *testing.T) {
	t.Parallel()
	s := newTestShaper(t)

	require.True(t, s.Admit(CategoryChat, 800))
	// 重复设置同一模式不得重置桶
	s.SetMode(ModeNormal)
	assert.False(t, s.Admit(CategoryChat, 900))
}

func TestShaper_ThrottleLevelScalesEffectiveRate(t *testing.T) {
	t.Parallel()

	s, err := NewShaper(1000, 2000)
	require.NoError(t, err)

	assert.Equal(t, 0, s.ThrottleLevel())
	assert.InDelta(t, 1000, s.EffectiveGlobalRate(), 0.01)

	require.NoError(t, s.SetThrottleLevel(1))
	assert.InDelta(t, 820, s.EffectiveGlobalRate(), 0.01)

	require.NoError(t, s.SetThrottleLevel(5))
	assert.InDelta(t, 100, s.EffectiveGlobalRate(), 0.01, "level 5 keeps 10% of nominal")

	require.NoError(t, s.SetThrottleLevel(0))
	assert.InDelta(t, 1000, s.EffectiveGlobalRate(), 0.01, "level 0 restores nominal")
}

func TestShaper_ThrottleLevelValidation(t *testing.T) {
	t.Parallel()
	s := newTestShaper(t)

	assert.Error(t, s.SetThrottleLevel(-1))
	assert.Error(t, s.SetThrottleLevel(6))
	assert.NoError(t, s.SetThrottleLevel(0))
}

func TestShaper_ThrottleShrinksBurst(t *testing.T) {
	t.Parallel()
	s := newTestShaper(t)

	require.NoError(t, s.SetThrottleLevel(5))
	// 级别 5 后 Gameplay 突发只有 10000*0.3*0.1 = 300
	assert.False(t, s.Admit(CategoryGameplay, 500))
	assert.True(t, s.Admit(CategoryGameplay, 200))
}

func TestShaper_UnknownCategoryFallsBackToMisc(t *testing.T) {
	t.Parallel()
	s := newTestShaper(t)

	// Misc 预算 10%（1000），未知类别共享它
	assert.True(t, s.Admit(Category(99), 900))
	assert.False(t, s.Admit(Category(99), 500))
	assert.False(t, s.Admit(CategoryMisc, 500))
}

func TestParseMode(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"normal", "combat", "crafting"} {
		mode, ok := ParseMode(name)
		require.True(t, ok)
		assert.Equal(t, name, mode.String())
	}

	_, ok := ParseMode("pvp")
	assert.False(t, ok)
}

func TestParseCategory(t *testing.T) {
	t.Parallel()

	for _, cat := range AllCategories() {
		parsed, ok := ParseCategory(cat.String())
		require.True(t, ok, cat.String())
		assert.Equal(t, cat, parsed)
	}

	_, ok := ParseCategory("voice")
	assert.False(t, ok)
}
