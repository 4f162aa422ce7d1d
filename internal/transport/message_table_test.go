package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"gamenet-core/internal/bandwidth"
	"gamenet-core/internal/config"
	"gamenet-core/internal/packet"
)

func TestMessageTable_DefaultClassification(t *testing.T) {
	t.Parallel()

	table := NewMessageTable(nil)

	tests := []struct {
		name     string
		category bandwidth.Category
		priority Priority
		exempt   bool
	}{
		{"Heartbeat", bandwidth.CategoryCritical, PriorityCritical, true},
		{"Disconnect", bandwidth.CategoryCritical, PriorityCritical, true},
		{"AuthRequest", bandwidth.CategoryCritical, PriorityCritical, true},
		{"AuthResponse", bandwidth.CategoryCritical, PriorityCritical, true},
		{"Registration", bandwidth.CategoryCritical, PriorityCritical, true},
		{"ChatMessage", bandwidth.CategoryChat, PriorityHigh, false},
		{"SystemMessage", bandwidth.CategoryChat, PriorityHigh, false},
		{"Whisper", bandwidth.CategoryChat, PriorityHigh, false},
		{"PositionUpdate", bandwidth.CategoryPosition, PriorityNormal, false},
		{"DeltaPositionUpdate", bandwidth.CategoryPosition, PriorityNormal, false},
		{"Teleport", bandwidth.CategoryGameplay, PriorityNormal, false},
		{"Command", bandwidth.CategoryGameplay, PriorityNormal, false},
		{"WorldState", bandwidth.CategoryGameplay, PriorityNormal, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rule := table.Classify(tt.name)
			assert.Equal(t, tt.category, rule.Category)
			assert.Equal(t, tt.priority, rule.Priority)
			assert.Equal(t, tt.exempt, rule.ThrottleExempt)
		})
	}
}

func TestMessageTable_LongestPrefixWins(t *testing.T) {
	t.Parallel()

	table := NewMessageTable(nil)

	// DeltaPositionUpdate 同时匹配 "DeltaPosition"，不落到别的短前缀
	rule := table.Classify("DeltaPositionUpdate")
	assert.Equal(t, "DeltaPosition", rule.Prefix)

	rule = table.Classify("PositionUpdate")
	assert.Equal(t, "Position", rule.Prefix)
}

func TestMessageTable_UnknownNameFallsBack(t *testing.T) {
	t.Parallel()

	table := NewMessageTable(nil)
	rule := table.Classify("SomethingNew")
	assert.Equal(t, bandwidth.CategoryMisc, rule.Category)
	assert.Equal(t, PriorityNormal, rule.Priority)
	assert.False(t, rule.ThrottleExempt)
}

func TestMessageTable_ConfigOverridesBuiltins(t *testing.T) {
	t.Parallel()

	table := NewMessageTable([]config.MessageRule{
		{Prefix: "Chat", Category: "telemetry", Priority: "low"},
		{Prefix: "Guild", Category: "chat", Priority: "high", ThrottleExempt: true},
	})

	rule := table.Classify("ChatMessage")
	assert.Equal(t, bandwidth.CategoryTelemetry, rule.Category)
	assert.Equal(t, PriorityLow, rule.Priority)

	rule = table.Classify("GuildInvite")
	assert.Equal(t, bandwidth.CategoryChat, rule.Category)
	assert.Equal(t, PriorityHigh, rule.Priority)
	assert.True(t, rule.ThrottleExempt)
}

func TestMessageTable_ClassifyMessage(t *testing.T) {
	t.Parallel()

	table := NewMessageTable(nil)
	rule := table.ClassifyMessage(packet.Whisper{From: "a", To: "b"})
	assert.Equal(t, bandwidth.CategoryChat, rule.Category)
}

func TestParsePriority(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"low", "normal", "high", "critical"} {
		prio, ok := ParsePriority(name)
		assert.True(t, ok)
		assert.Equal(t, name, prio.String())
	}

	prio, ok := ParsePriority(" HIGH ")
	assert.True(t, ok)
	assert.Equal(t, PriorityHigh, prio)

	_, ok = ParsePriority("urgent")
	assert.False(t, ok)
}
